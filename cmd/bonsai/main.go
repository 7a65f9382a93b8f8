// Bonsai - pluggable logging façade host
//
// This is the main entry point for the bonsai host process. It builds one
// façade from configuration, registers every enabled driver (console,
// syslog, slog, MQTT, InfluxDB, SQLite journal, live tail) and serves the
// admin API until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/nerrad567/bonsai/internal/api"
	"github.com/nerrad567/bonsai/internal/bonsai"
	"github.com/nerrad567/bonsai/internal/infrastructure/config"
	"github.com/nerrad567/bonsai/internal/infrastructure/database"
	"github.com/nerrad567/bonsai/internal/infrastructure/influxdb"
	"github.com/nerrad567/bonsai/internal/infrastructure/logging"
	"github.com/nerrad567/bonsai/internal/infrastructure/mqtt"
	"github.com/nerrad567/bonsai/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// configEnv overrides the default configuration path.
const configEnv = "BONSAI_CONFIG"

// options are the parsed command-line flags.
type options struct {
	configPath  string
	showVersion bool
	demo        bool
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		os.Exit(2)
	}
	if opts.showVersion {
		fmt.Printf("bonsai %s (commit %s, built %s)\n", version, commit, date)
		return
	}

	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags reads the command line into options.
func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("bonsai", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "path to the YAML configuration (default $"+configEnv+" or "+defaultConfigPath+")")
	fs.BoolVar(&opts.showVersion, "version", false, "print version information and exit")
	fs.BoolVar(&opts.demo, "demo", false, "log a sample set of events at startup")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	opts.configPath = getConfigPath(opts.configPath)
	return opts, nil
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - opts: Parsed command-line options
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, opts options) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting bonsai",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", opts.configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	instance := uuid.NewString()

	logger := bonsai.New()
	logger.SetLogger(log.Component("bonsai"))
	logger.SetFilter(cfg.Filter.Filter())
	log.Info("filter configured",
		"minimum_level", logger.MinimumLevel(),
		"debug_focus", logger.DebugFocusEnabled(),
	)

	if cfg.Console.Enabled {
		logger.Register(newConsole(cfg.Console))
	}

	if cfg.Syslog.Enabled {
		sys, sysErr := bonsai.NewSystemLog(cfg.Syslog.Subsystem, cfg.Syslog.Category)
		if sysErr != nil {
			log.Warn("syslog unavailable, continuing without it", "error", sysErr)
		} else {
			logger.Register(sys)
			defer func() {
				if closeErr := sys.Close(); closeErr != nil {
					log.Error("error closing syslog", "error", closeErr)
				}
			}()
		}
	}

	if cfg.Logging.Driver {
		logger.Register(logging.NewDriver(log.Logger))
	}

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(ctx, cfg.MQTT, instance)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		mqttLog := log.Component("mqtt")
		mqttClient.SetLogger(mqttLog)
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		mqttDriver := mqtt.NewDriver(mqttClient, mqtt.DriverConfig{
			Topics:     mqttClient.Topics(),
			QoS:        mqttClient.QoS(),
			BufferSize: cfg.MQTT.BufferSize,
			Instance:   instance,
		})
		mqttDriver.SetLogger(mqttLog)
		defer func() {
			if dropped := mqttDriver.Dropped(); dropped > 0 {
				log.Warn("MQTT driver dropped events", "dropped", dropped)
			}
			mqttDriver.Close() //nolint:errcheck // Close never fails
		}()
		logger.Register(mqttDriver)

		if subErr := mqtt.SubscribeFilterControl(mqttClient, logger); subErr != nil {
			log.Warn("remote filter control unavailable", "error", subErr)
		}
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		logger.Register(influxdb.NewDriver(influxClient, instance))
	} else {
		log.Info("InfluxDB disabled")
	}

	// Open the SQLite journal (optional)
	var (
		db      *database.DB
		journal api.Journal
	)
	if cfg.Database.Enabled {
		db, err = database.Open(ctx, database.Config{
			Path:        cfg.Database.Path,
			WALMode:     cfg.Database.WALMode,
			BusyTimeout: cfg.Database.BusyTimeout,
			Migrations:  migrations.FS,
		})
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		log.Info("database connected", "path", cfg.Database.Path)

		if migrateErr := db.Migrate(ctx); migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		log.Info("database migrations complete")

		journalDriver := database.NewDriver(db, database.DriverConfig{
			BufferSize: cfg.Database.BufferSize,
			Instance:   instance,
		})
		journalDriver.SetLogger(log.Component("journal"))
		defer func() {
			journalDriver.Close() //nolint:errcheck // Close never fails
			log.Info("journal drained",
				"written", journalDriver.Written(),
				"dropped", journalDriver.Dropped(),
				"failed", journalDriver.Failed(),
			)
		}()
		logger.Register(journalDriver)
		journal = journalDriver
	} else {
		log.Info("journal disabled")
	}

	// Close every remaining closer driver before the connections above go away.
	defer func() {
		if closeErr := logger.Close(); closeErr != nil {
			log.Error("error closing drivers", "error", closeErr)
		}
	}()

	// Start the admin API (optional)
	var apiServer *api.Server
	if cfg.API.Enabled {
		apiServer, err = api.New(api.Deps{
			Config:  cfg.API,
			WS:      cfg.WebSocket,
			Logger:  log,
			Bonsai:  logger,
			Journal: journal,
			Version: version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if startErr := apiServer.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
		log.Info("API server listening", "addr", apiServer.Addr())
	} else {
		log.Info("API server disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient, apiServer); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed", "drivers", logger.Len())

	if opts.demo {
		runDemo(logger)
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server (unregisters the live-tail hub)
	// 2. Remaining closer drivers
	// 3. Journal driver, then database
	// 4. InfluxDB (if enabled)
	// 5. MQTT driver, then client
	// 6. Syslog

	log.Info("bonsai stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// An explicit flag wins, then BONSAI_CONFIG, then the default.
func getConfigPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if path := os.Getenv(configEnv); path != "" {
		return path
	}
	return defaultConfigPath
}

// newConsole builds the console driver for the configured stream and
// colour mode. "auto" keeps the driver's own TTY detection.
func newConsole(cfg config.ConsoleConfig) *bonsai.Console {
	out := os.Stdout
	if cfg.Output == "stderr" {
		out = os.Stderr
	}

	console := bonsai.NewConsole(out)
	switch cfg.Color {
	case "always":
		console.SetColour(true)
	case "never":
		console.SetColour(false)
	}
	return console
}

// healthCheck verifies every enabled connection is healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Journal database (nil if disabled)
//   - mqttClient: MQTT client (nil if disabled)
//   - influxClient: InfluxDB client (nil if disabled)
//   - apiServer: Admin API (nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client, apiServer *api.Server) error {
	if db != nil {
		if err := db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	if apiServer != nil {
		if err := apiServer.HealthCheck(ctx); err != nil {
			return fmt.Errorf("api: %w", err)
		}
	}

	return nil
}
