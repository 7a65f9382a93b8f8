// Package logging provides structured logging for the Bonsai host process.
//
// This package wraps Go's standard log/slog package and plays two roles:
//
//   - Logger: the process's own diagnostics (startup, broker faults,
//     recovered driver panics). It is what bonsai.Logger.SetLogger and the
//     infrastructure SetLogger hooks receive.
//   - Driver: a bonsai driver that forwards façade events into slog, so an
//     existing slog pipeline can consume them.
//
// # Configuration
//
//	logging:
//	  level: "info"      # verbose, debug, info, warn, error
//	  format: "text"     # json, text
//	  output: "stderr"   # stdout, stderr
//	  driver: false      # also register the slog driver
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("starting service", "port", 8090)
//
//	facade.Register(logging.NewDriver(logger.Logger))
//
// # Security
//
// Never log secrets, tokens or passwords.
package logging
