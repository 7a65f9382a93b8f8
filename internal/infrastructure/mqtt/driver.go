package mqtt

import (
	"sync"
	"sync/atomic"

	"github.com/nerrad567/bonsai/internal/bonsai"
	"github.com/nerrad567/bonsai/internal/infrastructure/event"
)

// DefaultBufferSize is the driver queue length when none is configured.
const DefaultBufferSize = 1024

// Publisher is the part of Client the driver needs.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// DriverConfig configures a Driver.
type DriverConfig struct {
	Topics     Topics
	QoS        byte
	BufferSize int

	// Instance is stamped on every record.
	Instance string
}

type outbound struct {
	topic  string
	record event.Record
}

// Driver publishes façade events to MQTT.
//
// Events at a level go to <prefix>/log/<level>; store payloads go to
// <prefix>/store. Every payload is an event.Record in JSON.
//
// Thread Safety:
//   - Driver methods never block the dispatcher: events are queued to a
//     bounded buffer drained by one worker goroutine.
//   - When the buffer is full the event is dropped and counted (see Dropped).
//   - Publish failures (broker down, timeout) are counted and reported to
//     the logger set via SetLogger.
type Driver struct {
	pub Publisher
	cfg DriverConfig

	queue chan outbound
	wg    sync.WaitGroup

	closeMu sync.RWMutex
	closed  bool

	dropped atomic.Uint64
	failed  atomic.Uint64

	logger   Logger
	loggerMu sync.RWMutex
}

// NewDriver creates a driver and starts its worker.
//
// Parameters:
//   - pub: Usually a connected *Client
//   - cfg: Topics, QoS and queue length
//
// Returns:
//   - *Driver: Running driver; call Close to drain and stop it
func NewDriver(pub Publisher, cfg DriverConfig) *Driver {
	if cfg.BufferSize < 1 {
		cfg.BufferSize = DefaultBufferSize
	}
	if cfg.QoS > maxQoS {
		cfg.QoS = maxQoS
	}

	d := &Driver{
		pub:   pub,
		cfg:   cfg,
		queue: make(chan outbound, cfg.BufferSize),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

// Name implements bonsai.Named.
func (d *Driver) Name() string { return "mqtt" }

// LogMessage implements bonsai.Driver.
func (d *Driver) LogMessage(level bonsai.Level, text string, origin bonsai.Origin) {
	d.enqueue(d.cfg.Topics.Log(level), event.Message(level, text, origin))
}

// LogMetadata implements bonsai.Driver.
func (d *Driver) LogMetadata(level bonsai.Level, metadata bonsai.Metadata, origin bonsai.Origin) {
	d.enqueue(d.cfg.Topics.Log(level), event.FromMetadata(level, metadata, origin))
}

// Store implements bonsai.Driver.
func (d *Driver) Store(metadata bonsai.Metadata) {
	d.enqueue(d.cfg.Topics.Store(), event.Store(metadata))
}

// Dropped returns the number of events discarded because the queue was full
// or the driver was closed.
func (d *Driver) Dropped() uint64 {
	return d.dropped.Load()
}

// Failed returns the number of events the publisher rejected.
func (d *Driver) Failed() uint64 {
	return d.failed.Load()
}

// SetLogger sets a logger for publish failures.
func (d *Driver) SetLogger(logger Logger) {
	d.loggerMu.Lock()
	d.logger = logger
	d.loggerMu.Unlock()
}

// Close stops accepting events, publishes what is already queued and waits
// for the worker to exit. It does not close the publisher.
func (d *Driver) Close() error {
	d.closeMu.Lock()
	if d.closed {
		d.closeMu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.closeMu.Unlock()

	d.wg.Wait()
	return nil
}

func (d *Driver) enqueue(topic string, record event.Record) {
	d.closeMu.RLock()
	defer d.closeMu.RUnlock()

	if d.closed {
		d.dropped.Add(1)
		return
	}

	select {
	case d.queue <- outbound{topic: topic, record: record.Stamp(d.cfg.Instance)}:
	default:
		d.dropped.Add(1)
	}
}

func (d *Driver) run() {
	defer d.wg.Done()
	for msg := range d.queue {
		d.publish(msg)
	}
}

func (d *Driver) publish(msg outbound) {
	payload, err := msg.record.MarshalPayload()
	if err == nil {
		err = d.pub.Publish(msg.topic, payload, d.cfg.QoS, false)
	}
	if err == nil {
		return
	}

	d.failed.Add(1)
	d.loggerMu.RLock()
	logger := d.logger
	d.loggerMu.RUnlock()
	if logger != nil {
		logger.Warn("MQTT log publish failed",
			"topic", msg.topic,
			"error", err,
		)
	}
}
