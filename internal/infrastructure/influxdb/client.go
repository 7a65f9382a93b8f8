package influxdb

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/nerrad567/bonsai/internal/infrastructure/config"
)

const (
	connectTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second

	defaultBatchSize     = 100
	defaultFlushInterval = 10 // seconds
)

// Client is a write-only InfluxDB v2 connection for telemetry points.
//
// Points are queued on the library's non-blocking write API and sent in
// batches, so writing never waits on the network. Failed batches are
// counted and reported through the SetOnError callback.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - A zero Client is closed: writes are dropped and Close is a no-op.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	bucket   string

	open    atomic.Bool
	queued  atomic.Uint64
	failed  atomic.Uint64
	errDone chan struct{}

	mu      sync.RWMutex
	onError func(err error)
}

// Connect pings the server and opens a batched write API on the
// configured org and bucket.
//
// Parameters:
//   - ctx: Bounds the initial ping (in addition to a 10s cap)
//   - cfg: influxdb section of the configuration
//
// Returns:
//   - *Client: Open client; call Close to flush and release it
//   - error: ErrDisabled, or ErrConnectionFailed wrapping the cause
func Connect(ctx context.Context, cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = defaultFlushInterval
	}

	// #nosec G115 -- both values are positive here
	opts := influxdb2.DefaultOptions().
		SetBatchSize(uint(batchSize)).
		SetFlushInterval(uint(time.Duration(flushInterval) * time.Second / time.Millisecond)).
		SetUseGZip(true)
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	healthy, err := client.Ping(pingCtx)
	switch {
	case err != nil:
		client.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, cfg.URL, err)
	case !healthy:
		client.Close()
		return nil, fmt.Errorf("%w: %s reports unhealthy", ErrConnectionFailed, cfg.URL)
	}

	c := &Client{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Org, cfg.Bucket),
		bucket:   cfg.Bucket,
		errDone:  make(chan struct{}),
	}
	c.open.Store(true)

	go c.watchErrors(c.writeAPI.Errors())

	return c, nil
}

// watchErrors counts failed batches until the write API closes its
// error channel.
func (c *Client) watchErrors(errs <-chan error) {
	defer close(c.errDone)
	for err := range errs {
		c.failed.Add(1)

		c.mu.RLock()
		callback := c.onError
		c.mu.RUnlock()

		if callback != nil {
			callback(err)
		}
	}
}

// Bucket returns the bucket points are written to.
func (c *Client) Bucket() string {
	return c.bucket
}

// Queued returns how many points were handed to the write API.
func (c *Client) Queued() uint64 {
	return c.queued.Load()
}

// Failed returns how many write batches the server rejected or that
// could not be sent.
func (c *Client) Failed() uint64 {
	return c.failed.Load()
}

// SetOnError sets the callback for asynchronous write failures.
func (c *Client) SetOnError(callback func(err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = callback
}

// IsConnected reports whether the client is open. It does not ping; use
// HealthCheck for that.
func (c *Client) IsConnected() bool {
	return c.open.Load()
}

// HealthCheck pings the server.
//
// Parameters:
//   - ctx: Context for timeout/cancellation (capped at 5s)
//
// Returns:
//   - error: ErrNotConnected after Close, or the ping failure
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	healthy, err := c.client.Ping(pingCtx)
	if err != nil {
		return fmt.Errorf("influxdb ping: %w", err)
	}
	if !healthy {
		return fmt.Errorf("influxdb ping: server reports unhealthy")
	}
	return nil
}

// Flush sends every queued point now and waits for it.
// It is a no-op on a closed client.
func (c *Client) Flush() {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.Flush()
}

// Close flushes queued points and releases the connection. Calling it
// more than once is safe.
func (c *Client) Close() error {
	if !c.open.CompareAndSwap(true, false) {
		return nil
	}

	c.writeAPI.Flush()
	c.client.Close()

	select {
	case <-c.errDone:
	case <-time.After(pingTimeout):
	}
	return nil
}
