// Package store owns the connection to the graph store. Every query runs
// through ExecuteTemplate, which only accepts names registered in
// pkg/safequery - the connector is the firewall between the engine and the
// database.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/parallax-labs/graphrag/internal/util"
	"github.com/parallax-labs/graphrag/pkg/config"
	"github.com/parallax-labs/graphrag/pkg/logger"
	"github.com/parallax-labs/graphrag/pkg/safequery"
)

// Record is one row returned by the store, keyed by column name.
type Record = map[string]any

// ErrUnavailable signals that the store cannot be reached. Callers treat it
// like any other execution error: fall back, never crash.
var ErrUnavailable = errors.New("store: graph store unavailable")

// Execer is the narrow driver surface the connector needs. The pgx-backed
// implementation lives in this package; tests substitute fakes.
type Execer interface {
	Exec(ctx context.Context, sql string, args []any) ([]Record, error)
	Ping(ctx context.Context) error
	Close()
}

// Dialer establishes a driver connection. Injectable so tests never need a
// running database.
type Dialer func(ctx context.Context, cfg config.Config) (Execer, error)

// Connector executes allowlisted templates against the graph store with
// pooling, per-call session scoping, bounded retries, and a throttled health
// cache. Safe for concurrent use.
type Connector struct {
	cfg  config.Config
	dial Dialer
	now  func() time.Time

	mu        sync.Mutex
	exec      Execer
	healthy   bool
	lastProbe time.Time
}

// Option customizes a Connector.
type Option func(*Connector)

// WithDialer replaces the default pgx dialer.
func WithDialer(dial Dialer) Option {
	return func(c *Connector) {
		c.dial = dial
	}
}

// WithClock replaces the time source used by the health throttle.
func WithClock(now func() time.Time) Option {
	return func(c *Connector) {
		c.now = now
	}
}

// NewConnector creates a Connector. The connection is established lazily on
// first use; construction itself never touches the store.
func NewConnector(cfg config.Config, opts ...Option) *Connector {
	c := &Connector{
		cfg:  cfg,
		dial: dialPgx,
		now:  time.Now,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(c)
	}
	return c
}

// driver returns the live driver, dialing on first use. A dial failure is
// logged and reported as nil, leaving the connector in its unavailable
// state; the next call tries again.
func (c *Connector) driver(ctx context.Context) Execer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.exec != nil {
		return c.exec
	}

	exec, err := c.dial(ctx, c.cfg)
	if err != nil {
		logger.Warn("Graph store driver unavailable", "err", err)
		return nil
	}
	c.exec = exec
	logger.Info("Graph store driver initialized")
	return c.exec
}

// IsHealthy reports store liveness. The actual probe runs at most once per
// configured interval; calls inside the window return the cached result so a
// per-message health check cannot hammer the store.
func (c *Connector) IsHealthy(ctx context.Context) bool {
	c.mu.Lock()
	if !c.lastProbe.IsZero() && c.now().Sub(c.lastProbe) < c.cfg.HealthCheckInterval {
		healthy := c.healthy
		c.mu.Unlock()
		return healthy
	}
	c.lastProbe = c.now()
	c.mu.Unlock()

	healthy := c.probe(ctx)

	c.mu.Lock()
	c.healthy = healthy
	c.mu.Unlock()
	return healthy
}

func (c *Connector) probe(ctx context.Context) bool {
	exec := c.driver(ctx)
	if exec == nil {
		return false
	}

	tpl, err := safequery.GetQuery("check_health")
	if err != nil {
		return false
	}

	qctx, cancel := context.WithTimeout(ctx, c.cfg.QueryTimeout)
	defer cancel()
	if _, err := exec.Exec(qctx, tpl.SQL, nil); err != nil {
		logger.Debug("Graph store health check failed", "err", err)
		return false
	}
	logger.Debug("Graph store health check passed")
	return true
}

// Available is the public availability gate: the feature flag is consulted
// first, so a disabled deployment never probes the store at all.
func (c *Connector) Available(ctx context.Context) bool {
	if !c.cfg.Enabled {
		return false
	}
	return c.IsHealthy(ctx)
}

// ExecuteTemplate runs a registered template with validated parameters.
// Transient failures are retried up to the configured bound with a fixed
// delay; each attempt gets its own session and query deadline. Unknown
// template names and invalid parameters are errors, never executed.
func (c *Connector) ExecuteTemplate(ctx context.Context, name string, params map[string]any) ([]Record, error) {
	tpl, err := safequery.GetQuery(name)
	if err != nil {
		logger.Error("Rejected unregistered query template", "template", name)
		return nil, err
	}

	if params == nil {
		params = map[string]any{}
	}
	validated, err := safequery.ValidateParameters(params)
	if err != nil {
		logger.Warn("Rejected invalid template parameters", "template", name, "err", err)
		return nil, err
	}
	args, err := safequery.BuildArgs(tpl, validated)
	if err != nil {
		logger.Warn("Rejected incomplete template parameters", "template", name, "err", err)
		return nil, err
	}

	exec := c.driver(ctx)
	if exec == nil {
		return nil, ErrUnavailable
	}

	records, err := util.RetryWithDelay(ctx, c.cfg.MaxRetries, c.cfg.RetryDelay, func(ctx context.Context) ([]Record, error) {
		qctx, cancel := context.WithTimeout(ctx, c.cfg.QueryTimeout)
		defer cancel()
		return exec.Exec(qctx, tpl.SQL, args)
	})
	if err != nil {
		logger.Warn("Query failed after retries", "template", name, "attempts", c.cfg.MaxRetries, "err", err)
		return nil, err
	}
	return records, nil
}

// Close releases the underlying driver. The connector can be used again
// afterwards; the next call re-dials.
func (c *Connector) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.exec != nil {
		c.exec.Close()
		c.exec = nil
	}
	c.healthy = false
	c.lastProbe = time.Time{}
}
