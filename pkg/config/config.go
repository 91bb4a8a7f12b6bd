package config

import (
	"time"

	"github.com/parallax-labs/graphrag/internal/util"
)

// Config is the single value object carrying every externally supplied
// setting. It is built once per process and passed down explicitly; nothing
// in the engine reads the environment after construction.
type Config struct {
	// DatabaseURL points at the graph store. An empty value leaves the
	// connector in its unavailable state, which routes every retrieval
	// through the fallback path.
	DatabaseURL string

	// Enabled is the feature flag. When false every boundary call behaves
	// as if the graph layer did not exist.
	Enabled bool

	MaxHops     int
	MaxEntities int
	MaxResults  int

	QueryTimeout        time.Duration
	ConnectTimeout      time.Duration
	MaxRetries          int
	RetryDelay          time.Duration
	CacheTTL            time.Duration
	HealthCheckInterval time.Duration
	PoolSize            int
}

// Default returns a Config with the stock defaults and the feature disabled.
func Default() Config {
	return Config{
		Enabled:             false,
		MaxHops:             2,
		MaxEntities:         100,
		MaxResults:          50,
		QueryTimeout:        10 * time.Second,
		ConnectTimeout:      2 * time.Second,
		MaxRetries:          3,
		RetryDelay:          100 * time.Millisecond,
		CacheTTL:            time.Hour,
		HealthCheckInterval: 30 * time.Second,
		PoolSize:            50,
	}
}

// FromEnv builds a Config from the environment. Both GRAPH_RAG_ENABLED and
// the legacy GRAPHRAG_ENABLED spelling activate the feature.
func FromEnv() Config {
	cfg := Default()

	cfg.DatabaseURL = util.GetEnv("DATABASE_URL")
	cfg.Enabled = util.GetEnvBool("GRAPH_RAG_ENABLED", false) ||
		util.GetEnvBool("GRAPHRAG_ENABLED", false)

	cfg.MaxHops = util.GetEnvInt("GRAPH_EXPAND_MAX_HOPS", cfg.MaxHops)
	cfg.MaxEntities = util.GetEnvInt("GRAPH_EXPAND_LIMIT", cfg.MaxEntities)
	cfg.MaxResults = util.GetEnvInt("GRAPH_MAX_RESULTS", cfg.MaxResults)

	cfg.QueryTimeout = time.Duration(util.GetEnvInt("GRAPH_QUERY_TIMEOUT_MS", 10000)) * time.Millisecond
	cfg.ConnectTimeout = time.Duration(util.GetEnvInt("GRAPH_CONNECT_TIMEOUT_MS", 2000)) * time.Millisecond
	cfg.MaxRetries = util.GetEnvInt("GRAPH_MAX_RETRIES", cfg.MaxRetries)
	cfg.RetryDelay = time.Duration(util.GetEnvInt("GRAPH_RETRY_DELAY_MS", 100)) * time.Millisecond
	cfg.CacheTTL = time.Duration(util.GetEnvInt("GRAPH_CACHE_TTL_S", 3600)) * time.Second
	cfg.HealthCheckInterval = time.Duration(util.GetEnvInt("GRAPH_HEALTH_INTERVAL_S", 30)) * time.Second
	cfg.PoolSize = util.GetEnvInt("GRAPH_POOL_SIZE", cfg.PoolSize)

	return cfg
}
