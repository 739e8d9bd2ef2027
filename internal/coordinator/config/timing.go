package config

import "time"

// Default timing configurations used throughout the coordinator
const (
	// DefaultSessionTTL is how long an automation session stays usable
	DefaultSessionTTL = 30 * time.Minute

	// DefaultSweepInterval is how often the sweeper expires stale sessions
	DefaultSweepInterval = 1 * time.Minute

	// DefaultCaseCacheTTL is the time-to-live for cached case summaries
	DefaultCaseCacheTTL = 5 * time.Minute

	// DefaultCaseCacheSize is the maximum number of cached case summaries
	DefaultCaseCacheSize = 1024

	// DefaultShutdownTimeout bounds graceful shutdown of the listeners
	DefaultShutdownTimeout = 10 * time.Second

	// DefaultWorkerCallTimeout bounds one worker callback RPC
	DefaultWorkerCallTimeout = 5 * time.Second
)
