package holders

import "time"

const (
	Version = "v0.1.0"

	// EtherDecimals is the number of decimals of the native balance unit.
	EtherDecimals = 18
)

const (
	DefaultResolverTolerance = 300 * time.Second

	DefaultInitialChunkSize       = 5000
	DefaultMinChunkSize           = 100
	DefaultMaxChunkSize           = 150_000
	DefaultMaxLogsPerQuery        = 9500
	DefaultMinLogsToIncreaseChunk = 1000
	DefaultIngestionRetryDelay    = 150 * time.Millisecond

	DefaultBalanceRetryDelay       = 2000 * time.Millisecond
	DefaultBalanceProgressInterval = 500
)
