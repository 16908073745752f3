package config

import (
	"time"

	"github.com/gaze-network/holders-snapshot/internal/postgres"
	"github.com/gaze-network/holders-snapshot/pkg/retry"
)

type Config struct {
	CollectionAddress string          `mapstructure:"collection_address"` // ERC-721 contract address of the collection.
	GenesisHeight     uint64          `mapstructure:"genesis_height"`     // Deployment height of the collection, ingestion starts here.
	Database          string          `mapstructure:"database"`           // Database to store transfer events. e.g. `postgres` | `pebble`
	Postgres          postgres.Config `mapstructure:"postgres"`
	Pebble            PebbleConfig    `mapstructure:"pebble"`
	Resolver          ResolverConfig  `mapstructure:"resolver"`
	Ingestion         IngestionConfig `mapstructure:"ingestion"`
	Balances          BalancesConfig  `mapstructure:"balances"`
}

type PebbleConfig struct {
	Path string `mapstructure:"path"`
}

type ResolverConfig struct {
	Tolerance time.Duration `mapstructure:"tolerance"` // Accepted distance between a checkpoint and the requested time.
}

type IngestionConfig struct {
	InitialChunkSize       uint64       `mapstructure:"initial_chunk_size"`
	MinChunkSize           uint64       `mapstructure:"min_chunk_size"`
	MaxChunkSize           uint64       `mapstructure:"max_chunk_size"`
	MaxLogsPerQuery        int          `mapstructure:"max_logs_per_query"`         // Shrink the chunk when a window returns at least this many events.
	MinLogsToIncreaseChunk int          `mapstructure:"min_logs_to_increase_chunk"` // Grow the chunk when a window returns fewer events.
	Retry                  retry.Policy `mapstructure:"retry"`
}

type BalancesConfig struct {
	Retry retry.Policy `mapstructure:"retry"`

	// ZeroOnExhausted counts an owner as zero balance when a bounded retry policy gives up,
	// instead of failing the whole aggregation.
	ZeroOnExhausted bool `mapstructure:"zero_on_exhausted"`

	// ProgressInterval is the number of completed owners between progress logs.
	ProgressInterval int `mapstructure:"progress_interval"`
}
