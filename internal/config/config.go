package config

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/holders-snapshot/common"
	holdersconfig "github.com/gaze-network/holders-snapshot/modules/holders/config"
	"github.com/gaze-network/holders-snapshot/pkg/logger"
	"github.com/gaze-network/holders-snapshot/pkg/logger/slogx"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	isInit     bool
	mu         sync.Mutex
	config     = &Config{}
	defaultsKV = map[string]any{
		"logger.output":                                "TEXT",
		"network":                                      common.NetworkMainnet,
		"evm_node.rps":                                 25,
		"holders.database":                             "postgres",
		"holders.pebble.path":                          "./data/holders",
		"holders.resolver.tolerance":                   300 * time.Second,
		"holders.ingestion.initial_chunk_size":         5000,
		"holders.ingestion.min_chunk_size":             100,
		"holders.ingestion.max_chunk_size":             150000,
		"holders.ingestion.max_logs_per_query":         9500,
		"holders.ingestion.min_logs_to_increase_chunk": 1000,
		"holders.ingestion.retry.delay":                150 * time.Millisecond,
		"holders.ingestion.retry.backoff":              "fixed",
		"holders.balances.retry.delay":                 2000 * time.Millisecond,
		"holders.balances.retry.backoff":               "fixed",
		"holders.balances.progress_interval":           500,
	}
)

type Config struct {
	Logger  logger.Config        `mapstructure:"logger"`
	Network common.Network       `mapstructure:"network"`
	EVMNode EVMNodeClient        `mapstructure:"evm_node"`
	Holders holdersconfig.Config `mapstructure:"holders"`
}

type EVMNodeClient struct {
	URL string `mapstructure:"url"` // JSON-RPC endpoint of the EVM node.
	RPS int    `mapstructure:"rps"` // Maximum requests per second sent by the balance aggregator.
}

// Parse parse the configuration from environment variables and the given config file
func Parse(configFile ...string) Config {
	mu.Lock()
	defer mu.Unlock()
	return parse(configFile...)
}

// Load returns the loaded configuration
func Load() Config {
	mu.Lock()
	defer mu.Unlock()
	if isInit {
		return *config
	}
	return parse()
}

// BindPFlag binds a specific key to a pflag (as used by cobra).
func BindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		logger.Panic("Something went wrong, failed to bind flag for config", slog.String("package", "config"), slogx.Error(err))
	}
}

func parse(configFile ...string) Config {
	ctx := logger.WithContext(context.Background(), slog.String("package", "config"))

	for k, v := range defaultsKV {
		viper.SetDefault(k, v)
	}

	if len(configFile) > 0 && configFile[0] != "" {
		viper.SetConfigFile(configFile[0])
	} else {
		viper.AddConfigPath("./")
		viper.SetConfigName("config")
	}

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err := viper.ReadInConfig(); err != nil {
		var errNotfound viper.ConfigFileNotFoundError
		if errors.As(err, &errNotfound) {
			logger.WarnContext(ctx, "Config file not found, use default config value", slogx.Error(err))
		} else {
			logger.PanicContext(ctx, "Invalid config file", slogx.Error(err))
		}
	}

	if err := viper.Unmarshal(config); err != nil {
		logger.PanicContext(ctx, "Something went wrong, failed to unmarshal config", slogx.Error(err))
	}

	isInit = true
	return *config
}
