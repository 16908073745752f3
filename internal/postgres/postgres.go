package postgres

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/holders-snapshot/pkg/logger"
	"github.com/gaze-network/holders-snapshot/pkg/logger/slogx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	pgxslog "github.com/mcosta74/pgx-slog"
)

const (
	DefaultHost     = "127.0.0.1"
	DefaultPort     = "5432"
	DefaultDBName   = "postgres"
	DefaultSSLMode  = "prefer"
	DefaultMaxConns = 16
	DefaultMinConns = 0
	DefaultLogLevel = tracelog.LogLevelError
)

type Config struct {
	Host     string `mapstructure:"host" env:"HOST"`         // Default is 127.0.0.1
	Port     string `mapstructure:"port" env:"PORT"`         // Default is 5432
	User     string `mapstructure:"user" env:"USER"`         // Default is empty
	Password string `mapstructure:"password" env:"PASSWORD"` // Default is empty
	DBName   string `mapstructure:"db_name" env:"DBNAME"`    // Default is postgres
	SSLMode  string `mapstructure:"ssl_mode" env:"SSLMODE"`  // Default is prefer
	URL      string `mapstructure:"url" env:"URL"`           // If URL is provided, other fields are ignored

	MaxConns int32 `mapstructure:"max_conns" env:"MAX_CONNS"` // Default is 16
	MinConns int32 `mapstructure:"min_conns" env:"MIN_CONNS"` // Default is 0

	Debug bool `mapstructure:"debug" env:"DEBUG"`
}

// NewPool creates a new connection pool to the database and checks it is reachable.
func NewPool(ctx context.Context, conf Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(conf.String())
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse config to create a new connection pool")
	}
	poolConfig.MaxConns = utils.Default(conf.MaxConns, DefaultMaxConns)
	poolConfig.MinConns = utils.Default(conf.MinConns, DefaultMinConns)
	poolConfig.ConnConfig.Tracer = conf.QueryTracer()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create a new connection pool")
	}

	start := time.Now()
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrapf(err, "failed to connect to the database %s", conf.Redacted())
	}
	logger.InfoContext(ctx, "Connected to PostgreSQL",
		slogx.String("database", conf.Redacted()),
		slogx.Int64("max_conns", int64(poolConfig.MaxConns)),
		slogx.Duration("latency", time.Since(start)),
	)
	return pool, nil
}

// String returns the connection string (DSN format or URL format)
func (conf Config) String() string {
	// Prefer URL over DSN format
	if conf.URL != "" {
		return conf.URL
	}

	connString := fmt.Sprintf("host=%s dbname=%s port=%s sslmode=%s",
		utils.Default(conf.Host, DefaultHost),
		utils.Default(conf.DBName, DefaultDBName),
		utils.Default(conf.Port, DefaultPort),
		utils.Default(conf.SSLMode, DefaultSSLMode),
	)
	if conf.User != "" {
		connString = fmt.Sprintf("%s user=%s", connString, conf.User)
	}
	if conf.Password != "" {
		connString = fmt.Sprintf("%s password=%s", connString, conf.Password)
	}
	return connString
}

// Redacted returns the target of the connection without credentials, for logs and errors.
func (conf Config) Redacted() string {
	if conf.URL != "" {
		u, err := url.Parse(conf.URL)
		if err != nil {
			return "<invalid url>"
		}
		return u.Redacted()
	}
	return fmt.Sprintf("%s:%s/%s",
		utils.Default(conf.Host, DefaultHost),
		utils.Default(conf.Port, DefaultPort),
		utils.Default(conf.DBName, DefaultDBName),
	)
}

func (conf Config) QueryTracer() pgx.QueryTracer {
	loglevel := DefaultLogLevel
	if conf.Debug {
		loglevel = tracelog.LogLevelTrace
	}
	return &tracelog.TraceLog{
		Logger:   pgxslog.NewLogger(logger.With("package", "postgres")),
		LogLevel: loglevel,
	}
}
