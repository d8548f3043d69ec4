package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ogurasousui/shiftboard/internal/platform/config"
)

const applicationName = "shiftboard"

// Pinger は疎通確認可能な接続を表します。/readyz から利用されます。
type Pinger interface {
	Ping(ctx context.Context) error
}

// BuildPoolConfig は database 設定から pgxpool.Config を構築します。
func BuildPoolConfig(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	if cfg.Driver != "" && cfg.Driver != config.DriverPostgres {
		return nil, fmt.Errorf("postgres: driver %q is not postgres", cfg.Driver)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolCfg.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.ConnMaxIdleTime
	}

	if poolCfg.ConnConfig.RuntimeParams == nil {
		poolCfg.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolCfg.ConnConfig.RuntimeParams["application_name"] = applicationName

	return poolCfg, nil
}

// NewPool は pgxpool.Pool を生成し疎通確認を行います。
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := BuildPoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	return pool, nil
}

// TxOptionsFromConfig は database 設定から TransactionManager のオプションを組み立てます。
func TxOptionsFromConfig(cfg config.DatabaseConfig) []TxOption {
	opts := []TxOption{WithMaxAttempts(cfg.TxMaxAttempts)}
	if cfg.SerializableWrites {
		opts = append(opts, WithWriteIsolation(pgx.Serializable))
	}
	return opts
}
