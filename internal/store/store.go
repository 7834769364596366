package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/marcelsud/webhook-ledger/config"
	"github.com/marcelsud/webhook-ledger/number"
	numbermemory "github.com/marcelsud/webhook-ledger/number/memory"
	numberpostgres "github.com/marcelsud/webhook-ledger/number/postgres"
	"github.com/marcelsud/webhook-ledger/webhook"
	"github.com/marcelsud/webhook-ledger/webhook/memory"
	"github.com/marcelsud/webhook-ledger/webhook/postgres"
	"github.com/marcelsud/webhook-ledger/webhook/redis"
)

// Stores groups the repositories selected by STORE_DRIVER
type Stores struct {
	Webhooks webhook.Repository
	Numbers  number.Repository
}

// Open connects the configured driver. The redis driver keeps numbers in
// memory since numbers have no redis layout.
func Open(ctx context.Context, cfg *config.Config) (*Stores, error) {
	switch cfg.GetStoreDriver() {
	case config.DriverMemory:
		return &Stores{
			Webhooks: memory.NewRepository(),
			Numbers:  numbermemory.NewRepository(),
		}, nil

	case config.DriverRedis:
		if err := cfg.ValidateRedis(); err != nil {
			return nil, fmt.Errorf("validating redis config: %w", err)
		}
		repo, err := redis.NewRepository(cfg.GetRedisAddr(), cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		return &Stores{
			Webhooks: repo,
			Numbers:  numbermemory.NewRepository(),
		}, nil

	case config.DriverPostgres:
		if err := cfg.ValidatePostgres(); err != nil {
			return nil, fmt.Errorf("validating postgres config: %w", err)
		}
		repo, err := postgres.NewRepositoryWithPoolConfig(
			cfg.GetPostgresConnectionString(),
			cfg.GetPostgresMaxOpenConns(),
			cfg.GetPostgresMaxIdleConns(),
			cfg.GetPostgresConnMaxLifeMinutes(),
		)
		if err != nil {
			return nil, err
		}
		if err := repo.CreateTable(ctx); err != nil {
			return nil, errors.Join(err, repo.Close(ctx))
		}
		numbers := numberpostgres.NewRepository(repo.DB)
		if err := numbers.CreateTable(ctx); err != nil {
			return nil, errors.Join(err, repo.Close(ctx))
		}
		return &Stores{
			Webhooks: repo,
			Numbers:  numbers,
		}, nil

	default:
		return nil, fmt.Errorf("unknown store driver: %s", cfg.StoreDriver)
	}
}

// Close releases both repositories
func (s *Stores) Close(ctx context.Context) error {
	return errors.Join(s.Numbers.Close(ctx), s.Webhooks.Close(ctx))
}
