package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"content-marketplace/internal/config"
	"content-marketplace/internal/domain/ports/repository"
	"content-marketplace/internal/infra/db/dynamo"
	"content-marketplace/internal/infra/db/memory"
	"content-marketplace/internal/infra/db/postgres"
)

// Store is an opened purchase backend. Pool is set only for postgres.
type Store struct {
	Purchases repository.PurchaseRepository
	Pool      *pgxpool.Pool
}

func (s *Store) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
}

// Open selects the backend named by database.driver.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *zerolog.Logger) (*Store, error) {
	switch cfg.Driver {
	case "postgres":
		pool, err := postgres.Connect(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}
		return &Store{Purchases: postgres.NewPostgresPurchaseRepo(pool), Pool: pool}, nil
	case "dynamodb":
		client, err := dynamo.NewClient(ctx, cfg.Dynamo)
		if err != nil {
			return nil, err
		}
		return &Store{Purchases: dynamo.NewPurchaseRepo(client, cfg.Dynamo.Table)}, nil
	case "memory":
		logger.Warn().Msg("using in-memory purchase store; purchases are lost on restart")
		return &Store{Purchases: memory.NewPurchaseRepo()}, nil
	default:
		return nil, fmt.Errorf("database.driver %q is not supported", cfg.Driver)
	}
}
