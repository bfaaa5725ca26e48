package warehouse

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const (
	connectRetries  = 5
	connectInterval = 2 * time.Second
)

// NewPool opens a pgx connection pool against the warehouse and verifies it
// with a ping, retrying a few times so the batch job survives a database
// that is still coming up.
func NewPool(ctx context.Context, databaseURL string, log zerolog.Logger) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	config.MaxConns = 4
	config.MinConns = 1
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	var pool *pgxpool.Pool
	for attempt := 1; attempt <= connectRetries; attempt++ {
		pool, err = pgxpool.NewWithConfig(ctx, config)
		if err == nil {
			if pingErr := pool.Ping(ctx); pingErr == nil {
				log.Info().Msg("warehouse connected")
				return pool, nil
			} else {
				pool.Close()
				err = pingErr
			}
		}

		log.Warn().Err(err).Int("attempt", attempt).Int("max", connectRetries).
			Msg("warehouse connection failed")
		if attempt < connectRetries {
			select {
			case <-time.After(connectInterval):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, fmt.Errorf("warehouse connection failed after %d attempts: %w", connectRetries, err)
}
