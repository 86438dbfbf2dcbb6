package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	storeConnectTimeout = 5 * time.Second
	storePingTimeout    = 2 * time.Second
)

// OpenStoreDB connects the pool backing the postgres project store and
// verifies the connection with a ping before handing it out.
func OpenStoreDB(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, fmt.Errorf("STORE_DSN is not set")
	}

	cctx, cancel := context.WithTimeout(ctx, storeConnectTimeout)
	defer cancel()

	pool, err := pgxpool.New(cctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store db connect: %w", err)
	}

	pctx, pcancel := context.WithTimeout(ctx, storePingTimeout)
	defer pcancel()

	if err := pool.Ping(pctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store db ping: %w", err)
	}

	return pool, nil
}
