package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/rayparkerhenry/intertalent/internal/db"
)

// connectPool creates the Postgres pool from configuration.
func connectPool(ctx context.Context) (*pgxpool.Pool, error) {
	if cfg.Store.DatabaseURL == "" {
		return nil, eris.New("zipgeo: no database_url configured (set ZIPGEO_STORE_DATABASE_URL or store.database_url)")
	}

	pool, err := db.Connect(ctx, cfg.Store.DatabaseURL, &cfg.Store.Pool)
	if err != nil {
		return nil, err
	}

	fmt.Println("Connected to database")
	return pool, nil
}
