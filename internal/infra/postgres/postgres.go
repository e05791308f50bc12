// Package postgres provides the optional Postgres persistence layer.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// database/sql driver
	_ "github.com/lib/pq"

	"github.com/folioapp/api/internal/config"
	"github.com/folioapp/api/pkg/logger"
)

// Open connects to Postgres and verifies the connection.
func Open(cfg *config.DatabaseConfig, log *logger.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	log.Info("postgres connected",
		"max_open_conns", cfg.MaxOpenConns,
	)

	return db, nil
}
