package store

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/catalogsync/internal/config"
	"github.com/JonMunkholm/catalogsync/internal/core"
)

// Postgres is a core.Store backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// ConnectPostgres opens and pings a pool configured from cfg.
func ConnectPostgres(ctx context.Context, cfg config.DatabaseConfig) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "driver", "postgres", "name", strings.TrimPrefix(u.Path, "/"))
	}
	return NewPostgres(pool), nil
}

// NewPostgres wraps an existing pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Close releases the pool.
func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}

// EnsureSchema creates the products table and its indexes if missing.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	ddl, err := migration("postgres.sql")
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("apply products schema: %w", err)
	}
	return nil
}

// PriorPrices returns the stored priceWithTax of every product.
func (s *Postgres) PriorPrices(ctx context.Context) (map[string]float64, error) {
	rows, err := s.pool.Query(ctx, "SELECT identifier, price_with_tax::float8 FROM products")
	if err != nil {
		return nil, fmt.Errorf("query prior prices: %w", err)
	}
	defer rows.Close()

	prices := make(map[string]float64)
	for rows.Next() {
		var id string
		var price float64
		if err := rows.Scan(&id, &price); err != nil {
			return nil, fmt.Errorf("scan prior price: %w", err)
		}
		prices[id] = price
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read prior prices: %w", err)
	}
	return prices, nil
}

// HasColumn checks information_schema for a products column.
func (s *Postgres) HasColumn(ctx context.Context, column string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.columns
			WHERE table_schema = current_schema()
			  AND table_name = $1
			  AND column_name = $2
		)`, productsTable, column).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check column %s: %w", column, err)
	}
	return exists, nil
}

// UpsertProducts queues one upsert per product on a batch and sends it in
// a single transaction, so the chunk commits or fails as a whole.
func (s *Postgres) UpsertProducts(ctx context.Context, products []core.Product, columns []string) error {
	if len(products) == 0 {
		return nil
	}
	stmt, err := upsertStatement(columns, func(n int) string { return fmt.Sprintf("$%d", n) }, "now()")
	if err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		b := &pgx.Batch{}
		for i := range products {
			b.Queue(stmt, rowValues(&products[i], columns)...)
		}

		br := tx.SendBatch(ctx, b)
		for i := range products {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("upsert product %s: %w", products[i].Identifier, err)
			}
		}
		return br.Close()
	})
}

// DeleteAll removes every product.
func (s *Postgres) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM products")
	if err != nil {
		return 0, fmt.Errorf("clear products: %w", err)
	}
	return tag.RowsAffected(), nil
}
