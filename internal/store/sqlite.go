package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"github.com/JonMunkholm/catalogsync/internal/core"
)

// SQLite is a core.Store backed by a SQLite file (or ":memory:").
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens the database at path. SQLite serializes writers, so
// the pool holds a single connection; that also keeps ":memory:"
// databases alive for the life of the store.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}

	slog.Info("connected to database", "driver", "sqlite", "path", path)
	return &SQLite{db: db}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the products table if missing.
func (s *SQLite) EnsureSchema(ctx context.Context) error {
	ddl, err := migration("sqlite.sql")
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("apply products schema: %w", err)
	}
	return nil
}

// PriorPrices returns the stored priceWithTax of every product.
func (s *SQLite) PriorPrices(ctx context.Context) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT identifier, price_with_tax FROM products")
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

// HasColumn reports whether products has the column, via pragma_table_info.
func (s *SQLite) HasColumn(ctx context.Context, column string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?",
		productsTable, column,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check column %s: %w", column, err)
	}
	return n > 0, nil
}

// UpsertProducts writes products inside one transaction using a prepared
// upsert.
func (s *SQLite) UpsertProducts(ctx context.Context, products []core.Product, columns []string) error {
	if len(products) == 0 {
		return nil
	}
	query, err := upsertStatement(columns, func(int) string { return "?" }, "CURRENT_TIMESTAMP")
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for i := range products {
		if _, err := stmt.ExecContext(ctx, rowValues(&products[i], columns)...); err != nil {
			return fmt.Errorf("upsert product %s: %w", products[i].Identifier, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// DeleteAll removes every product.
func (s *SQLite) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM products")
	if err != nil {
		return 0, fmt.Errorf("clear products: %w", err)
	}
	return res.RowsAffected()
}
