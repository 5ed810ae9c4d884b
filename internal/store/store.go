// Package store persists the product catalog.
//
// Two backends implement core.Store: Postgres through a pgx pool for
// production, and SQLite through the pure-Go modernc driver for single-node
// deployments and tests. Both key products by identifier and upsert, so
// re-running a sync with unchanged input leaves the table unchanged apart
// from updated_at.
package store

import (
	"embed"
	"fmt"
	"strings"

	"github.com/JonMunkholm/catalogsync/internal/core"
)

//go:embed migrations/*.sql
var migrations embed.FS

const productsTable = "products"

func migration(name string) (string, error) {
	b, err := migrations.ReadFile("migrations/" + name)
	if err != nil {
		return "", fmt.Errorf("read migration %s: %w", name, err)
	}
	return string(b), nil
}

// upsertStatement builds a single-row upsert for the given columns.
// placeholder renders the n-th (1-based) bind parameter and now is the
// dialect's current-timestamp expression.
func upsertStatement(columns []string, placeholder func(n int) string, now string) (string, error) {
	if len(columns) == 0 || columns[0] != core.ColIdentifier {
		return "", fmt.Errorf("upsert columns must start with %q", core.ColIdentifier)
	}

	names := make([]string, 0, len(columns)+1)
	params := make([]string, 0, len(columns)+1)
	sets := make([]string, 0, len(columns))
	for i, col := range columns {
		names = append(names, quoteIdent(col))
		params = append(params, placeholder(i+1))
		if col != core.ColIdentifier {
			sets = append(sets, fmt.Sprintf("%s = excluded.%s", quoteIdent(col), quoteIdent(col)))
		}
	}
	names = append(names, "updated_at")
	params = append(params, now)
	sets = append(sets, "updated_at = excluded.updated_at")

	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		productsTable,
		strings.Join(names, ", "),
		strings.Join(params, ", "),
		core.ColIdentifier,
		strings.Join(sets, ", "),
	), nil
}

// rowValues returns p's values in column order.
func rowValues(p *core.Product, columns []string) []any {
	vals := make([]any, len(columns))
	for i, col := range columns {
		vals[i] = core.ColumnValue(p, col)
	}
	return vals
}

// quoteIdent quotes a column name. Column names come from
// core.ProductColumns, never from input.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
