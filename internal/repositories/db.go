package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the part of *pgxpool.Pool the repositories use. pgxmock pools satisfy it as well.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres accepts at most 65535 bind parameters per statement.
const maxBindParams = 65535

// buildBulkInsert renders INSERT INTO table (cols) VALUES ($1, ...), (...) for rowCount rows.
func buildBulkInsert(table string, columns []string, rowCount int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", table, strings.Join(columns, ", "))

	n := 1
	for r := 0; r < rowCount; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := range columns {
			if c > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", n)
			n++
		}
		b.WriteByte(')')
	}
	return b.String()
}

// bulkInsert writes rows with as few statements as the bind parameter limit allows.
func bulkInsert(ctx context.Context, db DB, table string, columns []string, rows [][]any) error {
	perStatement := maxBindParams / len(columns)
	for start := 0; start < len(rows); start += perStatement {
		end := min(start+perStatement, len(rows))
		chunk := rows[start:end]

		args := make([]any, 0, len(chunk)*len(columns))
		for _, row := range chunk {
			args = append(args, row...)
		}
		if _, err := db.Exec(ctx, buildBulkInsert(table, columns, len(chunk)), args...); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
	}
	return nil
}

// scanIDMap reads (id, key) rows into a key to id map.
func scanIDMap(rows pgx.Rows) (map[string]uuid.UUID, error) {
	defer rows.Close()

	out := make(map[string]uuid.UUID)
	for rows.Next() {
		var id uuid.UUID
		var key string
		if err := rows.Scan(&id, &key); err != nil {
			return nil, err
		}
		out[key] = id
	}
	return out, rows.Err()
}
