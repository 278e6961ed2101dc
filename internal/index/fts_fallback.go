//go:build !sqlite_fts5

package index

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search scans the images table.
	return nil
}

func ftsClear(_ context.Context, _ *sql.Tx) error { return nil }

func ftsInsert(_ context.Context, _ *sql.Tx, _ ImageRow) error { return nil }

// Search performs a case-insensitive substring search (fallback when FTS5 is
// not compiled in). Every term must appear in at least one text column.
func (db *DB) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 20
	}
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return []Hit{}, nil
	}

	var (
		where []string
		args  []any
	)
	for _, t := range terms {
		where = append(where, `instr(lower(title || ' ' || description || ' ' || category || ' ' || collection || ' ' || filename), ?) > 0`)
		args = append(args, t)
	}
	args = append(args, limit)

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, filename, title, category, collection, sort_order, is_hero, substr(description, 1, 200)
		FROM images
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY sort_order, seq
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return scanHits(rows)
}
