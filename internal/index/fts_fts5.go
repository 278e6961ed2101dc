//go:build sqlite_fts5

package index

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS images_fts USING fts5(
			seq UNINDEXED,
			title,
			description,
			category,
			collection,
			filename,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsClear(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM images_fts`); err != nil {
		return fmt.Errorf("index: clear fts: %w", err)
	}
	return nil
}

func ftsInsert(ctx context.Context, tx *sql.Tx, r ImageRow) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO images_fts (seq, title, description, category, collection, filename)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.Seq, r.Title, r.Description, r.Category, r.Collection, r.Filename)
	if err != nil {
		return fmt.Errorf("index: insert fts: %w", err)
	}
	return nil
}

// matchExpr quotes every term so user input cannot inject FTS5 syntax.
// Terms are ANDed.
func matchExpr(query string) string {
	terms := strings.Fields(query)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(terms, " ")
}

// Search performs an FTS5 full-text search and returns matching images with snippets.
func (db *DB) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 20
	}
	expr := matchExpr(query)
	if expr == "" {
		return []Hit{}, nil
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT i.id, i.filename, i.title, i.category, i.collection, i.sort_order, i.is_hero,
		       snippet(images_fts, 2, '<b>', '</b>', '...', 32)
		FROM images_fts
		JOIN images i ON i.seq = images_fts.seq
		WHERE images_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, expr, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return scanHits(rows)
}
