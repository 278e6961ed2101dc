package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/folio/internal/catalog"
)

const checksumKey = "catalog_checksum"

// ImageRow is one indexed image. Seq is the image's position in the catalog.
type ImageRow struct {
	Seq         int
	ID          string
	Filename    string
	Title       string
	Description string
	Category    string
	Collection  string
	Order       int
	IsHero      bool
}

// Hit is one search result.
type Hit struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	Title      string `json:"title"`
	Category   string `json:"category"`
	Collection string `json:"collection"`
	Order      int    `json:"order"`
	IsHero     bool   `json:"isHero"`
	Snippet    string `json:"snippet"`
}

// RowsFrom converts catalog images into index rows.
func RowsFrom(images []catalog.Image) []ImageRow {
	rows := make([]ImageRow, len(images))
	for i, img := range images {
		rows[i] = ImageRow{
			Seq:         i,
			ID:          img.ID,
			Filename:    img.Filename,
			Title:       img.Title,
			Description: img.Description,
			Category:    img.Category,
			Collection:  img.Collection,
			Order:       img.Order,
			IsHero:      img.IsHero,
		}
	}
	return rows
}

// Rebuild replaces every indexed row and records sum as the checksum of the
// catalog the rows came from, all in one transaction.
func (db *DB) Rebuild(ctx context.Context, rows []ImageRow, sum string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.ExecContext(ctx, `DELETE FROM images`); err != nil {
		return fmt.Errorf("index: clear images: %w", err)
	}
	if err := ftsClear(ctx, tx); err != nil {
		return err
	}

	if len(rows) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO images (seq, id, filename, title, description, category, collection, sort_order, is_hero)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("index: prepare insert: %w", err)
		}
		defer stmt.Close()
		for _, r := range rows {
			if _, err := stmt.ExecContext(ctx, r.Seq, r.ID, r.Filename, r.Title, r.Description,
				r.Category, r.Collection, r.Order, r.IsHero); err != nil {
				return fmt.Errorf("index: insert image %s: %w", r.ID, err)
			}
			if err := ftsInsert(ctx, tx, r); err != nil {
				return err
			}
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO index_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, checksumKey, sum); err != nil {
		return fmt.Errorf("index: store checksum: %w", err)
	}

	return tx.Commit()
}

// Checksum returns the checksum recorded by the last Rebuild, or "" if the
// index has never been built.
func (db *DB) Checksum(ctx context.Context) (string, error) {
	var cs string
	err := db.conn.QueryRowContext(ctx, `SELECT value FROM index_state WHERE key = ?`, checksumKey).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: checksum: %w", err)
	}
	return cs, nil
}

// Count returns the number of indexed images.
func (db *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT count(*) FROM images`).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count: %w", err)
	}
	return n, nil
}

func scanHits(rows *sql.Rows) ([]Hit, error) {
	defer rows.Close()
	out := []Hit{}
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.ID, &h.Filename, &h.Title, &h.Category, &h.Collection, &h.Order, &h.IsHero, &h.Snippet); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
