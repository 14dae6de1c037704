package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/perstore/internal/quad"
)

// Write stores quads in one transaction.
// Uses ON CONFLICT DO NOTHING, so quads already stored are skipped.
func (b *Backend) Write(ctx context.Context, quads []quad.Quad) error {
	return b.inTx(ctx, "write quads", func(tx *sql.Tx) error {
		return insertQuads(ctx, tx, quads)
	})
}

// Delete removes quads in one transaction; missing quads are ignored.
func (b *Backend) Delete(ctx context.Context, quads []quad.Quad) error {
	return b.inTx(ctx, "delete quads", func(tx *sql.Tx) error {
		return deleteQuads(ctx, tx, quads)
	})
}

// Apply removes and adds quads in a single transaction.
func (b *Backend) Apply(ctx context.Context, remove, add []quad.Quad) error {
	return b.inTx(ctx, "apply delta", func(tx *sql.Tx) error {
		if err := deleteQuads(ctx, tx, remove); err != nil {
			return err
		}
		return insertQuads(ctx, tx, add)
	})
}

func (b *Backend) inTx(ctx context.Context, op string, fn func(*sql.Tx) error) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	return nil
}

func insertQuads(ctx context.Context, tx *sql.Tx, quads []quad.Quad) error {
	if len(quads) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO quads (subject, predicate, object, has_label, label)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, q := range quads {
		hasLabel, label := labelColumns(q)
		if _, err := stmt.ExecContext(ctx, q.Subject, q.Predicate, q.Object, hasLabel, label); err != nil {
			return fmt.Errorf("insert %s: %w", q, err)
		}
	}
	return nil
}

func deleteQuads(ctx context.Context, tx *sql.Tx, quads []quad.Quad) error {
	if len(quads) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		DELETE FROM quads
		WHERE subject = ? AND predicate = ? AND object = ? AND has_label = ? AND label = ?
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, q := range quads {
		hasLabel, label := labelColumns(q)
		if _, err := stmt.ExecContext(ctx, q.Subject, q.Predicate, q.Object, hasLabel, label); err != nil {
			return fmt.Errorf("delete %s: %w", q, err)
		}
	}
	return nil
}

func labelColumns(q quad.Quad) (int, string) {
	if q.Label == nil {
		return 0, ""
	}
	return 1, *q.Label
}

// Quads returns every stored quad in insertion order.
func (b *Backend) Quads(ctx context.Context) ([]quad.Quad, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT subject, predicate, object, has_label, label
		FROM quads
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query quads: %w", err)
	}
	defer rows.Close()

	quads := []quad.Quad{}
	for rows.Next() {
		var q quad.Quad
		var hasLabel int
		var label string
		if err := rows.Scan(&q.Subject, &q.Predicate, &q.Object, &hasLabel, &label); err != nil {
			return nil, fmt.Errorf("scan quad: %w", err)
		}
		if hasLabel == 1 {
			q.Label = quad.Label(label)
		}
		quads = append(quads, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quads: %w", err)
	}
	return quads, nil
}
