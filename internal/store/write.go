package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/firanno/internal/ir"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// WriteAnnotation persists an interned annotation.
// Uses INSERT ... ON CONFLICT DO NOTHING: a content-equal annotation written
// by any earlier run keeps its original row and seq.
func (s *Store) WriteAnnotation(ctx context.Context, ann ir.Annotation) error {
	return writeAnnotation(ctx, s.db, ann)
}

func writeAnnotation(ctx context.Context, db execer, ann ir.Annotation) error {
	if !ann.IsValid() {
		return fmt.Errorf("write annotation: invalid handle")
	}
	id, err := ir.AnnotationID(ann.Key())
	if err != nil {
		return fmt.Errorf("write annotation: %w", err)
	}
	params, err := marshalParams(ann.Params())
	if err != nil {
		return fmt.Errorf("write annotation %s: %w", ann, err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO annotations (id, kind, params, seq)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, string(ann.Kind()), params, ann.Storage().Seq())
	if err != nil {
		return fmt.Errorf("write annotation %s: %w", ann, err)
	}
	return nil
}

// WriteTargeted atomically persists a batch of targeted annotations under
// contextID. Every annotation row is written first, then one attachment row
// per item, numbered after the context's existing attachments.
// Repeated (target, annotation) pairs within a context are stored once.
func (s *Store) WriteTargeted(ctx context.Context, contextID string, items []ir.Targeted) error {
	if contextID == "" {
		return fmt.Errorf("write targeted: empty context id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var lastSeq int64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM attachments WHERE context_id = ?`,
		contextID,
	).Scan(&lastSeq)
	if err != nil {
		return fmt.Errorf("query last attachment seq: %w", err)
	}

	for _, item := range items {
		if err := writeAnnotation(ctx, tx, item.Annotation); err != nil {
			return err
		}
	}

	for _, item := range items {
		id, err := ir.AnnotationID(item.Annotation.Key())
		if err != nil {
			return fmt.Errorf("write attachment %s: %w", item.Annotation, err)
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO attachments (context_id, target, annotation_id, seq)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(context_id, target, annotation_id) DO NOTHING
		`, contextID, item.Target, id, lastSeq+1)
		if err != nil {
			return fmt.Errorf("write attachment %s -> %q: %w", item.Annotation, item.Target, err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			lastSeq++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// WriteContext persists every storage interned in ictx, in creation order.
func (s *Store) WriteContext(ctx context.Context, ictx *ir.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, ann := range ictx.Annotations() {
		if err := writeAnnotation(ctx, tx, ann); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
