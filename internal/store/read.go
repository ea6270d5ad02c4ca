package store

import (
	"context"
	"fmt"

	"github.com/roach88/firanno/internal/ir"
)

// AnnotationRow is one persisted annotation.
type AnnotationRow struct {
	ID     string
	Kind   ir.Kind
	Params []string
	Seq    int64
}

// AttachmentRow is one persisted (target, annotation) pair.
type AttachmentRow struct {
	ContextID    string
	Target       string
	AnnotationID string
	Seq          int64
}

// ReadAnnotations returns every stored annotation.
// Ordered by seq ASC, id ASC COLLATE BINARY for deterministic results.
func (s *Store) ReadAnnotations(ctx context.Context) ([]AnnotationRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, params, seq
		FROM annotations
		ORDER BY seq ASC, id ASC COLLATE BINARY
	`)
	if err != nil {
		return nil, fmt.Errorf("query annotations: %w", err)
	}
	defer rows.Close()

	var result []AnnotationRow
	for rows.Next() {
		row, err := scanAnnotation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate annotations: %w", err)
	}
	return result, nil
}

// ReadAttachments returns the attachments of one context in write order.
func (s *Store) ReadAttachments(ctx context.Context, contextID string) ([]AttachmentRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT context_id, target, annotation_id, seq
		FROM attachments
		WHERE context_id = ?
		ORDER BY seq ASC, annotation_id ASC COLLATE BINARY
	`, contextID)
	if err != nil {
		return nil, fmt.Errorf("query attachments: %w", err)
	}
	defer rows.Close()

	var result []AttachmentRow
	for rows.Next() {
		var row AttachmentRow
		if err := rows.Scan(&row.ContextID, &row.Target, &row.AnnotationID, &row.Seq); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attachments: %w", err)
	}
	return result, nil
}

// ListContexts returns the IDs of every context with stored attachments.
// Sorted with COLLATE BINARY; UUIDv7 IDs therefore come out in creation order.
func (s *Store) ListContexts(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT context_id
		FROM attachments
		ORDER BY context_id ASC COLLATE BINARY
	`)
	if err != nil {
		return nil, fmt.Errorf("query contexts: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan context id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contexts: %w", err)
	}
	return ids, nil
}

// GetLastSeq returns the highest annotation seq in the store, or 0 if empty.
// A context loading from the store starts its clock after this value.
func (s *Store) GetLastSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM annotations`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("query last seq: %w", err)
	}
	return seq, nil
}

// CountAnnotations returns the number of stored annotations.
func (s *Store) CountAnnotations(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM annotations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count annotations: %w", err)
	}
	return n, nil
}
