package store

import (
	"context"
	"fmt"

	"github.com/roach88/firanno/internal/ir"
	"github.com/roach88/firanno/internal/queryir"
)

// IntegrityError reports a stored row whose ID no longer matches its content.
type IntegrityError struct {
	StoredID   string
	ComputedID string
	Key        ir.Key
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("annotation %s: stored id %s does not match computed id %s", e.Key, e.StoredID, e.ComputedID)
}

// Load re-interns every stored annotation into ictx through the validating
// construction API, in stored order. Content-equal rows come back as the
// same handle; an annotation already interned in ictx is reused.
func (s *Store) Load(ctx context.Context, ictx *ir.Context) ([]ir.Annotation, error) {
	rows, err := s.ReadAnnotations(ctx)
	if err != nil {
		return nil, err
	}

	anns := make([]ir.Annotation, 0, len(rows))
	for _, row := range rows {
		ann, err := remake(ictx, row)
		if err != nil {
			return nil, err
		}
		anns = append(anns, ann)
	}
	return anns, nil
}

// LoadTargeted rebuilds the targeted annotations written under contextID,
// in attachment order. Only the annotations that context references are
// interned into ictx.
func (s *Store) LoadTargeted(ctx context.Context, ictx *ir.Context, contextID string) ([]ir.Targeted, error) {
	rows, err := s.QueryTargeted(ctx, ictx, queryir.Targeted{
		Filter: queryir.Equals{Field: queryir.FieldContext, Value: contextID},
	})
	if err != nil {
		return nil, fmt.Errorf("load context %q: %w", contextID, err)
	}
	out := make([]ir.Targeted, len(rows))
	for i, row := range rows {
		out[i] = row.Targeted
	}
	return out, nil
}

// remake interns row into ictx and checks that its content still hashes to
// the stored ID.
func remake(ictx *ir.Context, row AnnotationRow) (ir.Annotation, error) {
	ann, err := ictx.Make(row.Kind, row.Params...)
	if err != nil {
		return ir.Annotation{}, fmt.Errorf("load annotation %s: %w", row.ID, err)
	}
	if id := ann.ID(); id != row.ID {
		return ir.Annotation{}, &IntegrityError{StoredID: row.ID, ComputedID: id, Key: ann.Key()}
	}
	return ann, nil
}
