package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/firanno/internal/ir"
	"github.com/roach88/firanno/internal/queryir"
	"github.com/roach88/firanno/internal/querysql"
)

// ContextTargeted is a targeted annotation together with the context that
// attached it.
type ContextTargeted struct {
	ContextID string
	ir.Targeted
}

// QueryAnnotations re-interns the stored annotations matching filter into
// ictx, in seq order. A nil filter matches every annotation.
func (s *Store) QueryAnnotations(ctx context.Context, ictx *ir.Context, filter queryir.Predicate) ([]ir.Annotation, error) {
	rows, err := s.query(ctx, queryir.Annotations{Filter: filter})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ir.Annotation
	for rows.Next() {
		row, err := scanAnnotation(rows)
		if err != nil {
			return nil, err
		}
		ann, err := remake(ictx, row)
		if err != nil {
			return nil, err
		}
		out = append(out, ann)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate query: %w", err)
	}
	return out, nil
}

// QueryTargeted runs q and re-interns the annotation of every matching
// attachment into ictx. Results are grouped by context, in write order.
func (s *Store) QueryTargeted(ctx context.Context, ictx *ir.Context, q queryir.Targeted) ([]ContextTargeted, error) {
	rows, err := s.query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ContextTargeted
	for rows.Next() {
		var contextID, target string
		var row AnnotationRow
		var kind, params string
		if err := rows.Scan(&contextID, &target, &row.ID, &kind, &params, &row.Seq); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		row.Kind = ir.Kind(kind)
		if row.Params, err = unmarshalParams(params); err != nil {
			return nil, fmt.Errorf("annotation %s: %w", row.ID, err)
		}
		ann, err := remake(ictx, row)
		if err != nil {
			return nil, err
		}
		out = append(out, ContextTargeted{
			ContextID: contextID,
			Targeted:  ir.Targeted{Target: target, Annotation: ann},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate query: %w", err)
	}
	return out, nil
}

func (s *Store) query(ctx context.Context, q queryir.Query) (*sql.Rows, error) {
	stmt, params, err := querysql.NewSQLCompiler().Compile(q)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, stmt, params...)
	if err != nil {
		return nil, fmt.Errorf("run query: %w", err)
	}
	return rows, nil
}

func scanAnnotation(rows *sql.Rows) (AnnotationRow, error) {
	var row AnnotationRow
	var kind, params string
	if err := rows.Scan(&row.ID, &kind, &params, &row.Seq); err != nil {
		return AnnotationRow{}, fmt.Errorf("scan annotation: %w", err)
	}
	row.Kind = ir.Kind(kind)
	var err error
	if row.Params, err = unmarshalParams(params); err != nil {
		return AnnotationRow{}, fmt.Errorf("annotation %s: %w", row.ID, err)
	}
	return row, nil
}
