package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/firanno/internal/queryir"
)

// SQLCompiler compiles queryir queries to parameterized SQL for the store
// schema (annotations table aliased n, attachments table aliased a).
//
// Every query includes ORDER BY with a COLLATE BINARY tiebreaker, and every
// value is passed as a parameter, never interpolated.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Column lists, in scan order.
const (
	annotationColumns = "n.id, n.kind, n.params, n.seq"
	targetedColumns   = "a.context_id, a.target, n.id, n.kind, n.params, a.seq"
)

var columns = map[queryir.Field]string{
	queryir.FieldID:      "n.id",
	queryir.FieldKind:    "n.kind",
	queryir.FieldContext: "a.context_id",
	queryir.FieldTarget:  "a.target",
}

// Compile validates q and converts it to SQL.
// Returns (sql, params, error).
//
// Annotations rows scan as (id, kind, params, seq); Targeted rows scan as
// (context_id, target, id, kind, params, seq).
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if err := queryir.Validate(q).Err(); err != nil {
		return "", nil, err
	}

	switch query := q.(type) {
	case queryir.Annotations:
		return c.compileAnnotations(query)
	case *queryir.Annotations:
		return c.compileAnnotations(*query)
	case queryir.Targeted:
		return c.compileTargeted(query)
	case *queryir.Targeted:
		return c.compileTargeted(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

func (c *SQLCompiler) compileAnnotations(q queryir.Annotations) (string, []any, error) {
	where, params, err := c.compileWhere(q.Filter)
	if err != nil {
		return "", nil, err
	}
	sql := "SELECT " + annotationColumns +
		" FROM annotations n" +
		where +
		" ORDER BY n.seq ASC, n.id ASC COLLATE BINARY"
	return sql, params, nil
}

func (c *SQLCompiler) compileTargeted(q queryir.Targeted) (string, []any, error) {
	where, params, err := c.compileWhere(q.Filter)
	if err != nil {
		return "", nil, err
	}
	sql := "SELECT " + targetedColumns +
		" FROM attachments a INNER JOIN annotations n ON n.id = a.annotation_id" +
		where +
		" ORDER BY a.context_id ASC COLLATE BINARY, a.seq ASC, n.id ASC COLLATE BINARY"
	if q.Limit > 0 {
		sql += " LIMIT ?"
		params = append(params, q.Limit)
	}
	return sql, params, nil
}

func (c *SQLCompiler) compileWhere(p queryir.Predicate) (string, []any, error) {
	if p == nil {
		return "", nil, nil
	}
	sql, params, err := c.compilePredicate(p)
	if err != nil {
		return "", nil, fmt.Errorf("compile filter: %w", err)
	}
	return " WHERE " + sql, params, nil
}

// compilePredicate compiles a predicate to a WHERE clause fragment.
func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case queryir.Equals:
		return c.compileEquals(pred)
	case *queryir.Equals:
		return c.compileEquals(*pred)
	case queryir.Prefix:
		return c.compilePrefix(pred)
	case *queryir.Prefix:
		return c.compilePrefix(*pred)
	case queryir.And:
		return c.compileAnd(pred)
	case *queryir.And:
		return c.compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (c *SQLCompiler) compileEquals(eq queryir.Equals) (string, []any, error) {
	col, err := column(eq.Field)
	if err != nil {
		return "", nil, err
	}
	return col + " = ?", []any{eq.Value}, nil
}

// compilePrefix uses instr rather than LIKE so that % and _ in targets need
// no escaping; instr counts characters, and position 1 is a prefix either way.
func (c *SQLCompiler) compilePrefix(p queryir.Prefix) (string, []any, error) {
	col, err := column(p.Field)
	if err != nil {
		return "", nil, err
	}
	return "instr(" + col + ", ?) = 1", []any{p.Value}, nil
}

func (c *SQLCompiler) compileAnd(and queryir.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil // vacuous truth
	}

	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, pred := range and.Predicates {
		sql, p, err := c.compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, p...)
	}
	return "(" + strings.Join(parts, " AND ") + ")", params, nil
}

func column(f queryir.Field) (string, error) {
	col, ok := columns[f]
	if !ok {
		return "", fmt.Errorf("unknown field %q", f)
	}
	return col, nil
}
