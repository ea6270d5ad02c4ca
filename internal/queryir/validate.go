package queryir

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationResult lists every problem found in a query.
type ValidationResult struct {
	// IsValid is true when Errors is empty.
	IsValid bool

	// Errors describes each problem, in traversal order.
	Errors []string
}

// Err returns the problems as one error, or nil for a valid query.
func (r ValidationResult) Err() error {
	if r.IsValid {
		return nil
	}
	return errors.New("invalid query: " + strings.Join(r.Errors, "; "))
}

// Validate checks that a query only uses fields its source has and that
// every predicate is well formed.
//
// Rules:
//  1. Annotations may filter on id and kind only
//  2. Targeted may additionally filter on context and target
//  3. Prefix values must be non-empty
//  4. Limit must be non-negative
//
// Validate is a pure function with no side effects.
func Validate(query Query) ValidationResult {
	v := &validator{errors: []string{}}
	v.validateQuery(query)

	return ValidationResult{
		IsValid: len(v.errors) == 0,
		Errors:  v.errors,
	}
}

// validator accumulates errors during traversal.
type validator struct {
	errors   []string
	targeted bool
}

func (v *validator) addError(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case nil:
		v.addError("nil query")
	case Annotations:
		v.validatePredicate(query.Filter)
	case *Annotations:
		v.validatePredicate(query.Filter)
	case Targeted:
		v.validateTargeted(query)
	case *Targeted:
		v.validateTargeted(*query)
	default:
		v.addError("unknown query type %T", q)
	}
}

func (v *validator) validateTargeted(t Targeted) {
	v.targeted = true
	if t.Limit < 0 {
		v.addError("limit must be non-negative, got %d", t.Limit)
	}
	v.validatePredicate(t.Filter)
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case nil:
		// no filter
	case Equals:
		v.validateField(pred.Field)
	case *Equals:
		v.validateField(pred.Field)
	case Prefix:
		v.validatePrefix(pred)
	case *Prefix:
		v.validatePrefix(*pred)
	case And:
		v.validateAnd(pred)
	case *And:
		v.validateAnd(*pred)
	default:
		v.addError("unknown predicate type %T", p)
	}
}

func (v *validator) validatePrefix(p Prefix) {
	v.validateField(p.Field)
	if p.Value == "" {
		v.addError("prefix on %s must not be empty", p.Field)
	}
}

func (v *validator) validateAnd(and And) {
	for _, sub := range and.Predicates {
		v.validatePredicate(sub)
	}
}

func (v *validator) validateField(f Field) {
	if annotationFields[f] {
		return
	}
	if f == FieldContext || f == FieldTarget {
		if !v.targeted {
			v.addError("field %q is only available on targeted queries", f)
		}
		return
	}
	v.addError("unknown field %q", f)
}
