package compiler

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"cuelang.org/go/cue/token"

	"github.com/roach88/firanno/internal/ir"
)

// Record is one annotation as written in an annotation file:
//
//	{"class": "firrtl.stage.RunFirrtlTransformAnnotation", "transform": "firrtl.transforms.Foo"}
//
// Class and Target are lifted out; every other field is a variant parameter.
type Record struct {
	Class  string
	Target string
	Fields map[string]string

	// Index is the position of the record within its file, starting at 0.
	Index int

	// Pos is the source position for CUE input; invalid for JSON and YAML.
	Pos token.Pos
}

// Map returns the record as a flat annotation file object.
func (r Record) Map() map[string]string {
	m := make(map[string]string, len(r.Fields)+2)
	for k, v := range r.Fields {
		m[k] = v
	}
	m["class"] = r.Class
	if r.Target != "" {
		m["target"] = r.Target
	}
	return m
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Code    string
	Message string
	Index   int
	Pos     token.Pos
	Err     error
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("annotation[%d]: %s: %s", e.Index, e.Field, e.Message)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// ErrUnknownClassName is wrapped by the CompileError for an unresolvable class.
var ErrUnknownClassName = errors.New("unknown annotation class")

// Options controls CompileRecords.
type Options struct {
	// FailFast stops at the first error instead of collecting all of them.
	FailFast bool

	// AllowUnknown skips records whose class is not registered, logging a warning.
	AllowUnknown bool

	// TargetRules extends or overrides the target rules of the built-in kinds.
	TargetRules map[ir.Kind]TargetRule

	// Logger receives warnings for skipped records. Nil discards them.
	Logger *slog.Logger
}

func (o Options) targetRule(kind ir.Kind) TargetRule {
	if rule, ok := o.TargetRules[kind]; ok {
		return rule
	}
	return builtinTargetRules[kind]
}

// CompileRecord resolves rec's class, checks its fields and target, and
// interns it in ctx through the construction API.
func CompileRecord(ctx *ir.Context, rec Record) (ir.Targeted, error) {
	return compileRecord(ctx, rec, Options{})
}

func compileRecord(ctx *ir.Context, rec Record, opts Options) (ir.Targeted, error) {
	fail := func(field, code, msg string, err error) (ir.Targeted, error) {
		return ir.Targeted{}, &CompileError{
			Field:   field,
			Code:    code,
			Message: msg,
			Index:   rec.Index,
			Pos:     rec.Pos,
			Err:     err,
		}
	}

	if rec.Class == "" {
		return fail("class", ErrClassMissing, "class is required", nil)
	}
	kind, ok := ctx.LookupClass(rec.Class)
	if !ok {
		return fail("class", ErrUnknownClass, fmt.Sprintf("unknown annotation class %q", rec.Class), ErrUnknownClassName)
	}
	variant, _ := ctx.Variant(kind)

	// Sorted so the reported field is stable.
	fieldNames := make([]string, 0, len(rec.Fields))
	for name := range rec.Fields {
		fieldNames = append(fieldNames, name)
	}
	slices.Sort(fieldNames)
	for _, name := range fieldNames {
		if !slices.Contains(variant.Params, name) {
			return fail(name, ErrUnknownField, fmt.Sprintf("field %q is not a parameter of %s", name, rec.Class), nil)
		}
	}

	params := make([]string, len(variant.Params))
	for i, name := range variant.Params {
		value, ok := rec.Fields[name]
		if !ok {
			return fail(name, ErrMissingParameter, fmt.Sprintf("%s requires %q", rec.Class, name), nil)
		}
		params[i] = value
	}

	if verr := checkTarget(opts.targetRule(kind), kind, rec.Target); verr != nil {
		return fail(verr.Field, verr.Code, verr.Message, nil)
	}

	ann, err := ctx.Make(kind, params...)
	if err != nil {
		return fail("params", ErrMalformed, err.Error(), err)
	}
	return ir.Targeted{Target: rec.Target, Annotation: ann}, nil
}

// CompileRecords compiles every record, collecting errors unless
// opts.FailFast is set. Compiled annotations keep the order of records.
func CompileRecords(ctx *ir.Context, records []Record, opts Options) ([]ir.Targeted, []error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var out []ir.Targeted
	var errs []error
	for _, rec := range records {
		t, err := compileRecord(ctx, rec, opts)
		if err != nil {
			if opts.AllowUnknown && errors.Is(err, ErrUnknownClassName) {
				logger.Warn("skipping annotation with unknown class",
					"class", rec.Class,
					"index", rec.Index,
				)
				continue
			}
			errs = append(errs, err)
			if opts.FailFast {
				return out, errs
			}
			continue
		}
		out = append(out, t)
	}
	return out, errs
}

// ToRecord converts a compiled annotation back to its file form, using the
// fully qualified class name and the variant's parameter names.
func ToRecord(ctx *ir.Context, t ir.Targeted) (Record, error) {
	kind := t.Annotation.Kind()
	variant, ok := ctx.Variant(kind)
	if !ok {
		return Record{}, fmt.Errorf("to record: kind %q is not registered", kind)
	}
	params := t.Annotation.Params()
	if len(params) != variant.Arity() {
		return Record{}, fmt.Errorf("to record: %s has %d parameter(s), variant declares %d", kind, len(params), variant.Arity())
	}

	rec := Record{
		Class:  variant.Class(),
		Target: t.Target,
	}
	if len(params) > 0 {
		rec.Fields = make(map[string]string, len(params))
		for i, name := range variant.Params {
			rec.Fields[name] = params[i]
		}
	}
	return rec, nil
}
