package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"

	"github.com/roach88/firanno/internal/ir"
)

// DecodeCUE extracts records from the "annotations" list of a CUE value:
//
//	annotations: [
//		{class: "firrtl.passes.InlineAnnotation", target: "~Top|Foo"},
//		{class: "firrtl.stage.RunFirrtlTransformAnnotation", transform: "firrtl.transforms.Foo"},
//	]
//
// Every field must be a concrete string. Records carry their CUE position.
func DecodeCUE(v cue.Value) ([]Record, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	list := v.LookupPath(cue.ParsePath("annotations"))
	if !list.Exists() {
		return nil, &CompileError{
			Field:   "annotations",
			Code:    ErrDecode,
			Message: "annotations list is required",
			Index:   -1,
			Pos:     v.Pos(),
		}
	}

	iter, err := list.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var records []Record
	for i := 0; iter.Next(); i++ {
		rec, err := recordFromCUE(i, iter.Value())
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// CompileCUE decodes and compiles the annotations of a CUE value.
func CompileCUE(ctx *ir.Context, v cue.Value, opts Options) ([]ir.Targeted, []error) {
	records, err := DecodeCUE(v)
	if err != nil {
		return nil, []error{err}
	}
	return CompileRecords(ctx, records, opts)
}

func recordFromCUE(index int, v cue.Value) (Record, error) {
	rec := Record{Index: index, Pos: v.Pos()}

	fields, err := v.Fields()
	if err != nil {
		return Record{}, formatCUEError(err)
	}
	for fields.Next() {
		label := fields.Label()
		s, err := fields.Value().String()
		if err != nil {
			return Record{}, &CompileError{
				Field:   label,
				Code:    ErrFieldNotString,
				Message: fmt.Sprintf("field %q must be a concrete string", label),
				Index:   index,
				Pos:     fields.Value().Pos(),
				Err:     err,
			}
		}
		switch label {
		case "class":
			rec.Class = s
		case "target":
			rec.Target = s
		default:
			if rec.Fields == nil {
				rec.Fields = make(map[string]string)
			}
			rec.Fields[label] = s
		}
	}
	return rec, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Code:    ErrDecode,
			Message: firstErr.Error(),
			Index:   -1,
			Pos:     positions[0],
			Err:     err,
		}
	}

	return err
}
