package compiler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// DecodeJSON reads a FIRRTL annotation file: a JSON array of objects, each
// with a "class", an optional "target", and string parameters. Empty input
// holds no annotations; anything after the array is an error.
func DecodeJSON(r io.Reader) ([]Record, error) {
	var raw []map[string]any
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, decodeError("json", err)
	}
	if tok, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err == nil {
			err = fmt.Errorf("unexpected %v after the annotation array", tok)
		}
		return nil, decodeError("json", err)
	}
	return recordsFromMaps(raw)
}

// DecodeYAML reads the YAML form of an annotation file: a sequence of
// mappings shaped like the JSON objects.
func DecodeYAML(r io.Reader) ([]Record, error) {
	var raw []map[string]any
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, decodeError("yaml", err)
	}
	return recordsFromMaps(raw)
}

// EncodeJSON writes records in the format DecodeJSON reads.
// Keys are sorted and HTML characters are not escaped.
func EncodeJSON(w io.Writer, records []Record) error {
	out := make([]map[string]string, len(records))
	for i, rec := range records {
		out[i] = rec.Map()
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func decodeError(format string, err error) error {
	return &CompileError{
		Field:   format,
		Code:    ErrDecode,
		Message: fmt.Sprintf("decoding %s annotations: %v", format, err),
		Index:   -1,
		Err:     err,
	}
}

func recordsFromMaps(raw []map[string]any) ([]Record, error) {
	records := make([]Record, 0, len(raw))
	for i, m := range raw {
		rec, err := recordFromMap(i, m)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func recordFromMap(index int, m map[string]any) (Record, error) {
	rec := Record{Index: index}
	for k, v := range m {
		s, ok := v.(string)
		if !ok {
			return Record{}, &CompileError{
				Field:   k,
				Code:    ErrFieldNotString,
				Message: fmt.Sprintf("field %q must be a string, got %T", k, v),
				Index:   index,
			}
		}
		switch k {
		case "class":
			rec.Class = s
		case "target":
			rec.Target = s
		default:
			if rec.Fields == nil {
				rec.Fields = make(map[string]string)
			}
			rec.Fields[k] = s
		}
	}
	return rec, nil
}
