package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/firanno/internal/ir"
)

// marshalParams encodes annotation parameters as a canonical JSON array.
func marshalParams(params []string) (string, error) {
	if params == nil {
		params = []string{}
	}
	data, err := ir.MarshalCanonical(params)
	if err != nil {
		return "", fmt.Errorf("marshal params: %w", err)
	}
	return string(data), nil
}

// unmarshalParams decodes a JSON array of strings written by marshalParams.
// An empty array yields a nil slice, matching keys of nullary variants.
func unmarshalParams(s string) ([]string, error) {
	var params []string
	if err := json.Unmarshal([]byte(s), &params); err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}
	if len(params) == 0 {
		return nil, nil
	}
	return params, nil
}
