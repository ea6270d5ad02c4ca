package compiler

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/firanno/internal/ir"
)

// ErrUnsupportedFormat is the CompileError code for an unknown file extension.
const ErrUnsupportedFormat = "E211"

// SupportedExtensions lists the annotation file extensions DecodeFile reads.
var SupportedExtensions = []string{".json", ".yaml", ".yml", ".cue"}

// IsAnnotationFile reports whether path has a supported extension.
func IsAnnotationFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SupportedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// DecodeFile reads an annotation file, choosing the decoder by extension.
// CUE records carry positions naming path.
func DecodeFile(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read annotation file: %w", err)
	}
	return DecodeBytes(path, data)
}

// DecodeBytes decodes data as the annotation format implied by name.
func DecodeBytes(name string, data []byte) ([]Record, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return DecodeJSON(bytes.NewReader(data))
	case ".yaml", ".yml":
		return DecodeYAML(bytes.NewReader(data))
	case ".cue":
		v := cuecontext.New().CompileBytes(data, cue.Filename(name))
		return DecodeCUE(v)
	default:
		return nil, &CompileError{
			Field:   "file",
			Code:    ErrUnsupportedFormat,
			Message: fmt.Sprintf("unsupported annotation file %q (want one of %v)", name, SupportedExtensions),
			Index:   -1,
		}
	}
}

// CompileFile decodes and compiles an annotation file into ctx.
func CompileFile(ctx *ir.Context, path string, opts Options) ([]ir.Targeted, []error) {
	records, err := DecodeFile(path)
	if err != nil {
		return nil, []error{err}
	}
	return CompileRecords(ctx, records, opts)
}
