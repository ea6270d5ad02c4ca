package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"cuelang.org/go/cue/token"

	"github.com/roach88/firanno/internal/compiler"
	"github.com/roach88/firanno/internal/ir"
)

// LoadMode controls how errors are handled during annotation loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadOptions controls LoadAnnotations.
type LoadOptions struct {
	Mode         LoadMode
	AllowUnknown bool
	Logger       *slog.Logger
}

// LoadResult contains the annotations compiled from a file or directory.
type LoadResult struct {
	Annotations []ir.Targeted
	Files       []string
}

// LoadError represents an error that occurred during annotation loading.
type LoadError struct {
	Code    string
	Message string
	File    string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("%s: %s: %s", e.File, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants - unified across all CLI commands.
// Annotation compile errors keep their compiler codes (E2xx).
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No annotation files found
	ErrCodeLoadFailed  = "E004" // File could not be read
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeStore       = "E006" // Database error
	ErrCodeWriteFailed = "E007" // File write error
)

// LoadAnnotations compiles the annotation file at path, or every annotation
// file under path if it is a directory, into ctx.
// The result is nil only when nothing could be read.
func LoadAnnotations(ctx *ir.Context, path string, opts LoadOptions) (*LoadResult, []error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("path not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing %s: %v", path, err)}}
	}

	files := []string{path}
	if info.IsDir() {
		files, err = FindAnnotationFiles(path)
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
		}
		if len(files) == 0 {
			return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no annotation files found in %s", path)}}
		}
	}

	compileOpts := compiler.Options{
		FailFast:     opts.Mode == LoadModeFailFast,
		AllowUnknown: opts.AllowUnknown,
		Logger:       opts.Logger,
	}

	result := &LoadResult{Files: files}
	var errs []error
	for _, file := range files {
		records, err := compiler.DecodeFile(file)
		if err != nil {
			errs = append(errs, convertCompileError(err, file))
			if opts.Mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}

		out, compileErrs := compiler.CompileRecords(ctx, records, compileOpts)
		result.Annotations = append(result.Annotations, out...)
		for _, cerr := range compileErrs {
			errs = append(errs, convertCompileError(cerr, file))
		}
		if len(compileErrs) > 0 && opts.Mode == LoadModeFailFast {
			return result, errs
		}
	}

	return result, errs
}

// FindAnnotationFiles walks the directory and returns every annotation file,
// in lexical order.
func FindAnnotationFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && compiler.IsAnnotationFile(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, file string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		msg := compileErr.Message
		if !compileErr.Pos.IsValid() && compileErr.Index >= 0 {
			msg = fmt.Sprintf("annotation[%d]: %s: %s", compileErr.Index, compileErr.Field, compileErr.Message)
		}
		return &LoadError{
			Code:    compileErr.Code,
			Message: msg,
			File:    file,
			Pos:     compileErr.Pos,
		}
	}
	if errors.Is(err, fs.ErrNotExist) {
		return &LoadError{Code: ErrCodeNotFound, Message: err.Error(), File: file}
	}
	return &LoadError{
		Code:    ErrCodeLoadFailed,
		Message: err.Error(),
		File:    file,
	}
}

// loadErrorCode returns the code of err if it is a LoadError.
func loadErrorCode(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	return ErrCodeGeneric
}
