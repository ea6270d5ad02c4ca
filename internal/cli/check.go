package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/roach88/firanno/internal/compiler"
	"github.com/roach88/firanno/internal/ir"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Watch        bool
	AllowUnknown bool
}

// CheckIssue is one problem found by check.
type CheckIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// CheckResult holds check results.
type CheckResult struct {
	Valid       bool           `json:"valid"`
	Files       int            `json:"files"`
	Annotations int            `json:"annotations"`
	Storages    int            `json:"storages"`
	Kinds       map[string]int `json:"kinds,omitempty"`
	Errors      []CheckIssue   `json:"errors,omitempty"`
}

// watchDebounce coalesces the burst of events an editor save produces.
const watchDebounce = 100 * time.Millisecond

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <file-or-dir>",
		Short: "Check annotation files",
		Long: `Decode and compile annotation files (JSON, YAML or CUE) into a fresh
context without storing anything. Reports every malformed annotation
with its file position, and how many distinct storages the valid ones share.

Exit codes:
  0 - All annotations valid
  1 - One or more annotations invalid
  2 - Command error (path not found, etc.)

Examples:
  firanno check annos.json
  firanno check ./annotations --allow-unknown
  firanno check annos.cue --watch`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Watch {
				return runWatch(cmd.Context(), opts, args[0], cmd)
			}
			return runCheck(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "re-check whenever an annotation file changes")
	cmd.Flags().BoolVar(&opts.AllowUnknown, "allow-unknown", false, "skip annotations with unknown classes instead of failing")

	return cmd
}

func runCheck(opts *CheckOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	result, err := checkPath(opts, path)
	if err != nil {
		code := loadErrorCode(err)
		_ = formatter.Error(code, err.Error(), nil)
		return WrapExitError(ExitCommandError, code, err)
	}

	formatter.VerboseLog("Checked %d file(s) in %s", result.Files, path)
	return outputCheckResult(formatter, result)
}

// checkPath compiles path into a fresh context. The error is non-nil only
// when nothing could be read.
func checkPath(opts *CheckOptions, path string) (*CheckResult, error) {
	ctx := ir.NewContext(ir.WithLogger(opts.logger()))
	loaded, errs := LoadAnnotations(ctx, path, LoadOptions{
		Mode:         LoadModeCollectAll,
		AllowUnknown: opts.AllowUnknown,
		Logger:       opts.logger(),
	})
	if loaded == nil {
		return nil, errs[0]
	}

	result := &CheckResult{
		Valid:       len(errs) == 0,
		Files:       len(loaded.Files),
		Annotations: len(loaded.Annotations),
		Storages:    ctx.Len(),
	}
	if len(loaded.Annotations) > 0 {
		result.Kinds = make(map[string]int)
		for _, t := range loaded.Annotations {
			result.Kinds[string(t.Annotation.Kind())]++
		}
	}
	for _, err := range errs {
		result.Errors = append(result.Errors, issueFromError(err))
	}
	return result, nil
}

func issueFromError(err error) CheckIssue {
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		return CheckIssue{Code: ErrCodeGeneric, Message: err.Error()}
	}
	issue := CheckIssue{Code: loadErr.Code, Message: loadErr.Message, File: loadErr.File}
	if loadErr.Pos.IsValid() {
		issue.File = loadErr.Pos.Filename()
		issue.Line = loadErr.Pos.Line()
		issue.Column = loadErr.Pos.Column()
	}
	return issue
}

func outputCheckResult(formatter *OutputFormatter, result *CheckResult) error {
	if result.Valid {
		if formatter.IsJSON() {
			return formatter.Success(result)
		}
		fmt.Fprintf(formatter.Writer, "✓ %d annotation(s) in %d file(s), %d storage(s)\n",
			result.Annotations, result.Files, result.Storages)
		return nil
	}

	msg := fmt.Sprintf("check failed with %d error(s)", len(result.Errors))
	if formatter.IsJSON() {
		if err := formatter.Failure(result, result.Errors[0].Code, result.Errors[0].Message); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	}

	fmt.Fprintln(formatter.Writer, "✗ Check failed")
	fmt.Fprintln(formatter.Writer)
	for _, issue := range result.Errors {
		switch {
		case issue.Line > 0:
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n", issue.File, issue.Line, issue.Column)
		case issue.File != "":
			fmt.Fprintf(formatter.Writer, "%s\n", issue.File)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", issue.Code, issue.Message)
	}
	return NewExitError(ExitFailure, msg)
}

// runWatch checks path once, then again after every change to an annotation
// file, until ctx is cancelled. Check failures are reported, not returned.
func runWatch(ctx context.Context, opts *CheckOptions, path string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	info, err := os.Stat(path)
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeNotFound, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start watcher", err)
	}
	defer watcher.Close()

	// Watching the parent directory survives editors that save by rename.
	dir := path
	if !info.IsDir() {
		dir = filepath.Dir(path)
	}
	if err := watcher.Add(dir); err != nil {
		return WrapExitError(ExitCommandError, "failed to watch "+dir, err)
	}

	logger := opts.logger()
	check := func() {
		if err := runCheck(opts, path, cmd); err != nil {
			logger.Debug("check reported problems", "path", path, "error", err)
		}
	}
	relevant := func(name string) bool {
		if info.IsDir() {
			return compiler.IsAnnotationFile(name)
		}
		return filepath.Clean(name) == filepath.Clean(path)
	}

	check()
	logger.Info("watching for changes", "path", dir)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 || !relevant(ev.Name) {
				continue
			}
			logger.Debug("annotation file changed", "file", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			fire = timer.C
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)
		case <-fire:
			fire = nil
			fmt.Fprintf(newFormatter(opts.RootOptions, cmd).GetErrWriter(), "--- %s changed, re-checking\n", path)
			check()
		}
	}
}
