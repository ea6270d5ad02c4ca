package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/firanno/internal/ir"
	"github.com/roach88/firanno/internal/store"
)

// InternOptions holds flags for the intern command.
type InternOptions struct {
	*RootOptions
	Database     string
	AllowUnknown bool
}

// InternResult reports what was stored.
type InternResult struct {
	ContextID   string `json:"context_id"`
	Files       int    `json:"files"`
	Annotations int    `json:"annotations"`
	Storages    int    `json:"storages"`
	Stored      int    `json:"stored"`
}

// NewInternCommand creates the intern command.
func NewInternCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InternOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "intern <file-or-dir>",
		Short: "Intern annotation files into a database",
		Long: `Compile annotation files into a fresh context and persist its storages
and target attachments to a SQLite database under a new context ID.

Content-equal annotations are stored once, whichever run wrote them first.
Nothing is written if any annotation is invalid.

Examples:
  firanno intern annos.json --db ./annos.db
  firanno intern ./annotations --db ./annos.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIntern(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().BoolVar(&opts.AllowUnknown, "allow-unknown", false, "skip annotations with unknown classes instead of failing")

	return cmd
}

func runIntern(ctx context.Context, opts *InternOptions, path string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.logger()

	last, err := lastStoredSeq(ctx, opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read database", err)
	}

	// New rows sort after everything earlier runs stored.
	ictx := ir.NewContext(ir.WithLogger(logger), ir.WithClock(ir.NewClockAt(last)))
	loaded, errs := LoadAnnotations(ictx, path, LoadOptions{
		Mode:         LoadModeCollectAll,
		AllowUnknown: opts.AllowUnknown,
		Logger:       logger,
	})
	if loaded == nil {
		code := loadErrorCode(errs[0])
		_ = formatter.Error(code, errs[0].Error(), nil)
		return WrapExitError(ExitCommandError, code, errs[0])
	}
	if len(errs) > 0 {
		check := &CheckResult{Files: len(loaded.Files)}
		for _, err := range errs {
			check.Errors = append(check.Errors, issueFromError(err))
		}
		return outputCheckResult(formatter, check)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	before, err := st.CountAnnotations(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read database", err)
	}
	if err := st.WriteContext(ctx, ictx); err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to write annotations", err)
	}
	if err := st.WriteTargeted(ctx, ictx.ID(), loaded.Annotations); err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to write attachments", err)
	}
	after, err := st.CountAnnotations(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read database", err)
	}

	result := InternResult{
		ContextID:   ictx.ID(),
		Files:       len(loaded.Files),
		Annotations: len(loaded.Annotations),
		Storages:    ictx.Len(),
		Stored:      after - before,
	}
	logger.Info("interned annotations",
		"context", result.ContextID,
		"storages", result.Storages,
		"new_rows", result.Stored,
	)

	if formatter.IsJSON() {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Interned %d annotation(s) as %d storage(s) (%d new) in %s\n",
		result.Annotations, result.Storages, result.Stored, opts.Database)
	fmt.Fprintf(formatter.Writer, "  context: %s\n", result.ContextID)
	return nil
}

// lastStoredSeq returns the highest annotation seq in the database at path,
// or 0 when the database does not exist yet. A missing database is not
// created.
func lastStoredSeq(ctx context.Context, path string) (int64, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	st, err := store.Open(path)
	if err != nil {
		return 0, err
	}
	defer st.Close()
	return st.GetLastSeq(ctx)
}
