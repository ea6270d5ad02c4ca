package cli

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/firanno/internal/compiler"
	"github.com/roach88/firanno/internal/ir"
	"github.com/roach88/firanno/internal/queryir"
	"github.com/roach88/firanno/internal/store"
)

// DumpOptions holds flags for the dump command.
type DumpOptions struct {
	*RootOptions
	Database  string
	ContextID string // optional - attachments of one context
	Output    string // optional - write the annotation file here
	List      bool   // list context IDs instead of dumping

	Kind         string // optional - only this class or kind
	TargetPrefix string // optional - only attachments whose target starts with this
}

// DumpResult is the JSON payload of the dump command.
type DumpResult struct {
	IRVersion   string              `json:"ir_version"`
	Contexts    []string            `json:"contexts"`
	ContextID   string              `json:"context_id,omitempty"`
	Annotations []map[string]string `json:"annotations,omitempty"`
}

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DumpOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Reload stored annotations and print them as an annotation file",
		Long: `Reload every stored annotation into a fresh context through the
validating construction API, and print the result in the JSON annotation
file format. With --context, print the targeted annotations written by
one intern run instead; with --target-prefix, the matching attachments of
every run. --kind narrows either form to one annotation class.

Examples:
  firanno dump --db ./annos.db
  firanno dump --db ./annos.db --list
  firanno dump --db ./annos.db --context 0190a1b2-... --output annos.json
  firanno dump --db ./annos.db --kind firrtl.passes.InlineAnnotation --target-prefix "~Top|"`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.ContextID, "context", "", "dump the attachments of one context")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the annotation file to this path")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list stored context IDs")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only dump annotations of this class or kind")
	cmd.Flags().StringVar(&opts.TargetPrefix, "target-prefix", "", "only dump attachments whose target starts with this prefix")

	return cmd
}

func runDump(ctx context.Context, opts *DumpOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	if _, err := os.Stat(opts.Database); err != nil {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("database not found: %s", opts.Database), nil)
		return WrapExitError(ExitCommandError, "database not found", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	version, err := st.IRVersion(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read database", err)
	}
	contexts, err := st.ListContexts(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list contexts", err)
	}

	if opts.List {
		if formatter.IsJSON() {
			return formatter.Success(DumpResult{IRVersion: version, Contexts: contexts})
		}
		for _, id := range contexts {
			fmt.Fprintln(formatter.Writer, id)
		}
		return nil
	}

	ictx := ir.NewContext(ir.WithLogger(opts.logger()))
	if opts.ContextID != "" && !slices.Contains(contexts, opts.ContextID) {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("no attachments for context %s", opts.ContextID), nil)
		return NewExitError(ExitCommandError, "context not found")
	}
	var kindFilter queryir.Predicate
	if opts.Kind != "" {
		kind, ok := ictx.LookupClass(opts.Kind)
		if !ok {
			_ = formatter.Error(compiler.ErrUnknownClass, fmt.Sprintf("unknown annotation class %q", opts.Kind), nil)
			return NewExitError(ExitCommandError, "unknown annotation class")
		}
		kindFilter = queryir.Equals{Field: queryir.FieldKind, Value: string(kind)}
	}

	var items []ir.Targeted
	if opts.ContextID == "" && opts.TargetPrefix == "" {
		var anns []ir.Annotation
		anns, err = st.QueryAnnotations(ctx, ictx, kindFilter)
		for _, a := range anns {
			items = append(items, ir.Targeted{Annotation: a})
		}
	} else {
		var filter queryir.Predicate
		if opts.ContextID != "" {
			filter = queryir.Equals{Field: queryir.FieldContext, Value: opts.ContextID}
		}
		if opts.TargetPrefix != "" {
			filter = queryir.All(filter, queryir.Prefix{Field: queryir.FieldTarget, Value: opts.TargetPrefix})
		}
		var rows []store.ContextTargeted
		rows, err = st.QueryTargeted(ctx, ictx, queryir.Targeted{Filter: queryir.All(filter, kindFilter)})
		for _, row := range rows {
			items = append(items, row.Targeted)
		}
	}
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitFailure, "failed to reload annotations", err)
	}

	records := make([]compiler.Record, 0, len(items))
	for _, t := range items {
		rec, err := compiler.ToRecord(ictx, t)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to convert annotation", err)
		}
		records = append(records, rec)
	}
	opts.logger().Debug("reloaded annotations", "storages", ictx.Len(), "records", len(records))

	if opts.Output != "" {
		if err := writeRecords(opts.Output, records); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to write output", err)
		}
		formatter.VerboseLog("Wrote %d annotation(s) to %s", len(records), opts.Output)
	}

	if formatter.IsJSON() {
		return formatter.Success(DumpResult{
			IRVersion:   version,
			Contexts:    contexts,
			ContextID:   opts.ContextID,
			Annotations: recordMaps(records),
		})
	}
	if opts.Output != "" {
		fmt.Fprintf(formatter.Writer, "✓ Wrote %d annotation(s) to %s\n", len(records), opts.Output)
		return nil
	}
	return compiler.EncodeJSON(formatter.Writer, records)
}

func writeRecords(path string, records []compiler.Record) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return compiler.EncodeJSON(f, records)
}

func recordMaps(records []compiler.Record) []map[string]string {
	out := make([]map[string]string, len(records))
	for i, rec := range records {
		out[i] = rec.Map()
	}
	return out
}
