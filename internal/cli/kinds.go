package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/firanno/internal/ir"
)

// KindInfo describes one registered annotation kind.
type KindInfo struct {
	Kind    string   `json:"kind"`
	Class   string   `json:"class"`
	Params  []string `json:"params"`
	Aliases []string `json:"aliases,omitempty"`
}

// NewKindsCommand creates the kinds command.
func NewKindsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "kinds",
		Short:         "List the annotation kinds this build understands",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKinds(rootOpts, cmd)
		},
	}
}

// ListKinds returns every kind registered on a fresh context, sorted by kind.
func ListKinds() []KindInfo {
	ctx := ir.NewContext()
	var out []KindInfo
	for _, kind := range ctx.Kinds() {
		v, _ := ctx.Variant(kind)
		params := v.Params
		if params == nil {
			params = []string{}
		}
		out = append(out, KindInfo{
			Kind:    string(v.Kind),
			Class:   v.Class(),
			Params:  params,
			Aliases: v.Aliases,
		})
	}
	return out
}

func runKinds(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	kinds := ListKinds()

	if formatter.IsJSON() {
		return formatter.Success(kinds)
	}
	for _, k := range kinds {
		fmt.Fprintf(formatter.Writer, "%s(%s)\n", k.Class, strings.Join(k.Params, ", "))
	}
	return nil
}
