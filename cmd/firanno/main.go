// Command firanno checks, interns and stores FIRRTL annotation files.
//
// Usage:
//
//	firanno check <file-or-dir> [--watch] [--allow-unknown]
//	firanno intern <file-or-dir> --db <path>
//	firanno dump --db <path> [--context <id>] [--output <file>]
//	firanno kinds
//	firanno test <scenarios-dir> [--update]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/firanno/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := cli.NewRootCommand()
	err := cmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	stop()
	os.Exit(cli.GetExitCode(err))
}
