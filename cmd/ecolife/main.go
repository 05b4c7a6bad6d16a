// Command ecolife is the EcoLife carbon ledger CLI and HTTP server.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rshade/ecolife/internal/cli"
	"github.com/rshade/ecolife/pkg/version"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run executes the root command with args, writing command output to
// stdout and diagnostics to stderr.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := cli.NewRootCmd(version.String())
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}
