package main

import (
	"context"
	"os"

	"github.com/asynkron/gopatch/internal/cli"
)

// main hands the process arguments to the CLI front end and exits with its
// POSIX status code: 0 all applied, 1 some rejects, 2 unrecoverable.
func main() {
	os.Exit(cli.Run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
