package main

import (
	"context"
	"fmt"
	"os"

	_ "github.com/tliron/commonlog/simple"

	"parhist/internal/cli"
	"parhist/internal/worker"
)

// main dispatches between the two personalities of the binary: the supervisor
// (default) and the worker mode the supervisor re-executes itself into.
func main() {
	if worker.IsWorkerProcess() {
		os.Exit(worker.Main())
	}

	result, err := cli.Run(context.Background(), os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(result.ExitCode)
}
