package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"datasetmd/internal/cli"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n%s\n", r, debug.Stack())
			os.Exit(3)
		}
	}()

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
