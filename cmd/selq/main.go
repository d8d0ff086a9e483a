// Package main is the entry point for the selq CLI.
package main

import (
	"os"

	"github.com/donseba/selq/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
