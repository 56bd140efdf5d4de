// Package main is the entry point for the linarr application.
package main

import (
	"os"

	"github.com/linarr/linarr/cmd/linarr/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
