// Package main provides the entry point for the vidtalk CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/raphaelgruber/vidtalk/internal/cli"
)

func main() {
	// Best effort; the CLI only needs the server URL.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
