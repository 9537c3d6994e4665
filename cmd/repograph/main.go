// Package main provides the entry point for the repograph CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/repograph/cmd/repograph/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
