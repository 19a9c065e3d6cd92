// Package main provides the entry point for the slackmcp CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/slackmcp/cmd/slackmcp/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
