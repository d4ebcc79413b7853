/*
Package main provides the CLI entry point for Mailform.
*/
package main

import (
	"os"

	"github.com/oarkflow/mailform/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
