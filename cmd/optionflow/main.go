package main

import (
	"os"

	"github.com/wonny/optionflow/cmd/optionflow/commands"
)

// main is the entry point for the optionflow CLI
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
