package main

import (
	"os"

	"github.com/mattjoyce/deskbridge/cmd/bridgectl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
