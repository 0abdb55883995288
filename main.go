package main

import (
	"os"

	"github.com/openscope/wavescope/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
