package main

import (
	"os"

	"github.com/nexus-wa-bridge/cmd/bridge/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
