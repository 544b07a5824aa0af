package main

import (
	"os"

	"github.com/Abhay-hack/Asset-Pulse/internal/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
