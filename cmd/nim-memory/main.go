package main

import (
	"os"

	"github.com/becomeliminal/nim-memory/cmd/nim-memory/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
