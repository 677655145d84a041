package main

import (
	"os"

	"cipherkeep/cmd/cipherkeep/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
