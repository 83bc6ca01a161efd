package main

import (
	"os"

	"github.com/vladislavdragonenkov/cartstore/cmd/cartctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
