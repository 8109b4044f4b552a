package main

import (
	"os"

	"github.com/dvloznov/money-assistant/cmd/assistant/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
