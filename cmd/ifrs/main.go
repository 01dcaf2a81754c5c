package main

import (
	"os"

	"github.com/ekmungai/eloquent-ifrs-sub000/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
