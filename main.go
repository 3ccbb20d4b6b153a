package main

import (
	"os"

	"github.com/iliad-lang/iliad/cmd"
)

func main() {
	if err := cmd.App().Execute(); err != nil {
		os.Exit(1)
	}
}
