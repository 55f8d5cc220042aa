package main

import (
	"os"

	"github.com/kasuganosora/codepals/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
