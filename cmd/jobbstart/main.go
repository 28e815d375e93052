package main

import (
	"os"

	"github.com/andyarntsen-alt/jobbstart-sub001/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
