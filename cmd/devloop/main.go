package main

import (
	"os"

	"github.com/daydemir/devloop/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
