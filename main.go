package main

import (
	"os"

	"github.com/spigell/carbon-match/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
