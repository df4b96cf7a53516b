package main

import (
	"os"

	"github.com/kilianp07/evcharge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
