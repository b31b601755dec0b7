package main

import (
	"os"

	"github.com/chargescope/chargescope/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
