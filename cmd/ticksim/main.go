package main

import (
	"os"

	"github.com/rustyeddy/ticksim/cmd/ticksim/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
