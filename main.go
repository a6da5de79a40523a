package main

import (
	"os"

	"github.com/plotforge/plotforge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
