// Package main is the entry point for the gocodecs-demo application.
package main

import (
	"os"

	"github.com/jmylchreest/gocodecs/cmd/gocodecs-demo/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
