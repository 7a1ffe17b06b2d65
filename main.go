package main

import (
	"github.com/sethyboi74/odemasterpro/cmd"
)

// main is the entry point for the odemaster CLI. All command-line parsing,
// configuration and execution happens in the cmd package.
func main() {
	cmd.Execute()
}
