// Package main is the entry point for the csdemostats CLI tool, which parses
// CS2 demo files into per-match stat tables.
package main

import "github.com/pable/go-cs-demostats/cmd"

func main() {
	cmd.Execute()
}
