// Package main provides the roll command-line tool for one-shot dice rolls.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
