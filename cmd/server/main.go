// Package main is the entry point for the Cloud System server. The root
// command loads configuration, connects to MariaDB and Redis, applies
// migrations, wires all plugins and serves HTTP until interrupted.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
