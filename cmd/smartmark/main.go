// Command smartmark serves a personal bookmark list backed by Redis or SQLite.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ smartmark: %v\n", err)
		os.Exit(1)
	}
}
