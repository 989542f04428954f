// mcgctl - operator CLI for the mcg-agent corpus: ingestion, seeding, and a
// local smoke run of the governed pipeline.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
