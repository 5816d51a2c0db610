package main

import "fmt"

// version, commit, and date are set via ldflags during release builds.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func printVersion() {
	fmt.Printf("contextframe-mcp %s (commit %s, built %s)\n", version, commit, date)
}
