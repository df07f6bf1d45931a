package main

import (
	"fmt"
	"os"
)

// BuildDate and Version can be set at build time via ldflags
var (
	Version   = "0.0.1"
	BuildDate = "unknown"
)

const AppName = "railsim"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
