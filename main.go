package main

import (
	"fmt"
	"os"

	"github.com/bryan-buckman/readhubx/internal/cli"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if err := cli.Execute(version); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
