package main

import (
	"os"

	"github.com/kqstats/stats-server-go/internal/cli"
)

var version = "dev" // set via ldflags during build

func main() {
	if err := cli.NewRootCommand(version).Execute(); err != nil {
		os.Exit(1)
	}
}
