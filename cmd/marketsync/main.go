// Package main provides the entry point for the marketsync CLI.
package main

import (
	"context"
	"os"

	"github.com/custodia-labs/marketsync/internal/adapters/driving/cli"
	"github.com/custodia-labs/marketsync/internal/logger"
)

// version is populated at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.SetVersion(version)
	cli.SetBootstrapper(bootstrap)

	err := cli.ExecuteContext(context.Background())
	if closeErr := cli.Shutdown(); closeErr != nil {
		logger.Error("%v", closeErr)
	}
	if err != nil {
		os.Exit(1)
	}
}
