package main

import (
	"fmt"
	"os"

	"github.com/retailops/finops-correlator/internal/adapter/driving/cli"
	"github.com/retailops/finops-correlator/pkg/version"
)

func main() {
	app := cli.NewCLIApp(version.Version)

	if err := app.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
