package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/storegen/storegen/internal/app"
	"github.com/storegen/storegen/internal/common"
)

const (
	exitValidation   = 1
	exitPrerequisite = 2
	exitIntegrity    = 3
)

func main() {
	cfgFileName := flag.String("c", "config.yml", "Path to config file")
	dryRun := flag.Bool("dry-run", false, "Validate bundles and report, write nothing")
	aggregate := flag.Bool("aggregate", false, "Skip the UI rebuild, aggregate and assemble only")
	flag.Parse()

	mode := app.ModeFull
	switch {
	case *dryRun:
		mode = app.ModeDryRun
	case *aggregate:
		mode = app.ModeAggregate
	}

	if err := app.New(*cfgFileName).Run(context.Background(), mode); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, common.ErrPrerequisiteMissing):
		return exitPrerequisite
	case errors.Is(err, common.ErrIntegrity):
		return exitIntegrity
	default:
		// Validation failures, config problems and everything else.
		return exitValidation
	}
}
