package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/storegen/storegen/internal/adapter/bundlefs"
	"github.com/storegen/storegen/internal/common"
	"github.com/storegen/storegen/internal/config"
	"github.com/storegen/storegen/internal/entity"
	"github.com/storegen/storegen/internal/service/assemble"
	"github.com/storegen/storegen/internal/service/assets"
	"github.com/storegen/storegen/internal/service/catalog"
	"github.com/storegen/storegen/internal/service/pages"
	"github.com/storegen/storegen/internal/service/split"
	"github.com/storegen/storegen/internal/service/verify"
	"github.com/storegen/storegen/internal/storage/bundles"
	"github.com/storegen/storegen/internal/util"
)

// Mode selects how much of the pipeline one run executes.
type Mode int

const (
	// ModeFull rebuilds the UI when a build command is configured, then
	// aggregates, assembles, splits and verifies.
	ModeFull Mode = iota
	// ModeAggregate skips the UI rebuild and reuses the existing bundle.
	ModeAggregate
	// ModeDryRun validates and reports only; nothing is written.
	ModeDryRun
)

func (m Mode) String() string {
	return [...]string{"full", "aggregate", "dry-run"}[m]
}

type App struct {
	cfgPath string
	cfg     *config.Config
	fs      afero.Fs
	log     *slog.Logger
}

func New(cfgPath string) *App {
	return &App{
		cfgPath: cfgPath,
	}
}

// NewWithFS runs the pipeline on a caller-supplied filesystem and logger.
func NewWithFS(cfg *config.Config, fs afero.Fs, log *slog.Logger) *App {
	return &App{
		cfg: cfg,
		fs:  fs,
		log: log,
	}
}

// Run executes one pipeline pass. Any validation error aborts the run before
// anything is written, in every mode.
func (a *App) Run(ctx context.Context, mode Mode) error {
	if a.cfg == nil {
		cfg, err := config.Load(a.cfgPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}
	if a.fs == nil {
		a.fs = afero.NewOsFs()
	}
	if a.log == nil {
		a.log = newLogger(a.cfg.LogLevel)
	}

	log := a.log.With(slog.String("run_id", uuid.NewString()), slog.String("mode", mode.String()))

	adapter := bundlefs.NewBundleAdapterWithFS(a.fs, &a.cfg.Source, log)
	store := bundles.NewBundleStorage(a.fs, adapter, &a.cfg.Source, log)
	catalogSrv := catalog.NewCatalogService(store, &a.cfg.Assets, log)

	agg, err := catalogSrv.Aggregate(ctx)
	if err != nil {
		return err
	}

	printReport(agg)

	if agg.Counts.Errors > 0 {
		return fmt.Errorf("%d of %d bundle(s) invalid: %w",
			agg.Counts.Errors, agg.Counts.Total, common.ErrValidationFailed)
	}

	if mode == ModeDryRun {
		return nil
	}

	// The UI data file has to be fresh before the UI build compiles it in.
	if a.cfg.Build.UIDataFile != "" {
		cat := agg.Catalog()
		if err := util.WriteJSON(a.fs, a.cfg.Build.UIDataFile, &cat); err != nil {
			return err
		}
	}

	if mode == ModeFull {
		if err := a.buildUI(ctx, log); err != nil {
			return err
		}
	}

	collector := assets.NewAssetCollector(a.fs, &a.cfg.Source, &a.cfg.Assets, log)
	renderer, err := pages.NewPageRenderer(a.fs, &a.cfg.Source, log)
	if err != nil {
		return err
	}
	assembler := assemble.NewAssembler(a.fs, &a.cfg.Build, collector, renderer, log)

	stats, err := assembler.Assemble(ctx, agg)
	if err != nil {
		return err
	}

	splitter := split.NewSplitter(a.fs, &a.cfg.Split, log)
	result, err := splitter.SplitTree(ctx, a.cfg.Build.OutputDir)
	if err != nil {
		return err
	}
	printSplits(result)

	verifier := verify.NewVerifier(a.fs, &a.cfg.Split, log)
	if err := verifier.Verify(ctx, a.cfg.Build.OutputDir); err != nil {
		return err
	}

	fmt.Printf("Published %d app(s) to %s (icons: %d, packages: %d, redirected: %d, screenshots: %d, split: %d)\n",
		agg.Counts.Valid, a.cfg.Build.OutputDir,
		stats.Icons, stats.Packages, stats.PackagesSkipped, stats.Screenshots, result.Count())

	return nil
}

// buildUI runs the configured UI build command. The UI toolchain is an
// external collaborator; the pipeline only requires its dist output, so no
// command configured simply means the existing bundle is reused.
func (a *App) buildUI(ctx context.Context, log *slog.Logger) error {
	argv := a.cfg.Build.UICommand
	if len(argv) == 0 {
		log.Info("No UI build command configured, reusing existing bundle")

		return nil
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = a.cfg.Build.UISourceDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	log.Info("Building UI bundle", slog.String("command", strings.Join(argv, " ")))

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("UI build failed: %w", err)
	}

	return nil
}

func newLogger(level config.LogLevel) *slog.Logger {
	lo := &slog.HandlerOptions{}
	switch level {
	case config.LogLevelDebug:
		lo.Level = slog.LevelDebug
	case config.LogLevelWarn:
		lo.Level = slog.LevelWarn
	case config.LogLevelError:
		lo.Level = slog.LevelError
	default:
		lo.Level = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, lo))
}

func printReport(agg *entity.Aggregation) {
	for _, report := range agg.Reports {
		for _, e := range report.Errors {
			fmt.Printf("ERROR %s: %s\n", report.Path, e.Error())
		}
		for _, warn := range report.Warnings {
			fmt.Printf("WARN  %s: %s\n", report.Path, warn)
		}
	}

	fmt.Printf("Bundles: %d total, %d valid, %d with errors\n",
		agg.Counts.Total, agg.Counts.Valid, agg.Counts.Errors)
}

func printSplits(result *split.Result) {
	for _, f := range result.Files {
		fmt.Printf("Split %s into %d part(s)\n", f.Path, len(f.Manifest.Parts))
	}
}
