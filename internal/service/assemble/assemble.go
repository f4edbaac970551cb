package assemble

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/storegen/storegen/internal/common"
	"github.com/storegen/storegen/internal/config"
	"github.com/storegen/storegen/internal/entity"
	"github.com/storegen/storegen/internal/service/assets"
	"github.com/storegen/storegen/internal/util"
)

const (
	// nojekyllFileName keeps GitHub Pages from running the published tree
	// through Jekyll, which would drop underscore-prefixed paths.
	nojekyllFileName = ".nojekyll"

	updatesDirName = "updates"
	gitDirName     = ".git"
)

type AssetCollector interface {
	Collect(ctx context.Context, outDir string, valid []entity.ValidBundle) (assets.Stats, error)
}

type PageRenderer interface {
	RenderAll(ctx context.Context, outDir string, valid []entity.ValidBundle) (int, error)
}

type assembler struct {
	fs        afero.Fs
	cfg       *config.BuildConfig
	collector AssetCollector
	pages     PageRenderer
	log       *slog.Logger
}

func NewAssembler(fs afero.Fs, cfg *config.BuildConfig, collector AssetCollector, pages PageRenderer, log *slog.Logger) *assembler {
	return &assembler{
		fs:        fs,
		cfg:       cfg,
		collector: collector,
		pages:     pages,
		log:       log.With(slog.String("service", "assemble")),
	}
}

// Assemble combines the pre-built UI bundle, the catalog and the collected
// assets into the deployable tree under the configured output dir.
func (a *assembler) Assemble(ctx context.Context, agg *entity.Aggregation) (assets.Stats, error) {
	var stats assets.Stats

	if ok, err := afero.DirExists(a.fs, a.cfg.UIDir); err != nil {
		return stats, fmt.Errorf("cannot stat UI bundle dir %s: %w", a.cfg.UIDir, err)
	} else if !ok {
		return stats, fmt.Errorf("UI bundle dir %s missing, build the UI first: %w", a.cfg.UIDir, common.ErrPrerequisiteMissing)
	}

	if empty, err := afero.IsEmpty(a.fs, a.cfg.UIDir); err != nil {
		return stats, fmt.Errorf("cannot read UI bundle dir %s: %w", a.cfg.UIDir, err)
	} else if empty {
		return stats, fmt.Errorf("UI bundle dir %s is empty, build the UI first: %w", a.cfg.UIDir, common.ErrPrerequisiteMissing)
	}

	if err := a.cleanOutput(); err != nil {
		return stats, err
	}

	if _, err := util.CopyDir(a.fs, a.cfg.UIDir, a.cfg.OutputDir); err != nil {
		return stats, fmt.Errorf("cannot copy UI bundle: %w", err)
	}

	catalog := agg.Catalog()
	if err := util.WriteJSON(a.fs, filepath.Join(a.cfg.OutputDir, a.cfg.CatalogFileName), &catalog); err != nil {
		return stats, err
	}

	if err := afero.WriteFile(a.fs, filepath.Join(a.cfg.OutputDir, nojekyllFileName), nil, 0o644); err != nil {
		return stats, fmt.Errorf("cannot write %s: %w", nojekyllFileName, err)
	}

	if err := a.copyUpdates(); err != nil {
		return stats, err
	}

	stats, err := a.collector.Collect(ctx, a.cfg.OutputDir, agg.Valid)
	if err != nil {
		return stats, fmt.Errorf("cannot collect assets: %w", err)
	}

	if _, err := a.pages.RenderAll(ctx, a.cfg.OutputDir, agg.Valid); err != nil {
		return stats, fmt.Errorf("cannot render description pages: %w", err)
	}

	a.log.Info("Output tree assembled",
		slog.String("output", a.cfg.OutputDir),
		slog.Int("apps", len(agg.Valid)))

	return stats, nil
}

// cleanOutput empties the output dir so removed apps disappear from the
// published tree, but keeps version-control metadata: the output dir is
// typically a checkout of the publish branch.
func (a *assembler) cleanOutput() error {
	entries, err := afero.ReadDir(a.fs, a.cfg.OutputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return a.fs.MkdirAll(a.cfg.OutputDir, 0o755)
		}

		return fmt.Errorf("cannot read output dir %s: %w", a.cfg.OutputDir, err)
	}

	for _, entry := range entries {
		if entry.Name() == gitDirName {
			continue
		}

		if err := a.fs.RemoveAll(filepath.Join(a.cfg.OutputDir, entry.Name())); err != nil {
			return fmt.Errorf("cannot clean output dir: %w", err)
		}
	}

	return nil
}

func (a *assembler) copyUpdates() error {
	if a.cfg.UpdatesDir == "" {
		return nil
	}

	ok, err := afero.DirExists(a.fs, a.cfg.UpdatesDir)
	if err != nil {
		return fmt.Errorf("cannot stat updates dir %s: %w", a.cfg.UpdatesDir, err)
	}
	if !ok {
		a.log.Info("Updates dir absent, skipping", slog.String("dir", a.cfg.UpdatesDir))

		return nil
	}

	if _, err := util.CopyDir(a.fs, a.cfg.UpdatesDir, filepath.Join(a.cfg.OutputDir, updatesDirName)); err != nil {
		return fmt.Errorf("cannot copy updates: %w", err)
	}

	return nil
}
