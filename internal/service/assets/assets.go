package assets

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/storegen/storegen/internal/config"
	"github.com/storegen/storegen/internal/entity"
	"github.com/storegen/storegen/internal/util"
)

// Output tree directories the collector writes into.
const (
	ImagesDir      = "images"
	PackagesDir    = "packages"
	ScreenshotsDir = "screenshots"
)

// Stats counts what one collection pass wrote.
type Stats struct {
	Icons           int
	Packages        int
	PackagesSkipped int
	Screenshots     int
}

type assetCollector struct {
	fs  afero.Fs
	src *config.SourceConfig
	cfg *config.AssetsConfig
	log *slog.Logger
}

func NewAssetCollector(fs afero.Fs, src *config.SourceConfig, cfg *config.AssetsConfig, log *slog.Logger) *assetCollector {
	return &assetCollector{
		fs:  fs,
		src: src,
		cfg: cfg,
		log: log.With(slog.String("service", "assets")),
	}
}

// Collect copies every valid bundle's artifacts into the output tree: icons
// under their content address, packages under their package id, screenshots
// under the app id. Reruns against unchanged input rewrite the same bytes,
// so the pass is idempotent.
func (c *assetCollector) Collect(ctx context.Context, outDir string, valid []entity.ValidBundle) (Stats, error) {
	var stats Stats

	for _, v := range valid {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		if err := c.collectIcon(outDir, v, &stats); err != nil {
			return stats, err
		}
		if err := c.collectPackage(outDir, v, &stats); err != nil {
			return stats, err
		}
		if err := c.collectScreenshots(outDir, v, &stats); err != nil {
			return stats, err
		}
	}

	c.log.Info("Assets collected",
		slog.Int("icons", stats.Icons),
		slog.Int("packages", stats.Packages),
		slog.Int("packages_skipped", stats.PackagesSkipped),
		slog.Int("screenshots", stats.Screenshots))

	return stats, nil
}

func (c *assetCollector) collectIcon(outDir string, v entity.ValidBundle, stats *Stats) error {
	if v.Record.ImageID == "" || len(v.Bundle.Icons) == 0 {
		return nil
	}

	icon := v.Bundle.Icons[0]
	dst := filepath.Join(outDir, ImagesDir, v.Record.ImageID)
	if err := util.CopyFile(c.fs, icon.Path, dst); err != nil {
		return fmt.Errorf("cannot copy icon for %s: %w", v.Record.AppID, err)
	}
	stats.Icons++

	return nil
}

func (c *assetCollector) collectPackage(outDir string, v entity.ValidBundle, stats *Stats) error {
	pkg := v.Bundle.Package
	if pkg == nil {
		return nil
	}

	// Oversized artifacts live on the external host; the record already
	// carries packageUrl.
	if pkg.Size > c.cfg.RedirectThreshold {
		c.log.Info("Skip oversize package",
			slog.String("app_id", v.Record.AppID),
			slog.Int64("size", pkg.Size))
		stats.PackagesSkipped++

		return nil
	}

	dst := filepath.Join(outDir, PackagesDir, v.Record.PackageID)
	if err := util.CopyFile(c.fs, pkg.Path, dst); err != nil {
		return fmt.Errorf("cannot copy package for %s: %w", v.Record.AppID, err)
	}
	stats.Packages++

	return nil
}

func (c *assetCollector) collectScreenshots(outDir string, v entity.ValidBundle, stats *Stats) error {
	dir := filepath.Join(v.Bundle.Dir, c.src.ScreenshotsDir)

	ok, err := afero.DirExists(c.fs, dir)
	if err != nil {
		return fmt.Errorf("cannot stat %s: %w", dir, err)
	}
	if !ok {
		return nil
	}

	copied, err := util.CopyDir(c.fs, dir, filepath.Join(outDir, ScreenshotsDir, v.Record.AppID))
	if err != nil {
		return fmt.Errorf("cannot copy screenshots for %s: %w", v.Record.AppID, err)
	}
	stats.Screenshots += copied

	return nil
}
