// Package bundlefs reads one app bundle directory into its raw entity form.
// It is the only place that touches bundle source files, so the rest of the
// pipeline can be tested against an in-memory filesystem.
package bundlefs

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"github.com/storegen/storegen/internal/config"
	"github.com/storegen/storegen/internal/entity"
	"github.com/storegen/storegen/internal/util"
	"gopkg.in/yaml.v2"
)

const frontmatterFence = "---\n"

// Screenshot discovery only picks up files the storefront can render.
var imageExts = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".webp": {},
	".svg":  {},
}

type bundleAdapter struct {
	fs  afero.Fs
	cfg *config.SourceConfig
	log *slog.Logger
}

func NewBundleAdapter(cfg *config.SourceConfig, log *slog.Logger) *bundleAdapter {
	return NewBundleAdapterWithFS(afero.NewOsFs(), cfg, log)
}

func NewBundleAdapterWithFS(fs afero.Fs, cfg *config.SourceConfig, log *slog.Logger) *bundleAdapter {
	return &bundleAdapter{
		fs:  fs,
		cfg: cfg,
		log: log.With(slog.String("item", "BundleAdapter")),
	}
}

// Read assembles the raw view of the bundle at dir; rel names the bundle in
// reports. A metadata file that does not decode is recorded on the bundle
// rather than returned, so the bundle still reaches validation and the
// problem lands in the report. Only filesystem faults produce an error.
func (a *bundleAdapter) Read(dir, rel string) (*entity.Bundle, error) {
	bundle := &entity.Bundle{Path: rel, Dir: dir}

	if err := a.readMeta(bundle); err != nil {
		return nil, err
	}
	if err := a.readIcons(bundle); err != nil {
		return nil, err
	}
	if err := a.readPackage(bundle); err != nil {
		return nil, err
	}
	if err := a.readScreenshots(bundle); err != nil {
		return nil, err
	}
	if err := a.readDescription(bundle); err != nil {
		return nil, err
	}

	return bundle, nil
}

func (a *bundleAdapter) readMeta(bundle *entity.Bundle) error {
	path := filepath.Join(bundle.Dir, a.cfg.MetaFileName)

	data, err := afero.ReadFile(a.fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			bundle.MetaErr = fmt.Errorf("metadata file %s missing", a.cfg.MetaFileName)

			return nil
		}

		return fmt.Errorf("cannot read %s: %w", path, err)
	}

	meta := make(map[string]any)
	if err := json.Unmarshal(data, &meta); err != nil {
		bundle.MetaErr = fmt.Errorf("cannot parse %s: %w", a.cfg.MetaFileName, err)

		return nil
	}

	bundle.Meta = meta

	return nil
}

func (a *bundleAdapter) readIcons(bundle *entity.Bundle) error {
	for _, name := range a.cfg.IconFileNames {
		path := filepath.Join(bundle.Dir, name)

		info, err := a.fs.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}

			return fmt.Errorf("cannot stat %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}

		sum, size, err := util.HashFile(a.fs, path)
		if err != nil {
			return err
		}

		bundle.Icons = append(bundle.Icons, entity.IconFile{
			Name:   name,
			Path:   path,
			Ext:    filepath.Ext(name),
			SHA256: sum,
			Size:   size,
		})
	}

	return nil
}

// readPackage looks for the artifact file named by the bundle's packageId.
// Its absence is not an error here; the validator turns it into a warning.
func (a *bundleAdapter) readPackage(bundle *entity.Bundle) error {
	id, ok := bundle.Meta[entity.MetaPackageID].(string)
	if !ok || strings.TrimSpace(id) == "" {
		return nil
	}

	path := filepath.Join(bundle.Dir, id)
	info, err := a.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return fmt.Errorf("cannot stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil
	}

	bundle.Package = &entity.PackageFile{Name: id, Path: path, Size: info.Size()}

	return nil
}

func (a *bundleAdapter) readScreenshots(bundle *entity.Bundle) error {
	dir := filepath.Join(bundle.Dir, a.cfg.ScreenshotsDir)

	entries, err := afero.ReadDir(a.fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return fmt.Errorf("cannot read %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := imageExts[strings.ToLower(filepath.Ext(entry.Name()))]; !ok {
			a.log.Debug("Skip non-image screenshot file", slog.String("name", entry.Name()))

			continue
		}

		bundle.ScreenshotFiles = append(bundle.ScreenshotFiles, entry.Name())
	}

	sort.Strings(bundle.ScreenshotFiles)

	return nil
}

func (a *bundleAdapter) readDescription(bundle *entity.Bundle) error {
	path := filepath.Join(bundle.Dir, a.cfg.DescFileName)

	data, err := afero.ReadFile(a.fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return fmt.Errorf("cannot read %s: %w", path, err)
	}

	bundle.Description = stripFrontmatter(data)

	return nil
}

// stripFrontmatter removes a leading --- yaml block. A fence that never
// closes, or a block that does not parse as yaml, is kept as content.
func stripFrontmatter(data []byte) []byte {
	str := string(data)
	if !strings.HasPrefix(str, frontmatterFence) {
		return data
	}

	parts := strings.SplitN(str, frontmatterFence, 3)
	if len(parts) < 3 {
		return data
	}

	var meta map[string]any
	if err := yaml.Unmarshal([]byte(parts[1]), &meta); err != nil {
		return data
	}

	return []byte(parts[2])
}
