package bundles

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/storegen/storegen/internal/common"
	"github.com/storegen/storegen/internal/config"
	"github.com/storegen/storegen/internal/entity"
)

type BundleAdapter interface {
	Read(dir, rel string) (*entity.Bundle, error)
}

type bundleStorage struct {
	fs      afero.Fs
	adapter BundleAdapter
	cfg     *config.SourceConfig
	log     *slog.Logger
}

func NewBundleStorage(fs afero.Fs, adapter BundleAdapter, cfg *config.SourceConfig, log *slog.Logger) *bundleStorage {
	return &bundleStorage{
		fs:      fs,
		adapter: adapter,
		cfg:     cfg,
		log:     log.With(slog.String("item", "BundleStorage")),
	}
}

// Scan walks root/developer/group/bundle and reads every directory that
// carries a metadata file. Bundles come back in name-sorted directory order,
// so a rescan of unchanged input yields the same sequence and the same
// report.
func (s *bundleStorage) Scan(ctx context.Context) ([]*entity.Bundle, error) {
	if ok, err := afero.DirExists(s.fs, s.cfg.Root); err != nil {
		return nil, fmt.Errorf("cannot stat source root %s: %w", s.cfg.Root, err)
	} else if !ok {
		return nil, fmt.Errorf("source root %s: %w", s.cfg.Root, common.ErrPrerequisiteMissing)
	}

	developers, err := s.listDirs(s.cfg.Root)
	if err != nil {
		return nil, err
	}

	var found []*entity.Bundle
	for _, developer := range developers {
		groups, err := s.listDirs(filepath.Join(s.cfg.Root, developer))
		if err != nil {
			return nil, err
		}

		for _, group := range groups {
			candidates, err := s.listDirs(filepath.Join(s.cfg.Root, developer, group))
			if err != nil {
				return nil, err
			}

			for _, name := range candidates {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				default:
				}

				rel := filepath.Join(developer, group, name)
				dir := filepath.Join(s.cfg.Root, rel)

				metaPath := filepath.Join(dir, s.cfg.MetaFileName)
				exists, err := afero.Exists(s.fs, metaPath)
				if err != nil {
					return nil, fmt.Errorf("cannot stat %s: %w", metaPath, err)
				}
				if !exists {
					// Not every directory at this depth is a bundle.
					s.log.Debug("Skip directory without metadata", slog.String("path", rel))

					continue
				}

				bundle, err := s.adapter.Read(dir, rel)
				if err != nil {
					return nil, fmt.Errorf("cannot read bundle %s: %w", rel, err)
				}

				s.log.Info("Found bundle", slog.String("path", rel))
				found = append(found, bundle)
			}
		}
	}

	return found, nil
}

// listDirs returns the name-sorted visible subdirectories of path.
func (s *bundleStorage) listDirs(path string) ([]string, error) {
	entries, err := afero.ReadDir(s.fs, path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var dirs []string
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		dirs = append(dirs, entry.Name())
	}

	return dirs, nil
}
