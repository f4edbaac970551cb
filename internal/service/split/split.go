// Package split cuts files the publish host would reject into fixed-size
// numbered parts with a manifest describing the exact reconstruction.
package split

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/storegen/storegen/internal/common"
	"github.com/storegen/storegen/internal/config"
	"github.com/storegen/storegen/internal/entity"
	"github.com/storegen/storegen/internal/util"
)

const (
	// PartsManifestSuffix names the reassembly manifest written next to the
	// parts of a split file.
	PartsManifestSuffix = ".parts.json"

	gitDirName = ".git"
)

// SplitFile records one completed split for operator output.
type SplitFile struct {
	Path     string
	Manifest entity.SplitManifest
}

// Result sums one splitting pass over the output tree.
type Result struct {
	Files []SplitFile
}

func (r *Result) Count() int {
	return len(r.Files)
}

type splitter struct {
	fs  afero.Fs
	cfg *config.SplitConfig
	log *slog.Logger
}

func NewSplitter(fs afero.Fs, cfg *config.SplitConfig, log *slog.Logger) *splitter {
	return &splitter{
		fs:  fs,
		cfg: cfg,
		log: log.With(slog.String("service", "split")),
	}
}

// SplitTree walks root and splits every file larger than the threshold into
// numbered parts, writing a manifest and deleting the original. Concatenating
// the parts in order reproduces the original byte for byte. A tree with no
// oversize files comes back untouched, which makes the pass idempotent.
func (s *splitter) SplitTree(ctx context.Context, root string) (*Result, error) {
	var oversize []string
	err := afero.Walk(s.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if info.IsDir() {
			if info.Name() == gitDirName {
				return filepath.SkipDir
			}

			return nil
		}

		if info.Size() > s.cfg.Threshold {
			oversize = append(oversize, path)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cannot scan %s: %w", root, err)
	}

	result := &Result{}
	for _, path := range oversize {
		manifest, err := s.splitFile(path)
		if err != nil {
			return nil, err
		}

		result.Files = append(result.Files, SplitFile{Path: path, Manifest: *manifest})

		if err := s.patchUpdateManifest(path, manifest); err != nil {
			return nil, err
		}
	}

	return result, nil
}

func (s *splitter) splitFile(path string) (*entity.SplitManifest, error) {
	sum, size, err := util.HashFile(s.fs, path)
	if err != nil {
		return nil, err
	}

	parts := int((size + s.cfg.ChunkSize - 1) / s.cfg.ChunkSize)
	if max := maxParts(s.cfg.SuffixWidth); parts > max {
		return nil, fmt.Errorf("%s needs %d parts but suffix width %d allows at most %d: %w",
			path, parts, s.cfg.SuffixWidth, max, common.ErrBadConfig)
	}

	manifestParts, err := s.writeParts(path, parts)
	if err != nil {
		return nil, err
	}

	// The original must go or the verifier would reject the tree it came
	// from.
	if err := s.fs.Remove(path); err != nil {
		return nil, fmt.Errorf("cannot remove %s: %w", path, err)
	}

	manifest := &entity.SplitManifest{
		OriginalFile:   filepath.Base(path),
		OriginalSHA256: sum,
		OriginalSize:   size,
		Parts:          manifestParts,
	}

	if err := util.WriteJSON(s.fs, path+PartsManifestSuffix, manifest); err != nil {
		return nil, err
	}

	s.log.Info("Split file",
		slog.String("path", path),
		slog.Int64("size", size),
		slog.Int("parts", len(manifestParts)))

	return manifest, nil
}

func (s *splitter) writeParts(path string, parts int) ([]entity.ManifestPart, error) {
	src, err := s.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", path, err)
	}
	defer src.Close()

	out := make([]entity.ManifestPart, 0, parts)
	for i := 0; i < parts; i++ {
		name := fmt.Sprintf("%s.part%0*d", filepath.Base(path), s.cfg.SuffixWidth, i)

		written, sum, err := s.writePart(src, filepath.Join(filepath.Dir(path), name))
		if err != nil {
			return nil, err
		}

		out = append(out, entity.ManifestPart{File: name, SHA256: sum, Size: written})
	}

	return out, nil
}

// writePart copies up to one chunk from src into partPath, hashing while it
// writes. Only the final part of a file may come up short.
func (s *splitter) writePart(src io.Reader, partPath string) (int64, string, error) {
	dst, err := s.fs.Create(partPath)
	if err != nil {
		return 0, "", fmt.Errorf("cannot create %s: %w", partPath, err)
	}

	hasher := sha256.New()
	written, err := io.CopyN(io.MultiWriter(dst, hasher), src, s.cfg.ChunkSize)
	if err != nil && err != io.EOF {
		dst.Close()

		return 0, "", fmt.Errorf("cannot write %s: %w", partPath, err)
	}

	if err := dst.Close(); err != nil {
		return 0, "", fmt.Errorf("cannot close %s: %w", partPath, err)
	}

	return written, hex.EncodeToString(hasher.Sum(nil)), nil
}

// patchUpdateManifest merges the split outcome into the release descriptor
// shipped next to a binary-update tarball, so update clients know to fetch
// and concatenate parts. Files that are not update tarballs, and manifests
// that describe a different tarball, stay untouched.
func (s *splitter) patchUpdateManifest(path string, manifest *entity.SplitManifest) error {
	base := filepath.Base(path)

	matched, err := filepath.Match(s.cfg.UpdateGlob, base)
	if err != nil {
		return fmt.Errorf("update glob %q: %w", s.cfg.UpdateGlob, common.ErrBadConfig)
	}
	if !matched {
		return nil
	}

	manifestPath := filepath.Join(filepath.Dir(path), s.cfg.UpdateManifest)

	data, err := afero.ReadFile(s.fs, manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return fmt.Errorf("cannot read %s: %w", manifestPath, err)
	}

	var um entity.UpdateManifest
	if err := json.Unmarshal(data, &um); err != nil {
		s.log.Warn("Unparseable update manifest left untouched",
			slog.String("path", manifestPath),
			slog.Any("error", err))

		return nil
	}

	if um.Tarball != base {
		return nil
	}

	um.Split = true
	um.PartsManifest = base + PartsManifestSuffix
	um.Parts = manifest.Parts

	if err := util.WriteJSON(s.fs, manifestPath, &um); err != nil {
		return err
	}

	s.log.Info("Patched update manifest", slog.String("path", manifestPath))

	return nil
}

func maxParts(width int) int {
	max := 1
	for i := 0; i < width; i++ {
		max *= 10
	}

	return max
}
