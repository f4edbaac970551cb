package verify

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/storegen/storegen/internal/common"
	"github.com/storegen/storegen/internal/config"
)

const gitDirName = ".git"

// Violation is one file still exceeding the publish size limit.
type Violation struct {
	Path string
	Size int64
}

type verifier struct {
	fs  afero.Fs
	cfg *config.SplitConfig
	log *slog.Logger
}

func NewVerifier(fs afero.Fs, cfg *config.SplitConfig, log *slog.Logger) *verifier {
	return &verifier{
		fs:  fs,
		cfg: cfg,
		log: log.With(slog.String("service", "verify")),
	}
}

// Verify re-walks the finished tree and rejects it if any file could still
// be refused by the publish host. It runs after splitting as the last line
// of defense before the tree ships, and reports every offender at once.
func (v *verifier) Verify(ctx context.Context, root string) error {
	var violations []Violation
	err := afero.Walk(v.fs, root, func(path string, info os.FileInfo, err error) error {
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

		if info.Size() > v.cfg.Threshold {
			violations = append(violations, Violation{Path: path, Size: info.Size()})
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("cannot walk %s: %w", root, err)
	}

	if len(violations) == 0 {
		v.log.Info("Publish tree verified",
			slog.String("root", root),
			slog.Int64("threshold", v.cfg.Threshold))

		return nil
	}

	lines := make([]string, 0, len(violations))
	for _, violation := range violations {
		v.log.Error("File exceeds publish threshold",
			slog.String("path", violation.Path),
			slog.Int64("size", violation.Size))
		lines = append(lines, fmt.Sprintf("%s (%d bytes)", violation.Path, violation.Size))
	}

	return fmt.Errorf("%d file(s) exceed %d bytes: %s: %w",
		len(violations), v.cfg.Threshold, strings.Join(lines, ", "), common.ErrIntegrity)
}
