package split

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/spf13/afero"
	"github.com/storegen/storegen/internal/common"
	"github.com/storegen/storegen/internal/config"
	"github.com/storegen/storegen/internal/entity"
	"github.com/storegen/storegen/internal/util"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func testSplitter(fs afero.Fs, threshold, chunkSize int64) *splitter {
	cfg := &config.Config{}
	cfg.SetDefaults()
	cfg.Split.Threshold = threshold
	cfg.Split.ChunkSize = chunkSize

	return NewSplitter(fs, &cfg.Split, testLogger())
}

// payload returns deterministic non-repeating bytes so shifted or reordered
// chunks cannot hash alike.
func payload(n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(i % 251)
	}

	return buf
}

func TestSplitTreeRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	original := payload(1100)
	require.NoError(t, afero.WriteFile(fs, "/deploy/packages/big.pkg", original, 0o644))

	s := testSplitter(fs, 256, 200)

	result, err := s.SplitTree(context.Background(), "/deploy")
	require.NoError(t, err)
	require.Equal(t, 1, result.Count())

	manifest := result.Files[0].Manifest
	require.Equal(t, "big.pkg", manifest.OriginalFile)
	require.Equal(t, util.HashBytes(original), manifest.OriginalSHA256)
	require.Equal(t, int64(1100), manifest.OriginalSize)
	require.Len(t, manifest.Parts, 6)

	// The original is gone; the manifest sits next to the parts.
	exists, err := afero.Exists(fs, "/deploy/packages/big.pkg")
	require.NoError(t, err)
	require.False(t, exists)

	var onDisk entity.SplitManifest
	data, err := afero.ReadFile(fs, "/deploy/packages/big.pkg.parts.json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &onDisk))
	require.Equal(t, manifest, onDisk)

	// Concatenating the parts in manifest order reproduces the original.
	var rebuilt []byte
	var total int64
	for i, part := range manifest.Parts {
		chunk, err := afero.ReadFile(fs, "/deploy/packages/"+part.File)
		require.NoError(t, err)
		require.Equal(t, util.HashBytes(chunk), part.SHA256)
		require.Equal(t, int64(len(chunk)), part.Size)

		if i < len(manifest.Parts)-1 {
			require.Equal(t, int64(200), part.Size)
		}

		rebuilt = append(rebuilt, chunk...)
		total += part.Size
	}

	require.Equal(t, int64(100), manifest.Parts[len(manifest.Parts)-1].Size)
	require.Equal(t, manifest.OriginalSize, total)
	require.Equal(t, original, rebuilt)
	require.Equal(t, manifest.OriginalSHA256, util.HashBytes(rebuilt))
}

func TestSplitTreePartNames(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/deploy/big.pkg", payload(230), 0o644))

	s := testSplitter(fs, 95, 90)

	result, err := s.SplitTree(context.Background(), "/deploy")
	require.NoError(t, err)

	parts := result.Files[0].Manifest.Parts
	require.Len(t, parts, 3)
	require.Equal(t, "big.pkg.part00", parts[0].File)
	require.Equal(t, "big.pkg.part01", parts[1].File)
	require.Equal(t, "big.pkg.part02", parts[2].File)
	require.Equal(t, int64(90), parts[0].Size)
	require.Equal(t, int64(90), parts[1].Size)
	require.Equal(t, int64(50), parts[2].Size)
}

func TestSplitTreeNoOversize(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := payload(100)
	require.NoError(t, afero.WriteFile(fs, "/deploy/ok.pkg", content, 0o644))

	s := testSplitter(fs, 256, 200)

	result, err := s.SplitTree(context.Background(), "/deploy")
	require.NoError(t, err)
	require.Equal(t, 0, result.Count())

	data, err := afero.ReadFile(fs, "/deploy/ok.pkg")
	require.NoError(t, err)
	require.Equal(t, content, data)
}

func TestSplitTreeIdempotent(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/deploy/big.pkg", payload(1000), 0o644))

	s := testSplitter(fs, 256, 200)

	first, err := s.SplitTree(context.Background(), "/deploy")
	require.NoError(t, err)
	require.Equal(t, 1, first.Count())

	// Every part is already below the threshold, so a second pass is a
	// no-op.
	second, err := s.SplitTree(context.Background(), "/deploy")
	require.NoError(t, err)
	require.Equal(t, 0, second.Count())
}

func TestSplitTreeSuffixWidthOverflow(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/deploy/big.pkg", payload(150), 0o644))

	cfg := &config.Config{}
	cfg.SetDefaults()
	cfg.Split.Threshold = 10
	cfg.Split.ChunkSize = 8
	cfg.Split.SuffixWidth = 1

	s := NewSplitter(fs, &cfg.Split, testLogger())

	_, err := s.SplitTree(context.Background(), "/deploy")
	require.Error(t, err)
	require.True(t, errors.Is(err, common.ErrBadConfig))
}

func TestSplitTreeSkipsGitDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/deploy/.git/objects/pack/huge.pack", payload(1000), 0o644))

	s := testSplitter(fs, 256, 200)

	result, err := s.SplitTree(context.Background(), "/deploy")
	require.NoError(t, err)
	require.Equal(t, 0, result.Count())
}

func TestSplitTreePatchesUpdateManifest(t *testing.T) {
	fs := afero.NewMemMapFs()
	tarball := payload(4000)
	require.NoError(t, afero.WriteFile(fs, "/deploy/updates/update-1.2.3.tar.gz", tarball, 0o644))

	um := entity.UpdateManifest{
		Build:     42,
		Channel:   "stable",
		Tarball:   "update-1.2.3.tar.gz",
		SHA256:    util.HashBytes(tarball),
		Size:      4000,
		Timestamp: 1700000000,
	}
	data, err := json.Marshal(um)
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, "/deploy/updates/update.json", data, 0o644))

	// Only the tarball crosses the threshold; the manifest stays well under
	// it even after patching.
	s := testSplitter(fs, 2048, 1500)

	result, err := s.SplitTree(context.Background(), "/deploy")
	require.NoError(t, err)
	require.Equal(t, 1, result.Count())

	patched, err := afero.ReadFile(fs, "/deploy/updates/update.json")
	require.NoError(t, err)

	var got entity.UpdateManifest
	require.NoError(t, json.Unmarshal(patched, &got))
	require.True(t, got.Split)
	require.Equal(t, "update-1.2.3.tar.gz.parts.json", got.PartsManifest)
	require.Len(t, got.Parts, 3)
	// Untouched descriptor fields survive the patch.
	require.Equal(t, int64(42), got.Build)
	require.Equal(t, "stable", got.Channel)
	require.Equal(t, util.HashBytes(tarball), got.SHA256)
}

func TestSplitTreeIgnoresForeignManifest(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/deploy/updates/update-2.0.0.tar.gz", payload(4000), 0o644))

	um := entity.UpdateManifest{Tarball: "update-1.0.0.tar.gz"}
	data, err := json.Marshal(um)
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, "/deploy/updates/update.json", data, 0o644))

	s := testSplitter(fs, 2048, 1500)

	_, err = s.SplitTree(context.Background(), "/deploy")
	require.NoError(t, err)

	after, err := afero.ReadFile(fs, "/deploy/updates/update.json")
	require.NoError(t, err)
	require.Equal(t, data, after)
}

func TestSplitTreeNonTarballSkipsManifest(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/deploy/packages/big.pkg", payload(300), 0o644))

	s := testSplitter(fs, 100, 80)

	result, err := s.SplitTree(context.Background(), "/deploy")
	require.NoError(t, err)
	require.Equal(t, 1, result.Count())

	exists, err := afero.Exists(fs, "/deploy/packages/update.json")
	require.NoError(t, err)
	require.False(t, exists)
}
