package verify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/spf13/afero"
	"github.com/storegen/storegen/internal/common"
	"github.com/storegen/storegen/internal/config"
	"github.com/stretchr/testify/require"
)

func testVerifier(fs afero.Fs, threshold int64) *verifier {
	cfg := &config.Config{}
	cfg.SetDefaults()
	cfg.Split.Threshold = threshold

	log := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))

	return NewVerifier(fs, &cfg.Split, log)
}

func TestVerifyCleanTree(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/deploy/apps.json", make([]byte, 100), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/deploy/packages/a.pkg", make([]byte, 256), 0o644))

	err := testVerifier(fs, 256).Verify(context.Background(), "/deploy")
	require.NoError(t, err)
}

func TestVerifyReportsAllOffenders(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/deploy/packages/a.pkg", make([]byte, 300), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/deploy/packages/b.pkg", make([]byte, 400), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/deploy/ok.txt", make([]byte, 10), 0o644))

	err := testVerifier(fs, 256).Verify(context.Background(), "/deploy")
	require.Error(t, err)
	require.True(t, errors.Is(err, common.ErrIntegrity))
	require.Contains(t, err.Error(), "a.pkg")
	require.Contains(t, err.Error(), "b.pkg")
	require.Contains(t, err.Error(), "2 file(s)")
}

func TestVerifyIgnoresGitDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/deploy/.git/objects/pack/huge.pack", make([]byte, 1000), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/deploy/index.html", make([]byte, 10), 0o644))

	err := testVerifier(fs, 256).Verify(context.Background(), "/deploy")
	require.NoError(t, err)
}
