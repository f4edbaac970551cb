package util

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

func HashBytes(data []byte) string {
	hasher := sha256.New()
	hasher.Write(data)

	return hex.EncodeToString(hasher.Sum(nil))
}

// HashFile streams path through sha256 and reports the byte count hashed, so
// large artifacts never have to fit in memory.
func HashFile(fs afero.Fs, path string) (string, int64, error) {
	file, err := fs.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("cannot open %s: %w", path, err)
	}
	defer file.Close()

	hasher := sha256.New()
	size, err := io.Copy(hasher, file)
	if err != nil {
		return "", 0, fmt.Errorf("cannot hash %s: %w", path, err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), size, nil
}

// EncodeJSON renders v with two-space indentation and HTML escaping off.
// Rebuilding unchanged input must produce identical bytes, so everything the
// pipeline publishes goes through here.
func EncodeJSON(v any) ([]byte, error) {
	buf := bytes.Buffer{}
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("cannot encode json: %w", err)
	}

	return buf.Bytes(), nil
}

func WriteJSON(fs afero.Fs, path string, v any) error {
	data, err := EncodeJSON(v)
	if err != nil {
		return fmt.Errorf("cannot encode %s: %w", path, err)
	}

	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", filepath.Dir(path), err)
	}

	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}

	return nil
}

func CopyFile(fs afero.Fs, src, dst string) error {
	in, err := fs.Open(src)
	if err != nil {
		return fmt.Errorf("cannot open %s: %w", src, err)
	}
	defer in.Close()

	if err := fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", filepath.Dir(dst), err)
	}

	out, err := fs.Create(dst)
	if err != nil {
		return fmt.Errorf("cannot create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()

		return fmt.Errorf("cannot copy %s to %s: %w", src, dst, err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("cannot close %s: %w", dst, err)
	}

	return nil
}

// CopyDir copies the tree rooted at src into dst and returns the number of
// files written.
func CopyDir(fs afero.Fs, src, dst string) (int, error) {
	copied := 0
	err := afero.Walk(fs, src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}

		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return fs.MkdirAll(target, 0o755)
		}

		if err := CopyFile(fs, path, target); err != nil {
			return err
		}
		copied++

		return nil
	})
	if err != nil {
		return copied, fmt.Errorf("cannot copy %s to %s: %w", src, dst, err)
	}

	return copied, nil
}
