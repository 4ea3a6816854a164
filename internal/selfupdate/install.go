package selfupdate

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// applyUpdate writes bin next to target and renames it into place, keeping
// target's permissions. The staged file is re-hashed before the rename and
// must match expectedHash.
func applyUpdate(bin []byte, target string, expectedHash []byte) error {
	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("stat target: %w", err)
	}

	staged, err := os.CreateTemp(filepath.Dir(target), "."+binaryName+"-update-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	stagedPath := staged.Name()
	defer os.Remove(stagedPath) // no-op after a successful rename

	if _, err := staged.Write(bin); err != nil {
		staged.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := staged.Sync(); err != nil {
		staged.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := staged.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	sum, err := fileHash(stagedPath)
	if err != nil {
		return err
	}
	if !bytes.Equal(sum, expectedHash) {
		return fmt.Errorf("%w: staged binary changed after write", ErrChecksum)
	}

	if err := os.Chmod(stagedPath, info.Mode().Perm()); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}
	if err := os.Rename(stagedPath, target); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func fileHash(name string) ([]byte, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("re-read temp file: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("hash temp file: %w", err)
	}
	return h.Sum(nil), nil
}
