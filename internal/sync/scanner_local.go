package sync

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/text/unicode/norm"
)

// LocalScanner walks a local directory tree and produces a LocalSnapshot.
type LocalScanner struct {
	logger *slog.Logger
	ignore *IgnoreMatcher
}

// NewLocalScanner creates a scanner that additionally excludes paths
// matching ignore (may be nil).
func NewLocalScanner(logger *slog.Logger, ignore *IgnoreMatcher) *LocalScanner {
	if logger == nil {
		logger = slog.Default()
	}

	return &LocalScanner{logger: logger, ignore: ignore}
}

// Scan walks root and returns a LocalSnapshot. root is created if it does
// not exist, returning an empty snapshot in that case. Scan fails with a
// wrapped error only when root cannot be created or its top level cannot
// be listed.
func (s *LocalScanner) Scan(root string) (LocalSnapshot, error) {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		if err := os.MkdirAll(root, 0o700); err != nil {
			return nil, fmt.Errorf("local scan: creating sync root %q: %w", root, err)
		}

		return LocalSnapshot{}, nil
	}

	snapshot := make(LocalSnapshot)

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return fmt.Errorf("local scan: walking sync root %q: %w", root, err)
			}

			s.logger.Warn("local scan: skipping entry", slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}

		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			s.logger.Warn("local scan: cannot relativize path", slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}

		slashPath := norm.NFC.String(filepath.ToSlash(rel))

		if excluded(slashPath, s.ignore) {
			if d.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		if d.IsDir() {
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		entry, err := s.hashFile(path)
		if err != nil {
			s.logger.Warn("local scan: failed to hash file, treating as always-different",
				slog.String("path", slashPath), slog.String("error", err.Error()))

			entry = LocalEntry{Hash: ""}
		}

		snapshot[slashPath] = entry

		return nil
	})
	if err != nil {
		return nil, err
	}

	return snapshot, nil
}

func (s *LocalScanner) hashFile(path string) (LocalEntry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return LocalEntry{}, fmt.Errorf("stat: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return LocalEntry{}, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return LocalEntry{}, fmt.Errorf("hash: %w", err)
	}

	return LocalEntry{
		Hash:  hex.EncodeToString(h.Sum(nil)),
		Size:  info.Size(),
		Mtime: info.ModTime(),
	}, nil
}
