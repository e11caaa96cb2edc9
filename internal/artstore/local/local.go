package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/vbonduro/wardrobe/internal/artstore"
)

var (
	ErrPathTraversal   = errors.New("path traversal attempt")
	ErrUnsupportedMIME = errors.New("unsupported artwork mime type")
)

// artworkExts maps every artwork MIME type the renderer can decode to the
// extension its files are stored under. Get derives the MIME type back from
// the extension, so the mapping must stay one-to-one.
var artworkExts = map[string]string{
	"image/png":   ".png",
	"image/jpeg":  ".jpg",
	"image/gif":   ".gif",
	"image/webp":  ".webp",
	"image/x-tga": ".tga",
}

type ArtworkStore struct {
	basePath string
}

func NewArtworkStore(basePath string) (*ArtworkStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create artwork directory: %w", err)
	}
	return &ArtworkStore{basePath: basePath}, nil
}

// Save writes artwork as prefix_<uuid><ext>. Types outside artworkExts are
// refused rather than stored under a guessed extension, and prefix may not
// contain a path separator.
func (s *ArtworkStore) Save(ctx context.Context, prefix, mimeType string, r io.Reader) (string, error) {
	ext, ok := artworkExts[mimeType]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMIME, mimeType)
	}
	if strings.ContainsAny(prefix, `/\`) || strings.Contains(prefix, "..") {
		return "", ErrPathTraversal
	}
	filename := fmt.Sprintf("%s_%s%s", prefix, uuid.NewString(), ext)
	filePath := filepath.Join(s.basePath, filename)

	f, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		if cerr := f.Close(); cerr != nil {
			slog.Error("failed to close file after write error", "error", cerr)
		}
		if rerr := os.Remove(filePath); rerr != nil {
			slog.Error("failed to remove file after write error", "error", rerr)
		}
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		if rerr := os.Remove(filePath); rerr != nil {
			slog.Error("failed to remove file after close error", "error", rerr)
		}
		return "", fmt.Errorf("failed to close file: %w", err)
	}
	return filename, nil
}

func (s *ArtworkStore) Get(ctx context.Context, storageKey string) (io.ReadCloser, string, error) {
	filePath, err := s.safeJoin(storageKey)
	if err != nil {
		return nil, "", err
	}

	f, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", artstore.ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to open file: %w", err)
	}
	return f, extToMimeType(filePath), nil
}

func (s *ArtworkStore) Delete(ctx context.Context, storageKey string) error {
	filePath, err := s.safeJoin(storageKey)
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return artstore.ErrNotFound
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// safeJoin resolves storageKey relative to basePath and rejects directory traversal.
func (s *ArtworkStore) safeJoin(storageKey string) (string, error) {
	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}

	absPath, err := filepath.Abs(filepath.Join(s.basePath, storageKey))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", ErrPathTraversal
	}
	return absPath, nil
}

// extToMimeType is the inverse of artworkExts. Files written by something
// other than Save fall back to a generic type the renderer will refuse.
func extToMimeType(filePath string) string {
	ext := strings.ToLower(filepath.Ext(filePath))
	if ext == ".jpeg" {
		ext = ".jpg"
	}
	for mimeType, e := range artworkExts {
		if e == ext {
			return mimeType
		}
	}
	return "application/octet-stream"
}
