package services

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// pdfMagic is the required prefix of every stored file.
var pdfMagic = []byte("%PDF")

// ObjectStorage abstracts where uploaded PDFs live. Fetch returns the
// raw bytes for a previously stored fileKey.
type ObjectStorage interface {
	Store(fileName string, r io.Reader) (fileKey, path, hash string, size int64, err error)
	Fetch(fileKey string) ([]byte, error)
}

// LocalStorage keeps uploads on the local filesystem under a base
// directory, one file per fileKey. Writes go to a temp file first and
// are renamed into place so a crashed upload never leaves a partial
// object behind.
type LocalStorage struct {
	baseDir string
}

func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

// Store persists the upload and returns the generated fileKey, the
// on-disk path, the md5 content hash and the byte size. Content that
// does not start with the PDF magic bytes is rejected.
func (ls *LocalStorage) Store(fileName string, r io.Reader) (string, string, string, int64, error) {
	fileKey := generateFileKey(fileName)
	finalPath := filepath.Join(ls.baseDir, fileKey)

	tmp, err := os.CreateTemp(ls.baseDir, ".upload-*")
	if err != nil {
		return "", "", "", 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	header := make([]byte, len(pdfMagic))
	if _, err := io.ReadFull(r, header); err != nil {
		tmp.Close()
		return "", "", "", 0, fmt.Errorf("read upload header: %w", err)
	}
	if !bytes.Equal(header, pdfMagic) {
		tmp.Close()
		return "", "", "", 0, fmt.Errorf("not a PDF file")
	}

	hasher := md5.New()
	size, err := io.Copy(io.MultiWriter(tmp, hasher), io.MultiReader(bytes.NewReader(header), r))
	if err != nil {
		tmp.Close()
		return "", "", "", 0, fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", "", "", 0, fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", "", "", 0, fmt.Errorf("finalize upload: %w", err)
	}

	return fileKey, finalPath, fmt.Sprintf("%x", hasher.Sum(nil)), size, nil
}

// Fetch reads back a stored object by its fileKey.
func (ls *LocalStorage) Fetch(fileKey string) ([]byte, error) {
	// fileKey is server-generated, but never follow path separators.
	if strings.ContainsAny(fileKey, `/\`) || strings.Contains(fileKey, "..") {
		return nil, fmt.Errorf("invalid file key %q", fileKey)
	}
	data, err := os.ReadFile(filepath.Join(ls.baseDir, fileKey))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fileKey, err)
	}
	return data, nil
}

// generateFileKey builds a unique, filesystem-safe key that still
// carries the original name for debuggability.
func generateFileKey(fileName string) string {
	base := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if len(base) > 40 {
		base = base[:40]
	}
	return fmt.Sprintf("%d-%s-%s.pdf", time.Now().Unix(), uuid.NewString()[:8], base)
}
