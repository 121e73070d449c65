package services

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"strings"
	"testing"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	ls, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}

	content := []byte("%PDF-1.4 fake pdf body")
	fileKey, path, hash, size, err := ls.Store("Quarterly Report.pdf", bytes.NewReader(content))
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if size != int64(len(content)) {
		t.Errorf("size = %d, want %d", size, len(content))
	}
	if want := fmt.Sprintf("%x", md5.Sum(content)); hash != want {
		t.Errorf("hash = %q, want %q", hash, want)
	}
	if path == "" || !strings.HasSuffix(fileKey, ".pdf") {
		t.Errorf("fileKey = %q, path = %q", fileKey, path)
	}
	if strings.ContainsAny(fileKey, " /\\") {
		t.Errorf("fileKey %q contains unsafe characters", fileKey)
	}

	got, err := ls.Fetch(fileKey)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Error("fetched content differs from stored content")
	}
}

func TestLocalStorageRejectsNonPDF(t *testing.T) {
	ls, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	if _, _, _, _, err := ls.Store("notes.pdf", strings.NewReader("plain text, not a pdf")); err == nil {
		t.Error("expected rejection of non-PDF content")
	}
}

func TestLocalStorageFetchRejectsTraversal(t *testing.T) {
	ls, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	for _, key := range []string{"../etc/passwd", "a/b.pdf", `a\b.pdf`, "..\\x"} {
		if _, err := ls.Fetch(key); err == nil {
			t.Errorf("Fetch(%q) should be rejected", key)
		}
	}
}

func TestLocalStorageDistinctKeys(t *testing.T) {
	ls, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	content := []byte("%PDF-1.4 same content")
	k1, _, _, _, err := ls.Store("same.pdf", bytes.NewReader(content))
	if err != nil {
		t.Fatalf("first Store: %v", err)
	}
	k2, _, _, _, err := ls.Store("same.pdf", bytes.NewReader(content))
	if err != nil {
		t.Fatalf("second Store: %v", err)
	}
	if k1 == k2 {
		t.Errorf("two uploads of the same name share fileKey %q", k1)
	}
}
