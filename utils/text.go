package utils

import (
	"crypto/md5"
	"encoding/hex"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
)

// TruncateStringByBytes truncates s to at most maxBytes bytes without ever
// splitting a multi-byte UTF-8 sequence. The result is always valid UTF-8 for
// any valid UTF-8 input.
func TruncateStringByBytes(s string, maxBytes int) string {
	if maxBytes <= 0 {
		return ""
	}
	if len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// NormalizeWhitespace collapses all whitespace runs (including embedded
// newlines from PDF extraction) into single spaces and trims the ends.
// Chunking operates on the normalized text so that layout artifacts do not
// explode chunk boundaries.
func NormalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// ChunkHash returns the stable vector ID for a chunk: the MD5 hex digest over
// the page number and the chunk text. Re-embedding identical content on the
// same page yields the same ID, making upserts idempotent, while identical
// text on different pages gets distinct IDs. MD5 is intentionally
// non-cryptographic here; the hash only identifies content within a
// namespace.
func ChunkHash(pageNumber int, text string) string {
	h := md5.New()
	io.WriteString(h, strconv.Itoa(pageNumber))
	h.Write([]byte{0})
	io.WriteString(h, text)
	return hex.EncodeToString(h.Sum(nil))
}

// QueryHash returns a short stable key for caching retrieval results.
func QueryHash(query string) string {
	sum := md5.Sum([]byte(query))
	return hex.EncodeToString(sum[:])
}
