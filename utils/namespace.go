package utils

import (
	"regexp"
	"strings"
)

var (
	nonASCIIRegex   = regexp.MustCompile(`[^\x00-\x7F]+`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
	namespaceRegex  = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)
)

// DeriveNamespace maps a file key to its vector index namespace.
// It is the single derivation used by both the ingestion (upsert) path and the
// retrieval (query) path; the two must always agree, so neither path is allowed
// to build a namespace string any other way.
//
// Non-ASCII characters are dropped, whitespace becomes "_", everything outside
// [a-zA-Z0-9_-] is removed, and the result is lowercased. The output therefore
// only ever contains [a-z0-9_-].
func DeriveNamespace(fileKey string) string {
	s := nonASCIIRegex.ReplaceAllString(fileKey, "")
	s = whitespaceRegex.ReplaceAllString(s, "_")
	s = namespaceRegex.ReplaceAllString(s, "")
	return strings.ToLower(s)
}
