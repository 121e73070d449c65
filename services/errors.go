package services

import "errors"

// Pipeline stage errors. Wrapped with %w at the failure site so callers
// can decide retry behavior per stage: download and extraction failures
// are permanent for a given file, the rest are worth retrying.
var (
	ErrDownload   = errors.New("document download failed")
	ErrExtraction = errors.New("text extraction failed")
	ErrEmbedding  = errors.New("embedding failed")
	ErrUpsert     = errors.New("vector upsert failed")
	ErrQuery      = errors.New("vector query failed")
)
