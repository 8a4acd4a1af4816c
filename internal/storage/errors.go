package storage

import "errors"

// Store errors. Result stores are append-only: a run, its trades and its
// event log are written once and never updated.
var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicateKey  = errors.New("duplicate key: record already stored")
	ErrInvalidInput  = errors.New("invalid record")
	ErrNotConfigured = errors.New("store not configured")
)
