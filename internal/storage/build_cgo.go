//go:build sqlite_vec
// +build sqlite_vec

package storage

// Compiled with CGO and the sqlite_vec tag. The sqlite-vec extension
// provides native cosine distance so vector search stays inside SQLite.
//
//	CGO_ENABLED=1 go build -tags "sqlite_vec,fts5" ./...

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the SQLite driver to register connections under.
	DriverName = "sqlite3"

	// VectorExtensionAvailable reports whether sqlite-vec is compiled in.
	VectorExtensionAvailable = true

	// BuildMode names the build configuration for status output.
	BuildMode = "cgo"
)
