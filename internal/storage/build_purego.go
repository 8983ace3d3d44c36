//go:build purego || !sqlite_vec
// +build purego !sqlite_vec

package storage

// Compiled without CGO. No C compiler needed and the binary
// cross-compiles freely; vector search falls back to a Go-side cosine
// scan over the stored chunk embeddings, which is fine for smaller
// indexes.
//
//	CGO_ENABLED=0 go build -tags "purego" ./...

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to register connections under.
	DriverName = "sqlite"

	// VectorExtensionAvailable reports whether sqlite-vec is compiled in.
	VectorExtensionAvailable = false

	// BuildMode names the build configuration for status output.
	BuildMode = "purego"
)
