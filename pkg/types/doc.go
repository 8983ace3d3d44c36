// Package types provides shared type definitions for filescope.
//
// This package defines the domain types used across the scanner and searcher
// components: file categories, include/exclude rules, search results, and
// progress reporting.
//
// # File Categories
//
// FileCategory classifies files by extension and drives both content
// extraction and importance scoring:
//
//	cat := types.CategoryForExtension("pdf") // CategoryDocument
//
// # Rules
//
// Rule represents a single include or exclude directive. Rules are grouped
// into four categories (path, folder, extension, filename) and materialized
// as case-insensitive StringSets before a scan:
//
//	rule := &types.Rule{
//	    Category: types.RuleExtension,
//	    Type:     types.RuleInclude,
//	    Value:    "md",
//	}
//
// # Search Results
//
// SearchResult combines a file or folder hit with relevance scoring and the
// match provenance (vector, text, metadata, folder, or hybrid). Result IDs
// are stable strings of the form "file-<rowid>" / "folder-<rowid>".
//
// # Progress
//
// ProgressFunc is the fire-and-forget callback used by long-running scans;
// a nil callback is valid and reporting through it is always safe:
//
//	var cb types.ProgressFunc
//	cb.Report(10, 100, "/data/report.pdf", types.StageScanning)
package types
