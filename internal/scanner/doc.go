// Package scanner drives the indexing pipeline.
//
// A scan runs in stages: discover files via the rule-driven walker,
// extract and score each file, build embedding units, embed them over a
// worker pool, persist files and vectors in batched transactions, then
// upsert folder rows and recompute folder scores.
//
// Two discovery modes exist. ModeRules walks only the user's included
// paths with the full rule set and extracts content. ModeAllRoots walks
// every filesystem root with exclusions only and indexes metadata,
// building a name-searchable picture of the whole machine without
// reading file contents.
//
// Only one scan runs at a time; concurrent requests fail fast with
// ErrScanInProgress. Per-file extraction failures degrade that file to
// metadata-only indexing. Embedding failures abort the scan outright.
package scanner
