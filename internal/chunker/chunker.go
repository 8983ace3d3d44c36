package chunker

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	// ChunkWordCount is the number of words per content chunk
	ChunkWordCount = 200

	// MinChunkChars filters out chunks too short to embed usefully
	MinChunkChars = 50
)

// FileText is the per-file input to Build: the file's path plus whatever
// content the extractor produced (possibly empty for metadata-only files).
type FileText struct {
	Path    string
	Content string
}

// MetadataString renders a file's filesystem metadata as a single searchable
// sentence. It is always the first embedding unit for a file, so files with
// no extractable content still match on name, folder, and extension.
func MetadataString(path string) string {
	name := filepath.Base(path)
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	parent := filepath.Base(filepath.Dir(path))
	if parent == "." || parent == string(filepath.Separator) {
		parent = ""
	}

	return fmt.Sprintf("filename: %s stem: %s extension: %s path: %s parent_folder: %s folder_hierarchy: %s drive: %s",
		name, stem, ext, path, parent, folderHierarchy(path), DriveOf(path))
}

// folderHierarchy joins the directory components of path with " > ".
// A leading volume name becomes "drive_C:" and the root separator "root".
func folderHierarchy(path string) string {
	dir := filepath.Dir(path)
	vol := filepath.VolumeName(dir)

	var parts []string
	if vol != "" {
		parts = append(parts, "drive_"+vol)
		dir = dir[len(vol):]
	}
	dir = filepath.ToSlash(dir)
	if strings.HasPrefix(dir, "/") {
		parts = append(parts, "root")
	}
	for _, comp := range strings.Split(dir, "/") {
		if comp != "" && comp != "." {
			parts = append(parts, comp)
		}
	}
	return strings.Join(parts, " > ")
}

// DriveOf returns the volume name of path, or "unknown" on volume-less
// filesystems.
func DriveOf(path string) string {
	if vol := filepath.VolumeName(path); vol != "" {
		return vol
	}
	return "unknown"
}

// ChunkWords splits text into fixed-size word windows, dropping chunks at
// or under MinChunkChars. Whitespace runs collapse to single spaces.
func ChunkWords(text string, wordsPerChunk int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	for start := 0; start < len(words); start += wordsPerChunk {
		end := start + wordsPerChunk
		if end > len(words) {
			end = len(words)
		}
		chunk := strings.Join(words[start:end], " ")
		if len(chunk) > MinChunkChars {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

// Build produces the flat list of embedding units for a batch of files and
// a per-file index into that list. Each file contributes its metadata
// string followed by its content chunks; perFile[i] holds the unit indices
// belonging to files[i].
func Build(files []FileText) (units []string, perFile [][]int) {
	perFile = make([][]int, len(files))
	for i, f := range files {
		indices := []int{len(units)}
		units = append(units, MetadataString(f.Path))
		for _, chunk := range ChunkWords(f.Content, ChunkWordCount) {
			indices = append(indices, len(units))
			units = append(units, chunk)
		}
		perFile[i] = indices
	}
	return units, perFile
}
