// Package scoring ranks files by how likely a user is to care about them.
// Scores feed the search layer as a tiebreaker and the folder aggregates.
package scoring

import (
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/filescope/filescope/pkg/types"
)

// Category base points. Documents rank highest since they are what most
// searches are after.
var categoryScores = map[types.FileCategory]float64{
	types.CategoryDocument:    4.0,
	types.CategoryCode:        3.0,
	types.CategorySpreadsheet: 3.0,
	types.CategoryDatabase:    3.0,
	types.CategoryConfig:      2.0,
	types.CategoryMedia:       1.0,
	types.CategoryArchive:     1.0,
	types.CategoryBinary:      1.0,
	types.CategoryUnknown:     0.0,
}

// Directories whose contents are almost never search targets.
var lowValueDirs = []string{"/log/", "/logs/", "/tmp/"}

// FileScore computes an importance score in [0, 10] rounded to one decimal.
// Components: category base (0-4), included-path bonus (+3), recency (0-2),
// size penalty (up to -1), and filename keyword bonus (up to +1).
func FileScore(path string, size int64, modified time.Time, includedPaths types.StringSet, now time.Time) float64 {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	category := types.CategoryForExtension(ext)

	score := categoryScores[category]
	slashPath := strings.ToLower(filepath.ToSlash(path))
	for _, dir := range lowValueDirs {
		if strings.Contains(slashPath, dir) {
			score = 0.5
			break
		}
	}

	for _, root := range includedPaths.Values() {
		if strings.HasPrefix(strings.ToLower(path), strings.ToLower(root)) {
			score += 3.0
			break
		}
	}

	score += recencyScore(now.Sub(modified))
	score += sizePenalty(size)
	score += keywordBonus(filepath.Base(path))

	if score < 0 {
		score = 0
	}
	if score > 10 {
		score = 10
	}
	return roundTenth(score)
}

func recencyScore(age time.Duration) float64 {
	switch {
	case age < 0:
		return 2.0 // future mtime, treat as fresh
	case age < 7*24*time.Hour:
		return 2.0
	case age < 30*24*time.Hour:
		return 1.5
	case age < 182*24*time.Hour:
		return 1.0
	default:
		return 0.0
	}
}

func sizePenalty(size int64) float64 {
	mb := float64(size) / (1024 * 1024)
	switch {
	case mb > 500:
		return -1.0
	case mb > 100:
		return -0.5
	default:
		return 0.0
	}
}

// keywordBonus rewards filenames that suggest deliverables, capped at 1.0.
func keywordBonus(name string) float64 {
	lower := strings.ToLower(name)
	var bonus float64
	for _, kw := range []string{"project", "report", "final", "db"} {
		if strings.Contains(lower, kw) {
			bonus += 0.5
		}
	}
	if bonus > 1.0 {
		bonus = 1.0
	}
	return bonus
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
