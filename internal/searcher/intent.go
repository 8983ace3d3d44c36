package searcher

import "strings"

// Intent classifies what kind of answer a query is after. The intent
// selects the weight profile used when fusing results from the four
// search prongs.
type Intent string

const (
	IntentKeyword        Intent = "keyword"
	IntentNaturalLang    Intent = "natural_language"
	IntentRecentActivity Intent = "recent_activity"
	IntentFileType       Intent = "file_type"
	IntentAuthor         Intent = "author"
	IntentFolder         Intent = "folder"
	IntentDate           Intent = "date"
)

var recencyWords = []string{
	"recent", "latest", "newest", "today", "yesterday",
	"last week", "last month", "this week", "this month",
}

var folderWords = []string{"folder", "folders", "directory", "directories", "dir "}

// ClassifyIntent picks an intent for a parsed query. Structured filters
// win over textual cues since the user stated them explicitly.
func ClassifyIntent(p ParsedQuery) Intent {
	lower := strings.ToLower(p.Raw)

	switch {
	case p.Author != "" || strings.Contains(lower, "authored by") || strings.Contains(lower, "created by"):
		return IntentAuthor
	case p.DateFrom != nil || p.DateTo != nil:
		return IntentDate
	case containsAny(lower, recencyWords):
		return IntentRecentActivity
	case containsAny(lower, folderWords):
		return IntentFolder
	case len(p.Extensions) > 0:
		return IntentFileType
	case len(strings.Fields(p.Terms)) <= 2:
		return IntentKeyword
	default:
		return IntentNaturalLang
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// Weights scales each search prong's contribution to the fused relevance
// score. HybridBoost multiplies results found by both vector and text
// search.
type Weights struct {
	Vector      float64
	Text        float64
	Folder      float64
	Metadata    float64
	HybridBoost float64
}

// WeightTable maps intents to weight profiles.
type WeightTable map[Intent]Weights

// DefaultWeightTable returns the built-in weight profiles. Keyword queries
// lean on exact text matching, natural language on vectors, and the
// filter-driven intents on the metadata prong.
func DefaultWeightTable() WeightTable {
	return WeightTable{
		IntentKeyword:        {Vector: 0.8, Text: 1.2, Folder: 0.6, Metadata: 0.8, HybridBoost: 1.5},
		IntentNaturalLang:    {Vector: 1.2, Text: 0.8, Folder: 0.4, Metadata: 0.4, HybridBoost: 1.5},
		IntentRecentActivity: {Vector: 0.6, Text: 0.6, Folder: 0.3, Metadata: 1.3, HybridBoost: 1.5},
		IntentFileType:       {Vector: 0.7, Text: 0.7, Folder: 0.2, Metadata: 1.3, HybridBoost: 1.5},
		IntentAuthor:         {Vector: 0.4, Text: 0.6, Folder: 0.2, Metadata: 1.4, HybridBoost: 1.5},
		IntentFolder:         {Vector: 0.5, Text: 0.5, Folder: 1.4, Metadata: 0.5, HybridBoost: 1.5},
		IntentDate:           {Vector: 0.5, Text: 0.6, Folder: 0.2, Metadata: 1.4, HybridBoost: 1.5},
	}
}

// For returns the weight profile for an intent, falling back to the
// natural language profile for unknown intents.
func (t WeightTable) For(intent Intent) Weights {
	if w, ok := t[intent]; ok {
		return w
	}
	return t[IntentNaturalLang]
}
