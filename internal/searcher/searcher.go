package searcher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/filescope/filescope/internal/embedder"
	"github.com/filescope/filescope/internal/storage"
	"github.com/filescope/filescope/pkg/types"
)

const (
	// overFetchFactor widens each prong's fetch so fusion has enough
	// candidates to rerank before truncating to the requested limit.
	overFetchFactor = 2

	// minFolderMembers is how many matched files a directory needs
	// before it is synthesized into a folder result.
	minFolderMembers = 2

	defaultLimit = 10
	maxLimit     = 100

	queryCacheSize = 1000
)

// Request contains parameters for a search operation
type Request struct {
	Query string
	Limit int
}

// Response contains fused search results and diagnostics.
type Response struct {
	Results  []types.SearchResult
	Intent   Intent
	Duration time.Duration
	Degraded []string // prongs that failed and were skipped
}

// Searcher fans a query out over four prongs (vector, text, folder,
// metadata) and fuses the hits with intent-dependent weights.
type Searcher struct {
	store   storage.Store
	emb     embedder.Embedder
	weights WeightTable
	qcache  *lru.Cache[[32]byte, []float32]
	logger  *slog.Logger
}

// New creates a Searcher with the default weight table.
func New(store storage.Store, emb embedder.Embedder, logger *slog.Logger) *Searcher {
	if logger == nil {
		logger = slog.Default()
	}
	qcache, err := lru.New[[32]byte, []float32](queryCacheSize)
	if err != nil {
		// Only reachable with a non-positive size
		panic(fmt.Sprintf("create query cache: %v", err))
	}
	return &Searcher{
		store:   store,
		emb:     emb,
		weights: DefaultWeightTable(),
		qcache:  qcache,
		logger:  logger,
	}
}

// SetWeights replaces the weight table. Not safe to call concurrently
// with Search.
func (s *Searcher) SetWeights(t WeightTable) {
	s.weights = t
}

// prongResult carries one prong's hits to the fusion stage.
type prongResult struct {
	name    string
	vector  []storage.VectorHit
	text    []storage.TextHit
	files   []*storage.File
	folders []*storage.Folder
	err     error
}

// Search runs the full pipeline: parse, classify, fan out, fuse, rank.
// Individual prong failures degrade the result set; the search fails
// only when every prong fails.
func (s *Searcher) Search(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	if req.Query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if req.Limit <= 0 {
		req.Limit = defaultLimit
	}
	if req.Limit > maxLimit {
		req.Limit = maxLimit
	}

	parsed := ParseQuery(req.Query)
	intent := ClassifyIntent(parsed)
	weights := s.weights.For(intent)
	fetch := req.Limit * overFetchFactor

	terms := parsed.Terms
	if terms == "" {
		terms = parsed.Raw
	}

	prongs := []struct {
		name string
		run  func(context.Context) prongResult
	}{
		{"vector", func(ctx context.Context) prongResult {
			vec, err := s.embedQuery(ctx, terms)
			if err != nil {
				return prongResult{name: "vector", err: err}
			}
			hits, err := s.store.VectorSearch(ctx, vec, fetch)
			return prongResult{name: "vector", vector: hits, err: err}
		}},
		{"text", func(ctx context.Context) prongResult {
			hits, err := s.store.TextSearch(ctx, terms, fetch)
			return prongResult{name: "text", text: hits, err: err}
		}},
		{"folder", func(ctx context.Context) prongResult {
			folders, err := s.store.SearchFoldersByName(ctx, terms, fetch)
			return prongResult{name: "folder", folders: folders, err: err}
		}},
		{"metadata", func(ctx context.Context) prongResult {
			filters := storage.MetadataFilters{
				NameQuery:  parsed.NameTerms(),
				Author:     parsed.Author,
				Extensions: parsed.Extensions,
				DateFrom:   parsed.DateFrom,
				DateTo:     parsed.DateTo,
			}
			files, err := s.store.MetadataSearch(ctx, filters, fetch)
			return prongResult{name: "metadata", files: files, err: err}
		}},
	}

	results := make([]prongResult, len(prongs))
	var wg sync.WaitGroup
	for i, p := range prongs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = p.run(ctx)
		}()
	}
	wg.Wait()

	var degraded []string
	failures := 0
	for _, r := range results {
		if r.err != nil {
			failures++
			degraded = append(degraded, r.name)
			s.logger.Warn("search prong failed", "prong", r.name, "error", r.err)
		}
	}
	if failures == len(results) {
		return nil, fmt.Errorf("all search prongs failed: %w", results[0].err)
	}

	fused, err := s.fuse(ctx, results, weights)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(fused, func(i, j int) bool {
		return fused[i].RelevanceScore > fused[j].RelevanceScore
	})
	if len(fused) > req.Limit {
		fused = fused[:req.Limit]
	}

	return &Response{
		Results:  fused,
		Intent:   intent,
		Duration: time.Since(start),
		Degraded: degraded,
	}, nil
}

// embedQuery embeds a query, serving repeats from the LRU cache.
func (s *Searcher) embedQuery(ctx context.Context, query string) ([]float32, error) {
	key := sha256.Sum256([]byte(query))
	if vec, ok := s.qcache.Get(key); ok {
		return vec, nil
	}

	vectors, err := s.emb.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	vec := embedder.NormalizeVector(vectors[0])
	s.qcache.Add(key, vec)
	return vec, nil
}

// fileScores accumulates per-file evidence before result construction.
type fileScores struct {
	vectorScore float64 // weighted, 0 when unmatched
	textScore   float64
	metaScore   float64
	snippet     string
}

// fuse merges prong hits into ranked results. Files found by both vector
// and text search get the hybrid boost. Directories containing two or
// more matched files are synthesized as folder results alongside those
// returned by the folder prong.
func (s *Searcher) fuse(ctx context.Context, prongs []prongResult, w Weights) ([]types.SearchResult, error) {
	byFile := make(map[int64]*fileScores)
	get := func(id int64) *fileScores {
		fs, ok := byFile[id]
		if !ok {
			fs = &fileScores{}
			byFile[id] = fs
		}
		return fs
	}

	var folderHits []*storage.Folder
	for _, p := range prongs {
		if p.err != nil {
			continue
		}
		for _, hit := range p.vector {
			fs := get(hit.FileID)
			fs.vectorScore = w.Vector * (1.0 - hit.Distance)
			if fs.snippet == "" {
				fs.snippet = snippetOf(hit.ChunkText)
			}
		}
		for _, hit := range p.text {
			fs := get(hit.FileID)
			fs.textScore = w.Text * hit.BM25Score
			if hit.Snippet != "" {
				fs.snippet = hit.Snippet
			}
		}
		for _, file := range p.files {
			fs := get(file.ID)
			// metadata relevance comes from the importance score
			fs.metaScore = w.Metadata * (file.Score / 10.0)
		}
		folderHits = append(folderHits, p.folders...)
	}

	ids := make([]int64, 0, len(byFile))
	for id := range byFile {
		ids = append(ids, id)
	}
	files, err := s.store.GetFilesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load matched files: %w", err)
	}

	results := make([]types.SearchResult, 0, len(files)+len(folderHits))
	memberDirs := make(map[string][]float64)
	for _, file := range files {
		fs := byFile[file.ID]

		// Agreement between vector and text search is boosted, so a
		// two-prong match always outranks either prong alone.
		score := fs.vectorScore + fs.textScore + fs.metaScore
		kind := matchKind(fs)
		if kind == types.MatchHybrid {
			score = (fs.vectorScore+fs.textScore)*w.HybridBoost + fs.metaScore
		}

		results = append(results, types.SearchResult{
			ID:             types.FileResultID(file.ID),
			ResultType:     types.ResultFile,
			Title:          file.Name,
			Path:           file.Path,
			RelevanceScore: score,
			Snippet:        fs.snippet,
			Match: types.MatchInfo{
				Kind:        kind,
				VectorScore: fs.vectorScore,
				TextScore:   fs.textScore,
			},
		})

		dir := filepath.Dir(file.Path)
		memberDirs[dir] = append(memberDirs[dir], score)
	}

	seenFolders := make(map[string]bool)
	for _, folder := range folderHits {
		seenFolders[folder.Path] = true
		results = append(results, types.SearchResult{
			ID:             types.FolderResultID(folder.ID),
			ResultType:     types.ResultFolder,
			Title:          folder.Name,
			Path:           folder.Path,
			RelevanceScore: w.Folder * (folder.Score / 10.0),
			Match:          types.MatchInfo{Kind: types.MatchFolder},
		})
	}

	// Synthesize folders that concentrate several matched files.
	for dir, scores := range memberDirs {
		if len(scores) < minFolderMembers || seenFolders[dir] {
			continue
		}
		folder, err := s.store.GetFolderByPath(ctx, dir)
		if err != nil {
			continue // directory not indexed, skip
		}
		// Summing member scores keeps the folder score growing with
		// the number of matched files, not just their quality.
		var sum float64
		for _, sc := range scores {
			sum += sc
		}
		results = append(results, types.SearchResult{
			ID:             types.FolderResultID(folder.ID),
			ResultType:     types.ResultFolder,
			Title:          folder.Name,
			Path:           folder.Path,
			RelevanceScore: w.Folder * sum,
			Match:          types.MatchInfo{Kind: types.MatchFolder},
		})
	}

	return results, nil
}

func matchKind(fs *fileScores) types.MatchKind {
	switch {
	case fs.vectorScore > 0 && fs.textScore > 0:
		return types.MatchHybrid
	case fs.vectorScore > 0:
		return types.MatchVector
	case fs.textScore > 0:
		return types.MatchText
	default:
		return types.MatchMetadata
	}
}

const maxSnippetLen = 160

func snippetOf(text string) string {
	if len(text) <= maxSnippetLen {
		return text
	}
	return text[:maxSnippetLen] + "..."
}
