package searcher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filescope/filescope/internal/storage"
	"github.com/filescope/filescope/pkg/types"
)

// fakeStore returns canned prong results and records the filters it saw.
type fakeStore struct {
	vectorHits []storage.VectorHit
	textHits   []storage.TextHit
	metaFiles  []*storage.File
	folders    []*storage.Folder

	filesByID     map[int64]*storage.File
	foldersByPath map[string]*storage.Folder

	vectorErr error
	textErr   error
	folderErr error
	metaErr   error

	lastFilters storage.MetadataFilters
}

func (f *fakeStore) InsertFile(context.Context, *storage.File) (int64, error) { return 0, nil }
func (f *fakeStore) FileExists(context.Context, string) (bool, error)        { return false, nil }
func (f *fakeStore) GetFileByID(_ context.Context, id int64) (*storage.File, error) {
	if file, ok := f.filesByID[id]; ok {
		return file, nil
	}
	return nil, storage.ErrNotFound
}
func (f *fakeStore) GetFilesByIDs(_ context.Context, ids []int64) ([]*storage.File, error) {
	var out []*storage.File
	for _, id := range ids {
		if file, ok := f.filesByID[id]; ok {
			out = append(out, file)
		}
	}
	return out, nil
}
func (f *fakeStore) CountFiles(context.Context) (int, error)                  { return 0, nil }
func (f *fakeStore) UpsertFolder(context.Context, *storage.Folder) (int64, error) {
	return 0, nil
}
func (f *fakeStore) GetFolderByPath(_ context.Context, path string) (*storage.Folder, error) {
	if folder, ok := f.foldersByPath[path]; ok {
		return folder, nil
	}
	return nil, storage.ErrNotFound
}
func (f *fakeStore) SearchFoldersByName(context.Context, string, int) ([]*storage.Folder, error) {
	return f.folders, f.folderErr
}
func (f *fakeStore) UpdateFolderScores(context.Context) error { return nil }
func (f *fakeStore) CountFolders(context.Context) (int, error) {
	return 0, nil
}
func (f *fakeStore) InsertVector(context.Context, int64, string, []float32) error { return nil }
func (f *fakeStore) VectorSearch(context.Context, []float32, int) ([]storage.VectorHit, error) {
	return f.vectorHits, f.vectorErr
}
func (f *fakeStore) TextSearch(context.Context, string, int) ([]storage.TextHit, error) {
	return f.textHits, f.textErr
}
func (f *fakeStore) MetadataSearch(_ context.Context, filters storage.MetadataFilters, _ int) ([]*storage.File, error) {
	f.lastFilters = filters
	return f.metaFiles, f.metaErr
}
func (f *fakeStore) Status(context.Context) (*storage.Status, error) { return &storage.Status{}, nil }
func (f *fakeStore) Close() error                                    { return nil }
func (f *fakeStore) BeginTx(context.Context) (storage.Tx, error) {
	return nil, errors.New("not supported")
}

// fakeQueryEmbedder satisfies the embedder interface with a fixed vector.
type fakeQueryEmbedder struct {
	calls int
	err   error
}

func (f *fakeQueryEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}
func (f *fakeQueryEmbedder) Dimension() int   { return 3 }
func (f *fakeQueryEmbedder) Provider() string { return "fake" }
func (f *fakeQueryEmbedder) Close() error     { return nil }

func testFile(id int64, name, path string) *storage.File {
	return &storage.File{ID: id, Name: name, Path: path, Score: 5.0}
}

func TestSearch_HybridBoost(t *testing.T) {
	store := &fakeStore{
		vectorHits: []storage.VectorHit{
			{FileID: 1, ChunkText: "tax return details", Distance: 0.2},
			{FileID: 2, ChunkText: "unrelated", Distance: 0.2},
		},
		textHits: []storage.TextHit{
			{FileID: 1, BM25Score: 0.8, Snippet: "...tax..."},
		},
		filesByID: map[int64]*storage.File{
			1: testFile(1, "taxes.md", "/docs/taxes.md"),
			2: testFile(2, "other.md", "/docs/other.md"),
		},
	}

	s := New(store, &fakeQueryEmbedder{}, nil)
	resp, err := s.Search(context.Background(), Request{Query: "tax details please tell me", Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)

	// file 1 matched both prongs: hybrid kind and ranked above file 2
	first := resp.Results[0]
	assert.Equal(t, types.FileResultID(1), first.ID)
	assert.Equal(t, types.MatchHybrid, first.Match.Kind)
	assert.Positive(t, first.Match.VectorScore)
	assert.Positive(t, first.Match.TextScore)

	var second *types.SearchResult
	for i := range resp.Results {
		if resp.Results[i].ID == types.FileResultID(2) {
			second = &resp.Results[i]
		}
	}
	require.NotNil(t, second)
	assert.Equal(t, types.MatchVector, second.Match.Kind)
	assert.Greater(t, first.RelevanceScore, second.RelevanceScore)
}

func TestSearch_HybridNeverRanksBelowSingleProng(t *testing.T) {
	// Both files are equally close vector matches; file 1 additionally has
	// a very weak text hit. The extra signal must never cost it rank.
	store := &fakeStore{
		vectorHits: []storage.VectorHit{
			{FileID: 1, ChunkText: "invoice totals", Distance: 0.2},
			{FileID: 2, ChunkText: "invoice summary", Distance: 0.2},
		},
		textHits: []storage.TextHit{
			{FileID: 1, BM25Score: 0.01},
		},
		filesByID: map[int64]*storage.File{
			1: testFile(1, "a.pdf", "/docs/a.pdf"),
			2: testFile(2, "b.pdf", "/other/b.pdf"),
		},
	}

	s := New(store, &fakeQueryEmbedder{}, nil)
	resp, err := s.Search(context.Background(), Request{Query: "where are my invoice totals", Limit: 10})
	require.NoError(t, err)

	scores := make(map[string]float64)
	for _, r := range resp.Results {
		if r.ResultType == types.ResultFile {
			scores[r.ID] = r.RelevanceScore
		}
	}
	require.Contains(t, scores, types.FileResultID(1))
	require.Contains(t, scores, types.FileResultID(2))
	assert.GreaterOrEqual(t, scores[types.FileResultID(1)], scores[types.FileResultID(2)])
}

func TestSearch_FolderScoreGrowsWithMatchCount(t *testing.T) {
	files := map[int64]*storage.File{}
	var hits []storage.TextHit
	for i := int64(1); i <= 5; i++ {
		files[i] = testFile(i, "n.md", "/many/n"+string(rune('0'+i))+".md")
		hits = append(hits, storage.TextHit{FileID: i, BM25Score: 0.5})
	}
	for i := int64(6); i <= 7; i++ {
		files[i] = testFile(i, "n.md", "/few/n"+string(rune('0'+i))+".md")
		hits = append(hits, storage.TextHit{FileID: i, BM25Score: 0.5})
	}
	store := &fakeStore{
		textHits:  hits,
		filesByID: files,
		foldersByPath: map[string]*storage.Folder{
			"/many": {ID: 10, Name: "many", Path: "/many", Score: 5.0},
			"/few":  {ID: 11, Name: "few", Path: "/few", Score: 5.0},
		},
	}

	s := New(store, &fakeQueryEmbedder{}, nil)
	resp, err := s.Search(context.Background(), Request{Query: "notes scattered across folders", Limit: 50})
	require.NoError(t, err)

	folderScores := make(map[string]float64)
	for _, r := range resp.Results {
		if r.ResultType == types.ResultFolder {
			folderScores[r.Path] = r.RelevanceScore
		}
	}
	require.Contains(t, folderScores, "/many")
	require.Contains(t, folderScores, "/few")
	assert.Greater(t, folderScores["/many"], folderScores["/few"])
}

func TestSearch_DegradesOnProngFailure(t *testing.T) {
	store := &fakeStore{
		vectorErr: errors.New("qdrant unreachable"),
		textHits: []storage.TextHit{
			{FileID: 1, BM25Score: 0.9, Snippet: "budget"},
		},
		filesByID: map[int64]*storage.File{
			1: testFile(1, "budget.xlsx", "/docs/budget.xlsx"),
		},
	}

	s := New(store, &fakeQueryEmbedder{}, nil)
	resp, err := s.Search(context.Background(), Request{Query: "budget", Limit: 10})
	require.NoError(t, err)
	assert.Contains(t, resp.Degraded, "vector")
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, types.MatchText, resp.Results[0].Match.Kind)
}

func TestSearch_AllProngsFailed(t *testing.T) {
	boom := errors.New("database locked")
	store := &fakeStore{
		vectorErr: boom, textErr: boom, folderErr: boom, metaErr: boom,
	}

	s := New(store, &fakeQueryEmbedder{}, nil)
	_, err := s.Search(context.Background(), Request{Query: "anything", Limit: 10})
	assert.Error(t, err)
}

func TestSearch_EmptyQuery(t *testing.T) {
	s := New(&fakeStore{}, &fakeQueryEmbedder{}, nil)
	_, err := s.Search(context.Background(), Request{Query: ""})
	assert.Error(t, err)
}

func TestSearch_FolderSynthesis(t *testing.T) {
	store := &fakeStore{
		textHits: []storage.TextHit{
			{FileID: 1, BM25Score: 0.9},
			{FileID: 2, BM25Score: 0.8},
		},
		filesByID: map[int64]*storage.File{
			1: testFile(1, "q1.xlsx", "/finance/reports/q1.xlsx"),
			2: testFile(2, "q2.xlsx", "/finance/reports/q2.xlsx"),
		},
		foldersByPath: map[string]*storage.Folder{
			"/finance/reports": {ID: 7, Name: "reports", Path: "/finance/reports", Score: 6.0},
		},
	}

	s := New(store, &fakeQueryEmbedder{}, nil)
	resp, err := s.Search(context.Background(), Request{Query: "quarterly numbers overview", Limit: 10})
	require.NoError(t, err)

	var folder *types.SearchResult
	for i := range resp.Results {
		if resp.Results[i].ResultType == types.ResultFolder {
			folder = &resp.Results[i]
		}
	}
	require.NotNil(t, folder, "expected a synthesized folder result")
	assert.Equal(t, types.FolderResultID(7), folder.ID)
	assert.Equal(t, types.MatchFolder, folder.Match.Kind)
}

func TestSearch_MetadataFiltersForwarded(t *testing.T) {
	store := &fakeStore{
		filesByID: map[int64]*storage.File{},
	}
	s := New(store, &fakeQueryEmbedder{}, nil)

	_, err := s.Search(context.Background(), Request{Query: "budget type:xlsx by:alice", Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, []string{"xlsx"}, store.lastFilters.Extensions)
	assert.Equal(t, "alice", store.lastFilters.Author)
	assert.Equal(t, "budget", store.lastFilters.NameQuery)
}

func TestSearch_LimitTruncation(t *testing.T) {
	files := make(map[int64]*storage.File)
	var hits []storage.TextHit
	for i := int64(1); i <= 20; i++ {
		files[i] = testFile(i, "f.md", "/docs/f.md")
		hits = append(hits, storage.TextHit{FileID: i, BM25Score: 0.5})
	}
	store := &fakeStore{textHits: hits, filesByID: files}

	s := New(store, &fakeQueryEmbedder{}, nil)
	resp, err := s.Search(context.Background(), Request{Query: "notes please show everything", Limit: 3})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 3)
}

func TestSearch_QueryEmbeddingCached(t *testing.T) {
	emb := &fakeQueryEmbedder{}
	store := &fakeStore{filesByID: map[int64]*storage.File{}}
	s := New(store, emb, nil)

	for i := 0; i < 3; i++ {
		_, err := s.Search(context.Background(), Request{Query: "same question again please", Limit: 5})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, emb.calls)
}
