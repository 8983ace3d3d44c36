package embedder

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder returns a vector encoding the numeric suffix of each text,
// so ordering bugs show up as wrong values.
type fakeEmbedder struct {
	dim      int
	calls    atomic.Int64
	failText string
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.calls.Add(1)
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if f.failText != "" && text == f.failText {
			return nil, errors.New("provider exploded")
		}
		n, _ := strconv.Atoi(strings.TrimPrefix(text, "text-"))
		v := make([]float32, f.dim)
		v[0] = float32(n)
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int   { return f.dim }
func (f *fakeEmbedder) Provider() string { return "fake" }
func (f *fakeEmbedder) Close() error     { return nil }

func makeTexts(n int) []string {
	texts := make([]string, n)
	for i := range texts {
		texts[i] = fmt.Sprintf("text-%d", i)
	}
	return texts
}

func TestBatcher_PreservesOrder(t *testing.T) {
	fake := &fakeEmbedder{dim: 4}
	b, err := NewBatcher(fake, 4, 10)
	require.NoError(t, err)
	defer b.Close()

	texts := makeTexts(95)
	vectors, err := b.EmbedAll(context.Background(), texts, nil)
	require.NoError(t, err)
	require.Len(t, vectors, 95)

	// vectors are normalized; v[0] > 0 implies the right source ordinal
	for i, v := range vectors {
		if i == 0 {
			assert.Equal(t, float32(0), v[0]) // zero vector stays zero
			continue
		}
		assert.Equal(t, float32(1), v[0], "index %d", i)
	}
	assert.Equal(t, int64(10), fake.calls.Load())
}

func TestBatcher_Progress(t *testing.T) {
	fake := &fakeEmbedder{dim: 4}
	b, err := NewBatcher(fake, 1, 10)
	require.NoError(t, err)
	defer b.Close()

	var last atomic.Int64
	_, err = b.EmbedAll(context.Background(), makeTexts(25), func(done, total int) {
		assert.Equal(t, 25, total)
		last.Store(int64(done))
	})
	require.NoError(t, err)
	assert.Equal(t, int64(25), last.Load())
}

func TestBatcher_FailsLoud(t *testing.T) {
	fake := &fakeEmbedder{dim: 4, failText: "text-42"}
	b, err := NewBatcher(fake, 4, 10)
	require.NoError(t, err)
	defer b.Close()

	_, err = b.EmbedAll(context.Background(), makeTexts(100), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider exploded")
}

// shortEmbedder drops the last vector of every batch.
type shortEmbedder struct {
	fakeEmbedder
}

func (s *shortEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out, err := s.fakeEmbedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	return out[:len(out)-1], nil
}

func TestBatcher_RejectsWrongVectorCount(t *testing.T) {
	b, err := NewBatcher(&shortEmbedder{fakeEmbedder{dim: 4}}, 2, 10)
	require.NoError(t, err)
	defer b.Close()

	_, err = b.EmbedAll(context.Background(), makeTexts(30), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vectors")
}

func TestBatcher_EmptyInput(t *testing.T) {
	b, err := NewBatcher(&fakeEmbedder{dim: 4}, 2, 10)
	require.NoError(t, err)
	defer b.Close()

	vectors, err := b.EmbedAll(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
}

func TestBatcher_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b, err := NewBatcher(&fakeEmbedder{dim: 4}, 2, 10)
	require.NoError(t, err)
	defer b.Close()

	vectors, err := b.EmbedAll(ctx, makeTexts(30), nil)
	if err == nil {
		// workers observed cancellation before embedding anything
		for _, v := range vectors {
			assert.Nil(t, v)
		}
	}
}
