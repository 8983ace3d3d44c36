package integration

import (
	"context"
	"crypto/sha256"
	"encoding/binary"

	"github.com/filescope/filescope/internal/embedder"
)

// MockEmbedder produces deterministic unit vectors from a text hash so
// the pipeline can run without a live embedding provider.
type MockEmbedder struct {
	dimension int
}

// NewMockEmbedder creates a mock embedder with the given dimension.
func NewMockEmbedder(dimension int) *MockEmbedder {
	return &MockEmbedder{dimension: dimension}
}

// EmbedBatch generates one deterministic vector per input text.
func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := embedder.ValidateBatch(texts); err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		hash := sha256.Sum256([]byte(text))
		vector := make([]float32, m.dimension)
		for j := 0; j < m.dimension; j++ {
			idx := (j * 4) % 32
			val := binary.BigEndian.Uint32(hash[idx : idx+4])
			vector[j] = (float32(val)/float32(1<<32))*2 - 1
		}
		out[i] = embedder.NormalizeVector(vector)
	}
	return out, nil
}

// Dimension returns the embedding dimension.
func (m *MockEmbedder) Dimension() int { return m.dimension }

// Provider returns the provider name.
func (m *MockEmbedder) Provider() string { return "mock" }

// Close releases resources (no-op for mock).
func (m *MockEmbedder) Close() error { return nil }
