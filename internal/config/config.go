// Package config loads filescope configuration from the environment, with
// optional .env file support.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/joho/godotenv"
)

// StorageBackend selects the persistence realization.
type StorageBackend string

const (
	BackendSQLite StorageBackend = "sqlite"
	BackendQdrant StorageBackend = "qdrant"
)

// Config holds all runtime configuration.
type Config struct {
	// Storage
	Backend      StorageBackend
	DatabasePath string
	QdrantHost   string
	QdrantPort   int
	QdrantColl   string

	// Embedding
	EmbedProvider string // "ollama" or "openai"
	EmbedModel    string
	EmbedBaseURL  string
	EmbedAPIKey   string
	EmbedDim      int
	EmbedWorkers  int
	EmbedBatch    int

	// Extraction
	MaxTextFileBytes int64
	MaxPDFPages      int
	MaxCSVRows       int
	MaxContentChars  int

	// Discovery
	MaxDepth int
}

// Load reads configuration from the environment. A .env file in the working
// directory or any parent is applied first; missing files are not an error.
func Load() (*Config, error) {
	loadDotEnv()

	cfg := &Config{
		Backend:          StorageBackend(getEnv("FILESCOPE_BACKEND", string(BackendSQLite))),
		DatabasePath:     getEnv("FILESCOPE_DB_PATH", defaultDBPath()),
		QdrantHost:       getEnv("QDRANT_HOST", "localhost"),
		QdrantPort:       getEnvInt("QDRANT_PORT", 6334),
		QdrantColl:       getEnv("QDRANT_COLLECTION", "filescope_chunks"),
		EmbedProvider:    getEnv("FILESCOPE_EMBED_PROVIDER", "ollama"),
		EmbedModel:       getEnv("FILESCOPE_EMBED_MODEL", "nomic-embed-text"),
		EmbedBaseURL:     getEnv("FILESCOPE_EMBED_URL", "http://localhost:11434"),
		EmbedAPIKey:      getEnv("OPENAI_API_KEY", ""),
		EmbedDim:         getEnvInt("FILESCOPE_EMBED_DIM", 768),
		EmbedWorkers:     getEnvInt("FILESCOPE_EMBED_WORKERS", runtime.NumCPU()),
		EmbedBatch:       getEnvInt("FILESCOPE_EMBED_BATCH", 10),
		MaxTextFileBytes: int64(getEnvInt("FILESCOPE_MAX_TEXT_BYTES", 10*1024*1024)),
		MaxPDFPages:      getEnvInt("FILESCOPE_MAX_PDF_PAGES", 25),
		MaxCSVRows:       getEnvInt("FILESCOPE_MAX_CSV_ROWS", 1000),
		MaxContentChars:  getEnvInt("FILESCOPE_MAX_CONTENT_CHARS", 100000),
		MaxDepth:         getEnvInt("FILESCOPE_MAX_DEPTH", 0),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSQLite, BackendQdrant:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Backend)
	}
	switch c.EmbedProvider {
	case "ollama", "openai":
	default:
		return fmt.Errorf("unknown embedding provider %q", c.EmbedProvider)
	}
	if c.EmbedProvider == "openai" && c.EmbedAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY required for the openai provider")
	}
	if c.EmbedDim <= 0 {
		return fmt.Errorf("embedding dimension must be positive, got %d", c.EmbedDim)
	}
	if c.EmbedWorkers <= 0 {
		return fmt.Errorf("embedding workers must be positive, got %d", c.EmbedWorkers)
	}
	return nil
}

// loadDotEnv walks from the working directory toward the root looking for a
// .env file and loads the first one found.
func loadDotEnv() {
	dir, err := os.Getwd()
	if err != nil {
		return
	}
	for {
		candidate := filepath.Join(dir, ".env")
		if _, err := os.Stat(candidate); err == nil {
			_ = godotenv.Load(candidate)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "filescope.db"
	}
	return filepath.Join(home, ".filescope", "filescope.db")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
