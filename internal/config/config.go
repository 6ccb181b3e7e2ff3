package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"medrag/internal/domain"
)

// PathsConfig locates raw sources and processed document directories.
type PathsConfig struct {
	RawDir       string   `yaml:"raw_dir"`
	ProcessedDir string   `yaml:"processed_dir"`
	Categories   []string `yaml:"categories"`
	Include      []string `yaml:"include"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	ChunkWords   int `yaml:"chunk_words"`
	OverlapWords int `yaml:"overlap_words"`
}

// KeywordsConfig configures keyword extraction.
type KeywordsConfig struct {
	TopK             int      `yaml:"top_k"`
	MaxTextChars     int      `yaml:"max_text_chars"`
	MinWordsForTFIDF int      `yaml:"min_words_for_tfidf"`
	Defaults         []string `yaml:"defaults"`
}

// SummaryConfig configures the extractive summarizer.
type SummaryConfig struct {
	TargetSentences  int `yaml:"target_sentences"`
	WordBudget       int `yaml:"word_budget"`
	CharLimit        int `yaml:"char_limit"`
	MinSentenceChars int `yaml:"min_sentence_chars"`
}

// OpenAIConfig holds configuration for OpenAI-compatible endpoints.
type OpenAIConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// GeminiConfig holds configuration for the Google Generative AI client.
type GeminiConfig struct {
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type           string        `yaml:"type"`
	BatchSize      int           `yaml:"batch_size"`
	RequestsPerMin int           `yaml:"requests_per_min"`
	OpenAI         *OpenAIConfig `yaml:"openai,omitempty"`
	Gemini         *GeminiConfig `yaml:"gemini,omitempty"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
	SQLite *SQLiteConfig `yaml:"sqlite,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL              string `yaml:"url"`
	APIKey           string `yaml:"api_key"`
	CollectionPrefix string `yaml:"collection_prefix"`
	TimeoutSecs      int    `yaml:"timeout_secs"`
}

// SQLiteConfig points at the persistent vector database.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// LLMConfig selects the routing and answer-generation backend.
type LLMConfig struct {
	Type           string        `yaml:"type"`
	RequestsPerMin int           `yaml:"requests_per_min"`
	OpenAI         *OpenAIConfig `yaml:"openai,omitempty"`
	Gemini         *GeminiConfig `yaml:"gemini,omitempty"`
}

// SpecialistConfig names one specialist and the processed corpus backing it.
type SpecialistConfig struct {
	Name    string `yaml:"name"`
	Role    string `yaml:"role"`
	DataDir string `yaml:"data_dir"`
}

// RetrievalConfig configures query-time ranking.
type RetrievalConfig struct {
	TopK           int  `yaml:"top_k"`
	IndexSummaries bool `yaml:"index_summaries"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Paths       PathsConfig        `yaml:"paths"`
	Chunker     ChunkerConfig      `yaml:"chunker"`
	Keywords    KeywordsConfig     `yaml:"keywords"`
	Summary     SummaryConfig      `yaml:"summary"`
	Embedder    EmbedderConfig     `yaml:"embedder"`
	VectorStore VectorStoreConfig  `yaml:"vector_store"`
	LLM         LLMConfig          `yaml:"llm"`
	Specialists []SpecialistConfig `yaml:"specialists"`
	Retrieval   RetrievalConfig    `yaml:"retrieval"`
	Workers     int                `yaml:"workers"`
	TimeoutSecs int                `yaml:"timeout_secs"`
}

// Timeout bounds a single call to an external collaborator.
func (c *AppConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	cfg := Default()
	// Unmarshalling over the defaults keeps unset sections populated.
	cfg.Specialists = nil
	cfg.Paths.Categories = nil
	cfg.Keywords.Defaults = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/medrag/config.yaml.
// If neither exists, it writes defaults to ~/.config/medrag/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "medrag", "config.yaml"), nil
}

// Validate rejects parameter combinations that cannot make progress.
func (c *AppConfig) Validate() error {
	if c.Chunker.ChunkWords <= 0 {
		return fmt.Errorf("%w: chunk_words must be > 0, got %d", domain.ErrConfig, c.Chunker.ChunkWords)
	}
	if c.Chunker.OverlapWords < 0 {
		return fmt.Errorf("%w: overlap_words must be >= 0, got %d", domain.ErrConfig, c.Chunker.OverlapWords)
	}
	if c.Chunker.OverlapWords >= c.Chunker.ChunkWords {
		return fmt.Errorf("%w: overlap_words (%d) must be < chunk_words (%d)", domain.ErrConfig, c.Chunker.OverlapWords, c.Chunker.ChunkWords)
	}
	if c.Keywords.TopK < 0 {
		return fmt.Errorf("%w: keywords.top_k must be >= 0", domain.ErrConfig)
	}
	for _, kw := range c.Keywords.Defaults {
		if strings.Contains(strings.ToLower(kw), "keywords") {
			return fmt.Errorf("%w: default keyword %q contains the reserved word", domain.ErrConfig, kw)
		}
	}
	if c.Summary.CharLimit < 2 {
		return fmt.Errorf("%w: summary.char_limit must be >= 2", domain.ErrConfig)
	}
	seen := make(map[string]struct{}, len(c.Specialists))
	for _, sp := range c.Specialists {
		name := strings.ToLower(strings.TrimSpace(sp.Name))
		if name == "" {
			return fmt.Errorf("%w: specialist without a name", domain.ErrConfig)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: duplicate specialist %q", domain.ErrConfig, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}
