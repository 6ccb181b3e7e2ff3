package config

import "medrag/internal/keywords"

var defaultCategories = []string{"Articles", "Cases", "Guidelines", "Handbooks", "Textbooks"}

var defaultSpecialists = []SpecialistConfig{
	{Name: "cardiologist", Role: "You are a cardiologist.", DataDir: "data/processed/cardiology"},
	{Name: "dermatologist", Role: "You are a dermatologist.", DataDir: "data/processed/dermatology"},
	{Name: "surgeon", Role: "You are a surgeon.", DataDir: "data/processed/surgery"},
}

// Default returns a fully populated configuration.
func Default() *AppConfig {
	cfg := &AppConfig{
		Paths: PathsConfig{
			RawDir:       "data/raw",
			ProcessedDir: "data/processed/cardiology",
			Categories:   append([]string(nil), defaultCategories...),
		},
		Chunker:     ChunkerConfig{ChunkWords: 200, OverlapWords: 30},
		Keywords:    KeywordsConfig{TopK: 15, MaxTextChars: 200_000, MinWordsForTFIDF: 80, Defaults: append([]string(nil), keywords.DefaultKeywords...)},
		Summary:     SummaryConfig{TargetSentences: 6, WordBudget: 180, CharLimit: 1200, MinSentenceChars: 20},
		Embedder:    EmbedderConfig{Type: "tfidf", BatchSize: 32},
		VectorStore: VectorStoreConfig{Type: "memory"},
		LLM:         LLMConfig{Type: "openai", RequestsPerMin: 60},
		Specialists: append([]SpecialistConfig(nil), defaultSpecialists...),
		Retrieval:   RetrievalConfig{TopK: 3, IndexSummaries: true},
		Workers:     4,
		TimeoutSecs: 60,
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if len(cfg.Paths.Include) == 0 {
		cfg.Paths.Include = []string{"*.txt", "*.pdf", "*.html", "*.htm", "*.docx"}
	}
	if cfg.Paths.Categories == nil {
		cfg.Paths.Categories = append([]string(nil), defaultCategories...)
	}
	if len(cfg.Keywords.Defaults) == 0 {
		cfg.Keywords.Defaults = append([]string(nil), keywords.DefaultKeywords...)
	}
	if cfg.Keywords.TopK == 0 {
		cfg.Keywords.TopK = 15
	}
	if cfg.Keywords.MaxTextChars == 0 {
		cfg.Keywords.MaxTextChars = 200_000
	}
	if cfg.Keywords.MinWordsForTFIDF == 0 {
		cfg.Keywords.MinWordsForTFIDF = 80
	}
	if cfg.Summary.TargetSentences == 0 {
		cfg.Summary.TargetSentences = 6
	}
	if cfg.Summary.WordBudget == 0 {
		cfg.Summary.WordBudget = 180
	}
	if cfg.Summary.CharLimit == 0 {
		cfg.Summary.CharLimit = 1200
	}
	if cfg.Summary.MinSentenceChars == 0 {
		cfg.Summary.MinSentenceChars = 20
	}
	if cfg.Embedder.BatchSize == 0 {
		cfg.Embedder.BatchSize = 32
	}
	if cfg.Embedder.Type == "openai" && cfg.Embedder.OpenAI == nil {
		cfg.Embedder.OpenAI = &OpenAIConfig{}
	}
	if cfg.Embedder.OpenAI != nil {
		applyOpenAIDefaults(cfg.Embedder.OpenAI, "text-embedding-3-small", 30)
	}
	if cfg.Embedder.Type == "gemini" && cfg.Embedder.Gemini == nil {
		cfg.Embedder.Gemini = &GeminiConfig{}
	}
	if cfg.Embedder.Gemini != nil {
		applyGeminiDefaults(cfg.Embedder.Gemini, "text-embedding-004")
	}
	if cfg.LLM.Type == "openai" && cfg.LLM.OpenAI == nil {
		cfg.LLM.OpenAI = &OpenAIConfig{}
	}
	if cfg.LLM.Type == "gemini" && cfg.LLM.Gemini == nil {
		cfg.LLM.Gemini = &GeminiConfig{}
	}
	if cfg.LLM.OpenAI != nil {
		applyOpenAIDefaults(cfg.LLM.OpenAI, "gpt-4o", 120)
	}
	if cfg.LLM.Gemini != nil {
		applyGeminiDefaults(cfg.LLM.Gemini, "gemini-2.0-flash")
	}
	if cfg.LLM.RequestsPerMin == 0 {
		cfg.LLM.RequestsPerMin = 60
	}
	if cfg.VectorStore.Type == "sqlite" && cfg.VectorStore.SQLite == nil {
		cfg.VectorStore.SQLite = &SQLiteConfig{}
	}
	if cfg.VectorStore.SQLite != nil && cfg.VectorStore.SQLite.Path == "" {
		cfg.VectorStore.SQLite.Path = "data/vectorized/vectors.db"
	}
	if cfg.VectorStore.Type == "qdrant" && cfg.VectorStore.Qdrant == nil {
		cfg.VectorStore.Qdrant = &QdrantConfig{}
	}
	if cfg.VectorStore.Qdrant != nil && cfg.VectorStore.Qdrant.URL == "" {
		cfg.VectorStore.Qdrant.URL = "http://localhost:6333"
	}
	if cfg.VectorStore.Qdrant != nil && cfg.VectorStore.Qdrant.CollectionPrefix == "" {
		cfg.VectorStore.Qdrant.CollectionPrefix = "medrag_"
	}
	if cfg.Specialists == nil {
		cfg.Specialists = append([]SpecialistConfig(nil), defaultSpecialists...)
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 3
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.TimeoutSecs == 0 {
		cfg.TimeoutSecs = 60
	}
}

func applyOpenAIDefaults(c *OpenAIConfig, model string, timeoutSecs int) {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = "OPENAI_API_KEY"
	}
	if c.Model == "" {
		c.Model = model
	}
	if c.TimeoutSecs == 0 {
		c.TimeoutSecs = timeoutSecs
	}
}

func applyGeminiDefaults(c *GeminiConfig, model string) {
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = "GEMINI_API_KEY"
	}
	if c.Model == "" {
		c.Model = model
	}
}
