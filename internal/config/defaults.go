package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8090
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/kotae/data/db/documents.db"
	}
	if cfg.Storage.SessionIndexPath == "" {
		cfg.Storage.SessionIndexPath = "/usr/local/var/kotae/data/indices/sessions.vec"
	}
	if cfg.Storage.UploadDir == "" {
		cfg.Storage.UploadDir = "/usr/local/var/kotae/data/uploads"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "gemini"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "embedding-001"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 768
	}
	if cfg.Embedding.TimeoutSeconds == 0 {
		cfg.Embedding.TimeoutSeconds = 30
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = "GEMINI_API_KEY"
	}
	if cfg.Chat.Model == "" {
		cfg.Chat.Model = "gemini-1.5-flash"
	}
	if cfg.Chat.Temperature == 0 {
		cfg.Chat.Temperature = 0.5
	}
	if cfg.Chat.TopK == 0 {
		cfg.Chat.TopK = 5
	}
	if cfg.Chat.MaxTopK == 0 {
		cfg.Chat.MaxTopK = 20
	}
	if cfg.Chat.TimeoutSeconds == 0 {
		cfg.Chat.TimeoutSeconds = 60
	}
	if cfg.Chat.RetryBackoffMillis == 0 {
		cfg.Chat.RetryBackoffMillis = 500
	}
	if cfg.Ingest.ChunkSize == 0 {
		cfg.Ingest.ChunkSize = 300
	}
	if cfg.Ingest.ChunkOverlap == 0 {
		cfg.Ingest.ChunkOverlap = 30
	}
	if cfg.Ingest.TimeoutSeconds == 0 {
		cfg.Ingest.TimeoutSeconds = 30
	}
	if cfg.Ingest.Extensions == nil {
		cfg.Ingest.Extensions = []string{".pdf", ".docx", ".xlsx", ".txt", ".md"}
	}
}
