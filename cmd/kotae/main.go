// Package main is the kotae CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/kotae/internal/chat"
	"github.com/hyperjump/kotae/internal/cli"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/ingest"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/registry"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/watcher"
	"github.com/hyperjump/kotae/pkg/utils"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/kotae/config.yaml"
	defaultServerURL  = "http://localhost:8090"
)

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used, so that "kotae server" from the project dir uses the project's
// config (including debug). Returns the config and the path actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// Secrets (the Gemini API key) come from the environment; a .env in the
	// working directory is a convenience for development.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ask":
		runAsk()
	case "ingest":
		runIngest()
	case "sessions":
		runSessions()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("kotae version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (ingestion, retrieval, watcher events)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ing := components.Ingestor
	var watchSvc *watcher.Watcher
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if len(cfg.Watch.Directories) > 0 {
		watchOpts := []watcher.Option{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		watchSvc = watcher.New(
			cfg.Watch.Directories,
			cfg.Ingest.Extensions,
			cfg.Watch.RecursiveOrDefault(),
			func(sessionID, path string) {
				if _, err := ing.IngestFile(context.Background(), sessionID, path); err != nil {
					logger.Warn("watch ingest failed",
						zap.String("session_id", sessionID),
						zap.String("path", path),
						zap.Error(err))
				}
			},
			watchOpts...,
		)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		watchSvc.SyncExisting()
	}

	srv := server.NewServer(
		components.Chat,
		components.Ingestor,
		components.Storage,
		components.Registry,
		components.Extractor,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if cfg.Storage.SessionIndexPath != "" {
		if err := components.Registry.Save(cfg.Storage.SessionIndexPath); err != nil {
			logger.Warn("session index save failed",
				zap.String("path", cfg.Storage.SessionIndexPath), zap.Error(err))
		}
	}
	if watchSvc != nil {
		watchSvc.Stop()
	}
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// buildQuestion joins all positional args with spaces so multi-word questions
// work the same with or without shell quoting.
func buildQuestion(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// askArgsReorder moves any flags (and their values) that appear after the
// question to the front of the slice so that flag.Parse() sees them. Go's
// flag package stops at the first non-flag argument.
func askArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func printAskUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: kotae ask [flags] <question>\n\n")
	fmt.Fprintf(fs.Output(), "Question is all remaining arguments joined by spaces.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  kotae ask --session hackathon when does registration close
  kotae ask "what are the prizes"                     # combined view over all sessions
  kotae ask --conversation 7f3a... "and the venue?"   # continue a conversation
  kotae ask --sources --output json "who organizes it"
`)
}

func runAsk() {
	askArgs := askArgsReorder(os.Args[2:])

	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = answer locally without the server)")
	sessionID := fs.String("session", "", "session to query (empty = combined view over all sessions)")
	conversationID := fs.String("conversation", "", "conversation id for multi-turn memory (server mode)")
	topK := fs.Int("k", 0, "number of chunks to retrieve (0 = server default)")
	sources := fs.Bool("sources", false, "include source chunks in the output")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printAskUsage(fs) }
	_ = fs.Parse(askArgs)

	if fs.NArg() < 1 {
		printAskUsage(fs)
		os.Exit(1)
	}
	question := buildQuestion(fs.Args())
	if question == "" {
		printAskUsage(fs)
		os.Exit(1)
	}

	format := cli.OutputText
	switch *outputFormat {
	case "json":
		format = cli.OutputJSON
	case "text":
		format = cli.OutputText
	default:
		fmt.Printf("Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}

	if *serverURL != "" {
		resp, err := askViaHTTP(*serverURL, &models.ChatRequest{
			Question:       question,
			SessionID:      *sessionID,
			ConversationID: *conversationID,
			TopK:           *topK,
			IncludeSources: *sources,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
		answer := &models.Answer{Text: resp.Answer, Sources: resp.Sources}
		if err := cli.WriteAnswer(os.Stdout, answer, resp.QueryTime, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		if *conversationID == "" && format == cli.OutputText {
			fmt.Printf("(conversation %s)\n", resp.ConversationID)
		}
		return
	}

	// Local mode: build the components in-process and answer directly.
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	var sess *chat.Session
	if *sessionID != "" {
		sess, err = components.Chat.Open(*sessionID, *topK)
	} else {
		sess, err = components.Chat.OpenCombined(*topK)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
		os.Exit(1)
	}

	start := time.Now()
	answer, err := sess.Ask(context.Background(), question, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
		os.Exit(1)
	}
	if !*sources {
		answer = &models.Answer{Text: answer.Text}
	}
	if err := cli.WriteAnswer(os.Stdout, answer, time.Since(start).Milliseconds(), format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func askViaHTTP(serverURL string, req *models.ChatRequest) (*models.ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	sessionID := fs.String("session", "", "session to ingest into (required)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = ingest locally without the server)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if *sessionID == "" || fs.NArg() < 1 {
		fmt.Println("Usage: kotae ingest --session <id> <file-or-directory>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	format := cli.OutputText
	if *outputFormat == "json" {
		format = cli.OutputJSON
	}

	paths, err := collectFiles(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read path: %v\n", err)
		os.Exit(1)
	}
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "No files to ingest.")
		os.Exit(1)
	}

	if *serverURL != "" {
		results, err := uploadViaHTTP(*serverURL, *sessionID, paths)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteIngestResults(os.Stdout, results, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	results := make([]*models.IngestResult, 0, len(paths))
	for _, p := range paths {
		res, err := components.Ingestor.IngestFile(ctx, *sessionID, p)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ingest failed for %s: %v\n", p, err)
			os.Exit(1)
		}
		results = append(results, res)
	}
	if cfg.Storage.SessionIndexPath != "" {
		if err := components.Registry.Save(cfg.Storage.SessionIndexPath); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: session index save failed: %v\n", err)
		}
	}
	if err := cli.WriteIngestResults(os.Stdout, results, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// collectFiles returns path itself for a file, or every regular file under it
// for a directory.
func collectFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	var paths []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			paths = append(paths, p)
		}
		return nil
	})
	return paths, err
}

func uploadViaHTTP(serverURL, sessionID string, paths []string) ([]*models.IngestResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, err
		}
		part, err := mw.CreateFormFile("files", filepath.Base(p))
		if err != nil {
			f.Close()
			return nil, err
		}
		if _, err := io.Copy(part, f); err != nil {
			f.Close()
			return nil, err
		}
		f.Close()
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	resp, err := http.Post(
		serverURL+"/api/v1/sessions/"+sessionID+"/documents",
		mw.FormDataContentType(),
		&body,
	)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out struct {
		Files []*models.IngestResult `json:"files"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out.Files, nil
}

func runSessions() {
	fs := flag.NewFlagSet("sessions", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = read the local index)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format := cli.OutputText
	if *outputFormat == "json" {
		format = cli.OutputJSON
	}

	var sessions []cli.SessionSummary
	if *serverURL != "" {
		resp, err := http.Get(*serverURL + "/api/v1/sessions")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		var out struct {
			Sessions []cli.SessionSummary `json:"sessions"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
			os.Exit(1)
		}
		sessions = out.Sessions
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		reg, err := registry.New(cfg.Embedding.Dimensions)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create registry: %v\n", err)
			os.Exit(1)
		}
		if err := reg.Load(cfg.Storage.SessionIndexPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load session index: %v\n", err)
			os.Exit(1)
		}
		for _, id := range reg.IDs() {
			summary := cli.SessionSummary{SessionID: id}
			if idx, ok := reg.Get(id); ok {
				summary.Chunks = idx.Size()
			}
			sessions = append(sessions, summary)
		}
	}

	if err := cli.WriteSessions(os.Stdout, sessions, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/api/v1/status")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var status map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		for _, key := range []string{"sessions", "documents", "chunks", "total_vectors", "disk_usage_bytes"} {
			if v, ok := status[key]; ok {
				fmt.Printf("%-18s %v\n", key+":", v)
			}
		}
		if cfgInfo, ok := status["config"].(map[string]interface{}); ok {
			fmt.Println()
			fmt.Println("# configuration")
			for k, v := range cfgInfo {
				fmt.Printf("%-22s %v\n", k+":", v)
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Storage   storage.Storage
	Embedder  embedding.Embedder
	Registry  *registry.Registry
	Extractor *extract.Extractor
	Ingestor  *ingest.Ingestor
	Chat      *chat.Manager
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	apiKey := os.Getenv(cfg.Embedding.APIKeyEnv)
	var embedder embedding.Embedder
	if cfg.Embedding.Provider == "mock" || apiKey == "" {
		if cfg.Embedding.Provider != "mock" && logger != nil {
			logger.Warn("no API key found, falling back to mock embedder",
				zap.String("env", cfg.Embedding.APIKeyEnv))
		}
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	} else {
		gemini, err := embedding.NewGeminiEmbedder(embedding.GeminiEmbedderConfig{
			APIKey:     apiKey,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Timeout:    time.Duration(cfg.Embedding.TimeoutSeconds) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
		embedder = embedding.NewCachedEmbedder(gemini, cfg.Embedding.CacheSize)
	}

	var answerer chat.Answerer
	if apiKey != "" {
		client, err := llm.NewGeminiClient(llm.GeminiConfig{
			APIKey:      apiKey,
			Model:       cfg.Chat.Model,
			Temperature: cfg.Chat.Temperature,
			Timeout:     time.Duration(cfg.Chat.TimeoutSeconds) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize generation client: %w", err)
		}
		answerer = client
	} else {
		if logger != nil {
			logger.Warn("no API key found, answers will echo retrieved context",
				zap.String("env", cfg.Embedding.APIKeyEnv))
		}
		answerer = echoAnswerer{}
	}

	reg, err := registry.New(cfg.Embedding.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session registry: %w", err)
	}
	if cfg.Storage.SessionIndexPath != "" {
		if err := reg.Load(cfg.Storage.SessionIndexPath); err != nil {
			return nil, fmt.Errorf("failed to load session index: %w", err)
		}
		if logger != nil && reg.Len() > 0 {
			logger.Info("session index loaded",
				zap.String("path", cfg.Storage.SessionIndexPath),
				zap.Int("sessions", reg.Len()))
		}
	}

	extractor := extract.NewExtractor()

	ingOpts := []ingest.IngestorOption{}
	if debug && logger != nil {
		ingOpts = append(ingOpts, ingest.WithLogger(logger))
	}
	ingestor := ingest.NewIngestor(reg, embedder, store, extractor, ingest.Config{
		ChunkSize:    cfg.Ingest.ChunkSize,
		ChunkOverlap: cfg.Ingest.ChunkOverlap,
		EmbedTimeout: time.Duration(cfg.Ingest.TimeoutSeconds) * time.Second,
		RetryBackoff: time.Duration(cfg.Chat.RetryBackoffMillis) * time.Millisecond,
	}, ingOpts...)

	chatOpts := []chat.ManagerOption{}
	if debug && logger != nil {
		chatOpts = append(chatOpts, chat.WithLogger(logger))
	}
	chatManager := chat.NewManager(reg, embedder, answerer, chat.Config{
		TopK:            cfg.Chat.TopK,
		MaxTopK:         cfg.Chat.MaxTopK,
		EmbedTimeout:    time.Duration(cfg.Embedding.TimeoutSeconds) * time.Second,
		GenerateTimeout: time.Duration(cfg.Chat.TimeoutSeconds) * time.Second,
		RetryBackoff:    time.Duration(cfg.Chat.RetryBackoffMillis) * time.Millisecond,
	}, chatOpts...)

	return &Components{
		Storage:   store,
		Embedder:  embedder,
		Registry:  reg,
		Extractor: extractor,
		Ingestor:  ingestor,
		Chat:      chatManager,
	}, nil
}

// echoAnswerer is the keyless fallback: it returns the prompt context verbatim
// so ingestion and retrieval remain testable without a provider account.
type echoAnswerer struct{}

func (echoAnswerer) Generate(ctx context.Context, prompt string) (string, error) {
	return "No generation model is configured. Retrieved context:\n" + prompt, nil
}

func printUsage() {
	fmt.Println(`kotae - conversational document QA over per-session vector indices

Usage:
  kotae server [flags]              Start the HTTP server
  kotae ask [flags] <question>      Ask a question
  kotae ingest [flags] <path>       Ingest a file or directory into a session
  kotae sessions [flags]            List sessions and index sizes
  kotae status [flags]              Show server status
  kotae version                     Show version
  kotae help                        Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kotae/config.yaml)
  --debug            Enable debug logging (ingestion, retrieval, watcher events)

Ask Flags:
  --config string        Config file path (for local mode)
  --server string        Server URL (default: http://localhost:8090). Use empty (--server "") for local mode.
  --session string       Session to query (empty = combined view over all sessions)
  --conversation string  Conversation id for multi-turn memory (server mode)
  --k int                Number of chunks to retrieve (0 = default)
  --sources              Include source chunks in the output
  --output string        Output format: text or json (default: text)

Ingest Flags:
  --config string    Config file path (for local mode)
  --server string    Server URL (default: http://localhost:8090). Use empty (--server "") for local mode.
  --session string   Session to ingest into (required)
  --output string    Output format: text or json (default: text)

Examples:
  kotae server
  kotae ingest --session hackathon ./brochures
  kotae ask --session hackathon "when does registration close?"
  kotae ask "what events am I registered for?"
  kotae sessions
  kotae status --output json`)
}
