// Package main is the Tana CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/yonagi/tana/internal/catalog"
	"github.com/yonagi/tana/internal/cli"
	"github.com/yonagi/tana/internal/config"
	"github.com/yonagi/tana/internal/embedding"
	"github.com/yonagi/tana/internal/keyword"
	"github.com/yonagi/tana/internal/models"
	"github.com/yonagi/tana/internal/search"
	"github.com/yonagi/tana/internal/server"
	"github.com/yonagi/tana/internal/store"
	"github.com/yonagi/tana/internal/vectordb"
	"github.com/yonagi/tana/internal/watcher"
	"github.com/yonagi/tana/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/tana/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used, so "tana server" from the project dir picks up the project's
// config. Returns the config and the path actually loaded.
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
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "upsert":
		runUpsert()
	case "delete":
		runDelete()
	case "import":
		runImport()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("tana version %s\n", version)
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
	debug := fs.Bool("debug", false, "enable debug logging")
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

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	var importWatcher *watcher.Watcher
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Import.Directory != "" {
		ingestor := components.Ingestor
		importWatcher = watcher.New(cfg.Import.Directory, cfg.Import.Extensions, func(path string) {
			n, err := ingestor.ImportFile(context.Background(), path)
			if err != nil {
				logger.Warn("import failed", zap.String("path", path), zap.Error(err))
				return
			}
			logger.Info("imported dropped file", zap.String("path", path), zap.Int("entries", n))
		}, logger)
		if err := importWatcher.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start import watcher", zap.Error(err))
		}
		importWatcher.SyncExisting()
	}

	srv := server.NewServer(
		components.Engine,
		components.Ingestor,
		components.Vectors,
		components.Embedder,
		&cfg.Server,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	if importWatcher != nil {
		importWatcher.Stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// buildSearchQuery joins all positional args with spaces so multi-word
// queries work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the
// query to the front of the slice so that flag.Parse() sees them. Go's flag
// package stops at the first non-flag argument.
func searchArgsReorder(args []string) []string {
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

func runSearch() {
	searchArgs := searchArgsReorder(os.Args[2:])

	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct mode)")
	serverURL := fs.String("server", "http://localhost:8090", "server URL (empty = direct storage access)")
	table := fs.String("table", "", "vector table to search (default from config)")
	limit := fs.Int("limit", 10, "number of results")
	minScore := fs.Float64("min-score", 0, "minimum fused score")
	keywordWeight := fs.Float64("keyword-weight", 0, "keyword weight override")
	semanticWeight := fs.Float64("semantic-weight", 0, "semantic weight override")
	outputFormat := fs.String("output", "text", "output format: text, compact, or json")
	_ = fs.Parse(searchArgs)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: tana search [flags] <query>")
		os.Exit(1)
	}
	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		fmt.Fprintln(os.Stderr, "Usage: tana search [flags] <query>")
		os.Exit(1)
	}

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	query := &models.SearchQuery{
		Query:          queryStr,
		Limit:          *limit,
		Table:          *table,
		MinScore:       *minScore,
		KeywordWeight:  *keywordWeight,
		SemanticWeight: *semanticWeight,
	}

	var response *models.SearchResponse
	if *serverURL != "" {
		// Use the HTTP API when the server is running (avoids Bleve/SQLite
		// lock conflicts with the server process).
		response, err = searchViaHTTP(*serverURL, query)
	} else {
		response, err = searchDirect(*configPath, query)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func searchViaHTTP(serverURL string, query *models.SearchQuery) (*models.SearchResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func searchDirect(configPath string, query *models.SearchQuery) (*models.SearchResponse, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return nil, err
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer components.Close()

	return components.Engine.Search(context.Background(), query)
}

func runUpsert() {
	fs := flag.NewFlagSet("upsert", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8090", "server URL")
	id := fs.String("id", "", "record identifier (required)")
	text := fs.String("text", "", "text to embed server-side")
	table := fs.String("table", "", "vector table (default from server config)")
	metadata := fs.String("metadata", "", "metadata as JSON object, e.g. '{\"name\":\"Sneaker\"}'")
	_ = fs.Parse(os.Args[2:])

	if *id == "" || *text == "" {
		fmt.Fprintln(os.Stderr, "Usage: tana upsert --id <id> --text <text> [--table t] [--metadata json]")
		os.Exit(1)
	}
	req := &models.UpsertRequest{ID: *id, Text: *text, Table: *table}
	if *metadata != "" {
		if err := json.Unmarshal([]byte(*metadata), &req.Metadata); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid metadata JSON: %v\n", err)
			os.Exit(1)
		}
	}

	body, _ := json.Marshal(req)
	httpReq, err := http.NewRequest(http.MethodPut, *serverURL+"/api/v1/vectors", bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Upsert failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	fmt.Printf("Upserted: %s\n", *id)
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8090", "server URL")
	table := fs.String("table", "", "vector table")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: tana delete [flags] <id>")
		os.Exit(1)
	}
	id := fs.Arg(0)

	u := *serverURL + "/api/v1/vectors/" + url.PathEscape(id)
	if *table != "" {
		u += "?table=" + url.QueryEscape(*table)
	}
	req, err := http.NewRequest(http.MethodDelete, u, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Delete failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	fmt.Printf("Deleted: %s\n", id)
}

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: tana import [flags] <file-or-directory>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("Failed to stat path: %v\n", err)
		os.Exit(1)
	}

	total := 0
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			fmt.Printf("Failed to read directory: %v\n", err)
			os.Exit(1)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			n, err := components.Ingestor.ImportFile(ctx, filepath.Join(path, entry.Name()))
			if err != nil {
				fmt.Printf("Import failed for %s: %v\n", entry.Name(), err)
				continue
			}
			total += n
		}
	} else {
		total, err = components.Ingestor.ImportFile(ctx, path)
		if err != nil {
			fmt.Printf("Import failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("Imported %d entries from %s\n", total, path)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8090", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/api/v1/stats")
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
	var stats models.StoreStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		fmt.Fprintf(os.Stderr, "Decode response: %v\n", err)
		os.Exit(1)
	}

	format := cli.OutputText
	if *outputFormat == "json" {
		format = cli.OutputJSON
	}
	if err := cli.WriteStats(os.Stdout, &stats, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Storage      catalog.Storage
	Embedder     embedding.Embedder
	Vectors      *vectordb.Service
	KeywordIndex keyword.Index
	Engine       *search.Engine
	Ingestor     *catalog.Ingestor
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Vectors != nil {
		_ = c.Vectors.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	storage, err := catalog.NewSQLiteStorage(cfg.Catalog.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize catalog storage: %w", err)
	}

	cache := embedding.NewCache(cfg.Embedding.CacheSize, cfg.Embedding.CacheTTL)
	var embedder embedding.Embedder
	openai, err := embedding.NewOpenAIEmbedder(
		cfg.Embedding.APIKey(),
		cfg.Embedding.Model,
		cfg.Embedding.BaseURL,
		cfg.Embedding.Dimensions,
		cfg.Embedding.Timeout,
	)
	if err != nil {
		// Missing credential: search and ingestion degrade to keyword-only.
		logger.Warn("embedding disabled", zap.Error(err))
	} else {
		embedder = embedding.NewCachedEmbedder(openai, cache)
	}

	st, err := store.NewChromemStore(cfg.Store.Path, cfg.Store.Compress, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}
	vectors := vectordb.New(st, cfg.Store, cache, logger)
	if err := vectors.Init(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to initialize vector service: %w", err)
	}

	keywordIndex, err := keyword.NewBleveIndex(cfg.Catalog.KeywordIndexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}

	knowledgeTable := "knowledge"
	for name, kind := range cfg.Store.Tables {
		if kind == string(models.KindKnowledge) {
			knowledgeTable = name
			break
		}
	}

	engine := search.NewEngine(embedder, vectors, keywordIndex, &cfg.Search)
	ingestor := catalog.NewIngestor(storage, embedder, vectors, keywordIndex,
		cfg.Store.DefaultTable, knowledgeTable, logger)

	return &Components{
		Storage:      storage,
		Embedder:     embedder,
		Vectors:      vectors,
		KeywordIndex: keywordIndex,
		Engine:       engine,
		Ingestor:     ingestor,
	}, nil
}

func printUsage() {
	fmt.Println(`tana - Vector retrieval service for commerce catalogs

Usage:
  tana server [flags]             Start the HTTP server
  tana search [flags] <query>     Hybrid search over the catalog
  tana upsert [flags]             Upsert a vector record via the server
  tana delete [flags] <id>        Delete a vector record via the server
  tana import [flags] <path>      Import an xlsx catalog or document file
  tana status [flags]             Show vector store statistics
  tana version                    Show version
  tana help                       Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/tana/config.yaml)
  --debug            Enable debug logging

Search Flags:
  --config string           Config file path (for direct mode)
  --server string           Server URL (default: http://localhost:8090). Use --server "" for direct storage access.
  --table string            Vector table to search
  --limit int               Number of results (default: 10)
  --min-score float         Minimum fused score
  --keyword-weight float    Keyword weight override
  --semantic-weight float   Semantic weight override
  --output string           Output format: text, compact, or json

Upsert Flags:
  --server string      Server URL
  --id string          Record identifier (required)
  --text string        Text embedded server-side (required)
  --table string       Vector table
  --metadata string    Metadata as a JSON object

Examples:
  tana server
  tana search "waterproof sneakers"
  tana search --table knowledge "return policy"
  tana upsert --id SNK-001 --text "Canvas sneaker, lightweight" --metadata '{"name":"Canvas Sneaker","sku":"SNK-001"}'
  tana delete SNK-001
  tana import catalog.xlsx
  tana status --output json`)
}
