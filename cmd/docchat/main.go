// Command docchat is a document chat assistant: upload documents, then ask
// questions answered from their most relevant passages.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/docchat/internal/adapters/driven/ai"
	"github.com/custodia-labs/docchat/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docchat/internal/adapters/driving/cli"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/services"
	"github.com/custodia-labs/docchat/internal/logger"
	"github.com/custodia-labs/docchat/internal/normalisers"
	"github.com/custodia-labs/docchat/internal/postprocessors"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// A missing .env is normal.
	_ = godotenv.Load()

	cli.SetVersion(version)
	cli.SetServiceFactory(buildServices)

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

// stores groups the persistence adapters for one run.
type stores struct {
	documents driven.DocumentStore
	sessions  driven.SessionStore
	index     driven.VectorIndex
	close     func() error
}

func buildServices(opts cli.Options) (*cli.Services, error) {
	home, err := file.DefaultHome()
	if err != nil {
		return nil, fmt.Errorf("resolving home directory: %w", err)
	}

	configStore, err := file.NewConfigStore(home)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if format := configStore.GetString("log.format"); format != "" {
		logger.SetFormat(format)
	}

	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	st, err := openStores(filepath.Join(home, "data"), opts.Ephemeral)
	if err != nil {
		return nil, err
	}

	pipeline, err := postprocessors.NewChunkingPipeline(settings.Chunking)
	if err != nil {
		st.close() //nolint:errcheck
		return nil, fmt.Errorf("building chunking pipeline: %w", err)
	}

	var promptStore driven.PromptStore
	if prompts, err := file.NewPromptStore(filepath.Join(home, "prompts")); err != nil {
		logger.Warn("prompt templates unavailable, using defaults: %v", err)
	} else {
		promptStore = prompts
	}

	aiResult := ai.Initialise(settings)

	var embedder driven.EmbeddingService
	if aiResult.EmbeddingService != nil {
		embedder = services.NewEmbeddingGateway(aiResult.EmbeddingService,
			services.EmbeddingGatewayConfigFrom(settings.Embedding, settings.Timeouts))
	}

	documentService := services.NewDocumentService(
		st.documents, normalisers.NewDefaultRegistry(), pipeline, embedder, st.index)
	searchService := services.NewSearchService(
		st.documents, st.index, embedder, settings.Retrieval.CandidateMultiplier)

	chatService := services.NewChatService(
		st.sessions, st.documents, searchService, aiResult.LLMService, promptStore,
		services.ChatConfigFrom(settings))

	logger.Debug("services ready (home=%s, ephemeral=%t)", home, opts.Ephemeral)

	return &cli.Services{
		Document: documentService,
		Search:   searchService,
		Chat:     chatService,
		Settings: settingsService,
		Close: func() error {
			aiResult.Close()
			return st.close()
		},
	}, nil
}

func openStores(dataDir string, ephemeral bool) (*stores, error) {
	if ephemeral {
		index := memory.NewVectorIndex()
		return &stores{
			documents: memory.NewDocumentStore(),
			sessions:  memory.NewSessionStore(),
			index:     index,
			close:     index.Close,
		}, nil
	}

	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	index, err := sqlite.NewVectorIndex(dataDir)
	if err != nil {
		store.Close() //nolint:errcheck
		return nil, fmt.Errorf("opening vector index: %w", err)
	}

	return &stores{
		documents: store.DocumentStore(),
		sessions:  store.SessionStore(),
		index:     index,
		close: func() error {
			return errors.Join(index.Close(), store.Close())
		},
	}, nil
}
