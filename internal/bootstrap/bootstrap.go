// Package bootstrap assembles provider chains, caches and services from configuration.
// Both the API server and the pregen CLI start from here.
package bootstrap

import (
	"context"
	"net/http"
	"time"

	"ccee-sentinel/internal/adapter"
	"ccee-sentinel/internal/adapter/provider"
	"ccee-sentinel/internal/cache"
	"ccee-sentinel/internal/config"
	"ccee-sentinel/internal/domain"
	"ccee-sentinel/internal/fallback"
	"ccee-sentinel/internal/service"
	"ccee-sentinel/internal/topicplan"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Chains holds the inner server chain, the outer client chain and their shared health registry.
type Chains struct {
	Server *service.FallbackChain
	Client *service.FallbackChain
	Health *service.HealthRegistry
	// Steps lists the leaf providers in the order the client chain reaches them.
	Steps []string
}

// NewChains builds the chains. The server chain is gemini, aiml (only with a key) and
// openrouter unless a remote backend is configured, in which case that backend replaces it.
func NewChains(cfg config.ProvidersConfig, logger *zap.Logger) (*Chains, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}

	var serverSteps []domain.Provider
	if cfg.Backend.URL != "" {
		serverSteps = append(serverSteps, provider.NewBackendProvider(cfg.Backend.URL, httpClient))
	} else {
		serverSteps = append(serverSteps, provider.NewPool("gemini",
			provider.NewGeminiCaller(cfg.Gemini.BaseURL, httpClient),
			provider.NewKeyRing(cfg.Gemini.Keys...),
			[]string{cfg.Gemini.Model},
			logger))
		if cfg.AIML.Key != "" {
			serverSteps = append(serverSteps, provider.NewPool("aiml",
				provider.NewOpenAICompatCaller("aiml", cfg.AIML.BaseURL, httpClient,
					provider.WithMaxTokens(cfg.AIML.MaxTokens),
					provider.WithCreditStatuses(http.StatusPaymentRequired, http.StatusForbidden)),
				provider.NewKeyRing(cfg.AIML.Key),
				[]string{cfg.AIML.Model},
				logger))
		}
		serverSteps = append(serverSteps, provider.NewPool("openrouter",
			provider.NewOpenAICompatCaller("openrouter", cfg.OpenRouter.BaseURL, httpClient,
				provider.WithHeaders(map[string]string{
					"HTTP-Referer": cfg.OpenRouter.Referer,
					"X-Title":      cfg.OpenRouter.Title,
				})),
			provider.NewKeyRing(cfg.OpenRouter.Keys...),
			cfg.OpenRouter.Models,
			logger))
	}

	var clientSteps []domain.Provider
	if cfg.Local.Enabled {
		local, err := provider.NewLocalProvider(cfg.Local, nil)
		if err != nil {
			return nil, err
		}
		clientSteps = append(clientSteps, local)
	}

	var names []string
	for _, p := range clientSteps {
		names = append(names, p.Name())
	}
	for _, p := range serverSteps {
		names = append(names, p.Name())
	}

	var last domain.Provider
	if cfg.Anthropic.Key != "" {
		last = provider.NewAnthropicProvider(cfg.Anthropic, httpClient)
		names = append(names, last.Name())
	}

	health := service.NewHealthRegistry(names...)
	server := service.NewFallbackChain("server", serverSteps, health, logger)
	clientSteps = append(clientSteps, server)
	if last != nil {
		clientSteps = append(clientSteps, last)
	}

	return &Chains{
		Server: server,
		Client: service.NewFallbackChain("client", clientSteps, health, logger),
		Health: health,
		Steps:  names,
	}, nil
}

// App is the fully wired set of services.
type App struct {
	Config  *config.Config
	Chains  *Chains
	Store   *service.ContentStore
	Catalog domain.ModuleCatalog

	Chat       domain.ChatService
	Mock       domain.MockService
	Flashcards domain.FlashcardService
	Notes      domain.NotesService

	redis  *redis.Client
	logger *zap.Logger
}

// New wires every service. Redis is optional: without it the caches live in memory only.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	chains, err := NewChains(cfg.Providers, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Provider chains ready", zap.Strings("steps", chains.Steps))

	var backend domain.Cache
	var client *redis.Client
	if cfg.Redis.Address != "" {
		client, err = cache.NewRedisClient(cfg.Redis)
		if err != nil {
			logger.Warn("Redis unavailable, running without cache snapshots", zap.Error(err))
		} else {
			backend = adapter.NewRedisCacheAdapter(client)
			logger.Info("Successfully connected to Redis", zap.String("address", cfg.Redis.Address))
		}
	}

	store := service.NewContentStore(cfg.Generation.CacheCapacity, backend, logger)
	if n, err := store.Restore(ctx); err != nil {
		logger.Warn("Failed to restore cache snapshot", zap.Error(err))
	} else if n > 0 {
		logger.Info("Restored cache snapshot", zap.Int("entries", n))
	}

	bank, err := fallback.Load(nil)
	if err != nil {
		return nil, err
	}
	catalog := service.NewModuleCatalog(cfg.Modules)
	planner := topicplan.NewPlanner(nil)

	return &App{
		Config:     cfg,
		Chains:     chains,
		Store:      store,
		Catalog:    catalog,
		Chat:       service.NewChatService(chains.Server),
		Mock:       service.NewMockService(chains.Client, catalog, planner, bank, store, cfg.Generation, logger),
		Flashcards: service.NewFlashcardService(chains.Client, catalog, store, cfg.Generation, logger),
		Notes:      service.NewNotesService(chains.Client, catalog, store, cfg.Generation, logger),
		redis:      client,
		logger:     logger,
	}, nil
}

// Close persists the caches and releases the Redis connection.
func (a *App) Close(ctx context.Context) error {
	err := a.Store.Persist(ctx)
	if a.redis != nil {
		if cerr := a.redis.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
