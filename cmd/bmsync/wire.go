package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nikbrunner/bmsync/internal/auth"
	"github.com/nikbrunner/bmsync/internal/bookmarks"
	"github.com/nikbrunner/bmsync/internal/client"
	"github.com/nikbrunner/bmsync/internal/config"
	"github.com/nikbrunner/bmsync/internal/logger"
	"github.com/nikbrunner/bmsync/internal/model"
	"github.com/nikbrunner/bmsync/internal/realtime"
	"github.com/nikbrunner/bmsync/internal/storage"
)

// backendSet is an opened data backend plus its realtime channel.
type backendSet struct {
	Data  bookmarks.Backend
	Live  realtime.Channel // nil when live updates are unavailable
	Ready func() error     // nil means always ready

	closers []func() error
}

// Close releases everything in reverse order of opening.
func (b *backendSet) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		_ = b.closers[i]()
	}
}

func mustLoadConfig() *config.Config {
	path, err := config.DefaultPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting config path: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func mustLogger(opts logger.Options) logger.Logger {
	log, err := logger.New(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	return log
}

// mustOpen loads config and opens the auth provider and data backend for
// the one-shot subcommands. Logs go to the log file.
func mustOpen(ctx context.Context) (auth.Provider, *backendSet) {
	cfg := mustLoadConfig()
	log := mustLogger(logger.Options{Level: cfg.Log.Level, File: cfg.Log.File})

	provider := buildAuth(cfg, log)
	backend, err := buildBackend(ctx, cfg, log, provider)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening backend: %v\n", err)
		os.Exit(1)
	}
	return provider, backend
}

// buildAuth returns the configured sign-in provider.
func buildAuth(cfg *config.Config, log logger.Logger) auth.Provider {
	if cfg.Auth.Provider == "oauth" {
		return auth.NewOAuthProvider(auth.OAuthParams{
			Name:         cfg.Auth.Name,
			Issuer:       cfg.Auth.Issuer,
			ClientID:     cfg.Auth.ClientID,
			ClientSecret: cfg.Auth.ClientSecret,
			Scopes:       cfg.Auth.Scopes,
			RedirectPort: cfg.Auth.RedirectPort,
			SessionFile:  cfg.Auth.TokenFile,
			Logger:       log,
		})
	}
	return auth.NewLocalProvider(auth.LocalParams{
		User: model.User{
			ID:    cfg.Auth.LocalUserID,
			Email: cfg.Auth.LocalEmail,
		},
		Token:       cfg.Auth.LocalToken,
		SessionFile: cfg.Auth.TokenFile,
	})
}

// buildBackend opens the client-side backend: embedded storage for local
// mode, the hosted API for remote mode.
func buildBackend(ctx context.Context, cfg *config.Config, log logger.Logger, tokens client.TokenSource) (*backendSet, error) {
	if cfg.Backend == config.BackendLocal {
		return buildServerBackend(ctx, cfg, log)
	}

	api, err := client.New(client.Params{
		BaseURL: cfg.Server.URL,
		Tokens:  tokens,
		Timeout: cfg.Server.RequestTimeout,
	})
	if err != nil {
		return nil, err
	}
	if err := api.Ping(ctx); err != nil {
		log.Warn("Bookmarks server not reachable", logger.String("url", cfg.Server.URL), logger.Error(err))
	}
	set := &backendSet{Data: api}

	if cfg.Redis.Addr == "" {
		log.Warn("No redis address configured, live updates disabled")
		return set, nil
	}
	rdb, err := realtime.Connect(ctx, cfg.Redis, log)
	if err != nil {
		// The list still works without live updates.
		log.Warn("Redis unavailable, live updates disabled", logger.Error(err))
		return set, nil
	}
	live := realtime.NewRedisChannel(rdb, "", log)
	set.Live = live
	set.closers = append(set.closers, rdb.Close, live.Close)
	return set, nil
}

// buildServerBackend opens embedded storage behind a bookmarks.Service that
// publishes to redis when configured and to an in-process hub otherwise.
func buildServerBackend(ctx context.Context, cfg *config.Config, log logger.Logger) (*backendSet, error) {
	store, err := storage.Open(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Storage.Driver, err)
	}
	set := &backendSet{closers: []func() error{store.Close}}

	var live realtime.Channel
	if cfg.Redis.Addr != "" {
		rdb, err := realtime.Connect(ctx, cfg.Redis, log)
		if err != nil {
			set.Close()
			return nil, err
		}
		live = realtime.NewRedisChannel(rdb, "", log)
		set.Ready = redisReady(rdb, cfg.Redis.PingTimeout)
		set.closers = append(set.closers, rdb.Close)
	} else {
		live = realtime.NewHub()
	}
	set.closers = append(set.closers, live.Close)

	set.Live = live
	set.Data = bookmarks.NewService(bookmarks.ServiceParams{
		Store:     store,
		Publisher: live,
		Logger:    log,
	})
	return set, nil
}

func redisReady(rdb *redis.Client, timeout time.Duration) func() error {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return rdb.Ping(ctx).Err()
	}
}

// buildVerifier accepts static tokens (including the local identity's token)
// and, when an issuer is configured, OIDC ID tokens.
func buildVerifier(ctx context.Context, cfg *config.Config) (auth.TokenVerifier, error) {
	static := auth.StaticVerifier{}
	for token, userID := range cfg.Auth.StaticTokens {
		static[token] = userID
	}
	if cfg.Auth.LocalToken != "" {
		static[cfg.Auth.LocalToken] = cfg.Auth.LocalUserID
	}

	chain := auth.ChainVerifier{static}
	if cfg.Auth.Issuer != "" {
		oidcVerifier, err := auth.NewOIDCVerifier(ctx, cfg.Auth.Issuer, cfg.Auth.ClientID)
		if err != nil {
			return nil, err
		}
		chain = append(chain, oidcVerifier)
	}
	return chain, nil
}
