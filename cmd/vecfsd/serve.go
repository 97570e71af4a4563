package main

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/vecfs/internal/config"
	"github.com/fyrsmithlabs/vecfs/internal/embeddings"
	"github.com/fyrsmithlabs/vecfs/internal/http"
	"github.com/fyrsmithlabs/vecfs/internal/ingest"
	"github.com/fyrsmithlabs/vecfs/internal/kvstore"
	"github.com/fyrsmithlabs/vecfs/internal/logging"
	"github.com/fyrsmithlabs/vecfs/internal/resource"
	"github.com/fyrsmithlabs/vecfs/internal/secrets"
	"github.com/fyrsmithlabs/vecfs/internal/telemetry"
	"github.com/fyrsmithlabs/vecfs/internal/tenant"
	"github.com/fyrsmithlabs/vecfs/internal/vecfs"
)

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return err
	}
	logCfg, err := logging.FromSettings(cfg.Logging)
	if err != nil {
		return err
	}
	boot, err := logging.NewLogger(bootstrapConfig(logCfg), nil)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	tel, err := telemetry.New(ctx, telemetry.FromSettings(cfg.Telemetry), boot.Underlying().Named("telemetry"))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	logger, err := logging.NewLogger(logCfg, tel.LoggerProvider())
	if err != nil {
		_ = tel.Shutdown(context.Background())
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	a, err := newApp(ctx, cfg, logger.Underlying(), tel)
	if err != nil {
		logger.Error(ctx, "startup failed", zap.Error(err))
		return err
	}
	defer a.close()

	logger.Info(ctx, "vecfsd starting",
		zap.String("version", version),
		zap.String("commit", gitCommit),
		zap.String("addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)),
		zap.String("embedding_provider", cfg.Embeddings.Provider),
		zap.String("embedding_model", a.provider.Model()),
	)
	return a.run(ctx, cfg.Server.ShutdownTimeout.Duration())
}

// app holds the wired components of a running server.
type app struct {
	logger    *zap.Logger
	telemetry *telemetry.Telemetry
	store     *kvstore.Store
	provider  embeddings.Provider
	server    *http.Server
	gcEvery   time.Duration
}

// newApp wires the server. tel may be nil, in which case newApp builds
// telemetry itself from cfg.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, tel *telemetry.Telemetry) (a *app, err error) {
	a = &app{logger: logger, telemetry: tel, gcEvery: cfg.Storage.GCInterval.Duration()}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	if a.telemetry == nil {
		a.telemetry, err = telemetry.New(ctx, telemetry.FromSettings(cfg.Telemetry), logger.Named("telemetry"))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
		}
	}

	path := cfg.Storage.Path
	if !cfg.Storage.InMemory {
		if path, err = config.ExpandPath(path); err != nil {
			return nil, err
		}
	}
	a.store, err = kvstore.Open(kvstore.Config{
		Path:             path,
		InMemory:         cfg.Storage.InMemory,
		SyncWrites:       cfg.Storage.SyncWrites,
		ValueLogFileSize: cfg.Storage.ValueLogFileSize,
	}, logger.Named("kvstore"))
	if err != nil {
		return nil, err
	}

	a.provider, err = embeddings.NewProvider(embeddings.ProviderConfig{
		Provider:  cfg.Embeddings.Provider,
		Model:     cfg.Embeddings.Model,
		BaseURL:   cfg.Embeddings.BaseURL,
		APIKey:    cfg.Embeddings.APIKey.Value(),
		CacheDir:  cfg.Embeddings.CacheDir,
		Dimension: cfg.Embeddings.Dimension,
	}, logger.Named("embeddings"))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding provider: %w", err)
	}

	counter, err := resource.NewTokenCounter()
	if err != nil {
		logger.Warn("tokenizer unavailable, token counts are estimated", zap.Error(err))
	}
	var opts []ingest.Option
	if !cfg.Ingest.DisableSecretScrub {
		scrubber, err := newScrubber(cfg.Ingest.SecretAllowlist, logger.Named("secrets"))
		if err != nil {
			return nil, err
		}
		opts = append(opts, ingest.WithScrubber(scrubber))
	}
	if len(cfg.Ingest.DataTags) > 0 {
		tags, err := dataTags(cfg.Ingest.DataTags)
		if err != nil {
			return nil, err
		}
		opts = append(opts, ingest.WithDataTags(tags...))
	}
	builder := ingest.NewBuilder(a.provider, counter, ingest.Config{
		MaxChunkSize: cfg.Ingest.MaxChunkSize,
		BatchSize:    cfg.Ingest.BatchSize,
		Concurrency:  cfg.Ingest.Concurrency,
	}, logger.Named("ingest"), opts...)
	fs := vecfs.NewService(a.store, logger.Named("vecfs"), vecfs.WithTokenCounter(counter))

	defaultTenant := cfg.Server.DefaultTenant
	if defaultTenant == "auto" {
		defaultTenant = tenant.DefaultID()
	}
	a.server, err = http.NewServer(fs, a.store, builder, logger.Named("http"), &http.Config{
		Host:          cfg.Server.Host,
		Port:          cfg.Server.Port,
		BodyLimit:     cfg.Server.BodyLimit,
		DefaultTenant: defaultTenant,
		DefaultK:      cfg.Search.DefaultK,
		MaxK:          cfg.Search.MaxK,
		NumResources:  cfg.Search.NumResources,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func newScrubber(allowlistPath string, logger *zap.Logger) (*secrets.Scrubber, error) {
	var allow *secrets.Allowlist
	if allowlistPath != "" {
		p, err := config.ExpandPath(allowlistPath)
		if err != nil {
			return nil, err
		}
		if allow, err = secrets.LoadAllowlist(p); err != nil {
			return nil, err
		}
	}
	return secrets.New(allow, logger)
}

// run serves until ctx ends, then shuts the server down within timeout.
func (a *app) run(ctx context.Context, timeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Start()
	}()
	go a.collectGarbage(ctx)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down", zap.Duration("timeout", timeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func (a *app) collectGarbage(ctx context.Context) {
	if a.gcEvery <= 0 {
		return
	}
	ticker := time.NewTicker(a.gcEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.store.RunGC(ctx); err != nil {
				a.logger.Warn("value log gc failed", zap.Error(err))
			}
		}
	}
}

// close releases everything newApp opened, in reverse order.
func (a *app) close() {
	if a.provider != nil {
		if err := a.provider.Close(); err != nil {
			a.logger.Warn("closing embedding provider", zap.Error(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("closing kvstore", zap.Error(err))
		}
	}
	if a.telemetry != nil {
		if err := a.telemetry.Shutdown(context.Background()); err != nil {
			a.logger.Warn("telemetry shutdown", zap.Error(err))
		}
	}
}

func dataTags(cfgs []config.DataTagConfig) ([]resource.DataTag, error) {
	tags := make([]resource.DataTag, 0, len(cfgs))
	for _, c := range cfgs {
		t, err := resource.NewDataTag(c.Name, c.Description, c.Pattern)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, nil
}

// bootstrapConfig logs to stdout only, for use before the OTLP log
// provider exists.
func bootstrapConfig(cfg *logging.Config) *logging.Config {
	boot := *cfg
	boot.Output = logging.OutputConfig{Stdout: true}
	return &boot
}
