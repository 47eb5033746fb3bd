package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"crptapi/internal/config"
	"crptapi/internal/crpt"
	"crptapi/internal/logger"
	"crptapi/internal/models"
	"crptapi/internal/observability"
	"crptapi/internal/ratelimit"
	"crptapi/internal/signer"
	"crptapi/internal/storage"
	"crptapi/internal/tokencache"
	"crptapi/internal/version"
)

// runtime is everything a command needs, wired from configuration.
type runtime struct {
	cfg     *models.Config
	logger  *slog.Logger
	client  *crpt.Client
	journal storage.Storage

	closers []func(context.Context) error
}

func (o *options) loadConfig() (*models.Config, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, err
	}
	if o.baseURL != "" {
		cfg.API.BaseURL = o.baseURL
		if err := cfg.API.Validate(); err != nil {
			return nil, fmt.Errorf("invalid --base-url: %w", err)
		}
	}
	if o.verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// bootstrap wires the client, journal and observability. The returned
// runtime must be closed.
func (o *options) bootstrap(ver version.Info) (rt *runtime, err error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	rt = &runtime{cfg: cfg}
	defer func() {
		if err != nil {
			rt.Close()
			rt = nil
		}
	}()

	log, closer, err := logger.Setup(cfg.Logging, ver)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		rt.onClose(func(context.Context) error { return closer.Close() })
	}
	slog.SetDefault(log)
	rt.logger = log

	provider, err := observability.Setup(cfg.Metrics, cfg.Observability, ver)
	if err != nil {
		return nil, err
	}
	rt.onClose(provider.Shutdown)

	sink, err := observability.NewMetricsSink(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics sink: %w", err)
	}

	limiter, err := ratelimit.New(cfg.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limiter: %w", err)
	}

	cache, err := tokencache.New(cfg.TokenCache)
	if err != nil {
		return nil, fmt.Errorf("failed to create token cache: %w", err)
	}
	rt.onClose(func(context.Context) error { return cache.Close() })

	s, err := signer.New(cfg.Signer)
	if err != nil {
		return nil, fmt.Errorf("failed to create signer: %w", err)
	}

	journal, err := storage.NewFactory().Create(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	rt.onClose(func(context.Context) error { return journal.Close() })
	rt.journal = journal

	if cfg.Metrics.Enabled {
		instrumented, err := observability.NewInstrumentedStorage(journal)
		if err != nil {
			return nil, fmt.Errorf("failed to create instrumented storage: %w", err)
		}
		rt.journal = instrumented

		var serverOpts []observability.ServerOption
		if cfg.Observability.Tracing.Enabled {
			serverOpts = append(serverOpts, observability.WithOTelMiddleware(cfg.Observability.ServiceName, cfg.Metrics.Path))
		}
		metricsServer := observability.NewMetricsServer(cfg.Metrics.Port, cfg.Metrics.Path, provider, serverOpts...)
		metricsServer.AddCheck("journal", rt.journal.Ping)
		go func() {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Metrics server failed", "error", err)
			}
		}()
		rt.onClose(metricsServer.Shutdown)
	}

	rt.client = crpt.NewClient(cfg.API, limiter, cache, s,
		crpt.WithMetrics(sink),
		crpt.WithLogger(log),
		crpt.WithUserAgent(ver.UserAgent()),
	)

	log.Debug("Client ready",
		"base_url", cfg.API.BaseURL,
		"rate_limit_strategy", cfg.RateLimit.Strategy,
		"token_cache", cfg.TokenCache.Type,
		"signer", cfg.Signer.Type,
		"journal", cfg.Storage.Type,
	)
	return rt, nil
}

func (rt *runtime) onClose(fn func(context.Context) error) {
	rt.closers = append(rt.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (rt *runtime) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil {
			slog.Error("Shutdown step failed", "error", err)
		}
	}
	rt.closers = nil
}

// readSource reads a literal value, or a file when path is set. A path of
// "-" reads from stdin.
func readSource(literal, path string, stdin io.Reader) (string, error) {
	if path == "" {
		return literal, nil
	}
	if literal != "" {
		return "", errors.New("a value and a file cannot both be given")
	}
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	return readFile(path)
}
