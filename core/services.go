package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/huangsam/devpulse/core/categorize"
	"github.com/huangsam/devpulse/core/ingest"
	"github.com/huangsam/devpulse/core/productivity"
	"github.com/huangsam/devpulse/core/tags"
	"github.com/huangsam/devpulse/internal/contract"
	"github.com/huangsam/devpulse/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Services bundles the components built from a validated Config.
type Services struct {
	Registry    *tags.Registry
	Categorizer *categorize.Categorizer
	Analyzer    *productivity.Analyzer
	Client      *ingest.Client
	Logger      *zap.Logger
}

// NewServices wires the registry, categorizer, analyzer and ingestion client.
// The commit cache is used when enabled and the manager provides one.
func NewServices(cfg *contract.Config, mgr contract.CacheManager, logger *zap.Logger, metrics *ingest.Metrics) (*Services, error) {
	logger = contract.OrNop(logger)
	registry := tags.Default()

	catOpts := []categorize.Option{
		categorize.WithLogger(logger.Named("categorize")),
		categorize.WithWorkers(cfg.Workers),
	}
	if cfg.UseLLM {
		catOpts = append(catOpts, categorize.WithClassifier(
			categorize.NewOpenAIClassifier(cfg.OpenAIAPIKey, cfg.LLMModel, cfg.OpenAIURL)))
	}
	categorizer := categorize.New(registry, catOpts...)

	source, err := newSource(cfg)
	if err != nil {
		return nil, err
	}

	clientOpts := []ingest.Option{
		ingest.WithLogger(logger.Named("ingest")),
		ingest.WithWorkers(cfg.Workers),
		ingest.WithMaxInflight(cfg.MaxInflight),
		ingest.WithRequestTimeout(cfg.RequestTimeout),
		ingest.WithMetrics(metrics),
	}
	if cfg.UseCache && mgr != nil {
		if store := mgr.GetCommitStore(); store != nil {
			clientOpts = append(clientOpts, ingest.WithCache(store, cfg.CacheMaxAge))
		}
	}

	return &Services{
		Registry:    registry,
		Categorizer: categorizer,
		Analyzer: productivity.NewAnalyzer(categorizer,
			productivity.WithExternal(cfg.UseLLM),
			productivity.WithLogger(logger.Named("productivity"))),
		Client: ingest.NewClient(source, clientOpts...),
		Logger: logger,
	}, nil
}

func newSource(cfg *contract.Config) (contract.CommitSource, error) {
	switch cfg.Provider {
	case schema.LocalProvider:
		return ingest.NewLocalSource(cfg.LocalRoot), nil
	case schema.GitHubProvider, "":
		source, err := ingest.NewGitHubSource(cfg.GitHubToken, "")
		if err != nil {
			return nil, fmt.Errorf("failed to create GitHub client: %w", err)
		}
		return source, nil
	default:
		return nil, fmt.Errorf("unsupported provider '%s'", cfg.Provider)
	}
}

// StartMetricsServer exposes the ingestion metrics plus the Go runtime
// collectors on addr until ctx is done. An empty addr registers nothing.
func StartMetricsServer(ctx context.Context, addr string, logger *zap.Logger) *ingest.Metrics {
	if addr == "" {
		return ingest.NewMetrics(nil)
	}
	logger = contract.OrNop(logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := ingest.NewMetrics(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	return metrics
}
