package app

import (
	"context"
	"fmt"

	"pictor/internal/config"
	"pictor/internal/consistency"
	"pictor/internal/gateway/oracle"
	"pictor/internal/gateway/provider"
	"pictor/internal/logger"
	"pictor/internal/pipeline"
	promptkit "pictor/internal/prompt"
	"pictor/internal/report"
	"pictor/internal/review"
	"pictor/internal/scoring"
	"pictor/internal/store/runlog"
	apihttp "pictor/internal/transport/http"
)

// AppBuilder 逐层装配依赖；各构造函数可被测试替换。
type AppBuilder struct {
	cfg *config.Config

	storeFn    func(config.StoreConfig) (*runlog.Store, error)
	registryFn func(*config.Config) (*provider.Registry, error)
	oracleFn   func(config.OracleConfig) *oracle.Client

	observerOverride pipeline.Observer
}

type AppBuilderOption func(*AppBuilder)

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:        cfg,
		storeFn:    buildRunlogStore,
		registryFn: buildRegistry,
		oracleFn:   oracle.NewClient,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// WithObserver 替换流水线观察者（测试用）。
func WithObserver(obs pipeline.Observer) AppBuilderOption {
	return func(b *AppBuilder) { b.observerOverride = obs }
}

func buildRunlogStore(cfg config.StoreConfig) (*runlog.Store, error) {
	return runlog.NewStore(cfg.RunLogPath)
}

// buildRegistry 预设文件优先，其次配置内联预设。
func buildRegistry(cfg *config.Config) (*provider.Registry, error) {
	presets := cfg.Providers.Presets
	if path := cfg.Providers.PresetsPath; path != "" {
		loaded, err := provider.LoadPresetsFile(path)
		if err != nil {
			return nil, fmt.Errorf("加载提供方预设失败: %w", err)
		}
		presets = loaded
	}
	adapters := provider.BuildAdapters(presets)
	if len(adapters) == 0 {
		return nil, fmt.Errorf("没有任何可用的生成提供方")
	}
	return provider.NewRegistry(adapters...), nil
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	logger.SetLevel(cfg.App.LogLevel)

	registry, err := b.registryFn(cfg)
	if err != nil {
		return nil, err
	}
	logger.Infof("✓ 已注册 %d 个生成提供方: %v", len(registry.IDs()), registry.IDs())

	oracleClient := b.oracleFn(cfg.Oracle)
	logger.Infof("✓ 视觉裁判: model=%s key=%s", cfg.Oracle.Model, oracleClient.MaskedKey())

	prompts := promptkit.NewManager(cfg.Prompt)

	aggregator := scoring.NewAggregator(cfg.Scoring,
		scoring.BuildScorers(cfg.Scoring, oracleClient, prompts)...)
	verifier := consistency.NewVerifier(cfg.Consistency, oracleClient, prompts)
	reviewer := review.NewReviewer(oracleClient, prompts, cfg.Scoring.ReviewFlavor)

	store, err := b.storeFn(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("初始化运行日志存储失败: %w", err)
	}
	var observer pipeline.Observer = store
	if b.observerOverride != nil {
		observer = b.observerOverride
	}

	runner := pipeline.NewRunner(cfg.Pipeline, cfg.Consistency, registry, aggregator, verifier, reviewer, observer)

	reports := report.NewGenerator(cfg.Store)
	router := apihttp.NewRouter(runner, store, reports)
	httpSrv, err := apihttp.NewServer(cfg.App.HTTPAddr, router)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:      cfg,
		runner:   runner,
		registry: registry,
		store:    store,
		httpSrv:  httpSrv,
		Summary:  buildStartupSummary(cfg, registry),
	}, nil
}
