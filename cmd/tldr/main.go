package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/earnings-tldr/internal/adapters/driven/ai"
	"github.com/custodia-labs/earnings-tldr/internal/adapters/driven/config/file"
	"github.com/custodia-labs/earnings-tldr/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/earnings-tldr/internal/adapters/driving/cli"
	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
	"github.com/custodia-labs/earnings-tldr/internal/core/ports/driven"
	"github.com/custodia-labs/earnings-tldr/internal/core/ports/driving"
	"github.com/custodia-labs/earnings-tldr/internal/core/services"
	"github.com/custodia-labs/earnings-tldr/internal/logger"
	"github.com/custodia-labs/earnings-tldr/internal/normalisers/transcript"
	"github.com/custodia-labs/earnings-tldr/internal/postprocessors"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is fine; API keys may come from the real environment.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	home, persistent := homeDir()

	// ===== Configuration =====
	configStore := openConfig(home, persistent)
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())
	settingsService.SetEnv(os.LookupEnv)

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("reading settings: %w", err)
	}

	prompts, err := file.NewPromptStore(filepath.Join(home, "prompts"))
	if err != nil {
		return fmt.Errorf("opening prompts: %w", err)
	}
	contractsPath := filepath.Join(home, file.ContractsFile)

	// ===== Storage =====
	bundleStore, store := openStorage(home, persistent)
	if store != nil {
		defer store.Close()
	}

	cache, closeCache := buildIndexCache(ctx, settings.Cache, store)
	defer closeCache()

	// ===== AI services =====
	aiResult := ai.Init(*settings, false)
	defer aiResult.Close()
	for _, w := range aiResult.Warnings {
		logger.Warn("%s", w)
	}

	// ===== Core services =====
	var limiter driven.RateLimiter
	if settings.Pipeline.RateLimitPerMinute > 0 {
		limiter = ratelimit.New(settings.Pipeline.RateLimitPerMinute, ratelimit.DefaultBurst)
	}

	analysis, analysisErr := buildAnalyzer(settings, aiResult, cache, limiter, prompts, contractsPath, bundleStore)

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		Analysis:      analysis,
		AnalysisErr:   analysisErr,
		Bundles:       services.NewBundleService(bundleStore),
		Settings:      settingsService,
		Prompts:       prompts,
		ContractsPath: contractsPath,
	})

	return cli.Execute(ctx)
}

// buildAnalyzer wires the analysis pipeline. A failure is reported by the
// commands that need analysis so configuration commands keep working.
func buildAnalyzer(
	settings *domain.AppSettings,
	aiResult *ai.InitResult,
	cache driven.IndexCache,
	limiter driven.RateLimiter,
	prompts driven.PromptStore,
	contractsPath string,
	bundleStore driven.BundleStore,
) (driving.AnalysisService, error) {
	contracts, err := file.LoadContracts(contractsPath)
	if err != nil {
		return nil, err
	}

	pipeline, err := postprocessors.DefaultPipeline(settings.Pipeline)
	if err != nil {
		return nil, fmt.Errorf("building chunk pipeline: %w", err)
	}

	indexer := services.NewIndexer(aiResult.EmbeddingService, settings.Pipeline)
	if cache != nil {
		indexer.SetCache(cache)
	}
	if limiter != nil {
		indexer.SetRateLimiter(limiter)
	}

	analyzer, err := services.NewAnalyzer(
		transcript.New(),
		pipeline,
		indexer,
		aiResult.LLMService,
		prompts,
		settings.Pipeline,
		contracts,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", contractsPath, err)
	}
	analyzer.SetBundleStore(bundleStore)
	if limiter != nil {
		analyzer.SetRateLimiter(limiter)
	}

	return analyzer, nil
}
