package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tradeforge/signalguard/internal/analyzer"
	"github.com/tradeforge/signalguard/internal/cache"
	"github.com/tradeforge/signalguard/internal/config"
	"github.com/tradeforge/signalguard/internal/correction"
	"github.com/tradeforge/signalguard/internal/engine"
	"github.com/tradeforge/signalguard/internal/fallback"
	"github.com/tradeforge/signalguard/internal/guardrail"
	httpapi "github.com/tradeforge/signalguard/internal/interfaces/http"
	"github.com/tradeforge/signalguard/internal/metrics"
	"github.com/tradeforge/signalguard/internal/persistence"
	"github.com/tradeforge/signalguard/internal/quality"
	"github.com/tradeforge/signalguard/internal/risk"
	"github.com/tradeforge/signalguard/internal/sanity"
	"github.com/tradeforge/signalguard/internal/sources"
	"github.com/tradeforge/signalguard/internal/triangulate"
)

const (
	appName = "signalguard"
	version = "v1.0.0"
)

var (
	configPath string
	debug      bool
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Multi-source price consensus and guardrail validation",
		Version: version,
		Long: `signalguard triangulates crypto prices across independent sources,
sanity checks the data, scores its quality, and enforces guardrails
before any trading signal is allowed through.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if debug {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/signalguard.yaml", "path to configuration file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [symbol]",
		Short: "Run one validation cycle and print the report",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runAnalyze,
	}
	analyzeCmd.Flags().Bool("force", false, "bypass the report cache")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the assessment API over HTTP",
		RunE:  runServe,
	}

	rootCmd.AddCommand(analyzeCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	symbol := cfg.Symbol
	if len(args) == 1 {
		symbol = strings.ToUpper(args[0])
	}
	force, _ := cmd.Flags().GetBool("force")

	eng, cleanup, err := buildEngine(cmd.Context(), cfg, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := eng.RunCycle(cmd.Context(), symbol, force)
	if err != nil {
		return fmt.Errorf("analyze %s: %w", symbol, err)
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	m := metrics.New()
	eng, cleanup, err := buildEngine(cmd.Context(), cfg, m)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := httpapi.NewServer(httpapi.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
	}, eng, m)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildEngine assembles the validation pipeline from configuration.
func buildEngine(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*engine.Engine, func(), error) {
	adapters, streams := buildAdapters(cfg.Sources.Price)
	if len(adapters) == 0 {
		return nil, nil, fmt.Errorf("no price sources configured")
	}

	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	if len(streams) > 0 {
		streamCtx, cancelStreams := context.WithCancel(ctx)
		for _, stream := range streams {
			go stream.Run(streamCtx, []string{cfg.Symbol})
			s := stream
			cleanups = append(cleanups, func() { s.Close() })
		}
		// Runs first during cleanup so Close does not wait on live pumps.
		cleanups = append(cleanups, cancelStreams)
	}

	var store cache.Cache
	switch cfg.Cache.Backend {
	case "redis":
		redisCache, err := cache.NewRedisCache(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		store = redisCache
	default:
		store = cache.NewMemoryCache()
	}
	cleanups = append(cleanups, func() { store.Close() })

	var auditor engine.Auditor
	if cfg.Database.Enabled {
		repo, err := persistence.NewAuditRepo(cfg.Database.DSN, time.Duration(cfg.Database.TimeoutSecs)*time.Second)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		cleanups = append(cleanups, func() { repo.Close() })
		auditor = repo
	}

	eng := engine.New(engine.Deps{
		Triangulator: triangulate.New(adapters, cfg.TriangulationConfig()),
		Fallback:     fallback.New(adapters, cfg.FallbackConfig()),
		Sanity:       sanity.New(cfg.SanityConfig()),
		Quality:      quality.New(cfg.QualityConfig()),
		Analyzer:     analyzer.New(cfg.AnalyzerConfig()),
		Corrector:    correction.New(),
		Guardrail:    guardrail.New(cfg.GuardrailConfig()),
		Risk:         risk.New(cfg.RiskConfig()),
		Cache:        store,
		CacheTTL:     cfg.CacheTTL(),
		Metrics:      m,
		Audit:        auditor,
		Profile: engine.RiskProfile{
			AccountBalance:   cfg.Profile.AccountBalance,
			RiskTolerancePct: cfg.Profile.RiskTolerancePct,
		},
	})
	return eng, cleanup, nil
}

// buildAdapters wires one QuoteAdapter per configured provider, in priority
// order. Stream providers keep serving their last tick; REST providers are
// hardened with a breaker and rate limiter unless disabled.
func buildAdapters(providers []config.ProviderConfig) ([]sources.QuoteAdapter, []*sources.StreamQuoteAdapter) {
	var out []sources.QuoteAdapter
	var streams []*sources.StreamQuoteAdapter
	for _, p := range providers {
		var adapter sources.QuoteAdapter
		switch p.Kind {
		case "ws":
			stream := sources.NewStreamQuoteAdapter(p.Name, p.WSURL, 30*time.Second)
			streams = append(streams, stream)
			adapter = stream
		default:
			adapter = sources.NewRESTQuoteAdapter(p.Name, p.BaseURL, 5*time.Second)
		}
		if p.Hardened {
			hc := sources.DefaultHardeningConfig()
			if p.RPS > 0 {
				hc.RPS = p.RPS
			}
			if p.Burst > 0 {
				hc.Burst = p.Burst
			}
			adapter = sources.Harden(adapter, hc)
		}
		out = append(out, adapter)
	}
	return out, streams
}
