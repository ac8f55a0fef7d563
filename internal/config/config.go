// Package config loads the signalguard YAML configuration. The file layer
// keeps durations as *_secs/_ms integers; Load maps them into the typed
// component configs after filling defaults and validating.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/tradeforge/signalguard/internal/analyzer"
	"github.com/tradeforge/signalguard/internal/fallback"
	"github.com/tradeforge/signalguard/internal/guardrail"
	"github.com/tradeforge/signalguard/internal/quality"
	"github.com/tradeforge/signalguard/internal/risk"
	"github.com/tradeforge/signalguard/internal/sanity"
	"github.com/tradeforge/signalguard/internal/triangulate"
)

// ProviderConfig declares one upstream data provider.
type ProviderConfig struct {
	Name     string  `yaml:"name" validate:"required"`
	Kind     string  `yaml:"kind" default:"rest" validate:"oneof=rest ws"`
	BaseURL  string  `yaml:"base_url"`
	WSURL    string  `yaml:"ws_url"`
	Hardened bool    `yaml:"hardened" default:"true"`
	RPS      float64 `yaml:"rps" default:"5"`
	Burst    int     `yaml:"burst" default:"10"`
}

// SourcesConfig groups providers by data kind. Price provider order is the
// fallback priority order; the first entry is primary.
type SourcesConfig struct {
	Price     []ProviderConfig `yaml:"price" validate:"min=1,dive"`
	OnChain   []ProviderConfig `yaml:"onchain" validate:"dive"`
	Sentiment []ProviderConfig `yaml:"sentiment" validate:"dive"`
}

// TriangulationConfig is the file layer for triangulate.Config.
type TriangulationConfig struct {
	DivergenceTolerancePct float64 `yaml:"divergence_tolerance_pct" default:"1.0" validate:"gt=0"`
	AdapterTimeoutMS       int     `yaml:"adapter_timeout_ms" default:"5000" validate:"gt=0"`
	OverallTimeoutMS       int     `yaml:"overall_timeout_ms" default:"10000" validate:"gt=0"`
}

// SanityConfig is the file layer for sanity.Config.
type SanityConfig struct {
	MempoolMin        int64   `yaml:"mempool_min" default:"500"`
	MempoolMax        int64   `yaml:"mempool_max" default:"500000"`
	WhaleCountMax     int64   `yaml:"whale_count_max" default:"500"`
	VolumeAvg24h      float64 `yaml:"volume_avg_24h" default:"25000000000"`
	VolumeMaxMultiple float64 `yaml:"volume_max_multiple" default:"10"`
	FreshnessSecs     int     `yaml:"freshness_secs" default:"600" validate:"gt=0"`
}

// QualityConfig is the file layer for quality.Config.
type QualityConfig struct {
	SourceWeight     float64 `yaml:"source_weight" default:"50"`
	SanityWeight     float64 `yaml:"sanity_weight" default:"35"`
	NoErrorBonus     float64 `yaml:"no_error_bonus" default:"15"`
	ProceedThreshold float64 `yaml:"proceed_threshold" default:"70"`
	RetryThreshold   float64 `yaml:"retry_threshold" default:"40"`
}

// FallbackConfig is the file layer for fallback.Config.
type FallbackConfig struct {
	TimeoutMS     int `yaml:"timeout_ms" default:"5000" validate:"gt=0"`
	MaxRetries    int `yaml:"max_retries" default:"1" validate:"gte=0"`
	BackoffBaseMS int `yaml:"backoff_base_ms" default:"500" validate:"gt=0"`
	BackoffCapMS  int `yaml:"backoff_cap_ms" default:"5000" validate:"gt=0"`
}

// GuardrailConfig is the file layer for guardrail.Config.
type GuardrailConfig struct {
	ApprovedSources []string `yaml:"approved_sources" validate:"min=1"`
	MinQualityScore float64  `yaml:"min_quality_score" default:"70"`
	MaxPrice        float64  `yaml:"max_price" default:"1000000" validate:"gt=0"`
	MinPrice        float64  `yaml:"min_price" default:"0"`
}

// RiskConfig is the file layer for risk.Config.
type RiskConfig struct {
	BaseRiskPct     float64 `yaml:"base_risk_pct" default:"2" validate:"gt=0"`
	StopATRMultiple float64 `yaml:"stop_atr_multiple" default:"1.5" validate:"gt=0"`
	TP1Multiple     float64 `yaml:"tp1_multiple" default:"2" validate:"gt=0"`
	TP2Multiple     float64 `yaml:"tp2_multiple" default:"3.5" validate:"gt=0"`
	TP3Multiple     float64 `yaml:"tp3_multiple" default:"5" validate:"gt=0"`
	MinRiskReward   float64 `yaml:"min_risk_reward" default:"2" validate:"gte=1"`
}

// ProfileConfig is the account the risk calculator sizes plans against.
// A zero balance disables plan generation.
type ProfileConfig struct {
	AccountBalance   float64 `yaml:"account_balance" default:"10000" validate:"gte=0"`
	RiskTolerancePct float64 `yaml:"risk_tolerance_pct" default:"50" validate:"gt=0,lte=100"`
}

// CacheConfig selects and tunes the cache backend.
type CacheConfig struct {
	Backend       string `yaml:"backend" default:"memory" validate:"oneof=memory redis"`
	RedisAddr     string `yaml:"redis_addr" default:"localhost:6379"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db" default:"0"`
	TTLSecs       int    `yaml:"ttl_secs" default:"30" validate:"gt=0"`
}

// ServerConfig tunes the read-only HTTP API.
type ServerConfig struct {
	Host             string `yaml:"host" default:"127.0.0.1"`
	Port             int    `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
	ReadTimeoutSecs  int    `yaml:"read_timeout_secs" default:"10" validate:"gt=0"`
	WriteTimeoutSecs int    `yaml:"write_timeout_secs" default:"10" validate:"gt=0"`
	IdleTimeoutSecs  int    `yaml:"idle_timeout_secs" default:"60" validate:"gt=0"`
}

// DatabaseConfig tunes the optional audit store.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled" default:"false"`
	DSN         string `yaml:"dsn"`
	TimeoutSecs int    `yaml:"timeout_secs" default:"5" validate:"gt=0"`
}

// AnalyzerConfig is the file layer for analyzer.Config.
type AnalyzerConfig struct {
	TrajectoryWeight float64 `yaml:"trajectory_weight" default:"0.30"`
	WaveWeight       float64 `yaml:"wave_weight" default:"0.20"`
	LiquidityWeight  float64 `yaml:"liquidity_weight" default:"0.15"`
	MempoolWeight    float64 `yaml:"mempool_weight" default:"0.10"`
	WhaleWeight      float64 `yaml:"whale_weight" default:"0.10"`
	MacroWeight      float64 `yaml:"macro_weight" default:"0.15"`
	MempoolMin       int64   `yaml:"mempool_min" default:"500"`
	MempoolMax       int64   `yaml:"mempool_max" default:"500000"`
}

// Config is the complete signalguard configuration file.
type Config struct {
	Symbol        string              `yaml:"symbol" default:"BTC" validate:"required"`
	Sources       SourcesConfig       `yaml:"sources"`
	Triangulation TriangulationConfig `yaml:"triangulation"`
	Sanity        SanityConfig        `yaml:"sanity"`
	Quality       QualityConfig       `yaml:"quality"`
	Fallback      FallbackConfig      `yaml:"fallback"`
	Analyzer      AnalyzerConfig      `yaml:"analyzer"`
	Guardrails    GuardrailConfig     `yaml:"guardrails"`
	Risk          RiskConfig          `yaml:"risk"`
	Profile       ProfileConfig       `yaml:"profile"`
	Cache         CacheConfig         `yaml:"cache"`
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
}

// Load reads, defaults, and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes raw YAML into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("apply config defaults: %w", err)
	}
	if len(cfg.Guardrails.ApprovedSources) == 0 {
		// Default whitelist = every configured price provider.
		for _, provider := range cfg.Sources.Price {
			cfg.Guardrails.ApprovedSources = append(cfg.Guardrails.ApprovedSources, provider.Name)
		}
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	if err := cfg.QualityConfig().Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// TriangulationConfig maps the file layer to the component config.
func (c *Config) TriangulationConfig() triangulate.Config {
	return triangulate.Config{
		DivergenceTolerancePct: c.Triangulation.DivergenceTolerancePct,
		AdapterTimeout:         time.Duration(c.Triangulation.AdapterTimeoutMS) * time.Millisecond,
		OverallTimeout:         time.Duration(c.Triangulation.OverallTimeoutMS) * time.Millisecond,
	}
}

func (c *Config) SanityConfig() sanity.Config {
	return sanity.Config{
		MempoolMin:         c.Sanity.MempoolMin,
		MempoolMax:         c.Sanity.MempoolMax,
		WhaleCountMax:      c.Sanity.WhaleCountMax,
		VolumeAvg24h:       c.Sanity.VolumeAvg24h,
		VolumeMaxMultiple:  c.Sanity.VolumeMaxMultiple,
		FreshnessThreshold: time.Duration(c.Sanity.FreshnessSecs) * time.Second,
	}
}

func (c *Config) QualityConfig() quality.Config {
	return quality.Config{
		SourceWeight:     c.Quality.SourceWeight,
		SanityWeight:     c.Quality.SanityWeight,
		NoErrorBonus:     c.Quality.NoErrorBonus,
		ProceedThreshold: c.Quality.ProceedThreshold,
		RetryThreshold:   c.Quality.RetryThreshold,
	}
}

func (c *Config) FallbackConfig() fallback.Config {
	return fallback.Config{
		Timeout:     time.Duration(c.Fallback.TimeoutMS) * time.Millisecond,
		MaxRetries:  c.Fallback.MaxRetries,
		BackoffBase: time.Duration(c.Fallback.BackoffBaseMS) * time.Millisecond,
		BackoffCap:  time.Duration(c.Fallback.BackoffCapMS) * time.Millisecond,
	}
}

func (c *Config) AnalyzerConfig() analyzer.Config {
	return analyzer.Config{
		Weights: analyzer.Weights{
			Trajectory: c.Analyzer.TrajectoryWeight,
			Wave:       c.Analyzer.WaveWeight,
			Liquidity:  c.Analyzer.LiquidityWeight,
			Mempool:    c.Analyzer.MempoolWeight,
			Whale:      c.Analyzer.WhaleWeight,
			Macro:      c.Analyzer.MacroWeight,
		},
		MempoolMin: c.Analyzer.MempoolMin,
		MempoolMax: c.Analyzer.MempoolMax,
	}
}

func (c *Config) GuardrailConfig() guardrail.Config {
	return guardrail.Config{
		ApprovedSources: c.Guardrails.ApprovedSources,
		MinQualityScore: c.Guardrails.MinQualityScore,
		MaxPrice:        c.Guardrails.MaxPrice,
		MinPrice:        c.Guardrails.MinPrice,
	}
}

func (c *Config) RiskConfig() risk.Config {
	return risk.Config{
		BaseRiskPct:     c.Risk.BaseRiskPct,
		StopATRMultiple: c.Risk.StopATRMultiple,
		TP1Multiple:     c.Risk.TP1Multiple,
		TP2Multiple:     c.Risk.TP2Multiple,
		TP3Multiple:     c.Risk.TP3Multiple,
		MinRiskReward:   c.Risk.MinRiskReward,
	}
}

// CacheTTL returns the engine cache TTL.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSecs) * time.Second
}
