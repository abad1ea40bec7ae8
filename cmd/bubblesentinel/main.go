package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"BubbleSentinel/internal/api"
	"BubbleSentinel/internal/cache"
	"BubbleSentinel/internal/collector"
	"BubbleSentinel/internal/config"
	"BubbleSentinel/internal/dashboard"
	"BubbleSentinel/internal/metrics"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "bubblesentinel",
	Short: "Stock-market bubble index dashboard backend",
	Long: `BubbleSentinel prices equity indices in gold, scores how stretched each
market is against its own history and past bubbles, and serves the result
over a JSON API with optional Telegram alerts.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

func init() {
	defaultPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultPath = v
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultPath, "Path to YAML configuration file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(snapshotCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setupLogging configures the global zerolog logger from LOG_LEVEL and LOG_FORMAT.
func setupLogging() {
	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if os.Getenv("LOG_FORMAT") == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"})
	}
}

// app holds the wired components shared by every command.
type app struct {
	cfg     *config.Config
	metrics *metrics.Registry
	cache   cache.Cache
	guard   *collector.Guard
	service *dashboard.Service
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func buildApp(cfg *config.Config) (*app, error) {
	reg := metrics.New()
	guard := collector.NewGuard(cfg.DataSource.Provider, collector.GuardConfig{
		RatePerSecond: cfg.DataSource.RatePerSecond,
		Burst:         cfg.DataSource.Burst,
		MaxFailures:   collector.DefaultGuardConfig().MaxFailures,
		OpenTimeout:   collector.DefaultGuardConfig().OpenTimeout,
	}, reg)

	var fetcher collector.Fetcher
	switch cfg.DataSource.Provider {
	case config.ProviderREST:
		fetcher = collector.NewRESTFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy, guard)
	case config.ProviderMock:
		fetcher = &collector.MockFetcher{Price: 100}
	default:
		fetcher = collector.NewYahooFetcher(cfg.Proxy, guard)
	}

	c := cache.New(cfg.Cache.RedisAddr, cfg.Cache.RedisDB)
	fetcher = collector.NewCachedFetcher(fetcher, c, cfg.Cache.TTL, reg)
	log.Info().Str("provider", fetcher.Name()).Str("cache", c.Name()).Dur("ttl", cfg.Cache.TTL).Msg("data source ready")

	markets, err := dashboard.ApplyConfig(dashboard.DefaultMarkets(), cfg.Markets)
	if err != nil {
		return nil, err
	}
	svc, err := dashboard.NewService(collector.NewCollector(fetcher), markets, reg)
	if err != nil {
		return nil, fmt.Errorf("init dashboard: %w", err)
	}
	return &app{cfg: cfg, metrics: reg, cache: c, guard: guard, service: svc}, nil
}

func (a *app) close() {
	if r, ok := a.cache.(*cache.Redis); ok {
		if err := r.Close(); err != nil {
			log.Warn().Err(err).Msg("close redis")
		}
	}
}

func (a *app) serverConfig() api.ServerConfig {
	sc := api.DefaultServerConfig()
	sc.Addr = a.cfg.HTTP.Addr
	sc.ReadTimeout = a.cfg.HTTP.ReadTimeout
	sc.WriteTimeout = a.cfg.HTTP.WriteTimeout
	return sc
}
