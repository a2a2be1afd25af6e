package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/huangsam/devpulse/core"
	"github.com/huangsam/devpulse/core/ingest"
	"github.com/huangsam/devpulse/internal/contract"
	"github.com/huangsam/devpulse/internal/iocache"
	"github.com/huangsam/devpulse/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// profile holds profiling configuration.
var profile = &contract.ProfileConfig{}

// cacheManager is the global persistence manager instance.
var cacheManager contract.CacheManager = iocache.Manager

// logger is built from --log-level and --log-format during setup.
var logger = zap.NewNop()

// services are wired from the validated config during setup.
var services *core.Services

// startProfiling starts CPU and memory profiling if enabled.
func startProfiling() error {
	if !profile.Enabled {
		return nil
	}

	cpuFile, err := os.Create(profile.Prefix + ".cpu.prof")
	if err != nil {
		return fmt.Errorf("could not create CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(cpuFile); err != nil {
		return fmt.Errorf("could not start CPU profiling: %w", err)
	}

	_, err = fmt.Fprintf(os.Stderr, "Profiling enabled. CPU profile: %s.cpu.prof, Memory profile: %s.mem.prof\n", profile.Prefix, profile.Prefix)
	return err
}

// stopProfiling stops profiling and writes memory profile.
func stopProfiling() error {
	if !profile.Enabled {
		return nil
	}

	pprof.StopCPUProfile()

	memFile, err := os.Create(profile.Prefix + ".mem.prof")
	if err != nil {
		return fmt.Errorf("could not create memory profile: %w", err)
	}
	defer func() { _ = memFile.Close() }()

	if err := pprof.WriteHeapProfile(memFile); err != nil {
		return fmt.Errorf("could not write memory profile: %w", err)
	}

	_, err = fmt.Fprintf(os.Stderr, "Profiling complete. Use 'go tool pprof %s.cpu.prof' to analyze.\n", profile.Prefix)
	return err
}

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:                "devpulse",
	Short:              "Measure developer productivity from tagged Git commits.",
	Long:               `DevPulse categorizes commits across repositories and turns them into daily and weekly productivity reports.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(".devpulse")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
	}

	viper.SetEnvPrefix("DEVPULSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// GITHUB_TOKEN and OPENAI_API_KEY are honoured when the prefixed variable is unset.
	_ = viper.BindEnv("github-token", "DEVPULSE_GITHUB_TOKEN", "GITHUB_TOKEN")
	_ = viper.BindEnv("openai-api-key", "DEVPULSE_OPENAI_API_KEY", "OPENAI_API_KEY")

	viper.SetDefault("repos", contract.DefaultRepositories)
	viper.SetDefault("provider", string(schema.GitHubProvider))
	viper.SetDefault("workers", contract.DefaultWorkers)
	viper.SetDefault("max-inflight", contract.DefaultMaxInflight)
	viper.SetDefault("request-timeout", contract.DefaultRequestTimeout.String())
	viper.SetDefault("cache-max-age", contract.DefaultCacheMaxAge.String())
	viper.SetDefault("precision", contract.DefaultPrecision)
	viper.SetDefault("output", string(schema.TextOut))
	viper.SetDefault("start", contract.DefaultStartDate)
	viper.SetDefault("cache-backend", string(schema.SQLiteBackend))
	viper.SetDefault("stats-backend", string(schema.SQLiteBackend))
	viper.SetDefault("llm-model", contract.DefaultLLMModel)
	viper.SetDefault("log-level", contract.DefaultLogLevel)
	viper.SetDefault("log-format", contract.DefaultLogFormat)
	viper.SetDefault("days-back", contract.DefaultDaysBack)
}

// loadConfigFile reads the config file when one exists.
func loadConfigFile() error {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, which is fine; we'll use defaults/env/flags.
	}
	return nil
}

// sharedSetup unmarshals config, runs validation and wires the services.
// The stats store is only opened when withStats is set.
func sharedSetup(ctx context.Context, withStats bool) error {
	profilePrefix := viper.GetString("profile")
	if err := contract.ProcessProfilingConfig(profile, profilePrefix); err != nil {
		return fmt.Errorf("failed to process profiling config: %w", err)
	}
	if profile.Enabled {
		if err := startProfiling(); err != nil {
			return fmt.Errorf("failed to start profiling: %w", err)
		}
	}

	// 1. Read config file. This merges defaults, file, env, and flags.
	if err := loadConfigFile(); err != nil {
		return err
	}

	// 2. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	// 3. Run all validation and complex parsing before any network activity.
	if err := contract.ProcessAndValidate(cfg, input, time.Now()); err != nil {
		return err
	}

	l, err := contract.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	logger = l

	// 4. Initialize persistence layer with validated config.
	var cacheBackend schema.DatabaseBackend
	if cfg.UseCache {
		cacheBackend = cfg.CacheBackend
	}
	var statsBackend schema.DatabaseBackend
	if withStats {
		statsBackend = cfg.StatsBackend
	}
	if err := iocache.InitStores(ctx, cacheBackend, cfg.CacheDBConnect, redisOptions(), statsBackend, cfg.StatsDBConnect); err != nil {
		return fmt.Errorf("failed to initialize persistence: %w", err)
	}

	// 5. Wire the services.
	var metrics *ingest.Metrics
	if cfg.MetricsAddr != "" {
		metrics = core.StartMetricsServer(ctx, cfg.MetricsAddr, logger)
	}
	svc, err := core.NewServices(cfg, cacheManager, logger, metrics)
	if err != nil {
		return err
	}
	services = svc
	return nil
}

// sharedSetupWrapper wraps sharedSetup for commands that only read upstream.
func sharedSetupWrapper(_ *cobra.Command, _ []string) error {
	return sharedSetup(rootCtx, false)
}

// statsSetupWrapper wraps sharedSetup for commands that also need the stats store.
func statsSetupWrapper(_ *cobra.Command, _ []string) error {
	return sharedSetup(rootCtx, true)
}

func redisOptions() iocache.RedisOptions {
	return iocache.RedisOptions{
		Addr:     viper.GetString("redis-addr"),
		Password: viper.GetString("redis-password"),
		DB:       viper.GetInt("redis-db"),
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetCacheManager sets the global cache manager.
func SetCacheManager(mgr contract.CacheManager) {
	cacheManager = mgr
}

// Sync flushes the logger.
func Sync() {
	_ = logger.Sync()
}

// StopProfiling stops profiling if enabled.
func StopProfiling() error {
	return stopProfiling()
}
