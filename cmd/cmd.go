// Package cmd defines the command-line interface for devpulse.
package cmd

import (
	"github.com/huangsam/devpulse/internal/contract"
	"github.com/huangsam/devpulse/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(categorizeCmd)
	rootCmd.AddCommand(tagsCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(mcpCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatusCmd)

	// Add the stats subcommands to the parent stats command
	statsCmd.AddCommand(statsMigrateCmd)
	statsCmd.AddCommand(statsResetCmd)
	statsCmd.AddCommand(statsStatusCmd)
	statsCmd.AddCommand(statsExportCmd)
	statsCmd.AddCommand(statsWeeklyCmd)
	statsCmd.AddCommand(statsDailyCmd)
	statsCmd.AddCommand(statsCommitsCmd)

	// Bind all persistent flags of rootCmd to Viper
	pf := rootCmd.PersistentFlags()
	pf.StringSlice("repos", contract.DefaultRepositories, "Repositories to analyze (owner/name, comma-separated)")
	pf.String("provider", string(schema.GitHubProvider), "Commit provider: github or local")
	pf.String("local-root", "", "Directory holding local clones when --provider=local")
	pf.String("github-token", "", "GitHub token (prefer GITHUB_TOKEN)")
	pf.String("start", contract.DefaultStartDate, "Start date in ISO8601 or time ago")
	pf.String("end", "", "End date in ISO8601 or time ago (default today)")
	pf.String("date", "", "Analyze a single day instead of today")
	pf.String("timezone", "", "IANA timezone for day boundaries (default local)")
	pf.String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	pf.String("output-file", "", "Optional path to write output to")
	pf.Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	pf.Int("width", 0, "Terminal width override (0 = auto-detect)")
	pf.Int("workers", contract.DefaultWorkers, "Number of concurrent repository workers")
	pf.Int("max-inflight", contract.DefaultMaxInflight, "Maximum concurrent upstream requests")
	pf.String("request-timeout", contract.DefaultRequestTimeout.String(), "Timeout of a single upstream request")
	pf.String("use-cache", "yes", "Cache fetched commits (yes/no/true/false/1/0)")
	pf.String("cache-max-age", contract.DefaultCacheMaxAge.String(), "Maximum age of a cached commit window")
	pf.String("cache-backend", string(schema.SQLiteBackend), "Cache backend: sqlite or mysql or postgresql or redis or none")
	pf.String("cache-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	pf.String("redis-addr", "", "Redis address (host:port) for the redis cache backend")
	pf.String("redis-password", "", "Redis password")
	pf.Int("redis-db", 0, "Redis database number")
	pf.String("stats-backend", string(schema.SQLiteBackend), "Stats backend: sqlite or mysql or postgresql or none")
	pf.String("stats-db-connect", "", "Database connection string for the stats store (a SQLite path must differ from cache-db-connect)")
	pf.String("llm", "no", "Escalate uncategorized commits to the OpenAI classifier (yes/no)")
	pf.String("llm-model", contract.DefaultLLMModel, "OpenAI model used by the classifier")
	pf.String("openai-api-key", "", "OpenAI API key (prefer OPENAI_API_KEY)")
	pf.String("openai-base-url", "", "OpenAI-compatible API base URL")
	pf.String("log-level", contract.DefaultLogLevel, "Log level: debug or info or warn or error")
	pf.String("log-format", contract.DefaultLogFormat, "Log format: console or json")
	pf.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g., :9090)")
	pf.String("profile", "", "Enable profiling and write profiles to files with this prefix")
	pf.String("config", "", "Path to config file")
	if err := viper.BindPFlags(pf); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	reportCmd.Flags().String("excel-file", "", "Spreadsheet path (default productivity_YYYYMMDD.xlsx)")
	if err := viper.BindPFlags(reportCmd.Flags()); err != nil {
		contract.LogFatal("Error binding report flags", err)
	}

	ingestCmd.Flags().Int("days-back", contract.DefaultDaysBack, "Number of days to publish, ending today")
	ingestCmd.Flags().String("repo", "", "Publish only this configured repository")
	if err := viper.BindPFlags(ingestCmd.Flags()); err != nil {
		contract.LogFatal("Error binding ingest flags", err)
	}

	categorizeCmd.Flags().StringSlice("files", nil, "Files touched by the commit message being categorized")

	statsMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(statsMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding stats migrate flags", err)
	}

	statsWeeklyCmd.Flags().Int("limit", contract.DefaultWeeklyLimit, "Number of weeks to show")
	statsCommitsCmd.Flags().Int("limit", contract.DefaultRawCommitLimit, "Number of commits to show")
}
