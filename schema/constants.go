package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for caching and stats.
	DatabaseBackend string

	// Provider represents where commits are fetched from.
	Provider string

	// Method represents the strategy that produced a categorization.
	Method string
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	RedisBackend      DatabaseBackend = "redis" // cache only
	NoneBackend       DatabaseBackend = "none"
)

// All commit providers supported.
const (
	GitHubProvider Provider = "github" // default
	LocalProvider  Provider = "local"
)

// All categorization methods, in the order the categorizer tries them.
const (
	MethodExplicit Method = "explicit"
	MethodKeyword  Method = "keyword"
	MethodFilePath Method = "file_path"
	MethodDiff     Method = "diff"
	MethodCombined Method = "combined"
	MethodExternal Method = "external"
	MethodFallback Method = "fallback"
)

// UntaggedTag is assigned when no strategy finds a category.
const UntaggedTag = "UNTAGGED"

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidCacheBackends lists all valid cache backends.
var ValidCacheBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	RedisBackend:      {},
	NoneBackend:       {},
}

// ValidStatsBackends lists all valid stats backends.
var ValidStatsBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidProviders lists all valid commit providers.
var ValidProviders = map[Provider]struct{}{
	GitHubProvider: {},
	LocalProvider:  {},
}
