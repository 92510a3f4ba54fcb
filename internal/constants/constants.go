// Package constants is responsible for defining the constants used in the application.
package constants

import (
	"log/slog"
	"time"
)

var (
	// Version is the version of the application.
	Version = "Dev"
)

const (
	// CmdName is the name of the command line tool.
	CmdName = "chain-tracker"

	// DefaultLogLevel is the default log level selected without any verbosity flags.
	DefaultLogLevel = slog.LevelWarn

	// DefaultDataDir is the default directory holding the dated snapshot folders.
	DefaultDataDir = "data"

	// DefaultLogsDir is the default directory holding the pull log.
	DefaultLogsDir = "logs"

	// DefaultConfigDir is the default directory holding the registry files.
	DefaultConfigDir = "config"

	// DefaultEnvFile is the default path of the dotenv file holding secrets.
	DefaultEnvFile = ".env"

	// PullLogFileName is the name of the append-only pull log.
	PullLogFileName = "pull_log.jsonl"

	// SnapshotExt is the extension of the snapshot files.
	SnapshotExt = ".json"

	// DateLayout is the layout of the dated snapshot folders.
	DateLayout = "2006-01-02"

	// TimestampLayout is the layout of every UTC timestamp written to disk.
	TimestampLayout = "2006-01-02T15:04:05Z"

	// UserAgent is sent with every outgoing request.
	UserAgent = "ArgentinaChainTracker/1.0"

	// DefaultPullTimeout is the per request timeout of the pullers.
	DefaultPullTimeout = 25 * time.Second

	// SnippetLength is the number of characters of a raw response kept in a snapshot.
	SnippetLength = 500

	// DefaultKeepDays is the default number of dated folders kept by trim.
	DefaultKeepDays = 21

	// DefaultHistoryLimit is the default number of days shown in the history table.
	DefaultHistoryLimit = 120

	// DefaultListenPort is the default port of the dashboard.
	DefaultListenPort = 5000

	// Missing is the placeholder rendered for absent values.
	Missing = "—"
)

// Registry file base names, looked up in the config directory.
const (
	SourceRegistryName       = "source_registry"
	AnalystRegistryName      = "analyst_registry"
	CompetitiveBenchmarkName = "competitive_benchmark"
	ResearchDigestName       = "research_digest"
)

// Community feed location, relative to the data directory.
const (
	CommunityDir = "community"
	FeedFileName = "feed.json"
)

// Daily package file names, written next to the snapshots.
const (
	ChainAnalysisFileName = "chain_analysis.json"
	DailyBriefFileName    = "daily_brief.md"
)
