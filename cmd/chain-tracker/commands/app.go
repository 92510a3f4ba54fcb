// Package commands provides the chain-tracker command line.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/chaintracker/chain-tracker/internal/cli"
	"github.com/chaintracker/chain-tracker/internal/constants"
	"github.com/chaintracker/chain-tracker/internal/pulllog"
	"github.com/chaintracker/chain-tracker/internal/store"
	"github.com/chaintracker/chain-tracker/internal/webservice"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// fredAPIKeyEnv is the environment variable holding the FRED API key.
const fredAPIKeyEnv = "FRED_API_KEY"

// App represents the application.
type App struct {
	cmd    *cobra.Command
	viper  *viper.Viper
	config appConfig

	// Per invocation flags, not read from the configuration.
	pull   pullFlags
	pkg    packageFlags
	daemon *webservice.Server

	ctx    context.Context
	cancel context.CancelFunc
	ready  chan struct{}
}

// appConfig holds the configuration for the application.
type appConfig struct {
	Verbosity int    `mapstructure:"verbose"`
	JSONLogs  bool   `mapstructure:"json-logs"`
	EnvFile   string `mapstructure:"env-file"`
	DataDir   string `mapstructure:"data-dir"`
	LogsDir   string `mapstructure:"logs-dir"`
	ConfigDir string `mapstructure:"config-dir"`

	FREDAPIKey  string        `mapstructure:"fred-api-key"`
	PullTimeout time.Duration `mapstructure:"pull-timeout"`
	KeepDays    int           `mapstructure:"keep-days"`

	Serve serveConfig `mapstructure:",squash"`
}

// serveConfig holds the configuration of the dashboard server.
type serveConfig struct {
	ReadTimeout    time.Duration `mapstructure:"read-timeout"`
	WriteTimeout   time.Duration `mapstructure:"write-timeout"`
	RequestTimeout time.Duration `mapstructure:"request-timeout"`
	MaxHeaderBytes int           `mapstructure:"max-header-bytes"`
	HistoryLimit   int           `mapstructure:"history-limit"`
	RateLimit      float64       `mapstructure:"rate-limit"`
	RateBurst      int           `mapstructure:"rate-burst"`
	ListenHost     string        `mapstructure:"listen-host"`
	ListenPort     int           `mapstructure:"listen-port"`
}

// New creates a new App instance with default values.
func New() (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	a := App{ctx: ctx, cancel: cancel, ready: make(chan struct{})}

	a.cmd = &cobra.Command{
		Use:           constants.CmdName,
		Short:         "Argentina macro chain tracker",
		Long:          "Pulls daily macro data from FRED, BCRA and DolarHoy, stores dated snapshots, builds the daily package and serves the read-only dashboard.",
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Command parsing has been successful. Returns to not print usage anymore.
			a.cmd.SilenceUsage = true
			cli.SetVerbosity(a.config.Verbosity) // Set verbosity before loading config
			if err := cli.InitViperConfig(constants.CmdName, a.cmd, a.viper); err != nil {
				return err
			}
			if err := a.viper.Unmarshal(&a.config); err != nil {
				return fmt.Errorf("unable to strictly decode configuration into struct: %w", err)
			}

			cli.SetSlog(cmd.ErrOrStderr(), a.config.Verbosity, a.config.JSONLogs)
			slog.Info("got app config", "config", a.config.redacted())

			if err := cli.LoadDotEnv(slog.Default(), a.config.EnvFile); err != nil {
				return err
			}
			if a.config.FREDAPIKey == "" {
				a.config.FREDAPIKey = os.Getenv(fredAPIKeyEnv)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Usage()
		},
	}
	a.viper = viper.New()
	a.cmd.CompletionOptions.HiddenDefaultCmd = true

	installRootFlags(&a)
	cli.InstallConfigFlag(a.cmd)

	if err := a.viper.BindPFlags(a.cmd.PersistentFlags()); err != nil {
		return nil, err
	}

	for _, install := range []func() error{
		a.installPull,
		a.installValidate,
		a.installPackage,
		a.installTrim,
		a.installServe,
	} {
		if err := install(); err != nil {
			return nil, err
		}
	}
	a.installVersion()

	return &a, nil
}

func installRootFlags(app *App) {
	cmd := app.cmd

	cmd.PersistentFlags().CountVarP(&app.config.Verbosity, "verbose", "v", "issue INFO (-v), DEBUG (-vv)")
	cmd.PersistentFlags().BoolVar(&app.config.JSONLogs, "json-logs", false, "write logs as JSON records")
	cmd.PersistentFlags().StringVar(&app.config.EnvFile, "env-file", constants.DefaultEnvFile, "dotenv file to read secrets such as "+fredAPIKeyEnv+" from")
	cmd.PersistentFlags().StringVar(&app.config.DataDir, "data-dir", constants.DefaultDataDir, "directory holding the dated snapshot folders")
	cmd.PersistentFlags().StringVar(&app.config.LogsDir, "logs-dir", constants.DefaultLogsDir, "directory holding the pull log")
	cmd.PersistentFlags().StringVar(&app.config.ConfigDir, "config-dir", constants.DefaultConfigDir, "directory holding the source and analyst registries")

	for _, name := range []string{"data-dir", "logs-dir", "config-dir"} {
		if err := cmd.MarkPersistentFlagDirname(name); err != nil {
			// This should never happen.
			panic(fmt.Sprintf("failed to mark %s flag as directory: %v", name, err))
		}
	}
	if err := cmd.MarkPersistentFlagFilename("env-file"); err != nil {
		// This should never happen.
		panic(fmt.Sprintf("failed to mark env-file flag as filename: %v", err))
	}
}

// bindFlags makes the local flags of cmd readable from the configuration file and the environment.
func (a *App) bindFlags(cmd *cobra.Command, names ...string) error {
	for _, name := range names {
		if err := a.viper.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
			return fmt.Errorf("could not bind flag %s: %v", name, err)
		}
	}
	return nil
}

func (c appConfig) redacted() appConfig {
	if c.FREDAPIKey != "" {
		c.FREDAPIKey = "***"
	}
	return c
}

func (a *App) store() store.Store {
	return store.New(a.config.DataDir, slog.Default())
}

func (a *App) pullLog() *pulllog.Log {
	return pulllog.New(a.config.LogsDir)
}

// Run executes the command and associated process, returning an error if any.
func (a App) Run() error {
	return a.cmd.ExecuteContext(a.ctx)
}

// UsageError returns if the error is a command parsing or runtime one.
func (a App) UsageError() bool {
	return !a.cmd.SilenceUsage
}

// Hup prints all goroutine stack traces and return false to signal you shouldn't quit.
func (a App) Hup() (shouldQuit bool) {
	buf := make([]byte, 1<<16)
	n := runtime.Stack(buf, true)
	fmt.Printf("%s", buf[:n])
	return false
}

// Quit interrupts the running command. A running dashboard shuts down gracefully.
func (a *App) Quit() {
	select {
	case <-a.ready:
		if a.daemon != nil {
			a.daemon.Quit(false)
			return
		}
	default:
	}
	a.cancel()
}

// WaitReady waits for the dashboard server to be created.
func (a *App) WaitReady() {
	<-a.ready
}

// RootCmd returns the root command.
func (a App) RootCmd() cobra.Command {
	return *a.cmd
}
