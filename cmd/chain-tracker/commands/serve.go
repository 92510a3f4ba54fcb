package commands

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/chaintracker/chain-tracker/internal/constants"
	"github.com/chaintracker/chain-tracker/internal/registry"
	"github.com/chaintracker/chain-tracker/internal/webservice"
	"github.com/spf13/cobra"
)

func (a *App) installServe() error {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only dashboard",
		Long:  "Serve the dashboard pages, the JSON API and the Prometheus metrics. The registries are reloaded when their files change.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serveRun()
		},
	}

	defaultConf := serveConfig{
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   10 * time.Second,
		RequestTimeout: 5 * time.Second,
		MaxHeaderBytes: 1 << 13, // 8 KB
		HistoryLimit:   constants.DefaultHistoryLimit,
		RateLimit:      10,
		RateBurst:      20,
		ListenPort:     constants.DefaultListenPort,
	}

	conf := &a.config.Serve
	cmd.Flags().DurationVar(&conf.ReadTimeout, "read-timeout", defaultConf.ReadTimeout, "read timeout for HTTP server")
	cmd.Flags().DurationVar(&conf.WriteTimeout, "write-timeout", defaultConf.WriteTimeout, "write timeout for HTTP server")
	cmd.Flags().DurationVar(&conf.RequestTimeout, "request-timeout", defaultConf.RequestTimeout, "request timeout for HTTP server")
	cmd.Flags().IntVar(&conf.MaxHeaderBytes, "max-header-bytes", defaultConf.MaxHeaderBytes, "maximum header bytes for HTTP server")
	cmd.Flags().IntVar(&conf.HistoryLimit, "history-limit", defaultConf.HistoryLimit, "number of days shown in the history")
	cmd.Flags().Float64Var(&conf.RateLimit, "rate-limit", defaultConf.RateLimit, "API requests allowed per second and client IP, 0 to disable")
	cmd.Flags().IntVar(&conf.RateBurst, "rate-burst", defaultConf.RateBurst, "API requests allowed in a burst per client IP")

	cmd.Flags().StringVar(&conf.ListenHost, "listen-host", defaultConf.ListenHost, "host to listen on")
	cmd.Flags().IntVar(&conf.ListenPort, "listen-port", defaultConf.ListenPort, "port to listen on")

	a.cmd.AddCommand(cmd)
	return a.bindFlags(cmd, "read-timeout", "write-timeout", "request-timeout", "max-header-bytes", "history-limit", "rate-limit", "rate-burst", "listen-host", "listen-port")
}

func (a *App) serveRun() (err error) {
	l := slog.Default()
	conf := a.config.Serve
	sc := webservice.StaticConfig{
		ReadTimeout:    conf.ReadTimeout,
		WriteTimeout:   conf.WriteTimeout,
		RequestTimeout: conf.RequestTimeout,
		MaxHeaderBytes: conf.MaxHeaderBytes,
		HistoryLimit:   conf.HistoryLimit,
		RateLimit:      conf.RateLimit,
		RateBurst:      conf.RateBurst,
		ListenHost:     conf.ListenHost,
		ListenPort:     conf.ListenPort,
	}

	rm := registry.NewManager(a.config.ConfigDir, registry.WithLogger(l))
	a.daemon, err = webservice.New(a.ctx, rm, a.store(), a.pullLog(), sc, webservice.WithLogger(l))
	close(a.ready)
	if err != nil {
		return fmt.Errorf("failed to create server: %v", err)
	}

	return a.daemon.Run()
}
