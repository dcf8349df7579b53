package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/danmuck/tramdash/internal/config"
	"github.com/danmuck/tramdash/internal/logging"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	configPath  string
	envFile     string
	addr        string
	ui          string
	statusAddr  string
	refresh     string
	logFile     string
	corsOrigins []string
}

func newRootCmd() *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:   "tramdash [port]",
		Short: "Live dashboard for a tram telemetry feed",
		Long: `tramdash connects to a tram telemetry publisher, decodes the
length-prefixed key/value feed and shows the latest location and passenger
count reported for every tram.

A bare port argument connects to 127.0.0.1:<port>.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, flags, args)
			if err != nil {
				return err
			}
			closeLog, err := setupLogging(cfg)
			if err != nil {
				return err
			}
			defer closeLog()
			return newApp(cfg, cmd.OutOrStdout()).run(cmd.Context())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.configPath, "config", "c", "", "path to a TOML config file")
	f.StringVar(&flags.envFile, "env-file", ".env", "dotenv file loaded before reading TRAMDASH_* variables")
	f.StringVarP(&flags.addr, "addr", "a", "", "publisher address host:port")
	f.StringVar(&flags.ui, "ui", "", "presenter: tui|plain|none")
	f.StringVar(&flags.statusAddr, "status-addr", "", "serve /healthz, /trams and /metrics on this address")
	f.StringVar(&flags.refresh, "refresh", "", "dashboard refresh interval, e.g. 500ms")
	f.StringVar(&flags.logFile, "log-file", "", "write logs to this file")
	f.StringSliceVar(&flags.corsOrigins, "cors-origin", nil, "allowed CORS origin for the status API (repeatable)")

	cmd.AddCommand(newConfigCmd(), newVersionCmd())
	return cmd
}

// resolveConfig layers dotenv, file, environment, flags, then the
// positional port.
func resolveConfig(cmd *cobra.Command, flags rootFlags, args []string) (config.Config, error) {
	if err := config.LoadDotEnv(flags.envFile); err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return config.Config{}, err
	}

	changed := cmd.Flags().Changed
	if changed("addr") {
		cfg.Transport.Address = strings.TrimSpace(flags.addr)
	}
	if changed("ui") {
		cfg.UI = config.UIMode(strings.ToLower(strings.TrimSpace(flags.ui)))
	}
	if changed("status-addr") {
		cfg.StatusAddr = strings.TrimSpace(flags.statusAddr)
	}
	if changed("refresh") {
		d, err := parseRefresh(flags.refresh)
		if err != nil {
			return config.Config{}, err
		}
		cfg.RefreshInterval = d
	}
	if changed("log-file") {
		cfg.LogFile = strings.TrimSpace(flags.logFile)
	}
	if changed("cors-origin") {
		cfg.CORSOrigins = flags.corsOrigins
	}
	if len(args) == 1 {
		addr, err := config.PortAddr(args[0])
		if err != nil {
			return config.Config{}, err
		}
		cfg.Transport.Address = addr
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// setupLogging routes logs to the configured file. Without one, the TUI
// mode discards logs so they do not tear the alternate screen.
func setupLogging(cfg config.Config) (func(), error) {
	var out io.Writer = os.Stderr
	closeFn := func() {}
	switch {
	case cfg.LogFile != "":
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closeFn = func() { _ = f.Close() }
	case cfg.UI == config.UITUI:
		out = io.Discard
	}
	logging.ConfigureRuntime(out)
	return closeFn, nil
}

func parseRefresh(raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parse --refresh: %w", err)
	}
	return d, nil
}
