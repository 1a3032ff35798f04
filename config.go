/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const minSendBuffer = 8

type Config struct {
	bind         string
	otelEndpoint string
	pingInterval time.Duration
	port         int
	prefix       string
	profile      bool
	puzzle       string
	sendBuffer   int
	tlsCert      string
	tlsKey       string
	verbose      bool
	version      bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.sendBuffer < minSendBuffer {
		return fmt.Errorf("invalid send buffer (must be at least %d): %d", minSendBuffer, c.sendBuffer)
	}
	if c.pingInterval <= 0 {
		return fmt.Errorf("invalid ping interval (must be positive): %s", c.pingInterval)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("ESCAPEHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "escapehub",
		Short:         "Realtime shared-state hub for a collaborative escape puzzle.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: ESCAPEHUB_BIND)")
	fs.StringVar(&cfg.otelEndpoint, "otel-endpoint", "", "OTLP/HTTP endpoint to export traces to (env: ESCAPEHUB_OTEL_ENDPOINT)")
	fs.DurationVar(&cfg.pingInterval, "ping-interval", 54*time.Second, "interval between websocket keepalive pings (env: ESCAPEHUB_PING_INTERVAL)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: ESCAPEHUB_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: ESCAPEHUB_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: ESCAPEHUB_PROFILE)")
	fs.StringVar(&cfg.puzzle, "puzzle", "", "path to a puzzle definition in YAML, instead of the built-in one (env: ESCAPEHUB_PUZZLE)")
	fs.IntVar(&cfg.sendBuffer, "send-buffer", 64, "messages queued per client before it is dropped (env: ESCAPEHUB_SEND_BUFFER)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: ESCAPEHUB_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: ESCAPEHUB_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: ESCAPEHUB_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: ESCAPEHUB_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("escapehub v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
