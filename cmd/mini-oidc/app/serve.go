// SPDX-FileCopyrightText: Copyright 2025 The mini-oidc Authors
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/basique/mini-oidc/pkg/keys"
	"github.com/basique/mini-oidc/pkg/logger"
	"github.com/basique/mini-oidc/pkg/server"
	"github.com/basique/mini-oidc/pkg/storage/sqlite"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the identity provider",
		Long: `Run the identity provider. Configuration comes from flags, the BIND_ADDR,
DATABASE_URL, and ISSUER_URL environment variables, or a .env file in the
working directory, in that order of precedence.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger.Initialize()
			return serve(cmd.Context())
		},
	}

	cmd.Flags().String("bind-addr", "", "Address to listen on (host:port)")
	cmd.Flags().String("database-url", "", "SQLite database path or DSN")
	cmd.Flags().String("issuer-url", "", "Canonical issuer URL of this provider")

	for flag, key := range map[string]string{
		"bind-addr":    "bind_addr",
		"database-url": "database_url",
		"issuer-url":   "issuer_url",
	} {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			logger.Errorf("Error binding %s flag: %v", flag, err)
		}
	}

	return cmd
}

// loadConfig resolves the serve configuration from flags, environment, and
// an optional .env file.
func loadConfig() (server.Config, string, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	if err := viper.ReadInConfig(); err != nil {
		// A missing .env file is the normal case.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return server.Config{}, "", fmt.Errorf("reading .env: %w", err)
		}
	}
	viper.AutomaticEnv()

	bindAddr := firstNonEmpty(viper.GetString("bind_addr"), viper.GetString("BIND_ADDR"))
	databaseURL := firstNonEmpty(viper.GetString("database_url"), viper.GetString("DATABASE_URL"))
	issuer := firstNonEmpty(viper.GetString("issuer_url"), viper.GetString("ISSUER_URL"))

	if _, _, err := net.SplitHostPort(bindAddr); err != nil {
		return server.Config{}, "", fmt.Errorf("BIND_ADDR must be host:port: %w", err)
	}
	if databaseURL == "" {
		return server.Config{}, "", fmt.Errorf("DATABASE_URL is required")
	}

	issuer = strings.TrimSuffix(issuer, "/")
	parsed, err := url.Parse(issuer)
	if err != nil || !parsed.IsAbs() || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return server.Config{}, "", fmt.Errorf("ISSUER_URL must be an absolute http(s) URL")
	}

	return server.Config{BindAddr: bindAddr, Issuer: issuer}, databaseURL, nil
}

func serve(ctx context.Context) error {
	cfg, databaseURL, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.Open(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warnf("Error closing store: %v", err)
		}
	}()

	// Key generation is CPU-bound and runs exactly once per cold start,
	// before the listener accepts traffic.
	if err := keys.Bootstrap(ctx, store); err != nil {
		return err
	}
	keySet, err := keys.Load(ctx, store)
	if err != nil {
		return err
	}

	return server.New(cfg, store, keySet).Run(ctx)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
