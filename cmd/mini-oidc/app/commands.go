// SPDX-FileCopyrightText: Copyright 2025 The mini-oidc Authors
// SPDX-License-Identifier: Apache-2.0

// Package app provides the command-line interface of mini-oidc.
package app

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/basique/mini-oidc/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:               "mini-oidc",
	DisableAutoGenTag: true,
	Short:             "mini-oidc is a minimal OpenID Connect identity provider",
	Long: `mini-oidc is a minimal OpenID Connect 1.0 identity provider implementing the
OAuth 2.0 authorization code grant with dynamic client registration, JWKS
publication, and a UserInfo endpoint, backed by SQLite.`,
	Run: func(cmd *cobra.Command, _ []string) {
		if err := cmd.Help(); err != nil {
			logger.Errorf("Error displaying help: %v", err)
		}
	},
}

// NewRootCmd creates the root command for the mini-oidc CLI.
func NewRootCmd() *cobra.Command {
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		logger.Errorf("Error binding debug flag: %v", err)
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}
