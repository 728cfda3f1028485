// SPDX-FileCopyrightText: Copyright 2025 The mini-oidc Authors
// SPDX-License-Identifier: Apache-2.0

// Package main is the entry point for the mini-oidc identity provider.
package main

import (
	"os"

	"github.com/basique/mini-oidc/cmd/mini-oidc/app"
	"github.com/basique/mini-oidc/pkg/logger"
)

func main() {
	logger.Initialize()

	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
