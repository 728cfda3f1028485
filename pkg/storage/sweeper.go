// SPDX-FileCopyrightText: Copyright 2025 The mini-oidc Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"time"

	"github.com/basique/mini-oidc/pkg/logger"
)

// SweepFunc deletes expired rows of one credential kind and reports how many
// it removed.
type SweepFunc func(ctx context.Context) (int64, error)

// Sweeper periodically deletes expired credential rows. One sweeper runs per
// credential kind; each is independent and idempotent. Transient errors are
// logged and the loop continues; expiry is re-checked on every lookup, so
// sweep latency is not part of the security boundary.
type Sweeper struct {
	kind     string
	interval time.Duration
	sweep    SweepFunc
}

// NewSweeper builds a sweeper for one credential kind. A non-positive
// interval falls back to SweepInterval.
func NewSweeper(kind string, interval time.Duration, sweep SweepFunc) *Sweeper {
	if interval <= 0 {
		interval = SweepInterval
	}
	return &Sweeper{kind: kind, interval: interval, sweep: sweep}
}

// Run loops until ctx is canceled, sweeping once per interval. It always
// returns nil so a shared errgroup treats cancellation as a clean stop.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debugw("sweeper stopped", "kind", s.kind)
			return nil
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	deleted, err := s.sweep(ctx)
	if err != nil {
		logger.Errorw("expiry sweep failed", "kind", s.kind, "error", err.Error())
		return
	}
	logger.Debugw("swept expired credentials", "kind", s.kind, "deleted", deleted)
}
