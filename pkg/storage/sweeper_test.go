// SPDX-FileCopyrightText: Copyright 2025 The mini-oidc Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweeper_Run(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	sweeper := NewSweeper("sessions", 5*time.Millisecond, func(context.Context) (int64, error) {
		calls.Add(1)
		return 2, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sweeper.Run(ctx) }()

	assert.Eventually(t, func() bool { return calls.Load() >= 3 },
		time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}

func TestSweeper_ContinuesAfterError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	sweeper := NewSweeper("codes", 5*time.Millisecond, func(context.Context) (int64, error) {
		if calls.Add(1) == 1 {
			return 0, errors.New("database is locked")
		}
		return 0, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = sweeper.Run(ctx) }()

	// The loop survives the first, failing sweep.
	assert.Eventually(t, func() bool { return calls.Load() >= 2 },
		time.Second, time.Millisecond)
}

func TestNewSweeper_DefaultInterval(t *testing.T) {
	t.Parallel()

	sweeper := NewSweeper("tokens", 0, func(context.Context) (int64, error) { return 0, nil })
	require.NotNil(t, sweeper)
	assert.Equal(t, SweepInterval, sweeper.interval)
}
