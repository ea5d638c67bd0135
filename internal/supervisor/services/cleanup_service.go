// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package services

import (
	"context"
	"time"

	"github.com/tomtom215/stashbridge/internal/logging"
)

// CleanupTask removes expired state and returns how many entries it dropped.
// Gate.PurgeExpired and imageproxy.Proxy.Purge have this shape.
type CleanupTask struct {
	Name string
	Run  func() int
}

// CleanupService runs cleanup tasks on a fixed interval.
type CleanupService struct {
	tasks    []CleanupTask
	interval time.Duration
	name     string
}

// NewCleanupService creates the service. A non-positive interval defaults
// to five minutes.
func NewCleanupService(interval time.Duration, tasks ...CleanupTask) *CleanupService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &CleanupService{
		tasks:    tasks,
		interval: interval,
		name:     "cleanup",
	}
}

// Serve implements suture.Service. It runs until ctx is canceled.
func (c *CleanupService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.RunOnce()
		}
	}
}

// RunOnce runs every task once.
func (c *CleanupService) RunOnce() {
	for _, task := range c.tasks {
		if n := task.Run(); n > 0 {
			logging.Debug().Str("task", task.Name).Int("removed", n).Msg("Cleanup removed expired entries")
		}
	}
}

// String implements fmt.Stringer for logging.
func (c *CleanupService) String() string {
	return c.name
}
