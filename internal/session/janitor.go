// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"context"
	"time"

	"github.com/pdiddy/assessment-engine/internal/logger"
)

// Janitor sweeps a store on a fixed interval.
type Janitor struct {
	Store    Store
	Interval time.Duration
	Log      *logger.Logger
}

// Run sweeps every Interval until ctx is done. A failed sweep is logged and
// retried on the next tick.
func (j *Janitor) Run(ctx context.Context) {
	interval := j.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	log := j.Log
	if log == nil {
		log = logger.Nop()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := j.Store.Sweep(ctx)
			if err != nil {
				log.Warn("session.sweep.failed", "error", err.Error())
				continue
			}
			if n > 0 {
				log.Info("session.sweep", "evicted", n)
			}
		}
	}
}
