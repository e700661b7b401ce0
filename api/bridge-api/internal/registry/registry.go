// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package internal_registry indexes live bridges by call id, for session
// resume and orphan cleanup.
package internal_registry

import (
	"context"
	"sync"
	"time"

	"github.com/voxbridgeai/pkg/commons"
	"github.com/voxbridgeai/pkg/utils"
)

// Handle is what the registry knows about a bridge.
type Handle interface {
	CallID() string
	Closed() bool
}

const sweepInterval = time.Minute

// Registry is the only structure shared across calls. Bridges remove
// themselves on finalization; the sweep catches orphans whose teardown never
// ran (panicked bridges).
type Registry struct {
	logger commons.Logger

	mu      sync.RWMutex
	bridges map[string]Handle

	stopSweep context.CancelFunc
}

func New(logger commons.Logger) *Registry {
	r := &Registry{
		logger:  logger,
		bridges: make(map[string]Handle),
	}

	sweepCtx, cancel := context.WithCancel(context.Background())
	r.stopSweep = cancel
	utils.Go(sweepCtx, func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				r.Sweep()
			}
		}
	})
	return r
}

func (r *Registry) Add(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bridges[h.CallID()] = h
}

func (r *Registry) Get(callID string) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.bridges[callID]
	return h, ok
}

func (r *Registry) Remove(callID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bridges, callID)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bridges)
}

// Sweep drops entries whose bridge reports closed.
func (r *Registry) Sweep() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, h := range r.bridges {
		if h.Closed() {
			r.logger.Infow("sweeping closed call from registry", "call", id)
			delete(r.bridges, id)
		}
	}
}

// Close stops the background sweep.
func (r *Registry) Close() {
	r.stopSweep()
}
