// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package internal_session carries the per-call lifecycle state machine and
// the audio stream bookkeeping between the telephony peer and the AI peer.
package internal_session

import (
	"fmt"
	"sync"
	"time"

	internal_audio "github.com/voxbridgeai/api/bridge-api/internal/audio"
	"github.com/voxbridgeai/pkg/commons"
)

// State is the call lifecycle position.
type State int

const (
	StateInit State = iota
	StateAccepting
	StateActive
	StateEnding
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateAccepting:
		return "accepting"
	case StateActive:
		return "active"
	case StateEnding:
		return "ending"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Call is one live conversation: identity, negotiated media format and the
// lifecycle state machine. All transitions run on the call's router task; the
// mutex only guards cross-goroutine reads (registry sweep, health counters).
type Call struct {
	ID        string
	Caller    string
	Bot       string
	CreatedAt time.Time

	// ExpectsAudioReplies triggers the greeting turn after activation.
	ExpectsAudioReplies bool
	Greeted             bool

	Format internal_audio.Config

	logger commons.Logger
	mu     sync.RWMutex
	state  State
}

func NewCall(logger commons.Logger, id string) *Call {
	return &Call{
		ID:        id,
		CreatedAt: time.Now(),
		logger:    logger,
		state:     StateInit,
	}
}

func (c *Call) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Accepting gates init → accepting on SessionStart.
func (c *Call) Accepting() error {
	return c.transition(StateAccepting, StateInit)
}

// Activate gates accepting → active: the AI socket is up and configured and
// the acceptance frame has been written.
func (c *Call) Activate() error {
	return c.transition(StateActive, StateAccepting)
}

// Reject closes a call that never went active.
func (c *Call) Reject() error {
	return c.transition(StateClosed, StateInit, StateAccepting)
}

// BeginEnding moves any live state to ending. Idempotent: the first caller
// gets true and runs teardown; duplicate end signals are absorbed.
func (c *Call) BeginEnding() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateEnding, StateClosed:
		return false
	default:
		c.logger.Infow("call ending", "call", c.ID, "from", c.state.String())
		c.state = StateEnding
		return true
	}
}

// CloseOut finishes teardown once both sockets are drained and background
// work is done. A closed call is never reused.
func (c *Call) CloseOut() error {
	return c.transition(StateClosed, StateEnding)
}

func (c *Call) transition(to State, from ...State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range from {
		if c.state == f {
			c.state = to
			return nil
		}
	}
	return fmt.Errorf("call %s: illegal transition %s -> %s", c.ID, c.state, to)
}

// Age is how long the call has existed.
func (c *Call) Age() time.Duration {
	return time.Since(c.CreatedAt)
}
