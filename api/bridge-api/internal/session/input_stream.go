// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_session

// InputState tracks the user-side utterance.
type InputState int

const (
	InputIdle InputState = iota
	InputActive
	InputCommitted
	InputCleared
)

func (s InputState) String() string {
	switch s {
	case InputIdle:
		return "idle"
	case InputActive:
		return "active"
	case InputCommitted:
		return "committed"
	case InputCleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// InputStream counts one logical user utterance on its way to the AI peer.
// Committed is terminal for the utterance; a new Start opens the next one.
type InputStream struct {
	state   InputState
	bytes   int64
	samples int64
}

func (s *InputStream) State() InputState { return s.state }

func (s *InputStream) Bytes() int64 { return s.bytes }

func (s *InputStream) Samples() int64 { return s.samples }

// Start opens a new utterance and resets the counters.
func (s *InputStream) Start() {
	s.state = InputActive
	s.bytes = 0
	s.samples = 0
}

// Add records forwarded audio. Returns false while the stream is not active;
// the caller discards the chunk.
func (s *InputStream) Add(bytes, samples int) bool {
	if s.state != InputActive {
		return false
	}
	s.bytes += int64(bytes)
	s.samples += int64(samples)
	return true
}

// Commit seals the utterance. Returns false if there was nothing active.
func (s *InputStream) Commit() bool {
	if s.state != InputActive {
		return false
	}
	s.state = InputCommitted
	return true
}

// Clear drops the utterance without committing.
func (s *InputStream) Clear() {
	s.state = InputCleared
	s.bytes = 0
	s.samples = 0
}
