// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_bridge

import "sync/atomic"

// Metrics are the server-wide counters surfaced on the health endpoint.
// Shared across calls, hence atomic.
type Metrics struct {
	CallsStarted  atomic.Int64
	CallsEnded    atomic.Int64
	UnknownEvents atomic.Int64
	DroppedFrames atomic.Int64
	ToolCalls     atomic.Int64
}

// Snapshot renders the counters for the health endpoint.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"calls_started":  m.CallsStarted.Load(),
		"calls_ended":    m.CallsEnded.Load(),
		"unknown_events": m.UnknownEvents.Load(),
		"dropped_frames": m.DroppedFrames.Load(),
		"tool_calls":     m.ToolCalls.Load(),
	}
}
