// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package internal_type holds the interfaces shared across the bridge
// components, kept dependency-light so every package can import it.
package internal_type

import (
	"context"

	internal_audio "github.com/voxbridgeai/api/bridge-api/internal/audio"
)

// AudioResampler converts raw audio between two negotiated formats. A
// same-format conversion returns the input unchanged.
type AudioResampler interface {
	Convert(data []byte, from, to internal_audio.Config) ([]byte, error)
}

// Tool is an application function the AI peer may call mid-conversation.
// Invoke runs under a per-call deadline; the returned map is serialized as
// the function result. Tools must be safe for concurrent invocation.
type Tool interface {
	Name() string
	Description() string
	// Schema returns the JSON-schema parameter object advertised to the peer.
	Schema() map[string]interface{}
	Invoke(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error)
}

// SessionResult classifies how a call ended. It is the unit reported by the
// bridge to the server layer when a socket pair winds down.
type SessionResult int

const (
	ResultOk SessionResult = iota
	ResultPeerDisconnected
	ResultProtocol
	ResultTimeout
	ResultToolFailure
)

func (r SessionResult) String() string {
	switch r {
	case ResultOk:
		return "ok"
	case ResultPeerDisconnected:
		return "peer_disconnected"
	case ResultProtocol:
		return "protocol"
	case ResultTimeout:
		return "timeout"
	case ResultToolFailure:
		return "tool_failure"
	default:
		return "unknown"
	}
}

// Directive is an out-of-band instruction a tool can hand back to the bridge
// alongside (or instead of) a normal result, e.g. to end the call.
type Directive int

const (
	DirectiveNone Directive = iota
	DirectiveEndCall
)

// DirectiveTool is an optional extension of Tool: tools that steer the call
// itself implement it to surface a Directive after Invoke.
type DirectiveTool interface {
	Tool
	Directive() Directive
}
