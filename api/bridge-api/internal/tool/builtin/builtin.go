// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package builtin ships the tools every deployment gets for free: clock
// lookup and agent-initiated hangup.
package builtin

import (
	"context"
	"time"

	internal_type "github.com/voxbridgeai/api/bridge-api/internal/type"
)

// All returns the default tool set every deployment registers.
func All() []internal_type.Tool {
	return []internal_type.Tool{GetTime{}, EndCall{}}
}

// GetTime reports the current server time, optionally in a named IANA zone.
type GetTime struct{}

func (GetTime) Name() string { return "get_time" }

func (GetTime) Description() string {
	return "Returns the current date and time, optionally for a specific IANA timezone."
}

func (GetTime) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"timezone": map[string]interface{}{
				"type":        "string",
				"description": "IANA timezone name, e.g. Europe/Berlin. Defaults to server time.",
			},
		},
	}
}

func (GetTime) Invoke(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	now := time.Now()
	if tz, ok := args["timezone"].(string); ok && tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return map[string]interface{}{"error": "unknown timezone", "timezone": tz}, nil
		}
		now = now.In(loc)
	}
	return map[string]interface{}{
		"iso":      now.Format(time.RFC3339),
		"weekday":  now.Weekday().String(),
		"timezone": now.Location().String(),
	}, nil
}

// EndCall lets the agent hang up gracefully once the caller's need is met.
type EndCall struct{}

func (EndCall) Name() string { return "end_call" }

func (EndCall) Description() string {
	return "Ends the phone call. Use after saying goodbye to the caller."
}

func (EndCall) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"reason": map[string]interface{}{
				"type":        "string",
				"description": "Short reason for ending the call.",
			},
		},
	}
}

func (EndCall) Invoke(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	reason, _ := args["reason"].(string)
	return map[string]interface{}{"status": "ending", "reason": reason}, nil
}

func (EndCall) Directive() internal_type.Directive {
	return internal_type.DirectiveEndCall
}
