// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_realtime

import "fmt"

// Audio format names the AI peer understands.
const (
	AudioFormatPCM16    = "pcm16"
	AudioFormatG711Ulaw = "g711_ulaw"
	AudioFormatG711Alaw = "g711_alaw"
)

// ConfigError reports an invalid session configuration. Raised synchronously;
// the offending update never reaches the socket.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("session config error: %s", e.Reason)
}

// SessionConfig holds the AI-peer-side knobs. Mutated only through
// Client.UpdateSession; the model identifier is frozen once connected.
type SessionConfig struct {
	Model             string           `json:"model,omitempty"`
	Modalities        []string         `json:"modalities,omitempty"`
	Voice             string           `json:"voice,omitempty"`
	Instructions      string           `json:"instructions,omitempty"`
	InputAudioFormat  string           `json:"input_audio_format,omitempty"`
	OutputAudioFormat string           `json:"output_audio_format,omitempty"`
	Temperature       float64          `json:"temperature,omitempty"`
	ToolChoice        string           `json:"tool_choice,omitempty"`
	MaxOutputTokens   int              `json:"max_response_output_tokens,omitempty"`
	TurnDetection     *TurnDetection   `json:"turn_detection"`
	Tools             []ToolDefinition `json:"tools,omitempty"`
}

// TurnDetection configures the peer's server-side voice activity detection.
// A nil TurnDetection on the wire disables it.
type TurnDetection struct {
	Type              string  `json:"type"` // server_vad
	Threshold         float64 `json:"threshold,omitempty"`
	PrefixPaddingMs   int     `json:"prefix_padding_ms,omitempty"`
	SilenceDurationMs int     `json:"silence_duration_ms,omitempty"`
}

// ToolDefinition advertises one callable function to the peer.
type ToolDefinition struct {
	Type        string                 `json:"type"` // function
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

// validate applies the peer's documented constraints. frozenModel is the
// model fixed at connect time; empty means not yet connected.
func (c *SessionConfig) validate(frozenModel string) error {
	if frozenModel != "" && c.Model != "" && c.Model != frozenModel {
		return &ConfigError{Reason: fmt.Sprintf("model is frozen at connect time (%s), cannot change to %s", frozenModel, c.Model)}
	}
	if c.Temperature != 0 && (c.Temperature < 0.6 || c.Temperature > 1.2) {
		return &ConfigError{Reason: fmt.Sprintf("temperature %.2f outside [0.6, 1.2]", c.Temperature)}
	}
	switch c.ToolChoice {
	case "", "auto", "none", "required":
	default:
		return &ConfigError{Reason: fmt.Sprintf("tool_choice %q not one of auto|none|required", c.ToolChoice)}
	}
	for _, m := range c.Modalities {
		if m != "text" && m != "audio" {
			return &ConfigError{Reason: fmt.Sprintf("unknown modality %q", m)}
		}
	}
	for _, f := range []string{c.InputAudioFormat, c.OutputAudioFormat} {
		switch f {
		case "", AudioFormatPCM16, AudioFormatG711Ulaw, AudioFormatG711Alaw:
		default:
			return &ConfigError{Reason: fmt.Sprintf("unknown audio format %q", f)}
		}
	}
	if c.TurnDetection != nil && c.TurnDetection.Type != "server_vad" {
		return &ConfigError{Reason: fmt.Sprintf("unknown turn_detection type %q", c.TurnDetection.Type)}
	}
	return nil
}
