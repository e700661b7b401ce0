// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Format arithmetic
// ============================================================================

func TestConfig_BytesPerMs(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want int
	}{
		{"linear16 16khz", NewLinear16khzMonoAudioConfig(), 32},
		{"linear16 24khz", NewLinear24khzMonoAudioConfig(), 48},
		{"linear16 8khz", NewLinear8khzMonoAudioConfig(), 16},
		{"mulaw 8khz", NewMulaw8khzMonoAudioConfig(), 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.BytesPerMs())
		})
	}
}

func TestConfig_DurationMs(t *testing.T) {
	cfg := NewLinear16khzMonoAudioConfig()
	assert.Equal(t, 100, cfg.DurationMs(3200))
	assert.Equal(t, 0, cfg.DurationMs(0))

	mulaw := NewMulaw8khzMonoAudioConfig()
	assert.Equal(t, 20, mulaw.DurationMs(160))
}

func TestConfig_Silence(t *testing.T) {
	lin := NewLinear16khzMonoAudioConfig().Silence(10)
	require.Len(t, lin, 320)
	for _, b := range lin {
		require.Equal(t, byte(0), b)
	}

	mu := NewMulaw8khzMonoAudioConfig().Silence(10)
	require.Len(t, mu, 80)
	for _, b := range mu {
		require.Equal(t, byte(0xFF), b)
	}
}

// ============================================================================
// Media format parsing
// ============================================================================

func TestParseMediaFormat(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		rate    int
		want    Config
		wantErr bool
	}{
		{"lpcm16 default rate", "raw/lpcm16", 0, NewLinear16khzMonoAudioConfig(), false},
		{"lpcm16 24khz", "raw/lpcm16", 24000, NewLinear24khzMonoAudioConfig(), false},
		{"lpcm16 alias", "LPCM16", 16000, NewLinear16khzMonoAudioConfig(), false},
		{"mulaw default rate", "audio/x-mulaw", 0, NewMulaw8khzMonoAudioConfig(), false},
		{"mulaw pcmu alias", "PCMU", 8000, NewMulaw8khzMonoAudioConfig(), false},
		{"mulaw wrong rate", "audio/x-mulaw", 16000, Config{}, true},
		{"linear unsupported rate", "raw/lpcm16", 44100, Config{}, true},
		{"unknown format", "audio/opus", 0, Config{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMediaFormat(tt.format, tt.rate)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// ============================================================================
// Format negotiation
// ============================================================================

func TestNegotiate_HighestCommonRate(t *testing.T) {
	got, err := Negotiate([]Config{
		NewMulaw8khzMonoAudioConfig(),
		NewLinear16khzMonoAudioConfig(),
	})
	require.NoError(t, err)
	assert.Equal(t, NewLinear16khzMonoAudioConfig(), got)
}

func TestNegotiate_PeerPreferenceAmongEqualRates(t *testing.T) {
	// µ-law and linear both run at 8kHz; the peer listed µ-law first.
	got, err := Negotiate([]Config{
		NewMulaw8khzMonoAudioConfig(),
		NewLinear8khzMonoAudioConfig(),
	})
	require.NoError(t, err)
	assert.Equal(t, NewMulaw8khzMonoAudioConfig(), got)
}

func TestNegotiate_EmptyIntersection(t *testing.T) {
	_, err := Negotiate([]Config{{Encoding: EncodingLinear16, SampleRate: 44100, Channels: 2}})
	require.Error(t, err)

	_, err = Negotiate(nil)
	require.Error(t, err)
}
