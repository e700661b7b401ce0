// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_resampler

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internal_audio "github.com/voxbridgeai/api/bridge-api/internal/audio"
	"github.com/voxbridgeai/pkg/commons"
)

func newTestLogger(t *testing.T) commons.Logger {
	t.Helper()
	logger, err := commons.NewApplicationLoggerWithLevel("error")
	require.NoError(t, err)
	return logger
}

func sine(rate, hz, ms int, amplitude float64) []byte {
	n := rate * ms / 1000
	b := make([]byte, n*2)
	for i := 0; i < n; i++ {
		v := int16(amplitude * math.Sin(2*math.Pi*float64(hz)*float64(i)/float64(rate)))
		b[2*i] = byte(uint16(v))
		b[2*i+1] = byte(uint16(v) >> 8)
	}
	return b
}

func constant(rate, ms int, value int16) []byte {
	n := rate * ms / 1000
	b := make([]byte, n*2)
	for i := 0; i < n; i++ {
		b[2*i] = byte(uint16(value))
		b[2*i+1] = byte(uint16(value) >> 8)
	}
	return b
}

// ============================================================================
// Structural validation
// ============================================================================

func TestConvert_EmptyInput(t *testing.T) {
	r := GetResampler(newTestLogger(t))
	_, err := r.Convert(nil, internal_audio.NewLinear16khzMonoAudioConfig(), internal_audio.NewLinear24khzMonoAudioConfig())
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
}

func TestConvert_OddByteCount(t *testing.T) {
	r := GetResampler(newTestLogger(t))
	_, err := r.Convert([]byte{0, 1, 2}, internal_audio.NewLinear16khzMonoAudioConfig(), internal_audio.NewLinear24khzMonoAudioConfig())
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
}

func TestConvert_SameFormatPassthrough(t *testing.T) {
	r := GetResampler(newTestLogger(t))
	in := sine(16000, 440, 20, 8000)
	out, err := r.Convert(in, internal_audio.NewLinear16khzMonoAudioConfig(), internal_audio.NewLinear16khzMonoAudioConfig())
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

// ============================================================================
// Rate conversion laws
// ============================================================================

func TestResampleLinear_DurationPreserved(t *testing.T) {
	logger := newTestLogger(t)
	tests := []struct {
		name         string
		fromHz, toHz int
	}{
		{"8k to 16k", 8000, 16000},
		{"8k to 24k", 8000, 24000},
		{"16k to 24k", 16000, 24000},
		{"16k to 8k", 16000, 8000},
		{"24k to 8k", 24000, 8000},
		{"24k to 16k", 24000, 16000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := sine(tt.fromHz, 300, 200, 8000)
			out, err := ResampleLinear(logger, in, tt.fromHz, tt.toHz)
			require.NoError(t, err)

			inSamples := len(in) / 2
			outSamples := len(out) / 2
			wantSamples := inSamples * tt.toHz / tt.fromHz
			// the converter's filter delay shaves a few samples off either
			// end; duration must still hold within a few percent
			assert.InDelta(t, wantSamples, outSamples, float64(wantSamples)*0.05)
		})
	}
}

func TestResampleLinear_NoDCOffset(t *testing.T) {
	logger := newTestLogger(t)
	in := constant(16000, 200, 1000)
	out, err := ResampleLinear(logger, in, 16000, 24000)
	require.NoError(t, err)

	// interior samples of a constant signal stay near the constant; only the
	// filter edges may ring
	n := len(out) / 2
	require.Greater(t, n, 0)
	for i := n / 4; i < 3*n/4; i++ {
		v := int16(uint16(out[2*i]) | uint16(out[2*i+1])<<8)
		assert.InDelta(t, 1000, v, 50, "sample %d drifted", i)
	}
}

func TestResampleLinear_RoundTripToneSurvives(t *testing.T) {
	logger := newTestLogger(t)
	in := sine(16000, 440, 200, 10000)
	up, err := ResampleLinear(logger, in, 16000, 24000)
	require.NoError(t, err)
	down, err := ResampleLinear(logger, up, 24000, 16000)
	require.NoError(t, err)

	// Compare RMS energy over the interior; filter edges are excluded.
	rms := func(b []byte) float64 {
		n := len(b) / 2
		sum := 0.0
		for i := n / 4; i < 3*n/4; i++ {
			v := float64(int16(uint16(b[2*i]) | uint16(b[2*i+1])<<8))
			sum += v * v
		}
		return math.Sqrt(sum / float64(n/2))
	}
	assert.InEpsilon(t, rms(in), rms(down), 0.15)
}

// ============================================================================
// G.711 µ-law
// ============================================================================

func TestConvert_MulawRoundTrip(t *testing.T) {
	r := GetResampler(newTestLogger(t))
	from := internal_audio.NewLinear8khzMonoAudioConfig()
	mulaw := internal_audio.NewMulaw8khzMonoAudioConfig()

	in := sine(8000, 300, 40, 12000)
	encoded, err := r.Convert(in, from, mulaw)
	require.NoError(t, err)
	require.Len(t, encoded, len(in)/2)

	decoded, err := r.Convert(encoded, mulaw, from)
	require.NoError(t, err)
	require.Len(t, decoded, len(in))

	// µ-law is lossy; samples must land within the codec's quantization error
	// (segment size grows with magnitude, ~3% of full scale worst case).
	for i := 0; i < len(in); i += 2 {
		want := float64(int16(uint16(in[i]) | uint16(in[i+1])<<8))
		got := float64(int16(uint16(decoded[i]) | uint16(decoded[i+1])<<8))
		limit := math.Max(64, math.Abs(want)*0.07)
		assert.InDelta(t, want, got, limit, "sample %d", i/2)
	}
}

func TestConvert_MulawToLinear16khz(t *testing.T) {
	r := GetResampler(newTestLogger(t))
	mulaw := internal_audio.NewMulaw8khzMonoAudioConfig()
	lin16 := internal_audio.NewLinear16khzMonoAudioConfig()

	in := make([]byte, 160) // 20ms of µ-law
	for i := range in {
		in[i] = 0xFF
	}
	out, err := r.Convert(in, mulaw, lin16)
	require.NoError(t, err)
	// 20ms at 16kHz linear16 = 640 bytes, modulo the converter's edge trim
	assert.InDelta(t, 640, len(out), 64)
}
