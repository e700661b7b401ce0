// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package internal_resampler converts call audio between the formats the
// bridge negotiates: G.711 µ-law at 8kHz on the telephony side, linear16 at
// 8/16/24kHz everywhere else. Conversions are stateless per chunk.
package internal_resampler

import (
	"fmt"

	goresampler "github.com/tphakala/go-audio-resampler"
	"github.com/zaf/g711"

	internal_audio "github.com/voxbridgeai/api/bridge-api/internal/audio"
	internal_type "github.com/voxbridgeai/api/bridge-api/internal/type"
	"github.com/voxbridgeai/pkg/commons"
)

// FormatError reports a structurally invalid buffer: empty input or a linear
// buffer with an odd byte count. Rate mismatches between chunks are NOT
// detectable here and pass through as ordinary (degraded) audio.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("audio format error: %s", e.Reason)
}

type resampler struct {
	logger commons.Logger
}

// GetResampler builds the shared audio converter.
func GetResampler(logger commons.Logger) internal_type.AudioResampler {
	return &resampler{logger: logger}
}

// Convert transcodes data from one negotiated format to another. The chain is
// µ-law decode → rate conversion → µ-law encode, skipping whichever stages
// the pair does not need.
func (r *resampler) Convert(data []byte, from, to internal_audio.Config) ([]byte, error) {
	if len(data) == 0 {
		return nil, &FormatError{Reason: "empty input"}
	}
	if from == to {
		return data, nil
	}

	linear := data
	if from.Encoding == internal_audio.EncodingMulaw {
		linear = g711.DecodeUlaw(data)
	} else if len(linear)%2 != 0 {
		return nil, &FormatError{Reason: fmt.Sprintf("odd byte count %d for linear16 input", len(data))}
	}

	if from.SampleRate != to.SampleRate {
		var err error
		linear, err = resampleLinear(linear, from.SampleRate, to.SampleRate)
		if err != nil {
			return nil, err
		}
	}

	if to.Encoding == internal_audio.EncodingMulaw {
		return g711.EncodeUlaw(linear), nil
	}
	return linear, nil
}

// ResampleLinear converts a linear16 little-endian buffer between two rates.
// Exposed for callers that never touch µ-law.
func ResampleLinear(logger commons.Logger, data []byte, fromHz, toHz int) ([]byte, error) {
	if len(data) == 0 {
		return nil, &FormatError{Reason: "empty input"}
	}
	if len(data)%2 != 0 {
		return nil, &FormatError{Reason: fmt.Sprintf("odd byte count %d for linear16 input", len(data))}
	}
	if fromHz == toHz {
		return data, nil
	}
	return resampleLinear(data, fromHz, toHz)
}

// resampleLinear runs one buffer through the filter-bank resampler. The
// library converter keeps filter history between Process calls, so each chunk
// gets a fresh instance; chunks from interleaved calls must never share one.
func resampleLinear(data []byte, fromHz, toHz int) ([]byte, error) {
	converter, err := goresampler.New(&goresampler.Config{
		InputRate:  float64(fromHz),
		OutputRate: float64(toHz),
		Channels:   1,
		Quality:    goresampler.QualitySpec{Preset: goresampler.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("unsupported rate conversion %d -> %d: %w", fromHz, toHz, err)
	}
	out, err := converter.ProcessFloat32(bytesToSamples(data))
	if err != nil {
		return nil, fmt.Errorf("resampling %d -> %d: %w", fromHz, toHz, err)
	}
	return samplesToBytes(out), nil
}

func bytesToSamples(b []byte) []float32 {
	samples := make([]float32, len(b)/2)
	for i := range samples {
		s := int16(uint16(b[2*i]) | uint16(b[2*i+1])<<8)
		samples[i] = float32(s) / 32768.0
	}
	return samples
}

func samplesToBytes(samples []float32) []byte {
	b := make([]byte, len(samples)*2)
	for i, v := range samples {
		s := clampSample(v * 32768.0)
		b[2*i] = byte(uint16(s))
		b[2*i+1] = byte(uint16(s) >> 8)
	}
	return b
}

func clampSample(v float32) int16 {
	switch {
	case v > 32767:
		return 32767
	case v < -32768:
		return -32768
	default:
		return int16(v)
	}
}
