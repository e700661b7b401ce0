// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_audio

import (
	"fmt"
	"strings"
)

// Encoding identifies the sample encoding of an audio stream.
type Encoding string

const (
	EncodingLinear16 Encoding = "linear16" // 16-bit signed little-endian PCM
	EncodingMulaw    Encoding = "mulaw"    // ITU-T G.711 µ-law, 8-bit
)

// Media format names as advertised to telephony peers.
const (
	MediaFormatLPCM16 = "raw/lpcm16"
	MediaFormatMulaw  = "audio/x-mulaw"
)

// Config is the negotiated media format of one audio direction: encoding,
// sample rate and channel count. All bridge audio is mono.
type Config struct {
	Encoding   Encoding
	SampleRate int
	Channels   int
}

// NewLinear16khzMonoAudioConfig returns linear16 16kHz mono — the internal
// format most realtime AI peers accept directly.
func NewLinear16khzMonoAudioConfig() Config {
	return Config{Encoding: EncodingLinear16, SampleRate: 16000, Channels: 1}
}

// NewLinear24khzMonoAudioConfig returns linear16 24kHz mono.
func NewLinear24khzMonoAudioConfig() Config {
	return Config{Encoding: EncodingLinear16, SampleRate: 24000, Channels: 1}
}

// NewLinear8khzMonoAudioConfig returns linear16 8kHz mono.
func NewLinear8khzMonoAudioConfig() Config {
	return Config{Encoding: EncodingLinear16, SampleRate: 8000, Channels: 1}
}

// NewMulaw8khzMonoAudioConfig returns µ-law 8kHz mono — the native format of
// most PSTN media streams.
func NewMulaw8khzMonoAudioConfig() Config {
	return Config{Encoding: EncodingMulaw, SampleRate: 8000, Channels: 1}
}

// SupportedConfigs lists every format the bridge advertises to telephony
// peers, highest quality first.
func SupportedConfigs() []Config {
	return []Config{
		NewLinear24khzMonoAudioConfig(),
		NewLinear16khzMonoAudioConfig(),
		NewLinear8khzMonoAudioConfig(),
		NewMulaw8khzMonoAudioConfig(),
	}
}

// BytesPerSample returns the byte width of one sample.
func (c Config) BytesPerSample() int {
	if c.Encoding == EncodingMulaw {
		return 1
	}
	return 2
}

// BytesPerMs returns the byte count of one millisecond of audio.
func (c Config) BytesPerMs() int {
	return c.SampleRate / 1000 * c.BytesPerSample() * c.Channels
}

// DurationMs returns the playback duration of n bytes, in milliseconds.
func (c Config) DurationMs(n int) int {
	bpm := c.BytesPerMs()
	if bpm == 0 {
		return 0
	}
	return n / bpm
}

// Samples returns the number of whole samples in n bytes.
func (c Config) Samples(n int) int {
	return n / c.BytesPerSample()
}

// Silence returns ms milliseconds of digital silence in this format.
// For µ-law the silent sample is 0xFF (linear zero after G.711 inversion);
// for linear16 it is all-zero bytes.
func (c Config) Silence(ms int) []byte {
	buf := make([]byte, ms*c.BytesPerMs())
	if c.Encoding == EncodingMulaw {
		for i := range buf {
			buf[i] = 0xFF
		}
	}
	return buf
}

// MediaFormat renders the wire name of this config ("raw/lpcm16" /
// "audio/x-mulaw").
func (c Config) MediaFormat() string {
	if c.Encoding == EncodingMulaw {
		return MediaFormatMulaw
	}
	return MediaFormatLPCM16
}

func (c Config) String() string {
	return fmt.Sprintf("%s/%d/%dch", c.Encoding, c.SampleRate, c.Channels)
}

// ParseMediaFormat resolves a wire format name to a Config. Rate zero picks
// the dialect default (16kHz linear, 8kHz µ-law).
func ParseMediaFormat(name string, rate int) (Config, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case MediaFormatLPCM16, "lpcm16", "linear16", "l16":
		if rate == 0 {
			rate = 16000
		}
		if rate != 8000 && rate != 16000 && rate != 24000 {
			return Config{}, fmt.Errorf("unsupported linear16 sample rate %d", rate)
		}
		return Config{Encoding: EncodingLinear16, SampleRate: rate, Channels: 1}, nil
	case MediaFormatMulaw, "mulaw", "ulaw", "pcmu":
		if rate == 0 {
			rate = 8000
		}
		if rate != 8000 {
			return Config{}, fmt.Errorf("unsupported mulaw sample rate %d", rate)
		}
		return Config{Encoding: EncodingMulaw, SampleRate: 8000, Channels: 1}, nil
	default:
		return Config{}, fmt.Errorf("unknown media format %q", name)
	}
}

// Negotiate picks the media format for a call: the highest sample rate the
// peer supports that the bridge also supports, falling back to the peer's
// first (preferred) choice, and failing when the intersection is empty.
func Negotiate(peerFormats []Config) (Config, error) {
	if len(peerFormats) == 0 {
		return Config{}, fmt.Errorf("peer offered no media formats")
	}

	supported := SupportedConfigs()
	isSupported := func(f Config) bool {
		for _, s := range supported {
			if s == f {
				return true
			}
		}
		return false
	}

	var best Config
	found := false
	for _, f := range peerFormats {
		if !isSupported(f) {
			continue
		}
		if !found || f.SampleRate > best.SampleRate {
			best = f
			found = true
		}
	}
	if !found {
		return Config{}, fmt.Errorf("no common media format with peer")
	}
	// Peer preference wins among equal rates: the offer order is the peer's
	// preference order, and the loop above keeps the earliest at the top rate.
	return best, nil
}
