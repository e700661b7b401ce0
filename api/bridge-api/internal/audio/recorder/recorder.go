// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package internal_recorder captures per-call two-track audio: the caller's
// microphone on one track, the bot's synthesized speech on the other, both on
// a shared wall-clock timeline rendered to WAV at call end.
package internal_recorder

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	internal_audio "github.com/voxbridgeai/api/bridge-api/internal/audio"
	"github.com/voxbridgeai/pkg/commons"
)

const (
	trackCaller = 0
	trackBot    = 1

	wavPCMFormat     = 1
	wavBitsPerSample = 16
)

// chunk is one audio fragment at a byte position on the session timeline.
type chunk struct {
	byteOffset int
	data       []byte
	track      int
}

// Recorder accumulates linear16 audio for both tracks. Caller audio arrives
// at real-time rate, so wall clock gives the right timeline position. Bot
// audio arrives in bursts; it is paced at playback rate from a per-track
// cursor, anchored to wall clock only at the start of each segment.
type Recorder struct {
	logger commons.Logger
	format internal_audio.Config

	mu        sync.Mutex
	startTime time.Time
	started   bool
	chunks    []chunk
	cursor    [2]int

	// injectable for tests
	clock func() time.Time
}

func New(logger commons.Logger, format internal_audio.Config) *Recorder {
	return &Recorder{logger: logger, format: format, clock: time.Now}
}

// Start anchors the shared timeline.
func (r *Recorder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.startTime = r.clock()
	r.started = true
}

// RecordCaller places user audio at its wall-clock position.
func (r *Recorder) RecordCaller(audio []byte) {
	r.push(audio, trackCaller)
}

// RecordBot places synthesized audio, paced at playback rate.
func (r *Recorder) RecordBot(audio []byte) {
	r.push(audio, trackBot)
}

func (r *Recorder) push(data []byte, track int) {
	if len(data) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	wallOffset := 0
	if r.started {
		wallOffset = r.durationBytes(r.clock().Sub(r.startTime))
	}

	offset := wallOffset
	if track == trackCaller {
		if r.cursor[track] > offset {
			offset = r.cursor[track]
		}
	} else if r.cursor[track] > wallOffset {
		// burst continuation: stay continuous at the playback rate
		offset = r.cursor[track]
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	r.chunks = append(r.chunks, chunk{byteOffset: offset, data: buf, track: track})
	r.cursor[track] = offset + len(buf)
}

// Persist renders both tracks as WAV, silence in the gaps, spanning the full
// session duration.
func (r *Recorder) Persist() (callerWAV, botWAV []byte, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.chunks) == 0 {
		return nil, nil, fmt.Errorf("no audio recorded")
	}

	totalLen := 0
	if r.started {
		totalLen = r.durationBytes(r.clock().Sub(r.startTime))
	}
	for _, c := range r.chunks {
		if end := c.byteOffset + len(c.data); end > totalLen {
			totalLen = end
		}
	}

	callerPCM := make([]byte, totalLen)
	botPCM := make([]byte, totalLen)
	for _, c := range r.chunks {
		dst := callerPCM
		if c.track == trackBot {
			dst = botPCM
		}
		copy(dst[c.byteOffset:], c.data)
	}

	r.logger.Infow("rendering call recording",
		"duration_ms", r.format.DurationMs(totalLen), "chunks", len(r.chunks))
	return r.wav(callerPCM), r.wav(botPCM), nil
}

// SaveTo writes <callID>-caller.wav and <callID>-bot.wav under dir.
func (r *Recorder) SaveTo(dir, callID string) error {
	callerWAV, botWAV, err := r.Persist()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating recording directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, callID+"-caller.wav"), callerWAV, 0o644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, callID+"-bot.wav"), botWAV, 0o644)
}

func (r *Recorder) durationBytes(d time.Duration) int {
	raw := int(d.Seconds() * float64(r.format.SampleRate*r.format.Channels*r.format.BytesPerSample()))
	frame := r.format.BytesPerSample() * r.format.Channels
	return (raw / frame) * frame
}

func (r *Recorder) wav(pcm []byte) []byte {
	var buf bytes.Buffer
	byteRate := r.format.SampleRate * r.format.Channels * r.format.BytesPerSample()

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(wavPCMFormat))
	binary.Write(&buf, binary.LittleEndian, uint16(r.format.Channels))
	binary.Write(&buf, binary.LittleEndian, uint32(r.format.SampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(&buf, binary.LittleEndian, uint16(r.format.BytesPerSample()*r.format.Channels))
	binary.Write(&buf, binary.LittleEndian, uint16(wavBitsPerSample))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}
