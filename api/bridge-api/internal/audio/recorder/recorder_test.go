// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_recorder

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internal_audio "github.com/voxbridgeai/api/bridge-api/internal/audio"
	"github.com/voxbridgeai/pkg/commons"
)

func newTestRecorder(t *testing.T) (*Recorder, *time.Time) {
	t.Helper()
	logger, err := commons.NewApplicationLoggerWithLevel("error")
	require.NoError(t, err)

	r := New(logger, internal_audio.NewLinear16khzMonoAudioConfig())
	now := time.Unix(1000, 0)
	r.clock = func() time.Time { return now }
	return r, &now
}

func TestRecorder_EmptyPersistFails(t *testing.T) {
	r, _ := newTestRecorder(t)
	r.Start()
	_, _, err := r.Persist()
	require.Error(t, err)
}

func TestRecorder_WallClockPlacement(t *testing.T) {
	r, now := newTestRecorder(t)
	format := internal_audio.NewLinear16khzMonoAudioConfig()
	r.Start()

	// caller speaks 20ms of audio at t+100ms
	*now = now.Add(100 * time.Millisecond)
	callerAudio := make([]byte, 20*format.BytesPerMs())
	for i := range callerAudio {
		callerAudio[i] = 0x55
	}
	r.RecordCaller(callerAudio)

	*now = now.Add(100 * time.Millisecond)
	callerWAV, botWAV, err := r.Persist()
	require.NoError(t, err)

	// 200ms session on both tracks plus 44-byte WAV header
	wantPCM := 200 * format.BytesPerMs()
	require.Len(t, callerWAV, 44+wantPCM)
	require.Len(t, botWAV, 44+wantPCM)

	pcm := callerWAV[44:]
	startOffset := 100 * format.BytesPerMs()
	assert.Equal(t, byte(0), pcm[startOffset-1], "silence before speech")
	assert.Equal(t, byte(0x55), pcm[startOffset], "speech at its wall-clock position")
}

func TestRecorder_BotBurstsPacedContinuously(t *testing.T) {
	r, now := newTestRecorder(t)
	format := internal_audio.NewLinear16khzMonoAudioConfig()
	r.Start()

	// two 50ms bot chunks arrive 1ms apart (burst); they must land
	// back-to-back on the timeline, not overlapping
	chunkLen := 50 * format.BytesPerMs()
	first := make([]byte, chunkLen)
	second := make([]byte, chunkLen)
	for i := range second {
		second[i] = 0x11
	}
	r.RecordBot(first)
	*now = now.Add(time.Millisecond)
	r.RecordBot(second)

	*now = now.Add(200 * time.Millisecond)
	_, botWAV, err := r.Persist()
	require.NoError(t, err)

	pcm := botWAV[44:]
	assert.Equal(t, byte(0x11), pcm[chunkLen], "second chunk starts right after the first")
}

func TestRecorder_WAVHeader(t *testing.T) {
	r, now := newTestRecorder(t)
	r.Start()
	r.RecordCaller(make([]byte, 320))
	*now = now.Add(10 * time.Millisecond)

	callerWAV, _, err := r.Persist()
	require.NoError(t, err)

	assert.Equal(t, "RIFF", string(callerWAV[0:4]))
	assert.Equal(t, "WAVE", string(callerWAV[8:12]))
	assert.Equal(t, uint32(16000), binary.LittleEndian.Uint32(callerWAV[24:28]), "sample rate")
	assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(callerWAV[34:36]), "bits per sample")
}

func TestRecorder_SaveTo(t *testing.T) {
	r, now := newTestRecorder(t)
	r.Start()
	r.RecordCaller(make([]byte, 320))
	r.RecordBot(make([]byte, 320))
	*now = now.Add(10 * time.Millisecond)

	dir := t.TempDir()
	require.NoError(t, r.SaveTo(dir, "conv-1"))
	assert.FileExists(t, dir+"/conv-1-caller.wav")
	assert.FileExists(t, dir+"/conv-1-bot.wav")
}
