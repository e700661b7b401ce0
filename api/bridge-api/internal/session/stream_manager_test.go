// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internal_audio "github.com/voxbridgeai/api/bridge-api/internal/audio"
	internal_codec "github.com/voxbridgeai/api/bridge-api/internal/codec"
	"github.com/voxbridgeai/pkg/commons"
)

// passthrough resampler: same-format in tests keeps byte math obvious
type identityResampler struct{}

func (identityResampler) Convert(data []byte, from, to internal_audio.Config) ([]byte, error) {
	return data, nil
}

type fakePeer struct {
	appended  [][]byte
	commits   int
	clears    int
	responses int
	cancelled []string
}

func (p *fakePeer) AppendInputAudio(audio []byte) error {
	p.appended = append(p.appended, audio)
	return nil
}
func (p *fakePeer) CommitInputAudio() error        { p.commits++; return nil }
func (p *fakePeer) ClearInputAudio() error         { p.clears++; return nil }
func (p *fakePeer) CreateResponse() error          { p.responses++; return nil }
func (p *fakePeer) CancelResponse(id string) error { p.cancelled = append(p.cancelled, id); return nil }

type fakeWire struct {
	actions []internal_codec.Action
}

func (w *fakeWire) Send(a internal_codec.Action) error {
	w.actions = append(w.actions, a)
	return nil
}

func (w *fakeWire) ofType(match func(internal_codec.Action) bool) []internal_codec.Action {
	var out []internal_codec.Action
	for _, a := range w.actions {
		if match(a) {
			out = append(out, a)
		}
	}
	return out
}

func newTestManager(t *testing.T, opts ...StreamManagerOption) (*StreamManager, *fakePeer, *fakeWire) {
	t.Helper()
	logger, err := commons.NewApplicationLoggerWithLevel("error")
	require.NoError(t, err)

	peer := &fakePeer{}
	wire := &fakeWire{}
	format := internal_audio.NewLinear16khzMonoAudioConfig()
	m := NewStreamManager(logger, "conv-1", identityResampler{}, peer, wire,
		format, format, format, 1<<20, opts...)
	return m, peer, wire
}

// ============================================================================
// Call state machine
// ============================================================================

func TestCall_Lifecycle(t *testing.T) {
	logger, err := commons.NewApplicationLoggerWithLevel("error")
	require.NoError(t, err)
	c := NewCall(logger, "conv-1")

	assert.Equal(t, StateInit, c.State())
	require.NoError(t, c.Accepting())
	require.NoError(t, c.Activate())
	assert.Equal(t, StateActive, c.State())

	require.True(t, c.BeginEnding())
	assert.False(t, c.BeginEnding(), "duplicate end signals are absorbed")
	assert.Equal(t, StateEnding, c.State())

	require.NoError(t, c.CloseOut())
	assert.Equal(t, StateClosed, c.State())

	// no re-entry after closed
	require.Error(t, c.Activate())
	assert.False(t, c.BeginEnding())
}

func TestCall_RejectBeforeActive(t *testing.T) {
	logger, err := commons.NewApplicationLoggerWithLevel("error")
	require.NoError(t, err)
	c := NewCall(logger, "conv-1")
	require.NoError(t, c.Accepting())
	require.NoError(t, c.Reject())
	assert.Equal(t, StateClosed, c.State())
}

func TestCall_IllegalTransitions(t *testing.T) {
	logger, err := commons.NewApplicationLoggerWithLevel("error")
	require.NoError(t, err)
	c := NewCall(logger, "conv-1")

	require.Error(t, c.Activate(), "cannot activate from init")
	require.Error(t, c.CloseOut(), "cannot close without ending")
}

// ============================================================================
// Inbound: commit padding
// ============================================================================

func TestStream_ShortUtterancePaddedToMinimum(t *testing.T) {
	m, peer, _ := newTestManager(t, WithMinCommitMs(100), WithServerVad(false))
	format := internal_audio.NewLinear16khzMonoAudioConfig()

	require.NoError(t, m.OnUserStreamStart())
	require.NoError(t, m.OnUserChunk(make([]byte, 30*format.BytesPerMs()), nil)) // 30ms
	require.NoError(t, m.OnUserStreamStop())

	require.Equal(t, 1, peer.commits)
	total := 0
	for _, b := range peer.appended {
		total += len(b)
	}
	assert.Equal(t, 100*format.BytesPerMs(), total, "padded to exactly the minimum")
	assert.Equal(t, 1, peer.responses, "vad off: explicit response.create after commit")
}

func TestStream_LongUtteranceNotPadded(t *testing.T) {
	m, peer, _ := newTestManager(t, WithMinCommitMs(100), WithServerVad(true))
	format := internal_audio.NewLinear16khzMonoAudioConfig()

	require.NoError(t, m.OnUserStreamStart())
	require.NoError(t, m.OnUserChunk(make([]byte, 250*format.BytesPerMs()), nil))
	require.NoError(t, m.OnUserStreamStop())

	require.Len(t, peer.appended, 1, "no padding appended")
	assert.Equal(t, 1, peer.commits)
	assert.Equal(t, 0, peer.responses, "server vad issues the response itself")
}

func TestStream_ChunkWhileIdleDiscarded(t *testing.T) {
	m, peer, _ := newTestManager(t)

	require.NoError(t, m.OnUserChunk([]byte{1, 2, 3, 4}, nil))
	assert.Empty(t, peer.appended)
	assert.EqualValues(t, 1, m.DiscardedChunks)
}

func TestStream_StopWithoutActiveIsNoop(t *testing.T) {
	m, peer, _ := newTestManager(t)
	require.NoError(t, m.OnUserStreamStop())
	assert.Equal(t, 0, peer.commits)
}

// ============================================================================
// Outbound: stream ordering and chunking
// ============================================================================

func TestStream_DeltaOpensStreamAndChunksInOrder(t *testing.T) {
	m, _, wire := newTestManager(t)

	require.NoError(t, m.OnAudioDelta("r1", []byte{1, 1}))
	require.NoError(t, m.OnAudioDelta("r1", []byte{2, 2}))
	require.NoError(t, m.OnAudioDone("r1"))

	require.Len(t, wire.actions, 4)
	start, ok := wire.actions[0].(internal_codec.StartOutputStream)
	require.True(t, ok)
	assert.NotEmpty(t, start.StreamID)

	c1 := wire.actions[1].(internal_codec.OutputChunk)
	c2 := wire.actions[2].(internal_codec.OutputChunk)
	assert.Equal(t, []byte{1, 1}, c1.Audio)
	assert.Equal(t, []byte{2, 2}, c2.Audio)
	assert.Equal(t, start.StreamID, c1.StreamID)

	stop := wire.actions[3].(internal_codec.StopOutputStream)
	assert.Equal(t, start.StreamID, stop.StreamID)
	assert.True(t, m.WasStopped(start.StreamID))
	assert.Nil(t, m.LiveOutput())
}

func TestStream_StartsAndStopsStrictlySerialized(t *testing.T) {
	m, _, wire := newTestManager(t)

	require.NoError(t, m.OnAudioDelta("r1", []byte{1, 1}))
	// next response starts before r1's done arrives
	require.NoError(t, m.OnAudioDelta("r2", []byte{2, 2}))

	var order []string
	for _, a := range wire.actions {
		switch a.(type) {
		case internal_codec.StartOutputStream:
			order = append(order, "start")
		case internal_codec.StopOutputStream:
			order = append(order, "stop")
		}
	}
	assert.Equal(t, []string{"start", "stop", "start"}, order)
}

func TestStream_StreamIDsNeverReused(t *testing.T) {
	m, _, wire := newTestManager(t)

	seen := map[string]bool{}
	for _, resp := range []string{"r1", "r2", "r3"} {
		require.NoError(t, m.OnAudioDelta(resp, []byte{0, 0}))
		require.NoError(t, m.OnAudioDone(resp))
	}
	for _, a := range wire.ofType(func(a internal_codec.Action) bool {
		_, ok := a.(internal_codec.StartOutputStream)
		return ok
	}) {
		id := a.(internal_codec.StartOutputStream).StreamID
		assert.False(t, seen[id], "stream id reused")
		seen[id] = true
	}
	assert.Len(t, seen, 3)
}

func TestStream_SplitAtChunkCapOnSampleBoundary(t *testing.T) {
	logger, err := commons.NewApplicationLoggerWithLevel("error")
	require.NoError(t, err)
	peer := &fakePeer{}
	wire := &fakeWire{}
	format := internal_audio.NewLinear16khzMonoAudioConfig()
	// cap of 5 bytes forces a 4-byte step for 2-byte samples
	m := NewStreamManager(logger, "conv-1", identityResampler{}, peer, wire,
		format, format, format, 5)

	require.NoError(t, m.OnAudioDelta("r1", []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}))

	chunks := wire.ofType(func(a internal_codec.Action) bool {
		_, ok := a.(internal_codec.OutputChunk)
		return ok
	})
	require.Len(t, chunks, 3)
	assert.Equal(t, []byte{1, 2, 3, 4}, chunks[0].(internal_codec.OutputChunk).Audio)
	assert.Equal(t, []byte{5, 6, 7, 8}, chunks[1].(internal_codec.OutputChunk).Audio)
	assert.Equal(t, []byte{9, 10}, chunks[2].(internal_codec.OutputChunk).Audio)
}

func TestStream_DoneForUnknownResponseAbsorbed(t *testing.T) {
	m, _, wire := newTestManager(t)
	require.NoError(t, m.OnAudioDone("never-seen"))
	assert.Empty(t, wire.actions)
}

// ============================================================================
// Barge-in
// ============================================================================

func TestStream_BargeInCancelsAndDropsStaleDeltas(t *testing.T) {
	m, peer, wire := newTestManager(t)

	require.NoError(t, m.OnAudioDelta("r1", []byte{1, 1}))
	require.NotNil(t, m.LiveOutput())

	// caller starts talking over the bot
	require.NoError(t, m.OnUserStreamStart())

	require.Equal(t, []string{"r1"}, peer.cancelled)
	clears := wire.ofType(func(a internal_codec.Action) bool {
		_, ok := a.(internal_codec.ClearAudio)
		return ok
	})
	assert.Len(t, clears, 1)
	assert.Nil(t, m.LiveOutput())
	assert.Equal(t, InputActive, m.Input().State())

	// deltas racing in after the cancel are dropped until response.done
	before := len(wire.actions)
	require.NoError(t, m.OnAudioDelta("r1", []byte{9, 9}))
	assert.Equal(t, before, len(wire.actions))

	m.OnResponseDone("r1")
	require.NoError(t, m.OnAudioDelta("r1", []byte{3, 3}))
	assert.Greater(t, len(wire.actions), before, "tombstone cleared after response.done")
}

func TestStream_BargeInWithoutLiveOutputIsNoop(t *testing.T) {
	m, peer, _ := newTestManager(t)
	require.NoError(t, m.BargeIn())
	assert.Empty(t, peer.cancelled)
}
