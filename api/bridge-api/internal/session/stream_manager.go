// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_session

import (
	"fmt"

	"github.com/google/uuid"

	internal_audio "github.com/voxbridgeai/api/bridge-api/internal/audio"
	internal_codec "github.com/voxbridgeai/api/bridge-api/internal/codec"
	internal_type "github.com/voxbridgeai/api/bridge-api/internal/type"
	"github.com/voxbridgeai/pkg/commons"
)

// bounded history of stopped stream ids, kept for idempotent stop delivery
const stoppedHistorySize = 32

// PeerSender is the slice of the realtime client the stream manager drives.
type PeerSender interface {
	AppendInputAudio(audio []byte) error
	CommitInputAudio() error
	ClearInputAudio() error
	CreateResponse() error
	CancelResponse(responseID string) error
}

// WireSender delivers actions to the telephony peer. The bridge backs it with
// the call's codec and socket writer.
type WireSender interface {
	Send(action internal_codec.Action) error
}

// OutputStreamState tracks one bot utterance toward the telephony peer.
type OutputStreamState int

const (
	OutputStarting OutputStreamState = iota
	OutputStreaming
	OutputStopped
)

// OutputStream is one bot utterance. Stream ids are never reused; chunks go
// out in the order the AI peer produced them.
type OutputStream struct {
	ID         string
	ResponseID string
	State      OutputStreamState
	Chunks     int
	Bytes      int64
}

// StreamManager enforces the audio contracts of one call: commit padding on
// the inbound side, stream serialization, chunk splitting and barge-in on the
// outbound side.
type StreamManager struct {
	logger    commons.Logger
	callID    string
	resampler internal_type.AudioResampler
	peer      PeerSender
	wire      WireSender

	// negotiated telephony-side format and the AI peer's audio formats
	wireFormat    internal_audio.Config
	peerInFormat  internal_audio.Config
	peerOutFormat internal_audio.Config

	maxChunkBytes int
	minCommitMs   int
	serverVad     bool

	input     InputStream
	live      *OutputStream
	stopped   []string
	cancelled map[string]bool

	// counters surfaced on the health endpoint
	DiscardedChunks int64
}

type StreamManagerOption func(*StreamManager)

func WithMinCommitMs(ms int) StreamManagerOption {
	return func(m *StreamManager) { m.minCommitMs = ms }
}

func WithServerVad(enabled bool) StreamManagerOption {
	return func(m *StreamManager) { m.serverVad = enabled }
}

func NewStreamManager(
	logger commons.Logger,
	callID string,
	resampler internal_type.AudioResampler,
	peer PeerSender,
	wire WireSender,
	wireFormat, peerInFormat, peerOutFormat internal_audio.Config,
	maxChunkBytes int,
	opts ...StreamManagerOption,
) *StreamManager {
	m := &StreamManager{
		logger:        logger,
		callID:        callID,
		resampler:     resampler,
		peer:          peer,
		wire:          wire,
		wireFormat:    wireFormat,
		peerInFormat:  peerInFormat,
		peerOutFormat: peerOutFormat,
		maxChunkBytes: maxChunkBytes,
		minCommitMs:   100,
		serverVad:     true,
		cancelled:     make(map[string]bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *StreamManager) Input() *InputStream { return &m.input }

// LiveOutput returns the in-flight bot utterance, nil when silent.
func (m *StreamManager) LiveOutput() *OutputStream { return m.live }

// ============================================================================
// Inbound: user → AI
// ============================================================================

// OnUserStreamStart opens a new user utterance. A live bot utterance means
// barge-in: cancel the response, flush peer-side playback, stop the stream.
func (m *StreamManager) OnUserStreamStart() error {
	if m.live != nil {
		if err := m.BargeIn(); err != nil {
			return err
		}
	}
	m.input.Start()
	return m.wire.Send(internal_codec.UserStreamStarted{ConversationID: m.callID})
}

// OnUserChunk forwards one chunk of user audio, converting from the declared
// (or negotiated) wire format to the AI peer's input format. Chunks arriving
// while no utterance is open are discarded, not an error.
func (m *StreamManager) OnUserChunk(audio []byte, declared *internal_audio.Config) error {
	if m.input.State() != InputActive {
		m.DiscardedChunks++
		m.logger.Debugw("discarding chunk outside active input stream",
			"call", m.callID, "state", m.input.State().String())
		return nil
	}

	from := m.wireFormat
	if declared != nil {
		from = *declared
	}
	converted, err := m.resampler.Convert(audio, from, m.peerInFormat)
	if err != nil {
		return fmt.Errorf("converting user audio: %w", err)
	}
	if err := m.peer.AppendInputAudio(converted); err != nil {
		return err
	}
	m.input.Add(len(converted), m.peerInFormat.Samples(len(converted)))
	return nil
}

// OnUserStreamStop seals the utterance: pad to the minimum commit duration
// with silence, commit, and ask for a response when the peer's own turn
// detection is off. A stop without an active stream is a no-op.
func (m *StreamManager) OnUserStreamStop() error {
	if m.input.State() != InputActive {
		m.logger.Debugw("ignoring stop without active input stream", "call", m.callID)
		return nil
	}

	haveMs := m.peerInFormat.DurationMs(int(m.input.Bytes()))
	if haveMs < m.minCommitMs {
		pad := m.peerInFormat.Silence(m.minCommitMs - haveMs)
		if err := m.peer.AppendInputAudio(pad); err != nil {
			return err
		}
		m.input.Add(len(pad), m.peerInFormat.Samples(len(pad)))
	}

	m.input.Commit()
	if err := m.peer.CommitInputAudio(); err != nil {
		return err
	}
	if !m.serverVad {
		if err := m.peer.CreateResponse(); err != nil {
			return err
		}
	}
	return m.wire.Send(internal_codec.UserStreamStopped{ConversationID: m.callID})
}

// ============================================================================
// Outbound: AI → user
// ============================================================================

// OnAudioDelta relays one audio delta. The first delta of a response opens a
// fresh output stream; deltas for cancelled responses are dropped.
func (m *StreamManager) OnAudioDelta(responseID string, audio []byte) error {
	if m.cancelled[responseID] {
		m.logger.Debugw("dropping delta for cancelled response",
			"call", m.callID, "response", responseID)
		return nil
	}

	if m.live != nil && m.live.ResponseID != responseID {
		// starts and stops are strictly serialized across streams
		if err := m.stopLive(); err != nil {
			return err
		}
	}
	if m.live == nil {
		stream := &OutputStream{ID: uuid.NewString(), ResponseID: responseID, State: OutputStarting}
		if err := m.wire.Send(internal_codec.StartOutputStream{
			ConversationID: m.callID,
			StreamID:       stream.ID,
			MediaFormat:    m.wireFormat,
		}); err != nil {
			return err
		}
		m.live = stream
	}

	converted, err := m.resampler.Convert(audio, m.peerOutFormat, m.wireFormat)
	if err != nil {
		return fmt.Errorf("converting bot audio: %w", err)
	}
	for _, piece := range splitAtSampleBoundary(converted, m.maxChunkBytes, m.wireFormat.BytesPerSample()) {
		if err := m.wire.Send(internal_codec.OutputChunk{
			ConversationID: m.callID,
			StreamID:       m.live.ID,
			Audio:          piece,
		}); err != nil {
			return err
		}
		m.live.Chunks++
		m.live.Bytes += int64(len(piece))
	}
	m.live.State = OutputStreaming
	return nil
}

// OnAudioDone closes the response's output stream. Done for an already
// stopped or unknown stream is absorbed.
func (m *StreamManager) OnAudioDone(responseID string) error {
	if m.live == nil || m.live.ResponseID != responseID {
		return nil
	}
	return m.stopLive()
}

// OnResponseDone clears per-response state once the AI peer has fully
// finished, including the cancelled-response tombstone.
func (m *StreamManager) OnResponseDone(responseID string) {
	delete(m.cancelled, responseID)
}

// BargeIn cancels the in-flight response and stops the live stream so the
// caller can speak over the bot. Safe to call with no live stream.
func (m *StreamManager) BargeIn() error {
	if m.live == nil {
		return nil
	}
	responseID := m.live.ResponseID
	m.cancelled[responseID] = true
	m.logger.Infow("barge-in", "call", m.callID, "response", responseID)

	if err := m.peer.CancelResponse(responseID); err != nil {
		return err
	}
	if err := m.wire.Send(internal_codec.ClearAudio{ConversationID: m.callID}); err != nil {
		return err
	}
	return m.stopLive()
}

// WasStopped reports whether the id belongs to a recently stopped stream.
func (m *StreamManager) WasStopped(streamID string) bool {
	for _, id := range m.stopped {
		if id == streamID {
			return true
		}
	}
	return false
}

func (m *StreamManager) stopLive() error {
	stream := m.live
	stream.State = OutputStopped
	m.live = nil

	m.stopped = append(m.stopped, stream.ID)
	if len(m.stopped) > stoppedHistorySize {
		m.stopped = m.stopped[len(m.stopped)-stoppedHistorySize:]
	}
	return m.wire.Send(internal_codec.StopOutputStream{
		ConversationID: m.callID,
		StreamID:       stream.ID,
	})
}

// splitAtSampleBoundary cuts a buffer into pieces no larger than maxBytes,
// each ending on a whole sample.
func splitAtSampleBoundary(audio []byte, maxBytes, bytesPerSample int) [][]byte {
	if maxBytes <= 0 || len(audio) <= maxBytes {
		return [][]byte{audio}
	}
	step := maxBytes - maxBytes%bytesPerSample
	if step <= 0 {
		step = bytesPerSample
	}
	var pieces [][]byte
	for start := 0; start < len(audio); start += step {
		end := start + step
		if end > len(audio) {
			end = len(audio)
		}
		pieces = append(pieces, audio[start:end])
	}
	return pieces
}
