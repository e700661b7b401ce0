// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package internal_codec frames the telephony peer's wire protocol. One codec
// per dialect; every codec translates raw frames to the dialect-agnostic
// Event/Action vocabulary the bridge operates on.
package internal_codec

import (
	"encoding/json"
	"fmt"

	internal_audio "github.com/voxbridgeai/api/bridge-api/internal/audio"
	"github.com/voxbridgeai/pkg/commons"
)

// Recognized dialect names, one per server endpoint.
const (
	DialectAudiocodes = "audiocodes"
	DialectTwilio     = "twilio"
	DialectVonage     = "vonage"
	DialectGeneric    = "generic"
)

// Frame is one websocket message together with its wire kind. The kind is
// carried explicitly end to end: payload bytes are never sniffed to guess it,
// since raw audio can legally begin with any byte.
type Frame struct {
	Binary bool
	Data   []byte
}

func TextFrame(data []byte) *Frame { return &Frame{Data: data} }

func BinaryFrame(data []byte) *Frame { return &Frame{Binary: true, Data: data} }

// textMarshal renders a wire message as a JSON text frame.
func textMarshal(msg interface{}) (*Frame, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return TextFrame(data), nil
}

// WireCodec translates between one telephony dialect and the internal event
// vocabulary. Encode may return a nil frame: the action has no representation
// in this dialect and nothing goes on the wire.
type WireCodec interface {
	Name() string
	Decode(frame Frame) (Event, error)
	Encode(action Action) (*Frame, error)

	// MaxChunkBytes is the dialect's outbound chunk cap in raw bytes
	// (pre-base64). The stream manager splits larger buffers.
	MaxChunkBytes() int

	// RequiredInboundFormat is the format user audio arrives in when the
	// session does not negotiate one explicitly.
	RequiredInboundFormat() internal_audio.Config
	// PreferredOutboundFormat is the format bot audio should be delivered in
	// absent negotiation.
	PreferredOutboundFormat() internal_audio.Config

	// SupportsTranscripts reports whether the dialect can carry user-facing
	// transcript text frames.
	SupportsTranscripts() bool
	// ExplicitTurns reports whether the dialect signals utterance boundaries
	// itself (userStream.start/stop). Dialects without explicit turns rely on
	// the AI peer's voice activity detection.
	ExplicitTurns() bool
}

// ============================================================================
// Events — inbound, telephony peer → bridge
// ============================================================================

type Event interface{ isEvent() }

// SessionStart opens a call.
type SessionStart struct {
	ConversationID      string
	Bot                 string
	Caller              string
	SupportedFormats    []internal_audio.Config
	ExpectsAudioReplies bool
}

// SessionResume re-attaches a peer socket to an existing call.
type SessionResume struct {
	ConversationID string
}

// SessionEnd closes a call from the telephony side.
type SessionEnd struct {
	ConversationID string
	ReasonCode     string
	Reason         string
}

type UserStreamStart struct {
	ConversationID string
}

// UserStreamChunk carries decoded user audio. Format is nil when the chunk
// uses the session's negotiated format.
type UserStreamChunk struct {
	ConversationID string
	Audio          []byte
	Format         *internal_audio.Config
}

type UserStreamStop struct {
	ConversationID string
}

// DtmfDigit is a keypad press relayed by the telephony peer.
type DtmfDigit struct {
	Digit string
}

// Hangup is the peer's native disconnect notification.
type Hangup struct{}

// Hello is a dialect handshake frame that needs no reply.
type Hello struct{}

// Ping is any keep-alive or acknowledgement frame the router can ignore.
type Ping struct{}

// Activities wraps a batch of activity events arriving in one frame.
type Activities struct {
	Events []Event
}

// Unknown is an unrecognized frame kind; the router counts and drops it.
type Unknown struct {
	Name string
}

func (SessionStart) isEvent()    {}
func (SessionResume) isEvent()   {}
func (SessionEnd) isEvent()      {}
func (UserStreamStart) isEvent() {}
func (UserStreamChunk) isEvent() {}
func (UserStreamStop) isEvent()  {}
func (DtmfDigit) isEvent()       {}
func (Hangup) isEvent()          {}
func (Hello) isEvent()           {}
func (Ping) isEvent()            {}
func (Activities) isEvent()      {}
func (Unknown) isEvent()         {}

// ============================================================================
// Actions — outbound, bridge → telephony peer
// ============================================================================

type Action interface{ isAction() }

// AcceptSession acknowledges SessionStart with the negotiated format.
type AcceptSession struct {
	ConversationID string
	MediaFormat    internal_audio.Config
}

// RejectSession declines a session (bad resume id, empty format intersection).
type RejectSession struct {
	ConversationID string
	Reason         string
}

// UserStreamStarted acknowledges that user audio is being consumed.
type UserStreamStarted struct {
	ConversationID string
}

// UserStreamStopped acknowledges the end of a user utterance.
type UserStreamStopped struct {
	ConversationID string
}

// Hypothesis carries user-facing transcript text for dialects that support it.
type Hypothesis struct {
	ConversationID string
	Text           string
	Final          bool
}

// StartOutputStream opens one bot utterance toward the peer.
type StartOutputStream struct {
	ConversationID string
	StreamID       string
	MediaFormat    internal_audio.Config
}

// OutputChunk carries bot audio for a live output stream.
type OutputChunk struct {
	ConversationID string
	StreamID       string
	Audio          []byte
}

// StopOutputStream closes one bot utterance.
type StopOutputStream struct {
	ConversationID string
	StreamID       string
}

// ClearAudio tells the peer to drop any audio it has buffered but not yet
// played. Dialects without a flush primitive encode it as no frame.
type ClearAudio struct {
	ConversationID string
}

// Mark asks the peer to echo a named checkpoint once playback reaches it.
type Mark struct {
	ConversationID string
	Name           string
}

// EndCall tears the call down from the bridge side.
type EndCall struct {
	ConversationID string
	Reason         string
}

func (AcceptSession) isAction()     {}
func (RejectSession) isAction()     {}
func (UserStreamStarted) isAction() {}
func (UserStreamStopped) isAction() {}
func (Hypothesis) isAction()        {}
func (StartOutputStream) isAction() {}
func (OutputChunk) isAction()       {}
func (StopOutputStream) isAction()  {}
func (ClearAudio) isAction()        {}
func (Mark) isAction()              {}
func (EndCall) isAction()           {}

// New returns the codec for a dialect name.
func New(dialect string, logger commons.Logger) (WireCodec, error) {
	switch dialect {
	case DialectAudiocodes:
		return NewAudiocodesCodec(logger), nil
	case DialectTwilio:
		return NewTwilioCodec(logger), nil
	case DialectVonage:
		return NewVonageCodec(logger), nil
	case DialectGeneric:
		return NewGenericCodec(logger), nil
	default:
		return nil, fmt.Errorf("unknown wire dialect %q", dialect)
	}
}
