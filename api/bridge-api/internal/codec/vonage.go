// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_codec

import (
	"encoding/json"
	"fmt"

	internal_audio "github.com/voxbridgeai/api/bridge-api/internal/audio"
	"github.com/voxbridgeai/pkg/commons"
)

// 20ms of linear16 at 16kHz — the frame size this dialect's media servers
// expect on the return path
const vonageMaxChunkBytes = 640

// vonageCodec speaks the voice-connector dialect: JSON control events as text
// frames mixed with raw linear16 16kHz audio as binary frames on the same
// socket. The websocket frame kind is the discriminator; audio bytes are
// opaque and can begin with any value, including '{'.
type vonageCodec struct {
	logger commons.Logger
}

func NewVonageCodec(logger commons.Logger) WireCodec {
	return &vonageCodec{logger: logger}
}

type vonageMessage struct {
	Event          string `json:"event"`
	ConversationID string `json:"conversation_uuid,omitempty"`
	Caller         string `json:"from,omitempty"`
	ContentType    string `json:"content-type,omitempty"`
	Digit          string `json:"digit,omitempty"`
	Reason         string `json:"reason,omitempty"`
}

func (c *vonageCodec) Name() string { return DialectVonage }

func (c *vonageCodec) MaxChunkBytes() int { return vonageMaxChunkBytes }

func (c *vonageCodec) RequiredInboundFormat() internal_audio.Config {
	return internal_audio.NewLinear16khzMonoAudioConfig()
}

func (c *vonageCodec) PreferredOutboundFormat() internal_audio.Config {
	return internal_audio.NewLinear16khzMonoAudioConfig()
}

func (c *vonageCodec) SupportsTranscripts() bool { return false }

func (c *vonageCodec) ExplicitTurns() bool { return false }

func (c *vonageCodec) Decode(frame Frame) (Event, error) {
	if len(frame.Data) == 0 {
		return nil, fmt.Errorf("empty vonage frame")
	}
	if frame.Binary {
		f := internal_audio.NewLinear16khzMonoAudioConfig()
		return UserStreamChunk{Audio: frame.Data, Format: &f}, nil
	}

	var msg vonageMessage
	if err := json.Unmarshal(frame.Data, &msg); err != nil {
		return nil, fmt.Errorf("malformed vonage frame: %w", err)
	}
	switch msg.Event {
	case "websocket:connected":
		return SessionStart{
			ConversationID:      msg.ConversationID,
			Caller:              msg.Caller,
			SupportedFormats:    []internal_audio.Config{internal_audio.NewLinear16khzMonoAudioConfig()},
			ExpectsAudioReplies: true,
		}, nil
	case "websocket:dtmf", "dtmf":
		return DtmfDigit{Digit: msg.Digit}, nil
	case "websocket:closed", "hangup":
		return Hangup{}, nil
	case "ping":
		return Ping{}, nil
	default:
		return Unknown{Name: msg.Event}, nil
	}
}

func (c *vonageCodec) Encode(action Action) (*Frame, error) {
	switch a := action.(type) {
	case OutputChunk:
		// raw binary on the wire
		return BinaryFrame(a.Audio), nil
	case AcceptSession, RejectSession, UserStreamStarted, UserStreamStopped,
		Hypothesis, StartOutputStream, StopOutputStream, ClearAudio, Mark, EndCall:
		return nil, nil
	default:
		return nil, fmt.Errorf("vonage codec cannot encode %T", action)
	}
}
