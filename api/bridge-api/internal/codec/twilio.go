// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_codec

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	internal_audio "github.com/voxbridgeai/api/bridge-api/internal/audio"
	"github.com/voxbridgeai/pkg/commons"
)

// one second of µ-law per outbound media frame keeps messages well under the
// peer's websocket frame limits
const twilioMaxChunkBytes = 8000

// twilioCodec speaks the media-streams dialect: frames keyed by "event",
// µ-law 8kHz audio, no explicit utterance boundaries (turns come from the AI
// peer's voice activity detection).
type twilioCodec struct {
	logger commons.Logger
}

func NewTwilioCodec(logger commons.Logger) WireCodec {
	return &twilioCodec{logger: logger}
}

type twilioMessage struct {
	Event     string           `json:"event"`
	StreamSid string           `json:"streamSid,omitempty"`
	Start     *twilioStart     `json:"start,omitempty"`
	Media     *twilioMedia     `json:"media,omitempty"`
	Mark      *twilioMark      `json:"mark,omitempty"`
	Dtmf      *twilioDtmf      `json:"dtmf,omitempty"`
	Stop      *json.RawMessage `json:"stop,omitempty"`
}

type twilioStart struct {
	AccountSid       string            `json:"accountSid"`
	CallSid          string            `json:"callSid"`
	StreamSid        string            `json:"streamSid"`
	Tracks           []string          `json:"tracks"`
	MediaFormat      twilioMediaFormat `json:"mediaFormat"`
	CustomParameters map[string]string `json:"customParameters,omitempty"`
}

type twilioMediaFormat struct {
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sampleRate"`
	Channels   int    `json:"channels"`
}

type twilioMedia struct {
	Track     string `json:"track,omitempty"`
	Chunk     string `json:"chunk,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   string `json:"payload"`
}

type twilioMark struct {
	Name string `json:"name"`
}

type twilioDtmf struct {
	Track string `json:"track,omitempty"`
	Digit string `json:"digit"`
}

func (c *twilioCodec) Name() string { return DialectTwilio }

func (c *twilioCodec) MaxChunkBytes() int { return twilioMaxChunkBytes }

func (c *twilioCodec) RequiredInboundFormat() internal_audio.Config {
	return internal_audio.NewMulaw8khzMonoAudioConfig()
}

func (c *twilioCodec) PreferredOutboundFormat() internal_audio.Config {
	return internal_audio.NewMulaw8khzMonoAudioConfig()
}

func (c *twilioCodec) SupportsTranscripts() bool { return false }

func (c *twilioCodec) ExplicitTurns() bool { return false }

func (c *twilioCodec) Decode(frame Frame) (Event, error) {
	var msg twilioMessage
	if err := json.Unmarshal(frame.Data, &msg); err != nil {
		return nil, fmt.Errorf("malformed twilio frame: %w", err)
	}

	switch msg.Event {
	case "connected":
		return Hello{}, nil

	case "start":
		if msg.Start == nil || msg.Start.StreamSid == "" {
			return nil, fmt.Errorf("start event without stream sid")
		}
		caller := ""
		if msg.Start.CustomParameters != nil {
			caller = msg.Start.CustomParameters["from"]
		}
		return SessionStart{
			ConversationID:      msg.Start.StreamSid,
			Caller:              caller,
			SupportedFormats:    []internal_audio.Config{internal_audio.NewMulaw8khzMonoAudioConfig()},
			ExpectsAudioReplies: true,
		}, nil

	case "media":
		if msg.Media == nil {
			return nil, fmt.Errorf("media event without media body")
		}
		audio, err := base64.StdEncoding.DecodeString(msg.Media.Payload)
		if err != nil {
			return nil, fmt.Errorf("media payload with invalid base64: %w", err)
		}
		f := internal_audio.NewMulaw8khzMonoAudioConfig()
		return UserStreamChunk{ConversationID: msg.StreamSid, Audio: audio, Format: &f}, nil

	case "stop":
		return SessionEnd{ConversationID: msg.StreamSid, Reason: "media stream stopped"}, nil

	case "mark":
		// playback checkpoint acknowledgement
		return Ping{}, nil

	case "dtmf":
		if msg.Dtmf == nil {
			return nil, fmt.Errorf("dtmf event without dtmf body")
		}
		return DtmfDigit{Digit: msg.Dtmf.Digit}, nil

	default:
		return Unknown{Name: msg.Event}, nil
	}
}

func (c *twilioCodec) Encode(action Action) (*Frame, error) {
	switch a := action.(type) {
	case OutputChunk:
		return textMarshal(twilioMessage{
			Event:     "media",
			StreamSid: a.ConversationID,
			Media:     &twilioMedia{Payload: base64.StdEncoding.EncodeToString(a.Audio)},
		})
	case StopOutputStream:
		// a mark after the last media frame; the peer echoes it once playback
		// of the utterance completes
		return textMarshal(twilioMessage{
			Event:     "mark",
			StreamSid: a.ConversationID,
			Mark:      &twilioMark{Name: a.StreamID},
		})
	case Mark:
		return textMarshal(twilioMessage{
			Event:     "mark",
			StreamSid: a.ConversationID,
			Mark:      &twilioMark{Name: a.Name},
		})
	case ClearAudio:
		return textMarshal(twilioMessage{
			Event:     "clear",
			StreamSid: a.ConversationID,
		})
	case AcceptSession, RejectSession, UserStreamStarted, UserStreamStopped,
		Hypothesis, StartOutputStream, EndCall:
		// no wire representation; session control is carried by the transport
		return nil, nil
	default:
		return nil, fmt.Errorf("twilio codec cannot encode %T", action)
	}
}
