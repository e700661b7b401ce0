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
	"strings"

	internal_audio "github.com/voxbridgeai/api/bridge-api/internal/audio"
	"github.com/voxbridgeai/pkg/commons"
)

// dialect A caps one outbound chunk at ~15MiB of raw audio pre-base64
const audiocodesMaxChunkBytes = 15 * 1024 * 1024

// audiocodesCodec speaks the JSON-over-socket contact-center dialect:
// messages keyed by "type" (session.initiate, userStream.*, playStream.*,
// activities), audio as base64 fields.
type audiocodesCodec struct {
	logger commons.Logger
	name   string
	// strict rejects frames missing the fields the dialect requires; the
	// generic test variant runs with strict off.
	strict bool
}

func NewAudiocodesCodec(logger commons.Logger) WireCodec {
	return &audiocodesCodec{logger: logger, name: DialectAudiocodes, strict: true}
}

// wire message shape, inbound and outbound
type audiocodesMessage struct {
	Type                  string               `json:"type"`
	ConversationID        string               `json:"conversationId,omitempty"`
	BotName               string               `json:"botName,omitempty"`
	Caller                string               `json:"caller,omitempty"`
	SupportedMediaFormats []string             `json:"supportedMediaFormats,omitempty"`
	ExpectAudioMessages   *bool                `json:"expectAudioMessages,omitempty"`
	ReasonCode            string               `json:"reasonCode,omitempty"`
	Reason                string               `json:"reason,omitempty"`
	AudioChunk            string               `json:"audioChunk,omitempty"`
	Format                string               `json:"format,omitempty"`
	SampleRate            int                  `json:"sampleRate,omitempty"`
	MediaFormat           string               `json:"mediaFormat,omitempty"`
	StreamID              string               `json:"streamId,omitempty"`
	AlternativeText       string               `json:"alternativeText,omitempty"`
	Final                 *bool                `json:"final,omitempty"`
	Activities            []audiocodesActivity `json:"activities,omitempty"`
}

type audiocodesActivity struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Value string `json:"value,omitempty"`
	Text  string `json:"text,omitempty"`
}

func (c *audiocodesCodec) Name() string { return c.name }

func (c *audiocodesCodec) MaxChunkBytes() int { return audiocodesMaxChunkBytes }

func (c *audiocodesCodec) RequiredInboundFormat() internal_audio.Config {
	return internal_audio.NewLinear16khzMonoAudioConfig()
}

func (c *audiocodesCodec) PreferredOutboundFormat() internal_audio.Config {
	return internal_audio.NewLinear16khzMonoAudioConfig()
}

func (c *audiocodesCodec) SupportsTranscripts() bool { return true }

func (c *audiocodesCodec) ExplicitTurns() bool { return true }

func (c *audiocodesCodec) Decode(frame Frame) (Event, error) {
	var msg audiocodesMessage
	if err := json.Unmarshal(frame.Data, &msg); err != nil {
		return nil, fmt.Errorf("malformed %s frame: %w", c.name, err)
	}

	switch msg.Type {
	case "session.initiate":
		if c.strict && msg.ConversationID == "" {
			return nil, fmt.Errorf("session.initiate without conversationId")
		}
		formats := make([]internal_audio.Config, 0, len(msg.SupportedMediaFormats))
		for _, name := range msg.SupportedMediaFormats {
			f, err := parseDialectAFormat(name)
			if err != nil {
				c.logger.Debugw("skipping unrecognized media format", "format", name)
				continue
			}
			formats = append(formats, f)
		}
		expectAudio := true
		if msg.ExpectAudioMessages != nil {
			expectAudio = *msg.ExpectAudioMessages
		}
		return SessionStart{
			ConversationID:      msg.ConversationID,
			Bot:                 msg.BotName,
			Caller:              msg.Caller,
			SupportedFormats:    formats,
			ExpectsAudioReplies: expectAudio,
		}, nil

	case "session.resume":
		if c.strict && msg.ConversationID == "" {
			return nil, fmt.Errorf("session.resume without conversationId")
		}
		return SessionResume{ConversationID: msg.ConversationID}, nil

	case "session.end":
		return SessionEnd{
			ConversationID: msg.ConversationID,
			ReasonCode:     msg.ReasonCode,
			Reason:         msg.Reason,
		}, nil

	case "userStream.start":
		return UserStreamStart{ConversationID: msg.ConversationID}, nil

	case "userStream.chunk":
		audio, err := base64.StdEncoding.DecodeString(msg.AudioChunk)
		if err != nil {
			return nil, fmt.Errorf("userStream.chunk with invalid base64: %w", err)
		}
		chunk := UserStreamChunk{ConversationID: msg.ConversationID, Audio: audio}
		if msg.Format != "" {
			f, perr := internal_audio.ParseMediaFormat(msg.Format, msg.SampleRate)
			if perr == nil {
				chunk.Format = &f
			} else {
				c.logger.Warnw("chunk declared unknown format, assuming session format",
					"format", msg.Format, "conversation", msg.ConversationID)
			}
		}
		return chunk, nil

	case "userStream.stop":
		return UserStreamStop{ConversationID: msg.ConversationID}, nil

	case "activities":
		events := make([]Event, 0, len(msg.Activities))
		for _, a := range msg.Activities {
			switch strings.ToLower(a.Name) {
			case "dtmf":
				events = append(events, DtmfDigit{Digit: a.Value})
			case "hangup":
				events = append(events, Hangup{})
			default:
				events = append(events, Unknown{Name: "activity:" + a.Name})
			}
		}
		return Activities{Events: events}, nil

	default:
		return Unknown{Name: msg.Type}, nil
	}
}

func (c *audiocodesCodec) Encode(action Action) (*Frame, error) {
	switch a := action.(type) {
	case AcceptSession:
		return textMarshal(audiocodesMessage{
			Type:           "session.accepted",
			ConversationID: a.ConversationID,
			MediaFormat:    a.MediaFormat.MediaFormat(),
			SampleRate:     a.MediaFormat.SampleRate,
		})
	case RejectSession:
		return textMarshal(audiocodesMessage{
			Type:           "session.error",
			ConversationID: a.ConversationID,
			Reason:         a.Reason,
		})
	case UserStreamStarted:
		return textMarshal(audiocodesMessage{
			Type:           "userStream.started",
			ConversationID: a.ConversationID,
		})
	case UserStreamStopped:
		return textMarshal(audiocodesMessage{
			Type:           "userStream.stopped",
			ConversationID: a.ConversationID,
		})
	case Hypothesis:
		final := a.Final
		return textMarshal(audiocodesMessage{
			Type:            "userStream.hypothesis",
			ConversationID:  a.ConversationID,
			AlternativeText: a.Text,
			Final:           &final,
		})
	case StartOutputStream:
		return textMarshal(audiocodesMessage{
			Type:           "playStream.start",
			ConversationID: a.ConversationID,
			StreamID:       a.StreamID,
			MediaFormat:    a.MediaFormat.MediaFormat(),
			SampleRate:     a.MediaFormat.SampleRate,
		})
	case OutputChunk:
		return textMarshal(audiocodesMessage{
			Type:           "playStream.chunk",
			ConversationID: a.ConversationID,
			StreamID:       a.StreamID,
			AudioChunk:     base64.StdEncoding.EncodeToString(a.Audio),
		})
	case StopOutputStream:
		return textMarshal(audiocodesMessage{
			Type:           "playStream.stop",
			ConversationID: a.ConversationID,
			StreamID:       a.StreamID,
		})
	case EndCall:
		return textMarshal(audiocodesMessage{
			Type:           "session.end",
			ConversationID: a.ConversationID,
			ReasonCode:     "normal",
			Reason:         a.Reason,
		})
	case ClearAudio, Mark:
		// no flush or checkpoint primitive in this dialect
		return nil, nil
	default:
		return nil, fmt.Errorf("%s codec cannot encode %T", c.name, action)
	}
}

// parseDialectAFormat resolves dialect A's media format names, including the
// rate-suffixed variants ("raw/lpcm16_24").
func parseDialectAFormat(name string) (internal_audio.Config, error) {
	base := name
	rate := 0
	if idx := strings.LastIndex(name, "_"); idx > 0 {
		switch name[idx+1:] {
		case "8", "8000":
			base, rate = name[:idx], 8000
		case "16", "16000":
			base, rate = name[:idx], 16000
		case "24", "24000":
			base, rate = name[:idx], 24000
		}
	}
	return internal_audio.ParseMediaFormat(base, rate)
}
