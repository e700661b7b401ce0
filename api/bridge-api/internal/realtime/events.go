// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package internal_realtime maintains the socket to the realtime AI peer and
// frames its JSON event protocol: one object per frame, demultiplexed by the
// "type" field.
package internal_realtime

import "encoding/json"

// Server event types (AI → bridge). Names are contractual.
const (
	EventSessionCreated               = "session.created"
	EventSessionUpdated               = "session.updated"
	EventConversationItemCreated      = "conversation.item.created"
	EventInputAudioCommitted          = "input_audio_buffer.committed"
	EventInputAudioSpeechStarted      = "input_audio_buffer.speech_started"
	EventInputAudioSpeechStopped      = "input_audio_buffer.speech_stopped"
	EventResponseCreated              = "response.created"
	EventResponseOutputItemAdded      = "response.output_item.added"
	EventResponseContentPartAdded     = "response.content_part.added"
	EventResponseContentPartDone      = "response.content_part.done"
	EventResponseAudioDelta           = "response.audio.delta"
	EventResponseAudioDone            = "response.audio.done"
	EventResponseAudioTranscriptDelta = "response.audio_transcript.delta"
	EventResponseAudioTranscriptDone  = "response.audio_transcript.done"
	EventResponseTextDelta            = "response.text.delta"
	EventResponseTextDone             = "response.text.done"
	EventResponseFunctionCallDelta    = "response.function_call_arguments.delta"
	EventResponseFunctionCallDone     = "response.function_call_arguments.done"
	EventResponseDone                 = "response.done"
	EventError                        = "error"

	// EventPeerDisconnected is synthesized locally when the socket drops; it
	// never appears on the wire.
	EventPeerDisconnected = "peer.disconnected"
)

// Client event types (bridge → AI).
const (
	eventSessionUpdate          = "session.update"
	eventConversationItemCreate = "conversation.item.create"
	eventInputAudioAppend       = "input_audio_buffer.append"
	eventInputAudioCommit       = "input_audio_buffer.commit"
	eventInputAudioClear        = "input_audio_buffer.clear"
	eventResponseCreate         = "response.create"
	eventResponseCancel         = "response.cancel"
)

// ServerEvent is one frame from the AI peer. A single struct covers the whole
// taxonomy; fields absent from a given type stay at their zero value, and
// unknown fields on known events are ignored by construction.
type ServerEvent struct {
	Type         string `json:"type"`
	EventID      string `json:"event_id,omitempty"`
	ResponseID   string `json:"response_id,omitempty"`
	ItemID       string `json:"item_id,omitempty"`
	CallID       string `json:"call_id,omitempty"`
	OutputIndex  int    `json:"output_index,omitempty"`
	ContentIndex int    `json:"content_index,omitempty"`

	// Delta carries base64 audio for audio.delta, text for transcript/text
	// deltas, and a JSON fragment for function_call_arguments.delta.
	Delta      string `json:"delta,omitempty"`
	Arguments  string `json:"arguments,omitempty"`
	Name       string `json:"name,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	Text       string `json:"text,omitempty"`

	Item     *ConversationItem `json:"item,omitempty"`
	Response *Response         `json:"response,omitempty"`
	Error    *PeerError        `json:"error,omitempty"`
	Session  json.RawMessage   `json:"session,omitempty"`
}

// ConversationItem is the item object shared by conversation.item.create /
// .created and response.output_item.added.
type ConversationItem struct {
	ID        string        `json:"id,omitempty"`
	Type      string        `json:"type,omitempty"` // message | function_call | function_call_output
	Status    string        `json:"status,omitempty"`
	Role      string        `json:"role,omitempty"`
	Content   []ContentPart `json:"content,omitempty"`
	Name      string        `json:"name,omitempty"`
	CallID    string        `json:"call_id,omitempty"`
	Arguments string        `json:"arguments,omitempty"`
	Output    string        `json:"output,omitempty"`
}

type ContentPart struct {
	Type       string `json:"type"` // input_text | text | input_audio | audio
	Text       string `json:"text,omitempty"`
	Audio      string `json:"audio,omitempty"`
	Transcript string `json:"transcript,omitempty"`
}

// Response is the response object on response.created / response.done.
type Response struct {
	ID            string             `json:"id,omitempty"`
	Status        string             `json:"status,omitempty"`
	StatusDetails json.RawMessage    `json:"status_details,omitempty"`
	Output        []ConversationItem `json:"output,omitempty"`
}

// PeerError is the body of an "error" event.
type PeerError struct {
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	EventID string `json:"event_id,omitempty"`
}

// clientEvent is one frame to the AI peer.
type clientEvent struct {
	Type       string            `json:"type"`
	EventID    string            `json:"event_id,omitempty"`
	Session    *SessionConfig    `json:"session,omitempty"`
	Item       *ConversationItem `json:"item,omitempty"`
	Audio      string            `json:"audio,omitempty"`
	Response   *ResponseOverride `json:"response,omitempty"`
	ResponseID string            `json:"response_id,omitempty"`
}

// ResponseOverride narrows one response without touching session state.
type ResponseOverride struct {
	Modalities   []string `json:"modalities,omitempty"`
	Instructions string   `json:"instructions,omitempty"`
}
