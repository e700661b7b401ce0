// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxbridgeai/pkg/commons"
)

func newTestLogger(t *testing.T) commons.Logger {
	t.Helper()
	logger, err := commons.NewApplicationLoggerWithLevel("error")
	require.NoError(t, err)
	return logger
}

// fakePeer is an in-process stand-in for the AI peer: it records every frame
// the client sends and can push frames back.
type fakePeer struct {
	t        *testing.T
	server   *httptest.Server
	upgrader websocket.Upgrader

	connCh   chan *websocket.Conn
	received chan map[string]interface{}
	authSeen chan string
}

func newFakePeer(t *testing.T) *fakePeer {
	p := &fakePeer{
		t:        t,
		connCh:   make(chan *websocket.Conn, 1),
		received: make(chan map[string]interface{}, 64),
		authSeen: make(chan string, 1),
	}
	p.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.authSeen <- r.Header.Get("Authorization")
		conn, err := p.upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		p.connCh <- conn
		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg map[string]interface{}
			require.NoError(t, json.Unmarshal(payload, &msg))
			p.received <- msg
		}
	}))
	t.Cleanup(p.server.Close)
	return p
}

func (p *fakePeer) wsURL() string {
	return "ws" + strings.TrimPrefix(p.server.URL, "http")
}

func (p *fakePeer) conn() *websocket.Conn {
	select {
	case c := <-p.connCh:
		return c
	case <-time.After(2 * time.Second):
		p.t.Fatal("no client connection arrived")
		return nil
	}
}

func (p *fakePeer) next() map[string]interface{} {
	select {
	case msg := <-p.received:
		return msg
	case <-time.After(2 * time.Second):
		p.t.Fatal("no frame arrived from client")
		return nil
	}
}

func connectedClient(t *testing.T, p *fakePeer, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithURL(p.wsURL()), WithAPIKey("sk-test"), WithModel("test-model")}, opts...)
	c := NewClient(newTestLogger(t), opts...)
	require.NoError(t, c.Connect(context.Background()))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// ============================================================================
// Connection and framing
// ============================================================================

func TestClient_ConnectSendsAuthHeader(t *testing.T) {
	p := newFakePeer(t)
	connectedClient(t, p)
	assert.Equal(t, "Bearer sk-test", <-p.authSeen)
}

func TestClient_SendSurfaceFrames(t *testing.T) {
	p := newFakePeer(t)
	c := connectedClient(t, p)

	require.NoError(t, c.AppendInputAudio([]byte{1, 2, 3, 4}))
	msg := p.next()
	assert.Equal(t, "input_audio_buffer.append", msg["type"])
	assert.Equal(t, "AQIDBA==", msg["audio"])

	require.NoError(t, c.CommitInputAudio())
	assert.Equal(t, "input_audio_buffer.commit", p.next()["type"])

	require.NoError(t, c.ClearInputAudio())
	assert.Equal(t, "input_audio_buffer.clear", p.next()["type"])

	require.NoError(t, c.CreateResponse())
	assert.Equal(t, "response.create", p.next()["type"])

	require.NoError(t, c.CancelResponse("resp-1"))
	msg = p.next()
	assert.Equal(t, "response.cancel", msg["type"])
	assert.Equal(t, "resp-1", msg["response_id"])
}

func TestClient_SendFunctionResult(t *testing.T) {
	p := newFakePeer(t)
	c := connectedClient(t, p)

	require.NoError(t, c.SendFunctionResult("call-1", `{"ok":true}`))
	msg := p.next()
	assert.Equal(t, "conversation.item.create", msg["type"])
	item := msg["item"].(map[string]interface{})
	assert.Equal(t, "function_call_output", item["type"])
	assert.Equal(t, "call-1", item["call_id"])
	assert.Equal(t, `{"ok":true}`, item["output"])
}

// ============================================================================
// Session config invariants
// ============================================================================

func TestClient_UpdateSession_FrozenModel(t *testing.T) {
	p := newFakePeer(t)
	c := connectedClient(t, p)

	err := c.UpdateSession(SessionConfig{Model: "other-model", Temperature: 0.8})
	var ce *ConfigError
	require.ErrorAs(t, err, &ce)

	// same model (or omitted) passes and fills in the frozen one
	require.NoError(t, c.UpdateSession(SessionConfig{Temperature: 0.8}))
	msg := p.next()
	session := msg["session"].(map[string]interface{})
	assert.Equal(t, "test-model", session["model"])
}

func TestClient_UpdateSession_Validation(t *testing.T) {
	p := newFakePeer(t)
	c := connectedClient(t, p)

	tests := []struct {
		name string
		cfg  SessionConfig
	}{
		{"temperature too low", SessionConfig{Temperature: 0.5}},
		{"temperature too high", SessionConfig{Temperature: 1.3}},
		{"bad tool choice", SessionConfig{ToolChoice: "always"}},
		{"bad modality", SessionConfig{Modalities: []string{"video"}}},
		{"bad audio format", SessionConfig{InputAudioFormat: "mp3"}},
		{"bad turn detection", SessionConfig{TurnDetection: &TurnDetection{Type: "client_vad"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.UpdateSession(tt.cfg)
			var ce *ConfigError
			require.ErrorAs(t, err, &ce)
		})
	}

	// nothing reached the socket
	select {
	case msg := <-p.received:
		t.Fatalf("unexpected frame %v", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

// ============================================================================
// Receive surface and disconnects
// ============================================================================

func TestClient_ReceiveDispatch(t *testing.T) {
	p := newFakePeer(t)
	c := connectedClient(t, p)
	conn := p.conn()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"response.audio.delta","response_id":"r1","delta":"AAAA","unknown_field":42}`)))

	select {
	case ev := <-c.Events():
		assert.Equal(t, EventResponseAudioDelta, ev.Type)
		assert.Equal(t, "r1", ev.ResponseID)
		assert.Equal(t, "AAAA", ev.Delta)
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
	}
}

func TestClient_PeerDisconnectSurfaced(t *testing.T) {
	p := newFakePeer(t)
	c := connectedClient(t, p)
	conn := p.conn()

	require.NoError(t, conn.Close())

	var sawDisconnect bool
	for ev := range c.Events() {
		if ev.Type == EventPeerDisconnected {
			sawDisconnect = true
		}
	}
	assert.True(t, sawDisconnect)
	require.ErrorIs(t, c.Err(), ErrPeerDisconnected)

	// all sends fail once the socket is down
	require.ErrorIs(t, c.AppendInputAudio([]byte{0, 0}), ErrPeerDisconnected)
}

func TestClient_SendAfterClose(t *testing.T) {
	p := newFakePeer(t)
	c := connectedClient(t, p)
	require.NoError(t, c.Close())
	require.ErrorIs(t, c.CreateResponse(), ErrPeerDisconnected)
	require.NoError(t, c.Close()) // idempotent
}
