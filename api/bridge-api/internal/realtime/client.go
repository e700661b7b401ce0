// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_realtime

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voxbridgeai/pkg/commons"
)

// ErrPeerDisconnected is returned by every send once the socket is no longer
// open, and surfaced as EventPeerDisconnected on the receive side. There is
// no reconnect: the peer's audio context cannot be recovered.
var ErrPeerDisconnected = errors.New("realtime peer disconnected")

const (
	DefaultIdleReadTimeout  = 60 * time.Second
	DefaultEventChannelSize = 256
)

// Client owns one persistent socket to the realtime AI peer.
type Client struct {
	logger commons.Logger

	url             string
	apiKey          string
	model           string
	idleReadTimeout time.Duration
	eventChanSize   int

	conn    *websocket.Conn
	writeMu sync.Mutex

	mu          sync.Mutex
	connected   bool
	closed      bool
	frozenModel string
	session     SessionConfig

	events chan ServerEvent
	done   chan struct{}
	err    error
}

type Option func(*Client)

func WithURL(u string) Option { return func(c *Client) { c.url = u } }

func WithAPIKey(key string) Option { return func(c *Client) { c.apiKey = key } }

func WithModel(model string) Option { return func(c *Client) { c.model = model } }

func WithIdleReadTimeout(d time.Duration) Option {
	return func(c *Client) { c.idleReadTimeout = d }
}

func WithEventChannelSize(n int) Option {
	return func(c *Client) { c.eventChanSize = n }
}

func NewClient(logger commons.Logger, opts ...Option) *Client {
	c := &Client{
		logger:          logger,
		idleReadTimeout: DefaultIdleReadTimeout,
		eventChanSize:   DefaultEventChannelSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.events = make(chan ServerEvent, c.eventChanSize)
	c.done = make(chan struct{})
	return c
}

// Connect dials the peer and starts the read loop. The configured model is
// frozen from this point on.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.connected || c.closed {
		c.mu.Unlock()
		return fmt.Errorf("realtime client already connected or closed")
	}
	c.mu.Unlock()

	u, err := url.Parse(c.url)
	if err != nil {
		return fmt.Errorf("invalid realtime peer url: %w", err)
	}
	if c.model != "" {
		q := u.Query()
		q.Set("model", c.model)
		u.RawQuery = q.Encode()
	}

	header := http.Header{}
	if c.apiKey != "" {
		header.Set("Authorization", "Bearer "+c.apiKey)
	}
	header.Set("OpenAI-Beta", "realtime=v1")

	start := time.Now()
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return fmt.Errorf("dialing realtime peer: %w", err)
	}
	c.logger.Benchmark("realtime.dial", time.Since(start))

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.frozenModel = c.model
	c.mu.Unlock()

	go c.readLoop()
	return nil
}

// Events yields decoded peer events in arrival order. The channel closes
// after the socket drops or Close is called; a terminal EventPeerDisconnected
// is delivered first when the drop was unexpected.
func (c *Client) Events() <-chan ServerEvent {
	return c.events
}

// Err reports why the read loop ended, nil for a clean local close.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Session returns the mirror of the last configuration sent to the peer.
func (c *Client) Session() SessionConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// UpdateSession validates and sends a session.update. Validation failures are
// synchronous and never reach the socket.
func (c *Client) UpdateSession(cfg SessionConfig) error {
	c.mu.Lock()
	frozen := c.frozenModel
	c.mu.Unlock()

	if err := cfg.validate(frozen); err != nil {
		return err
	}
	if cfg.Model == "" {
		cfg.Model = frozen
	}
	if err := c.send(clientEvent{Type: eventSessionUpdate, Session: &cfg}); err != nil {
		return err
	}
	c.mu.Lock()
	c.session = cfg
	c.mu.Unlock()
	return nil
}

func (c *Client) CreateConversationItem(item ConversationItem) error {
	return c.send(clientEvent{Type: eventConversationItemCreate, Item: &item})
}

func (c *Client) AppendInputAudio(audio []byte) error {
	return c.send(clientEvent{
		Type:  eventInputAudioAppend,
		Audio: base64.StdEncoding.EncodeToString(audio),
	})
}

func (c *Client) CommitInputAudio() error {
	return c.send(clientEvent{Type: eventInputAudioCommit})
}

func (c *Client) ClearInputAudio() error {
	return c.send(clientEvent{Type: eventInputAudioClear})
}

func (c *Client) CreateResponse() error {
	return c.send(clientEvent{Type: eventResponseCreate})
}

func (c *Client) CreateResponseWith(override *ResponseOverride) error {
	return c.send(clientEvent{Type: eventResponseCreate, Response: override})
}

// CancelResponse aborts the in-flight response. An empty id cancels whatever
// the peer is currently generating.
func (c *Client) CancelResponse(responseID string) error {
	return c.send(clientEvent{Type: eventResponseCancel, ResponseID: responseID})
}

// SendFunctionResult delivers a tool result as a function_call_output item.
// The caller issues CreateResponse separately to resume the conversation.
func (c *Client) SendFunctionResult(callID string, output string) error {
	return c.send(clientEvent{
		Type: eventConversationItemCreate,
		Item: &ConversationItem{
			Type:   "function_call_output",
			CallID: callID,
			Output: output,
		},
	})
}

// Close shuts the socket down from the bridge side. Idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.mu.Unlock()

	close(c.done)
	if conn == nil {
		close(c.events)
		return nil
	}

	c.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()
	return conn.Close()
}

func (c *Client) send(ev clientEvent) error {
	c.mu.Lock()
	if !c.connected || c.closed {
		c.mu.Unlock()
		return ErrPeerDisconnected
	}
	conn := c.conn
	c.mu.Unlock()

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", ev.Type, err)
	}

	c.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, payload)
	c.writeMu.Unlock()
	if err != nil {
		c.markDisconnected(err)
		return fmt.Errorf("%w: %v", ErrPeerDisconnected, err)
	}
	return nil
}

func (c *Client) markDisconnected(cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.err == nil {
		c.err = fmt.Errorf("%w: %v", ErrPeerDisconnected, cause)
	}
	c.connected = false
}

func (c *Client) readLoop() {
	defer close(c.events)

	conn := c.conn
	resetDeadline := func() {
		_ = conn.SetReadDeadline(time.Now().Add(c.idleReadTimeout))
	}
	resetDeadline()
	conn.SetPongHandler(func(string) error {
		resetDeadline()
		return nil
	})
	conn.SetPingHandler(func(appData string) error {
		resetDeadline()
		c.writeMu.Lock()
		defer c.writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
	})

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			wasClosed := c.closed
			c.mu.Unlock()
			if !wasClosed {
				c.markDisconnected(err)
				c.logger.Warnw("realtime peer socket dropped", "error", err)
				c.push(ServerEvent{Type: EventPeerDisconnected})
			}
			return
		}
		resetDeadline()

		var ev ServerEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			c.logger.Warnw("dropping malformed realtime frame", "error", err)
			continue
		}
		if ev.Type == "" {
			c.logger.Warnw("dropping realtime frame without type")
			continue
		}
		c.push(ev)
	}
}

// push blocks when the consumer lags, propagating backpressure to the peer
// through TCP. It bails out if the client is closed locally.
func (c *Client) push(ev ServerEvent) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}
