// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package internal_bridge is the event router: one Bridge owns the two
// sockets of one call, multiplexes their events on a single task, and drives
// the state machine, stream manager and tool dispatcher.
package internal_bridge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voxbridgeai/api/bridge-api/config"
	internal_audio "github.com/voxbridgeai/api/bridge-api/internal/audio"
	internal_recorder "github.com/voxbridgeai/api/bridge-api/internal/audio/recorder"
	internal_codec "github.com/voxbridgeai/api/bridge-api/internal/codec"
	internal_executor "github.com/voxbridgeai/api/bridge-api/internal/executor"
	internal_realtime "github.com/voxbridgeai/api/bridge-api/internal/realtime"
	internal_registry "github.com/voxbridgeai/api/bridge-api/internal/registry"
	internal_session "github.com/voxbridgeai/api/bridge-api/internal/session"
	internal_tool "github.com/voxbridgeai/api/bridge-api/internal/tool"
	internal_type "github.com/voxbridgeai/api/bridge-api/internal/type"
	"github.com/voxbridgeai/pkg/commons"
	"github.com/voxbridgeai/pkg/utils"
)

// WireConn is the telephony-side socket as the bridge sees it. The server
// backs it with a websocket connection; reads carry the idle deadline. Frames
// keep their wire kind so binary audio is never mistaken for text.
type WireConn interface {
	ReadFrame() (internal_codec.Frame, error)
	WriteFrame(frame internal_codec.Frame) error
	Close() error
}

// PeerClient is the slice of the realtime client the bridge drives, split out
// so tests can run a call without a live socket.
type PeerClient interface {
	internal_session.PeerSender
	Connect(ctx context.Context) error
	Events() <-chan internal_realtime.ServerEvent
	UpdateSession(cfg internal_realtime.SessionConfig) error
	CreateConversationItem(item internal_realtime.ConversationItem) error
	SendFunctionResult(callID, output string) error
	Close() error
}

type telephonyFrame struct {
	event internal_codec.Event
	err   error
}

// Bridge routes every inbound event on either socket to outbound actions on
// the other. All handlers run serially on the bridge's task; concurrency is
// between calls, not within one.
type Bridge struct {
	logger    commons.Logger
	cfg       *config.AppConfig
	codec     internal_codec.WireCodec
	peer      PeerClient
	resampler internal_type.AudioResampler
	registry  *internal_registry.Registry
	exec      *internal_executor.Executor
	tools     *internal_tool.Registry
	metrics   *Metrics

	call       *internal_session.Call
	streams    *internal_session.StreamManager
	dispatcher *internal_tool.Dispatcher
	recorder   *internal_recorder.Recorder

	wireMu   sync.Mutex
	wire     WireConn
	readerID int

	telephony chan telephonyFrame
	result    internal_type.SessionResult
	closedCh  chan struct{}
	closeOnce sync.Once

	// set after response.created; used for targeted cancellation
	currentResponseID string
	// response.create is paused until this instant after a rate_limit_error
	pauseResponsesUntil time.Time

	// armed by an end_call tool result: the next response carries the
	// farewell, and the call ends when that response completes or the grace
	// timer fires, whichever comes first
	hangupArmed        bool
	farewellResponseID string
	farewellTimer      *time.Timer
	farewellGrace      time.Duration

	peerInFormat  internal_audio.Config
	peerOutFormat internal_audio.Config
}

func New(
	logger commons.Logger,
	cfg *config.AppConfig,
	codec internal_codec.WireCodec,
	wire WireConn,
	peer PeerClient,
	resampler internal_type.AudioResampler,
	reg *internal_registry.Registry,
	exec *internal_executor.Executor,
	tools *internal_tool.Registry,
	metrics *Metrics,
) *Bridge {
	return &Bridge{
		logger:        logger,
		cfg:           cfg,
		codec:         codec,
		wire:          wire,
		peer:          peer,
		resampler:     resampler,
		registry:      reg,
		exec:          exec,
		tools:         tools,
		metrics:       metrics,
		call:          internal_session.NewCall(logger, uuid.NewString()),
		telephony:     make(chan telephonyFrame, 64),
		closedCh:      make(chan struct{}),
		farewellGrace: defaultFarewellGrace,
	}
}

// defaultFarewellGrace bounds how long a hangup waits for the farewell
// utterance to finish before the call is torn down anyway.
const defaultFarewellGrace = 10 * time.Second

// CallID implements the registry handle. Before SessionStart it is the
// server-generated placeholder id.
func (b *Bridge) CallID() string { return b.call.ID }

// Closed implements the registry handle.
func (b *Bridge) Closed() bool { return b.call.State() == internal_session.StateClosed }

// Done closes when the call is finalized.
func (b *Bridge) Done() <-chan struct{} { return b.closedCh }

// Result classifies how the call ended; valid after Done.
func (b *Bridge) Result() internal_type.SessionResult { return b.result }

// Run services the call until both sockets are down. A panic in any handler
// logs the stack and finalizes the call; it never escapes to the server.
func (b *Bridge) Run(ctx context.Context, initial internal_codec.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Errorw("bridge panicked", "call", b.call.ID, "panic", r,
				"stack", string(debug.Stack()))
			b.result = internal_type.ResultProtocol
		}
		b.finalize()
	}()

	b.startWireReader(b.wire)

	if initial != nil {
		if !b.handleTelephonyEvent(ctx, initial) {
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			b.beginEnding("server shutdown", internal_type.ResultOk)
			return

		case frame, ok := <-b.telephony:
			if !ok {
				return
			}
			if frame.err != nil {
				b.logger.Infow("telephony socket closed", "call", b.call.ID, "error", frame.err)
				b.beginEnding("telephony disconnect", internal_type.ResultOk)
				return
			}
			if !b.handleTelephonyEvent(ctx, frame.event) {
				return
			}

		case ev, ok := <-b.peer.Events():
			if !ok {
				b.beginEnding("realtime peer gone", internal_type.ResultPeerDisconnected)
				return
			}
			if !b.handlePeerEvent(ev) {
				return
			}

		case r, ok := <-b.toolResults():
			if !ok {
				continue
			}
			if !b.handleToolResult(r) {
				return
			}

		case <-b.farewellExpired():
			b.logger.Infow("farewell grace elapsed", "call", b.call.ID)
			b.beginEnding("agent ended call", internal_type.ResultOk)
			return
		}
	}
}

// farewellExpired is nil (never ready) until an end_call result arms the
// grace timer.
func (b *Bridge) farewellExpired() <-chan time.Time {
	if b.farewellTimer == nil {
		return nil
	}
	return b.farewellTimer.C
}

func (b *Bridge) toolResults() <-chan internal_tool.Result {
	if b.dispatcher == nil {
		return nil
	}
	return b.dispatcher.Results()
}

// ============================================================================
// Telephony side
// ============================================================================

// handleTelephonyEvent returns false when the call should stop routing.
func (b *Bridge) handleTelephonyEvent(ctx context.Context, ev internal_codec.Event) bool {
	switch e := ev.(type) {
	case internal_codec.SessionStart:
		if err := b.acceptSession(ctx, e); err != nil {
			b.logger.Errorw("session setup failed", "call", b.call.ID, "error", err)
			_ = b.sendWire(internal_codec.RejectSession{ConversationID: e.ConversationID, Reason: err.Error()})
			_ = b.call.Reject()
			b.result = internal_type.ResultProtocol
			return false
		}
		return true

	case internal_codec.SessionResume:
		// an in-flight call never receives resume on its own socket; the
		// server routes resumes to the existing bridge. Reaching here means
		// the id was unknown: polite rejection, never a new call under a
		// caller-chosen id.
		b.logger.Warnw("resume for unknown conversation", "conversation", e.ConversationID)
		_ = b.sendWire(internal_codec.RejectSession{
			ConversationID: e.ConversationID,
			Reason:         "unknown conversation",
		})
		b.result = internal_type.ResultProtocol
		return false

	case internal_codec.SessionEnd:
		b.beginEnding(utils.FirstNonEmpty(e.Reason, "session end"), internal_type.ResultOk)
		return false

	case internal_codec.Hangup:
		b.beginEnding("hangup", internal_type.ResultOk)
		return false

	case internal_codec.UserStreamStart:
		if b.streams == nil {
			return b.protocolWarn("userStream.start before session establishment")
		}
		if err := b.streams.OnUserStreamStart(); err != nil {
			return b.sendFailed(err)
		}
		return true

	case internal_codec.UserStreamChunk:
		if b.streams == nil {
			return b.protocolWarn("audio before session establishment")
		}
		// dialects without explicit turn frames open the utterance on the
		// first chunk; the AI peer's VAD decides where it ends
		if b.streams.Input().State() != internal_session.InputActive && !b.codec.ExplicitTurns() {
			b.streams.Input().Start()
		}
		if b.recorder != nil && b.streams.Input().State() == internal_session.InputActive {
			b.recordCaller(e)
		}
		if err := b.streams.OnUserChunk(e.Audio, e.Format); err != nil {
			if errors.Is(err, internal_realtime.ErrPeerDisconnected) {
				return b.sendFailed(err)
			}
			// structural audio problems degrade the one chunk, not the call
			b.logger.Warnw("dropping unconvertible chunk", "call", b.call.ID, "error", err)
			b.metrics.DroppedFrames.Add(1)
		}
		return true

	case internal_codec.UserStreamStop:
		if b.streams == nil {
			return b.protocolWarn("userStream.stop before session establishment")
		}
		if err := b.streams.OnUserStreamStop(); err != nil {
			return b.sendFailed(err)
		}
		return true

	case internal_codec.DtmfDigit:
		return b.forwardDtmf(e.Digit)

	case internal_codec.Activities:
		for _, inner := range e.Events {
			if !b.handleTelephonyEvent(ctx, inner) {
				return false
			}
		}
		return true

	case internal_codec.Hello, internal_codec.Ping:
		return true

	case internal_codec.Unknown:
		b.metrics.UnknownEvents.Add(1)
		b.logger.Warnw("dropping unknown telephony event", "call", b.call.ID, "kind", e.Name)
		return true

	default:
		b.metrics.UnknownEvents.Add(1)
		b.logger.Warnw("dropping unhandled telephony event", "call", b.call.ID, "type", fmt.Sprintf("%T", ev))
		return true
	}
}

func (b *Bridge) acceptSession(ctx context.Context, start internal_codec.SessionStart) error {
	if start.ConversationID != "" {
		b.call.ID = start.ConversationID
	}
	b.call.Caller = start.Caller
	b.call.Bot = start.Bot
	b.call.ExpectsAudioReplies = start.ExpectsAudioReplies

	if err := b.call.Accepting(); err != nil {
		return err
	}

	wireFormat, err := internal_audio.Negotiate(start.SupportedFormats)
	if err != nil {
		return err
	}
	b.call.Format = wireFormat

	// the AI peer speaks linear 24k natively; µ-law calls stay in G.711 end
	// to end so nothing is resampled twice
	peerFormatName := internal_realtime.AudioFormatPCM16
	b.peerInFormat = internal_audio.NewLinear24khzMonoAudioConfig()
	b.peerOutFormat = internal_audio.NewLinear24khzMonoAudioConfig()
	if wireFormat.Encoding == internal_audio.EncodingMulaw {
		peerFormatName = internal_realtime.AudioFormatG711Ulaw
		b.peerInFormat = internal_audio.NewMulaw8khzMonoAudioConfig()
		b.peerOutFormat = internal_audio.NewMulaw8khzMonoAudioConfig()
	}

	if err := b.peer.Connect(ctx); err != nil {
		return fmt.Errorf("connecting AI peer: %w", err)
	}

	sessionCfg := internal_realtime.SessionConfig{
		Modalities:        []string{"text", "audio"},
		Voice:             b.cfg.AIPeer.Voice,
		Instructions:      b.cfg.AIPeer.Instructions,
		InputAudioFormat:  peerFormatName,
		OutputAudioFormat: peerFormatName,
		Temperature:       b.cfg.AIPeer.Temperature,
		ToolChoice:        b.cfg.AIPeer.ToolChoice,
		Tools:             b.tools.Definitions(),
	}
	if b.cfg.AIPeer.ServerVad() {
		sessionCfg.TurnDetection = &internal_realtime.TurnDetection{Type: "server_vad"}
	}
	if err := b.peer.UpdateSession(sessionCfg); err != nil {
		return fmt.Errorf("configuring AI peer: %w", err)
	}

	b.streams = internal_session.NewStreamManager(
		b.logger, b.call.ID, b.resampler, b.peer, wireSenderFunc(b.sendWire),
		wireFormat, b.peerInFormat, b.peerOutFormat,
		b.codec.MaxChunkBytes(),
		internal_session.WithMinCommitMs(b.cfg.MinCommitMs),
		internal_session.WithServerVad(b.cfg.AIPeer.ServerVad()),
	)
	b.dispatcher = internal_tool.NewDispatcher(b.logger, b.tools, b.exec, b.call.ID,
		internal_tool.WithToolTimeout(b.cfg.ToolTimeout()))

	if b.cfg.Recording.Enabled {
		recFormat := b.peerInFormat
		if recFormat.Encoding == internal_audio.EncodingMulaw {
			recFormat = internal_audio.NewLinear8khzMonoAudioConfig()
		}
		b.recorder = internal_recorder.New(b.logger, recFormat)
		b.recorder.Start()
	}

	if err := b.sendWire(internal_codec.AcceptSession{
		ConversationID: b.call.ID,
		MediaFormat:    wireFormat,
	}); err != nil {
		return err
	}
	if err := b.call.Activate(); err != nil {
		return err
	}

	b.registry.Add(b)
	b.metrics.CallsStarted.Add(1)
	b.logger.Infow("call active", "call", b.call.ID, "dialect", b.codec.Name(),
		"format", wireFormat.String(), "caller", b.call.Caller)

	if b.call.ExpectsAudioReplies {
		return b.seedGreeting()
	}
	return nil
}

// seedGreeting emits a synthetic user turn so the bot speaks first.
func (b *Bridge) seedGreeting() error {
	err := b.peer.CreateConversationItem(internal_realtime.ConversationItem{
		Type: "message",
		Role: "user",
		Content: []internal_realtime.ContentPart{{
			Type: "input_text",
			Text: "Greet the caller with a short hello and ask how you can help.",
		}},
	})
	if err != nil {
		return err
	}
	if err := b.createResponse(); err != nil {
		return err
	}
	b.call.Greeted = true
	return nil
}

func (b *Bridge) forwardDtmf(digit string) bool {
	if utils.IsEmpty(digit) {
		return true
	}
	b.logger.Infow("dtmf", "call", b.call.ID, "digit", digit)
	err := b.peer.CreateConversationItem(internal_realtime.ConversationItem{
		Type: "message",
		Role: "user",
		Content: []internal_realtime.ContentPart{{
			Type: "input_text",
			Text: fmt.Sprintf("The caller pressed the %s key on the keypad.", digit),
		}},
	})
	if err != nil {
		return b.sendFailed(err)
	}
	return true
}

// ============================================================================
// AI peer side
// ============================================================================

func (b *Bridge) handlePeerEvent(ev internal_realtime.ServerEvent) bool {
	switch ev.Type {
	case internal_realtime.EventPeerDisconnected:
		b.beginEnding("realtime peer disconnected", internal_type.ResultPeerDisconnected)
		return false

	case internal_realtime.EventSessionCreated, internal_realtime.EventSessionUpdated:
		b.logger.Debugw("peer session event", "call", b.call.ID, "type", ev.Type)
		return true

	case internal_realtime.EventResponseCreated:
		if ev.Response != nil {
			b.currentResponseID = ev.Response.ID
			if b.hangupArmed && b.farewellResponseID == "" {
				b.farewellResponseID = ev.Response.ID
			}
		}
		return true

	case internal_realtime.EventResponseOutputItemAdded:
		if ev.Item != nil && ev.Item.Type == "function_call" {
			b.metrics.ToolCalls.Add(1)
			b.dispatcher.OnOutputItemAdded(ev)
		}
		return true

	case internal_realtime.EventResponseFunctionCallDelta:
		b.dispatcher.OnArgumentsDelta(ev)
		return true

	case internal_realtime.EventResponseFunctionCallDone:
		b.dispatcher.OnArgumentsDone(ev)
		return true

	case internal_realtime.EventResponseAudioDelta:
		audio, err := decodeBase64(ev.Delta)
		if err != nil {
			b.logger.Warnw("undecodable audio delta", "call", b.call.ID, "error", err)
			b.metrics.DroppedFrames.Add(1)
			return true
		}
		if b.recorder != nil {
			b.recordBot(audio)
		}
		if err := b.streams.OnAudioDelta(ev.ResponseID, audio); err != nil {
			return b.sendFailed(err)
		}
		return true

	case internal_realtime.EventResponseAudioDone:
		if err := b.streams.OnAudioDone(ev.ResponseID); err != nil {
			return b.sendFailed(err)
		}
		return true

	case internal_realtime.EventResponseAudioTranscriptDelta:
		return b.forwardTranscript(ev.Delta, false)

	case internal_realtime.EventResponseAudioTranscriptDone:
		return b.forwardTranscript(ev.Transcript, true)

	case internal_realtime.EventInputAudioSpeechStarted:
		// server-side VAD can race ahead of the telephony start frame
		if b.streams.LiveOutput() != nil {
			if err := b.streams.BargeIn(); err != nil {
				return b.sendFailed(err)
			}
		}
		return true

	case internal_realtime.EventInputAudioSpeechStopped,
		internal_realtime.EventInputAudioCommitted,
		internal_realtime.EventConversationItemCreated,
		internal_realtime.EventResponseContentPartAdded,
		internal_realtime.EventResponseContentPartDone,
		internal_realtime.EventResponseTextDelta,
		internal_realtime.EventResponseTextDone:
		return true

	case internal_realtime.EventResponseDone:
		if ev.Response != nil {
			b.streams.OnResponseDone(ev.Response.ID)
			if b.currentResponseID == ev.Response.ID {
				b.currentResponseID = ""
			}
			if b.hangupArmed && ev.Response.ID == b.farewellResponseID {
				// the farewell utterance has fully streamed out
				b.beginEnding("agent ended call", internal_type.ResultOk)
				return false
			}
		}
		return true

	case internal_realtime.EventError:
		b.handlePeerError(ev.Error)
		return true

	default:
		b.metrics.UnknownEvents.Add(1)
		b.logger.Warnw("dropping unknown peer event", "call", b.call.ID, "type", ev.Type)
		return true
	}
}

func (b *Bridge) forwardTranscript(text string, final bool) bool {
	if !b.codec.SupportsTranscripts() || utils.IsEmpty(text) {
		return true
	}
	if err := b.sendWire(internal_codec.Hypothesis{
		ConversationID: b.call.ID,
		Text:           text,
		Final:          final,
	}); err != nil {
		return b.sendFailed(err)
	}
	return true
}

// handlePeerError maps error events to log severity. No teardown: a fatal
// condition shows up as a socket closure in its own right.
func (b *Bridge) handlePeerError(pe *internal_realtime.PeerError) {
	if pe == nil {
		return
	}
	switch pe.Type {
	case "server_error", "internal_server_error":
		b.logger.Errorw("AI peer error", "call", b.call.ID, "code", pe.Code, "message", pe.Message)
	case "rate_limit_error":
		b.pauseResponsesUntil = time.Now().Add(2 * time.Second)
		b.logger.Warnw("AI peer rate limited, pausing response creation",
			"call", b.call.ID, "message", pe.Message)
	default:
		b.logger.Infow("AI peer error", "call", b.call.ID, "type", pe.Type, "message", pe.Message)
	}
}

// ============================================================================
// Tool results
// ============================================================================

func (b *Bridge) handleToolResult(r internal_tool.Result) bool {
	payload, err := json.Marshal(r.Output)
	if err != nil {
		payload = []byte(`{"error":"unserializable result"}`)
	}
	if err := b.peer.SendFunctionResult(r.CallID, string(payload)); err != nil {
		return b.sendFailed(err)
	}
	if err := b.createResponse(); err != nil {
		return b.sendFailed(err)
	}

	if r.Directive == internal_type.DirectiveEndCall {
		b.logger.Infow("tool requested hangup", "call", b.call.ID, "tool", r.Name)
		// keep routing until the farewell response completes; the grace timer
		// bounds how long a silent peer can hold the call open
		b.hangupArmed = true
		b.farewellResponseID = ""
		b.farewellTimer = time.NewTimer(b.farewellGrace)
	}
	return true
}

// ============================================================================
// Lifecycle plumbing
// ============================================================================

func (b *Bridge) beginEnding(reason string, result internal_type.SessionResult) {
	if !b.call.BeginEnding() {
		return
	}
	b.result = result
	b.logger.Infow("call winding down", "call", b.call.ID, "reason", reason)

	// cancel everything scoped to the call: background tool work first, then
	// both sockets
	b.exec.CancelPrefix(b.call.ID + ":")
	_ = b.sendWire(internal_codec.EndCall{ConversationID: b.call.ID, Reason: reason})
}

func (b *Bridge) finalize() {
	b.closeOnce.Do(func() {
		b.call.BeginEnding()
		if b.farewellTimer != nil {
			b.farewellTimer.Stop()
		}
		b.exec.CancelPrefix(b.call.ID + ":")
		if b.dispatcher != nil {
			b.dispatcher.Close()
		}
		_ = b.peer.Close()

		b.wireMu.Lock()
		if b.wire != nil {
			_ = b.wire.Close()
		}
		b.wireMu.Unlock()

		if b.recorder != nil && b.cfg.Recording.Enabled {
			if err := b.recorder.SaveTo(b.cfg.Recording.Directory, b.call.ID); err != nil {
				b.logger.Warnw("recording not persisted", "call", b.call.ID, "error", err)
			}
		}

		if err := b.call.CloseOut(); err != nil {
			// a call rejected before activation is already closed
			b.logger.Debugw("close-out skipped", "call", b.call.ID, "error", err)
		}
		b.registry.Remove(b.call.ID)
		b.metrics.CallsEnded.Add(1)
		b.logger.Infow("call finalized", "call", b.call.ID,
			"result", b.result.String(), "age", b.call.Age().String())
		close(b.closedCh)
	})
}

// AdoptWire swaps the telephony socket of a live call (session resume). The
// old socket is closed; its reader drains out and new frames flow from the
// adopted one.
func (b *Bridge) AdoptWire(conn WireConn) error {
	if b.call.State() != internal_session.StateActive {
		return fmt.Errorf("call %s not active, cannot resume", b.call.ID)
	}
	b.wireMu.Lock()
	old := b.wire
	b.wire = conn
	b.readerID++
	b.wireMu.Unlock()
	if old != nil {
		_ = old.Close()
	}

	b.startWireReader(conn)
	b.logger.Infow("telephony socket resumed", "call", b.call.ID)
	return b.sendWire(internal_codec.AcceptSession{
		ConversationID: b.call.ID,
		MediaFormat:    b.call.Format,
	})
}

// startWireReader pumps frames from one socket generation into the router
// queue. A superseded reader (resume swapped the socket underneath it) exits
// without reporting its read error as a disconnect.
func (b *Bridge) startWireReader(conn WireConn) {
	b.wireMu.Lock()
	generation := b.readerID
	b.wireMu.Unlock()

	utils.Go(context.Background(), func() {
		for {
			frame, err := conn.ReadFrame()
			if err != nil {
				b.wireMu.Lock()
				superseded := generation != b.readerID
				b.wireMu.Unlock()
				if superseded {
					return
				}
				b.pushTelephony(telephonyFrame{err: err})
				return
			}
			ev, derr := b.codec.Decode(frame)
			if derr != nil {
				// protocol errors are local to the frame
				b.logger.Warnw("undecodable telephony frame", "call", b.call.ID, "error", derr)
				b.metrics.DroppedFrames.Add(1)
				continue
			}
			b.pushTelephony(telephonyFrame{event: ev})
		}
	})
}

func (b *Bridge) pushTelephony(f telephonyFrame) {
	select {
	case b.telephony <- f:
	case <-b.closedCh:
	}
}

func (b *Bridge) sendWire(action internal_codec.Action) error {
	frame, err := b.codec.Encode(action)
	if err != nil {
		return err
	}
	if frame == nil {
		return nil
	}
	b.wireMu.Lock()
	defer b.wireMu.Unlock()
	if b.wire == nil {
		return fmt.Errorf("telephony socket gone")
	}
	return b.wire.WriteFrame(*frame)
}

// createResponse respects the rate-limit pause before asking for generation.
func (b *Bridge) createResponse() error {
	if wait := time.Until(b.pauseResponsesUntil); wait > 0 {
		time.Sleep(wait)
	}
	return b.peer.CreateResponse()
}

func (b *Bridge) sendFailed(err error) bool {
	if errors.Is(err, internal_realtime.ErrPeerDisconnected) {
		b.beginEnding("realtime peer disconnected", internal_type.ResultPeerDisconnected)
	} else {
		b.logger.Errorw("outbound write failed", "call", b.call.ID, "error", err)
		b.beginEnding("write failure", internal_type.ResultProtocol)
	}
	return false
}

func (b *Bridge) protocolWarn(msg string) bool {
	b.logger.Warnw(msg, "call", b.call.ID)
	b.metrics.DroppedFrames.Add(1)
	return true
}

// recordCaller converts the chunk to the recorder's linear format first.
func (b *Bridge) recordCaller(e internal_codec.UserStreamChunk) {
	from := b.call.Format
	if e.Format != nil {
		from = *e.Format
	}
	target := internal_audio.Config{
		Encoding:   internal_audio.EncodingLinear16,
		SampleRate: b.peerInFormat.SampleRate,
		Channels:   1,
	}
	if converted, err := b.resampler.Convert(e.Audio, from, target); err == nil {
		b.recorder.RecordCaller(converted)
	}
}

func (b *Bridge) recordBot(audio []byte) {
	target := internal_audio.Config{
		Encoding:   internal_audio.EncodingLinear16,
		SampleRate: b.peerOutFormat.SampleRate,
		Channels:   1,
	}
	if converted, err := b.resampler.Convert(audio, b.peerOutFormat, target); err == nil {
		b.recorder.RecordBot(converted)
	}
}

type wireSenderFunc func(internal_codec.Action) error

func (f wireSenderFunc) Send(a internal_codec.Action) error { return f(a) }

func decodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
