// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package bridge_stream_api terminates telephony websocket connections and
// hands each one to a bridge. One gin handler serves every dialect; the path
// parameter selects the wire codec.
package bridge_stream_api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/voxbridgeai/api/bridge-api/config"
	internal_bridge "github.com/voxbridgeai/api/bridge-api/internal/bridge"
	internal_codec "github.com/voxbridgeai/api/bridge-api/internal/codec"
	internal_executor "github.com/voxbridgeai/api/bridge-api/internal/executor"
	internal_realtime "github.com/voxbridgeai/api/bridge-api/internal/realtime"
	internal_registry "github.com/voxbridgeai/api/bridge-api/internal/registry"
	internal_tool "github.com/voxbridgeai/api/bridge-api/internal/tool"
	internal_type "github.com/voxbridgeai/api/bridge-api/internal/type"
	"github.com/voxbridgeai/pkg/commons"
)

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// PeerFactory builds one AI-peer client per call. Tests swap it out.
type PeerFactory func() internal_bridge.PeerClient

type StreamApi struct {
	baseCtx   context.Context
	cfg       *config.AppConfig
	logger    commons.Logger
	registry  *internal_registry.Registry
	exec      *internal_executor.Executor
	tools     *internal_tool.Registry
	resampler internal_type.AudioResampler
	metrics   *internal_bridge.Metrics
	peers     PeerFactory
}

func New(
	baseCtx context.Context,
	cfg *config.AppConfig,
	logger commons.Logger,
	registry *internal_registry.Registry,
	exec *internal_executor.Executor,
	tools *internal_tool.Registry,
	resampler internal_type.AudioResampler,
	metrics *internal_bridge.Metrics,
) *StreamApi {
	sApi := &StreamApi{
		baseCtx:   baseCtx,
		cfg:       cfg,
		logger:    logger,
		registry:  registry,
		exec:      exec,
		tools:     tools,
		resampler: resampler,
		metrics:   metrics,
	}
	sApi.peers = sApi.defaultPeerFactory
	return sApi
}

// WithPeerFactory replaces how AI-peer clients are built.
func (sApi *StreamApi) WithPeerFactory(f PeerFactory) *StreamApi {
	sApi.peers = f
	return sApi
}

func (sApi *StreamApi) defaultPeerFactory() internal_bridge.PeerClient {
	return internal_realtime.NewClient(sApi.logger,
		internal_realtime.WithURL(sApi.cfg.AIPeer.Url),
		internal_realtime.WithAPIKey(sApi.cfg.AIPeer.ApiKey),
		internal_realtime.WithModel(sApi.cfg.AIPeer.Model),
		internal_realtime.WithIdleReadTimeout(sApi.cfg.IdleReadTimeout()),
	)
}

// Connect upgrades a telephony websocket and services the call until it ends.
//
// @Router /v1/stream/:dialect [get]
// @Summary Attach a telephony media stream
// @Param dialect path string true "audiocodes | twilio | vonage | generic"
// @Success 101 "Switching Protocols"
// @Failure 404 {object} gin.H
func (sApi *StreamApi) Connect(c *gin.Context) {
	dialect := c.Param("dialect")
	codec, err := internal_codec.New(dialect, sApi.logger)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown dialect", "dialect": dialect})
		return
	}

	conn, err := streamUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		sApi.logger.Errorw("websocket upgrade failed", "dialect", dialect, "error", err)
		return
	}
	wire := newWireSocket(conn, sApi.cfg.IdleReadTimeout())

	// the first frame decides whether this is a fresh call or a resume of a
	// live one; everything after it flows through the bridge's own reader
	initial, err := sApi.readInitialEvent(wire, codec)
	if err != nil {
		sApi.logger.Warnw("no usable opening frame", "dialect", dialect, "error", err)
		_ = wire.Close()
		return
	}

	if resume, ok := initial.(internal_codec.SessionResume); ok {
		if handle, found := sApi.registry.Get(resume.ConversationID); found {
			if bridge, ok := handle.(*internal_bridge.Bridge); ok {
				if err := bridge.AdoptWire(wire); err != nil {
					sApi.logger.Warnw("resume refused", "conversation", resume.ConversationID, "error", err)
					_ = wire.Close()
				}
				// the adopted socket now belongs to the existing bridge
				return
			}
		}
		// unknown id falls through: a fresh bridge turns it into a polite
		// rejection
	}

	bridge := internal_bridge.New(
		sApi.logger, sApi.cfg, codec, wire, sApi.peers(),
		sApi.resampler, sApi.registry, sApi.exec, sApi.tools, sApi.metrics,
	)
	bridge.Run(sApi.baseCtx, initial)
}

// readInitialEvent retries past undecodable frames until the peer produces a
// real opening event or hangs up.
func (sApi *StreamApi) readInitialEvent(wire *wireSocket, codec internal_codec.WireCodec) (internal_codec.Event, error) {
	for {
		frame, err := wire.ReadFrame()
		if err != nil {
			return nil, err
		}
		ev, derr := codec.Decode(frame)
		if derr != nil {
			sApi.logger.Warnw("undecodable opening frame", "error", derr)
			sApi.metrics.DroppedFrames.Add(1)
			continue
		}
		return ev, nil
	}
}
