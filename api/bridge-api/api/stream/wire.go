// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package bridge_stream_api

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	internal_codec "github.com/voxbridgeai/api/bridge-api/internal/codec"
)

const writeTimeout = 10 * time.Second

// wireSocket adapts a websocket connection to the bridge's frame interface.
// The websocket message kind maps one-to-one onto the frame kind the codec
// declared; payload bytes are never inspected to guess it.
type wireSocket struct {
	conn *websocket.Conn
	idle time.Duration

	writeMu sync.Mutex
}

func newWireSocket(conn *websocket.Conn, idle time.Duration) *wireSocket {
	return &wireSocket{conn: conn, idle: idle}
}

// ReadFrame blocks for the next frame; a caller silent past the idle window
// fails the read and ends the call.
func (w *wireSocket) ReadFrame() (internal_codec.Frame, error) {
	if w.idle > 0 {
		if err := w.conn.SetReadDeadline(time.Now().Add(w.idle)); err != nil {
			return internal_codec.Frame{}, err
		}
	}
	messageType, data, err := w.conn.ReadMessage()
	if err != nil {
		return internal_codec.Frame{}, err
	}
	return internal_codec.Frame{
		Binary: messageType == websocket.BinaryMessage,
		Data:   data,
	}, nil
}

func (w *wireSocket) WriteFrame(frame internal_codec.Frame) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	messageType := websocket.TextMessage
	if frame.Binary {
		messageType = websocket.BinaryMessage
	}
	if err := w.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return w.conn.WriteMessage(messageType, frame.Data)
}

func (w *wireSocket) Close() error {
	w.writeMu.Lock()
	_ = w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	w.writeMu.Unlock()
	return w.conn.Close()
}
