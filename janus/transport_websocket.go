/**
 * Video room client for the Janus WebRTC gateway.
 * Copyright (C) 2026 struktur AG
 *
 * @author Joachim Bauch <bauch@struktur.de>
 *
 * @license GNU AGPL version 3 or any later version
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */
package janus

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/strukturag/janus-videoroom/log"
)

const (
	writeTimeout = 20 * time.Second
)

var (
	janusDialer = websocket.Dialer{
		Subprotocols:    []string{"janus-protocol"},
		Proxy:           http.ProxyFromEnvironment,
		WriteBufferPool: &sync.Pool{},
	}
)

type websocketTransport struct {
	logger   log.Logger
	url      string
	settings *Settings

	writeMu sync.Mutex
	// +checklocks:writeMu
	conn *websocket.Conn

	closed    atomic.Bool
	closeCtx  context.Context
	closeFunc context.CancelFunc
}

func newWebsocketTransport(ctx context.Context, u *url.URL, settings *Settings) (*websocketTransport, error) {
	conn, _, err := janusDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, transportError(err)
	}

	closeCtx, closeFunc := context.WithCancel(context.Background())
	return &websocketTransport{
		logger:   log.LoggerFromContext(ctx),
		url:      u.String(),
		settings: settings,
		conn:     conn,

		closeCtx:  closeCtx,
		closeFunc: closeFunc,
	}, nil
}

func (t *websocketTransport) Start(handler TransportHandler) {
	t.writeMu.Lock()
	conn := t.conn
	t.writeMu.Unlock()
	if conn == nil {
		return
	}

	go t.ping()
	go t.recv(conn, handler)
}

func (t *websocketTransport) Send(ctx context.Context, msg StringMap) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if t.conn == nil {
		return ErrTransportUnavailable
	}

	deadline, found := ctx.Deadline()
	if !found {
		deadline = time.Now().Add(writeTimeout)
	}
	t.conn.SetWriteDeadline(deadline) // nolint
	if err := t.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return transportError(err)
	}
	return nil
}

func (t *websocketTransport) SessionCreated(id uint64) {
}

func (t *websocketTransport) NeedsKeepalive() bool {
	return true
}

func (t *websocketTransport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}

	t.closeFunc()
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if t.conn == nil {
		return nil
	}

	err := t.conn.Close()
	t.conn = nil
	return err
}

func (t *websocketTransport) ping() {
	ticker := time.NewTicker(t.settings.KeepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.writeMu.Lock()
			if t.conn == nil {
				t.writeMu.Unlock()
				return
			}

			err := t.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeTimeout))
			t.writeMu.Unlock()
			if err != nil {
				t.logger.Printf("Error sending ping to %s: %s", t.url, err)
			}
		case <-t.closeCtx.Done():
			return
		}
	}
}

func (t *websocketTransport) recv(conn *websocket.Conn, handler TransportHandler) {
	for {
		_, reader, err := conn.NextReader()
		if err == nil {
			var data []byte
			if data, err = io.ReadAll(reader); err == nil {
				handler.OnMessage(data)
				continue
			}
		}

		if t.closed.Load() {
			return
		}

		t.logger.Printf("Connection to %s interrupted: %s", t.url, err)
		t.writeMu.Lock()
		if t.conn == conn {
			t.conn = nil
		}
		t.writeMu.Unlock()
		conn.Close() // nolint
		t.closeFunc()
		handler.OnConnectionLost(transportError(err))
		return
	}
}
