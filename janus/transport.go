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
	"fmt"
	"net/url"
)

// TransportHandler receives data from a transport.
type TransportHandler interface {
	// OnMessage is called for every message received from the gateway, in the
	// order they were received. The HTTP transport passes the reply to a
	// request sent with Send before Send returns, the websocket transport
	// passes it later from its receive loop.
	OnMessage(data []byte)
	// OnConnectionLost is called once if the transport can no longer reach
	// the gateway. It is not called after Close.
	OnConnectionLost(err error)
}

// Transport sends requests to a gateway and delivers replies and events.
type Transport interface {
	Start(handler TransportHandler)
	Send(ctx context.Context, msg StringMap) error
	// SessionCreated is called after the gateway created a session.
	SessionCreated(id uint64)
	// NeedsKeepalive returns true if sessions must send keepalive requests
	// to prevent them from timing out.
	NeedsKeepalive() bool
	Close() error
}

// NewTransport returns a transport for the given server. Websocket urls use a
// persistent connection, all other urls use HTTP requests and long-polling.
func NewTransport(ctx context.Context, server string, settings *Settings) (Transport, error) {
	u, err := url.Parse(server)
	if err != nil {
		return nil, err
	}

	switch u.Scheme {
	case "ws", "wss":
		return newWebsocketTransport(ctx, u, settings)
	case "http", "https":
		return newHttpTransport(ctx, u, settings)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
	}
}
