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

/**
 * Contents based on
 * https://github.com/notedit/janus-go/blob/master/janus.go
 */
package janus

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/strukturag/janus-videoroom/log"
)

const (
	eventQueueSize = 64
)

// GatewayListener is notified about changes of the gateway connection.
type GatewayListener interface {
	// ConnectionInterrupted is called once if the transport to the gateway was
	// lost. All pending requests fail with ErrTransportUnavailable.
	ConnectionInterrupted(err error)
	// SessionTimeout is called if the gateway timed out a session.
	SessionTimeout(session *Session)
}

type dummyGatewayListener struct {
}

func (l *dummyGatewayListener) ConnectionInterrupted(err error) {
}

func (l *dummyGatewayListener) SessionTimeout(session *Session) {
}

// Gateway represents a connection to an instance of the Janus Gateway.
type Gateway struct {
	logger    log.Logger
	settings  *Settings
	listener  GatewayListener
	transport Transport
	events    *eventQueue

	nextTransaction atomic.Uint64
	interrupted     sync.Once

	mu sync.Mutex
	// +checklocks:mu
	closed bool
	// +checklocks:mu
	transactions map[string]*transaction
	// +checklocks:mu
	sessions map[uint64]*Session
}

// NewGateway connects to the gateway at the given url.
func NewGateway(ctx context.Context, server string, settings *Settings, listener GatewayListener) (*Gateway, error) {
	transport, err := NewTransport(ctx, server, settings)
	if err != nil {
		return nil, err
	}

	return NewGatewayWithTransport(ctx, transport, settings, listener), nil
}

// NewGatewayWithTransport returns a gateway that uses an existing transport.
func NewGatewayWithTransport(ctx context.Context, transport Transport, settings *Settings, listener GatewayListener) *Gateway {
	if listener == nil {
		listener = new(dummyGatewayListener)
	}

	logger := log.LoggerFromContext(ctx)
	gateway := &Gateway{
		logger:    logger,
		settings:  settings,
		listener:  listener,
		transport: transport,
		events:    newEventQueue(logger, eventQueueSize),

		transactions: make(map[string]*transaction),
		sessions:     make(map[uint64]*Session),
	}
	transport.Start(gateway)
	return gateway
}

func (g *Gateway) Settings() *Settings {
	return g.settings
}

// NeedsKeepalive returns true if sessions must be kept alive explicitly.
func (g *Gateway) NeedsKeepalive() bool {
	return g.transport.NeedsKeepalive()
}

// Close closes the connection to the gateway. Pending requests fail with
// ErrTransportUnavailable.
func (g *Gateway) Close() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	g.mu.Unlock()

	err := g.transport.Close()
	g.cancelTransactions(ErrTransportUnavailable)
	g.events.Close()
	return err
}

func (g *Gateway) cancelTransactions(err error) {
	g.mu.Lock()
	transactions := g.transactions
	g.transactions = make(map[string]*transaction)
	g.mu.Unlock()

	for _, t := range transactions {
		t.complete(err)
	}
}

func (g *Gateway) removeTransaction(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.transactions, id)
}

func (g *Gateway) takeTransaction(id string) *transaction {
	g.mu.Lock()
	defer g.mu.Unlock()
	t, found := g.transactions[id]
	if found {
		delete(g.transactions, id)
	}
	return t
}

// request sends a request and waits for the reply to it. Errors returned by
// the gateway are returned as *ErrorMsg.
func (g *Gateway) request(ctx context.Context, msg StringMap, t *transaction) (any, error) {
	id := strconv.FormatUint(g.nextTransaction.Add(1), 10)
	msg["transaction"] = id
	if g.settings.Token != "" {
		msg["token"] = g.settings.Token
	}
	if g.settings.ApiSecret != "" {
		msg["apisecret"] = g.settings.ApiSecret
	}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil, ErrTransportUnavailable
	}
	g.transactions[id] = t
	g.mu.Unlock()
	defer g.removeTransaction(id)

	if err := g.transport.Send(ctx, msg); err != nil {
		return nil, transportError(err)
	}

	return t.wait(ctx)
}

// OnMessage is called by the transport for every message received.
func (g *Gateway) OnMessage(data []byte) {
	msg, base, err := decodeMessage(data)
	if err != nil {
		g.logger.Printf("Could not decode message %s: %s", string(data), err)
		return
	}

	switch msg := msg.(type) {
	case *SuccessMsg, *AckMsg, *ErrorMsg, *InfoMsg:
		if base.ID != "" {
			if t := g.takeTransaction(base.ID); t != nil {
				t.complete(msg)
				return
			}
		}

		if e, ok := msg.(*ErrorMsg); ok {
			g.logger.Printf("Received error for unknown transaction %s: %s", base.ID, e)
		}
		return
	case *KeepaliveMsg:
		return
	case *TimeoutMsg:
		session := g.getSession(msg.Session)
		if session == nil {
			return
		}

		g.removeSession(session)
		g.events.Execute(func() {
			g.listener.SessionTimeout(session)
		})
		return
	}

	if base.Handle == 0 {
		g.logger.Printf("Received event without handle, ignoring: %s", string(data))
		return
	}

	session := g.getSession(base.Session)
	if session == nil {
		g.logger.Printf("Unable to deliver message %s. Session %d gone?", string(data), base.Session)
		return
	}

	handle := session.getHandle(base.Handle)
	if handle == nil {
		g.logger.Printf("Unable to deliver message %s. Handle %d gone?", string(data), base.Handle)
		return
	}

	g.events.Execute(func() {
		handle.dispatch(msg)
	})
}

// OnConnectionLost is called by the transport if the gateway can no longer be
// reached.
func (g *Gateway) OnConnectionLost(err error) {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()

	g.cancelTransactions(transportError(err))
	g.interrupted.Do(func() {
		g.events.Execute(func() {
			g.listener.ConnectionInterrupted(err)
		})
	})
}

// Info sends an info request to the Gateway.
func (g *Gateway) Info(ctx context.Context) (*InfoMsg, error) {
	req, t := newRequest("info")
	msg, err := g.request(ctx, req, t)
	if err != nil {
		return nil, err
	}

	info, ok := msg.(*InfoMsg)
	if !ok {
		return nil, unexpected("info", msg)
	}
	return info, nil
}

// Create sends a create request to the Gateway.
func (g *Gateway) Create(ctx context.Context) (*Session, error) {
	req, t := newRequest("create")
	t.prepare = func(msg any) {
		if success, ok := msg.(*SuccessMsg); ok {
			session := newSession(g, success.Data.ID)
			g.mu.Lock()
			g.sessions[session.id] = session
			g.mu.Unlock()
		}
	}
	msg, err := g.request(ctx, req, t)
	if err != nil {
		return nil, err
	}

	success, ok := msg.(*SuccessMsg)
	if !ok {
		return nil, unexpected("create", msg)
	}

	session := g.getSession(success.Data.ID)
	if session == nil {
		return nil, ErrTransportUnavailable
	}

	g.transport.SessionCreated(session.id)
	return session, nil
}

func (g *Gateway) getSession(id uint64) *Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sessions[id]
}

func (g *Gateway) removeSession(session *Session) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.sessions, session.id)
}
