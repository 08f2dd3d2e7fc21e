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
	"sync"
)

// Session represents a session instance on the Janus Gateway.
type Session struct {
	gateway *Gateway
	id      uint64

	mu sync.Mutex
	// +checklocks:mu
	handles map[uint64]*Handle
}

func newSession(gateway *Gateway, id uint64) *Session {
	return &Session{
		gateway: gateway,
		id:      id,
		handles: make(map[uint64]*Handle),
	}
}

func (s *Session) Id() uint64 {
	return s.id
}

func (s *Session) Gateway() *Gateway {
	return s.gateway
}

func (s *Session) getHandle(id uint64) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handles[id]
}

func (s *Session) removeHandle(handle *Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handles, handle.id)
}

func (s *Session) request(ctx context.Context, msg StringMap, t *transaction) (any, error) {
	msg["session_id"] = s.id
	return s.gateway.request(ctx, msg, t)
}

// Attach sends an attach request to the Gateway within this session.
// plugin should be the unique string of the plugin to attach to. Events of
// the new handle are passed to the listener.
func (s *Session) Attach(ctx context.Context, plugin string, opaqueId string, listener HandleListener) (*Handle, error) {
	req, t := newRequest("attach")
	req["plugin"] = plugin
	if opaqueId != "" {
		req["opaque_id"] = opaqueId
	}
	t.prepare = func(msg any) {
		if success, ok := msg.(*SuccessMsg); ok {
			handle := newHandle(s, success.Data.ID, plugin, listener)
			s.mu.Lock()
			s.handles[handle.id] = handle
			s.mu.Unlock()
		}
	}
	msg, err := s.request(ctx, req, t)
	if err != nil {
		return nil, err
	}

	success, ok := msg.(*SuccessMsg)
	if !ok {
		return nil, unexpected("attach", msg)
	}

	handle := s.getHandle(success.Data.ID)
	if handle == nil {
		return nil, ErrTransportUnavailable
	}
	return handle, nil
}

// KeepAlive sends a keep-alive request to the Gateway.
func (s *Session) KeepAlive(ctx context.Context) error {
	req, t := newRequest("keepalive")
	msg, err := s.request(ctx, req, t)
	if err != nil {
		return err
	}

	if _, ok := msg.(*AckMsg); !ok {
		return unexpected("keepalive", msg)
	}
	return nil
}

// Destroy sends a destroy request to the Gateway to tear down this session.
// The session and its handles are removed locally even if the request fails.
func (s *Session) Destroy(ctx context.Context) error {
	defer func() {
		s.mu.Lock()
		clear(s.handles)
		s.mu.Unlock()
		s.gateway.removeSession(s)
	}()

	req, t := newRequest("destroy")
	msg, err := s.request(ctx, req, t)
	if err != nil {
		return err
	}

	switch msg.(type) {
	case *SuccessMsg, *AckMsg:
		return nil
	default:
		return unexpected("destroy", msg)
	}
}
