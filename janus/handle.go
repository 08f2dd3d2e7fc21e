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
	"reflect"
)

// HandleListener receives the events of a plugin handle. The methods are
// called in the order the events were sent by the gateway.
type HandleListener interface {
	OnEvent(event *EventMsg)
	OnWebRTCUp(event *WebRTCUpMsg)
	OnHangup(event *HangupMsg)
	OnDetached(event *DetachedMsg)
	OnMedia(event *MediaMsg)
	OnSlowLink(event *SlowLinkMsg)
	OnTrickle(event *TrickleMsg)
}

// Handle represents a handle to a plugin instance on the Gateway.
type Handle struct {
	session  *Session
	id       uint64
	plugin   string
	listener HandleListener
}

func newHandle(session *Session, id uint64, plugin string, listener HandleListener) *Handle {
	return &Handle{
		session:  session,
		id:       id,
		plugin:   plugin,
		listener: listener,
	}
}

func (h *Handle) Id() uint64 {
	return h.id
}

func (h *Handle) Plugin() string {
	return h.plugin
}

func (h *Handle) Session() *Session {
	return h.session
}

func (h *Handle) dispatch(msg any) {
	if h.listener == nil {
		return
	}

	switch msg := msg.(type) {
	case *EventMsg:
		h.listener.OnEvent(msg)
	case *WebRTCUpMsg:
		h.listener.OnWebRTCUp(msg)
	case *HangupMsg:
		h.listener.OnHangup(msg)
	case *DetachedMsg:
		h.session.removeHandle(h)
		h.listener.OnDetached(msg)
	case *MediaMsg:
		h.listener.OnMedia(msg)
	case *SlowLinkMsg:
		h.listener.OnSlowLink(msg)
	case *TrickleMsg:
		h.listener.OnTrickle(msg)
	default:
		h.session.gateway.logger.Println("Received unsupported event type", msg, reflect.TypeOf(msg))
	}
}

func (h *Handle) request(ctx context.Context, msg StringMap, t *transaction) (any, error) {
	msg["handle_id"] = h.id
	return h.session.request(ctx, msg, t)
}

func (h *Handle) simpleRequest(ctx context.Context, method string, fields StringMap) error {
	req, t := newRequest(method)
	for k, v := range fields {
		req[k] = v
	}
	msg, err := h.request(ctx, req, t)
	if err != nil {
		return err
	}

	switch msg.(type) {
	case *SuccessMsg, *AckMsg:
		return nil
	default:
		return unexpected(method, msg)
	}
}

// Message sends a message request to a plugin handle on the Gateway.
// body should be the plugin data to be passed to the plugin, and jsep should
// contain an optional SDP offer/answer. If the plugin replied synchronously,
// its data is returned. Asynchronous replies are delivered as events to the
// listener and nil is returned. Errors reported by the plugin are returned
// as *ErrorMsg.
func (h *Handle) Message(ctx context.Context, body any, jsep any) (*PluginData, error) {
	req, t := newRequest("message")
	if body != nil {
		req["body"] = body
	}
	if jsep != nil {
		req["jsep"] = jsep
	}
	msg, err := h.request(ctx, req, t)
	if err != nil {
		return nil, err
	}

	switch msg := msg.(type) {
	case *AckMsg:
		return nil, nil
	case *SuccessMsg:
		if err := msg.PluginData.Error(); err != nil {
			return nil, err
		}
		return &msg.PluginData, nil
	default:
		return nil, unexpected("message", msg)
	}
}

// Trickle sends a single ICE candidate to the Gateway.
func (h *Handle) Trickle(ctx context.Context, candidate any) error {
	return h.simpleRequest(ctx, "trickle", StringMap{
		"candidate": candidate,
	})
}

// TrickleCompleted signals the Gateway that all candidates have been sent.
func (h *Handle) TrickleCompleted(ctx context.Context) error {
	return h.simpleRequest(ctx, "trickle", StringMap{
		"candidate": StringMap{
			"completed": true,
		},
	})
}

// Hangup closes the PeerConnection of the handle but keeps the handle.
func (h *Handle) Hangup(ctx context.Context) error {
	return h.simpleRequest(ctx, "hangup", nil)
}

// Detach sends a detach request to the Gateway to remove this handle. The
// handle is removed locally even if the request fails.
func (h *Handle) Detach(ctx context.Context) error {
	defer h.session.removeHandle(h)
	return h.simpleRequest(ctx, "detach", nil)
}
