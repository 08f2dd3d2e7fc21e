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
package rtc

import (
	"context"
	"fmt"
	"sync"

	"github.com/strukturag/janus-videoroom/janus"
	"github.com/strukturag/janus-videoroom/log"
)

type HandleState int

const (
	HandleAttaching HandleState = iota
	HandleAttached
	HandleNegotiating
	HandleActive
	HandleDetached
)

func (s HandleState) String() string {
	switch s {
	case HandleAttaching:
		return "attaching"
	case HandleAttached:
		return "attached"
	case HandleNegotiating:
		return "negotiating"
	case HandleActive:
		return "active"
	case HandleDetached:
		return "detached"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

type NegotiationPhase int

const (
	NegotiationNone NegotiationPhase = iota
	NegotiationOffer
	NegotiationAnswer
)

func (p NegotiationPhase) String() string {
	switch p {
	case NegotiationNone:
		return "none"
	case NegotiationOffer:
		return "offer"
	case NegotiationAnswer:
		return "answer"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

// HandleListener receives the events of a handle. Events of the gateway are
// delivered in the order they were sent.
type HandleListener interface {
	// OnMessage is called for plugin events. jsep is nil if the event didn't
	// contain a session description.
	OnMessage(handle *Handle, data janus.StringMap, jsep *SessionDescription)
	OnLocalStream(handle *Handle, stream LocalStream)
	OnRemoteStream(handle *Handle, stream RemoteStream)
	OnWebRTCState(handle *Handle, up bool, reason string)
	OnMediaState(handle *Handle, media string, receiving bool)
	OnSlowLink(handle *Handle, uplink bool, lost uint64)
	// OnCleanup is called after the media of the handle was released.
	OnCleanup(handle *Handle, local LocalStream, remote []RemoteStream)
	OnDetached(handle *Handle)
}

// NegotiateOptions control a single offer / answer exchange. Defaults are
// taken from the session settings.
type NegotiateOptions struct {
	// Media to capture if no Stream is given. Nothing is captured if nil.
	Media *MediaOptions
	// Stream is supplied by the caller and is not stopped on cleanup.
	Stream LocalStream
	// Receive selects the media to receive, defaults to audio and video.
	Receive *MediaOptions
	// RemoteJSEP is the offer of the gateway. An answer is created if set,
	// an offer otherwise.
	RemoteJSEP *SessionDescription
	// Body is sent to the plugin together with the local description.
	Body any
	// Trickle overrides the trickle setting of the session.
	Trickle *bool
	// Mangler is applied to the description before it is sent.
	Mangler SDPMangler
}

type negotiateConfig struct {
	media   *MediaOptions
	stream  LocalStream
	receive MediaOptions
	remote  *SessionDescription
	body    any
	trickle bool
	mangler SDPMangler
	phase   NegotiationPhase
}

func (o *NegotiateOptions) resolve(settings *Settings) *negotiateConfig {
	cfg := &negotiateConfig{
		media:   o.Media,
		stream:  o.Stream,
		receive: MediaOptions{Audio: true, Video: true},
		remote:  o.RemoteJSEP,
		body:    o.Body,
		trickle: settings.Trickle,
		mangler: o.Mangler,
		phase:   NegotiationOffer,
	}
	if o.Receive != nil {
		cfg.receive = *o.Receive
	}
	if o.Trickle != nil {
		cfg.trickle = *o.Trickle
	}
	if cfg.remote != nil {
		cfg.phase = NegotiationAnswer
	}
	return cfg
}

// Handle is a plugin handle that negotiates media with the gateway.
type Handle struct {
	logger   log.Logger
	session  *Session
	plugin   string
	listener HandleListener
	ready    chan struct{}

	// Set before ready is closed.
	id uint64

	mu sync.Mutex
	// +checklocks:mu
	state HandleState
	// +checklocks:mu
	phase NegotiationPhase
	// +checklocks:mu
	handle *janus.Handle
	// +checklocks:mu
	pipeline *pipeline
	// +checklocks:mu
	negotiating bool
	// +checklocks:mu
	sdpSent bool
}

func newHandle(session *Session, plugin string, listener HandleListener) *Handle {
	return &Handle{
		logger:   session.logger,
		session:  session,
		plugin:   plugin,
		listener: listener,
		ready:    make(chan struct{}),

		state: HandleAttaching,
	}
}

func (h *Handle) attached(handle *janus.Handle) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.id = handle.Id()
	h.handle = handle
	h.state = HandleAttached
	close(h.ready)
}

func (h *Handle) attachFailed() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = HandleDetached
	close(h.ready)
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

func (h *Handle) State() HandleState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (h *Handle) Phase() NegotiationPhase {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.phase
}

// SdpSent returns true if the local description was sent to the gateway.
func (h *Handle) SdpSent() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sdpSent
}

func (h *Handle) getHandle() (*janus.Handle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.handle == nil || h.state == HandleDetached {
		return nil, ErrInvalidHandle
	}
	return h.handle, nil
}

// Send sends a message to the plugin.
func (h *Handle) Send(ctx context.Context, body any, jsep *SessionDescription) (*janus.PluginData, error) {
	handle, err := h.getHandle()
	if err != nil {
		return nil, err
	}

	var j any
	if jsep != nil {
		j = jsep.jsep(true)
	}

	reqCtx, cancel := h.session.requestContext(ctx)
	defer cancel()
	return handle.Message(reqCtx, body, j)
}

// Negotiate creates an offer or, if a remote offer is given, an answer and
// sends it to the plugin. Only one description is sent per media pipeline,
// calls while a negotiation is running or after the description was sent
// return without error and without sending anything.
func (h *Handle) Negotiate(ctx context.Context, options NegotiateOptions) (*janus.PluginData, error) {
	cfg := options.resolve(h.session.settings)

	h.mu.Lock()
	switch h.state {
	case HandleAttaching, HandleDetached:
		h.mu.Unlock()
		return nil, ErrInvalidHandle
	}
	if h.negotiating || h.sdpSent {
		h.mu.Unlock()
		h.logger.Printf("Description already sent for handle %d, not sending it again", h.id)
		return nil, nil
	}
	h.negotiating = true
	h.state = HandleNegotiating
	h.phase = cfg.phase
	handle := h.handle
	h.mu.Unlock()

	data, err := h.negotiate(ctx, handle, cfg)

	h.mu.Lock()
	h.negotiating = false
	h.mu.Unlock()

	if err != nil {
		if _, ok := err.(*MediaError); ok {
			statsNegotiationsTotal.WithLabelValues(cfg.phase.String(), "media").Inc()
		} else {
			statsNegotiationsTotal.WithLabelValues(cfg.phase.String(), "error").Inc()
		}
		h.logger.Printf("Negotiation of %s for handle %d failed: %s", cfg.phase, h.id, err)
		return nil, err
	}

	statsNegotiationsTotal.WithLabelValues(cfg.phase.String(), "success").Inc()
	return data, nil
}

func (h *Handle) negotiate(ctx context.Context, handle *janus.Handle, cfg *negotiateConfig) (*janus.PluginData, error) {
	local, external := cfg.stream, true
	if local == nil && cfg.media != nil && !cfg.media.Empty() {
		stream, err := h.session.engine.GetUserMedia(ctx, *cfg.media)
		if err != nil {
			h.reset(nil)
			return nil, &MediaError{Err: err}
		}
		local, external = stream, false
	}

	p, err := newPipeline(h, cfg, local, external)
	if err != nil {
		if local != nil && !external {
			local.Stop()
		}
		h.reset(nil)
		return nil, err
	}

	h.mu.Lock()
	if h.state == HandleDetached {
		h.mu.Unlock()
		p.close()
		return nil, ErrInvalidHandle
	}
	h.pipeline = p
	h.mu.Unlock()

	if local != nil {
		if err := p.pc.AddStream(local); err != nil {
			h.reset(p)
			return nil, err
		}
		h.listener.OnLocalStream(h, local)
	}

	var desc SessionDescription
	if cfg.remote != nil {
		if err := p.pc.SetRemoteDescription(*cfg.remote); err != nil {
			h.reset(p)
			return nil, err
		}
		desc, err = p.pc.CreateAnswer()
	} else {
		desc, err = p.pc.CreateOffer()
	}
	if err != nil {
		h.reset(p)
		return nil, err
	}
	if err := p.pc.SetLocalDescription(desc); err != nil {
		h.reset(p)
		return nil, err
	}

	if !cfg.trickle {
		h.logger.Printf("Waiting for all candidates of handle %d", h.id)
		if err := p.waitGathered(ctx); err != nil {
			h.reset(p)
			return nil, err
		}
		if current := p.pc.LocalDescription(); current != nil {
			desc = *current
		}
	}

	if cfg.mangler != nil {
		if err := cfg.mangler.Mangle(&desc); err != nil {
			h.reset(p)
			return nil, err
		}
	}

	h.mu.Lock()
	if h.pipeline != p || h.state == HandleDetached {
		h.mu.Unlock()
		return nil, ErrInvalidHandle
	}
	h.sdpSent = true
	h.mu.Unlock()

	reqCtx, cancel := h.session.requestContext(ctx)
	defer cancel()

	data, err := handle.Message(reqCtx, cfg.body, desc.jsep(cfg.trickle))
	if err != nil {
		h.reset(p)
		return nil, err
	}

	p.startTrickle(handle)
	return data, nil
}

// reset releases the pipeline after a failed negotiation. The handle returns
// to the attached state.
func (h *Handle) reset(p *pipeline) {
	h.mu.Lock()
	if p != nil && h.pipeline != p {
		h.mu.Unlock()
		return
	}
	h.pipeline = nil
	h.sdpSent = false
	h.phase = NegotiationNone
	if h.state == HandleNegotiating {
		h.state = HandleAttached
	}
	h.mu.Unlock()

	h.cleanup(p)
}

func (h *Handle) cleanup(p *pipeline) {
	if p == nil {
		return
	}

	local, remote := p.close()
	h.listener.OnCleanup(h, local, remote)
}

// +checklocks:h.mu
func (h *Handle) takePipelineLocked() *pipeline {
	p := h.pipeline
	h.pipeline = nil
	h.sdpSent = false
	h.phase = NegotiationNone
	return p
}

// Hangup closes the media of the handle. The handle stays attached and can
// negotiate again.
func (h *Handle) Hangup(ctx context.Context) error {
	h.mu.Lock()
	handle := h.handle
	if handle == nil || h.state == HandleDetached || h.state == HandleAttaching {
		h.mu.Unlock()
		return ErrInvalidHandle
	}
	p := h.takePipelineLocked()
	h.state = HandleAttached
	h.mu.Unlock()

	h.cleanup(p)

	reqCtx, cancel := h.session.requestContext(ctx)
	defer cancel()
	return handle.Hangup(reqCtx)
}

// Detach releases the media and removes the handle from the gateway. The
// handle is removed locally even if the request fails.
func (h *Handle) Detach(ctx context.Context) error {
	h.mu.Lock()
	handle := h.handle
	if handle == nil {
		h.mu.Unlock()
		return ErrInvalidHandle
	}
	h.handle = nil
	h.state = HandleDetached
	p := h.takePipelineLocked()
	h.mu.Unlock()

	h.session.removeHandle(h)
	h.cleanup(p)

	reqCtx, cancel := h.session.requestContext(ctx)
	defer cancel()
	err := handle.Detach(reqCtx)
	h.listener.OnDetached(h)
	return err
}

// destroy releases the handle locally without contacting the gateway.
func (h *Handle) destroy() {
	h.mu.Lock()
	if h.state == HandleDetached && h.handle == nil {
		h.mu.Unlock()
		return
	}
	h.handle = nil
	h.state = HandleDetached
	p := h.takePipelineLocked()
	h.mu.Unlock()

	h.cleanup(p)
	h.listener.OnDetached(h)
}

func (h *Handle) currentPipeline() *pipeline {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pipeline
}

func (h *Handle) OnEvent(event *janus.EventMsg) {
	<-h.ready
	statsEventsTotal.WithLabelValues("event").Inc()
	jsep, err := DescriptionFromJsep(event.Jsep)
	if err != nil {
		h.logger.Printf("Received invalid jsep for handle %d: %s", h.id, err)
	}

	if jsep != nil && jsep.Type == "answer" {
		if p := h.currentPipeline(); p != nil && h.Phase() == NegotiationOffer {
			if err := p.pc.SetRemoteDescription(*jsep); err != nil {
				h.logger.Printf("Could not set remote answer for handle %d: %s", h.id, err)
			}
		}
	}

	h.listener.OnMessage(h, event.Plugindata.Data, jsep)
}

func (h *Handle) OnWebRTCUp(event *janus.WebRTCUpMsg) {
	<-h.ready
	statsEventsTotal.WithLabelValues("webrtcup").Inc()
	h.mu.Lock()
	if h.state == HandleDetached {
		h.mu.Unlock()
		return
	}
	h.state = HandleActive
	h.mu.Unlock()

	h.logger.Printf("PeerConnection of handle %d is up", h.id)
	h.listener.OnWebRTCState(h, true, "")
}

func (h *Handle) OnHangup(event *janus.HangupMsg) {
	<-h.ready
	statsEventsTotal.WithLabelValues("hangup").Inc()
	h.mu.Lock()
	if h.state == HandleDetached {
		h.mu.Unlock()
		return
	}
	h.state = HandleDetached
	p := h.takePipelineLocked()
	h.mu.Unlock()

	h.logger.Printf("PeerConnection of handle %d is down: %s", h.id, event.Reason)
	h.listener.OnWebRTCState(h, false, event.Reason)
	h.cleanup(p)
}

func (h *Handle) OnDetached(event *janus.DetachedMsg) {
	<-h.ready
	statsEventsTotal.WithLabelValues("detached").Inc()
	h.mu.Lock()
	if h.handle == nil {
		h.mu.Unlock()
		return
	}
	h.handle = nil
	h.state = HandleDetached
	p := h.takePipelineLocked()
	h.mu.Unlock()

	h.session.removeHandle(h)
	h.cleanup(p)
	h.listener.OnDetached(h)
}

func (h *Handle) OnMedia(event *janus.MediaMsg) {
	<-h.ready
	statsEventsTotal.WithLabelValues("media").Inc()
	h.listener.OnMediaState(h, event.MediaType, event.Receiving)
}

func (h *Handle) OnSlowLink(event *janus.SlowLinkMsg) {
	<-h.ready
	statsEventsTotal.WithLabelValues("slowlink").Inc()
	h.listener.OnSlowLink(h, event.Uplink, event.Lost)
}

func (h *Handle) OnTrickle(event *janus.TrickleMsg) {
	<-h.ready
	statsEventsTotal.WithLabelValues("trickle").Inc()
	if p := h.currentPipeline(); p != nil {
		p.addRemoteCandidate(event.Candidate)
	}
}
