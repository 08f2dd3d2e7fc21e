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
	"sync"

	"github.com/strukturag/janus-videoroom/janus"
	"github.com/strukturag/janus-videoroom/log"
)

// pipeline is the media state of a single offer / answer exchange.
type pipeline struct {
	logger   log.Logger
	handle   *Handle
	settings *Settings
	trickle  bool

	pc            PeerConnection
	local         LocalStream
	localExternal bool

	ctx      context.Context
	cancel   context.CancelFunc
	gathered chan struct{}
	wakeup   chan struct{}

	mu sync.Mutex
	// +checklocks:mu
	remote []RemoteStream
	// +checklocks:mu
	iceDone bool
	// +checklocks:mu
	queue []*ICECandidate
	// +checklocks:mu
	closed bool
}

func newPipeline(h *Handle, cfg *negotiateConfig, local LocalStream, localExternal bool) (*pipeline, error) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &pipeline{
		logger:   h.logger,
		handle:   h,
		settings: h.session.settings,
		trickle:  cfg.trickle,

		local:         local,
		localExternal: localExternal,

		ctx:      ctx,
		cancel:   cancel,
		gathered: make(chan struct{}),
		wakeup:   make(chan struct{}, 1),
	}

	pc, err := h.session.engine.NewPeerConnection(PeerConnectionConfig{
		ICEServers: p.settings.ICEServers,
		IPv6:       p.settings.IPv6,
		Receive:    cfg.receive,
	}, p)
	if err != nil {
		cancel()
		return nil, err
	}

	p.pc = pc
	return p, nil
}

func (p *pipeline) OnICECandidate(candidate *ICECandidate) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.iceDone {
		return
	}

	if candidate == nil {
		p.iceDone = true
		close(p.gathered)
		if p.trickle {
			p.queue = append(p.queue, nil)
			p.notify()
		}
		return
	}

	if !p.trickle {
		return
	}

	if skipCandidate(candidate, p.settings.IPv6) {
		statsTrickleCandidatesTotal.WithLabelValues("filtered").Inc()
		return
	}

	p.queue = append(p.queue, candidate)
	p.notify()
}

func (p *pipeline) OnRemoteStream(stream RemoteStream) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.remote = append(p.remote, stream)
	p.mu.Unlock()

	p.handle.listener.OnRemoteStream(p.handle, stream)
}

func (p *pipeline) notify() {
	select {
	case p.wakeup <- struct{}{}:
	default:
	}
}

// waitGathered blocks until candidate gathering has completed.
func (p *pipeline) waitGathered(ctx context.Context) error {
	select {
	case <-p.gathered:
		return nil
	case <-p.ctx.Done():
		return ErrInvalidHandle
	case <-ctx.Done():
		return ctx.Err()
	}
}

// startTrickle sends the local candidates to the gateway in the order they
// were gathered, followed by the "completed" marker.
func (p *pipeline) startTrickle(handle *janus.Handle) {
	if !p.trickle {
		return
	}

	go p.runTrickle(handle)
	p.notify()
}

func (p *pipeline) runTrickle(handle *janus.Handle) {
	for {
		select {
		case <-p.wakeup:
		case <-p.ctx.Done():
			return
		}

		for {
			p.mu.Lock()
			if p.closed || len(p.queue) == 0 {
				p.mu.Unlock()
				break
			}
			candidate := p.queue[0]
			p.queue = p.queue[1:]
			p.mu.Unlock()

			if !p.sendCandidate(handle, candidate) {
				return
			}
		}
	}
}

func (p *pipeline) sendCandidate(handle *janus.Handle, candidate *ICECandidate) bool {
	ctx, cancel := p.handle.session.requestContext(p.ctx)
	defer cancel()

	if candidate == nil {
		if err := handle.TrickleCompleted(ctx); err != nil {
			p.logger.Printf("Could not send end of candidates for handle %d: %s", handle.Id(), err)
		}
		return false
	}

	if err := handle.Trickle(ctx, candidate.trickle()); err != nil {
		statsTrickleCandidatesTotal.WithLabelValues("error").Inc()
		p.logger.Printf("Could not send candidate for handle %d: %s", handle.Id(), err)
		return p.ctx.Err() == nil
	}

	statsTrickleCandidatesTotal.WithLabelValues("sent").Inc()
	return true
}

func (p *pipeline) addRemoteCandidate(candidate janus.TrickleCandidate) {
	if candidate.Completed || candidate.Candidate == "" {
		return
	}

	if err := p.pc.AddICECandidate(ICECandidate{
		Candidate:     candidate.Candidate,
		SdpMid:        candidate.SdpMid,
		SdpMLineIndex: candidate.SdpMLineIndex,
	}); err != nil {
		p.logger.Printf("Could not add remote candidate %s: %s", candidate.Candidate, err)
	}
}

// close releases the media resources. Locally captured streams are stopped,
// streams supplied by the caller are left running.
func (p *pipeline) close() (LocalStream, []RemoteStream) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, nil
	}
	p.closed = true
	remote := p.remote
	p.remote = nil
	p.queue = nil
	p.mu.Unlock()

	p.cancel()
	if p.local != nil && !p.localExternal {
		p.local.Stop()
	}
	if err := p.pc.Close(); err != nil {
		p.logger.Printf("Error closing peer connection: %s", err)
	}
	return p.local, remote
}
