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
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/strukturag/janus-videoroom/janus"
	"github.com/strukturag/janus-videoroom/log"
)

type SessionState int

const (
	SessionDisconnected SessionState = iota
	SessionConnecting
	SessionConnected
	SessionDestroyed
)

func (s SessionState) String() string {
	switch s {
	case SessionDisconnected:
		return "disconnected"
	case SessionConnecting:
		return "connecting"
	case SessionConnected:
		return "connected"
	case SessionDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

type SessionListener interface {
	// OnConnected is called once the gateway created the session.
	OnConnected(session *Session, id uint64)
	// OnFatal is called if the session could not be created or was lost. The
	// application must create a new session to continue.
	OnFatal(session *Session, err error)
}

// Session is a session on one of the configured gateways and owns the plugin
// handles attached in it.
type Session struct {
	logger   log.Logger
	settings *Settings
	engine   MediaEngine
	listener SessionListener

	nextConnection atomic.Uint64
	keepaliveWg    sync.WaitGroup
	// Only used while connecting, Connect doesn't run concurrently.
	retry *retryBackoff

	mu sync.Mutex
	// +checklocks:mu
	state SessionState
	// +checklocks:mu
	connection uint64
	// +checklocks:mu
	server string
	// +checklocks:mu
	gateway *janus.Gateway
	// +checklocks:mu
	session *janus.Session
	// +checklocks:mu
	handles map[uint64]*Handle
	// +checklocks:mu
	closeChan chan struct{}
}

func NewSession(ctx context.Context, settings *Settings, engine MediaEngine, listener SessionListener) *Session {
	return &Session{
		logger:   log.LoggerFromContext(ctx),
		settings: settings,
		engine:   engine,
		listener: listener,

		retry: newRetryBackoff(settings.Janus.RetryDelay, settings.Janus.MaxRetryDelay),

		handles: make(map[uint64]*Handle),
	}
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Id returns the id assigned by the gateway or 0 if not connected.
func (s *Session) Id() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return 0
	}
	return s.session.Id()
}

// Server returns the url of the gateway the session was created on.
func (s *Session) Server() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.server
}

func (s *Session) Settings() *Settings {
	return s.settings
}

func (s *Session) Handles() []*Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]*Handle, 0, len(s.handles))
	for _, h := range s.handles {
		result = append(result, h)
	}
	return result
}

func (s *Session) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if timeout := s.settings.Janus.Timeout; timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

type gatewayListener struct {
	session *Session
	id      uint64
}

func (l *gatewayListener) ConnectionInterrupted(err error) {
	if !errors.Is(err, janus.ErrTransportUnavailable) {
		err = fmt.Errorf("%w: %w", janus.ErrTransportUnavailable, err)
	}
	l.session.fail(l.id, err)
}

func (l *gatewayListener) SessionTimeout(session *janus.Session) {
	l.session.fail(l.id, ErrSessionTimeout)
}

// Connect creates the session on the first reachable gateway. Servers that
// can't be reached are skipped after the configured retry delay, errors
// returned by a gateway are final.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case SessionDestroyed:
		s.mu.Unlock()
		return ErrSessionDestroyed
	case SessionConnecting, SessionConnected:
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	s.state = SessionConnecting
	s.mu.Unlock()

	server, listener, gateway, session, err := s.createSession(ctx)
	if err != nil {
		s.mu.Lock()
		if s.state == SessionConnecting {
			s.state = SessionDisconnected
		}
		s.mu.Unlock()
		s.listener.OnFatal(s, err)
		return err
	}

	s.mu.Lock()
	if s.state != SessionConnecting {
		s.mu.Unlock()
		s.logger.Printf("Session was destroyed while connecting to %s", server)
		s.closeGateway(ctx, gateway, session)
		return ErrSessionDestroyed
	}

	s.state = SessionConnected
	s.connection = listener.id
	s.server = server
	s.gateway = gateway
	s.session = session
	closeChan := make(chan struct{})
	s.closeChan = closeChan
	if gateway.NeedsKeepalive() {
		s.keepaliveWg.Add(1)
		go s.runKeepalive(listener.id, session, closeChan)
	}
	s.mu.Unlock()

	statsSessionsCurrent.Inc()
	s.logger.Printf("Created session %d on %s", session.Id(), server)
	s.listener.OnConnected(s, session.Id())
	return nil
}

func (s *Session) createSession(ctx context.Context) (string, *gatewayListener, *janus.Gateway, *janus.Session, error) {
	servers := s.settings.Janus.Servers
	if len(servers) == 0 {
		return "", nil, nil, nil, ErrNoServers
	}

	rounds := max(s.settings.Janus.RetryRounds, 1)
	s.retry.Reset()
	var lastErr error
	for round := range rounds {
		for idx, server := range servers {
			if round > 0 || idx > 0 {
				if err := s.retry.Wait(ctx); err != nil {
					return "", nil, nil, nil, err
				}
			}
			if s.State() == SessionDestroyed {
				return "", nil, nil, nil, ErrSessionDestroyed
			}

			listener := &gatewayListener{
				session: s,
				id:      s.nextConnection.Add(1),
			}
			gateway, session, err := s.createSessionOn(ctx, server, listener)
			if err == nil {
				statsSessionCreateTotal.WithLabelValues("success").Inc()
				return server, listener, gateway, session, nil
			}

			if !errors.Is(err, janus.ErrTransportUnavailable) {
				statsSessionCreateTotal.WithLabelValues("error").Inc()
				s.logger.Printf("Could not create session on %s: %s", server, err)
				return "", nil, nil, nil, err
			}

			statsSessionCreateTotal.WithLabelValues("unavailable").Inc()
			s.logger.Printf("Server %s is not available (%d/%d, round %d/%d): %s", server, idx+1, len(servers), round+1, rounds, err)
			lastErr = err
		}
	}

	return "", nil, nil, nil, lastErr
}

func (s *Session) createSessionOn(ctx context.Context, server string, listener *gatewayListener) (*janus.Gateway, *janus.Session, error) {
	gateway, err := janus.NewGateway(ctx, server, s.settings.Janus, listener)
	if err != nil {
		return nil, nil, err
	}

	reqCtx, cancel := s.requestContext(ctx)
	defer cancel()

	session, err := gateway.Create(reqCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", janus.ErrTransportUnavailable, err)
		}
		if closeErr := gateway.Close(); closeErr != nil {
			s.logger.Printf("Error closing connection to %s: %s", server, closeErr)
		}
		return nil, nil, err
	}

	return gateway, session, nil
}

func (s *Session) closeGateway(ctx context.Context, gateway *janus.Gateway, session *janus.Session) error {
	var err error
	if session != nil {
		reqCtx, cancel := s.requestContext(context.WithoutCancel(ctx))
		defer cancel()

		if err = session.Destroy(reqCtx); err != nil {
			s.logger.Printf("Could not destroy session %d: %s", session.Id(), err)
		}
	}
	if closeErr := gateway.Close(); closeErr != nil {
		s.logger.Printf("Error closing connection to gateway: %s", closeErr)
	}
	return err
}

func (s *Session) runKeepalive(connection uint64, session *janus.Session, closeChan <-chan struct{}) {
	defer s.keepaliveWg.Done()

	ticker := time.NewTicker(s.settings.Janus.KeepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.sendKeepalive(session); janus.IsErrorCode(err, janus.JANUS_ERROR_SESSION_NOT_FOUND) {
				s.fail(connection, err)
				return
			}
		case <-closeChan:
			return
		}
	}
}

func (s *Session) sendKeepalive(session *janus.Session) error {
	ctx, cancel := s.requestContext(context.Background())
	defer cancel()

	if err := session.KeepAlive(ctx); err != nil {
		statsKeepalivesTotal.WithLabelValues("error").Inc()
		s.logger.Printf("Could not send keepalive request for session %d: %s", session.Id(), err)
		return err
	}

	statsKeepalivesTotal.WithLabelValues("success").Inc()
	return nil
}

// +checklocks:s.mu
func (s *Session) takeHandlesLocked() []*Handle {
	handles := make([]*Handle, 0, len(s.handles))
	for _, h := range s.handles {
		handles = append(handles, h)
	}
	clear(s.handles)
	statsHandlesCurrent.Sub(float64(len(handles)))
	return handles
}

func (s *Session) fail(connection uint64, err error) {
	s.mu.Lock()
	if s.state != SessionConnected || s.connection != connection {
		s.mu.Unlock()
		return
	}

	s.state = SessionDestroyed
	handles := s.takeHandlesLocked()
	gateway := s.gateway
	id := s.session.Id()
	s.gateway = nil
	s.session = nil
	close(s.closeChan)
	s.mu.Unlock()

	statsSessionsCurrent.Dec()
	s.logger.Printf("Session %d failed: %s", id, err)
	for _, h := range handles {
		h.destroy()
	}
	if closeErr := gateway.Close(); closeErr != nil {
		s.logger.Printf("Error closing connection to gateway: %s", closeErr)
	}
	s.listener.OnFatal(s, err)
}

// Attach attaches a new handle to the plugin. The opaque id is passed to the
// gateway if not empty.
func (s *Session) Attach(ctx context.Context, plugin string, opaqueId string, listener HandleListener) (*Handle, error) {
	s.mu.Lock()
	if s.state != SessionConnected {
		s.mu.Unlock()
		return nil, ErrNotConnected
	}
	session := s.session
	s.mu.Unlock()

	h := newHandle(s, plugin, listener)
	reqCtx, cancel := s.requestContext(ctx)
	defer cancel()

	jh, err := session.Attach(reqCtx, plugin, opaqueId, h)
	if err != nil {
		h.attachFailed()
		return nil, err
	}

	s.mu.Lock()
	if s.state != SessionConnected || s.session != session {
		s.mu.Unlock()
		h.attachFailed()
		if err := jh.Detach(reqCtx); err != nil {
			s.logger.Printf("Could not detach handle %d of closed session %d: %s", jh.Id(), session.Id(), err)
		}
		return nil, ErrNotConnected
	}
	h.attached(jh)
	s.handles[h.id] = h
	s.mu.Unlock()

	statsHandlesCurrent.Inc()
	s.logger.Printf("Attached handle %d to %s in session %d", h.id, plugin, session.Id())
	return h, nil
}

func (s *Session) removeHandle(h *Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, found := s.handles[h.id]; found && existing == h {
		delete(s.handles, h.id)
		statsHandlesCurrent.Dec()
	}
}

// Destroy tears down all handles and destroys the session on the gateway.
// The session is destroyed locally even if the gateway can't be reached, the
// error of the destroy request is returned in that case.
func (s *Session) Destroy(ctx context.Context) error {
	s.mu.Lock()
	if s.state == SessionDestroyed {
		s.mu.Unlock()
		return nil
	}

	connected := s.state == SessionConnected
	s.state = SessionDestroyed
	handles := s.takeHandlesLocked()
	gateway := s.gateway
	session := s.session
	s.gateway = nil
	s.session = nil
	if s.closeChan != nil {
		close(s.closeChan)
	}
	s.mu.Unlock()

	if !connected {
		return nil
	}

	statsSessionsCurrent.Dec()
	for _, h := range handles {
		h.destroy()
	}

	err := s.closeGateway(ctx, gateway, session)
	s.keepaliveWg.Wait()
	s.logger.Printf("Destroyed session %d", session.Id())
	return err
}
