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
package room

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/strukturag/janus-videoroom/janus"
	"github.com/strukturag/janus-videoroom/log"
	"github.com/strukturag/janus-videoroom/rtc"
)

const (
	StatusJoined  = "joined"
	StatusPlaying = "playing"
	StatusStopped = "stopped"
)

var (
	ErrAlreadyJoined = errors.New("already joined")
	ErrNotJoined     = errors.New("not joined")
	ErrNoOffer       = errors.New("joined without offer")
)

// Stream is a local or remote media stream of the room.
type Stream interface {
	ID() string
}

// ConnectionListener receives the streams of a room connection.
type ConnectionListener interface {
	StreamAdded(conn *Connection, stream Stream, local bool)
	StreamRemoved(conn *Connection, stream Stream)
	// ConnectionError is called if the media of the room could not be
	// negotiated. The connection stays joined.
	ConnectionError(conn *Connection, err error)
}

// Connection joins a single room through a plugin handle and reports the
// streams that become available.
type Connection struct {
	logger   log.Logger
	settings *Settings
	session  *rtc.Session
	listener ConnectionListener

	ctx context.Context
	wg  sync.WaitGroup

	mu sync.Mutex
	// +checklocks:mu
	handle *rtc.Handle
	// +checklocks:mu
	joinCtx context.Context
	// +checklocks:mu
	cancel context.CancelFunc
	// +checklocks:mu
	status string
	// +checklocks:mu
	streams map[string]Stream
}

func NewConnection(ctx context.Context, settings *Settings, session *rtc.Session, listener ConnectionListener) *Connection {
	return &Connection{
		logger:   log.LoggerFromContext(ctx),
		settings: settings,
		session:  session,
		listener: listener,

		ctx: context.WithoutCancel(ctx),

		streams: make(map[string]Stream),
	}
}

func (c *Connection) Settings() *Settings {
	return c.settings
}

// Status returns the last status reported by the plugin.
func (c *Connection) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Connection) Handle() *rtc.Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle
}

// Streams returns the streams that are currently available.
func (c *Connection) Streams() []Stream {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]Stream, 0, len(c.streams))
	for _, s := range c.streams {
		result = append(result, s)
	}
	return result
}

// Join connects the session if necessary, attaches to the plugin and sends
// the join request. The media is negotiated once the plugin confirms the
// join with an offer.
func (c *Connection) Join(ctx context.Context) error {
	c.mu.Lock()
	if c.handle != nil {
		c.mu.Unlock()
		return ErrAlreadyJoined
	}
	c.mu.Unlock()

	if c.session.State() == rtc.SessionDisconnected {
		if err := c.session.Connect(ctx); err != nil {
			return err
		}
	}

	opaqueId := c.settings.OpaqueIdPrefix + uuid.NewString()
	handle, err := c.session.Attach(ctx, c.settings.Plugin, opaqueId, c)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.handle != nil {
		c.mu.Unlock()
		handle.Detach(ctx) // nolint
		return ErrAlreadyJoined
	}
	c.handle = handle
	c.joinCtx, c.cancel = context.WithCancel(c.ctx)
	c.mu.Unlock()

	if _, err := handle.Send(ctx, janus.StringMap{
		"request": "join",
		"sid":     c.settings.Id,
		"uid":     c.settings.User,
		"pwd":     c.settings.Password,
	}, nil); err != nil {
		c.mu.Lock()
		c.handle = nil
		c.cancel()
		c.mu.Unlock()
		if detachErr := handle.Detach(ctx); detachErr != nil {
			c.logger.Printf("Could not detach handle %d: %s", handle.Id(), detachErr)
		}
		return err
	}

	c.logger.Printf("Joining room %s as %s with handle %d", c.settings.Id, c.settings.User, handle.Id())
	return nil
}

// Leave detaches the handle of the room. Running negotiations are stopped.
func (c *Connection) Leave(ctx context.Context) error {
	c.mu.Lock()
	handle := c.handle
	c.handle = nil
	c.status = ""
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()

	c.wg.Wait()
	if handle == nil {
		return ErrNotJoined
	}

	err := handle.Detach(ctx)
	if errors.Is(err, rtc.ErrInvalidHandle) {
		err = nil
	}
	return err
}

func (c *Connection) isCurrent(handle *rtc.Handle) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle == handle
}

func (c *Connection) answer(ctx context.Context, handle *rtc.Handle, data janus.StringMap, offer *rtc.SessionDescription) {
	defer c.wg.Done()

	assrc, _ := data.GetUint64("assrc")
	vssrc, _ := data.GetUint64("vssrc")
	_, err := handle.Negotiate(ctx, rtc.NegotiateOptions{
		Media:      &rtc.MediaOptions{Audio: true, Video: true},
		RemoteJSEP: offer,
		Body: janus.StringMap{
			"request": "record",
			"name":    c.settings.User,
		},
		Mangler: &rtc.SSRCRewriter{
			AudioSSRC:      uint32(assrc),
			VideoSSRC:      uint32(vssrc),
			VideoBandwidth: c.session.Settings().VideoBandwidth,
		},
	})
	if err == nil || !c.isCurrent(handle) {
		return
	}

	c.logger.Printf("Could not answer offer of room %s: %s", c.settings.Id, err)
	if err := handle.Hangup(ctx); err != nil && !errors.Is(err, rtc.ErrInvalidHandle) {
		c.logger.Printf("Could not hangup handle %d: %s", handle.Id(), err)
	}
	c.listener.ConnectionError(c, err)
}

func (c *Connection) OnMessage(handle *rtc.Handle, data janus.StringMap, jsep *rtc.SessionDescription) {
	result, _ := data.GetStringMap("result")
	status, _ := result.GetString("status")
	if status == "" {
		c.logger.Printf("Received message without status in room %s: %+v", c.settings.Id, data)
		return
	}

	c.mu.Lock()
	if c.handle != handle {
		c.mu.Unlock()
		return
	}
	c.status = status
	ctx := c.joinCtx
	if status == StatusJoined && jsep != nil && jsep.Type == "offer" {
		c.wg.Add(1)
	}
	c.mu.Unlock()

	switch status {
	case StatusJoined:
		if jsep == nil || jsep.Type != "offer" {
			c.logger.Printf("Joined room %s without offer", c.settings.Id)
			c.listener.ConnectionError(c, ErrNoOffer)
			return
		}

		c.logger.Printf("Joined room %s, answering offer", c.settings.Id)
		go c.answer(ctx, handle, data, jsep)
	case StatusPlaying:
		c.logger.Printf("Playout of room %s has started", c.settings.Id)
	case StatusStopped:
		c.logger.Printf("Playout of room %s has stopped", c.settings.Id)
	default:
		c.logger.Printf("Unknown status %s in room %s", status, c.settings.Id)
	}
}

func (c *Connection) addStream(stream Stream, local bool) {
	c.mu.Lock()
	if _, found := c.streams[stream.ID()]; found {
		c.mu.Unlock()
		return
	}
	c.streams[stream.ID()] = stream
	c.mu.Unlock()

	c.listener.StreamAdded(c, stream, local)
}

func (c *Connection) removeStream(stream Stream) {
	c.mu.Lock()
	if _, found := c.streams[stream.ID()]; !found {
		c.mu.Unlock()
		return
	}
	delete(c.streams, stream.ID())
	c.mu.Unlock()

	c.listener.StreamRemoved(c, stream)
}

func (c *Connection) OnLocalStream(handle *rtc.Handle, stream rtc.LocalStream) {
	c.addStream(stream, true)
}

func (c *Connection) OnRemoteStream(handle *rtc.Handle, stream rtc.RemoteStream) {
	c.addStream(stream, false)
}

func (c *Connection) OnWebRTCState(handle *rtc.Handle, up bool, reason string) {
	if up {
		c.logger.Printf("Media of room %s is up", c.settings.Id)
	} else {
		c.logger.Printf("Media of room %s is down: %s", c.settings.Id, reason)
	}
}

func (c *Connection) OnMediaState(handle *rtc.Handle, media string, receiving bool) {
	c.logger.Printf("Receiving %s in room %s: %t", media, c.settings.Id, receiving)
}

func (c *Connection) OnSlowLink(handle *rtc.Handle, uplink bool, lost uint64) {
	c.logger.Printf("Slow link in room %s (uplink %t), %d packets lost", c.settings.Id, uplink, lost)
}

func (c *Connection) OnCleanup(handle *rtc.Handle, local rtc.LocalStream, remote []rtc.RemoteStream) {
	if local != nil {
		c.removeStream(local)
	}
	for _, stream := range remote {
		c.removeStream(stream)
	}
}

func (c *Connection) OnDetached(handle *rtc.Handle) {
	c.mu.Lock()
	if c.handle == handle {
		c.handle = nil
		c.status = ""
		c.cancel()
	}
	c.mu.Unlock()

	c.logger.Printf("Handle %d of room %s was detached", handle.Id(), c.settings.Id)
}
