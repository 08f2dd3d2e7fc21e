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
	"sync"

	"github.com/strukturag/janus-videoroom/layout"
	"github.com/strukturag/janus-videoroom/log"
	"github.com/strukturag/janus-videoroom/rtc"
)

// Room keeps the layout of the streams of a room connection. All methods are
// safe for concurrent use.
type Room struct {
	logger log.Logger
	conn   *Connection

	mu sync.Mutex
	// +checklocks:mu
	model *layout.Model
	// +checklocks:mu
	local string
	// +checklocks:mu
	lastErr error
}

func NewRoom(ctx context.Context, settings *Settings, session *rtc.Session, space layout.Space) *Room {
	r := &Room{
		logger: log.LoggerFromContext(ctx),
		model:  layout.NewModel(space),
	}
	r.conn = NewConnection(ctx, settings, session, r)
	return r
}

func (r *Room) Connection() *Connection {
	return r.conn
}

func (r *Room) Join(ctx context.Context) error {
	return r.conn.Join(ctx)
}

func (r *Room) Leave(ctx context.Context) error {
	return r.conn.Leave(ctx)
}

// LastError returns the last negotiation error of the connection.
func (r *Room) LastError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// LocalTile returns the id of the tile showing the local stream.
func (r *Room) LocalTile() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.local
}

func (r *Room) StreamAdded(conn *Connection, stream Stream, local bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.model.AddTile(stream)
	if local {
		r.local = id
	}
	r.logger.Printf("Added tile %s, showing %d streams", id, r.model.Len())
}

func (r *Room) StreamRemoved(conn *Connection, stream Stream) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.model.RemoveTile(stream.ID()) {
		return
	}
	if r.local == stream.ID() {
		r.local = ""
	}
	r.logger.Printf("Removed tile %s, showing %d streams", stream.ID(), r.model.Len())
}

func (r *Room) ConnectionError(conn *Connection, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastErr = err
}

// Layout returns the tiles ordered by their index.
func (r *Room) Layout() []layout.Tile {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.model.Tiles()
}

func (r *Room) Mode() layout.Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.model.Mode()
}

func (r *Room) Space() layout.Space {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.model.Space()
}

func (r *Room) Promote(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.model.Promote(id)
}

func (r *Room) Swap(index1 int, index2 int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.model.SwapByIndex(index1, index2)
}

// Move drags the tile with the given id and drops it at the position.
func (r *Room) Move(id string, x int, y int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	drag := r.model.BeginDrag(id)
	if !drag.Active() {
		return false
	}
	return drag.Drop(x, y)
}

func (r *Room) Resize(space layout.Space) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.model.Resize(space)
}
