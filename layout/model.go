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
package layout

import (
	"fmt"
	"math/rand/v2"
	"slices"
)

// Stream is a media stream that can be shown in a tile.
type Stream interface {
	ID() string
}

type Mode int

const (
	ModeNormal Mode = iota
	ModeAdmin
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeAdmin:
		return "admin"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Tile is a rectangle showing the video of a single stream.
type Tile struct {
	Id    string `json:"id"`
	Index int    `json:"index"`

	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`

	Color string `json:"color"`

	Stream Stream `json:"-"`
}

func (t *Tile) swapGeometry(other *Tile) {
	t.X, other.X = other.X, t.X
	t.Y, other.Y = other.Y, t.Y
	t.Width, other.Width = other.Width, t.Width
	t.Height, other.Height = other.Height, t.Height
	t.Index, other.Index = other.Index, t.Index
}

func (t *Tile) contains(x int, y int) bool {
	return x >= t.X && x < t.X+t.Width && y >= t.Y && y < t.Y+t.Height
}

func randomColor() string {
	return fmt.Sprintf("#%dF%dF%dF", rand.IntN(10), rand.IntN(10), rand.IntN(10))
}

// Model keeps the tiles of a video room and their geometry.
//
// A Model is not safe for concurrent use.
type Model struct {
	space Space
	tiles []*Tile

	mode   Mode
	mainId string
	// Slot the main tile had before it was promoted.
	pinnedFrom int
}

func NewModel(space Space) *Model {
	return &Model{
		space: space,
	}
}

func (m *Model) Space() Space {
	return m.space
}

func (m *Model) Mode() Mode {
	return m.mode
}

func (m *Model) Len() int {
	return len(m.tiles)
}

func (m *Model) find(id string) (int, *Tile) {
	for idx, t := range m.tiles {
		if t.Id == id {
			return idx, t
		}
	}
	return -1, nil
}

func (m *Model) findIndex(index int) *Tile {
	for _, t := range m.tiles {
		if t.Index == index {
			return t
		}
	}
	return nil
}

// Tile returns a copy of the tile with the given id.
func (m *Model) Tile(id string) (Tile, bool) {
	if _, t := m.find(id); t != nil {
		return *t, true
	}
	return Tile{}, false
}

// TileAt returns a copy of the tile containing the given point.
func (m *Model) TileAt(x int, y int) (Tile, bool) {
	for _, t := range m.tiles {
		if t.contains(x, y) {
			return *t, true
		}
	}
	return Tile{}, false
}

// MainTile returns the pinned tile in admin mode.
func (m *Model) MainTile() (Tile, bool) {
	if m.mode != ModeAdmin {
		return Tile{}, false
	}
	return m.Tile(m.mainId)
}

// Tiles returns copies of all tiles ordered by their index.
func (m *Model) Tiles() []Tile {
	result := make([]Tile, 0, len(m.tiles))
	for _, t := range m.tiles {
		result = append(result, *t)
	}
	slices.SortStableFunc(result, func(a, b Tile) int {
		return a.Index - b.Index
	})
	return result
}

// AddTile appends a tile for the stream and returns its id. Adding a stream
// that already has a tile returns the existing id.
func (m *Model) AddTile(stream Stream) string {
	id := stream.ID()
	if _, t := m.find(id); t != nil {
		return t.Id
	}

	m.tiles = append(m.tiles, &Tile{
		Id:     id,
		Index:  len(m.tiles),
		Color:  randomColor(),
		Stream: stream,
	})
	m.relayout()
	return id
}

// RemoveTile removes the tile with the given id. Removing the main tile
// switches back to normal mode.
func (m *Model) RemoveTile(id string) bool {
	idx, t := m.find(id)
	if t == nil {
		return false
	}

	m.tiles = slices.Delete(m.tiles, idx, idx+1)
	if m.mode == ModeAdmin && m.mainId == id {
		m.mode = ModeNormal
		m.mainId = ""
	}
	m.relayout()
	return true
}

// Resize updates the space and recomputes all tiles in the current mode.
func (m *Model) Resize(space Space) {
	m.space = space
	m.relayout()
}

// Promote toggles the admin mode for the tile with the given id:
//   - in normal mode the tile becomes the main tile,
//   - promoting the main tile again returns to normal mode,
//   - promoting another tile in admin mode swaps it with the main tile.
func (m *Model) Promote(id string) bool {
	_, t := m.find(id)
	if t == nil {
		return false
	}

	switch {
	case m.mode == ModeNormal:
		if len(m.tiles) < 2 {
			return false
		}

		m.sortTiles()
		m.pinnedFrom = slices.Index(m.tiles, t)
		m.mode = ModeAdmin
		m.mainId = id
		m.relayoutAdmin()
	case m.mainId == id:
		m.demote()
	default:
		_, main := m.find(m.mainId)
		t.swapGeometry(main)
		m.mainId = id
	}
	return true
}

// ToggleAdmin is an alias of Promote.
func (m *Model) ToggleAdmin(id string) bool {
	return m.Promote(id)
}

func (m *Model) demote() {
	m.sortTiles()
	idx, main := m.find(m.mainId)
	m.tiles = slices.Delete(m.tiles, idx, idx+1)
	pos := min(max(m.pinnedFrom, 0), len(m.tiles))
	m.tiles = slices.Insert(m.tiles, pos, main)
	for idx, t := range m.tiles {
		t.Index = idx
	}

	m.mode = ModeNormal
	m.mainId = ""
	m.relayoutNormal()
}

// SwapByIndex exchanges the position, size and index of the two tiles with
// the given indices.
func (m *Model) SwapByIndex(index1 int, index2 int) bool {
	if index1 == index2 {
		return false
	}

	t1 := m.findIndex(index1)
	t2 := m.findIndex(index2)
	if t1 == nil || t2 == nil {
		return false
	}

	t1.swapGeometry(t2)
	if m.mode == ModeAdmin {
		switch m.mainId {
		case t1.Id:
			m.mainId = t2.Id
		case t2.Id:
			m.mainId = t1.Id
		}
	}
	return true
}

func (m *Model) sortTiles() {
	slices.SortStableFunc(m.tiles, func(a, b *Tile) int {
		return a.Index - b.Index
	})
}

func (m *Model) relayout() {
	if m.mode == ModeAdmin && len(m.tiles) >= 2 {
		m.relayoutAdmin()
		return
	}

	m.mode = ModeNormal
	m.mainId = ""
	m.relayoutNormal()
}

func (m *Model) relayoutNormal() {
	if len(m.tiles) == 0 {
		return
	}

	m.sortTiles()
	result := ComputeLayout(m.space, len(m.tiles))
	for pos, t := range m.tiles {
		t.Index = pos
		t.Width = result.TileWidth
		t.Height = result.TileHeight
		t.X, t.Y = result.Position(pos)
	}
}

func (m *Model) relayoutAdmin() {
	m.sortTiles()

	mainSpace := m.space
	mainSpace.Width = int(float64(m.space.Width) * m.space.MainAreaFraction)
	main := ComputeLayout(mainSpace, 1)

	otherSpace := m.space
	otherSpace.Width = m.space.Width - mainSpace.Width
	others := ComputeLayout(otherSpace, len(m.tiles)-1)
	offset := main.TileWidth + 2*main.MarginLeft

	pos := 0
	for _, t := range m.tiles {
		if t.Id == m.mainId {
			t.Index = 0
			t.Width = main.TileWidth
			t.Height = main.TileHeight
			t.X, t.Y = main.Position(0)
			continue
		}

		t.Index = pos + 1
		t.Width = others.TileWidth
		t.Height = others.TileHeight
		t.X, t.Y = others.Position(pos)
		t.X += offset
		pos++
	}
}
