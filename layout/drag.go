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

// Drag keeps the state of a drag-and-drop gesture that reorders tiles.
//
// The dragged tile is remembered by its id, so the gesture ends silently if
// the tile is removed while it is being dragged.
type Drag struct {
	model  *Model
	tileId string
}

// BeginDrag starts dragging the tile with the given id.
func (m *Model) BeginDrag(id string) *Drag {
	if _, t := m.find(id); t == nil {
		return &Drag{model: m}
	}

	return &Drag{
		model:  m,
		tileId: id,
	}
}

// Active returns true if the dragged tile still exists.
func (d *Drag) Active() bool {
	if d.tileId == "" {
		return false
	}

	if _, t := d.model.find(d.tileId); t == nil {
		d.tileId = ""
		return false
	}
	return true
}

// TileId returns the id of the dragged tile.
func (d *Drag) TileId() string {
	return d.tileId
}

// Drop ends the gesture at the given point. If another tile is found there,
// the dragged tile and the target switch places.
func (d *Drag) Drop(x int, y int) bool {
	if !d.Active() {
		return false
	}

	defer d.Cancel()
	_, source := d.model.find(d.tileId)
	target, found := d.model.TileAt(x, y)
	if !found || target.Id == source.Id {
		return false
	}

	return d.model.SwapByIndex(source.Index, target.Index)
}

// Cancel ends the gesture without changing any tile.
func (d *Drag) Cancel() {
	d.tileId = ""
}
