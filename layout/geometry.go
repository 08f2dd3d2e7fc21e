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
	"math"
)

// Space describes the area tiles are arranged in. All sizes are in pixels.
type Space struct {
	Width       int
	Height      int
	MarginOuter int
	MarginInner int

	// AspectRatio is width / height of a single tile.
	AspectRatio float64
	// MainAreaFraction is the share of the width reserved for the main tile
	// in admin mode.
	MainAreaFraction float64
}

// Result is the grid computed for a number of tiles.
type Result struct {
	TileWidth  int
	TileHeight int
	MarginLeft int
	MarginTop  int

	// Columns is the number of tiles in a row.
	Columns int
	// Rows is the number of rows.
	Rows int

	// MarginInner is the spacing between two tiles.
	MarginInner int
}

func (r Result) IsEmpty() bool {
	return r.TileWidth <= 0 || r.TileHeight <= 0
}

// Position returns the top left corner of the tile at the given position.
func (r Result) Position(pos int) (x int, y int) {
	if r.Columns <= 0 {
		return r.MarginLeft, r.MarginTop
	}

	row := pos / r.Columns
	col := pos % r.Columns
	return r.MarginLeft + col*(r.TileWidth+r.MarginInner), r.MarginTop + row*(r.TileHeight+r.MarginInner)
}

// ComputeLayout returns the grid with the largest tiles that shows count
// tiles inside the space without overflowing it. Ties are resolved in favor
// of fewer rows.
func ComputeLayout(space Space, count int) Result {
	if count <= 0 || space.AspectRatio <= 0 || math.IsInf(space.AspectRatio, 0) || math.IsNaN(space.AspectRatio) {
		return Result{}
	}

	width := float64(max(space.Width, 0))
	height := float64(max(space.Height, 0))
	outer := float64(max(space.MarginOuter, 0))
	inner := float64(max(space.MarginInner, 0))
	availWidth := width - 2*outer
	availHeight := height - 2*outer

	var best Result
	bestArea := 0
	for rows := 1; rows <= count; rows++ {
		columns := (count + rows - 1) / rows

		tileHeight := (availHeight - inner*float64(rows-1)) / float64(rows)
		tileWidth := tileHeight * space.AspectRatio
		if rowWidth := tileWidth*float64(columns) + inner*float64(columns-1); rowWidth > availWidth {
			tileWidth = (availWidth - inner*float64(columns-1)) / float64(columns)
			tileHeight = tileWidth / space.AspectRatio
		}

		w := int(math.Floor(tileWidth))
		h := int(math.Floor(tileHeight))
		if w <= 0 || h <= 0 {
			continue
		}

		if area := w * h; area > bestArea {
			bestArea = area
			gridWidth := w*columns + int(inner)*(columns-1)
			gridHeight := h*rows + int(inner)*(rows-1)
			best = Result{
				TileWidth:  w,
				TileHeight: h,
				MarginLeft: (int(width) - gridWidth) / 2,
				MarginTop:  (int(height) - gridHeight) / 2,
				Columns:    columns,
				Rows:       rows,

				MarginInner: int(inner),
			}
		}
	}

	return best
}
