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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeLayoutEmpty(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	space := DefaultSpace(1280, 720)
	assert.Equal(Result{}, ComputeLayout(space, 0))
	assert.Equal(Result{}, ComputeLayout(space, -1))
	assert.True(ComputeLayout(space, 0).IsEmpty())

	space.AspectRatio = 0
	assert.Equal(Result{}, ComputeLayout(space, 4))

	// Too small to show anything.
	assert.Equal(Result{}, ComputeLayout(DefaultSpace(60, 60), 1))
	assert.Equal(Result{}, ComputeLayout(DefaultSpace(0, 0), 3))
}

func TestComputeLayoutSingle(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	result := ComputeLayout(DefaultSpace(1280, 720), 1)
	assert.Equal(Result{
		TileWidth:   853,
		TileHeight:  640,
		MarginLeft:  213,
		MarginTop:   40,
		Columns:     1,
		Rows:        1,
		MarginInner: 10,
	}, result)
}

func TestComputeLayoutTwo(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	result := ComputeLayout(DefaultSpace(1280, 720), 2)
	assert.Equal(595, result.TileWidth)
	assert.Equal(446, result.TileHeight)
	assert.Equal(2, result.Columns)
	assert.Equal(1, result.Rows)
	assert.Equal(40, result.MarginLeft)
	assert.Equal(137, result.MarginTop)

	x, y := result.Position(1)
	assert.Equal(40+595+10, x)
	assert.Equal(137, y)
}

func TestComputeLayoutFits(t *testing.T) {
	t.Parallel()

	spaces := []Space{
		DefaultSpace(1280, 720),
		DefaultSpace(720, 1280),
		DefaultSpace(1920, 1080),
		DefaultSpace(320, 240),
		{Width: 1000, Height: 1000, AspectRatio: 1},
		{Width: 800, Height: 300, MarginOuter: 5, MarginInner: 3, AspectRatio: 16.0 / 9},
	}
	for _, space := range spaces {
		for count := 1; count <= 64; count++ {
			t.Run(fmt.Sprintf("%dx%d-%d", space.Width, space.Height, count), func(t *testing.T) {
				assert := assert.New(t)
				result := ComputeLayout(space, count)
				if !assert.False(result.IsEmpty()) {
					return
				}

				assert.Positive(result.TileWidth)
				assert.Positive(result.TileHeight)
				assert.GreaterOrEqual(result.Columns*result.Rows, count)
				assert.Less((result.Rows-1)*result.Columns, count, "no empty rows expected")

				gridWidth := result.Columns*result.TileWidth + (result.Columns-1)*space.MarginInner
				gridHeight := result.Rows*result.TileHeight + (result.Rows-1)*space.MarginInner
				assert.LessOrEqual(gridWidth+2*space.MarginOuter, space.Width)
				assert.LessOrEqual(gridHeight+2*space.MarginOuter, space.Height)
				assert.GreaterOrEqual(result.MarginLeft, space.MarginOuter)
				assert.GreaterOrEqual(result.MarginTop, space.MarginOuter)
				assert.LessOrEqual(result.MarginLeft+gridWidth, space.Width)
				assert.LessOrEqual(result.MarginTop+gridHeight, space.Height)
			})
		}
	}
}

func TestComputeLayoutDeterministic(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	space := DefaultSpace(1024, 768)
	for count := range 20 {
		assert.Equal(ComputeLayout(space, count), ComputeLayout(space, count))
	}
}
