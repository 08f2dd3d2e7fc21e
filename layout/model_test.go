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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testStream string

func (s testStream) ID() string {
	return string(s)
}

func newTestModel(t *testing.T, count int) *Model {
	t.Helper()

	model := NewModel(DefaultSpace(1280, 720))
	for i := range count {
		model.AddTile(testStream(fmt.Sprintf("stream-%d", i)))
	}
	require.Equal(t, count, model.Len())
	return model
}

func overlaps(a Tile, b Tile) bool {
	return a.X < b.X+b.Width && b.X < a.X+a.Width &&
		a.Y < b.Y+b.Height && b.Y < a.Y+a.Height
}

func assertNoOverlap(t *testing.T, tiles []Tile) {
	t.Helper()

	for i := range tiles {
		for j := i + 1; j < len(tiles); j++ {
			assert.False(t, overlaps(tiles[i], tiles[j]), "tiles %+v and %+v overlap", tiles[i], tiles[j])
		}
	}
}

func assertInside(t *testing.T, space Space, tiles []Tile) {
	t.Helper()

	for _, tile := range tiles {
		assert.GreaterOrEqual(t, tile.X, 0, "%+v", tile)
		assert.GreaterOrEqual(t, tile.Y, 0, "%+v", tile)
		assert.LessOrEqual(t, tile.X+tile.Width, space.Width, "%+v", tile)
		assert.LessOrEqual(t, tile.Y+tile.Height, space.Height, "%+v", tile)
	}
}

func assertDistinctIndices(t *testing.T, model *Model) {
	t.Helper()

	seen := make(map[int]string)
	for _, tile := range model.Tiles() {
		if other, found := seen[tile.Index]; found {
			assert.Fail(t, "duplicate index", "tiles %s and %s share index %d", other, tile.Id, tile.Index)
		}
		seen[tile.Index] = tile.Id
	}
}

func TestModelAddTiles(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	model := newTestModel(t, 50)
	assert.Equal(ModeNormal, model.Mode())
	tiles := model.Tiles()
	for idx, tile := range tiles {
		assert.Equal(idx, tile.Index)
		assert.Equal(fmt.Sprintf("stream-%d", idx), tile.Id)
		assert.Positive(tile.Width)
		assert.Positive(tile.Height)
		assert.NotEmpty(tile.Color)
	}
	assertNoOverlap(t, tiles)
	assertInside(t, model.Space(), tiles)
	assertDistinctIndices(t, model)
}

func TestModelAddDuplicate(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	model := newTestModel(t, 2)
	assert.Equal("stream-1", model.AddTile(testStream("stream-1")))
	assert.Equal(2, model.Len())
}

func TestModelRemoveTile(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	model := newTestModel(t, 4)
	assert.False(model.RemoveTile("unknown"))
	assert.True(model.RemoveTile("stream-1"))
	assert.False(model.RemoveTile("stream-1"))

	tiles := model.Tiles()
	if assert.Len(tiles, 3) {
		assert.Equal("stream-0", tiles[0].Id)
		assert.Equal("stream-2", tiles[1].Id)
		assert.Equal("stream-3", tiles[2].Id)
		for idx, tile := range tiles {
			assert.Equal(idx, tile.Index)
		}
	}

	// The next tile gets a fresh index.
	model.AddTile(testStream("stream-4"))
	assertDistinctIndices(t, model)
	tile, found := model.Tile("stream-4")
	if assert.True(found) {
		assert.Equal(3, tile.Index)
	}

	for _, tile := range model.Tiles() {
		assert.True(model.RemoveTile(tile.Id))
	}
	assert.Equal(0, model.Len())
	assert.Empty(model.Tiles())
}

func TestModelPromoteRoundtrip(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	model := newTestModel(t, 10)
	before := model.Tiles()

	assert.True(model.Promote("stream-5"))
	assert.Equal(ModeAdmin, model.Mode())
	main, found := model.MainTile()
	if assert.True(found) {
		assert.Equal("stream-5", main.Id)
		assert.Equal(0, main.Index)
	}
	assertDistinctIndices(t, model)

	assert.True(model.Promote("stream-5"))
	assert.Equal(ModeNormal, model.Mode())
	_, found = model.MainTile()
	assert.False(found)
	assert.Equal(before, model.Tiles())
}

func TestModelAdminLayout(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	model := newTestModel(t, 10)
	space := model.Space()
	tile, _ := model.Tile("stream-5")
	require.True(t, model.Promote(tile.Id))

	mainWidth := int(float64(space.Width) * space.MainAreaFraction)
	tiles := model.Tiles()
	require.Len(t, tiles, 10)
	inMain := 0
	for _, tile := range tiles {
		if tile.X+tile.Width <= mainWidth {
			inMain++
			assert.Equal("stream-5", tile.Id)
		} else {
			assert.GreaterOrEqual(tile.X, mainWidth, "%+v", tile)
		}
	}
	assert.Equal(1, inMain)
	assertNoOverlap(t, tiles)
	assertInside(t, space, tiles)

	// Other tiles keep their relative order.
	var order []string
	for _, tile := range tiles[1:] {
		order = append(order, tile.Id)
	}
	assert.Equal([]string{
		"stream-0", "stream-1", "stream-2", "stream-3", "stream-4",
		"stream-6", "stream-7", "stream-8", "stream-9",
	}, order)
}

func TestModelAdminRepin(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	model := newTestModel(t, 5)
	require.True(t, model.Promote("stream-2"))
	main, _ := model.Tile("stream-2")
	other, _ := model.Tile("stream-4")

	require.True(t, model.Promote("stream-4"))
	assert.Equal(ModeAdmin, model.Mode())
	newMain, _ := model.MainTile()
	assert.Equal("stream-4", newMain.Id)
	assert.Equal(main.X, newMain.X)
	assert.Equal(main.Width, newMain.Width)
	assert.Equal(0, newMain.Index)

	oldMain, _ := model.Tile("stream-2")
	assert.Equal(other.X, oldMain.X)
	assert.Equal(other.Y, oldMain.Y)
	assert.Equal(other.Index, oldMain.Index)
	assertDistinctIndices(t, model)

	// Demoting puts the main tile back into the original slot.
	require.True(t, model.Promote("stream-4"))
	assert.Equal(ModeNormal, model.Mode())
	tile, _ := model.Tile("stream-4")
	assert.Equal(2, tile.Index)
	assertDistinctIndices(t, model)
}

func TestModelAdminRemoveMain(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	model := newTestModel(t, 4)
	require.True(t, model.Promote("stream-1"))
	assert.True(model.RemoveTile("stream-1"))
	assert.Equal(ModeNormal, model.Mode())
	assertDistinctIndices(t, model)
	assertNoOverlap(t, model.Tiles())
}

func TestModelAdminRemoveOther(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	model := newTestModel(t, 3)
	require.True(t, model.Promote("stream-1"))
	assert.True(model.RemoveTile("stream-2"))
	assert.Equal(ModeAdmin, model.Mode())
	main, _ := model.MainTile()
	assert.Equal("stream-1", main.Id)

	// Only the main tile left, nothing to show beside it.
	assert.True(model.RemoveTile("stream-0"))
	assert.Equal(ModeNormal, model.Mode())
	tile, _ := model.Tile("stream-1")
	assert.Equal(0, tile.Index)
	expected := ComputeLayout(model.Space(), 1)
	assert.Equal(expected.TileWidth, tile.Width)
}

func TestModelAdminSingleTile(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	model := newTestModel(t, 1)
	assert.False(model.Promote("stream-0"))
	assert.Equal(ModeNormal, model.Mode())
	assert.False(model.Promote("unknown"))
}

func TestModelSwapInvolution(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	model := newTestModel(t, 6)
	before := model.Tiles()
	assert.True(model.SwapByIndex(1, 4))
	swapped := model.Tiles()
	assert.NotEqual(before, swapped)
	assert.Equal(before[1].X, swapped[1].X)
	assert.Equal("stream-4", swapped[1].Id)
	assert.Equal("stream-1", swapped[4].Id)

	assert.True(model.SwapByIndex(1, 4))
	assert.Equal(before, model.Tiles())

	assert.False(model.SwapByIndex(1, 1))
	assert.False(model.SwapByIndex(1, 42))
	assert.Equal(before, model.Tiles())
}

func TestModelSwapMainInAdmin(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	model := newTestModel(t, 4)
	require.True(t, model.Promote("stream-0"))
	assert.True(model.SwapByIndex(0, 2))
	main, found := model.MainTile()
	if assert.True(found) {
		assert.Equal(0, main.Index)
		assert.Equal("stream-2", main.Id)
	}
}

func TestModelResize(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	model := newTestModel(t, 7)
	space := DefaultSpace(1920, 1080)
	model.Resize(space)
	tiles := model.Tiles()
	expected := ComputeLayout(space, 7)
	for _, tile := range tiles {
		assert.Equal(expected.TileWidth, tile.Width)
		assert.Equal(expected.TileHeight, tile.Height)
	}
	assertInside(t, space, tiles)

	require.True(t, model.Promote("stream-3"))
	model.Resize(DefaultSpace(800, 600))
	assert.Equal(ModeAdmin, model.Mode())
	assertNoOverlap(t, model.Tiles())
	assertInside(t, model.Space(), model.Tiles())
}

func TestModelRandomOperations(t *testing.T) {
	t.Parallel()

	rnd := rand.New(rand.NewPCG(1, 2))
	model := NewModel(DefaultSpace(1280, 720))
	next := 0
	for range 1000 {
		tiles := model.Tiles()
		switch op := rnd.IntN(5); {
		case op == 0 || len(tiles) == 0:
			model.AddTile(testStream(fmt.Sprintf("stream-%d", next)))
			next++
		case op == 1:
			model.RemoveTile(tiles[rnd.IntN(len(tiles))].Id)
		case op == 2:
			model.Promote(tiles[rnd.IntN(len(tiles))].Id)
		case op == 3:
			model.SwapByIndex(tiles[rnd.IntN(len(tiles))].Index, tiles[rnd.IntN(len(tiles))].Index)
		default:
			model.Resize(DefaultSpace(640+rnd.IntN(1280), 480+rnd.IntN(720)))
		}
		assertDistinctIndices(t, model)
		assertNoOverlap(t, model.Tiles())
	}
}

func TestModelDrag(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	model := newTestModel(t, 4)
	source, _ := model.Tile("stream-0")
	target, _ := model.Tile("stream-3")

	drag := model.BeginDrag("stream-0")
	assert.True(drag.Active())
	assert.Equal("stream-0", drag.TileId())
	assert.True(drag.Drop(target.X+1, target.Y+1))
	assert.False(drag.Active())

	moved, _ := model.Tile("stream-0")
	assert.Equal(target.X, moved.X)
	assert.Equal(target.Index, moved.Index)
	other, _ := model.Tile("stream-3")
	assert.Equal(source.X, other.X)

	// Dropping outside of any tile does nothing.
	drag = model.BeginDrag("stream-1")
	assert.False(drag.Drop(-10, -10))

	assert.False(model.BeginDrag("unknown").Active())
}

func TestModelDragRemovedTile(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	model := newTestModel(t, 3)
	target, _ := model.Tile("stream-2")
	drag := model.BeginDrag("stream-0")
	require.True(t, model.RemoveTile("stream-0"))

	assert.False(drag.Active())
	assert.False(drag.Drop(target.X+1, target.Y+1))
	assert.Equal(2, model.Len())
	assertDistinctIndices(t, model)
}
