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
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strukturag/janus-videoroom/layout"
	logtest "github.com/strukturag/janus-videoroom/log/test"
)

type testStream string

func (s testStream) ID() string {
	return string(s)
}

type modelRoom struct {
	model *layout.Model
}

func (r *modelRoom) Layout() []layout.Tile {
	return r.model.Tiles()
}

func (r *modelRoom) Mode() layout.Mode {
	return r.model.Mode()
}

func (r *modelRoom) Space() layout.Space {
	return r.model.Space()
}

func (r *modelRoom) Promote(id string) bool {
	return r.model.Promote(id)
}

func (r *modelRoom) Swap(index1 int, index2 int) bool {
	return r.model.SwapByIndex(index1, index2)
}

func (r *modelRoom) Move(id string, x int, y int) bool {
	return r.model.BeginDrag(id).Drop(x, y)
}

func newApiForTest(t *testing.T, count int) (*httptest.Server, *layout.Model) {
	t.Helper()
	model := layout.NewModel(layout.DefaultSpace(1280, 720))
	for i := range count {
		model.AddTile(testStream(fmt.Sprintf("stream-%d", i)))
	}

	router := mux.NewRouter()
	newLayoutApi(logtest.NewLoggerForTest(t), &modelRoom{model: model}).Register(router)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, model
}

func doRequest(t *testing.T, method string, url string) (int, *layoutResponse) {
	t.Helper()
	req, err := http.NewRequestWithContext(t.Context(), method, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, nil
	}

	var result layoutResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	return resp.StatusCode, &result
}

func TestLayoutApiGet(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	server, model := newApiForTest(t, 3)
	status, result := doRequest(t, http.MethodGet, server.URL+"/layout")
	assert.Equal(http.StatusOK, status)
	if assert.NotNil(result) {
		assert.Equal("normal", result.Mode)
		assert.Equal(1280, result.Width)
		assert.Equal(720, result.Height)
		expected := model.Tiles()
		if assert.Len(result.Tiles, len(expected)) {
			for idx, tile := range result.Tiles {
				expected[idx].Stream = nil
				assert.Equal(expected[idx], tile)
			}
		}
	}

	server, _ = newApiForTest(t, 0)
	status, result = doRequest(t, http.MethodGet, server.URL+"/layout")
	assert.Equal(http.StatusOK, status)
	if assert.NotNil(result) {
		assert.NotNil(result.Tiles)
		assert.Empty(result.Tiles)
	}
}

func TestLayoutApiPromote(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	server, _ := newApiForTest(t, 3)
	status, result := doRequest(t, http.MethodPost, server.URL+"/layout/promote/stream-1")
	assert.Equal(http.StatusOK, status)
	if assert.NotNil(result) {
		assert.Equal("admin", result.Mode)
		assert.Equal("stream-1", result.Tiles[0].Id)
	}

	status, result = doRequest(t, http.MethodPost, server.URL+"/layout/promote/stream-1")
	assert.Equal(http.StatusOK, status)
	if assert.NotNil(result) {
		assert.Equal("normal", result.Mode)
		assert.Equal("stream-0", result.Tiles[0].Id)
	}

	status, _ = doRequest(t, http.MethodPost, server.URL+"/layout/promote/unknown")
	assert.Equal(http.StatusNotFound, status)
	status, _ = doRequest(t, http.MethodGet, server.URL+"/layout/promote/stream-1")
	assert.Equal(http.StatusMethodNotAllowed, status)
}

func TestLayoutApiSwap(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	server, _ := newApiForTest(t, 3)
	status, result := doRequest(t, http.MethodPost, server.URL+"/layout/swap/0/2")
	assert.Equal(http.StatusOK, status)
	if assert.NotNil(result) && assert.Len(result.Tiles, 3) {
		assert.Equal("stream-2", result.Tiles[0].Id)
		assert.Equal("stream-0", result.Tiles[2].Id)
	}

	status, _ = doRequest(t, http.MethodPost, server.URL+"/layout/swap/0/7")
	assert.Equal(http.StatusNotFound, status)
	status, _ = doRequest(t, http.MethodPost, server.URL+"/layout/swap/a/b")
	assert.Equal(http.StatusNotFound, status)
}

func TestLayoutApiMove(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	server, model := newApiForTest(t, 2)
	target, found := model.Tile("stream-1")
	require.True(t, found)

	url := fmt.Sprintf("%s/layout/move/stream-0?x=%d&y=%d", server.URL, target.X+1, target.Y+1)
	status, result := doRequest(t, http.MethodPost, url)
	assert.Equal(http.StatusOK, status)
	if assert.NotNil(result) && assert.Len(result.Tiles, 2) {
		assert.Equal("stream-1", result.Tiles[0].Id)
		assert.Equal("stream-0", result.Tiles[1].Id)
	}

	status, _ = doRequest(t, http.MethodPost, server.URL+"/layout/move/stream-0?x=1")
	assert.Equal(http.StatusBadRequest, status)
	status, _ = doRequest(t, http.MethodPost, server.URL+"/layout/move/unknown?x=1&y=1")
	assert.Equal(http.StatusConflict, status)
}
