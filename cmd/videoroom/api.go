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
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/strukturag/janus-videoroom/layout"
	"github.com/strukturag/janus-videoroom/log"
)

type layoutRoom interface {
	Layout() []layout.Tile
	Mode() layout.Mode
	Space() layout.Space
	Promote(id string) bool
	Swap(index1 int, index2 int) bool
	Move(id string, x int, y int) bool
}

type layoutResponse struct {
	Mode   string        `json:"mode"`
	Width  int           `json:"width"`
	Height int           `json:"height"`
	Tiles  []layout.Tile `json:"tiles"`
}

type layoutApi struct {
	logger log.Logger
	room   layoutRoom
}

func newLayoutApi(logger log.Logger, room layoutRoom) *layoutApi {
	return &layoutApi{
		logger: logger,
		room:   room,
	}
}

func (a *layoutApi) Register(r *mux.Router) {
	s := r.PathPrefix("/layout").Subrouter()
	s.HandleFunc("", a.getLayout).Methods("GET")
	s.HandleFunc("/promote/{id}", a.promote).Methods("POST")
	s.HandleFunc("/swap/{index1:[0-9]+}/{index2:[0-9]+}", a.swap).Methods("POST")
	s.HandleFunc("/move/{id}", a.move).Methods("POST")
}

func (a *layoutApi) writeLayout(w http.ResponseWriter) {
	space := a.room.Space()
	tiles := a.room.Layout()
	if tiles == nil {
		tiles = []layout.Tile{}
	}
	response := &layoutResponse{
		Mode:   a.room.Mode().String(),
		Width:  space.Width,
		Height: space.Height,
		Tiles:  tiles,
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		a.logger.Printf("Could not write layout: %s", err)
	}
}

func (a *layoutApi) getLayout(w http.ResponseWriter, r *http.Request) {
	a.writeLayout(w)
}

func (a *layoutApi) promote(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !a.room.Promote(id) {
		http.Error(w, "No such tile", http.StatusNotFound)
		return
	}

	a.writeLayout(w)
}

func (a *layoutApi) swap(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	index1, err := strconv.Atoi(vars["index1"])
	if err != nil {
		http.Error(w, "Invalid index", http.StatusBadRequest)
		return
	}
	index2, err := strconv.Atoi(vars["index2"])
	if err != nil {
		http.Error(w, "Invalid index", http.StatusBadRequest)
		return
	}

	if !a.room.Swap(index1, index2) {
		http.Error(w, "No such tile", http.StatusNotFound)
		return
	}

	a.writeLayout(w)
}

func (a *layoutApi) move(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	query := r.URL.Query()
	x, err := strconv.Atoi(query.Get("x"))
	if err != nil {
		http.Error(w, "Invalid x coordinate", http.StatusBadRequest)
		return
	}
	y, err := strconv.Atoi(query.Get("y"))
	if err != nil {
		http.Error(w, "Invalid y coordinate", http.StatusBadRequest)
		return
	}

	if !a.room.Move(id, x, y) {
		http.Error(w, "Could not move tile", http.StatusConflict)
		return
	}

	a.writeLayout(w)
}
