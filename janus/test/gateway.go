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
package test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"

	"github.com/strukturag/janus-videoroom/janus"
)

const (
	PluginBlitz = "janus.plugin.blitz"

	defaultPollTimeout = 200 * time.Millisecond
)

// Handle is a plugin handle created in the fake gateway.
type Handle struct {
	Id        uint64
	SessionId uint64
	Plugin    string
	OpaqueId  string
}

// MessageHandler processes "message" requests sent to a handle. It returns
// nil to acknowledge the message, *janus.PluginData for a synchronous reply
// or *janus.ErrorData to return an error.
type MessageHandler func(g *Gateway, handle *Handle, body janus.StringMap, jsep janus.StringMap) any

type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) write(msg janus.StringMap) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

type gatewaySession struct {
	id     uint64
	conn   *wsConn
	events chan janus.StringMap
}

// Gateway is an in-process Janus gateway that supports the websocket and the
// REST transports.
type Gateway struct {
	t      testing.TB
	server *httptest.Server

	sid atomic.Uint64
	hid atomic.Uint64

	upgrader websocket.Upgrader

	mu sync.Mutex
	// +checklocks:mu
	sessions map[uint64]*gatewaySession
	// +checklocks:mu
	handles map[uint64]*Handle
	// +checklocks:mu
	requests []janus.StringMap
	// +checklocks:mu
	conns []*wsConn
	// +checklocks:mu
	handler MessageHandler
	// +checklocks:mu
	token string
	// +checklocks:mu
	apiSecret string
	// +checklocks:mu
	failPolls int
	// +checklocks:mu
	pollTimeout time.Duration
	// +checklocks:mu
	failRequests map[string]bool
	// +checklocks:mu
	holds map[string]*heldRequests
}

type heldRequests struct {
	requests chan janus.StringMap
	release  chan struct{}
}

func NewGateway(t testing.TB) *Gateway {
	g := &Gateway{
		t: t,
		upgrader: websocket.Upgrader{
			Subprotocols: []string{"janus-protocol"},
		},

		sessions:    make(map[uint64]*gatewaySession),
		handles:     make(map[uint64]*Handle),
		pollTimeout: defaultPollTimeout,

		failRequests: make(map[string]bool),
		holds:        make(map[string]*heldRequests),
	}

	r := mux.NewRouter()
	r.HandleFunc("/ws", g.serveWebsocket)
	r.HandleFunc("/janus", g.servePost).Methods(http.MethodPost)
	r.HandleFunc("/janus/{session:[0-9]+}", g.servePost).Methods(http.MethodPost)
	r.HandleFunc("/janus/{session:[0-9]+}", g.servePoll).Methods(http.MethodGet)
	r.HandleFunc("/janus/{session:[0-9]+}/{handle:[0-9]+}", g.servePost).Methods(http.MethodPost)
	g.server = httptest.NewServer(r)
	t.Cleanup(func() {
		g.Shutdown()
	})
	return g
}

// WebsocketUrl returns the url to connect to using websockets.
func (g *Gateway) WebsocketUrl() string {
	return "ws" + strings.TrimPrefix(g.server.URL, "http") + "/ws"
}

// HttpUrl returns the url to connect to using the REST api.
func (g *Gateway) HttpUrl() string {
	return g.server.URL + "/janus"
}

func (g *Gateway) SetMessageHandler(handler MessageHandler) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.handler = handler
}

// SetAuth requires the given token and api secret for all requests.
func (g *Gateway) SetAuth(token string, apiSecret string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.token = token
	g.apiSecret = apiSecret
}

// FailPolls lets the next count long-poll requests fail.
func (g *Gateway) FailPolls(count int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failPolls = count
}

// FailRequests lets requests of the given type fail on the transport level.
// REST requests get an error status, websocket requests are not answered.
func (g *Gateway) FailRequests(method string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failRequests[method] = true
}

func (g *Gateway) shouldFail(req janus.StringMap) bool {
	method, _ := req.GetString("janus")
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.failRequests[method] {
		return false
	}

	g.requests = append(g.requests, req)
	return true
}

// HoldRequests delays REST requests of the given type until the returned
// function is called. Every held request is sent to the returned channel
// before it waits.
func (g *Gateway) HoldRequests(method string) (<-chan janus.StringMap, func()) {
	held := &heldRequests{
		requests: make(chan janus.StringMap, 16),
		release:  make(chan struct{}),
	}
	g.mu.Lock()
	g.holds[method] = held
	g.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			close(held.release)
		})
	}
	g.t.Cleanup(release)
	return held.requests, release
}

func (g *Gateway) waitHeld(req janus.StringMap) {
	method, _ := req.GetString("janus")
	g.mu.Lock()
	held := g.holds[method]
	g.mu.Unlock()
	if held == nil {
		return
	}

	held.requests <- req
	<-held.release
}

func (g *Gateway) SetPollTimeout(timeout time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pollTimeout = timeout
}

// Shutdown stops the gateway and closes all connections.
func (g *Gateway) Shutdown() {
	g.DropConnections()
	g.server.CloseClientConnections()
	g.server.Close()
}

// DropConnections closes all websocket connections.
func (g *Gateway) DropConnections() {
	g.mu.Lock()
	conns := g.conns
	g.conns = nil
	g.mu.Unlock()

	for _, c := range conns {
		c.conn.Close() // nolint
	}
}

// Requests returns the requests of the given type received so far.
func (g *Gateway) Requests(method string) []janus.StringMap {
	g.mu.Lock()
	defer g.mu.Unlock()
	var result []janus.StringMap
	for _, req := range g.requests {
		if req["janus"] == method {
			result = append(result, req)
		}
	}
	return result
}

func (g *Gateway) SessionCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sessions)
}

func (g *Gateway) HandleCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.handles)
}

func (g *Gateway) GetHandle(id uint64) *Handle {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.handles[id]
}

// SendEvent pushes an event for the given handle to the client. The
// "session_id" and "sender" fields are filled automatically.
func (g *Gateway) SendEvent(handle *Handle, event janus.StringMap) {
	event["session_id"] = handle.SessionId
	event["sender"] = handle.Id
	g.sendToSession(handle.SessionId, event)
}

// SendSessionEvent pushes an event that is not related to a handle.
func (g *Gateway) SendSessionEvent(sessionId uint64, event janus.StringMap) {
	event["session_id"] = sessionId
	g.sendToSession(sessionId, event)
}

func (g *Gateway) sendToSession(sessionId uint64, event janus.StringMap) {
	g.mu.Lock()
	session, found := g.sessions[sessionId]
	g.mu.Unlock()
	if !found {
		return
	}

	if session.conn != nil {
		if err := session.conn.write(event); err != nil {
			g.t.Logf("Could not send event %+v: %s", event, err)
		}
		return
	}

	select {
	case session.events <- event:
	default:
		assert.Fail(g.t, "event queue full", "could not queue %+v", event)
	}
}

func errorReply(req janus.StringMap, code int, reason string) janus.StringMap {
	return janus.StringMap{
		"janus":       "error",
		"transaction": req["transaction"],
		"error": janus.StringMap{
			"code":   code,
			"reason": reason,
		},
	}
}

func successReply(req janus.StringMap) janus.StringMap {
	return janus.StringMap{
		"janus":       "success",
		"transaction": req["transaction"],
	}
}

func ackReply(req janus.StringMap) janus.StringMap {
	return janus.StringMap{
		"janus":       "ack",
		"transaction": req["transaction"],
	}
}

func (g *Gateway) checkAuth(token any, apiSecret any) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.token != "" && token != g.token {
		return false
	}
	if g.apiSecret != "" && apiSecret != g.apiSecret {
		return false
	}
	return true
}

func (g *Gateway) processRequest(req janus.StringMap, conn *wsConn) janus.StringMap {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()

	if !g.checkAuth(req["token"], req["apisecret"]) {
		return errorReply(req, janus.JANUS_ERROR_UNAUTHORIZED, "Unauthorized request (wrong or missing secret/token)")
	}

	method, _ := req.GetString("janus")
	switch method {
	case "info":
		return janus.StringMap{
			"janus":          "server_info",
			"transaction":    req["transaction"],
			"name":           "TestJanus",
			"version":        1400,
			"version_string": "1.4.0",
			"author":         "struktur AG",
			"full-trickle":   true,
			"plugins": janus.StringMap{
				PluginBlitz: janus.StringMap{
					"name":           "Test Blitz plugin",
					"version_string": "0.0.0",
					"author":         "struktur AG",
				},
			},
		}
	case "create":
		session := &gatewaySession{
			id:     g.sid.Add(1),
			conn:   conn,
			events: make(chan janus.StringMap, 64),
		}
		g.mu.Lock()
		g.sessions[session.id] = session
		g.mu.Unlock()

		reply := successReply(req)
		reply["data"] = janus.StringMap{
			"id": session.id,
		}
		return reply
	}

	sid, err := req.GetUint64("session_id")
	if err != nil {
		return errorReply(req, janus.JANUS_ERROR_INVALID_REQUEST_PATH, "Unhandled request '"+method+"' at this path")
	}

	g.mu.Lock()
	session, found := g.sessions[sid]
	g.mu.Unlock()
	if !found {
		return errorReply(req, janus.JANUS_ERROR_SESSION_NOT_FOUND, "No such session "+strconv.FormatUint(sid, 10))
	}

	switch method {
	case "keepalive":
		return ackReply(req)
	case "attach":
		plugin, _ := req.GetString("plugin")
		if plugin != PluginBlitz {
			return errorReply(req, janus.JANUS_ERROR_PLUGIN_NOT_FOUND, "No such plugin '"+plugin+"'")
		}

		opaqueId, _ := req.GetString("opaque_id")
		handle := &Handle{
			Id:        g.hid.Add(1),
			SessionId: session.id,
			Plugin:    plugin,
			OpaqueId:  opaqueId,
		}
		g.mu.Lock()
		g.handles[handle.Id] = handle
		g.mu.Unlock()

		reply := successReply(req)
		reply["session_id"] = session.id
		reply["data"] = janus.StringMap{
			"id": handle.Id,
		}
		return reply
	case "destroy":
		g.mu.Lock()
		delete(g.sessions, session.id)
		for id, h := range g.handles {
			if h.SessionId == session.id {
				delete(g.handles, id)
			}
		}
		g.mu.Unlock()

		reply := successReply(req)
		reply["session_id"] = session.id
		return reply
	}

	hid, err := req.GetUint64("handle_id")
	if err != nil {
		return errorReply(req, janus.JANUS_ERROR_INVALID_REQUEST_PATH, "Unhandled request '"+method+"' at this path")
	}

	g.mu.Lock()
	handle, found := g.handles[hid]
	handler := g.handler
	g.mu.Unlock()
	if !found || handle.SessionId != session.id {
		return errorReply(req, janus.JANUS_ERROR_HANDLE_NOT_FOUND, "No such handle "+strconv.FormatUint(hid, 10))
	}

	switch method {
	case "message":
		body, _ := req.GetStringMap("body")
		jsep, _ := req.GetStringMap("jsep")
		var result any
		if handler != nil {
			result = handler(g, handle, body, jsep)
		}
		switch result := result.(type) {
		case nil:
			reply := ackReply(req)
			reply["session_id"] = session.id
			return reply
		case *janus.PluginData:
			reply := successReply(req)
			reply["session_id"] = session.id
			reply["sender"] = handle.Id
			reply["plugindata"] = janus.StringMap{
				"plugin": result.Plugin,
				"data":   result.Data,
			}
			return reply
		case *janus.ErrorData:
			return errorReply(req, result.Code, result.Reason)
		default:
			assert.Fail(g.t, "unsupported handler result", "%+v", result)
			return errorReply(req, janus.JANUS_ERROR_UNKNOWN, "internal error")
		}
	case "trickle":
		reply := ackReply(req)
		reply["session_id"] = session.id
		return reply
	case "hangup":
		reply := successReply(req)
		reply["session_id"] = session.id
		return reply
	case "detach":
		g.mu.Lock()
		delete(g.handles, handle.Id)
		g.mu.Unlock()

		reply := successReply(req)
		reply["session_id"] = session.id
		return reply
	default:
		return errorReply(req, janus.JANUS_ERROR_UNKNOWN_REQUEST, "Unknown request '"+method+"'")
	}
}

func (g *Gateway) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.t.Logf("Could not upgrade websocket: %s", err)
		return
	}

	c := &wsConn{
		conn: conn,
	}
	g.mu.Lock()
	g.conns = append(g.conns, c)
	g.mu.Unlock()

	defer conn.Close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var req janus.StringMap
		if err := json.Unmarshal(data, &req); err != nil {
			g.t.Logf("Could not decode %s: %s", string(data), err)
			continue
		}

		if g.shouldFail(req) {
			continue
		}

		if err := c.write(g.processRequest(req, c)); err != nil {
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(data) // nolint
}

func (g *Gateway) servePost(w http.ResponseWriter, r *http.Request) {
	var req janus.StringMap
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	vars := mux.Vars(r)
	if sid, found := vars["session"]; found {
		id, _ := strconv.ParseUint(sid, 10, 64)
		req["session_id"] = id
	}
	if hid, found := vars["handle"]; found {
		id, _ := strconv.ParseUint(hid, 10, 64)
		req["handle_id"] = id
	}

	if g.shouldFail(req) {
		http.Error(w, "simulated failure", http.StatusServiceUnavailable)
		return
	}

	g.waitHeld(req)
	writeJSON(w, g.processRequest(req, nil))
}

func (g *Gateway) servePoll(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if !g.checkAuth(query.Get("token"), query.Get("apisecret")) {
		writeJSON(w, errorReply(janus.StringMap{}, janus.JANUS_ERROR_UNAUTHORIZED, "Unauthorized request (wrong or missing secret/token)"))
		return
	}

	sid, _ := strconv.ParseUint(mux.Vars(r)["session"], 10, 64)
	g.mu.Lock()
	session, found := g.sessions[sid]
	fail := g.failPolls > 0
	if fail {
		g.failPolls--
	}
	timeout := g.pollTimeout
	g.mu.Unlock()

	if fail {
		http.Error(w, "simulated failure", http.StatusInternalServerError)
		return
	}
	if !found {
		writeJSON(w, errorReply(janus.StringMap{}, janus.JANUS_ERROR_SESSION_NOT_FOUND, "No such session "+strconv.FormatUint(sid, 10)))
		return
	}

	maxev, _ := strconv.Atoi(query.Get("maxev"))
	maxev = max(maxev, 1)

	select {
	case event := <-session.events:
		if maxev == 1 {
			writeJSON(w, event)
			return
		}

		events := []janus.StringMap{event}
	loop:
		for len(events) < maxev {
			select {
			case event := <-session.events:
				events = append(events, event)
			default:
				break loop
			}
		}
		writeJSON(w, events)
	case <-time.After(timeout):
		writeJSON(w, janus.StringMap{
			"janus": "keepalive",
		})
	case <-r.Context().Done():
	}
}
