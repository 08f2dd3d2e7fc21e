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
package janus

import (
	"bytes"
	"encoding/json"
	"fmt"
)

var msgtypes = map[string]func() any{
	"error":       func() any { return &ErrorMsg{} },
	"success":     func() any { return &SuccessMsg{} },
	"detached":    func() any { return &DetachedMsg{} },
	"server_info": func() any { return &InfoMsg{} },
	"ack":         func() any { return &AckMsg{} },
	"event":       func() any { return &EventMsg{} },
	"webrtcup":    func() any { return &WebRTCUpMsg{} },
	"media":       func() any { return &MediaMsg{} },
	"hangup":      func() any { return &HangupMsg{} },
	"slowlink":    func() any { return &SlowLinkMsg{} },
	"timeout":     func() any { return &TimeoutMsg{} },
	"trickle":     func() any { return &TrickleMsg{} },
	"keepalive":   func() any { return &KeepaliveMsg{} },
}

// BaseMsg contains the fields common to all messages sent by the gateway.
type BaseMsg struct {
	Type    string `json:"janus"`
	ID      string `json:"transaction"`
	Session uint64 `json:"session_id"`
	Handle  uint64 `json:"sender"`
}

type PluginData struct {
	Plugin string    `json:"plugin"`
	Data   StringMap `json:"data"`
}

// Error returns the error reported by the plugin in its data, if any.
func (p *PluginData) Error() *ErrorMsg {
	if p == nil || p.Data == nil {
		return nil
	}

	code, err := p.Data.GetUint64("error_code")
	if err != nil || code == JANUS_OK {
		return nil
	}

	reason, _ := p.Data.GetString("error")
	return &ErrorMsg{
		Type: "error",
		Err: ErrorData{
			Code:   int(code),
			Reason: reason,
		},
	}
}

type SuccessData struct {
	ID uint64 `json:"id"`
}

type SuccessMsg struct {
	Type       string      `json:"janus"`
	ID         string      `json:"transaction"`
	Session    uint64      `json:"session_id"`
	Handle     uint64      `json:"sender"`
	Data       SuccessData `json:"data"`
	PluginData PluginData  `json:"plugindata"`
}

type AckMsg struct {
	Type    string `json:"janus"`
	ID      string `json:"transaction"`
	Session uint64 `json:"session_id"`
	Hint    string `json:"hint,omitempty"`
}

type EventMsg struct {
	Type       string     `json:"janus"`
	ID         string     `json:"transaction"`
	Session    uint64     `json:"session_id"`
	Handle     uint64     `json:"sender"`
	Plugindata PluginData `json:"plugindata"`
	Jsep       StringMap  `json:"jsep,omitempty"`
}

type WebRTCUpMsg struct {
	Type    string `json:"janus"`
	Session uint64 `json:"session_id"`
	Handle  uint64 `json:"sender"`
}

type HangupMsg struct {
	Type    string `json:"janus"`
	Session uint64 `json:"session_id"`
	Handle  uint64 `json:"sender"`
	Reason  string `json:"reason"`
}

type DetachedMsg struct {
	Type    string `json:"janus"`
	Session uint64 `json:"session_id"`
	Handle  uint64 `json:"sender"`
}

type MediaMsg struct {
	Type      string `json:"janus"`
	Session   uint64 `json:"session_id"`
	Handle    uint64 `json:"sender"`
	Mid       string `json:"mid,omitempty"`
	MediaType string `json:"type"`
	Receiving bool   `json:"receiving"`
}

type SlowLinkMsg struct {
	Type    string `json:"janus"`
	Session uint64 `json:"session_id"`
	Handle  uint64 `json:"sender"`
	Mid     string `json:"mid,omitempty"`
	Media   string `json:"media,omitempty"`
	Uplink  bool   `json:"uplink"`
	Lost    uint64 `json:"lost"`
}

type TimeoutMsg struct {
	Type    string `json:"janus"`
	Session uint64 `json:"session_id"`
}

type KeepaliveMsg struct {
	Type    string `json:"janus"`
	Session uint64 `json:"session_id"`
}

type TrickleCandidate struct {
	SdpMid        string `json:"sdpMid,omitempty"`
	SdpMLineIndex uint16 `json:"sdpMLineIndex"`
	Candidate     string `json:"candidate,omitempty"`

	Completed bool `json:"completed,omitempty"`
}

type TrickleMsg struct {
	Type      string           `json:"janus"`
	Session   uint64           `json:"session_id"`
	Handle    uint64           `json:"sender"`
	Candidate TrickleCandidate `json:"candidate"`
}

type PluginInfo struct {
	Name          string `json:"name"`
	Version       int    `json:"version"`
	VersionString string `json:"version_string"`
	Description   string `json:"description"`
	Author        string `json:"author"`
	Package       string `json:"package"`
}

type InfoMsg struct {
	Type          string `json:"janus"`
	ID            string `json:"transaction"`
	Name          string `json:"name"`
	Version       int    `json:"version"`
	VersionString string `json:"version_string"`
	Author        string `json:"author"`
	DataChannels  bool   `json:"data_channels"`
	IPv6          bool   `json:"ipv6"`
	FullTrickle   bool   `json:"full-trickle"`

	Transports map[string]PluginInfo `json:"transports"`
	Plugins    map[string]PluginInfo `json:"plugins"`
}

// decodeMessage decodes a single message received from the gateway into its
// typed representation.
func decodeMessage(data []byte) (any, *BaseMsg, error) {
	var base BaseMsg
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&base); err != nil {
		return nil, nil, err
	}

	typeFunc, found := msgtypes[base.Type]
	if !found {
		return nil, &base, fmt.Errorf("unknown message type %s", base.Type)
	}

	msg := typeFunc()
	decoder = json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(msg); err != nil {
		return nil, &base, err
	}

	return msg, &base, nil
}

// splitMessages returns the messages contained in data which may either be a
// single object or an array of objects.
func splitMessages(data []byte) ([][]byte, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return [][]byte{data}, nil
	}

	var messages []json.RawMessage
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, err
	}

	result := make([][]byte, 0, len(messages))
	for _, msg := range messages {
		result = append(result, msg)
	}
	return result, nil
}
