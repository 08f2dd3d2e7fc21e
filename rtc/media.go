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
package rtc

import (
	"context"
	"errors"

	"github.com/strukturag/janus-videoroom/janus"
)

var (
	ErrInvalidDescription = errors.New("invalid session description")
)

// MediaOptions select audio and / or video.
type MediaOptions struct {
	Audio bool
	Video bool
}

func (o MediaOptions) Empty() bool {
	return !o.Audio && !o.Video
}

type SessionDescription struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

func (d *SessionDescription) jsep(trickle bool) janus.StringMap {
	result := janus.StringMap{
		"type": d.Type,
		"sdp":  d.SDP,
	}
	if !trickle {
		result["trickle"] = false
	}
	return result
}

// DescriptionFromJsep extracts the session description from a "jsep" object
// received from the gateway. It returns nil if no jsep was received.
func DescriptionFromJsep(jsep janus.StringMap) (*SessionDescription, error) {
	if len(jsep) == 0 {
		return nil, nil
	}

	typ, _ := jsep.GetString("type")
	sdp, _ := jsep.GetString("sdp")
	if typ == "" || sdp == "" {
		return nil, ErrInvalidDescription
	}

	return &SessionDescription{
		Type: typ,
		SDP:  sdp,
	}, nil
}

type ICECandidate struct {
	Candidate     string `json:"candidate"`
	SdpMid        string `json:"sdpMid"`
	SdpMLineIndex uint16 `json:"sdpMLineIndex"`
}

func (c *ICECandidate) trickle() janus.StringMap {
	return janus.StringMap{
		"candidate":     c.Candidate,
		"sdpMid":        c.SdpMid,
		"sdpMLineIndex": c.SdpMLineIndex,
	}
}

// LocalStream is a stream of locally captured media.
type LocalStream interface {
	ID() string
	// Stop releases the capture devices of the stream.
	Stop()
}

// RemoteStream is a stream of media received from the gateway.
type RemoteStream interface {
	ID() string
}

type PeerConnectionListener interface {
	// OnICECandidate is called for every local candidate gathered. A nil
	// candidate signals that gathering has completed.
	OnICECandidate(candidate *ICECandidate)
	OnRemoteStream(stream RemoteStream)
}

type PeerConnectionConfig struct {
	ICEServers []string
	IPv6       bool
	// Receive selects the media to receive if no local media is sent.
	Receive MediaOptions
}

type PeerConnection interface {
	AddStream(stream LocalStream) error
	SetRemoteDescription(desc SessionDescription) error
	CreateOffer() (SessionDescription, error)
	CreateAnswer() (SessionDescription, error)
	SetLocalDescription(desc SessionDescription) error
	// LocalDescription returns the current local description including all
	// candidates gathered so far.
	LocalDescription() *SessionDescription
	AddICECandidate(candidate ICECandidate) error
	Close() error
}

// MediaEngine provides media capture and peer connections.
type MediaEngine interface {
	GetUserMedia(ctx context.Context, media MediaOptions) (LocalStream, error)
	NewPeerConnection(config PeerConnectionConfig, listener PeerConnectionListener) (PeerConnection, error)
}
