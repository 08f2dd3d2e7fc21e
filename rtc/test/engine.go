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
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/strukturag/janus-videoroom/rtc"
)

const (
	AudioSSRC = 1001
	VideoSSRC = 2001
)

var (
	ErrClosed  = errors.New("peer connection closed")
	ErrNoOffer = errors.New("no remote offer")
)

type LocalStream struct {
	id      string
	media   rtc.MediaOptions
	stopped atomic.Bool
}

func NewLocalStream(id string, media rtc.MediaOptions) *LocalStream {
	return &LocalStream{
		id:    id,
		media: media,
	}
}

func (s *LocalStream) ID() string {
	return s.id
}

func (s *LocalStream) Media() rtc.MediaOptions {
	return s.media
}

func (s *LocalStream) Stop() {
	s.stopped.Store(true)
}

func (s *LocalStream) Stopped() bool {
	return s.stopped.Load()
}

type RemoteStream struct {
	id string
}

func (s *RemoteStream) ID() string {
	return s.id
}

// Engine is a media engine that creates fake streams and peer connections.
type Engine struct {
	nextId atomic.Uint64

	mu sync.Mutex
	// +checklocks:mu
	mediaError error
	// +checklocks:mu
	candidates []string
	// +checklocks:mu
	gate chan struct{}
	// +checklocks:mu
	streams []*LocalStream
	// +checklocks:mu
	connections []*PeerConnection
}

func NewEngine() *Engine {
	return &Engine{
		candidates: []string{
			"candidate:1 1 udp 2122260223 192.0.2.1 50000 typ host",
			"candidate:2 1 udp 2122262783 2001:db8::1 50001 typ host",
			"candidate:3 1 udp 1686052607 198.51.100.1 50002 typ srflx raddr 192.0.2.1 rport 50000",
		},
	}
}

// SetMediaError lets GetUserMedia fail with the given error.
func (e *Engine) SetMediaError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mediaError = err
}

// SetCandidates sets the local candidates gathered by new peer connections.
func (e *Engine) SetCandidates(candidates ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.candidates = candidates
}

// HoldGathering delays candidate gathering until the returned function is
// called.
func (e *Engine) HoldGathering() func() {
	gate := make(chan struct{})
	e.mu.Lock()
	e.gate = gate
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(gate)
		})
	}
}

func (e *Engine) Streams() []*LocalStream {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*LocalStream(nil), e.streams...)
}

func (e *Engine) PeerConnections() []*PeerConnection {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*PeerConnection(nil), e.connections...)
}

func (e *Engine) GetUserMedia(ctx context.Context, media rtc.MediaOptions) (rtc.LocalStream, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mediaError != nil {
		return nil, e.mediaError
	}

	stream := NewLocalStream(fmt.Sprintf("local-%d", e.nextId.Add(1)), media)
	e.streams = append(e.streams, stream)
	return stream, nil
}

func (e *Engine) NewPeerConnection(config rtc.PeerConnectionConfig, listener rtc.PeerConnectionListener) (rtc.PeerConnection, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	pc := &PeerConnection{
		engine:     e,
		config:     config,
		listener:   listener,
		candidates: e.candidates,
		gate:       e.gate,
	}
	e.connections = append(e.connections, pc)
	return pc, nil
}

// PeerConnection is a fake peer connection that produces parseable session
// descriptions and gathers the configured candidates.
type PeerConnection struct {
	engine     *Engine
	config     rtc.PeerConnectionConfig
	listener   rtc.PeerConnectionListener
	candidates []string
	gate       chan struct{}

	mu sync.Mutex
	// +checklocks:mu
	streams []rtc.LocalStream
	// +checklocks:mu
	remote *rtc.SessionDescription
	// +checklocks:mu
	local *rtc.SessionDescription
	// +checklocks:mu
	gathered []string
	// +checklocks:mu
	remoteCandidates []rtc.ICECandidate
	// +checklocks:mu
	closed bool
}

func (pc *PeerConnection) Config() rtc.PeerConnectionConfig {
	return pc.config
}

func (pc *PeerConnection) Closed() bool {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.closed
}

func (pc *PeerConnection) RemoteDescription() *rtc.SessionDescription {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.remote
}

func (pc *PeerConnection) RemoteCandidates() []rtc.ICECandidate {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return append([]rtc.ICECandidate(nil), pc.remoteCandidates...)
}

func (pc *PeerConnection) AddStream(stream rtc.LocalStream) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.closed {
		return ErrClosed
	}
	pc.streams = append(pc.streams, stream)
	return nil
}

func (pc *PeerConnection) SetRemoteDescription(desc rtc.SessionDescription) error {
	pc.mu.Lock()
	if pc.closed {
		pc.mu.Unlock()
		return ErrClosed
	}
	pc.remote = &desc
	pc.mu.Unlock()

	pc.listener.OnRemoteStream(&RemoteStream{
		id: fmt.Sprintf("remote-%d", pc.engine.nextId.Add(1)),
	})
	return nil
}

// +checklocks:pc.mu
func (pc *PeerConnection) sendsLocked() rtc.MediaOptions {
	var result rtc.MediaOptions
	for _, s := range pc.streams {
		if ls, ok := s.(*LocalStream); ok {
			result.Audio = result.Audio || ls.media.Audio
			result.Video = result.Video || ls.media.Video
		} else {
			result.Audio = true
			result.Video = true
		}
	}
	return result
}

func direction(send bool, receive bool) string {
	switch {
	case send && receive:
		return "sendrecv"
	case send:
		return "sendonly"
	case receive:
		return "recvonly"
	default:
		return "inactive"
	}
}

func (pc *PeerConnection) createDescription(typ string) (rtc.SessionDescription, error) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.closed {
		return rtc.SessionDescription{}, ErrClosed
	}
	if typ == "answer" && (pc.remote == nil || pc.remote.Type != "offer") {
		return rtc.SessionDescription{}, ErrNoOffer
	}

	send := pc.sendsLocked()
	var sb strings.Builder
	sb.WriteString("v=0\r\n")
	sb.WriteString("o=- 1234567890 2 IN IP4 127.0.0.1\r\n")
	sb.WriteString("s=-\r\n")
	sb.WriteString("t=0 0\r\n")
	sb.WriteString("m=audio 9 UDP/TLS/RTP/SAVPF 111\r\n")
	sb.WriteString("c=IN IP4 0.0.0.0\r\n")
	sb.WriteString("a=mid:0\r\n")
	sb.WriteString("a=" + direction(send.Audio, pc.config.Receive.Audio) + "\r\n")
	sb.WriteString("a=rtpmap:111 opus/48000/2\r\n")
	if send.Audio {
		fmt.Fprintf(&sb, "a=ssrc:%d cname:fake\r\n", AudioSSRC)
	}
	sb.WriteString("m=video 9 UDP/TLS/RTP/SAVPF 96\r\n")
	sb.WriteString("c=IN IP4 0.0.0.0\r\n")
	sb.WriteString("a=mid:1\r\n")
	sb.WriteString("a=" + direction(send.Video, pc.config.Receive.Video) + "\r\n")
	sb.WriteString("a=rtpmap:96 VP8/90000\r\n")
	if send.Video {
		fmt.Fprintf(&sb, "a=ssrc:%d cname:fake\r\n", VideoSSRC)
	}
	return rtc.SessionDescription{
		Type: typ,
		SDP:  sb.String(),
	}, nil
}

func (pc *PeerConnection) CreateOffer() (rtc.SessionDescription, error) {
	return pc.createDescription("offer")
}

func (pc *PeerConnection) CreateAnswer() (rtc.SessionDescription, error) {
	return pc.createDescription("answer")
}

func (pc *PeerConnection) SetLocalDescription(desc rtc.SessionDescription) error {
	pc.mu.Lock()
	if pc.closed {
		pc.mu.Unlock()
		return ErrClosed
	}
	started := pc.local != nil
	pc.local = &desc
	pc.mu.Unlock()

	if !started {
		go pc.gather()
	}
	return nil
}

func (pc *PeerConnection) gather() {
	if pc.gate != nil {
		<-pc.gate
	}

	for _, c := range pc.candidates {
		pc.mu.Lock()
		if pc.closed {
			pc.mu.Unlock()
			return
		}
		pc.gathered = append(pc.gathered, c)
		pc.mu.Unlock()

		pc.listener.OnICECandidate(&rtc.ICECandidate{
			Candidate: c,
			SdpMid:    "0",
		})
	}

	if !pc.Closed() {
		pc.listener.OnICECandidate(nil)
	}
}

func (pc *PeerConnection) LocalDescription() *rtc.SessionDescription {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.local == nil {
		return nil
	}

	result := *pc.local
	for _, c := range pc.gathered {
		result.SDP += "a=" + c + "\r\n"
	}
	return &result
}

func (pc *PeerConnection) AddICECandidate(candidate rtc.ICECandidate) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.closed {
		return ErrClosed
	}
	pc.remoteCandidates = append(pc.remoteCandidates, candidate)
	return nil
}

func (pc *PeerConnection) Close() error {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.closed = true
	return nil
}
