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
package pionmedia

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"

	"github.com/strukturag/janus-videoroom/log"
	"github.com/strukturag/janus-videoroom/rtc"
)

var (
	ErrUnsupportedStream = errors.New("unsupported local stream")
)

// Engine creates local streams and peer connections backed by pion.
type Engine struct {
	logger log.Logger
}

func NewEngine(ctx context.Context) *Engine {
	return &Engine{
		logger: log.LoggerFromContext(ctx),
	}
}

// GetUserMedia creates the local tracks for the requested media. Audio is
// sent as opus, video as VP8.
func (e *Engine) GetUserMedia(ctx context.Context, options rtc.MediaOptions) (rtc.LocalStream, error) {
	if options.Empty() {
		return nil, fmt.Errorf("no media requested")
	}

	stream := &LocalStream{
		id: uuid.NewString(),
	}
	if options.Audio {
		track, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{
			MimeType:  webrtc.MimeTypeOpus,
			ClockRate: 48000,
			Channels:  2,
		}, "audio", stream.id)
		if err != nil {
			return nil, err
		}
		stream.audio = track
	}
	if options.Video {
		track, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{
			MimeType:  webrtc.MimeTypeVP8,
			ClockRate: 90000,
		}, "video", stream.id)
		if err != nil {
			return nil, err
		}
		stream.video = track
	}
	return stream, nil
}

func iceServers(urls []string) []webrtc.ICEServer {
	result := make([]webrtc.ICEServer, 0, len(urls))
	for _, u := range urls {
		result = append(result, webrtc.ICEServer{
			URLs: []string{u},
		})
	}
	return result
}

func (e *Engine) newAPI(config rtc.PeerConnectionConfig) (*webrtc.API, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, err
	}

	var se webrtc.SettingEngine
	networks := []webrtc.NetworkType{
		webrtc.NetworkTypeUDP4,
		webrtc.NetworkTypeTCP4,
	}
	if config.IPv6 {
		networks = append(networks, webrtc.NetworkTypeUDP6, webrtc.NetworkTypeTCP6)
	}
	se.SetNetworkTypes(networks)

	return webrtc.NewAPI(webrtc.WithMediaEngine(m), webrtc.WithSettingEngine(se)), nil
}

func (e *Engine) NewPeerConnection(config rtc.PeerConnectionConfig, listener rtc.PeerConnectionListener) (rtc.PeerConnection, error) {
	api, err := e.newAPI(config)
	if err != nil {
		return nil, err
	}

	pc, err := api.NewPeerConnection(webrtc.Configuration{
		ICEServers: iceServers(config.ICEServers),
	})
	if err != nil {
		return nil, err
	}

	result := &PeerConnection{
		logger:   e.logger,
		pc:       pc,
		listener: listener,
		receive:  config.Receive,
		remote:   make(map[string]*RemoteStream),
	}
	pc.OnICECandidate(result.onICECandidate)
	pc.OnTrack(result.onTrack)
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		result.logger.Printf("Peer connection state changed to %s", state)
	})
	return result, nil
}

// PeerConnection wraps a pion peer connection.
type PeerConnection struct {
	logger   log.Logger
	pc       *webrtc.PeerConnection
	listener rtc.PeerConnectionListener
	receive  rtc.MediaOptions

	mu sync.Mutex
	// +checklocks:mu
	sending rtc.MediaOptions
	// +checklocks:mu
	receivers bool
	// +checklocks:mu
	remote map[string]*RemoteStream
}

func (p *PeerConnection) onICECandidate(candidate *webrtc.ICECandidate) {
	if candidate == nil {
		p.listener.OnICECandidate(nil)
		return
	}

	init := candidate.ToJSON()
	c := &rtc.ICECandidate{
		Candidate: init.Candidate,
	}
	if init.SDPMid != nil {
		c.SdpMid = *init.SDPMid
	}
	if init.SDPMLineIndex != nil {
		c.SdpMLineIndex = *init.SDPMLineIndex
	}
	p.listener.OnICECandidate(c)
}

func (p *PeerConnection) onTrack(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
	p.logger.Printf("Received %s track %s of stream %s", track.Kind(), track.ID(), track.StreamID())

	p.mu.Lock()
	stream, found := p.remote[track.StreamID()]
	if !found {
		stream = &RemoteStream{
			id: track.StreamID(),
		}
		p.remote[stream.id] = stream
	}
	stream.addTrack(track)
	p.mu.Unlock()

	if !found {
		p.listener.OnRemoteStream(stream)
	}

	go discardTrack(track)
}

// discardTrack reads the track until it is closed so the buffers of the
// receiver don't fill up.
func discardTrack(track *webrtc.TrackRemote) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := track.Read(buf); err != nil {
			return
		}
	}
}

func (p *PeerConnection) AddStream(stream rtc.LocalStream) error {
	s, ok := stream.(*LocalStream)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnsupportedStream, stream)
	}

	for _, track := range s.tracks() {
		if _, err := p.pc.AddTrack(track); err != nil {
			return err
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.sending.Audio = p.sending.Audio || s.audio != nil
	p.sending.Video = p.sending.Video || s.video != nil
	return nil
}

// addReceivers adds receive-only transceivers for media that is received
// but not sent.
func (p *PeerConnection) addReceivers() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.receivers {
		return nil
	}
	p.receivers = true

	if p.receive.Audio && !p.sending.Audio {
		if _, err := p.pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio, webrtc.RTPTransceiverInit{
			Direction: webrtc.RTPTransceiverDirectionRecvonly,
		}); err != nil {
			return err
		}
	}
	if p.receive.Video && !p.sending.Video {
		if _, err := p.pc.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo, webrtc.RTPTransceiverInit{
			Direction: webrtc.RTPTransceiverDirectionRecvonly,
		}); err != nil {
			return err
		}
	}
	return nil
}

func toPion(desc rtc.SessionDescription) webrtc.SessionDescription {
	return webrtc.SessionDescription{
		Type: webrtc.NewSDPType(desc.Type),
		SDP:  desc.SDP,
	}
}

func fromPion(desc webrtc.SessionDescription) rtc.SessionDescription {
	return rtc.SessionDescription{
		Type: desc.Type.String(),
		SDP:  desc.SDP,
	}
}

func (p *PeerConnection) SetRemoteDescription(desc rtc.SessionDescription) error {
	return p.pc.SetRemoteDescription(toPion(desc))
}

func (p *PeerConnection) CreateOffer() (rtc.SessionDescription, error) {
	if err := p.addReceivers(); err != nil {
		return rtc.SessionDescription{}, err
	}

	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return rtc.SessionDescription{}, err
	}
	return fromPion(offer), nil
}

func (p *PeerConnection) CreateAnswer() (rtc.SessionDescription, error) {
	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return rtc.SessionDescription{}, err
	}
	return fromPion(answer), nil
}

func (p *PeerConnection) SetLocalDescription(desc rtc.SessionDescription) error {
	return p.pc.SetLocalDescription(toPion(desc))
}

func (p *PeerConnection) LocalDescription() *rtc.SessionDescription {
	desc := p.pc.LocalDescription()
	if desc == nil {
		return nil
	}

	result := fromPion(*desc)
	return &result
}

func (p *PeerConnection) AddICECandidate(candidate rtc.ICECandidate) error {
	mid := candidate.SdpMid
	index := candidate.SdpMLineIndex
	return p.pc.AddICECandidate(webrtc.ICECandidateInit{
		Candidate:     candidate.Candidate,
		SDPMid:        &mid,
		SDPMLineIndex: &index,
	})
}

func (p *PeerConnection) Close() error {
	return p.pc.Close()
}
