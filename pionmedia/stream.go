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
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
)

var (
	ErrStreamStopped = errors.New("stream stopped")
	ErrNoTrack       = errors.New("no track for media kind")
)

// LocalStream groups the local tracks that are sent to the gateway. The
// host application feeds encoded samples with WriteSample.
type LocalStream struct {
	id      string
	audio   *webrtc.TrackLocalStaticSample
	video   *webrtc.TrackLocalStaticSample
	stopped atomic.Bool
}

func (s *LocalStream) ID() string {
	return s.id
}

func (s *LocalStream) Stop() {
	s.stopped.Store(true)
}

func (s *LocalStream) Stopped() bool {
	return s.stopped.Load()
}

func (s *LocalStream) tracks() []webrtc.TrackLocal {
	var result []webrtc.TrackLocal
	if s.audio != nil {
		result = append(result, s.audio)
	}
	if s.video != nil {
		result = append(result, s.video)
	}
	return result
}

// WriteSample sends an encoded sample of the given kind.
func (s *LocalStream) WriteSample(kind webrtc.RTPCodecType, data []byte, duration time.Duration) error {
	if s.Stopped() {
		return ErrStreamStopped
	}

	var track *webrtc.TrackLocalStaticSample
	switch kind {
	case webrtc.RTPCodecTypeAudio:
		track = s.audio
	case webrtc.RTPCodecTypeVideo:
		track = s.video
	}
	if track == nil {
		return ErrNoTrack
	}

	return track.WriteSample(media.Sample{
		Data:     data,
		Duration: duration,
	})
}

// RemoteStream contains the tracks received from the gateway with the same
// stream id.
type RemoteStream struct {
	id string

	mu sync.Mutex
	// +checklocks:mu
	tracks []*webrtc.TrackRemote
}

func (s *RemoteStream) ID() string {
	return s.id
}

func (s *RemoteStream) Tracks() []*webrtc.TrackRemote {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*webrtc.TrackRemote(nil), s.tracks...)
}

func (s *RemoteStream) addTrack(track *webrtc.TrackRemote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracks = append(s.tracks, track)
}
