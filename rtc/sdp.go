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
	"fmt"
	"strconv"
	"strings"

	"github.com/pion/sdp/v3"
)

// SDPMangler post-processes local descriptions before they are sent to the
// gateway. The peer connection keeps the unmodified description.
type SDPMangler interface {
	Mangle(desc *SessionDescription) error
}

// SSRCRewriter replaces the first SSRC of the audio and video sections with
// the values announced by the plugin and optionally limits the bandwidth of
// the video sections. Zero values are left unchanged.
type SSRCRewriter struct {
	AudioSSRC uint32
	VideoSSRC uint32
	// VideoBandwidth in kbit/s.
	VideoBandwidth int
}

func (r *SSRCRewriter) Mangle(desc *SessionDescription) error {
	var s sdp.SessionDescription
	if err := s.Unmarshal([]byte(desc.SDP)); err != nil {
		return fmt.Errorf("could not parse %s: %w", desc.Type, err)
	}

	for _, m := range s.MediaDescriptions {
		switch m.MediaName.Media {
		case "audio":
			if r.AudioSSRC != 0 {
				rewriteSSRC(m, r.AudioSSRC)
			}
		case "video":
			if r.VideoSSRC != 0 {
				rewriteSSRC(m, r.VideoSSRC)
			}
			if r.VideoBandwidth > 0 {
				setBandwidth(m, "AS", uint64(r.VideoBandwidth))
			}
		}
	}

	data, err := s.Marshal()
	if err != nil {
		return fmt.Errorf("could not serialize %s: %w", desc.Type, err)
	}

	desc.SDP = string(data)
	return nil
}

func firstSSRC(m *sdp.MediaDescription) (string, bool) {
	for _, a := range m.Attributes {
		if a.Key != sdp.AttrKeySSRC {
			continue
		}

		if ssrc, _, _ := strings.Cut(a.Value, " "); ssrc != "" {
			return ssrc, true
		}
	}
	return "", false
}

func rewriteSSRC(m *sdp.MediaDescription, ssrc uint32) {
	old, found := firstSSRC(m)
	if !found {
		return
	}

	replacement := strconv.FormatUint(uint64(ssrc), 10)
	for idx, a := range m.Attributes {
		switch a.Key {
		case sdp.AttrKeySSRC:
			if value, rest, _ := strings.Cut(a.Value, " "); value == old {
				if rest != "" {
					m.Attributes[idx].Value = replacement + " " + rest
				} else {
					m.Attributes[idx].Value = replacement
				}
			}
		case sdp.AttrKeySSRCGroup:
			fields := strings.Fields(a.Value)
			// The first field is the semantics of the group.
			for i := 1; i < len(fields); i++ {
				if fields[i] == old {
					fields[i] = replacement
				}
			}
			m.Attributes[idx].Value = strings.Join(fields, " ")
		}
	}
}

func setBandwidth(m *sdp.MediaDescription, typ string, value uint64) {
	for idx, b := range m.Bandwidth {
		if b.Type == typ {
			m.Bandwidth[idx].Bandwidth = value
			return
		}
	}

	m.Bandwidth = append(m.Bandwidth, sdp.Bandwidth{
		Type:      typ,
		Bandwidth: value,
	})
}
