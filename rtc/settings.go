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
	"fmt"

	"github.com/dlintw/goconf"

	"github.com/strukturag/janus-videoroom/config"
	"github.com/strukturag/janus-videoroom/janus"
	"github.com/strukturag/janus-videoroom/log"
)

type Settings struct {
	Janus *janus.Settings

	ICEServers []string
	// Trickle sends candidates as they are gathered instead of waiting for
	// the gathering to complete.
	Trickle bool
	IPv6    bool
	// VideoBandwidth is announced for video in kbit/s if positive.
	VideoBandwidth int
}

func DefaultSettings() *Settings {
	return &Settings{
		Janus:   janus.DefaultSettings(),
		Trickle: true,
	}
}

// LoadSettings reads the "janus" and "webrtc" sections of the configuration.
func LoadSettings(ctx context.Context, cfg *goconf.ConfigFile) (*Settings, error) {
	logger := log.LoggerFromContext(ctx)
	janusSettings, err := janus.LoadSettings(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := DefaultSettings()
	s.Janus = janusSettings
	s.ICEServers = config.GetList(cfg, "webrtc", "iceservers")
	if s.Trickle, err = config.GetBool(cfg, "webrtc", "trickle", true); err != nil {
		return nil, err
	}
	if s.IPv6, err = config.GetBool(cfg, "webrtc", "ipv6", false); err != nil {
		return nil, err
	}
	if s.VideoBandwidth, err = config.GetInt(cfg, "webrtc", "videobandwidth", 0); err != nil {
		return nil, err
	} else if s.VideoBandwidth < 0 {
		return nil, fmt.Errorf("invalid videobandwidth: %d", s.VideoBandwidth)
	}

	if len(s.ICEServers) > 0 {
		logger.Printf("Using ICE servers %v", s.ICEServers)
	} else {
		logger.Println("No ICE servers configured")
	}
	if !s.Trickle {
		logger.Println("Trickle ICE is disabled, waiting for candidate gathering before sending descriptions")
	}
	return s, nil
}
