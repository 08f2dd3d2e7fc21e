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
package rtc_test

import (
	"testing"

	"github.com/dlintw/goconf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logtest "github.com/strukturag/janus-videoroom/log/test"
	"github.com/strukturag/janus-videoroom/rtc"
)

func TestLoadSettings(t *testing.T) {
	t.Parallel()
	require := require.New(t)
	assert := assert.New(t)

	cfg := goconf.NewConfigFile()
	cfg.AddOption("janus", "servers", "ws://localhost:8188")
	cfg.AddOption("webrtc", "iceservers", "stun:stun.example.com:3478, turn:turn.example.com")
	cfg.AddOption("webrtc", "trickle", "false")
	cfg.AddOption("webrtc", "ipv6", "true")
	cfg.AddOption("webrtc", "videobandwidth", "512")

	s, err := rtc.LoadSettings(logtest.NewContextForTest(t), cfg)
	require.NoError(err)
	assert.Equal([]string{"ws://localhost:8188"}, s.Janus.Servers)
	assert.Equal([]string{"stun:stun.example.com:3478", "turn:turn.example.com"}, s.ICEServers)
	assert.False(s.Trickle)
	assert.True(s.IPv6)
	assert.Equal(512, s.VideoBandwidth)
}

func TestLoadSettingsDefaults(t *testing.T) {
	t.Parallel()
	require := require.New(t)
	assert := assert.New(t)

	cfg := goconf.NewConfigFile()
	cfg.AddOption("janus", "servers", "ws://localhost:8188")

	s, err := rtc.LoadSettings(logtest.NewContextForTest(t), cfg)
	require.NoError(err)
	assert.Empty(s.ICEServers)
	assert.True(s.Trickle)
	assert.False(s.IPv6)
	assert.Equal(0, s.VideoBandwidth)
}

func TestLoadSettingsInvalid(t *testing.T) {
	t.Parallel()
	ctx := logtest.NewContextForTest(t)

	cfg := goconf.NewConfigFile()
	cfg.AddOption("janus", "servers", "ws://localhost:8188")
	cfg.AddOption("webrtc", "videobandwidth", "-1")
	_, err := rtc.LoadSettings(ctx, cfg)
	assert.Error(t, err)

	cfg = goconf.NewConfigFile()
	cfg.AddOption("janus", "servers", "ws://localhost:8188")
	cfg.AddOption("webrtc", "trickle", "maybe")
	_, err = rtc.LoadSettings(ctx, cfg)
	assert.Error(t, err)

	_, err = rtc.LoadSettings(ctx, goconf.NewConfigFile())
	assert.Error(t, err)
}
