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
	"testing"
	"time"

	"github.com/dlintw/goconf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logtest "github.com/strukturag/janus-videoroom/log/test"
)

func TestLoadSettings(t *testing.T) {
	t.Parallel()
	require := require.New(t)
	assert := assert.New(t)

	cfg := goconf.NewConfigFile()
	cfg.AddOption("janus", "servers", "wss://janus1.example.com:443/ws/, http://janus2.example.com:8088/janus")
	cfg.AddOption("janus", "token", "the-token")
	cfg.AddOption("janus", "apisecret", "the-secret")
	cfg.AddOption("janus", "maxevents", "10")
	cfg.AddOption("janus", "timeout", "5")
	cfg.AddOption("janus", "keepalive", "20")
	cfg.AddOption("janus", "pollretries", "0")
	cfg.AddOption("janus", "retrydelay", "500")
	cfg.AddOption("janus", "maxretrydelay", "2000")
	cfg.AddOption("janus", "retryrounds", "3")

	s, err := LoadSettings(logtest.NewContextForTest(t), cfg)
	require.NoError(err)
	assert.Equal([]string{
		"wss://janus1.example.com/ws",
		"http://janus2.example.com:8088/janus",
	}, s.Servers)
	assert.Equal("the-token", s.Token)
	assert.Equal("the-secret", s.ApiSecret)
	assert.Equal(10, s.MaxEvents)
	assert.Equal(5*time.Second, s.Timeout)
	assert.Equal(20*time.Second, s.KeepaliveInterval)
	assert.Equal(defaultPollTimeout, s.PollTimeout)
	assert.Equal(0, s.PollRetries)
	assert.Equal(500*time.Millisecond, s.RetryDelay)
	assert.Equal(2*time.Second, s.MaxRetryDelay)
	assert.Equal(3, s.RetryRounds)
}

func TestLoadSettingsDefaults(t *testing.T) {
	t.Parallel()
	require := require.New(t)
	assert := assert.New(t)

	cfg := goconf.NewConfigFile()
	cfg.AddOption("janus", "servers", "ws://localhost:8188")
	cfg.AddOption("janus", "maxevents", "0")

	s, err := LoadSettings(logtest.NewContextForTest(t), cfg)
	require.NoError(err)
	assert.Equal([]string{"ws://localhost:8188"}, s.Servers)
	assert.Equal(1, s.MaxEvents)
	assert.Equal(defaultTimeout, s.Timeout)
	assert.Equal(defaultKeepaliveInterval, s.KeepaliveInterval)
	assert.Equal(defaultPollRetries, s.PollRetries)
	assert.Equal(defaultRetryDelay, s.RetryDelay)
	assert.Equal(defaultMaxRetryDelay, s.MaxRetryDelay)
	assert.Equal(defaultRetryRounds, s.RetryRounds)
}

func TestLoadSettingsMaxRetryDelay(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	cfg := goconf.NewConfigFile()
	cfg.AddOption("janus", "servers", "ws://localhost:8188")
	cfg.AddOption("janus", "retrydelay", "1000")
	cfg.AddOption("janus", "maxretrydelay", "100")

	s, err := LoadSettings(logtest.NewContextForTest(t), cfg)
	require.NoError(err)
	assert.Equal(t, time.Second, s.RetryDelay)
	assert.Equal(t, time.Second, s.MaxRetryDelay)
}

func TestLoadSettingsInvalid(t *testing.T) {
	t.Parallel()
	ctx := logtest.NewContextForTest(t)

	testcases := map[string]map[string]string{
		"no servers": {},
		"unsupported scheme": {
			"servers": "ftp://localhost",
		},
		"missing host": {
			"servers": "ws:///ws",
		},
		"invalid timeout": {
			"servers": "ws://localhost",
			"timeout": "soon",
		},
		"negative retries": {
			"servers":     "ws://localhost",
			"pollretries": "-1",
		},
		"negative retry delay": {
			"servers":    "ws://localhost",
			"retrydelay": "-1",
		},
		"no retry rounds": {
			"servers":     "ws://localhost",
			"retryrounds": "0",
		},
	}
	for name, options := range testcases {
		t.Run(name, func(t *testing.T) {
			cfg := goconf.NewConfigFile()
			for option, value := range options {
				cfg.AddOption("janus", option, value)
			}
			_, err := LoadSettings(ctx, cfg)
			assert.Error(t, err)
		})
	}

	cfg := goconf.NewConfigFile()
	cfg.AddOption("janus", "servers", "udp://localhost")
	_, err := LoadSettings(ctx, cfg)
	assert.ErrorIs(t, err, ErrUnsupportedScheme)
}
