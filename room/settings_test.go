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
package room

import (
	"testing"

	"github.com/dlintw/goconf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logtest "github.com/strukturag/janus-videoroom/log/test"
)

func TestLoadSettings(t *testing.T) {
	t.Setenv("ROOM_PASSWORD", "the-password")
	require := require.New(t)
	assert := assert.New(t)

	cfg := goconf.NewConfigFile()
	cfg.AddOption("room", "id", "room_123")
	cfg.AddOption("room", "user", "user008")
	cfg.AddOption("room", "password", "$(ROOM_PASSWORD)")
	cfg.AddOption("room", "opaqueidprefix", "recordplay-")

	s, err := LoadSettings(logtest.NewContextForTest(t), cfg)
	require.NoError(err)
	assert.Equal(DefaultPlugin, s.Plugin)
	assert.Equal("recordplay-", s.OpaqueIdPrefix)
	assert.Equal("room_123", s.Id)
	assert.Equal("user008", s.User)
	assert.Equal("the-password", s.Password)
}

func TestLoadSettingsMissing(t *testing.T) {
	t.Parallel()
	ctx := logtest.NewContextForTest(t)

	cfg := goconf.NewConfigFile()
	cfg.AddOption("room", "user", "user008")
	_, err := LoadSettings(ctx, cfg)
	assert.ErrorIs(t, err, ErrNoRoomId)

	cfg = goconf.NewConfigFile()
	cfg.AddOption("room", "id", "room_123")
	_, err = LoadSettings(ctx, cfg)
	assert.ErrorIs(t, err, ErrNoUserId)

	cfg.AddOption("room", "user", "user008")
	cfg.AddOption("room", "plugin", "janus.plugin.other")
	s, err := LoadSettings(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, "janus.plugin.other", s.Plugin)
	assert.Equal(t, DefaultOpaqueIdPrefix, s.OpaqueIdPrefix)
	assert.Empty(t, s.Password)
}
