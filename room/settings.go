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
	"context"
	"errors"

	"github.com/dlintw/goconf"

	"github.com/strukturag/janus-videoroom/config"
	"github.com/strukturag/janus-videoroom/log"
)

const (
	DefaultPlugin         = "janus.plugin.blitz"
	DefaultOpaqueIdPrefix = "videoroom-"
)

var (
	ErrNoRoomId = errors.New("no room id configured")
	ErrNoUserId = errors.New("no user id configured")
)

// Settings identify the room to join.
type Settings struct {
	Plugin         string
	OpaqueIdPrefix string

	Id       string
	User     string
	Password string
}

// LoadSettings reads the "room" section of the configuration.
func LoadSettings(ctx context.Context, cfg *goconf.ConfigFile) (*Settings, error) {
	logger := log.LoggerFromContext(ctx)
	s := &Settings{
		Plugin:         config.GetString(cfg, "room", "plugin", DefaultPlugin),
		OpaqueIdPrefix: config.GetString(cfg, "room", "opaqueidprefix", DefaultOpaqueIdPrefix),
		Id:             config.GetString(cfg, "room", "id", ""),
		User:           config.GetString(cfg, "room", "user", ""),
		Password:       config.GetString(cfg, "room", "password", ""),
	}
	if s.Id == "" {
		return nil, ErrNoRoomId
	}
	if s.User == "" {
		return nil, ErrNoUserId
	}
	if s.Password == "" {
		logger.Printf("No password configured for room %s", s.Id)
	}
	return s, nil
}
