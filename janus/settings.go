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
	"context"
	"fmt"
	"time"

	"github.com/dlintw/goconf"

	"github.com/strukturag/janus-videoroom/config"
	"github.com/strukturag/janus-videoroom/log"
)

const (
	defaultTimeout           = 10 * time.Second
	defaultKeepaliveInterval = 30 * time.Second
	defaultPollTimeout       = 60 * time.Second
	defaultPollRetries       = 3
	defaultPollDelay         = 200 * time.Millisecond
	defaultRetryDelay        = 200 * time.Millisecond
	defaultMaxRetryDelay     = 5 * time.Second
	defaultRetryRounds       = 1
)

// Settings control how the gateway is contacted.
type Settings struct {
	// Servers are tried in the given order when creating a session.
	Servers []string

	Token     string
	ApiSecret string

	// MaxEvents is the number of events the gateway may return for a single
	// long-poll request.
	MaxEvents int

	// Timeout is applied to requests by callers that want one.
	Timeout           time.Duration
	KeepaliveInterval time.Duration
	PollTimeout       time.Duration
	PollRetries       int
	PollDelay         time.Duration

	// RetryDelay is the wait before the next server is tried, it doubles
	// with every attempt up to MaxRetryDelay.
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
	// RetryRounds is the number of times the server list is tried.
	RetryRounds int
}

func DefaultSettings() *Settings {
	return &Settings{
		MaxEvents:         1,
		Timeout:           defaultTimeout,
		KeepaliveInterval: defaultKeepaliveInterval,
		PollTimeout:       defaultPollTimeout,
		PollRetries:       defaultPollRetries,
		PollDelay:         defaultPollDelay,
		RetryDelay:        defaultRetryDelay,
		MaxRetryDelay:     defaultMaxRetryDelay,
		RetryRounds:       defaultRetryRounds,
	}
}

// LoadSettings reads the "janus" section of the configuration.
func LoadSettings(ctx context.Context, cfg *goconf.ConfigFile) (*Settings, error) {
	logger := log.LoggerFromContext(ctx)
	s := DefaultSettings()
	s.Servers = config.GetList(cfg, "janus", "servers")
	if len(s.Servers) == 0 {
		return nil, fmt.Errorf("no janus servers configured")
	}
	for idx, server := range s.Servers {
		canonical, err := canonicalizeServerUrl(server)
		if err != nil {
			return nil, fmt.Errorf("invalid server %s: %w", server, err)
		}
		s.Servers[idx] = canonical
	}
	logger.Printf("Using janus servers %v", s.Servers)

	s.Token = config.GetString(cfg, "janus", "token", "")
	s.ApiSecret = config.GetString(cfg, "janus", "apisecret", "")

	var err error
	if s.MaxEvents, err = config.GetInt(cfg, "janus", "maxevents", 1); err != nil {
		return nil, err
	}
	s.MaxEvents = max(s.MaxEvents, 1)
	if s.Timeout, err = config.GetDuration(cfg, "janus", "timeout", time.Second, defaultTimeout); err != nil {
		return nil, err
	}
	if s.KeepaliveInterval, err = config.GetDuration(cfg, "janus", "keepalive", time.Second, defaultKeepaliveInterval); err != nil {
		return nil, err
	} else if s.KeepaliveInterval <= 0 {
		s.KeepaliveInterval = defaultKeepaliveInterval
	}
	if s.PollTimeout, err = config.GetDuration(cfg, "janus", "polltimeout", time.Second, defaultPollTimeout); err != nil {
		return nil, err
	} else if s.PollTimeout <= 0 {
		s.PollTimeout = defaultPollTimeout
	}
	if s.PollRetries, err = config.GetInt(cfg, "janus", "pollretries", defaultPollRetries); err != nil {
		return nil, err
	} else if s.PollRetries < 0 {
		return nil, fmt.Errorf("invalid pollretries: %d", s.PollRetries)
	}
	if s.RetryDelay, err = config.GetDuration(cfg, "janus", "retrydelay", time.Millisecond, defaultRetryDelay); err != nil {
		return nil, err
	}
	if s.MaxRetryDelay, err = config.GetDuration(cfg, "janus", "maxretrydelay", time.Millisecond, defaultMaxRetryDelay); err != nil {
		return nil, err
	}
	s.MaxRetryDelay = max(s.MaxRetryDelay, s.RetryDelay)
	if s.RetryRounds, err = config.GetInt(cfg, "janus", "retryrounds", defaultRetryRounds); err != nil {
		return nil, err
	} else if s.RetryRounds < 1 {
		return nil, fmt.Errorf("invalid retryrounds: %d", s.RetryRounds)
	}
	logger.Printf("Using a timeout of %s for janus requests", s.Timeout)
	return s, nil
}
