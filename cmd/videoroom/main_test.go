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
package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/strukturag/janus-videoroom/janus"
	logtest "github.com/strukturag/janus-videoroom/log/test"
)

func TestJoinContext(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	settings := janus.DefaultSettings()
	settings.Servers = []string{"ws://janus1.example.com", "ws://janus2.example.com"}
	settings.Timeout = 5 * time.Second
	settings.MaxRetryDelay = time.Second
	settings.RetryRounds = 2

	start := time.Now()
	ctx, cancel := newJoinContext(logtest.NewContextForTest(t), settings)
	defer cancel()

	// Four attempts plus the join request, and the retry delays in between.
	deadline, found := ctx.Deadline()
	if assert.True(found) {
		assert.WithinRange(deadline, start.Add(29*time.Second), time.Now().Add(29*time.Second))
	}
	assert.NoError(ctx.Err())
}

func TestJoinContextNoTimeout(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	settings := janus.DefaultSettings()
	settings.Servers = []string{"ws://janus.example.com"}
	settings.Timeout = 0

	ctx, cancel := newJoinContext(logtest.NewContextForTest(t), settings)
	_, found := ctx.Deadline()
	assert.False(found)
	assert.NoError(ctx.Err())

	cancel()
	assert.ErrorIs(ctx.Err(), context.Canceled)
}
