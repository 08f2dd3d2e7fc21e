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
	"time"
)

// retryBackoff spaces out the attempts to create a session. The delay
// starts at the configured retry delay and doubles with every wait until it
// reaches the maximum.
type retryBackoff struct {
	initial time.Duration
	maximum time.Duration
	next    time.Duration
}

func newRetryBackoff(initial time.Duration, maximum time.Duration) *retryBackoff {
	initial = max(initial, 0)
	return &retryBackoff{
		initial: initial,
		maximum: max(maximum, initial),
		next:    initial,
	}
}

func (b *retryBackoff) Reset() {
	b.next = b.initial
}

func (b *retryBackoff) NextWait() time.Duration {
	return b.next
}

// Wait blocks for the next delay. It returns early with the error of the
// context if it is done before.
func (b *retryBackoff) Wait(ctx context.Context) error {
	delay := b.next
	b.next = min(b.next*2, b.maximum)
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
