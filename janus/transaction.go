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
	"sync"
)

// transaction is completed exactly once with the reply of the gateway or an
// error.
type transaction struct {
	ch   chan any
	once sync.Once

	// prepare is called with the reply before the waiting caller is notified,
	// on the goroutine that received it.
	prepare func(msg any)
}

func newTransaction() *transaction {
	return &transaction{
		ch: make(chan any, 1),
	}
}

func (t *transaction) complete(msg any) {
	t.once.Do(func() {
		if t.prepare != nil {
			t.prepare(msg)
		}
		t.ch <- msg
	})
}

func (t *transaction) wait(ctx context.Context) (any, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case msg := <-t.ch:
		if err, ok := msg.(error); ok {
			return nil, err
		}
		return msg, nil
	}
}

func newRequest(method string) (StringMap, *transaction) {
	req := make(StringMap, 8)
	req["janus"] = method
	return req, newTransaction()
}
