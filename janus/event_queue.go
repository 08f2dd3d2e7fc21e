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
	"reflect"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/strukturag/janus-videoroom/log"
)

// eventQueue will asynchronously execute functions while maintaining their
// order. Events of the gateway are delivered through it so listeners receive
// them in the order the gateway sent them.
type eventQueue struct {
	logger    log.Logger
	queue     chan func()
	stopped   chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once
}

func newEventQueue(logger log.Logger, queueSize int) *eventQueue {
	if queueSize < 0 {
		queueSize = 0
	}
	result := &eventQueue{
		logger:  logger,
		queue:   make(chan func(), queueSize),
		stopped: make(chan struct{}),
	}
	go result.run()
	return result
}

func (q *eventQueue) run() {
	defer close(q.stopped)

	for f := range q.queue {
		f()
	}
}

func getFunctionName(i any) string {
	return runtime.FuncForPC(reflect.ValueOf(i).Pointer()).Name()
}

// Execute schedules f to run after all previously scheduled functions.
// Functions scheduled after the queue was closed are dropped.
func (q *eventQueue) Execute(f func()) {
	if q.closed.Load() {
		return
	}

	defer func() {
		if e := recover(); e != nil {
			q.logger.Printf("Could not defer function %v: %+v", getFunctionName(f), e)
			q.logger.Printf("Called from %s", string(debug.Stack()))
		}
	}()

	q.queue <- f
}

func (q *eventQueue) Close() {
	q.closeOnce.Do(func() {
		q.closed.Store(true)
		close(q.queue)
	})
}

func (q *eventQueue) waitForStop() {
	<-q.stopped
}
