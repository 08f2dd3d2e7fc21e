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
package test

import (
	"context"
	stdlog "log"
	"sync"
	"testing"

	"github.com/strukturag/janus-videoroom/log"
)

var (
	testLoggersMu sync.Mutex
	// +checklocks:testLoggersMu
	testLoggers = make(map[string]log.Logger)
)

// NewLoggerForTest returns a logger that writes to the output of the test.
// Subsequent calls for the same test return the same logger.
func NewLoggerForTest(t testing.TB) log.Logger {
	t.Helper()

	name := t.Name()
	testLoggersMu.Lock()
	defer testLoggersMu.Unlock()
	if logger, found := testLoggers[name]; found {
		return logger
	}

	logger := stdlog.New(t.Output(), name+": ", stdlog.LstdFlags|stdlog.Lmicroseconds|stdlog.Lshortfile)
	testLoggers[name] = logger
	t.Cleanup(func() {
		testLoggersMu.Lock()
		defer testLoggersMu.Unlock()
		delete(testLoggers, name)
	})
	return logger
}

// NewContextForTest returns the context of the test with a logger attached.
func NewContextForTest(t testing.TB) context.Context {
	t.Helper()

	return log.NewLoggerContext(t.Context(), NewLoggerForTest(t))
}
