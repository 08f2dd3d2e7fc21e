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
package config

import (
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dlintw/goconf"
	"github.com/fsnotify/fsnotify"

	"github.com/strukturag/janus-videoroom/log"
)

const (
	defaultDeduplicateWatchEvents = 100 * time.Millisecond
)

var (
	deduplicateWatchEvents atomic.Int64
)

func init() {
	deduplicateWatchEvents.Store(int64(defaultDeduplicateWatchEvents))
}

// ReloadFunc is called with the new configuration after the watched file
// changed.
type ReloadFunc func(config *goconf.ConfigFile)

// Watcher reloads a configuration file whenever it is modified, replaced or
// a symlink to it changes its target.
type Watcher struct {
	logger   log.Logger
	filename string
	callback ReloadFunc

	// +checklocks:mu
	target string
	mu     sync.Mutex

	watcher   *fsnotify.Watcher
	closeCtx  context.Context
	closeFunc context.CancelFunc
	closed    sync.WaitGroup
}

func NewWatcher(ctx context.Context, filename string, callback ReloadFunc) (*Watcher, error) {
	realFilename, err := filepath.EvalSymlinks(filename)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := watcher.Add(realFilename); err != nil {
		watcher.Close() // nolint
		return nil, err
	}

	if err := watcher.Add(path.Dir(filename)); err != nil {
		watcher.Close() // nolint
		return nil, err
	}

	closeCtx, closeFunc := context.WithCancel(context.Background())

	w := &Watcher{
		logger:   log.LoggerFromContext(ctx),
		filename: filename,
		target:   realFilename,
		callback: callback,
		watcher:  watcher,

		closeCtx:  closeCtx,
		closeFunc: closeFunc,
	}
	w.closed.Add(1)
	go w.run()
	return w, nil
}

func (w *Watcher) Close() error {
	w.closeFunc()
	err := w.watcher.Close()
	w.closed.Wait()
	return err
}

func (w *Watcher) reload() {
	if w.closeCtx.Err() != nil {
		return
	}

	config, err := Load(w.filename)
	if err != nil {
		w.logger.Printf("Could not reload %s: %s", w.filename, err)
		return
	}

	w.callback(config)
}

func (w *Watcher) run() {
	defer w.closed.Done()

	var mu sync.Mutex
	var timer *time.Timer

	trigger := func() {
		deduplicate := time.Duration(deduplicateWatchEvents.Load())
		if deduplicate <= 0 {
			w.reload()
			return
		}

		// Multiple events are generated for a single write.
		mu.Lock()
		defer mu.Unlock()
		if timer == nil {
			timer = time.AfterFunc(deduplicate, func() {
				mu.Lock()
				timer = nil
				mu.Unlock()

				w.reload()
			})
		} else {
			timer.Reset(deduplicate)
		}
	}
	defer func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			if stat, err := os.Lstat(event.Name); err != nil {
				if !errors.Is(err, os.ErrNotExist) {
					w.logger.Printf("Could not lstat %s: %s", event.Name, err)
				}
			} else if stat.Mode()&os.ModeSymlink != 0 {
				target, err := filepath.EvalSymlinks(event.Name)
				w.mu.Lock()
				changed := err == nil && target != w.target && strings.HasSuffix(event.Name, w.filename)
				if changed {
					w.target = target
				}
				w.mu.Unlock()
				if changed {
					trigger()
				}
				continue
			}

			w.mu.Lock()
			target := w.target
			w.mu.Unlock()
			if strings.HasSuffix(event.Name, w.filename) || strings.HasSuffix(event.Name, target) {
				trigger()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok || err == nil {
				return
			}

			w.logger.Printf("Error watching %s: %s", w.filename, err)
		case <-w.closeCtx.Done():
			return
		}
	}
}
