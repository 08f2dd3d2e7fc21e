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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/strukturag/janus-videoroom/log"
)

// errPollExpired is returned if a long-poll got no reply within the poll
// timeout, the poll is then sent again.
var errPollExpired = errors.New("long-poll expired")

type httpTransport struct {
	logger   log.Logger
	server   string
	settings *Settings
	client   *http.Client

	handler   atomic.Pointer[TransportHandler]
	sessionId atomic.Uint64

	closed    atomic.Bool
	closeCtx  context.Context
	closeFunc context.CancelFunc
	wg        sync.WaitGroup
}

func newHttpTransport(ctx context.Context, u *url.URL, settings *Settings) (*httpTransport, error) {
	closeCtx, closeFunc := context.WithCancel(context.Background())
	return &httpTransport{
		logger:   log.LoggerFromContext(ctx),
		server:   u.String(),
		settings: settings,
		client:   &http.Client{},

		closeCtx:  closeCtx,
		closeFunc: closeFunc,
	}, nil
}

func (t *httpTransport) Start(handler TransportHandler) {
	t.handler.Store(&handler)
}

func (t *httpTransport) getHandler() TransportHandler {
	if h := t.handler.Load(); h != nil {
		return *h
	}
	return nil
}

func (t *httpTransport) deliver(data []byte) {
	handler := t.getHandler()
	if handler == nil {
		return
	}

	messages, err := splitMessages(data)
	if err != nil {
		t.logger.Printf("Could not decode %s: %s", string(data), err)
		return
	}

	for _, msg := range messages {
		handler.OnMessage(msg)
	}
}

func (t *httpTransport) getUrl(msg StringMap) (string, StringMap, error) {
	body := maps.Clone(msg)
	u := t.server
	if sid, found := body["session_id"]; found {
		delete(body, "session_id")
		u += "/" + fmt.Sprintf("%v", sid)
		if hid, found := body["handle_id"]; found {
			delete(body, "handle_id")
			u += "/" + fmt.Sprintf("%v", hid)
		}
	} else if _, found := body["handle_id"]; found {
		return "", nil, fmt.Errorf("handle_id without session_id")
	}
	return u, body, nil
}

func (t *httpTransport) Send(ctx context.Context, msg StringMap) error {
	if t.closed.Load() {
		return ErrTransportUnavailable
	}

	u, body, err := t.getUrl(msg)
	if err != nil {
		return err
	}

	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	response, err := t.client.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer response.Body.Close()

	reply, err := io.ReadAll(response.Body)
	if err != nil {
		return transportError(err)
	}

	if response.StatusCode != http.StatusOK {
		return transportError(fmt.Errorf("unexpected status %s from %s", response.Status, u))
	}

	t.deliver(reply)
	return nil
}

func (t *httpTransport) SessionCreated(id uint64) {
	if !t.sessionId.CompareAndSwap(0, id) {
		return
	}

	t.wg.Add(1)
	go t.poll(id)
}

func (t *httpTransport) NeedsKeepalive() bool {
	return false
}

func (t *httpTransport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}

	t.closeFunc()
	t.wg.Wait()
	t.client.CloseIdleConnections()
	return nil
}

func (t *httpTransport) getPollUrl(id uint64) string {
	query := url.Values{}
	query.Set("rid", strconv.FormatInt(time.Now().UnixMilli(), 10))
	if t.settings.MaxEvents > 0 {
		query.Set("maxev", strconv.Itoa(t.settings.MaxEvents))
	}
	if t.settings.Token != "" {
		query.Set("token", t.settings.Token)
	}
	if t.settings.ApiSecret != "" {
		query.Set("apisecret", t.settings.ApiSecret)
	}
	return t.server + "/" + strconv.FormatUint(id, 10) + "?" + query.Encode()
}

func (t *httpTransport) pollOnce(id uint64) ([]byte, error) {
	ctx, cancel := context.WithTimeout(t.closeCtx, t.settings.PollTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.getPollUrl(id), nil)
	if err != nil {
		return nil, err
	}

	response, err := t.client.Do(req)
	if err != nil {
		return nil, t.pollError(ctx, err)
	}
	defer response.Body.Close()

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, t.pollError(ctx, err)
	}

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", response.Status)
	}
	return data, nil
}

func (t *httpTransport) pollError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && t.closeCtx.Err() == nil {
		return errPollExpired
	}
	return err
}

func (t *httpTransport) poll(id uint64) {
	defer t.wg.Done()

	failures := 0
	for t.closeCtx.Err() == nil {
		data, err := t.pollOnce(id)
		if err != nil {
			if t.closeCtx.Err() != nil {
				return
			} else if errors.Is(err, errPollExpired) {
				continue
			}

			failures++
			t.logger.Printf("Long-poll for session %d failed (%d/%d): %s", id, failures, t.settings.PollRetries, err)
			if failures > t.settings.PollRetries {
				if handler := t.getHandler(); handler != nil {
					handler.OnConnectionLost(transportError(err))
				}
				return
			}
			continue
		}

		failures = 0
		t.deliver(data)

		select {
		case <-time.After(t.settings.PollDelay):
		case <-t.closeCtx.Done():
			return
		}
	}
}
