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
	"fmt"
	"net/url"
	"strings"
)

func hasStandardPort(u *url.URL) bool {
	switch u.Scheme {
	case "http", "ws":
		return u.Port() == "80"
	case "https", "wss":
		return u.Port() == "443"
	default:
		return false
	}
}

func isWebsocketUrl(u *url.URL) bool {
	return u.Scheme == "ws" || u.Scheme == "wss"
}

// canonicalizeServerUrl validates the url of a gateway and removes standard
// ports and trailing slashes.
func canonicalizeServerUrl(s string) (string, error) {
	u, err := url.Parse(s)
	if err != nil {
		return s, err
	}

	switch u.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return s, fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
	}
	if u.Host == "" {
		return s, fmt.Errorf("missing host in %s", s)
	}

	if strings.Contains(u.Host, ":") && hasStandardPort(u) {
		u.Host = u.Hostname()
	}
	u.Path = strings.TrimRight(u.Path, "/")
	return u.String(), nil
}
