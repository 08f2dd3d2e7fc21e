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
	"net"

	"github.com/pion/ice/v4"
)

// skipCandidate returns true if the candidate must not be sent to the
// gateway. IPv6 candidates are only sent if enabled. Candidates that can't be
// parsed are passed to the gateway unchanged.
func skipCandidate(candidate *ICECandidate, ipv6 bool) bool {
	if ipv6 || candidate.Candidate == "" {
		return false
	}

	c, err := ice.UnmarshalCandidate(candidate.Candidate)
	if err != nil {
		return false
	}

	if c.NetworkType().IsIPv6() {
		return true
	}

	ip := net.ParseIP(c.Address())
	return ip != nil && ip.To4() == nil
}
