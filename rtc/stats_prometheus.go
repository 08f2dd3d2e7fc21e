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
	"github.com/prometheus/client_golang/prometheus"

	"github.com/strukturag/janus-videoroom/metrics"
)

var (
	statsSessionsCurrent = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "videoroom",
		Subsystem: "rtc",
		Name:      "sessions",
		Help:      "The current number of connected sessions",
	})
	statsSessionCreateTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "videoroom",
		Subsystem: "rtc",
		Name:      "session_create_total",
		Help:      "The total number of session create attempts by result",
	}, []string{"result"})
	statsHandlesCurrent = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "videoroom",
		Subsystem: "rtc",
		Name:      "handles",
		Help:      "The current number of attached plugin handles",
	})
	statsNegotiationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "videoroom",
		Subsystem: "rtc",
		Name:      "negotiations_total",
		Help:      "The total number of negotiations by type and result",
	}, []string{"type", "result"})
	statsTrickleCandidatesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "videoroom",
		Subsystem: "rtc",
		Name:      "trickle_candidates_total",
		Help:      "The total number of local candidates by result",
	}, []string{"result"})
	statsEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "videoroom",
		Subsystem: "rtc",
		Name:      "events_total",
		Help:      "The total number of events received from the gateway by type",
	}, []string{"type"})
	statsKeepalivesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "videoroom",
		Subsystem: "rtc",
		Name:      "keepalives_total",
		Help:      "The total number of keepalive requests by result",
	}, []string{"result"})

	rtcStats = []prometheus.Collector{
		statsSessionsCurrent,
		statsSessionCreateTotal,
		statsHandlesCurrent,
		statsNegotiationsTotal,
		statsTrickleCandidatesTotal,
		statsEventsTotal,
		statsKeepalivesTotal,
	}
)

func RegisterStats() {
	metrics.RegisterAll(rtcStats...)
}

func UnregisterStats() {
	metrics.UnregisterAll(rtcStats...)
}
