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
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func describe(collector prometheus.Collector) string {
	ch := make(chan *prometheus.Desc, 1)
	collector.Describe(ch)
	return (<-ch).String()
}

// serial fails tests that modify global collectors while running in parallel.
func serial(t *testing.T) {
	t.Setenv("VIDEOROOM_STATS_TEST", "1")
}

// ResetStatsValue sets the gauge to zero now and after the test finished.
func ResetStatsValue[T prometheus.Gauge](t *testing.T, gauge T) {
	serial(t)

	gauge.Set(0)
	t.Cleanup(func() {
		gauge.Set(0)
	})
}

// AssertCollectorChangeBy checks that the value of the collector changed by
// the given delta when the test finished.
func AssertCollectorChangeBy(t *testing.T, collector prometheus.Collector, delta float64) {
	t.Helper()

	name := describe(collector)
	before := testutil.ToFloat64(collector)
	t.Cleanup(func() {
		after := testutil.ToFloat64(collector)
		assert.InDelta(t, delta, after-before, 0.0001, "unexpected change of %s", name)
	})
}

func CheckStatsValue(t *testing.T, collector prometheus.Collector, value float64) {
	t.Helper()
	serial(t)

	assert.InDelta(t, value, testutil.ToFloat64(collector), 0.0001, "unexpected value of %s", describe(collector))
}

// CollectAndLint fails for every problem the prometheus linter reports.
func CollectAndLint(t *testing.T, collectors ...prometheus.Collector) {
	t.Helper()

	for _, collector := range collectors {
		problems, err := testutil.CollectAndLint(collector)
		if !assert.NoError(t, err, "can't lint %s", describe(collector)) {
			continue
		}

		for _, problem := range problems {
			assert.Fail(t, "metric has problems", "%s: %s", problem.Metric, problem.Text)
		}
	}
}
