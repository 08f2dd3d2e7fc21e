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
package layout

import (
	"testing"

	"github.com/dlintw/goconf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAspectRatio(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	testcases := map[string]float64{
		"4:3":       4.0 / 3.0,
		"16/9":      16.0 / 9.0,
		" 16 : 10 ": 1.6,
		"1.5":       1.5,
	}
	for s, expected := range testcases {
		value, err := ParseAspectRatio(s)
		if assert.NoError(err, "failed for %s", s) {
			assert.InDelta(expected, value, 0.0001, "failed for %s", s)
		}
	}

	invalid := []string{
		"",
		"abc",
		"0",
		"-1.5",
		"4:0",
		"x:3",
		"4/-3",
	}
	for _, s := range invalid {
		_, err := ParseAspectRatio(s)
		assert.Error(err, "should fail for %s", s)
	}
}

func TestLoadSpace(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	require := require.New(t)

	config := goconf.NewConfigFile()
	config.AddOption("layout", "width", "1920")
	config.AddOption("layout", "height", "1080")
	config.AddOption("layout", "marginouter", "20")
	config.AddOption("layout", "aspectratio", "16:9")
	config.AddOption("layout", "mainarea", "0.6")

	space, err := LoadSpace(config)
	require.NoError(err)
	assert.Equal(1920, space.Width)
	assert.Equal(1080, space.Height)
	assert.Equal(20, space.MarginOuter)
	assert.Equal(DefaultMarginInner, space.MarginInner)
	assert.InDelta(16.0/9.0, space.AspectRatio, 0.0001)
	assert.InDelta(0.6, space.MainAreaFraction, 0.0001)
}

func TestLoadSpaceDefaults(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	space, err := LoadSpace(goconf.NewConfigFile())
	if assert.NoError(err) {
		assert.Equal(DefaultSpace(0, 0), space)
	}
}

func TestLoadSpaceInvalid(t *testing.T) {
	t.Parallel()

	testcases := [][2]string{
		{"marginouter", "-1"},
		{"margininner", "-5"},
		{"aspectratio", "foo"},
		{"mainarea", "0"},
		{"mainarea", "1.5"},
	}
	for _, tc := range testcases {
		config := goconf.NewConfigFile()
		config.AddOption("layout", tc[0], tc[1])
		_, err := LoadSpace(config)
		assert.Error(t, err, "should fail for %s=%s", tc[0], tc[1])
	}
}
