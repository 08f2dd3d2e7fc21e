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
	"os"
	"path"
	"testing"
	"time"

	"github.com/dlintw/goconf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringOptions(t *testing.T) {
	t.Setenv("FOO", "foo")
	expected := map[string]string{
		"one": "1",
		"two": "2",
		"foo": "http://foo/1",
	}
	config := goconf.NewConfigFile()
	for k, v := range expected {
		if k == "foo" {
			config.AddOption("foo", k, "http://$(FOO)/1")
		} else {
			config.AddOption("foo", k, v)
		}
	}
	config.AddOption("default", "three", "3")

	options, err := GetStringOptions(config, "foo", false)
	require.NoError(t, err)
	assert.Equal(t, expected, options)
}

func TestStringOptionWithEnv(t *testing.T) {
	t.Setenv("FOO", "foo")
	t.Setenv("BAR", "")
	t.Setenv("BA_R", "bar")

	config := goconf.NewConfigFile()
	config.AddOption("test", "foo", "http://$(FOO)/1")
	config.AddOption("test", "bar", "http://$(BAR)/2")
	config.AddOption("test", "bar2", "http://$(BA_R)/3")
	config.AddOption("test", "baz", "http://$(BAZ)/4")
	config.AddOption("test", "inv1", "http://$(FOO")
	config.AddOption("test", "inv2", "http://$FOO)")
	config.AddOption("test", "inv3", "http://$((FOO)")
	config.AddOption("test", "inv4", "http://$(F.OO)")

	expected := map[string]string{
		"foo":  "http://foo/1",
		"bar":  "http:///2",
		"bar2": "http://bar/3",
		"baz":  "http://BAZ/4",
		"inv1": "http://$(FOO",
		"inv2": "http://$FOO)",
		"inv3": "http://$((FOO)",
		"inv4": "http://$(F.OO)",
	}
	for k, v := range expected {
		value, err := GetStringOptionWithEnv(config, "test", k)
		if assert.NoError(t, err, "expected value for %s", k) {
			assert.Equal(t, v, value, "unexpected value for %s", k)
		}
	}
}

func TestTypedOptions(t *testing.T) {
	t.Setenv("KEEPALIVE", "15")
	assert := assert.New(t)

	config := goconf.NewConfigFile()
	config.AddOption("janus", "maxevents", "5")
	config.AddOption("janus", "keepalive", "$(KEEPALIVE)")
	config.AddOption("janus", "token", " secret ")
	config.AddOption("webrtc", "trickle", "off")
	config.AddOption("webrtc", "ipv6", "Yes")
	config.AddOption("layout", "mainarea", "0.6")

	if value, err := GetInt(config, "janus", "maxevents", 1); assert.NoError(err) {
		assert.Equal(5, value)
	}
	if value, err := GetInt(config, "janus", "missing", 42); assert.NoError(err) {
		assert.Equal(42, value)
	}
	if value, err := GetDuration(config, "janus", "keepalive", time.Second, time.Minute); assert.NoError(err) {
		assert.Equal(15*time.Second, value)
	}
	if value, err := GetDuration(config, "janus", "timeout", time.Second, time.Minute); assert.NoError(err) {
		assert.Equal(time.Minute, value)
	}
	if value, err := GetBool(config, "webrtc", "trickle", true); assert.NoError(err) {
		assert.False(value)
	}
	if value, err := GetBool(config, "webrtc", "ipv6", false); assert.NoError(err) {
		assert.True(value)
	}
	if value, err := GetBool(config, "other", "ipv6", true); assert.NoError(err) {
		assert.True(value)
	}
	if value, err := GetFloat(config, "layout", "mainarea", 0.7); assert.NoError(err) {
		assert.InDelta(0.6, value, 0.0001)
	}
	assert.Equal("secret", GetString(config, "janus", "token", ""))
	assert.Equal("default", GetString(config, "janus", "apisecret", "default"))
}

func TestTypedOptionsInvalid(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	config := goconf.NewConfigFile()
	config.AddOption("test", "value", "foo")
	config.AddOption("test", "negative", "-1")

	_, err := GetInt(config, "test", "value", 0)
	assert.ErrorContains(err, "test.value")
	_, err = GetFloat(config, "test", "value", 0)
	assert.Error(err)
	_, err = GetBool(config, "test", "value", false)
	assert.Error(err)
	_, err = GetDuration(config, "test", "value", time.Second, 0)
	assert.Error(err)
	_, err = GetDuration(config, "test", "negative", time.Second, 0)
	assert.Error(err)
}

func TestLoad(t *testing.T) {
	t.Parallel()
	require := require.New(t)
	assert := assert.New(t)

	tmpdir := t.TempDir()
	filename := path.Join(tmpdir, "videoroom.conf")
	require.NoError(os.WriteFile(filename, []byte("[janus]\nservers = ws://localhost:8188\n"), 0644))

	config, err := Load(filename)
	require.NoError(err)
	value, err := config.GetString("janus", "servers")
	require.NoError(err)
	assert.Equal("ws://localhost:8188", value)

	_, err = Load(path.Join(tmpdir, "missing.conf"))
	assert.Error(err)
}

func TestGetList(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	config := goconf.NewConfigFile()
	config.AddOption("janus", "servers", "ws://one:8188, http://two:8088/janus,,  ")
	config.AddOption("webrtc", "iceservers", "stun:stun.example.com:3478 turn:turn.example.com")

	assert.Equal([]string{"ws://one:8188", "http://two:8088/janus"}, GetList(config, "janus", "servers"))
	assert.Equal([]string{"stun:stun.example.com:3478", "turn:turn.example.com"}, GetList(config, "webrtc", "iceservers"))
	assert.Empty(GetList(config, "janus", "missing"))
}
