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
	"encoding/json"
	"fmt"
)

// StringMap maps string keys to arbitrary values.
type StringMap map[string]any

func (m StringMap) GetStringMap(key string) (StringMap, bool) {
	v, found := m[key]
	if !found {
		return nil, false
	}

	switch v := v.(type) {
	case map[string]any:
		return StringMap(v), true
	case StringMap:
		return v, true
	default:
		return nil, false
	}
}

func (m StringMap) GetString(key string) (string, bool) {
	v, found := m[key].(string)
	return v, found
}

// GetUint64 returns a numeric entry, regardless if it was decoded from JSON or
// set directly.
func (m StringMap) GetUint64(key string) (uint64, error) {
	v, found := m[key]
	if !found {
		return 0, fmt.Errorf("%s not found", key)
	}

	switch t := v.(type) {
	case float64:
		if t < 0 {
			return 0, fmt.Errorf("unsupported float64 number: %+v", t)
		}
		return uint64(t), nil
	case uint64:
		return t, nil
	case uint32:
		return uint64(t), nil
	case int:
		if t < 0 {
			return 0, fmt.Errorf("unsupported int number: %+v", t)
		}
		return uint64(t), nil
	case int64:
		if t < 0 {
			return 0, fmt.Errorf("unsupported int64 number: %+v", t)
		}
		return uint64(t), nil
	case json.Number:
		r, err := t.Int64()
		if err != nil {
			return 0, err
		} else if r < 0 {
			return 0, fmt.Errorf("unsupported JSON number: %+v", t)
		}
		return uint64(r), nil
	default:
		return 0, fmt.Errorf("unknown number type: %+v (%T)", t, t)
	}
}
