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
	"fmt"
	"strconv"
	"strings"

	"github.com/dlintw/goconf"

	"github.com/strukturag/janus-videoroom/config"
)

const (
	DefaultMarginOuter      = 40
	DefaultMarginInner      = 10
	DefaultAspectRatio      = 4.0 / 3.0
	DefaultMainAreaFraction = 0.7
)

func DefaultSpace(width int, height int) Space {
	return Space{
		Width:            width,
		Height:           height,
		MarginOuter:      DefaultMarginOuter,
		MarginInner:      DefaultMarginInner,
		AspectRatio:      DefaultAspectRatio,
		MainAreaFraction: DefaultMainAreaFraction,
	}
}

// ParseAspectRatio parses ratios like "4:3", "16/9" or "1.5".
func ParseAspectRatio(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if w, h, found := strings.Cut(s, ":"); found {
		return parseRatio(w, h)
	} else if w, h, found := strings.Cut(s, "/"); found {
		return parseRatio(w, h)
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	} else if value <= 0 {
		return 0, fmt.Errorf("aspect ratio must be positive, got %s", s)
	}
	return value, nil
}

func parseRatio(w string, h string) (float64, error) {
	width, err := strconv.ParseFloat(strings.TrimSpace(w), 64)
	if err != nil {
		return 0, err
	}
	height, err := strconv.ParseFloat(strings.TrimSpace(h), 64)
	if err != nil {
		return 0, err
	}
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("invalid aspect ratio %s:%s", w, h)
	}
	return width / height, nil
}

// LoadSpace reads the "layout" section of the configuration.
func LoadSpace(cfg *goconf.ConfigFile) (Space, error) {
	width, err := config.GetInt(cfg, "layout", "width", 0)
	if err != nil {
		return Space{}, err
	}
	height, err := config.GetInt(cfg, "layout", "height", 0)
	if err != nil {
		return Space{}, err
	}
	space := DefaultSpace(max(width, 0), max(height, 0))

	if space.MarginOuter, err = config.GetInt(cfg, "layout", "marginouter", DefaultMarginOuter); err != nil {
		return Space{}, err
	} else if space.MarginOuter < 0 {
		return Space{}, fmt.Errorf("invalid marginouter: %d", space.MarginOuter)
	}
	if space.MarginInner, err = config.GetInt(cfg, "layout", "margininner", DefaultMarginInner); err != nil {
		return Space{}, err
	} else if space.MarginInner < 0 {
		return Space{}, fmt.Errorf("invalid margininner: %d", space.MarginInner)
	}
	if value := config.GetString(cfg, "layout", "aspectratio", ""); value != "" {
		ratio, err := ParseAspectRatio(value)
		if err != nil {
			return Space{}, fmt.Errorf("invalid aspectratio: %w", err)
		}
		space.AspectRatio = ratio
	}
	if space.MainAreaFraction, err = config.GetFloat(cfg, "layout", "mainarea", DefaultMainAreaFraction); err != nil {
		return Space{}, err
	} else if space.MainAreaFraction <= 0 || space.MainAreaFraction >= 1 {
		return Space{}, fmt.Errorf("mainarea must be between 0 and 1, got %f", space.MainAreaFraction)
	}
	return space, nil
}
