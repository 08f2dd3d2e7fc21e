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
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/dlintw/goconf"
)

var (
	searchVarsRegexp = regexp.MustCompile(`\$\([A-Za-z][A-Za-z0-9_]*\)`)
)

func replaceEnvVars(s string) string {
	return searchVarsRegexp.ReplaceAllStringFunc(s, func(name string) string {
		name = name[2 : len(name)-1]
		value, found := os.LookupEnv(name)
		if !found {
			return name
		}

		return value
	})
}

// Load reads the configuration file with the given name.
func Load(filename string) (*goconf.ConfigFile, error) {
	config, err := goconf.ReadConfigFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read configuration from %s: %w", filename, err)
	}

	return config, nil
}

// GetStringOptionWithEnv will get the string option and resolve any environment
// variable references in the form "$(VAR)".
func GetStringOptionWithEnv(config *goconf.ConfigFile, section string, option string) (string, error) {
	value, err := config.GetString(section, option)
	if err != nil {
		return "", err
	}

	value = replaceEnvVars(value)
	return value, nil
}

// GetString returns the option with environment variables resolved or the
// default value if the option is not set.
func GetString(config *goconf.ConfigFile, section string, option string, defaultValue string) string {
	value, err := GetStringOptionWithEnv(config, section, option)
	if err != nil {
		return defaultValue
	}

	return strings.TrimSpace(value)
}

func GetStringOptions(config *goconf.ConfigFile, section string, ignoreErrors bool) (map[string]string, error) {
	options, _ := config.GetOptions(section)
	if len(options) == 0 {
		return nil, nil
	}

	result := make(map[string]string)
	for _, option := range options {
		value, err := GetStringOptionWithEnv(config, section, option)
		if err != nil {
			if ignoreErrors {
				continue
			}

			var ge goconf.GetError
			if errors.As(err, &ge) && ge.Reason == goconf.OptionNotFound {
				// Skip options from "default" section.
				continue
			}

			return nil, err
		}

		result[option] = value
	}

	return result, nil
}

// GetList returns the non-empty entries of a comma or whitespace separated
// option.
func GetList(config *goconf.ConfigFile, section string, option string) []string {
	value, err := GetStringOptionWithEnv(config, section, option)
	if err != nil {
		return nil
	}

	return strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}

func getValue(config *goconf.ConfigFile, section string, option string) (string, bool) {
	value, err := GetStringOptionWithEnv(config, section, option)
	if err != nil {
		return "", false
	}

	value = strings.TrimSpace(value)
	return value, value != ""
}

// GetInt returns the integer option or the default value if it is not set.
func GetInt(config *goconf.ConfigFile, section string, option string, defaultValue int) (int, error) {
	value, found := getValue(config, section, option)
	if !found {
		return defaultValue, nil
	}

	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s.%s: %w", section, option, err)
	}
	return result, nil
}

// GetFloat returns the float option or the default value if it is not set.
func GetFloat(config *goconf.ConfigFile, section string, option string, defaultValue float64) (float64, error) {
	value, found := getValue(config, section, option)
	if !found {
		return defaultValue, nil
	}

	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s.%s: %w", section, option, err)
	}
	return result, nil
}

// GetBool returns the boolean option or the default value if it is not set.
// Besides "true" and "false", the values "yes", "no", "on" and "off" are
// accepted.
func GetBool(config *goconf.ConfigFile, section string, option string, defaultValue bool) (bool, error) {
	value, found := getValue(config, section, option)
	if !found {
		return defaultValue, nil
	}

	switch strings.ToLower(value) {
	case "1", "t", "true", "y", "yes", "on":
		return true, nil
	case "0", "f", "false", "n", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid value for %s.%s: %s", section, option, value)
	}
}

// GetDuration returns the integer option multiplied by unit or the default
// value if it is not set.
func GetDuration(config *goconf.ConfigFile, section string, option string, unit time.Duration, defaultValue time.Duration) (time.Duration, error) {
	value, found := getValue(config, section, option)
	if !found {
		return defaultValue, nil
	}

	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s.%s: %w", section, option, err)
	} else if result < 0 {
		return 0, fmt.Errorf("invalid value for %s.%s: must not be negative", section, option)
	}
	return time.Duration(result) * unit, nil
}
