// ABOUTME: Helpers for reading create form values and channel settings.
// ABOUTME: Used by plugins to build and interpret their settings bags.

package core

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// FormInt reads an integer field, using def when the field is empty
func FormInt(values url.Values, key string, def, min, max int) (int, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a whole number", key)
	}
	if n < min || n > max {
		return 0, fmt.Errorf("%s must be between %d and %d", key, min, max)
	}
	return n, nil
}

// FormBool reads a checkbox field
func FormBool(values url.Values, key string) bool {
	switch strings.ToLower(strings.TrimSpace(values.Get(key))) {
	case "true", "1", "on", "yes":
		return true
	default:
		return false
	}
}

// FormChoice reads a select field, rejecting values outside options
func FormChoice(values url.Values, key string, options []string) (string, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return options[0], nil
	}
	for _, opt := range options {
		if opt == raw {
			return raw, nil
		}
	}
	return "", fmt.Errorf("%s must be one of %s", key, strings.Join(options, ", "))
}

// SettingInt reads an integer from a settings bag. JSON numbers decode as float64.
func SettingInt(s Settings, key string, def int) int {
	switch v := s[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// SettingBool reads a boolean from a settings bag
func SettingBool(s Settings, key string) bool {
	switch v := s[key].(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "1"
	default:
		return false
	}
}

// SettingString reads a string from a settings bag
func SettingString(s Settings, key, def string) string {
	if v, ok := s[key].(string); ok && v != "" {
		return v
	}
	return def
}
