// Package jsonutil picks typed values out of decoded JSON payloads whose
// exact shape is not known ahead of time. The upstream card endpoints are
// unversioned and have changed key names before, so every accessor takes a
// list of candidate keys and returns the first match of the expected type.
package jsonutil

import (
	"math"
	"strconv"
	"strings"
)

// FirstString returns the trimmed value of the first key that holds a
// non-blank string. Values of any other type are skipped, so numeric ids
// and counts never masquerade as display text.
func FirstString(data map[string]any, keys ...string) string {
	for _, key := range keys {
		value, ok := data[key].(string)
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if value != "" {
			return value
		}
	}
	return ""
}

// FirstBool returns the first key that holds an actual boolean. Truthy
// strings and numbers do not count.
func FirstBool(data map[string]any, keys ...string) (bool, bool) {
	for _, key := range keys {
		if value, ok := data[key].(bool); ok {
			return value, true
		}
	}
	return false, false
}

// FirstInt returns the first integer found under keys. Whole JSON numbers
// and strings of ASCII digits qualify, and nested objects are searched
// recursively under the same key list. Fractional numbers are skipped.
func FirstInt(data map[string]any, keys ...string) (int, bool) {
	for _, key := range keys {
		value, ok := data[key]
		if !ok {
			continue
		}
		switch v := value.(type) {
		case float64:
			if v == math.Trunc(v) {
				return int(v), true
			}
		case string:
			s := strings.TrimSpace(v)
			if s == "" || !isDigits(s) {
				continue
			}
			n, err := strconv.Atoi(s)
			if err == nil {
				return n, true
			}
		case map[string]any:
			if n, ok := FirstInt(v, keys...); ok {
				return n, true
			}
		}
	}
	return 0, false
}

// FirstObject returns the first key that holds a JSON object, or nil.
func FirstObject(data map[string]any, keys ...string) map[string]any {
	for _, key := range keys {
		if value, ok := data[key].(map[string]any); ok {
			return value
		}
	}
	return nil
}

// Items locates the list of records inside payload. A top level array is
// returned as is. Objects are probed under keys; a direct array value wins
// even when empty, while an object value is searched one level deeper under
// nestedKeys for the first non-empty array. The second return reports
// whether any list was found at all.
func Items(payload any, keys, nestedKeys []string) ([]any, bool) {
	switch data := payload.(type) {
	case []any:
		return data, true
	case map[string]any:
		for _, key := range keys {
			switch value := data[key].(type) {
			case []any:
				return value, true
			case map[string]any:
				for _, nestedKey := range nestedKeys {
					nested, ok := value[nestedKey].([]any)
					if ok && len(nested) > 0 {
						return nested, true
					}
				}
			}
		}
	}
	return nil, false
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
