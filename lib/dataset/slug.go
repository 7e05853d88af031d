package dataset

import (
	"regexp"
	"strings"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// SlugId turns a set code or card code into a hyphenated record id, for
// example "DDD/S97-001" into "ddd-s97-001". Slugging is idempotent.
func SlugId(code string) string {
	return slug(code, "-")
}

// SlugImage is the underscore variant used for image path segments, for
// example "DDD/S97-001" into "ddd_s97_001".
func SlugImage(code string) string {
	return slug(code, "_")
}

func slug(code, separator string) string {
	normalized := nonAlphanumeric.ReplaceAllString(strings.ToLower(code), separator)
	return strings.Trim(normalized, separator)
}
