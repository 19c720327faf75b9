package table

import (
	"regexp"
	"strings"
)

// A bar labelled with a full timestamp is the finest granularity.
var fullTimestamp = regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4} - \d{2}:\d{2}:\d{2}$`)

// IsFullTimestamp reports whether a bar label names a single point in time.
func IsFullTimestamp(label string) bool {
	return fullTimestamp.MatchString(label)
}

// SubLabel extracts the dataset path segment a bar label descends into:
// the part after the first " - " with the first " Uhr" removed.
// "26.10.2023 - Oktober 2023 Uhr" yields "Oktober 2023".
func SubLabel(label string) (string, bool) {
	parts := strings.Split(label, " - ")
	if len(parts) < 2 {
		return "", false
	}
	sub := strings.Replace(parts[1], " Uhr", "", 1)
	return sub, sub != ""
}

// parentPath removes the last segment of a dataset path.
func parentPath(path string) (string, bool) {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return "", false
	}
	return path[:i], true
}
