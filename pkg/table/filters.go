package table

import (
	"regexp"
	"strconv"
	"time"

	"github.com/hervehildenbrand/looking-glass/pkg/models"
)

// Columns lists the filterable column keys in display order.
var Columns = []string{
	"timestamp",
	"prefix",
	"length",
	"sourceasn",
	"sourceip",
	"aspath",
	"roa1",
	"aspa2",
	"aspa1",
	"numberpeers",
}

// TimestampColumn is re-encoded from DD.MM.YYYY HH:MM:SS to epoch seconds.
const TimestampColumn = "timestamp"

// Any run of dots, commas, whitespace or colons separates date components,
// so "26.10.2023 14:30:00" and "26.10.2023, 14:30:00" both parse.
var dateSeparators = regexp.MustCompile(`[.,\s:]+`)

// Date values outside ±8.64e15 ms are not representable as dates.
const maxDateMillis = 8.64e15

// EncodeTimestamp interprets value as a UTC date-time in the form
// DD.MM.YYYY HH:MM:SS and returns its epoch seconds. Each component is read
// as a leading integer; out-of-range components roll over into the next unit
// and two-digit years are taken as 19xx. ok is false when a component is
// missing or not numeric.
func EncodeTimestamp(value string) (seconds int64, ok bool) {
	parts := dateSeparators.Split(value, -1)
	if len(parts) < 6 {
		return 0, false
	}

	var c [6]int
	for i := range c {
		n, ok := leadingInt(parts[i])
		if !ok {
			return 0, false
		}
		c[i] = n
	}

	day, month, year := c[0], c[1], c[2]
	if year >= 0 && year <= 99 {
		year += 1900
	}

	t := time.Date(year, time.Month(month), day, c[3], c[4], c[5], 0, time.UTC)
	ms := float64(t.Unix()) * 1000
	if ms > maxDateMillis || ms < -maxDateMillis {
		return 0, false
	}
	return t.Unix(), true
}

// leadingInt parses an optional sign followed by decimal digits, ignoring
// anything after the digits ("14abc" is 14).
func leadingInt(s string) (int, bool) {
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// isColumn reports whether key names a filterable column.
func isColumn(key string) bool {
	for _, c := range Columns {
		if c == key {
			return true
		}
	}
	return false
}

// buildFilters returns the non-empty filters in column order. A timestamp
// that does not parse is sent as null.
func buildFilters(values map[string]string) []models.Filter {
	var filters []models.Filter
	for _, key := range Columns {
		value := values[key]
		if value == "" {
			continue
		}
		if key == TimestampColumn {
			if secs, ok := EncodeTimestamp(value); ok {
				filters = append(filters, models.Filter{Key: key, Value: secs})
			} else {
				filters = append(filters, models.Filter{Key: key, Value: nil})
			}
			continue
		}
		filters = append(filters, models.Filter{Key: key, Value: value})
	}
	return filters
}
