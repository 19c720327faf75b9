package table

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hervehildenbrand/looking-glass/pkg/models"
)

// Sort directions
const (
	SortNone = ""
	SortAsc  = "asc"
	SortDesc = "desc"
)

// Sort toggles client-side ordering of the loaded records by column. A new
// column starts ascending; repeated calls cycle asc, desc, none. The order
// is kept across fetches and pages.
func (t *Table) Sort(column string) error {
	if !isColumn(column) {
		return fmt.Errorf("unknown sort column %q", column)
	}

	t.mu.Lock()
	switch {
	case t.sortColumn != column:
		t.sortColumn, t.sortDir = column, SortAsc
	case t.sortDir == SortAsc:
		t.sortDir = SortDesc
	default:
		t.sortColumn, t.sortDir = "", SortNone
	}
	t.mu.Unlock()
	t.changed()
	return nil
}

// sortedLocked returns the records in display order together with each
// record's row id, its index in arrival order. Caller must hold t.mu.
func (t *Table) sortedLocked() ([]models.Record, []int) {
	ids := make([]int, len(t.records))
	for i := range ids {
		ids[i] = i
	}
	if t.sortColumn != "" {
		desc := t.sortDir == SortDesc
		sort.SliceStable(ids, func(a, b int) bool {
			c := compareColumn(t.sortColumn, t.records[ids[a]], t.records[ids[b]])
			if desc {
				return c > 0
			}
			return c < 0
		})
	}

	records := make([]models.Record, len(ids))
	for i, id := range ids {
		records[i] = t.records[id]
	}
	return records, ids
}

func compareColumn(column string, a, b models.Record) int {
	switch column {
	case "timestamp":
		return compareInt(a.Timestamp, b.Timestamp)
	case "prefix":
		return compareNatural(a.Prefix, b.Prefix)
	case "length":
		return compareInt(int64(a.Length), int64(b.Length))
	case "sourceasn":
		return compareInt(int64(a.SourceASN), int64(b.SourceASN))
	case "sourceip":
		return compareNatural(a.SourceIP, b.SourceIP)
	case "aspath":
		return compareNatural(a.ASPath, b.ASPath)
	case "roa1":
		return compareInt(int64(a.ROA), int64(b.ROA))
	case "aspa2":
		return compareInt(int64(a.ASPACAIDA), int64(b.ASPACAIDA))
	case "aspa1":
		return compareInt(int64(a.ASPAAI), int64(b.ASPAAI))
	case "numberpeers":
		return compareInt(int64(a.NumberPeers), int64(b.NumberPeers))
	}
	return 0
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// compareNatural compares case-insensitively, reading digit runs as numbers
// so "9.0.0.0" sorts before "10.0.0.0".
func compareNatural(a, b string) int {
	a, b = strings.ToLower(a), strings.ToLower(b)
	for a != "" && b != "" {
		ca, ra := chunk(a)
		cb, rb := chunk(b)
		if c := compareChunk(ca, cb); c != 0 {
			return c
		}
		a, b = ra, rb
	}
	return compareInt(int64(len(a)), int64(len(b)))
}

// chunk splits off the leading run of digits or non-digits.
func chunk(s string) (string, string) {
	digit := isDigit(s[0])
	i := 1
	for i < len(s) && isDigit(s[i]) == digit {
		i++
	}
	return s[:i], s[i:]
}

func compareChunk(a, b string) int {
	if isDigit(a[0]) && isDigit(b[0]) {
		ta, tb := strings.TrimLeft(a, "0"), strings.TrimLeft(b, "0")
		if c := compareInt(int64(len(ta)), int64(len(tb))); c != 0 {
			return c
		}
		return strings.Compare(ta, tb)
	}
	return strings.Compare(a, b)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
