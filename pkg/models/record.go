// Package models defines data structures exchanged with the Looking Glass API.
package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Status is the outcome of one validation method for a record.
type Status int

// Validation outcomes
const (
	StatusUnknown Status = iota
	StatusValid
	StatusInvalid
)

func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// CodeMissing is the validation code of a record that carried no usable code.
// It maps to StatusUnknown for every method.
const CodeMissing = -1

// Record is one routing announcement observation with its validation outcomes.
// The validation fields hold the raw codes sent by the backend; use the
// Status methods to interpret them.
type Record struct {
	Timestamp   int64  `json:"timestamp"`
	Prefix      string `json:"prefix"`
	Length      int    `json:"length"`
	SourceASN   uint32 `json:"sourceasn"`
	SourceIP    string `json:"sourceip"`
	ASPath      string `json:"aspath"` // space-separated AS numbers
	ROA         int    `json:"roa1"`
	ASPACAIDA   int    `json:"aspa2"`
	ASPAAI      int    `json:"aspa1"`
	NumberPeers int    `json:"numberpeers"`
}

// rawRecord mirrors Record with every field left undecoded. The backend emits
// numbers as JSON numbers or as strings depending on the dataset.
type rawRecord struct {
	Timestamp   json.RawMessage `json:"timestamp"`
	Prefix      json.RawMessage `json:"prefix"`
	Length      json.RawMessage `json:"length"`
	SourceASN   json.RawMessage `json:"sourceasn"`
	SourceIP    json.RawMessage `json:"sourceip"`
	ASPath      json.RawMessage `json:"aspath"`
	ROA         json.RawMessage `json:"roa1"`
	ASPACAIDA   json.RawMessage `json:"aspa2"`
	ASPAAI      json.RawMessage `json:"aspa1"`
	NumberPeers json.RawMessage `json:"numberpeers"`
}

// UnmarshalJSON accepts numeric fields as numbers or strings and the AS path
// as either a string or an array.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw rawRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshal record: %w", err)
	}

	asPath, err := parseASPath(raw.ASPath)
	if err != nil {
		return fmt.Errorf("parse aspath: %w", err)
	}

	*r = Record{
		Timestamp:   parseInt(raw.Timestamp),
		Prefix:      parseString(raw.Prefix),
		Length:      int(parseInt(raw.Length)),
		SourceASN:   uint32(parseInt(raw.SourceASN)),
		SourceIP:    parseString(raw.SourceIP),
		ASPath:      asPath,
		ROA:         parseCode(raw.ROA),
		ASPACAIDA:   parseCode(raw.ASPACAIDA),
		ASPAAI:      parseCode(raw.ASPAAI),
		NumberPeers: int(parseInt(raw.NumberPeers)),
	}
	return nil
}

// ROAStatus interprets the ROA code: 0 valid, 2 invalid, anything else unknown.
func (r Record) ROAStatus() Status {
	switch r.ROA {
	case 0:
		return StatusValid
	case 2:
		return StatusInvalid
	default:
		return StatusUnknown
	}
}

// ASPACAIDAStatus interprets the ASPA code computed from the CAIDA dataset.
func (r Record) ASPACAIDAStatus() Status { return aspaStatus(r.ASPACAIDA) }

// ASPAAIStatus interprets the ASPA code computed by the AI-based method.
func (r Record) ASPAAIStatus() Status { return aspaStatus(r.ASPAAI) }

// ASNumbers splits the AS path into its individual AS numbers.
func (r Record) ASNumbers() []string {
	return strings.Fields(r.ASPath)
}

// ASPA codes: 2 valid, 1 invalid, anything else unknown.
func aspaStatus(code int) Status {
	switch code {
	case 2:
		return StatusValid
	case 1:
		return StatusInvalid
	default:
		return StatusUnknown
	}
}

// parseInt decodes a number that can be either a JSON number or a string.
// Missing, null and unparsable values decode to 0.
func parseInt(data json.RawMessage) int64 {
	if len(data) == 0 {
		return 0
	}

	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		return int64(num)
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		val, err := strconv.ParseInt(strings.TrimSpace(str), 10, 64)
		if err != nil {
			return 0
		}
		return val
	}

	return 0
}

// parseCode decodes a validation code. Missing, null, empty and unparsable
// values decode to CodeMissing.
func parseCode(data json.RawMessage) int {
	if len(data) == 0 || string(data) == "null" {
		return CodeMissing
	}

	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		return int(num)
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		val, err := strconv.Atoi(strings.TrimSpace(str))
		if err != nil {
			return CodeMissing
		}
		return val
	}

	return CodeMissing
}

// parseString decodes a string field, rendering numbers in their JSON form.
func parseString(data json.RawMessage) string {
	if len(data) == 0 || string(data) == "null" {
		return ""
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		return str
	}
	return string(data)
}

// parseASPath normalises the AS path to a space-separated string.
// Input can be: "3356 13335", ["3356", "13335"] or [3356, [174, 13335]].
func parseASPath(data json.RawMessage) (string, error) {
	if len(data) == 0 || string(data) == "null" {
		return "", nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		return str, nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return "", fmt.Errorf("cannot parse path: %w", err)
	}

	parts := make([]string, 0, len(elems))
	for _, elem := range elems {
		// AS_SET members are flattened in order
		var nested []json.RawMessage
		if err := json.Unmarshal(elem, &nested); err == nil {
			for _, n := range nested {
				if s := parseString(n); s != "" {
					parts = append(parts, s)
				}
			}
			continue
		}
		if s := parseString(elem); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " "), nil
}
