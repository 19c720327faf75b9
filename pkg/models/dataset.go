package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ValidationSource names one of the validation methods shown in the charts.
type ValidationSource string

// Validation sources
const (
	SourceROA       ValidationSource = "ROA"
	SourceASPACAIDA ValidationSource = "ASPA_CAIDA"
	SourceASPAAI    ValidationSource = "ASPA_AI"
)

// ValidationSources lists the selectable sources in menu order.
var ValidationSources = []ValidationSource{SourceROA, SourceASPACAIDA, SourceASPAAI}

// Counts holds the number of records per validation outcome.
type Counts struct {
	Valid   int `json:"valid"`
	Invalid int `json:"invalid"`
	Unknown int `json:"unknown"`
}

// SummaryBucket aggregates outcome counts per validation source.
type SummaryBucket struct {
	ROA       Counts `json:"ROA"`
	ASPACAIDA Counts `json:"ASPA_CAIDA"`
	ASPAAI    Counts `json:"ASPA_AI"`
}

// Counts returns the counts for the given source. Unknown sources yield zeros.
func (b SummaryBucket) Counts(source ValidationSource) Counts {
	switch source {
	case SourceROA:
		return b.ROA
	case SourceASPACAIDA:
		return b.ASPACAIDA
	case SourceASPAAI:
		return b.ASPAAI
	default:
		return Counts{}
	}
}

// GraphBucket is one time-labelled aggregate of the bar chart.
type GraphBucket struct {
	Label string `json:"label"`
	SummaryBucket
}

// Filter is one active column filter as sent to the backend.
// Value is a string for text columns, an epoch-seconds integer for the
// timestamp column, or nil when the timestamp could not be parsed.
type Filter struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// DataRequest carries everything needed to request one page of a dataset.
type DataRequest struct {
	Path       string
	PageNumber int
	PageSize   int
	Filters    []Filter
	Session    uuid.UUID
	Pagination bool
}

// DataResponse is the backend reply for a page request.
type DataResponse struct {
	TableData  []Record       `json:"tableData"`
	GraphData  []GraphBucket  `json:"graphData"`
	PieData    *SummaryBucket `json:"pieData"`
	DatasetSum int            `json:"datasetSum"`
}

// ASMetadata describes one AS number of a clicked AS path.
type ASMetadata struct {
	ASNumber    uint32 `json:"asNumber"`
	ASName      string `json:"asName"`
	CountryCode string `json:"countryCode"`
	Role        string `json:"role,omitempty"` // tier1, scrubbing
}

// UnmarshalJSON accepts asNumber as either a number or a string.
func (m *ASMetadata) UnmarshalJSON(data []byte) error {
	var raw struct {
		ASNumber    json.RawMessage `json:"asNumber"`
		ASName      string          `json:"asName"`
		CountryCode string          `json:"countryCode"`
		Role        string          `json:"role"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = ASMetadata{
		ASNumber:    uint32(parseInt(raw.ASNumber)),
		ASName:      raw.ASName,
		CountryCode: raw.CountryCode,
		Role:        raw.Role,
	}
	return nil
}

// FetchRecord describes one completed backend request for the request journal.
type FetchRecord struct {
	Session     uuid.UUID
	Operation   string // initial, paginate, filter, drilldown, backward, metadata
	Path        string
	PageNumber  int
	Filters     []Filter
	Records     int
	DatasetSum  int
	DurationMS  int64
	Error       string
	RequestedAt time.Time
}

// Journal operations
const (
	OpInitial   = "initial"
	OpPaginate  = "paginate"
	OpFilter    = "filter"
	OpDrillDown = "drilldown"
	OpBackward  = "backward"
	OpMetadata  = "metadata"
)
