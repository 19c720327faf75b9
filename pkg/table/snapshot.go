package table

import (
	"github.com/hervehildenbrand/looking-glass/pkg/charts"
	"github.com/hervehildenbrand/looking-glass/pkg/models"
)

// MetadataView is the state of the AS metadata popup.
type MetadataView struct {
	Row     int                 `json:"row"`
	Loading bool                `json:"loading"`
	Entries []models.ASMetadata `json:"entries"`
}

// View is a consistent copy of everything a client needs to render the table.
type View struct {
	Session         string            `json:"session"`
	DataSources     []string          `json:"dataSources"`
	DataSource      string            `json:"dataSource"`
	DataSourceLabel string            `json:"dataSourceLabel"`
	Path            string            `json:"path"`
	Records         []models.Record   `json:"records"` // display order
	RowIDs          []int             `json:"rowIds"`  // arrival index of each record, used by OpenMetadata
	SortColumn      string            `json:"sortColumn"`
	SortDirection   string            `json:"sortDirection"`
	Filters         map[string]string `json:"filters"`
	PageNumber      int               `json:"pageNumber"`
	PageSize        int               `json:"pageSize"`
	Loaded          int               `json:"sumOfRequestedData"`
	Total           int               `json:"sumOfDatasets"`
	HasMore         bool              `json:"hasMore"`
	InFlight        bool              `json:"inFlight"`
	Charts          charts.PanelView  `json:"charts"`
	Metadata        *MetadataView     `json:"metadata,omitempty"`
}

// Snapshot returns the current view.
func (t *Table) Snapshot() View {
	t.mu.Lock()
	defer t.mu.Unlock()

	filters := make(map[string]string, len(t.filters))
	for k, v := range t.filters {
		filters[k] = v
	}

	records, rowIDs := t.sortedLocked()

	v := View{
		Session:         t.session.String(),
		DataSources:     t.sources.Items(),
		DataSource:      t.sources.Value(),
		DataSourceLabel: t.sources.Label(),
		Path:            t.path,
		Records:         records,
		RowIDs:          rowIDs,
		SortColumn:      t.sortColumn,
		SortDirection:   t.sortDir,
		Filters:         filters,
		PageNumber:      t.page,
		PageSize:        PageSize,
		Loaded:          t.loaded,
		Total:           t.total,
		HasMore:         t.loaded < t.total,
		InFlight:        t.inFlight || t.metaLoading,
		Charts:          t.panel.View(),
	}
	if t.metaRow >= 0 {
		v.Metadata = &MetadataView{
			Row:     t.metaRow,
			Loading: t.metaLoading,
			Entries: append([]models.ASMetadata{}, t.metadata...),
		}
	}
	return v
}

// HasMore reports whether more records are available on the server.
func (t *Table) HasMore() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loaded < t.total
}
