package table

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hervehildenbrand/looking-glass/pkg/models"
)

// LoadDataSources fetches the available datasets into the data-source
// selector. Any previous selection is cleared. It holds no request slot, so a
// claim hook fires once the selector has been updated.
func (t *Table) LoadDataSources(ctx context.Context) error {
	defer notifyClaimed(ctx)
	datasets, err := t.backend.ListDatasets(ctx)
	if err == nil && datasets == nil {
		err = errEmptyResponse
	}
	if err != nil {
		t.alerter.Alert(MsgFetchFailed)
		return fmt.Errorf("list datasets: %w: %w", ErrFetchFailed, err)
	}
	t.sources.SetItems(datasets)
	t.changed()
	return nil
}

// SelectDataSource selects the dataset used by the next FetchInitial.
func (t *Table) SelectDataSource(name string) error {
	return t.sources.SelectValue(name)
}

// SelectValidationSource switches the source both charts show.
func (t *Table) SelectValidationSource(source string) error {
	if err := t.panel.SelectSource(source); err != nil {
		return err
	}
	t.changed()
	return nil
}

// Spool moves the visible bar chart window.
func (t *Table) Spool(direction string) {
	if t.panel.Spool(direction) {
		t.changed()
	}
}

// SetFilter sets the text filter of a column. An empty value clears it.
// Filters take effect on the next ApplyFilters.
func (t *Table) SetFilter(key, value string) error {
	if !isColumn(key) {
		return fmt.Errorf("unknown filter column %q", key)
	}
	t.mu.Lock()
	if value == "" {
		delete(t.filters, key)
	} else {
		t.filters[key] = value
	}
	t.mu.Unlock()
	t.changed()
	return nil
}

// FetchInitial loads page 1 of the selected data source with no filters.
func (t *Table) FetchInitial(ctx context.Context) error {
	return t.run(ctx, models.OpInitial,
		func() (models.DataRequest, error) {
			source := t.sources.Value()
			if source == "" {
				return models.DataRequest{}, ErrNoDataSource
			}
			return t.request(source, 1, nil, false), nil
		},
		func(req models.DataRequest, resp *models.DataResponse) {
			t.replaceView(req.Path, resp)
		})
}

// Paginate appends the next page of the current view.
func (t *Table) Paginate(ctx context.Context) error {
	return t.run(ctx, models.OpPaginate,
		func() (models.DataRequest, error) {
			if t.loaded >= t.total {
				return models.DataRequest{}, ErrNoMorePages
			}
			return t.request(t.path, t.page+1, buildFilters(t.filters), true), nil
		},
		func(req models.DataRequest, resp *models.DataResponse) {
			t.records = append(t.records, resp.TableData...)
			t.loaded += len(resp.TableData)
			t.page = req.PageNumber
		})
}

// ApplyFilters reloads page 1 of the current path with the active filters.
// Chart data is left as is.
func (t *Table) ApplyFilters(ctx context.Context) error {
	return t.run(ctx, models.OpFilter,
		func() (models.DataRequest, error) {
			return t.request(t.path, 1, buildFilters(t.filters), false), nil
		},
		func(req models.DataRequest, resp *models.DataResponse) {
			t.records = resp.TableData
			t.loaded = len(resp.TableData)
			t.total = resp.DatasetSum
			t.page = 1
			t.closeMetadataLocked()
		})
}

// ClickBar handles a click on the bar at index of the visible window. A bar
// labelled with a full timestamp is a no-op; any other label descends one
// level into the dataset hierarchy.
func (t *Table) ClickBar(ctx context.Context, index int) error {
	return t.run(ctx, models.OpDrillDown,
		func() (models.DataRequest, error) {
			bucket, ok := t.panel.Bucket(index)
			if !ok || IsFullTimestamp(bucket.Label) {
				return models.DataRequest{}, errNoop
			}
			sub, ok := SubLabel(bucket.Label)
			if !ok {
				return models.DataRequest{}, errNoop
			}
			return t.request(t.path+"/"+sub, 1, nil, false), nil
		},
		func(req models.DataRequest, resp *models.DataResponse) {
			t.replaceView(req.Path, resp)
		})
}

// GoBackward ascends one level in the dataset hierarchy. It is a no-op when
// the path has a single segment.
func (t *Table) GoBackward(ctx context.Context) error {
	return t.run(ctx, models.OpBackward,
		func() (models.DataRequest, error) {
			parent, ok := parentPath(t.path)
			if !ok {
				return models.DataRequest{}, errNoop
			}
			return t.request(parent, 1, nil, false), nil
		},
		func(req models.DataRequest, resp *models.DataResponse) {
			t.replaceView(req.Path, resp)
		})
}

// OpenMetadata opens the AS metadata popup for the record at row, its row id
// in arrival order (View.RowIDs). Nothing happens if the popup is already
// open for that row.
func (t *Table) OpenMetadata(ctx context.Context, row int) error {
	if t.meta == nil {
		notifyClaimed(ctx)
		return fmt.Errorf("no metadata backend configured")
	}

	t.mu.Lock()
	if row < 0 || row >= len(t.records) {
		t.mu.Unlock()
		notifyClaimed(ctx)
		return fmt.Errorf("row %d out of range [0,%d)", row, len(t.records))
	}
	if t.metaRow == row {
		t.mu.Unlock()
		notifyClaimed(ctx)
		return nil
	}
	asns := t.records[row].ASNumbers()
	if t.metaCancel != nil {
		t.metaCancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	t.metaGen++
	gen := t.metaGen
	t.metaCancel = cancel
	t.metaRow = row
	t.metadata = nil
	t.metaLoading = true
	t.mu.Unlock()
	notifyClaimed(ctx)
	t.changed()

	start := time.Now()
	meta, err := t.meta.FetchMetadata(ctx, asns)
	if t.recorder != nil {
		rec := models.FetchRecord{
			Session:     t.session,
			Operation:   models.OpMetadata,
			Path:        strings.Join(asns, " "),
			Records:     len(meta),
			DurationMS:  time.Since(start).Milliseconds(),
			RequestedAt: start,
		}
		if err != nil {
			rec.Error = err.Error()
		}
		t.recorder.Record(rec)
	}

	t.mu.Lock()
	if gen != t.metaGen {
		t.mu.Unlock()
		return ErrSuperseded
	}
	cancel()
	t.metaCancel = nil
	t.metaLoading = false
	if err != nil {
		t.metaRow = -1
		t.mu.Unlock()
		t.changed()
		t.alerter.Alert(MsgFetchFailed)
		return fmt.Errorf("metadata: %w: %w", ErrFetchFailed, err)
	}
	t.metadata = meta
	t.mu.Unlock()
	t.changed()
	return nil
}

// CloseMetadata closes the popup. A metadata request still in flight is
// cancelled and its response discarded.
func (t *Table) CloseMetadata() {
	t.mu.Lock()
	t.closeMetadataLocked()
	t.mu.Unlock()
	t.changed()
}

func (t *Table) closeMetadataLocked() {
	if t.metaCancel != nil {
		t.metaCancel()
		t.metaCancel = nil
	}
	t.metaGen++
	t.metaRow = -1
	t.metadata = nil
	t.metaLoading = false
}
