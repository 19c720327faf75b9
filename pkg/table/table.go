// Package table implements the Looking Glass table state machine: the current
// page of records, the parameters that produced it and every transition caused
// by user input.
package table

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hervehildenbrand/looking-glass/pkg/charts"
	"github.com/hervehildenbrand/looking-glass/pkg/models"
	"github.com/hervehildenbrand/looking-glass/pkg/selector"
)

// PageSize is the number of records requested per page.
const PageSize = 25

// DataSourceFilterName is the name of the data-source selector.
const DataSourceFilterName = "Datenquelle"

// User-facing alert messages
const (
	MsgNoDataSource = "Please select a data source."
	MsgFetchFailed  = "Error while fetching data."
)

var (
	// ErrNoDataSource is returned when a fetch is requested before a data
	// source has been selected.
	ErrNoDataSource = errors.New("no data source selected")

	// ErrNoMorePages is returned when every record has already been loaded.
	ErrNoMorePages = errors.New("all records loaded")

	// ErrSuperseded is returned when a newer request replaced this one
	// before its response arrived. The response is discarded.
	ErrSuperseded = errors.New("request superseded")

	// ErrFetchFailed wraps every transport or server failure.
	ErrFetchFailed = errors.New("fetch failed")

	errEmptyResponse = errors.New("empty response")
	errNoop          = errors.New("no-op")
)

// DataFetcher is the backend used for dataset listing and page requests.
type DataFetcher interface {
	ListDatasets(ctx context.Context) ([]string, error)
	FetchData(ctx context.Context, req models.DataRequest) (*models.DataResponse, error)
}

// MetadataFetcher resolves AS numbers to AS metadata.
type MetadataFetcher interface {
	FetchMetadata(ctx context.Context, asns []string) ([]models.ASMetadata, error)
}

// Alerter shows a message to the user.
type Alerter interface {
	Alert(message string)
}

// Recorder receives one entry per completed backend request.
type Recorder interface {
	Record(rec models.FetchRecord)
}

// Options configures a Table. Zero values are valid.
type Options struct {
	Metadata MetadataFetcher // defaults to the data backend if it implements MetadataFetcher
	Alerter  Alerter         // defaults to logging
	Recorder Recorder
	OnChange func() // called after every state change, outside the lock
}

// Table is the stateful orchestrator of one viewer session.
// All methods are safe for concurrent use.
type Table struct {
	session  uuid.UUID
	backend  DataFetcher
	meta     MetadataFetcher
	alerter  Alerter
	recorder Recorder
	onChange func()

	sources *selector.Selector
	panel   *charts.Panel

	mu       sync.Mutex
	records  []models.Record
	filters  map[string]string
	path     string
	page     int
	loaded   int // sumOfRequestedData
	total    int // sumOfDatasets
	inFlight bool
	gen      uint64
	cancel   context.CancelFunc

	sortColumn string
	sortDir    string

	metaRow     int // -1 when the popup is closed
	metadata    []models.ASMetadata
	metaLoading bool
	metaGen     uint64
	metaCancel  context.CancelFunc
}

// New creates a table for one session. The session id is sent unchanged with
// every request.
func New(session uuid.UUID, backend DataFetcher, opts Options) *Table {
	t := &Table{
		session:  session,
		backend:  backend,
		meta:     opts.Metadata,
		alerter:  opts.Alerter,
		recorder: opts.Recorder,
		onChange: opts.OnChange,
		panel:    charts.NewPanel(),
		filters:  make(map[string]string),
		page:     1,
		metaRow:  -1,
	}
	if t.meta == nil {
		if m, ok := backend.(MetadataFetcher); ok {
			t.meta = m
		}
	}
	if t.alerter == nil {
		t.alerter = logAlerter{session: session}
	}
	t.sources = selector.New(DataSourceFilterName, nil, func(string) { t.changed() })
	return t
}

// Session returns the session identifier.
func (t *Table) Session() uuid.UUID { return t.session }

type logAlerter struct{ session uuid.UUID }

func (a logAlerter) Alert(message string) {
	log.Printf("[session %s] Alert: %s", a.session, message)
}

func (t *Table) changed() {
	if t.onChange != nil {
		t.onChange()
	}
}

type claimHookKey struct{}

// WithClaimHook returns a context whose fetch operations call fn once they
// hold their request slot, or once they return without taking one. Callers
// use it to order commands without waiting for the network.
func WithClaimHook(ctx context.Context, fn func()) context.Context {
	return context.WithValue(ctx, claimHookKey{}, fn)
}

func notifyClaimed(ctx context.Context) {
	if fn, ok := ctx.Value(claimHookKey{}).(func()); ok {
		fn()
	}
}

// claim takes the request slot for a new data fetch, cancelling whatever
// request held it. Caller must hold t.mu.
func (t *Table) claim(ctx context.Context) (context.Context, uint64) {
	if t.cancel != nil {
		t.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	t.gen++
	t.cancel = cancel
	t.inFlight = true
	return ctx, t.gen
}

// release frees the request slot if gen still owns it. Caller must hold t.mu.
func (t *Table) release(gen uint64) bool {
	if gen != t.gen {
		return false
	}
	t.cancel()
	t.cancel = nil
	t.inFlight = false
	return true
}

// run performs one data fetch. prepare builds the request under the lock and
// may return errNoop or a precondition error; apply installs a successful
// response under the lock.
func (t *Table) run(ctx context.Context, op string,
	prepare func() (models.DataRequest, error),
	apply func(models.DataRequest, *models.DataResponse)) error {

	t.mu.Lock()
	req, err := prepare()
	if err != nil {
		t.mu.Unlock()
		notifyClaimed(ctx)
		switch {
		case errors.Is(err, errNoop):
			return nil
		case errors.Is(err, ErrNoDataSource):
			t.alerter.Alert(MsgNoDataSource)
		}
		return err
	}
	ctx, gen := t.claim(ctx)
	t.mu.Unlock()
	notifyClaimed(ctx)
	t.changed()

	resp, err := t.fetch(ctx, op, req)

	t.mu.Lock()
	if !t.release(gen) {
		t.mu.Unlock()
		return ErrSuperseded
	}
	if err != nil {
		t.mu.Unlock()
		t.changed()
		t.alerter.Alert(MsgFetchFailed)
		return fmt.Errorf("%s %q: %w: %w", op, req.Path, ErrFetchFailed, err)
	}
	apply(req, resp)
	t.mu.Unlock()
	t.changed()
	return nil
}

func (t *Table) fetch(ctx context.Context, op string, req models.DataRequest) (*models.DataResponse, error) {
	start := time.Now()
	resp, err := t.backend.FetchData(ctx, req)
	if err == nil && resp == nil {
		err = errEmptyResponse
	}

	if t.recorder != nil {
		rec := models.FetchRecord{
			Session:     t.session,
			Operation:   op,
			Path:        req.Path,
			PageNumber:  req.PageNumber,
			Filters:     req.Filters,
			DurationMS:  time.Since(start).Milliseconds(),
			RequestedAt: start,
		}
		if err != nil {
			rec.Error = err.Error()
		} else {
			rec.Records = len(resp.TableData)
			rec.DatasetSum = resp.DatasetSum
		}
		t.recorder.Record(rec)
	}
	return resp, err
}

// request builds a page request for the current session.
func (t *Table) request(path string, page int, filters []models.Filter, pagination bool) models.DataRequest {
	return models.DataRequest{
		Path:       path,
		PageNumber: page,
		PageSize:   PageSize,
		Filters:    filters,
		Session:    t.session,
		Pagination: pagination,
	}
}

// replaceView installs a fresh dataset view. Caller must hold t.mu.
func (t *Table) replaceView(path string, resp *models.DataResponse) {
	t.filters = make(map[string]string)
	t.path = path
	t.page = 1
	t.records = resp.TableData
	t.loaded = len(resp.TableData)
	t.total = resp.DatasetSum
	t.panel.SetData(resp.GraphData, resp.PieData)
	t.closeMetadataLocked()
}
