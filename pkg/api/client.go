package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hervehildenbrand/looking-glass/pkg/models"
)

const (
	// Endpoint paths as served by the backend (the spelling is part of the API).
	datasetsPath = "/api/data/aviableDatasets"
	dataPath     = "/api/data"
	metadataPath = "/api/metadata"

	defaultTimeout = 30 * time.Second
)

// Client builds backend requests from Looking Glass intents.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the backend at baseURL.
// A timeout of zero selects the default.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// dataBody is the JSON body of a page request.
type dataBody struct {
	DataSource    string          `json:"data_source"`
	TableFilter   []models.Filter `json:"table_filter"`
	UUID          []string        `json:"uuid"`
	PaginationReq bool            `json:"pagination_req"`
}

// ListDatasets returns the names of the datasets available on the backend.
func (c *Client) ListDatasets(ctx context.Context) ([]string, error) {
	var datasets []string
	if err := Get(ctx, c.http, c.baseURL+datasetsPath, &datasets); err != nil {
		return nil, err
	}
	return datasets, nil
}

// FetchData requests one page of the dataset described by req.
func (c *Client) FetchData(ctx context.Context, req models.DataRequest) (*models.DataResponse, error) {
	q := url.Values{}
	q.Set("page_size", strconv.Itoa(req.PageSize))
	q.Set("page_number", strconv.Itoa(req.PageNumber))

	filters := req.Filters
	if filters == nil {
		filters = []models.Filter{}
	}
	body := dataBody{
		DataSource:    req.Path,
		TableFilter:   filters,
		UUID:          []string{req.Session.String()},
		PaginationReq: req.Pagination,
	}

	var resp models.DataResponse
	if err := Post(ctx, c.http, c.baseURL+dataPath+"?"+q.Encode(), body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchMetadata looks up AS name and country for each AS number.
func (c *Client) FetchMetadata(ctx context.Context, asns []string) ([]models.ASMetadata, error) {
	body := map[string]interface{}{"aspath": asns}

	var meta []models.ASMetadata
	if err := Post(ctx, c.http, c.baseURL+metadataPath, body, &meta); err != nil {
		return nil, err
	}
	return meta, nil
}
