package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hervehildenbrand/looking-glass/pkg/models"
)

func TestClient_ListDatasets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/data/aviableDatasets", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(`["20231012", "20231026"]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", 0)
	datasets, err := c.ListDatasets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"20231012", "20231026"}, datasets)
}

func TestClient_FetchData(t *testing.T) {
	session := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/data", r.URL.Path)
		assert.Equal(t, "25", r.URL.Query().Get("page_size"))
		assert.Equal(t, "2", r.URL.Query().Get("page_number"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "20231026/14", body["data_source"])
		assert.Equal(t, []interface{}{session.String()}, body["uuid"])
		assert.Equal(t, true, body["pagination_req"])
		assert.Equal(t, []interface{}{
			map[string]interface{}{"key": "prefix", "value": "1.1.1.0"},
			map[string]interface{}{"key": "timestamp", "value": float64(1698330600)},
		}, body["table_filter"])

		w.Write([]byte(`{"tableData": [{"prefix": "1.1.1.0"}], "graphData": [], "pieData": null, "datasetSum": 40}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	resp, err := c.FetchData(context.Background(), models.DataRequest{
		Path:       "20231026/14",
		PageNumber: 2,
		PageSize:   25,
		Filters: []models.Filter{
			{Key: "prefix", Value: "1.1.1.0"},
			{Key: "timestamp", Value: int64(1698330600)},
		},
		Session:    session,
		Pagination: true,
	})
	require.NoError(t, err)
	assert.Len(t, resp.TableData, 1)
	assert.Equal(t, 40, resp.DatasetSum)
	assert.Nil(t, resp.PieData)
}

func TestClient_FetchDataSendsEmptyFilterArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]json.RawMessage
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.JSONEq(t, `[]`, string(body["table_filter"]))
		w.Write([]byte(`{"tableData": [], "graphData": [], "datasetSum": 0}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, 0).FetchData(context.Background(), models.DataRequest{Path: "x", PageNumber: 1, PageSize: 25})
	require.NoError(t, err)
}

func TestClient_FetchMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/metadata", r.URL.Path)
		var body map[string][]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"3356", "13335"}, body["aspath"])
		w.Write([]byte(`[{"asNumber": 3356, "asName": "LEVEL3", "countryCode": "US"}]`))
	}))
	defer srv.Close()

	meta, err := NewClient(srv.URL, 0).FetchMetadata(context.Background(), []string{"3356", "13335"})
	require.NoError(t, err)
	require.Len(t, meta, 1)
	assert.Equal(t, uint32(3356), meta[0].ASNumber)
}

func TestFetch_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"server error", http.StatusInternalServerError, `{"error": "boom"}`, ErrTransport},
		{"not found", http.StatusNotFound, ``, ErrTransport},
		{"empty body", http.StatusOK, ``, ErrEmptyResponse},
		{"null body", http.StatusOK, `null`, ErrEmptyResponse},
		{"empty string body", http.StatusOK, `""`, ErrEmptyResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			var out interface{}
			err := Get(context.Background(), http.DefaultClient, srv.URL, &out)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)

			err = Post(context.Background(), http.DefaultClient, srv.URL, map[string]string{}, &out)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestFetch_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out []string
	err := Get(ctx, http.DefaultClient, srv.URL, &out)
	assert.ErrorIs(t, err, context.Canceled)
}
