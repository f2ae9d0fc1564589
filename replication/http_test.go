package replication_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/deevus/pgrepl-tui/replication"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var primary = replication.NodeContext{ServerID: 4, ServerName: "primary"}

func newSource(t *testing.T, srv *httptest.Server, p replication.HTTPSourceParams) *replication.HTTPSource {
	t.Helper()
	p.BaseURL = srv.URL + "/dashboard"
	p.Client = srv.Client()
	src, err := replication.NewHTTPSource(p)
	require.NoError(t, err)
	return src
}

func TestHTTPSource_FetchStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/dashboard/replication_stats", r.URL.Path)
		assert.Equal(t, "4", r.URL.Query().Get("sid"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		_, _ = w.Write([]byte(`[{"pid":101,"client_addr":"10.0.0.5","state":"streaming",` +
			`"write_lag":"00:00:00.001","flush_lag":"00:00:00.002","replay_lag":"00:00:00.003",` +
			`"reply_time":"2024-01-01T00:00:00Z"}]`))
	}))
	defer srv.Close()

	rows, err := newSource(t, srv, replication.HTTPSourceParams{}).
		Fetch(context.Background(), replication.EndpointStats, primary)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, json.Number("101"), rows[0]["pid"])
	assert.Equal(t, "10.0.0.5", rows[0]["client_addr"])
	assert.Equal(t, "streaming", rows[0]["state"])
	assert.Equal(t, "00:00:00.003", rows[0]["replay_lag"])
	assert.Equal(t, "2024-01-01T00:00:00Z", rows[0]["reply_time"])
}

func TestHTTPSource_FetchSlots_PreservesOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/dashboard/replication_slots", r.URL.Path)
		_, _ = w.Write([]byte(`[
			{"active_pid":55,"slot_name":"replica_1","active":true},
			{"active_pid":null,"slot_name":"replica_0","active":false}
		]`))
	}))
	defer srv.Close()

	rows, err := newSource(t, srv, replication.HTTPSourceParams{}).
		Fetch(context.Background(), replication.EndpointSlots, primary)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "replica_1", rows[0]["slot_name"])
	assert.Equal(t, true, rows[0]["active"])
	assert.Equal(t, "replica_0", rows[1]["slot_name"])
	assert.Nil(t, rows[1]["active_pid"])
}

func TestHTTPSource_EmptyArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	rows, err := newSource(t, srv, replication.HTTPSourceParams{}).
		Fetch(context.Background(), replication.EndpointSlots, primary)
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestHTTPSource_NullBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`null`))
	}))
	defer srv.Close()

	rows, err := newSource(t, srv, replication.HTTPSourceParams{}).
		Fetch(context.Background(), replication.EndpointSlots, primary)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestHTTPSource_Credentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		c, err := r.Cookie("pga4_session")
		if assert.NoError(t, err) {
			assert.Equal(t, "sess-9", c.Value)
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	src := newSource(t, srv, replication.HTTPSourceParams{APIKey: "tok-1", SessionCookie: "sess-9"})
	_, err := src.Fetch(context.Background(), replication.EndpointStats, primary)
	require.NoError(t, err)
}

func TestHTTPSource_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":0,"errormsg":"permission denied for pg_stat_replication"}`))
	}))
	defer srv.Close()

	_, err := newSource(t, srv, replication.HTTPSourceParams{}).
		Fetch(context.Background(), replication.EndpointStats, primary)
	require.Error(t, err)

	var apiErr *replication.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, replication.EndpointStats, apiErr.Endpoint)
	assert.Equal(t, "permission denied for pg_stat_replication", replication.ParseError(err))
}

func TestHTTPSource_APIError_HTMLBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`<html><body>nope</body></html>`))
	}))
	defer srv.Close()

	_, err := newSource(t, srv, replication.HTTPSourceParams{}).
		Fetch(context.Background(), replication.EndpointSlots, primary)
	require.Error(t, err)
	assert.Equal(t, "Not Found", replication.ParseError(err))
}

func TestHTTPSource_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"an array"}`))
	}))
	defer srv.Close()

	_, err := newSource(t, srv, replication.HTTPSourceParams{}).
		Fetch(context.Background(), replication.EndpointStats, primary)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding response")
}

func TestHTTPSource_InvalidNode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an invalid node")
	}))
	defer srv.Close()

	_, err := newSource(t, srv, replication.HTTPSourceParams{}).
		Fetch(context.Background(), replication.EndpointStats, replication.NodeContext{})
	require.Error(t, err)
}

func TestHTTPSource_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	src := newSource(t, srv, replication.HTTPSourceParams{})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := src.Fetch(ctx, replication.EndpointStats, primary)
	require.Error(t, err)
	assert.Equal(t, "request timed out", replication.ParseError(err))
}

func TestHTTPSource_URL(t *testing.T) {
	src, err := replication.NewHTTPSource(replication.HTTPSourceParams{BaseURL: "https://pgadmin.local/dashboard"})
	require.NoError(t, err)
	assert.Equal(t, "https://pgadmin.local/dashboard/replication_slots?sid=4",
		src.URL(replication.EndpointSlots, primary))
}

func TestHTTPSource_URL_TrailingSlash(t *testing.T) {
	src, err := replication.NewHTTPSource(replication.HTTPSourceParams{BaseURL: "https://pgadmin.local/dashboard/"})
	require.NoError(t, err)
	assert.Equal(t, "https://pgadmin.local/dashboard/replication_stats?sid=4",
		src.URL(replication.EndpointStats, primary))
}

func TestNewHTTPSource_InvalidURL(t *testing.T) {
	_, err := replication.NewHTTPSource(replication.HTTPSourceParams{BaseURL: "::nope"})
	require.Error(t, err)
}
