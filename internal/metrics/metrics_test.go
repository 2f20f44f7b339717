package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/mahuti/tasks/backend/internal/grid"
)

func TestGridCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewGridCollector(reg)

	c.OperationApplied(grid.OpCreate)
	c.OperationApplied(grid.OpCreate)
	c.OperationSettled(grid.OpCreate, grid.StatusConflict)
	c.PollCompleted(true, nil)
	c.PollCompleted(false, nil)
	c.PollCompleted(false, errors.New("offline"))
	c.HistoryDepth(7)

	require.Equal(t, 2.0, testutil.ToFloat64(c.applied.WithLabelValues("create")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.settled.WithLabelValues("create", "conflict")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.polls.WithLabelValues("error")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.polls.WithLabelValues("replaced")))
	require.Equal(t, 7.0, testutil.ToFloat64(c.historyDepth))
}

func TestHTTPCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewHTTPCollector(reg)

	c.Observe(http.MethodPost, "/assignments", http.StatusConflict, 10*time.Millisecond)
	c.Observe(http.MethodGet, "/tasks", 0, time.Millisecond)

	require.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("POST", "/assignments", "409")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("GET", "/tasks", "200")))
}

func TestInstrumentTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	client := &http.Client{Transport: InstrumentTransport(reg, nil)}

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	count, err := testutil.GatherAndCount(reg, "mahuti_client_requests_total")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
