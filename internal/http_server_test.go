package internal

import (
	"anon-chat/mocks"
	"anon-chat/repositories"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestServer(t *testing.T, audit repositories.IAuditRepository) *httptest.Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()
	srv := httptest.NewServer(NewHTTPServer(logs.GetLoggerFromLevel(slog.LevelDebug), 0, reg, audit).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPServer_ExposesMetrics(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	srv := newTestServer(t, mocks.NewMockIAuditRepository(ctrl))

	resp, err := http.Get(srv.URL + "/metrics")
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/healthz")
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)
}

func TestHTTPServer_InspectAudit(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	audit := mocks.NewMockIAuditRepository(ctrl)

	// Given one audit entry
	entry := repositories.AuditEntry{
		ID: uuid.New(), Admin: 1, Action: "ban_user", Target: "42", Detail: "spam",
		At: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	audit.EXPECT().List(5).Return([]repositories.AuditEntry{entry}, nil)
	srv := newTestServer(t, audit)

	// When the audit log is inspected
	resp, err := http.Get(srv.URL + "/inspect/audit?limit=5")
	req.NoError(err)
	defer resp.Body.Close()

	// Then it is returned as JSON
	req.Equal(http.StatusOK, resp.StatusCode)
	var got []repositories.AuditEntry
	req.NoError(json.NewDecoder(resp.Body).Decode(&got))
	req.Len(got, 1)
	req.Equal(entry.ID, got[0].ID)
	req.Equal("ban_user", got[0].Action)
	req.True(entry.At.Equal(got[0].At))

	// And a bad limit is refused
	resp, err = http.Get(srv.URL + "/inspect/audit?limit=abc")
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusBadRequest, resp.StatusCode)
}

func TestHTTPServer_AuditHiddenWithoutRepository(t *testing.T) {
	req := require.New(t)

	// Given a server built without audit repository
	srv := newTestServer(t, nil)

	// When the audit log is requested
	resp, err := http.Get(srv.URL + "/inspect/audit")
	req.NoError(err)
	defer resp.Body.Close()

	// Then the route does not exist while metrics still answer
	req.Equal(http.StatusNotFound, resp.StatusCode)
	resp, err = http.Get(srv.URL + "/metrics")
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)
}
