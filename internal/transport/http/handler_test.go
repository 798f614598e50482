package httptransport

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"contactsync/internal/orchestration"
	"contactsync/internal/platform/health"
	"contactsync/internal/syncer"
	"contactsync/pkg/platform/middleware/request"
)

const testURN = "urn:uuid:5d9c8f4e-2f4a-4b47-9a43-0a7d4f6cbe10"

type fakeService struct {
	outcome *syncer.Outcome
	err     error
	calls   int
}

func (f *fakeService) Sync(context.Context) (*syncer.Outcome, error) {
	f.calls++
	return f.outcome, f.err
}

type RouterSuite struct {
	suite.Suite
	svc      *fakeService
	health   *health.Handler
	observed []*syncer.Outcome
	router   http.Handler
	now      time.Time
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.svc = &fakeService{}
	s.health = health.New("contactsync")
	s.observed = nil
	s.now = time.Date(2026, 6, 1, 9, 30, 0, 0, time.UTC)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	h := NewHandler(s.svc, testURN, logger,
		WithClock(func() time.Time { return s.now }),
		WithCycleObserver(func(o *syncer.Outcome) { s.observed = append(s.observed, o) }),
	)
	s.router = NewRouter(Routes{
		Sync:    h,
		Health:  s.health,
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Latency: request.NewMetrics(reg),
	}, logger)
}

func (s *RouterSuite) do(method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func (s *RouterSuite) decode(w *httptest.ResponseRecorder) MediatorResponse {
	var resp MediatorResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (s *RouterSuite) TestSuccessfulCycle() {
	s.svc.outcome = &syncer.Outcome{
		CycleID: "cycle-1",
		Status:  syncer.StatusSuccessful,
		Stats:   syncer.Stats{Providers: 2, Upserted: 2},
		Trail: orchestration.Trail{
			{Name: "Fetch Providers", Response: orchestration.Response{Status: 200}},
			{Name: "Load Providers", Response: orchestration.Response{Status: 200}},
		},
	}

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		w := s.do(method, "/sync")

		s.Equal(http.StatusOK, w.Code)
		s.Equal(ContentTypeOpenHIM, w.Header().Get("Content-Type"))
		s.NotEmpty(w.Header().Get(request.HeaderRequestID))

		resp := s.decode(w)
		s.Equal(testURN, resp.URN)
		s.Equal("Successful", resp.Status)
		s.Equal(http.StatusOK, resp.Response.Status)
		s.True(s.now.Equal(resp.Response.Timestamp))
		s.Equal("Primary Route", resp.Properties["property"])
		s.Equal("cycle-1", resp.Properties["cycle_id"])
		s.Require().Len(resp.Orchestrations, 2)
		s.Equal("Fetch Providers", resp.Orchestrations[0].Name)

		var body cycleBody
		s.Require().NoError(json.Unmarshal([]byte(resp.Response.Body), &body))
		s.Equal(2, body.Stats.Upserted)
	}
	s.Equal(2, s.svc.calls)
	s.Len(s.observed, 2)
}

func (s *RouterSuite) TestPartialCycleIsOK() {
	s.svc.outcome = &syncer.Outcome{CycleID: "c", Status: syncer.StatusCompletedWithErrors}

	w := s.do(http.MethodPost, "/sync")

	s.Equal(http.StatusOK, w.Code)
	resp := s.decode(w)
	s.Equal("Completed with Errors", resp.Status)
	s.NotNil(resp.Orchestrations)
}

func (s *RouterSuite) TestFailedCycleIs500() {
	s.svc.outcome = &syncer.Outcome{
		CycleID: "c",
		Status:  syncer.StatusFailed,
		Error:   "fetch providers: connection refused",
		Trail:   orchestration.Trail{{Name: "Fetch Providers"}},
	}

	w := s.do(http.MethodPost, "/sync")

	s.Equal(http.StatusInternalServerError, w.Code)
	resp := s.decode(w)
	s.Equal("Failed", resp.Status)
	s.Equal(http.StatusInternalServerError, resp.Response.Status)
	s.Contains(resp.Response.Body, "connection refused")
	s.Len(resp.Orchestrations, 1)
}

func (s *RouterSuite) TestBusyIs409() {
	s.svc.err = syncer.ErrBusy

	w := s.do(http.MethodPost, "/sync")

	s.Equal(http.StatusConflict, w.Code)
	s.Equal("application/json", w.Header().Get("Content-Type"))
	s.Empty(s.observed)
}

func (s *RouterSuite) TestOperationalRoutes() {
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/health/live").Code)
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/health/ready").Code)

	s.svc.outcome = &syncer.Outcome{CycleID: "c", Status: syncer.StatusSuccessful}
	s.do(http.MethodGet, "/sync")

	w := s.do(http.MethodGet, "/metrics")
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `contactsync_endpoint_latency_seconds_count{endpoint="/sync"}`)
}

func TestBuildMediatorResponseNeverNullTrail(t *testing.T) {
	resp := buildMediatorResponse(testURN, &syncer.Outcome{Status: syncer.StatusFailed}, 500, time.Now())

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"orchestrations":[]`)
}
