package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"contactsync/internal/contacts/client"
	"contactsync/internal/contacts/deadletter"
	"contactsync/internal/contacts/models"
	"contactsync/internal/directory"
	"contactsync/internal/orchestration"
	"contactsync/internal/syncer/metrics"
	"contactsync/internal/syncer/mocks"
	"contactsync/internal/syncer/outcomes"
	dErrors "contactsync/pkg/domain-errors"
	"contactsync/pkg/testutil"
)

type SyncerSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	contacts  *mocks.MockContactAPI
	directory *mocks.MockDirectory
	publisher *outcomes.Memory
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func (s *SyncerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.contacts = mocks.NewMockContactAPI(s.ctrl)
	s.directory = mocks.NewMockDirectory(s.ctrl)
	s.publisher = &outcomes.Memory{}
	s.metrics = metrics.NewWithRegisterer(prometheus.NewRegistry())
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *SyncerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestSyncerSuite(t *testing.T) {
	suite.Run(t, new(SyncerSuite))
}

func (s *SyncerSuite) newOrchestrator(cfg Config) *Orchestrator {
	return New(s.contacts, s.directory, cfg,
		WithLogger(s.logger),
		WithMetrics(s.metrics),
		WithPublisher(s.publisher),
		WithIDGenerator(func() string { return "cycle-1" }),
	)
}

func trailOf(names ...string) orchestration.Trail {
	t := orchestration.Trail{}
	for _, n := range names {
		t = t.Append(orchestration.Orchestration{Name: n})
	}
	return t
}

func trailNames(t orchestration.Trail) []string {
	out := make([]string, 0, len(t))
	for _, o := range t {
		out = append(out, o.Name)
	}
	return out
}

func provider(globalID, phone string) string {
	return testutil.ProviderXML(globalID, "Provider "+globalID, phone)
}

func (s *SyncerSuite) TestSuccessfulCycle() {
	lastSync := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	existing := &models.Contact{UUID: "c-1", URNs: []string{"tel:+1"}, Fields: map[string]string{"global_id": "g1"}}

	gomock.InOrder(
		s.directory.EXPECT().FetchProviders(gomock.Any(), lastSync, false).
			Return(testutil.CSDDocument(provider("g1", "+1"), provider("g2", "+2")), trailOf("fetch-directory"), nil),
		s.contacts.EXPECT().GroupUUID(gomock.Any(), "Providers").
			Return("grp-1", trailOf("group"), nil),
		s.contacts.EXPECT().Fetch(gomock.Any(), client.FetchRequest{}).
			Return(testutil.Index(existing), nil, nil),
		s.contacts.EXPECT().Upsert(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, p models.ContactPayload) (*models.Contact, orchestration.Trail, error) {
				s.Equal("c-1", p.UUID)
				s.Equal([]string{"grp-1"}, p.Groups)
				return &models.Contact{UUID: "c-1"}, trailOf("upsert-g1"), nil
			}),
		s.contacts.EXPECT().Upsert(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, p models.ContactPayload) (*models.Contact, orchestration.Trail, error) {
				s.Empty(p.UUID)
				s.Equal("g2", p.GlobalID())
				return &models.Contact{UUID: "c-2"}, trailOf("upsert-g2"), nil
			}),
		s.contacts.EXPECT().Fetch(gomock.Any(), client.FetchRequest{RequireIdentifier: true, GroupUUID: "grp-1"}).
			Return(testutil.Index(
				&models.Contact{UUID: "c-1", Name: "A", URNs: []string{"tel:+1"}, Fields: map[string]string{"global_id": "g1"}},
				&models.Contact{UUID: "c-2", Name: "B", URNs: []string{"tel:+2"}, Fields: map[string]string{"global_id": "g2"}},
			), nil, nil),
		s.directory.EXPECT().LoadProviders(gomock.Any(), gomock.Len(2)).
			DoAndReturn(func(_ context.Context, providers [][]byte) (orchestration.Trail, error) {
				s.Contains(string(providers[0]), `entityID="g1"`)
				s.Contains(string(providers[1]), `entityID="g2"`)
				return trailOf("clear", "load"), nil
			}),
	)

	out := s.newOrchestrator(Config{GroupName: "Providers"}).Run(context.Background(), Params{LastSync: lastSync})

	s.Equal(StatusSuccessful, out.Status)
	s.Empty(out.Error)
	s.Equal("cycle-1", out.CycleID)
	s.Equal(Stats{Providers: 2, Merged: 1, Created: 1, Upserted: 2, WrittenBack: 2}, out.Stats)
	s.Equal([]string{"fetch-directory", "group", "upsert-g1", "upsert-g2", "clear", "load"}, trailNames(out.Trail))

	events := s.publisher.Events()
	s.Require().Len(events, 1)
	s.Equal("Successful", events[0].Status)
	s.Equal(6, events[0].Orchestrations)
	s.Equal(1.0, promtestutil.ToFloat64(s.metrics.CyclesTotal.WithLabelValues("Successful")))
}

func (s *SyncerSuite) TestUpsertFailuresDoNotAbort() {
	s.directory.EXPECT().FetchProviders(gomock.Any(), gomock.Any(), true).
		Return(testutil.CSDDocument(provider("g1", "+1"), provider("g2", "+2"), provider("g3", "+3")), nil, nil)
	s.contacts.EXPECT().Fetch(gomock.Any(), client.FetchRequest{}).Return(models.NewContactIndex(), nil, nil)
	s.contacts.EXPECT().Upsert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p models.ContactPayload) (*models.Contact, orchestration.Trail, error) {
			switch p.GlobalID() {
			case "g1":
				return nil, nil, client.NewError(client.ErrorTransport, "upsert", "contact API responded with status 500", nil)
			case "g2":
				return &models.Contact{}, nil, client.NewError(client.ErrorNotPersisted, "upsert", "response carried no uuid", nil)
			}
			return &models.Contact{UUID: "c-3"}, nil, nil
		}).Times(3)
	s.contacts.EXPECT().Fetch(gomock.Any(), client.FetchRequest{RequireIdentifier: true}).Return(models.NewContactIndex(), nil, nil)
	s.directory.EXPECT().LoadProviders(gomock.Any(), gomock.Len(0)).Return(nil, nil)

	out := s.newOrchestrator(Config{}).Run(context.Background(), Params{Reset: true})

	s.Equal(StatusCompletedWithErrors, out.Status)
	s.Equal(2, out.Stats.UpsertErrors)
	s.Equal(1, out.Stats.NotPersisted)
	s.Equal(1, out.Stats.Upserted)
	s.Equal(1.0, promtestutil.ToFloat64(s.metrics.UpsertsTotal.WithLabelValues(metrics.UpsertNotPersisted)))
}

func (s *SyncerSuite) TestUnsavedUpsertIsDeadLettered() {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/contacts", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_, _ = w.Write([]byte(`{"name":"Provider g1","urns":["tel:+1"]}`))
			return
		}
		_, _ = w.Write([]byte(`{"results":[],"next":null}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	sink := deadletter.NewMemory()
	api := client.New(client.Config{BaseURL: srv.URL + "/api/v2"},
		client.WithLogger(s.logger),
		client.WithDeadLetter(sink),
	)

	s.directory.EXPECT().FetchProviders(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(testutil.CSDDocument(provider("g1", "+1")), nil, nil)
	s.directory.EXPECT().LoadProviders(gomock.Any(), gomock.Len(0)).Return(nil, nil)

	out := New(api, s.directory, Config{},
		WithLogger(s.logger),
		WithMetrics(s.metrics),
		WithPublisher(s.publisher),
	).Run(context.Background(), Params{})

	s.Equal(StatusCompletedWithErrors, out.Status)
	s.Equal(1, out.Stats.NotPersisted)

	entries := sink.Entries()
	s.Require().Len(entries, 1)
	s.Contains(string(entries[0].Payload), `"global_id":"g1"`)
	s.JSONEq(`{"name":"Provider g1","urns":["tel:+1"]}`, string(entries[0].Response))
}

func (s *SyncerSuite) TestDirectoryFetchFailureAbortsCycle() {
	s.directory.EXPECT().FetchProviders(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, trailOf("fetch-directory"), errors.New("connection refused"))

	out := s.newOrchestrator(Config{GroupName: "Providers"}).Run(context.Background(), Params{})

	s.Equal(StatusFailed, out.Status)
	s.True(out.Failed())
	s.Contains(out.Error, "connection refused")
	s.True(dErrors.HasCode(out.Err, dErrors.CodeUpstream))
	s.Equal([]string{"fetch-directory"}, trailNames(out.Trail), "trail accumulated before the failure is kept")
}

func (s *SyncerSuite) TestMalformedDocumentAbortsCycle() {
	s.directory.EXPECT().FetchProviders(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]byte("<CSD><providerDirectory>"), nil, nil)

	out := s.newOrchestrator(Config{}).Run(context.Background(), Params{})

	s.Equal(StatusFailed, out.Status)
	s.True(dErrors.HasCode(out.Err, dErrors.CodeBadData))
	s.ErrorIs(out.Err, directory.ErrMalformedDocument)
}

func (s *SyncerSuite) TestSkippedProvidersAreCounted() {
	noPhone := `<provider entityID="g9"><demographic><name><commonName>X</commonName></name></demographic></provider>`
	s.directory.EXPECT().FetchProviders(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(testutil.CSDDocument(noPhone), nil, nil)
	s.contacts.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(models.NewContactIndex(), nil, nil).Times(2)
	s.directory.EXPECT().LoadProviders(gomock.Any(), gomock.Any()).Return(nil, nil)

	out := s.newOrchestrator(Config{}).Run(context.Background(), Params{})

	s.Equal(StatusSuccessful, out.Status)
	s.Equal(0, out.Stats.Providers)
	s.Equal(1, out.Stats.Skipped)
}

func (s *SyncerSuite) TestContactFetchFailureAbortsCycle() {
	s.directory.EXPECT().FetchProviders(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(testutil.CSDDocument(provider("g1", "+1")), nil, nil)
	s.contacts.EXPECT().Fetch(gomock.Any(), gomock.Any()).
		Return(nil, trailOf("page-1"), client.NewError(client.ErrorBadData, "fetch", "failed to parse contact page", nil))

	out := s.newOrchestrator(Config{}).Run(context.Background(), Params{})

	s.Equal(StatusFailed, out.Status)
	s.Equal([]string{"page-1"}, trailNames(out.Trail))
	s.Equal(client.ErrorBadData, client.GetCategory(out.Err))
}

func (s *SyncerSuite) TestCycleIgnoresCallerCancellation() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s.directory.EXPECT().FetchProviders(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ time.Time, _ bool) ([]byte, orchestration.Trail, error) {
			s.NoError(ctx.Err())
			return testutil.CSDDocument(), nil, nil
		})
	s.contacts.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(models.NewContactIndex(), nil, nil).Times(2)
	s.directory.EXPECT().LoadProviders(gomock.Any(), gomock.Any()).Return(nil, nil)

	out := s.newOrchestrator(Config{}).Run(ctx, Params{})
	s.Equal(StatusSuccessful, out.Status)
}

func (s *SyncerSuite) expectUpsertCycle(n int, upsert func(context.Context, models.ContactPayload) (*models.Contact, orchestration.Trail, error)) {
	providers := make([]string, 0, n)
	for i := 0; i < n; i++ {
		providers = append(providers, provider(fmt.Sprintf("g%02d", i), fmt.Sprintf("+%d", i)))
	}
	s.directory.EXPECT().FetchProviders(gomock.Any(), gomock.Any(), gomock.Any()).Return(testutil.CSDDocument(providers...), nil, nil)
	s.contacts.EXPECT().Fetch(gomock.Any(), client.FetchRequest{}).Return(models.NewContactIndex(), nil, nil)
	s.contacts.EXPECT().Upsert(gomock.Any(), gomock.Any()).DoAndReturn(upsert).Times(n)
	s.contacts.EXPECT().Fetch(gomock.Any(), client.FetchRequest{RequireIdentifier: true}).Return(models.NewContactIndex(), nil, nil)
	s.directory.EXPECT().LoadProviders(gomock.Any(), gomock.Any()).Return(nil, nil)
}

func (s *SyncerSuite) TestConcurrentUpsertsKeepTrailOrder() {
	const n = 20
	var inFlight, peak atomic.Int32

	s.expectUpsertCycle(n, func(_ context.Context, p models.ContactPayload) (*models.Contact, orchestration.Trail, error) {
		cur := inFlight.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return &models.Contact{UUID: "u-" + p.GlobalID()}, trailOf(p.GlobalID()), nil
	})

	out := s.newOrchestrator(Config{UpsertMode: UpsertConcurrent, UpsertConcurrency: 4}).
		Run(context.Background(), Params{})

	s.Equal(StatusSuccessful, out.Status)
	s.Equal(n, out.Stats.Upserted)
	s.LessOrEqual(peak.Load(), int32(4))

	want := make([]string, 0, n)
	for i := 0; i < n; i++ {
		want = append(want, fmt.Sprintf("g%02d", i))
	}
	s.Equal(want, trailNames(out.Trail))
}

func (s *SyncerSuite) TestSequentialUpsertsArePaced() {
	const n = 3
	var stamps []time.Time

	s.expectUpsertCycle(n, func(_ context.Context, p models.ContactPayload) (*models.Contact, orchestration.Trail, error) {
		stamps = append(stamps, time.Now())
		return &models.Contact{UUID: "u"}, nil, nil
	})

	out := s.newOrchestrator(Config{UpsertSpacing: 30 * time.Millisecond}).Run(context.Background(), Params{})

	s.Equal(StatusSuccessful, out.Status)
	s.Require().Len(stamps, n)
	s.GreaterOrEqual(stamps[n-1].Sub(stamps[0]), 50*time.Millisecond)
}
