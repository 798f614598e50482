package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"contactsync/internal/contacts/client"
	"contactsync/internal/contacts/deadletter"
	"contactsync/internal/directory"
	"contactsync/internal/platform/config"
	"contactsync/internal/platform/health"
	"contactsync/internal/platform/kafka"
	"contactsync/internal/platform/kafka/producer"
	"contactsync/internal/platform/logger"
	"contactsync/internal/platform/redis"
	"contactsync/internal/platform/tracer"
	"contactsync/internal/syncer"
	"contactsync/internal/syncer/metrics"
	"contactsync/internal/syncer/outcomes"
	"contactsync/internal/syncstate"
)

// app holds the wired service and everything that must be closed with it.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	service *syncer.Service
	store   syncstate.Store
	redis   *redis.Client
	checks  map[string]health.CheckFunc
	closers []io.Closer
}

func newLogger(level string) *slog.Logger {
	if level == "" {
		return logger.New()
	}
	return logger.NewWriter(os.Stdout, level)
}

// newApp wires the clients, stores and publisher described by cfg.
func newApp(ctx context.Context, cfg config.Config, log *slog.Logger, reg prometheus.Registerer) (*app, error) {
	a := &app{cfg: cfg, logger: log, checks: make(map[string]health.CheckFunc)}

	m := metrics.NewWithRegisterer(reg)

	dead, closer := deadletter.NewRotating(deadletter.Config{
		Path:       cfg.Sync.DeadLetterPath,
		MaxSizeMB:  50,
		MaxBackups: 5,
		MaxAgeDays: 90,
	})
	a.closers = append(a.closers, closer)

	contacts := client.New(client.Config{
		BaseURL:        cfg.Contacts.BaseURL,
		Token:          cfg.Contacts.Token,
		Timeout:        cfg.Contacts.Timeout,
		ThrottleMargin: cfg.Contacts.ThrottleMargin,
	},
		client.WithLogger(log.With("component", "contacts")),
		client.WithDeadLetter(dead),
		client.WithThrottleHook(m.RecordThrottle),
		client.WithDetailedOrchestrations(cfg.Contacts.DetailedOrchestrations),
	)

	dir := directory.New(directory.Config{
		BaseURL:          cfg.Directory.BaseURL,
		Username:         cfg.Directory.Username,
		Password:         cfg.Directory.Password,
		QueryDocument:    cfg.Directory.QueryDocument,
		ContactsDocument: cfg.Directory.ContactsDocument,
		Timeout:          cfg.Directory.Timeout,
	}, directory.WithLogger(log.With("component", "directory")))

	fallback := syncstate.State{LastSync: cfg.Sync.LastSync, Reset: cfg.Sync.Reset}
	var store syncstate.Store = syncstate.NewMemory(fallback)
	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		a.Close()
		return nil, err
	}
	if rc != nil {
		a.redis = rc
		a.closers = append(a.closers, rc)
		a.checks["redis"] = rc.Health
		store = syncstate.NewRedis(rc, cfg.Redis.Key, fallback)
		log.Info("sync state stored in redis", "key", cfg.Redis.Key)
	}

	var publisher outcomes.Publisher = outcomes.Noop{}
	if cfg.Kafka.Brokers != "" {
		if err := kafka.NewHealthChecker(cfg.Kafka.Brokers).Check(); err != nil {
			log.Warn("kafka brokers unreachable at startup", "error", err)
		}
		p, err := producer.New(cfg.Kafka, log.With("component", "kafka"))
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, p)
		a.checks["kafka"] = p.Health
		publisher = outcomes.NewKafka(p, cfg.Kafka.Topic, log)
	}

	orchestrator := syncer.New(contacts, dir, syncer.Config{
		GroupName:         cfg.Contacts.GroupName,
		UpsertMode:        syncer.UpsertMode(cfg.Sync.UpsertMode),
		UpsertConcurrency: cfg.Sync.UpsertConcurrency,
		UpsertSpacing:     cfg.Sync.UpsertSpacing,
		Authority:         authority(cfg.Contacts),
	},
		syncer.WithLogger(log),
		syncer.WithMetrics(m),
		syncer.WithTracer(tracer.NewOTel()),
		syncer.WithPublisher(publisher),
	)

	a.store = store
	a.service = syncer.NewService(orchestrator, store, log)
	return a, nil
}

// sync runs one cycle and refreshes pool gauges.
func (a *app) sync(ctx context.Context) (*syncer.Outcome, error) {
	out, err := a.service.Sync(ctx)
	if a.redis != nil {
		a.redis.RecordPoolStats()
	}
	return out, err
}

// forceReset marks the stored state so the next cycle pulls every provider.
func (a *app) forceReset(ctx context.Context) error {
	state, err := a.store.Load(ctx)
	if err != nil {
		return err
	}
	state.Reset = true
	return a.store.Save(ctx, state)
}

// Close releases every resource in reverse order of creation.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// authority names the contact API in providers written back: the API URL
// qualifies group codes and URL/slug qualifies contact uuids.
func authority(cfg config.Contacts) directory.Authority {
	base := strings.TrimRight(cfg.BaseURL, "/")
	assigning := base
	if cfg.Slug != "" {
		if u, err := url.JoinPath(base, cfg.Slug); err == nil {
			assigning = u
		}
	}
	return directory.Authority{CodingScheme: base, AssigningAuthority: assigning}
}
