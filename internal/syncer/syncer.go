// Package syncer runs sync cycles between the provider directory and the
// contact API.
//
// A cycle is strictly staged: fetch directory, resolve group, fetch existing
// contacts, reconcile, upsert, fetch updated contacts, write back to the
// directory. Any failure outside the upsert stage aborts the cycle. Upsert
// failures are counted and the batch continues.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"contactsync/internal/contacts/client"
	"contactsync/internal/contacts/models"
	"contactsync/internal/directory"
	"contactsync/internal/orchestration"
	"contactsync/internal/platform/tracer"
	"contactsync/internal/reconcile"
	"contactsync/internal/syncer/metrics"
	"contactsync/internal/syncer/outcomes"
	dErrors "contactsync/pkg/domain-errors"
	"contactsync/pkg/platform/privacy"
)

// UpsertMode selects how the upsert stage fans out.
type UpsertMode string

const (
	// UpsertSequential issues one upsert at a time, optionally paced.
	UpsertSequential UpsertMode = "sequential"

	// UpsertConcurrent issues upserts in parallel and relies on throttle
	// replay alone to stay within the API's rate limit.
	UpsertConcurrent UpsertMode = "concurrent"
)

// Config configures the orchestrator.
type Config struct {
	// GroupName restricts written and written-back contacts to one group.
	GroupName string

	UpsertMode UpsertMode

	// UpsertConcurrency bounds concurrent upserts; 0 means unbounded.
	UpsertConcurrency int

	// UpsertSpacing is the minimum interval between sequential upserts;
	// 0 disables pacing.
	UpsertSpacing time.Duration

	// Authority names the contact API in providers written back.
	Authority directory.Authority
}

// Orchestrator runs sync cycles.
type Orchestrator struct {
	contacts  ContactAPI
	directory Directory
	cfg       Config
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    tracer.Tracer
	publisher outcomes.Publisher
	now       func() time.Time
	newID     func() string
}

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithTracer sets the tracer.
func WithTracer(t tracer.Tracer) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithPublisher sets where cycle outcomes are published.
func WithPublisher(p outcomes.Publisher) Option {
	return func(o *Orchestrator) {
		if p != nil {
			o.publisher = p
		}
	}
}

// WithClock overrides the time source (for testing).
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIDGenerator overrides cycle id generation (for testing).
func WithIDGenerator(newID func() string) Option {
	return func(o *Orchestrator) {
		if newID != nil {
			o.newID = newID
		}
	}
}

// New creates an orchestrator.
func New(contacts ContactAPI, dir Directory, cfg Config, opts ...Option) *Orchestrator {
	if cfg.UpsertMode == "" {
		cfg.UpsertMode = UpsertSequential
	}
	o := &Orchestrator{
		contacts:  contacts,
		directory: dir,
		cfg:       cfg,
		logger:    slog.Default(),
		tracer:    tracer.NewNoop(),
		publisher: outcomes.Noop{},
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// cycle carries per-run state through the stages.
type cycle struct {
	outcome *Outcome
	logger  *slog.Logger
}

func (c *cycle) add(t orchestration.Trail) {
	c.outcome.Trail = c.outcome.Trail.Concat(t)
}

// Run executes one full cycle. The cycle is detached from ctx cancellation:
// once started it runs to completion.
func (o *Orchestrator) Run(ctx context.Context, p Params) *Outcome {
	ctx = context.WithoutCancel(ctx)

	started := o.now()
	c := &cycle{
		outcome: &Outcome{
			CycleID:   o.newID(),
			StartedAt: started,
			Trail:     orchestration.Trail{},
		},
	}
	c.logger = o.logger.With("cycle_id", c.outcome.CycleID)

	ctx, span := o.tracer.Start(ctx, tracer.SpanCycle,
		tracer.String(tracer.AttrCycleID, c.outcome.CycleID),
		tracer.Bool(tracer.AttrReset, p.Reset),
	)
	if o.metrics != nil {
		o.metrics.CycleInProgress.Set(1)
	}

	c.logger.Info("sync cycle started", "last_sync", p.LastSync, "reset", p.Reset)
	err := o.run(ctx, c, p)

	out := c.outcome
	out.FinishedAt = o.now()
	switch {
	case err != nil:
		out.Status = StatusFailed
		out.Error = err.Error()
		out.Err = err
		c.logger.Error("sync cycle failed", "error", err, "orchestrations", out.Trail.Len())
	case out.Stats.UpsertErrors > 0:
		out.Status = StatusCompletedWithErrors
		c.logger.Warn("sync cycle completed with errors", "upsert_errors", out.Stats.UpsertErrors)
	default:
		out.Status = StatusSuccessful
		c.logger.Info("sync cycle completed", "stats", out.Stats)
	}

	span.SetAttributes(tracer.String(tracer.AttrStatus, string(out.Status)))
	span.End(err)
	if o.metrics != nil {
		o.metrics.CycleInProgress.Set(0)
		o.metrics.ObserveCycle(string(out.Status), out.FinishedAt.Sub(started), out.FinishedAt, out.Failed())
	}
	if perr := o.publisher.Publish(ctx, out.event()); perr != nil {
		c.logger.Warn("failed to publish cycle outcome", "error", perr)
	}
	return out
}

func (o *Orchestrator) run(ctx context.Context, c *cycle, p Params) error {
	records, err := o.fetchDirectory(ctx, c, p)
	if err != nil {
		return err
	}

	groupUUID, err := o.resolveGroup(ctx, c)
	if err != nil {
		return err
	}

	existing, err := o.fetchContacts(ctx, c)
	if err != nil {
		return err
	}

	payloads := o.reconcile(ctx, c, records, existing, groupUUID)

	o.upsert(ctx, c, payloads)

	providers, err := o.fetchUpdated(ctx, c, groupUUID)
	if err != nil {
		return err
	}

	return o.writeBack(ctx, c, providers)
}

// stage wraps fn in a span and records its duration.
func (o *Orchestrator) stage(ctx context.Context, name string, fn func(ctx context.Context, span tracer.Span) error) error {
	started := o.now()
	ctx, span := o.tracer.Start(ctx, name)
	err := fn(ctx, span)
	span.End(err)
	if o.metrics != nil {
		o.metrics.ObserveStage(name, o.now().Sub(started))
	}
	return err
}

func (o *Orchestrator) fetchDirectory(ctx context.Context, c *cycle, p Params) ([]directory.Record, error) {
	var records []directory.Record
	err := o.stage(ctx, tracer.SpanFetchDirectory, func(ctx context.Context, span tracer.Span) error {
		c.logger.Info("pulling providers from directory")
		doc, trail, err := o.directory.FetchProviders(ctx, p.LastSync, p.Reset)
		c.add(trail)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeUpstream, fmt.Sprintf("fetch providers: %v", err))
		}

		parsed, problems := directory.ParseProviders(doc)
		for _, problem := range problems {
			if errors.Is(problem, directory.ErrMalformedDocument) {
				return dErrors.Wrap(problem, dErrors.CodeBadData, fmt.Sprintf("decode providers: %v", problem))
			}
			c.logger.Warn("skipping provider", "reason", problem.Error())
		}

		records = parsed
		c.outcome.Stats.Providers = len(parsed)
		c.outcome.Stats.Skipped = len(problems)
		if o.metrics != nil {
			o.metrics.SkippedTotal.Add(float64(len(problems)))
		}
		span.SetAttributes(tracer.Int(tracer.AttrRecords, len(parsed)))
		c.logger.Info("converted providers", "providers", len(parsed), "skipped", len(problems))
		return nil
	})
	return records, err
}

func (o *Orchestrator) resolveGroup(ctx context.Context, c *cycle) (string, error) {
	if o.cfg.GroupName == "" {
		return "", nil
	}
	var groupUUID string
	err := o.stage(ctx, tracer.SpanResolveGroup, func(ctx context.Context, span tracer.Span) error {
		id, trail, err := o.contacts.GroupUUID(ctx, o.cfg.GroupName)
		c.add(trail)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeUpstream, fmt.Sprintf("resolve group %q: %v", o.cfg.GroupName, err))
		}
		if id == "" {
			c.logger.Warn("contact group not found, contacts will not be grouped", "group", o.cfg.GroupName)
		}
		groupUUID = id
		span.SetAttributes(tracer.String(tracer.AttrGroupUUID, id))
		return nil
	})
	return groupUUID, err
}

func (o *Orchestrator) fetchContacts(ctx context.Context, c *cycle) (*models.ContactIndex, error) {
	var index *models.ContactIndex
	err := o.stage(ctx, tracer.SpanFetchContacts, func(ctx context.Context, span tracer.Span) error {
		c.logger.Info("obtaining existing contacts")
		idx, trail, err := o.contacts.Fetch(ctx, client.FetchRequest{})
		c.add(trail)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeUpstream, fmt.Sprintf("fetch contacts: %v", err))
		}
		index = idx
		span.SetAttributes(tracer.Int(tracer.AttrContacts, idx.Len()))
		return nil
	})
	return index, err
}

func (o *Orchestrator) reconcile(ctx context.Context, c *cycle, records []directory.Record, existing *models.ContactIndex, groupUUID string) []models.ContactPayload {
	var res reconcile.Result
	_ = o.stage(ctx, tracer.SpanReconcile, func(_ context.Context, span tracer.Span) error {
		res = reconcile.Reconcile(records, existing, groupUUID)
		for _, r := range res.Rejections {
			c.logger.Warn("directory record rejected", "global_id", r.GlobalID, "reason", r.Reason)
		}
		span.SetAttributes(tracer.Int(tracer.AttrPayloads, len(res.Decisions)))
		return nil
	})

	c.outcome.Stats.Merged = res.Merged()
	c.outcome.Stats.Created = res.Created()
	c.outcome.Stats.Rejected = len(res.Rejections)
	if o.metrics != nil {
		for _, k := range []reconcile.Kind{reconcile.KindIdentifierMatch, reconcile.KindPhoneMatch, reconcile.KindCreate} {
			o.metrics.ReconciledTotal.WithLabelValues(string(k)).Add(float64(res.Count(k)))
		}
		o.metrics.RejectedTotal.Add(float64(len(res.Rejections)))
	}
	c.logger.Info("reconciled contacts", "merged", res.Merged(), "created", res.Created(), "rejected", len(res.Rejections))
	return res.Payloads()
}

func (o *Orchestrator) fetchUpdated(ctx context.Context, c *cycle, groupUUID string) ([][]byte, error) {
	var providers [][]byte
	err := o.stage(ctx, tracer.SpanFetchUpdated, func(ctx context.Context, span tracer.Span) error {
		c.logger.Info("fetching contacts to write back")
		idx, trail, err := o.contacts.Fetch(ctx, client.FetchRequest{RequireIdentifier: true, GroupUUID: groupUUID})
		c.add(trail)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeUpstream, fmt.Sprintf("fetch updated contacts: %v", err))
		}

		providers = make([][]byte, 0, idx.Len())
		for _, contact := range idx.Contacts() {
			encoded, err := directory.ProviderFromContact(contact, o.cfg.Authority)
			if err != nil {
				c.logger.Warn("skipping contact", "uuid", contact.UUID, "error", err)
				continue
			}
			providers = append(providers, encoded)
		}
		span.SetAttributes(tracer.Int(tracer.AttrContacts, len(providers)))
		return nil
	})
	return providers, err
}

func (o *Orchestrator) writeBack(ctx context.Context, c *cycle, providers [][]byte) error {
	return o.stage(ctx, tracer.SpanWriteDirectory, func(ctx context.Context, _ tracer.Span) error {
		c.logger.Info("loading provider directory with contacts", "providers", len(providers))
		trail, err := o.directory.LoadProviders(ctx, providers)
		c.add(trail)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeUpstream, fmt.Sprintf("load providers: %v", err))
		}
		c.outcome.Stats.WrittenBack = len(providers)
		return nil
	})
}

// upsertResult is written by exactly one worker.
type upsertResult struct {
	trail orchestration.Trail
	err   error
}

func (o *Orchestrator) upsert(ctx context.Context, c *cycle, payloads []models.ContactPayload) {
	_ = o.stage(ctx, tracer.SpanUpsert, func(ctx context.Context, span tracer.Span) error {
		span.SetAttributes(
			tracer.String(tracer.AttrUpsertMode, string(o.cfg.UpsertMode)),
			tracer.Int(tracer.AttrPayloads, len(payloads)),
		)
		c.logger.Info("adding/updating contacts", "contacts", len(payloads), "mode", o.cfg.UpsertMode)

		var results []upsertResult
		if o.cfg.UpsertMode == UpsertConcurrent {
			results = o.upsertConcurrent(ctx, c, payloads)
		} else {
			results = o.upsertSequential(ctx, c, payloads)
		}

		for _, r := range results {
			c.add(r.trail)
			switch {
			case r.err == nil:
				c.outcome.Stats.Upserted++
			case errors.Is(r.err, client.ErrNotPersisted):
				c.outcome.Stats.UpsertErrors++
				c.outcome.Stats.NotPersisted++
			default:
				c.outcome.Stats.UpsertErrors++
			}
		}
		span.SetAttributes(tracer.Int(tracer.AttrFailures, c.outcome.Stats.UpsertErrors))
		c.logger.Info("done adding/updating contacts",
			"contacts", len(payloads),
			"errors", c.outcome.Stats.UpsertErrors,
		)
		return nil
	})
}

func (o *Orchestrator) upsertSequential(ctx context.Context, c *cycle, payloads []models.ContactPayload) []upsertResult {
	var limiter *rate.Limiter
	if o.cfg.UpsertSpacing > 0 {
		limiter = rate.NewLimiter(rate.Every(o.cfg.UpsertSpacing), 1)
	}

	results := make([]upsertResult, len(payloads))
	for i, p := range payloads {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				results[i] = upsertResult{err: err}
				continue
			}
		}
		results[i] = o.upsertOne(ctx, c, i, len(payloads), p)
	}
	return results
}

func (o *Orchestrator) upsertConcurrent(ctx context.Context, c *cycle, payloads []models.ContactPayload) []upsertResult {
	results := make([]upsertResult, len(payloads))

	var g errgroup.Group
	if o.cfg.UpsertConcurrency > 0 {
		g.SetLimit(o.cfg.UpsertConcurrency)
	}
	for i, p := range payloads {
		g.Go(func() error {
			results[i] = o.upsertOne(ctx, c, i, len(payloads), p)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (o *Orchestrator) upsertOne(ctx context.Context, c *cycle, i, total int, p models.ContactPayload) upsertResult {
	_, trail, err := o.contacts.Upsert(ctx, p)
	if o.metrics != nil {
		switch {
		case err == nil:
			o.metrics.RecordUpsert(metrics.UpsertOK)
		case errors.Is(err, client.ErrNotPersisted):
			o.metrics.RecordUpsert(metrics.UpsertNotPersisted)
		default:
			o.metrics.RecordUpsert(metrics.UpsertFailed)
		}
	}
	if err != nil {
		c.logger.Error("contact upsert failed",
			"global_id", p.GlobalID(),
			"uuid", p.UUID,
			"urns", privacy.MaskURNs(p.URNs),
			"error", err,
		)
	}
	c.logger.Debug("processed contact", "n", i+1, "total", total)
	return upsertResult{trail: trail, err: err}
}
