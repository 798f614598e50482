package syncer

import (
	"time"

	"contactsync/internal/orchestration"
	"contactsync/internal/syncer/outcomes"
)

// Status is the overall result of a cycle.
type Status string

const (
	StatusSuccessful          Status = "Successful"
	StatusCompletedWithErrors Status = "Completed with Errors"
	StatusFailed              Status = "Failed"
)

// Params are the boundary inputs of one cycle.
type Params struct {
	LastSync time.Time
	Reset    bool
}

// Stats counts what a cycle did.
type Stats struct {
	Providers    int `json:"providers"`
	Skipped      int `json:"skipped"`
	Merged       int `json:"merged"`
	Created      int `json:"created"`
	Rejected     int `json:"rejected"`
	Upserted     int `json:"upserted"`
	UpsertErrors int `json:"upsert_errors"`
	NotPersisted int `json:"not_persisted"`
	WrittenBack  int `json:"written_back"`
}

// Outcome is the result of one cycle. Trail holds every recorded outbound
// call in stage order, including those made before a failure.
type Outcome struct {
	CycleID    string              `json:"cycle_id"`
	Status     Status              `json:"status"`
	Error      string              `json:"error,omitempty"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
	Stats      Stats               `json:"stats"`
	Trail      orchestration.Trail `json:"orchestrations"`

	// Err is the failure that aborted the cycle, if any.
	Err error `json:"-"`
}

// Failed reports whether the cycle aborted.
func (o *Outcome) Failed() bool {
	return o.Status == StatusFailed
}

func (o *Outcome) event() outcomes.Event {
	return outcomes.Event{
		CycleID:        o.CycleID,
		Status:         string(o.Status),
		Error:          o.Error,
		StartedAt:      o.StartedAt,
		FinishedAt:     o.FinishedAt,
		Providers:      o.Stats.Providers,
		Skipped:        o.Stats.Skipped,
		Merged:         o.Stats.Merged,
		Created:        o.Stats.Created,
		Rejected:       o.Stats.Rejected,
		Upserted:       o.Stats.Upserted,
		UpsertErrors:   o.Stats.UpsertErrors,
		WrittenBack:    o.Stats.WrittenBack,
		Orchestrations: o.Trail.Len(),
	}
}
