package httptransport

import (
	"encoding/json"
	"time"

	"contactsync/internal/orchestration"
	"contactsync/internal/syncer"
)

// ContentTypeOpenHIM marks a mediator return object.
const ContentTypeOpenHIM = "application/json+openhim"

// MediatorResponse is the return object the OpenHIM core expects from a
// mediator so the transaction and its orchestrations display correctly.
type MediatorResponse struct {
	URN            string                 `json:"x-mediator-urn"`
	Status         string                 `json:"status"`
	Response       orchestration.Response `json:"response"`
	Orchestrations orchestration.Trail    `json:"orchestrations"`
	Properties     map[string]string      `json:"properties"`
}

// cycleBody is the JSON body embedded in the mediator response.
type cycleBody struct {
	CycleID string       `json:"cycle_id"`
	Stats   syncer.Stats `json:"stats"`
	Error   string       `json:"error,omitempty"`
}

func buildMediatorResponse(urn string, out *syncer.Outcome, httpStatus int, now time.Time) MediatorResponse {
	// Marshalling a struct of strings and ints cannot fail.
	body, _ := json.Marshal(cycleBody{CycleID: out.CycleID, Stats: out.Stats, Error: out.Error})

	trail := out.Trail
	if trail == nil {
		trail = orchestration.Trail{}
	}
	return MediatorResponse{
		URN:    urn,
		Status: string(out.Status),
		Response: orchestration.Response{
			Status:    httpStatus,
			Headers:   map[string]string{"content-type": "application/json"},
			Body:      string(body),
			Timestamp: now,
		},
		Orchestrations: trail,
		Properties: map[string]string{
			"property": "Primary Route",
			"cycle_id": out.CycleID,
		},
	}
}
