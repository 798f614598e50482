package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"contactsync/internal/contacts/models"
	"contactsync/internal/orchestration"
)

const opUpsert = "upsert"

// Upsert creates a contact, or updates the one identified by p.UUID. The
// returned contact is the API's saved representation. A 2xx response without
// a uuid is written to the dead-letter sink and reported as ErrNotPersisted
// together with whatever the API returned.
func (c *Client) Upsert(ctx context.Context, p models.ContactPayload) (*models.Contact, orchestration.Trail, error) {
	target := c.ContactsURL("")
	if p.UUID != "" {
		target += "?" + url.Values{"uuid": {p.UUID}}.Encode()
	}

	body, err := json.Marshal(p)
	if err != nil {
		return nil, nil, NewError(ErrorInternal, opUpsert, "failed to marshal contact", err)
	}

	resp, err := c.exchange(ctx, opUpsert, http.MethodPost, target, body)
	if err != nil {
		return nil, nil, err
	}

	var trail orchestration.Trail
	if c.detailed {
		trail = c.record(trail, "Add/Update Contact", http.MethodPost, target, body, resp)
	}

	if !resp.ok() {
		return nil, trail, newStatusError(opUpsert, resp.status)
	}
	if len(bytes.TrimSpace(resp.body)) == 0 {
		return nil, trail, NewError(ErrorBadData, opUpsert, "no body returned, the contact most likely was not saved", nil)
	}

	var saved models.Contact
	if err := json.Unmarshal(resp.body, &saved); err != nil {
		return nil, trail, NewError(ErrorBadData, opUpsert, "failed to parse saved contact", err)
	}

	if saved.UUID == "" {
		c.logger.Error("contact API acknowledged upsert without a uuid",
			"global_id", p.GlobalID(),
			"status", resp.status,
		)
		if c.deadLetter != nil {
			if dlErr := c.deadLetter.Record(ctx, body, resp.body); dlErr != nil {
				c.logger.Error("failed to record dead letter", "error", dlErr)
			}
		}
		return &saved, trail, NewError(ErrorNotPersisted, opUpsert, "response carried no uuid", nil)
	}

	return &saved, trail, nil
}
