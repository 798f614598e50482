package client

import (
	"context"
	"encoding/json"
	"net/http"

	"contactsync/internal/contacts/models"
	"contactsync/internal/orchestration"
)

const opGroups = "groups"

type groupEnvelope struct {
	Results *[]models.Group `json:"results"`
}

// GroupUUID resolves a group name to its uuid. It returns "" without error
// when no such group exists.
func (c *Client) GroupUUID(ctx context.Context, name string) (string, orchestration.Trail, error) {
	target := c.groupsURL(name)

	resp, err := c.exchange(ctx, opGroups, http.MethodGet, target, nil)
	if err != nil {
		return "", nil, err
	}
	trail := c.record(nil, "Obtain Group UUID", http.MethodGet, target, nil, resp)

	if !resp.ok() {
		return "", trail, newStatusError(opGroups, resp.status)
	}

	var env groupEnvelope
	if err := json.Unmarshal(resp.body, &env); err != nil {
		return "", trail, NewError(ErrorBadData, opGroups, "failed to parse group listing", err)
	}
	if env.Results == nil {
		return "", trail, NewError(ErrorBadData, opGroups, "group listing has no results", nil)
	}
	if len(*env.Results) == 0 {
		return "", trail, nil
	}
	return (*env.Results)[0].UUID, trail, nil
}
