package client

import (
	"context"
	"encoding/json"
	"net/http"

	"contactsync/internal/contacts/models"
	"contactsync/internal/orchestration"
)

const opFetch = "fetch"

// FetchRequest describes a paginated contact listing.
type FetchRequest struct {
	// Cursor resumes at a "next page" URL returned by a previous listing.
	// When empty the listing starts at the first page.
	Cursor string

	// RequireIdentifier skips contacts without a non-empty global_id.
	RequireIdentifier bool

	// GroupUUID scopes the listing to one group when set.
	GroupUUID string
}

// pageEnvelope distinguishes a missing results key from an empty page.
type pageEnvelope struct {
	Results *[]models.Contact `json:"results"`
	Next    *string           `json:"next"`
}

// Fetch follows the listing cursor until the last page and returns every
// contact indexed by global_id, or by uuid when the contact has none.
// Throttled pages are replayed without advancing the cursor; a transport
// failure or malformed page aborts the whole fetch.
func (c *Client) Fetch(ctx context.Context, req FetchRequest) (*models.ContactIndex, orchestration.Trail, error) {
	next := req.Cursor
	if next == "" {
		next = c.ContactsURL(req.GroupUUID)
	}

	index := models.NewContactIndex()
	var trail orchestration.Trail
	pages := 0

	for next != "" {
		c.logger.Debug("fetching contact page", "url", next, "page", pages+1)

		resp, err := c.exchange(ctx, opFetch, http.MethodGet, next, nil)
		if err != nil {
			return nil, trail, err
		}
		if c.detailed {
			trail = c.record(trail, "Fetch Contacts", http.MethodGet, next, nil, resp)
		}
		if !resp.ok() {
			return nil, trail, newStatusError(opFetch, resp.status)
		}

		page, err := decodePage(resp.body)
		if err != nil {
			return nil, trail, err
		}
		pages++

		for i := range *page.Results {
			contact := (*page.Results)[i]
			if req.RequireIdentifier && !contact.HasGlobalID() {
				continue
			}
			index.Add(&contact)
		}

		following := ""
		if page.Next != nil {
			following = *page.Next
		}
		if following != "" && following == next {
			return nil, trail, NewError(ErrorBadData, opFetch, "next page cursor points at the current page", nil)
		}
		next = following
	}

	c.logger.Info("fetched contacts", "pages", pages, "contacts", index.Len())
	return index, trail, nil
}

func decodePage(body []byte) (*pageEnvelope, error) {
	if len(body) == 0 {
		return nil, NewError(ErrorBadData, opFetch, "empty response body", nil)
	}
	var page pageEnvelope
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, NewError(ErrorBadData, opFetch, "failed to parse contact page", err)
	}
	if page.Results == nil {
		return nil, NewError(ErrorBadData, opFetch, "contact page has no results", nil)
	}
	return &page, nil
}
