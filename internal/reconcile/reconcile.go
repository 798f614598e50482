// Package reconcile decides, for every directory record, whether it updates an
// existing contact or creates a new one, and builds the write payloads.
//
// Matching order per record:
//  1. a contact indexed under the record's global id;
//  2. otherwise the first contact, in index insertion order, that has no
//     global id of its own and shares at least one URN with the record;
//  3. otherwise a new contact.
//
// Only the "global_id" field is consulted. Reconcile never mutates the
// caller's index.
package reconcile

import (
	"contactsync/internal/contacts/models"
	"contactsync/internal/directory"
	pstrings "contactsync/pkg/platform/strings"
)

// Kind says how a payload was produced.
type Kind string

const (
	KindIdentifierMatch Kind = "identifier_match"
	KindPhoneMatch      Kind = "phone_match"
	KindCreate          Kind = "create"
)

// Decision pairs a payload with how it was matched.
type Decision struct {
	Kind    Kind
	Payload models.ContactPayload
}

// Rejection is a record that produced no payload.
type Rejection struct {
	GlobalID string
	Reason   string
}

// Result is the reconciliation output. Decisions follow input order.
type Result struct {
	Decisions  []Decision
	Rejections []Rejection
}

// Payloads returns the payloads in input order.
func (r Result) Payloads() []models.ContactPayload {
	out := make([]models.ContactPayload, 0, len(r.Decisions))
	for _, d := range r.Decisions {
		out = append(out, d.Payload)
	}
	return out
}

// Count returns how many decisions are of kind k.
func (r Result) Count(k Kind) int {
	n := 0
	for _, d := range r.Decisions {
		if d.Kind == k {
			n++
		}
	}
	return n
}

// Merged returns the number of payloads that update an existing contact.
func (r Result) Merged() int {
	return r.Count(KindIdentifierMatch) + r.Count(KindPhoneMatch)
}

// Created returns the number of payloads for new contacts.
func (r Result) Created() int {
	return r.Count(KindCreate)
}

const (
	reasonNoIdentifier = "record has no global identifier"
	reasonNoURNs       = "record has no phone numbers"
)

// Reconcile matches records against the existing contacts. groupUUID may be
// empty, in which case no group membership is written.
func Reconcile(records []directory.Record, existing *models.ContactIndex, groupUUID string) Result {
	working := existing.Clone()
	res := Result{Decisions: make([]Decision, 0, len(records))}
	// Index into res.Decisions of the create issued for each global id.
	created := make(map[string]int)

	for _, rec := range records {
		urns := pstrings.DedupeAndTrim(rec.URNs)
		switch {
		case !rec.HasIdentifier():
			res.Rejections = append(res.Rejections, Rejection{Reason: reasonNoIdentifier})
			continue
		case len(urns) == 0:
			res.Rejections = append(res.Rejections, Rejection{GlobalID: rec.GlobalID, Reason: reasonNoURNs})
			continue
		}
		rec.URNs = urns

		if i, ok := created[rec.GlobalID]; ok {
			foldInto(&res.Decisions[i].Payload, rec)
			continue
		}

		if c, ok := working.Get(rec.GlobalID); ok {
			merged, payload := Merge(c, rec, groupUUID)
			working.Put(rec.GlobalID, merged)
			res.Decisions = append(res.Decisions, Decision{Kind: KindIdentifierMatch, Payload: payload})
			continue
		}

		if key, c, ok := phoneMatch(working, rec.URNs); ok {
			merged, payload := Merge(c, rec, groupUUID)
			// The contact now carries rec's identifier; move it so a later
			// record cannot claim it again by phone.
			working.Delete(key)
			working.Put(rec.GlobalID, merged)
			res.Decisions = append(res.Decisions, Decision{Kind: KindPhoneMatch, Payload: payload})
			continue
		}

		created[rec.GlobalID] = len(res.Decisions)
		res.Decisions = append(res.Decisions, Decision{Kind: KindCreate, Payload: NewPayload(rec, groupUUID)})
	}

	return res
}

// phoneMatch returns the first unclaimed contact sharing a URN with urns.
func phoneMatch(index *models.ContactIndex, urns []string) (string, *models.Contact, bool) {
	var (
		foundKey string
		found    *models.Contact
	)
	index.Each(func(key string, c *models.Contact) bool {
		if c.HasGlobalID() {
			return true
		}
		if pstrings.Intersects(urns, c.URNs) {
			foundKey, found = key, c
			return false
		}
		return true
	})
	return foundKey, found, found != nil
}

// Merge folds rec into a copy of c and returns the updated contact together
// with the payload that writes it. c itself is left untouched.
//
// URNs are unioned, the global id is overwritten with rec's, and rec's name
// is adopted only when c has none. When groupUUID is set and c is not yet a
// member, the payload's group list is c's current groups plus groupUUID;
// otherwise the payload leaves groups untouched.
func Merge(c *models.Contact, rec directory.Record, groupUUID string) (*models.Contact, models.ContactPayload) {
	merged := c.Clone()

	merged.URNs = pstrings.Union(merged.URNs, rec.URNs)
	if merged.Fields == nil {
		merged.Fields = make(map[string]string, 1)
	}
	merged.Fields[models.FieldGlobalID] = rec.GlobalID
	if merged.Name == "" && rec.Name != "" {
		merged.Name = rec.Name
	}

	current := merged.GroupUUIDs()
	var pending []string
	if groupUUID != "" && !pstrings.Contains(current, groupUUID) {
		pending = pstrings.DedupeAndTrim(append(pending, groupUUID))
		merged.Groups = append(merged.Groups, models.GroupRef{UUID: groupUUID})
	}

	payload := models.ContactPayload{
		UUID:     merged.UUID,
		Name:     merged.Name,
		Language: models.NormalizeLanguage(merged.Language),
		URNs:     append([]string(nil), merged.URNs...),
		Fields:   copyFields(merged.Fields),
	}
	if len(pending) > 0 {
		payload.Groups = pstrings.Union(current, pending)
	}
	return merged, payload
}

// NewPayload builds the payload for a record that matched no contact.
func NewPayload(rec directory.Record, groupUUID string) models.ContactPayload {
	p := models.ContactPayload{
		Name:   rec.Name,
		URNs:   append([]string(nil), rec.URNs...),
		Fields: map[string]string{models.FieldGlobalID: rec.GlobalID},
	}
	if groupUUID != "" {
		p.Groups = []string{groupUUID}
	}
	return p
}

// foldInto merges a repeated record into a pending create so one identifier
// never yields two new contacts.
func foldInto(p *models.ContactPayload, rec directory.Record) {
	p.URNs = pstrings.Union(p.URNs, rec.URNs)
	if p.Name == "" {
		p.Name = rec.Name
	}
}

func copyFields(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
