// Package directory adapts the CSD provider directory: it decodes provider
// entries into Records, encodes contacts back into providers, and talks to
// the directory's care services endpoints.
package directory

import (
	"contactsync/internal/contacts/models"
	pstrings "contactsync/pkg/platform/strings"
)

// Record is a provider as seen by reconciliation.
type Record struct {
	// GlobalID is the directory's stable identifier. Legacy entries may
	// lack one; reconciliation rejects those.
	GlobalID string

	// URNs holds the provider's tel: URNs in document order, deduplicated.
	URNs []string

	Name string

	// GroupMemberships are opaque group codes attached to the provider.
	GroupMemberships []string
}

// HasIdentifier reports whether the record carries a usable global id.
func (r Record) HasIdentifier() bool {
	return r.GlobalID != ""
}

// recordFromProvider converts one decoded provider. Phone numbers come only
// from BP contact points.
func recordFromProvider(p provider) (Record, error) {
	var urns []string
	for _, cp := range p.Demographic.ContactPoints {
		ct := cp.CodedType
		if ct.Code != contactPointBP || ct.CodingScheme != contactPointScheme {
			continue
		}
		if number := trim(ct.Value); number != "" {
			urns = append(urns, models.URNSchemeTel+number)
		}
	}
	urns = pstrings.DedupeAndTrim(urns)

	if len(urns) == 0 {
		return Record{}, &ShapeError{
			EntityID: p.EntityID,
			Reason:   "no telephone number found, this is a required field for a contact",
		}
	}

	groups := make([]string, 0, len(p.CodedTypes))
	for _, ct := range p.CodedTypes {
		groups = append(groups, ct.Code)
	}

	return Record{
		GlobalID:         trim(p.EntityID),
		URNs:             urns,
		Name:             trim(p.Demographic.Name.CommonName),
		GroupMemberships: pstrings.DedupeAndTrim(groups),
	}, nil
}
