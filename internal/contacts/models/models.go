package models

import (
	"strings"

	pstrings "contactsync/pkg/platform/strings"
)

// FieldGlobalID is the contact field that mirrors the directory's stable
// identifier. Older deployments used "globalid"; that spelling is not read.
const FieldGlobalID = "global_id"

// URNSchemeTel prefixes phone-number URNs.
const URNSchemeTel = "tel:"

// GroupRef is the read-side representation of a group membership.
type GroupRef struct {
	UUID string `json:"uuid"`
	Name string `json:"name,omitempty"`
}

// Contact is a contact as returned by the contact API.
type Contact struct {
	UUID     string            `json:"uuid,omitempty"`
	Name     string            `json:"name,omitempty"`
	Language *string           `json:"language"`
	URNs     []string          `json:"urns"`
	Groups   []GroupRef        `json:"groups,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
}

// GlobalID returns the trimmed global identifier field, or "" when absent.
func (c *Contact) GlobalID() string {
	if c == nil || c.Fields == nil {
		return ""
	}
	return strings.TrimSpace(c.Fields[FieldGlobalID])
}

// HasGlobalID reports whether the contact carries a non-empty global identifier.
func (c *Contact) HasGlobalID() bool {
	return c.GlobalID() != ""
}

// IndexKey is the key a contact is stored under: its global identifier when
// present, otherwise its API uuid.
func (c *Contact) IndexKey() string {
	if id := c.GlobalID(); id != "" {
		return id
	}
	return c.UUID
}

// GroupUUIDs flattens the group references into a list of identifiers.
func (c *Contact) GroupUUIDs() []string {
	out := make([]string, 0, len(c.Groups))
	for _, g := range c.Groups {
		if g.UUID != "" {
			out = append(out, g.UUID)
		}
	}
	return pstrings.DedupeAndTrim(out)
}

// TelURNs returns only the phone-number URNs.
func (c *Contact) TelURNs() []string {
	var out []string
	for _, u := range c.URNs {
		if strings.HasPrefix(u, URNSchemeTel) {
			out = append(out, u)
		}
	}
	return out
}

// Clone returns a deep copy so merges never mutate fetched records.
func (c *Contact) Clone() *Contact {
	if c == nil {
		return nil
	}
	out := *c
	out.URNs = append([]string(nil), c.URNs...)
	out.Groups = append([]GroupRef(nil), c.Groups...)
	if c.Fields != nil {
		out.Fields = make(map[string]string, len(c.Fields))
		for k, v := range c.Fields {
			out.Fields[k] = v
		}
	}
	if c.Language != nil {
		lang := *c.Language
		out.Language = &lang
	}
	return &out
}

// ContactPayload is the write shape sent to the contact API. UUID is used for
// routing only and travels as a query parameter. Groups lists group uuids to
// write and is omitted when the membership is left untouched. Language is
// always serialized so an unset language goes out as null.
type ContactPayload struct {
	UUID     string            `json:"-"`
	Name     string            `json:"name,omitempty"`
	Language *string           `json:"language"`
	URNs     []string          `json:"urns"`
	Fields   map[string]string `json:"fields"`
	Groups   []string          `json:"groups,omitempty"`
}

// GlobalID returns the payload's global identifier field.
func (p ContactPayload) GlobalID() string {
	return p.Fields[FieldGlobalID]
}

// NormalizeLanguage maps an empty or blank language to nil.
func NormalizeLanguage(lang *string) *string {
	if lang == nil || strings.TrimSpace(*lang) == "" {
		return nil
	}
	v := *lang
	return &v
}

// Group is a group as returned by the groups listing.
type Group struct {
	UUID  string `json:"uuid"`
	Name  string `json:"name"`
	Count int    `json:"count,omitempty"`
}

