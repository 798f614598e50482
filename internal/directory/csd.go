package directory

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"contactsync/internal/contacts/models"
)

const (
	// Namespace is the CSD 2013 XML namespace.
	Namespace = "urn:ihe:iti:csd:2013"

	contactPointBP     = "BP"
	contactPointScheme = "urn:ihe:iti:csd:2013:contactPoint"

	// OtherIDContact marks the otherID holding the contact API uuid.
	OtherIDContact = "rapidpro_contact_id"
)

// ErrMalformedDocument is matched when the directory document itself, rather
// than one of its providers, cannot be decoded.
var ErrMalformedDocument = errors.New("malformed CSD document")

// ShapeError reports a provider entry that cannot become a Record.
type ShapeError struct {
	EntityID string
	Reason   string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("provider %q: %s", e.EntityID, e.Reason)
}

// Element names carry no namespace so both prefixed and default-namespace
// documents decode.
type csdDocument struct {
	XMLName           xml.Name `xml:"CSD"`
	ProviderDirectory struct {
		Providers []provider `xml:"provider"`
	} `xml:"providerDirectory"`
}

type provider struct {
	XMLName     xml.Name    `xml:"provider"`
	EntityID    string      `xml:"entityID,attr"`
	OtherIDs    []otherID   `xml:"otherID"`
	CodedTypes  []codedType `xml:"codedType"`
	Demographic demographic `xml:"demographic"`
}

type otherID struct {
	Code                   string `xml:"code,attr"`
	AssigningAuthorityName string `xml:"assigningAuthorityName,attr,omitempty"`
	Value                  string `xml:",chardata"`
}

type codedType struct {
	Code         string `xml:"code,attr"`
	CodingScheme string `xml:"codingScheme,attr"`
	Value        string `xml:",chardata"`
}

type demographic struct {
	Name struct {
		CommonName string `xml:"commonName"`
	} `xml:"name"`
	ContactPoints []contactPoint `xml:"contactPoint"`
}

type contactPoint struct {
	CodedType codedType `xml:"codedType"`
}

// ParseProviders extracts every provider under CSD/providerDirectory.
// Providers that cannot be converted are skipped and reported in the second
// return value. When the document itself is empty or malformed the records
// are nil and the only error matches ErrMalformedDocument.
func ParseProviders(doc []byte) ([]Record, []error) {
	if len(bytes.TrimSpace(doc)) == 0 {
		return nil, []error{fmt.Errorf("%w: no CSD document returned", ErrMalformedDocument)}
	}

	var parsed csdDocument
	if err := xml.Unmarshal(doc, &parsed); err != nil {
		return nil, []error{fmt.Errorf("%w: %v", ErrMalformedDocument, err)}
	}

	providers := parsed.ProviderDirectory.Providers
	records := make([]Record, 0, len(providers))
	var problems []error
	for _, p := range providers {
		rec, err := recordFromProvider(p)
		if err != nil {
			problems = append(problems, err)
			continue
		}
		records = append(records, rec)
	}
	return records, problems
}

// Authority names the contact API in encoded providers.
type Authority struct {
	// CodingScheme qualifies group codes, typically the contact API URL.
	CodingScheme string

	// AssigningAuthority qualifies the contact uuid, typically URL/slug.
	AssigningAuthority string
}

// ProviderFromContact encodes a contact as a CSD provider keyed by its
// global id. Only tel: URNs become contact points.
func ProviderFromContact(c *models.Contact, authority Authority) ([]byte, error) {
	p := provider{
		EntityID: c.GlobalID(),
		OtherIDs: []otherID{{
			Code:                   OtherIDContact,
			AssigningAuthorityName: authority.AssigningAuthority,
			Value:                  c.UUID,
		}},
	}
	for _, g := range c.GroupUUIDs() {
		p.CodedTypes = append(p.CodedTypes, codedType{Code: g, CodingScheme: authority.CodingScheme})
	}
	p.Demographic.Name.CommonName = c.Name
	for _, urn := range c.TelURNs() {
		p.Demographic.ContactPoints = append(p.Demographic.ContactPoints, contactPoint{
			CodedType: codedType{
				Code:         contactPointBP,
				CodingScheme: contactPointScheme,
				Value:        strings.TrimPrefix(urn, models.URNSchemeTel),
			},
		})
	}

	out, err := xml.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode provider %q: %w", p.EntityID, err)
	}
	return out, nil
}

func trim(s string) string {
	return strings.TrimSpace(s)
}
