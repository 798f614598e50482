package testutil

import (
	"fmt"
	"strings"

	"contactsync/internal/contacts/models"
)

// ProviderXML renders one CSD provider with a BP contact point per phone.
func ProviderXML(globalID, name string, phones ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<provider entityID=%q><demographic><name><commonName>%s</commonName></name>`, globalID, name)
	for _, p := range phones {
		fmt.Fprintf(&b, `<contactPoint><codedType code="BP" codingScheme="urn:ihe:iti:csd:2013:contactPoint">%s</codedType></contactPoint>`, p)
	}
	b.WriteString(`</demographic></provider>`)
	return b.String()
}

// CSDDocument wraps providers in a CSD providerDirectory.
func CSDDocument(providers ...string) []byte {
	return []byte(`<CSD xmlns="urn:ihe:iti:csd:2013"><providerDirectory>` +
		strings.Join(providers, "") +
		`</providerDirectory></CSD>`)
}

// Contact builds a contact; an empty globalID leaves the field unset.
func Contact(uuid, globalID string, urns ...string) *models.Contact {
	c := &models.Contact{UUID: uuid, URNs: urns}
	if globalID != "" {
		c.Fields = map[string]string{models.FieldGlobalID: globalID}
	}
	return c
}

// Index builds a contact index in the given order.
func Index(contacts ...*models.Contact) *models.ContactIndex {
	idx := models.NewContactIndex()
	for _, c := range contacts {
		idx.Add(c)
	}
	return idx
}
