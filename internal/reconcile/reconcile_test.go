package reconcile

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"contactsync/internal/contacts/models"
	"contactsync/internal/directory"
)

type ReconcileSuite struct {
	suite.Suite
	index *models.ContactIndex
}

func (s *ReconcileSuite) SetupTest() {
	s.index = models.NewContactIndex()
}

func TestReconcileSuite(t *testing.T) {
	suite.Run(t, new(ReconcileSuite))
}

func strPtr(v string) *string { return &v }

func (s *ReconcileSuite) TestIdentifierMatch() {
	s.index.Add(&models.Contact{
		UUID:     "c-1",
		Name:     "Existing Name",
		Language: strPtr("fra"),
		URNs:     []string{"tel:+1", "tel:+2"},
		Groups:   []models.GroupRef{{UUID: "grp-old", Name: "Old"}},
		Fields:   map[string]string{"global_id": "g1", "district": "north"},
	})
	rec := directory.Record{GlobalID: "g1", Name: "Directory Name", URNs: []string{"tel:+2", "tel:+3"}}

	res := Reconcile([]directory.Record{rec}, s.index, "grp-1")

	s.Require().Len(res.Decisions, 1)
	d := res.Decisions[0]
	s.Equal(KindIdentifierMatch, d.Kind)
	s.Equal("c-1", d.Payload.UUID)
	s.Equal("g1", d.Payload.Fields["global_id"])
	s.Equal("north", d.Payload.Fields["district"])
	s.Equal([]string{"tel:+1", "tel:+2", "tel:+3"}, d.Payload.URNs)
	s.Equal("Existing Name", d.Payload.Name, "a non-empty name is never overwritten")
	s.Equal("fra", *d.Payload.Language)
	s.Equal([]string{"grp-old", "grp-1"}, d.Payload.Groups)
	s.Equal(1, res.Merged())
	s.Equal(0, res.Created())
}

func (s *ReconcileSuite) TestIdentifierMatchAlreadyInGroup() {
	s.index.Add(&models.Contact{
		UUID:   "c-1",
		URNs:   []string{"tel:+1"},
		Groups: []models.GroupRef{{UUID: "grp-1"}},
		Fields: map[string]string{"global_id": "g1"},
	})

	res := Reconcile([]directory.Record{{GlobalID: "g1", Name: "Dr. A", URNs: []string{"tel:+1"}}}, s.index, "grp-1")

	s.Require().Len(res.Decisions, 1)
	p := res.Decisions[0].Payload
	s.Nil(p.Groups, "membership is left untouched when nothing is added")
	s.Equal("Dr. A", p.Name, "directory name fills an empty contact name")
}

func (s *ReconcileSuite) TestPhoneFallback() {
	s.index.Add(&models.Contact{UUID: "c-other", URNs: []string{"tel:+9"}})
	s.index.Add(&models.Contact{UUID: "c-match", Name: "Phone Only", URNs: []string{"tel:+5"}})
	s.index.Add(&models.Contact{UUID: "c-second", URNs: []string{"tel:+5"}})

	res := Reconcile([]directory.Record{{GlobalID: "g7", URNs: []string{"tel:+5", "tel:+6"}}}, s.index, "")

	s.Require().Len(res.Decisions, 1)
	d := res.Decisions[0]
	s.Equal(KindPhoneMatch, d.Kind)
	s.Equal("c-match", d.Payload.UUID, "first intersecting contact in index order wins")
	s.Equal("g7", d.Payload.Fields["global_id"])
	s.Equal([]string{"tel:+5", "tel:+6"}, d.Payload.URNs)
	s.Nil(d.Payload.Groups)
}

func (s *ReconcileSuite) TestPhoneFallbackSkipsClaimedContacts() {
	s.index.Add(&models.Contact{UUID: "c-claimed", URNs: []string{"tel:+5"}, Fields: map[string]string{"global_id": "g-other"}})

	res := Reconcile([]directory.Record{{GlobalID: "g7", URNs: []string{"tel:+5"}}}, s.index, "")

	s.Require().Len(res.Decisions, 1)
	s.Equal(KindCreate, res.Decisions[0].Kind)
	s.Empty(res.Decisions[0].Payload.UUID)
}

func (s *ReconcileSuite) TestPhoneMatchIsNotReusedWithinCycle() {
	s.index.Add(&models.Contact{UUID: "c-1", URNs: []string{"tel:+5"}})

	res := Reconcile([]directory.Record{
		{GlobalID: "g1", URNs: []string{"tel:+5"}},
		{GlobalID: "g2", URNs: []string{"tel:+5"}},
		{GlobalID: "g1", URNs: []string{"tel:+8"}},
	}, s.index, "")

	s.Require().Len(res.Decisions, 3)
	s.Equal(KindPhoneMatch, res.Decisions[0].Kind)
	s.Equal(KindCreate, res.Decisions[1].Kind)
	s.Equal(KindIdentifierMatch, res.Decisions[2].Kind)
	s.Equal("c-1", res.Decisions[2].Payload.UUID)
	s.Equal([]string{"tel:+5", "tel:+8"}, res.Decisions[2].Payload.URNs)
}

func (s *ReconcileSuite) TestNoMatchCreatesFreshPayload() {
	s.index.Add(&models.Contact{
		UUID:     "c-1",
		Language: strPtr("eng"),
		URNs:     []string{"tel:+1"},
		Fields:   map[string]string{"global_id": "g1", "district": "north"},
	})

	res := Reconcile([]directory.Record{{GlobalID: "g2", Name: "New", URNs: []string{"tel:+2"}}}, s.index, "grp-1")

	s.Require().Len(res.Decisions, 1)
	p := res.Decisions[0].Payload
	s.Equal(KindCreate, res.Decisions[0].Kind)
	s.Empty(p.UUID)
	s.Equal(map[string]string{"global_id": "g2"}, p.Fields)
	s.Equal([]string{"tel:+2"}, p.URNs)
	s.Equal("New", p.Name)
	s.Nil(p.Language)
	s.Equal([]string{"grp-1"}, p.Groups)
}

func (s *ReconcileSuite) TestRejections() {
	res := Reconcile([]directory.Record{
		{GlobalID: "", URNs: []string{"tel:+1"}},
		{GlobalID: "g1"},
		{GlobalID: "g2", URNs: []string{"  ", ""}},
		{GlobalID: "g3", URNs: []string{"tel:+3"}},
	}, s.index, "")

	s.Require().Len(res.Decisions, 1)
	s.Equal("g3", res.Decisions[0].Payload.Fields["global_id"])
	s.Require().Len(res.Rejections, 3)
	s.Equal("g1", res.Rejections[1].GlobalID)
}

func (s *ReconcileSuite) TestOutputFollowsInputOrder() {
	s.index.Add(&models.Contact{UUID: "c-b", URNs: []string{"tel:+2"}, Fields: map[string]string{"global_id": "b"}})

	res := Reconcile([]directory.Record{
		{GlobalID: "c", URNs: []string{"tel:+3"}},
		{GlobalID: "b", URNs: []string{"tel:+2"}},
		{GlobalID: "a", URNs: []string{"tel:+1"}},
	}, s.index, "")

	var ids []string
	for _, p := range res.Payloads() {
		ids = append(ids, p.GlobalID())
	}
	s.Equal([]string{"c", "b", "a"}, ids)
}

func (s *ReconcileSuite) TestCallerIndexIsUntouched() {
	original := &models.Contact{UUID: "c-1", URNs: []string{"tel:+5"}}
	s.index.Add(original)

	_ = Reconcile([]directory.Record{{GlobalID: "g1", URNs: []string{"tel:+5", "tel:+6"}}}, s.index, "grp")

	s.Equal([]string{"c-1"}, s.index.Keys())
	s.Equal([]string{"tel:+5"}, original.URNs)
	s.Nil(original.Fields)
	s.Nil(original.Groups)
}

func (s *ReconcileSuite) TestRepeatedIdentifierCreatesOnce() {
	records := []directory.Record{
		{GlobalID: "g1", URNs: []string{"tel:+1"}},
		{GlobalID: "g2", Name: "Dr. B", URNs: []string{"tel:+2"}},
		{GlobalID: "g1", Name: "Dr. A", URNs: []string{"tel:+1", "tel:+11"}},
	}

	res := Reconcile(records, s.index, "grp-1")

	s.Require().Len(res.Decisions, 2)
	s.Equal(2, res.Created())
	first := res.Decisions[0].Payload
	s.Equal("g1", first.Fields["global_id"])
	s.Equal([]string{"tel:+1", "tel:+11"}, first.URNs)
	s.Equal("Dr. A", first.Name)
	s.Equal([]string{"grp-1"}, first.Groups)
}

func TestMergeIsIdempotent(t *testing.T) {
	contact := &models.Contact{UUID: "c-1", URNs: []string{"tel:+1", "tel:+2"}}
	rec := directory.Record{GlobalID: "g1", URNs: []string{"tel:+2", "tel:+3", "tel:+3"}}

	once, p1 := Merge(contact, rec, "grp")
	twice, p2 := Merge(once, rec, "grp")

	assert.Equal(t, once.URNs, twice.URNs)
	assert.Equal(t, p1.URNs, p2.URNs)
	assert.Equal(t, []string{"tel:+1", "tel:+2", "tel:+3"}, p2.URNs)
	assert.Equal(t, []string{"grp"}, p1.Groups)
	assert.Nil(t, p2.Groups, "second merge finds the group already present")
}

func TestEmptyLanguageIsSentAsNull(t *testing.T) {
	index := models.NewContactIndex()
	index.Add(&models.Contact{UUID: "c-1", Language: strPtr(""), URNs: []string{"tel:+1"}, Fields: map[string]string{"global_id": "g1"}})

	res := Reconcile([]directory.Record{
		{GlobalID: "g1", URNs: []string{"tel:+1"}},
		{GlobalID: "g2", URNs: []string{"tel:+2"}},
	}, index, "")

	require.Len(t, res.Decisions, 2)
	for _, d := range res.Decisions {
		body, err := json.Marshal(d.Payload)
		require.NoError(t, err)
		assert.Contains(t, string(body), `"language":null`)
	}
}
