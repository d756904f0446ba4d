package reference_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnaf-matcher/internal/reference"
	"github.com/gnaf-matcher/internal/reference/referencetest"
)

func TestLoadReportsAnomalies(t *testing.T) {
	ix, anomalies := reference.Load(referencetest.Rows())
	require.NotNil(t, ix)

	kinds := map[string]string{}
	for _, a := range anomalies {
		kinds[a.Kind] = a.Ref
	}
	assert.Equal(t, "NSW9999", kinds["street_locality"])
	assert.Equal(t, "NSW0000", kinds["range_street"])
	assert.Len(t, anomalies, 2)
	assert.Equal(t, 2, ix.Stats().Anomalies)
	assert.Nil(t, ix.StreetByID("NSW9999"))
}

func TestStateLookup(t *testing.T) {
	ix := referencetest.Index()

	tests := []struct {
		key  string
		want int
	}{
		{"NSW", referencetest.NSW},
		{"nsw", referencetest.NSW},
		{"New South Wales", referencetest.NSW},
		{"  VICTORIA ", referencetest.VIC},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			st := ix.State(tt.key)
			require.NotNil(t, st)
			assert.Equal(t, tt.want, st.ID)
		})
	}
	assert.Nil(t, ix.State("QLD"))
	assert.Nil(t, ix.State(""))
}

func TestPostcodesAccumulate(t *testing.T) {
	ix := referencetest.Index()

	sydney := ix.LocalityByID("NSW100")
	require.NotNil(t, sydney)
	assert.Equal(t, "2000", sydney.Postcode)
	assert.Equal(t, []string{"2001"}, sydney.Postcodes)
	assert.True(t, sydney.HasPostcode("2001"))

	ids := []string{}
	for _, l := range ix.ByPostcode("2001") {
		ids = append(ids, l.ID)
	}
	assert.Equal(t, []string{"NSW100"}, ids)
}

func TestDuplicateLocalityRowsMerge(t *testing.T) {
	rows := referencetest.Rows()
	rows.Localities = append(rows.Localities,
		reference.LocalityRow{ID: "NSW100", Name: "RENAMED", StateID: referencetest.NSW, Postcode: "1230"},
	)
	ix, _ := reference.Load(rows)

	sydney := ix.LocalityByID("NSW100")
	assert.Equal(t, "SYDNEY", sydney.Name)
	assert.True(t, sydney.HasPostcode("1230"))
	assert.Nil(t, ix.Locality(referencetest.NSW, "RENAMED"))
}

func TestAliasRedirects(t *testing.T) {
	ix := referencetest.Index()

	alias := ix.LocalityAlias(referencetest.NSW, "strawberry hills")
	require.NotNil(t, alias)
	assert.True(t, alias.IsAlias)
	assert.Same(t, ix.LocalityByID("NSW103"), alias.Canonical())
	// Redirecting twice lands on the same locality.
	assert.Same(t, alias.Canonical(), alias.Canonical().Canonical())

	found := false
	for _, l := range ix.ByPostcode("2012") {
		if l == alias {
			found = true
		}
	}
	assert.True(t, found, "alias reachable by its postcode")
}

func TestNeighboursAreSymmetric(t *testing.T) {
	ix := referencetest.Index()

	assert.True(t, ix.LocalityByID("NSW103").IsNeighbor("NSW104"))
	assert.True(t, ix.LocalityByID("NSW104").IsNeighbor("NSW103"))
	assert.False(t, ix.LocalityByID("NSW103").IsNeighbor("NSW100"))
}

func TestStreetsAndRanges(t *testing.T) {
	ix := referencetest.Index()

	pitt := ix.Streets("NSW100", "pitt")
	require.Len(t, pitt, 1)
	assert.Equal(t, "NSW2000", pitt[0].ID)
	assert.Equal(t, 300, pitt[0].Range.Count)
	assert.True(t, pitt[0].Range.Covers(12))
	assert.False(t, pitt[0].Range.Covers(401))
	assert.Same(t, ix.LocalityByID("NSW100"), pitt[0].Locality)

	// (0,0) is no known range, never a rejection.
	eliz := ix.StreetByID("NSW2009")
	assert.True(t, eliz.Range.Covers(9999))

	aliases := ix.StreetAliases("NSW100", "OLD GEORGE")
	require.Len(t, aliases, 1)
	assert.Equal(t, "NSW2001", aliases[0].ID)

	assert.Len(t, ix.StreetsNamed("MACQUARIE"), 2)

	streets := ix.LocalityStreets("NSW100")
	for i := 1; i < len(streets); i++ {
		assert.LessOrEqual(t, streets[i-1].Name, streets[i].Name)
	}
}

func TestStreetTypeLookup(t *testing.T) {
	ix := referencetest.Index()

	tests := []struct {
		word string
		want string
		ok   bool
	}{
		{"ST", "STREET", true},
		{"STREET", "STREET", true},
		{"rd", "ROAD", true},
		{"AVE", "AVENUE", true},
		{"CRES", "CRESCENT", true},
		{"P", "", false},
		{"NORTH", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			st, ok := ix.StreetType(tt.word)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, st.Code)
			}
		})
	}

	sf, ok := ix.Suffix("NORTH")
	require.True(t, ok)
	assert.Equal(t, "N", sf.Code)
}

func TestRankOwnsNameSlot(t *testing.T) {
	rows := referencetest.Rows()
	rows.Localities = append(rows.Localities,
		reference.LocalityRow{ID: "NSW150", Name: "SYDNEY", StateID: referencetest.NSW, Postcode: "2999", ClassCode: "U"},
		reference.LocalityRow{ID: "NSW151", Name: "GLEBE", StateID: referencetest.NSW, Postcode: "2037", ClassCode: "D"},
		reference.LocalityRow{ID: "NSW152", Name: "GLEBE", StateID: referencetest.NSW, Postcode: "2037", ClassCode: "G"},
	)
	ix, _ := reference.Load(rows)

	assert.Equal(t, "NSW100", ix.Locality(referencetest.NSW, "SYDNEY").ID)
	assert.Equal(t, "NSW152", ix.Locality(referencetest.NSW, "GLEBE").ID)
	assert.Equal(t, "NSW152", ix.ByPostcode("2037")[0].ID)
}
