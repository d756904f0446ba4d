package locality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnaf-matcher/internal/reference"
	"github.com/gnaf-matcher/internal/reference/referencetest"
)

func TestResolve(t *testing.T) {
	r := NewResolver(referencetest.Index(), 3)

	tests := []struct {
		name       string
		state      string
		postcode   string
		locality   string
		wantID     string
		wantMethod Method
	}{
		{"exact", "NSW", "2000", "SYDNEY", "NSW100", MethodExact},
		{"full state name", "NEW SOUTH WALES", "2000", "SYDNEY", "NSW100", MethodExact},
		{"misspelled with postcode", "NSW", "2000", "SYDNY", "NSW100", MethodPostcode},
		{"misspelled prefers nearest", "NSW", "2000", "HAYMARKT", "NSW102", MethodPostcode},
		{"alias name", "NSW", "2012", "STRAWBERRY HILLS", "NSW103", MethodAlias},
		{"alias only in postcode set", "NSW", "2012", "NOWHERE", "NSW103", MethodPostcode},
		{"state derived from postcode", "", "2010", "SURRY HILLS", "NSW103", MethodExact},
		{"additional postcode", "NSW", "2001", "SYDNEE", "NSW100", MethodPostcode},
		{"in-state fuzzy without postcode", "NSW", "", "PARRAMATA", "NSW105", MethodFuzzy},
		{"same name other state", "VIC", "3121", "RICHMOND", "VIC201", MethodExact},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Resolve(tt.state, tt.postcode, tt.locality)
			require.NotNil(t, res.Locality)
			assert.Equal(t, tt.wantID, res.Locality.ID)
			assert.False(t, res.Locality.IsAlias)
			assert.Equal(t, tt.wantMethod, res.Method)
		})
	}
}

func TestResolveNone(t *testing.T) {
	r := NewResolver(referencetest.Index(), 3)

	res := r.Resolve("QLD", "4000", "BRISBANE")
	assert.Nil(t, res.State)
	assert.Nil(t, res.Locality)

	res = r.Resolve("NSW", "", "ZZZZZZZZZZZZ")
	require.NotNil(t, res.State)
	assert.Equal(t, referencetest.NSW, res.State.ID)
	assert.Nil(t, res.Locality)
	assert.Equal(t, MethodNone, res.Method)
}

func TestAliasRedirectionMatchesCanonical(t *testing.T) {
	ix := referencetest.Index()
	r := NewResolver(ix, 3)

	for _, row := range referencetest.Rows().LocalityAliases {
		st := ix.StateByID(row.StateID)
		require.NotNil(t, st)

		viaAlias := r.Resolve(st.Abbreviation, row.Postcode, row.Name)
		require.NotNil(t, viaAlias.Locality, row.Name)
		assert.Same(t, ix.LocalityByID(row.LocalityID), viaAlias.Locality, row.Name)

		// Resolving the canonical result again is stable.
		again := r.Resolve(st.Abbreviation, viaAlias.Locality.Postcode, viaAlias.Locality.Name)
		assert.Same(t, viaAlias.Locality, again.Locality)
	}
}

func TestResolveFuzzyPrefersSoundAlike(t *testing.T) {
	rows := referencetest.Rows()
	rows.Localities = append(rows.Localities,
		reference.LocalityRow{ID: "NSW110", Name: "BILLIP", StateID: referencetest.NSW, Postcode: "2800", ClassCode: "G"},
		reference.LocalityRow{ID: "NSW111", Name: "FILLIP", StateID: referencetest.NSW, Postcode: "2801", ClassCode: "G"},
	)
	ix, _ := reference.Load(rows)

	res := NewResolver(ix, 3).Resolve("NSW", "", "PHILLIP")
	require.NotNil(t, res.Locality)
	assert.Equal(t, "NSW111", res.Locality.ID)
	assert.Equal(t, MethodFuzzy, res.Method)
}

func TestResolvePostcodeFromOtherState(t *testing.T) {
	r := NewResolver(referencetest.Index(), 3)

	// A near name in the given state beats the other state's postcode.
	res := r.Resolve("NSW", "3000", "SYDNY")
	require.NotNil(t, res.Locality)
	assert.Equal(t, "NSW100", res.Locality.ID)
	assert.Equal(t, MethodFuzzy, res.Method)
	assert.Equal(t, res.Locality.StateID, res.State.ID)

	// With no near name the postcode decides, and the state follows it.
	res = r.Resolve("NSW", "3000", "ZZZZZZZZZZZZ")
	require.NotNil(t, res.Locality)
	assert.Equal(t, "VIC200", res.Locality.ID)
	assert.Equal(t, MethodPostcode, res.Method)
	require.NotNil(t, res.State)
	assert.Equal(t, referencetest.VIC, res.State.ID)
}
