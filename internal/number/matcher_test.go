package number

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnaf-matcher/internal/parser"
	"github.com/gnaf-matcher/internal/reference/referencetest"
)

type detail struct {
	id           string
	streetID     string
	number       int
	numberLast   int
	numberSuffix string
	flat         int
	flatSuffix   string
	level        int
}

// fakeStore answers lookups the way the SQL store does and records every
// query it was asked.
type fakeStore struct {
	details []detail
	calls   []Lookup
	err     error
}

func (f *fakeStore) Find(_ context.Context, q Lookup) (*Record, error) {
	f.calls = append(f.calls, q)
	if f.err != nil {
		return nil, f.err
	}
	for _, d := range f.details {
		if d.matches(q) {
			return &Record{ID: d.id, Full: d.id}, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) FindBuilding(context.Context, string, string) (*Record, error) {
	return nil, nil
}

func (d detail) matches(q Lookup) bool {
	if d.streetID != q.StreetID {
		return false
	}
	if q.Number > 0 {
		if q.Between {
			if q.Number < d.number || q.Number > d.numberLast {
				return false
			}
		} else if d.number != q.Number {
			return false
		}
	}
	if q.NumberLast > 0 && d.numberLast != q.NumberLast {
		return false
	}
	if q.NumberSuffix != "" && d.numberSuffix != q.NumberSuffix {
		return false
	}
	if q.Flat > 0 && d.flat != q.Flat {
		return false
	}
	if q.FlatSuffix != "" && d.flatSuffix != q.FlatSuffix {
		return false
	}
	if q.Level > 0 && d.level != q.Level {
		return false
	}
	return true
}

var sydney = parser.LocalityLine{Suburb: "SYDNEY", State: "NSW", Postcode: "2000"}

func TestMatch(t *testing.T) {
	ix := referencetest.Index()
	pitt := ix.StreetByID("NSW2000")

	store := &fakeStore{details: []detail{
		{id: "D12", streetID: "NSW2000", number: 12},
		{id: "D15", streetID: "NSW2000", number: 15},
		{id: "D15A", streetID: "NSW2000", number: 15, numberSuffix: "A"},
		{id: "D2-15A", streetID: "NSW2000", number: 15, numberSuffix: "A", flat: 2},
		{id: "D20-24", streetID: "NSW2000", number: 20, numberLast: 24},
		{id: "D30-34", streetID: "NSW2000", number: 30, numberLast: 34},
		{id: "U7", streetID: "NSW2000", flat: 7},
		{id: "D50", streetID: "NSW2000", number: 50},
		{id: "D50-L3", streetID: "NSW2000", number: 50, level: 3},
	}}
	m := NewMatcher(store)

	tests := []struct {
		line string
		want string
	}{
		{"12 Pitt St", "D12"},
		{"2/15A Pitt St", "D2-15A"},
		{"15A Pitt St", "D15A"},
		{"20-24 Pitt St", "D20-24"},
		{"32 Pitt St", "D30-34"},
		{"36-30 Pitt St", "D30-34"},
		{"Unit 7 Pitt St", "U7"},
		{"Level 3, 50 Pitt St", "D50-L3"},
		{"50 Pitt St", "D50"},
		{"99 Pitt St", ""},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			res, err := m.Match(context.Background(), pitt, parser.Parse(sydney, tt.line))
			require.NoError(t, err)
			if tt.want == "" {
				assert.Nil(t, res)
				return
			}
			require.NotNil(t, res)
			assert.Equal(t, tt.want, res.DetailID)
			assert.Same(t, pitt, res.Street)
		})
	}
}

func TestMatchTriesFlatHouseSuffixFirst(t *testing.T) {
	ix := referencetest.Index()
	store := &fakeStore{details: []detail{
		{id: "D15", streetID: "NSW2000", number: 15},
	}}

	res, err := NewMatcher(store).Match(context.Background(), ix.StreetByID("NSW2000"), parser.Parse(sydney, "2/15A Main St"))
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "D15", res.DetailID)

	require.NotEmpty(t, store.calls)
	assert.Equal(t, Lookup{StreetID: "NSW2000", Number: 15, NumberSuffix: "A", Flat: 2}, store.calls[0])
	assert.Equal(t, Lookup{StreetID: "NSW2000", Number: 15}, res.Attempt)
}

func TestMatchSkipsEmptyStreet(t *testing.T) {
	ix := referencetest.Index()
	store := &fakeStore{details: []detail{{id: "X", streetID: "NSW2007", number: 1}}}

	res, err := NewMatcher(store).Match(context.Background(), ix.StreetByID("NSW2007"), parser.Parse(sydney, "1 Empty St"))
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Empty(t, store.calls)
}

func TestMatchPropagatesStoreErrors(t *testing.T) {
	ix := referencetest.Index()
	store := &fakeStore{err: eris.Wrap(ErrLookupTimeout, "detailstore: find")}

	_, err := NewMatcher(store).Match(context.Background(), ix.StreetByID("NSW2000"), parser.Parse(sydney, "12 Pitt St"))
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrLookupTimeout))
	assert.False(t, eris.Is(err, ErrStoreUnavailable))
}

func TestPermutationKeepsLastNarrowing(t *testing.T) {
	ix := referencetest.Index()
	store := &fakeStore{details: []detail{
		{id: "H", streetID: "NSW2000", number: 40},
		{id: "HL", streetID: "NSW2000", number: 40, level: 2},
		{id: "HLF", streetID: "NSW2000", number: 40, level: 2, flat: 9},
	}}

	// Tokens 9, 2, 40 with no house anchor the attempts can use directly.
	addr := parser.Address{Segments: parser.Segments("9 2 40 PITT ST"), Valid: true}
	res, err := NewMatcher(store).Match(context.Background(), ix.StreetByID("NSW2000"), addr)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "HLF", res.DetailID)
	assert.Equal(t, Lookup{StreetID: "NSW2000", Number: 40, Level: 2, Flat: 9}, res.Attempt)
}

func TestAttemptsAreUnique(t *testing.T) {
	got := Attempts("S", parser.Numbers{House: "20", HouseLast: "24"})
	assert.Equal(t, []Lookup{
		{StreetID: "S", Number: 20, NumberLast: 24},
		{StreetID: "S", Number: 20},
		{StreetID: "S", Number: 24},
		{StreetID: "S", Number: 20, Between: true},
	}, got)
}
