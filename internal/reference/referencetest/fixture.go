// Package referencetest provides a small reference dataset for tests.
package referencetest

import "github.com/gnaf-matcher/internal/reference"

// State ids used by the fixture.
const (
	NSW = 1
	VIC = 2
)

// Rows returns a compact slice of Sydney and Melbourne reference data.
func Rows() reference.Rows {
	return reference.Rows{
		States: []reference.StateRow{
			{ID: NSW, Abbreviation: "NSW", Name: "New South Wales"},
			{ID: VIC, Abbreviation: "VIC", Name: "Victoria"},
		},
		StreetTypes: []reference.CodeRow{
			{Code: "STREET", Name: "ST"},
			{Code: "ROAD", Name: "RD"},
			{Code: "LANE", Name: "LANE"},
			{Code: "AVENUE", Name: "AV"},
			{Code: "CRESCENT", Name: "CR"},
			{Code: "PLACE", Name: "PL"},
		},
		StreetSuffixes: []reference.CodeRow{
			{Code: "N", Name: "NORTH"},
			{Code: "S", Name: "SOUTH"},
			{Code: "E", Name: "EAST"},
			{Code: "W", Name: "WEST"},
		},
		Localities: []reference.LocalityRow{
			{ID: "NSW100", Name: "SYDNEY", StateID: NSW, Postcode: "2000", ClassCode: "G"},
			{ID: "NSW101", Name: "THE ROCKS", StateID: NSW, Postcode: "2000", ClassCode: "G"},
			{ID: "NSW102", Name: "HAYMARKET", StateID: NSW, Postcode: "2000", ClassCode: "G"},
			{ID: "NSW103", Name: "SURRY HILLS", StateID: NSW, Postcode: "2010", ClassCode: "G"},
			{ID: "NSW104", Name: "DARLINGHURST", StateID: NSW, Postcode: "2010", ClassCode: "G"},
			{ID: "NSW105", Name: "PARRAMATTA", StateID: NSW, Postcode: "2150", ClassCode: "G"},
			{ID: "NSW106", Name: "RICHMOND", StateID: NSW, Postcode: "2753", ClassCode: "G"},
			{ID: "VIC200", Name: "MELBOURNE", StateID: VIC, Postcode: "3000", ClassCode: "G"},
			{ID: "VIC201", Name: "RICHMOND", StateID: VIC, Postcode: "3121", ClassCode: "G"},
		},
		LocalityPostcodes: []reference.LocalityPostcodeRow{
			{LocalityID: "NSW100", Postcode: "2001"},
			{LocalityID: "NSW100", Postcode: "2000"},
		},
		LocalityAliases: []reference.LocalityAliasRow{
			{LocalityID: "NSW100", Name: "SYDNEY CITY", Postcode: "2000", StateID: NSW},
			{LocalityID: "NSW103", Name: "STRAWBERRY HILLS", Postcode: "2012", StateID: NSW},
		},
		Streets: []reference.StreetRow{
			{ID: "NSW2000", Name: "PITT", TypeCode: "STREET", LocalityID: "NSW100"},
			{ID: "NSW2001", Name: "GEORGE", TypeCode: "STREET", LocalityID: "NSW100"},
			{ID: "NSW2002", Name: "PITT", TypeCode: "LANE", LocalityID: "NSW103"},
			{ID: "NSW2003", Name: "KENT", TypeCode: "STREET", SuffixCode: "N", LocalityID: "NSW100"},
			{ID: "NSW2004", Name: "KENT", TypeCode: "STREET", LocalityID: "NSW101"},
			{ID: "NSW2005", Name: "CROWN", TypeCode: "STREET", LocalityID: "NSW103"},
			{ID: "NSW2006", Name: "CROWN", TypeCode: "STREET", LocalityID: "NSW104"},
			{ID: "NSW2007", Name: "EMPTY", TypeCode: "STREET", LocalityID: "NSW100"},
			{ID: "NSW2008", Name: "MARY ANN", TypeCode: "STREET", LocalityID: "NSW100"},
			{ID: "NSW2009", Name: "ELIZABETH", TypeCode: "STREET", LocalityID: "NSW100"},
			{ID: "NSW2010", Name: "OXFORD", TypeCode: "STREET", LocalityID: "NSW104"},
			{ID: "NSW2011", Name: "MACQUARIE", TypeCode: "STREET", LocalityID: "NSW106"},
			{ID: "VIC3000", Name: "COLLINS", TypeCode: "STREET", LocalityID: "VIC200"},
			{ID: "VIC3001", Name: "MACQUARIE", TypeCode: "STREET", LocalityID: "VIC201"},
			{ID: "NSW9999", Name: "LOST", TypeCode: "STREET", LocalityID: "NSW999"},
		},
		StreetAliases: []reference.StreetRow{
			{ID: "NSW2001", Name: "OLD GEORGE", TypeCode: "STREET"},
		},
		LocalityNeighbours: []reference.NeighbourRow{
			{LocalityID: "NSW103", NeighbourID: "NSW104"},
			{LocalityID: "NSW100", NeighbourID: "NSW101"},
		},
		StreetRanges: []reference.RangeRow{
			{StreetID: "NSW2000", NumberMin: 1, NumberMax: 400, FlatMin: 1, FlatMax: 20, Count: 300},
			{StreetID: "NSW2001", NumberMin: 1, NumberMax: 600, Count: 500},
			{StreetID: "NSW2002", NumberMin: 1, NumberMax: 10, Count: 5},
			{StreetID: "NSW2003", NumberMin: 1, NumberMax: 200, Count: 80},
			{StreetID: "NSW2004", NumberMin: 1, NumberMax: 90, Count: 40},
			{StreetID: "NSW2005", NumberMin: 1, NumberMax: 500, Count: 200},
			{StreetID: "NSW2006", NumberMin: 1, NumberMax: 200, Count: 90},
			{StreetID: "NSW2007", Count: 0},
			{StreetID: "NSW2008", NumberMin: 1, NumberMax: 30, Count: 12},
			{StreetID: "NSW2009", Count: 10},
			{StreetID: "NSW2010", NumberMin: 1, NumberMax: 300, Count: 150},
			{StreetID: "NSW2011", NumberMin: 1, NumberMax: 100, Count: 60},
			{StreetID: "VIC3000", NumberMin: 1, NumberMax: 600, Count: 700},
			{StreetID: "VIC3001", NumberMin: 1, NumberMax: 100, Count: 20},
			{StreetID: "NSW0000", NumberMin: 1, NumberMax: 2, Count: 2},
		},
	}
}

// Index loads Rows into a reference index.
func Index() *reference.Index {
	ix, _ := reference.Load(Rows())
	return ix
}
