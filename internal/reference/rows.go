package reference

// Rows is the raw output of the bootstrap load. Each slice is one row set;
// order within a set is not significant.
type Rows struct {
	States             []StateRow
	StreetTypes        []CodeRow
	StreetSuffixes     []CodeRow
	Localities         []LocalityRow
	LocalityPostcodes  []LocalityPostcodeRow
	LocalityAliases    []LocalityAliasRow
	Streets            []StreetRow
	StreetAliases      []StreetRow
	LocalityNeighbours []NeighbourRow
	StreetRanges       []RangeRow
}

// StateRow is one state record.
type StateRow struct {
	ID           int
	Abbreviation string
	Name         string
}

// CodeRow is one authority-table record (street type or suffix).
type CodeRow struct {
	Code string
	Name string
}

// LocalityRow is one locality record.
type LocalityRow struct {
	ID        string
	Name      string
	StateID   int
	Postcode  string
	ClassCode string
}

// LocalityPostcodeRow is one distinct (locality, postcode) pair seen in the
// address details.
type LocalityPostcodeRow struct {
	LocalityID string
	Postcode   string
}

// LocalityAliasRow is an alternative name for the locality ID.
type LocalityAliasRow struct {
	LocalityID string
	Name       string
	Postcode   string
	StateID    int
}

// StreetRow is one street locality record. For street aliases LocalityID is
// ignored and ID refers to the aliased street.
type StreetRow struct {
	ID         string
	Name       string
	TypeCode   string
	SuffixCode string
	LocalityID string
}

// NeighbourRow declares two localities adjacent.
type NeighbourRow struct {
	LocalityID  string
	NeighbourID string
}

// RangeRow is the per-street aggregate over address details.
type RangeRow struct {
	StreetID  string
	FlatMin   int
	FlatMax   int
	LevelMin  int
	LevelMax  int
	NumberMin int
	NumberMax int
	Count     int
}

// classRank orders locality classes; lower wins ambiguity tie-breaks.
var classRank = map[string]int{
	"G": 1, // gazetted locality
	"T": 2, // topographic
	"H": 3, // hundred
	"D": 4, // district
	"U": 5, // unofficial suburb
	"V": 6, // unofficial topographic
	"M": 7, // mixed
}

// ClassRank returns the tie-break rank for a locality class code.
func ClassRank(code string) int {
	if r, ok := classRank[normalizeKey(code)]; ok {
		return r
	}
	return 9
}
