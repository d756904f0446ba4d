package reference

import "strings"

// State is one of the reference states or territories.
type State struct {
	ID           int
	Abbreviation string
	Name         string
}

// Locality is a suburb or town scoped to one state. Alias entries share the
// ID of the canonical locality they redirect to.
type Locality struct {
	ID        string
	Name      string
	StateID   int
	Postcode  string
	Postcodes []string // additional postcodes, primary excluded
	Rank      int
	IsAlias   bool
	Neighbors []string

	canonical *Locality
}

// HasPostcode reports whether pc is the primary or an additional postcode.
func (l *Locality) HasPostcode(pc string) bool {
	if pc == "" {
		return false
	}
	if l.Postcode == pc {
		return true
	}
	for _, p := range l.Postcodes {
		if p == pc {
			return true
		}
	}
	return false
}

// Canonical returns the locality an alias redirects to, or l itself.
func (l *Locality) Canonical() *Locality {
	if l.IsAlias && l.canonical != nil {
		return l.canonical
	}
	return l
}

// IsNeighbor reports whether id is a declared neighbour of l.
func (l *Locality) IsNeighbor(id string) bool {
	for _, n := range l.Neighbors {
		if n == id {
			return true
		}
	}
	return false
}

func (l *Locality) addPostcode(pc string) bool {
	if pc == "" || l.HasPostcode(pc) {
		return false
	}
	if l.Postcode == "" {
		l.Postcode = pc
		return true
	}
	l.Postcodes = append(l.Postcodes, pc)
	return true
}

func (l *Locality) addNeighbor(id string) {
	if id == l.ID || l.IsNeighbor(id) {
		return
	}
	l.Neighbors = append(l.Neighbors, id)
}

// StreetType maps a street type code (e.g. STREET) to its abbreviation (ST).
type StreetType struct {
	Code string
	Name string
}

// StreetSuffix maps a suffix code (e.g. N) to its name (NORTH).
type StreetSuffix struct {
	Code string
	Name string
}

// Range holds the numeric statistics of the address details under a street.
// A (0,0) pair means no known range.
type Range struct {
	FlatMin   int
	FlatMax   int
	LevelMin  int
	LevelMax  int
	NumberMin int
	NumberMax int
	Count     int
}

// Covers reports whether number n can exist under this range.
func (r Range) Covers(n int) bool {
	if r.NumberMin == 0 && r.NumberMax == 0 {
		return true
	}
	return n >= r.NumberMin && n <= r.NumberMax
}

// Street is a named street scoped to one canonical locality.
type Street struct {
	ID         string
	Name       string
	TypeCode   string
	SuffixCode string
	Locality   *Locality
	Range      Range
}

// FullName is the street name followed by its type code.
func (s *Street) FullName() string {
	if s.TypeCode == "" {
		return s.Name
	}
	return s.Name + " " + s.TypeCode
}

// normalizeKey uppercases and collapses whitespace for index keys.
func normalizeKey(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(s)), " ")
}
