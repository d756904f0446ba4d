// Package number performs the final point lookups of a parsed address
// against the address detail store for one candidate street.
package number

import (
	"context"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/gnaf-matcher/internal/parser"
	"github.com/gnaf-matcher/internal/reference"
)

var (
	// ErrLookupTimeout is returned when a store call exceeds its budget.
	ErrLookupTimeout = eris.New("number: lookup timeout")
	// ErrStoreUnavailable is returned on connection level store failures.
	ErrStoreUnavailable = eris.New("number: store unavailable")
)

// Lookup is one point query against the address detail store. Zero fields
// are not constrained.
type Lookup struct {
	StreetID     string
	Number       int
	NumberSuffix string
	// NumberLast matches the detail's last number exactly.
	NumberLast int
	// Between matches details whose first..last range contains Number.
	Between    bool
	Flat       int
	FlatSuffix string
	Level      int
}

// Record is one address detail row.
type Record struct {
	ID   string
	Full string
}

// Store answers point lookups. Find and FindBuilding return a nil record and
// nil error when nothing matches.
type Store interface {
	Find(ctx context.Context, q Lookup) (*Record, error)
	FindBuilding(ctx context.Context, localityID, building string) (*Record, error)
}

// MatchResult ties a detail record to the street candidate it came from.
type MatchResult struct {
	Street   *reference.Street
	DetailID string
	Full     string
	// Attempt is the lookup that produced the record.
	Attempt Lookup
}

// Matcher runs the lookup attempts for one street at a time.
type Matcher struct {
	store Store
}

// NewMatcher creates a matcher over store.
func NewMatcher(store Store) *Matcher {
	return &Matcher{store: store}
}

// Match tries each lookup shape in turn and returns the first record found,
// or nil when the street holds no such number.
func (m *Matcher) Match(ctx context.Context, street *reference.Street, addr parser.Address) (*MatchResult, error) {
	if street == nil || street.Range.Count == 0 {
		return nil, nil
	}

	for _, q := range Attempts(street.ID, addr.Numbers) {
		rec, err := m.store.Find(ctx, q)
		if err != nil {
			return nil, eris.Wrapf(err, "number: find on street %s", street.ID)
		}
		if rec != nil {
			return &MatchResult{Street: street, DetailID: rec.ID, Full: rec.Full, Attempt: q}, nil
		}
	}

	q, rec, err := m.permute(ctx, street.ID, tokens(addr))
	if err != nil {
		return nil, eris.Wrapf(err, "number: permutation search on street %s", street.ID)
	}
	if rec == nil {
		return nil, nil
	}
	return &MatchResult{Street: street, DetailID: rec.ID, Full: rec.Full, Attempt: q}, nil
}

// Attempts lists the lookup shapes for the parsed numbers, most specific
// first and without repeats.
func Attempts(streetID string, n parser.Numbers) []Lookup {
	house := atoi(n.House)
	last := atoi(n.HouseLast)
	flat := atoi(n.Flat)
	level := atoi(n.Level)

	var out []Lookup
	seen := map[Lookup]bool{}
	add := func(q Lookup) {
		q.StreetID = streetID
		if !seen[q] {
			seen[q] = true
			out = append(out, q)
		}
	}

	if house > 0 && flat > 0 {
		add(Lookup{Number: house, NumberSuffix: n.HouseSuffix, Flat: flat, FlatSuffix: n.FlatSuffix, Level: level})
		if level > 0 {
			add(Lookup{Number: house, NumberSuffix: n.HouseSuffix, Flat: flat, FlatSuffix: n.FlatSuffix})
		}
	}
	if house > 0 && level > 0 && flat == 0 {
		add(Lookup{Number: house, NumberSuffix: n.HouseSuffix, Level: level})
	}
	if house > 0 && n.HouseSuffix != "" {
		add(Lookup{Number: house, NumberSuffix: n.HouseSuffix})
	}
	if house > 0 && last > 0 {
		add(Lookup{Number: house, NumberLast: last})
		add(Lookup{Number: house})
		add(Lookup{Number: last})
	}
	if house > 0 {
		add(Lookup{Number: house})
		add(Lookup{Number: house, Between: true})
		// A bare number is sometimes the flat of an unnumbered building.
		if flat == 0 && last == 0 && n.HouseSuffix == "" {
			add(Lookup{Flat: house})
		}
	}
	if house == 0 && flat > 0 {
		add(Lookup{Flat: flat, FlatSuffix: n.FlatSuffix})
	}
	return out
}

// permute tries every numeric token as the house number. The first token
// that matches is then narrowed by the remaining tokens as level and then
// flat; each narrowing is kept only if it still matches.
func (m *Matcher) permute(ctx context.Context, streetID string, nums []int) (Lookup, *Record, error) {
	setters := []func(*Lookup, int){
		func(q *Lookup, v int) { q.Level = v },
		func(q *Lookup, v int) { q.Flat = v },
	}

	for i, h := range nums {
		base := Lookup{StreetID: streetID, Number: h}
		rec, err := m.store.Find(ctx, base)
		if err != nil {
			return Lookup{}, nil, err
		}
		if rec == nil {
			continue
		}

		rest := without(nums, i)
		for _, set := range setters {
			for j, v := range rest {
				try := base
				set(&try, v)
				narrowed, err := m.store.Find(ctx, try)
				if err != nil {
					return Lookup{}, nil, err
				}
				if narrowed != nil {
					base, rec = try, narrowed
					rest = without(rest, j)
					break
				}
			}
		}
		return base, rec, nil
	}
	return Lookup{}, nil, nil
}

func tokens(addr parser.Address) []int {
	var out []int
	for _, t := range addr.NumericTokens() {
		if n := atoi(t); n > 0 {
			out = append(out, n)
		}
	}
	return out
}

func without(nums []int, i int) []int {
	out := make([]int, 0, len(nums)-1)
	out = append(out, nums[:i]...)
	return append(out, nums[i+1:]...)
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
