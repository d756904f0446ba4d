// Package street maps a locality and free-text street onto candidate
// reference streets through a tiered cascade.
package street

import (
	"strings"

	"github.com/gnaf-matcher/internal/fuzzy"
	"github.com/gnaf-matcher/internal/reference"
)

// Tier names the cascade step that produced the candidates.
type Tier string

const (
	TierNone      Tier = ""
	TierExact     Tier = "exact"
	TierAlias     Tier = "alias"
	TierNeighbour Tier = "neighbour"
	TierNameOnly  Tier = "name_only"
	TierHyphen    Tier = "hyphen"
	TierSuffix    Tier = "suffix"
	TierFuzzy     Tier = "fuzzy"
)

// Query is one street lookup.
type Query struct {
	Locality *reference.Locality
	Text     string
	// Number is the parsed house number used for range pruning, 0 if unknown.
	Number int
	// IgnoreType keeps a trailing street-type word as part of the name.
	IgnoreType bool
	// AllowFuzzy goes straight to the edit-distance tier.
	AllowFuzzy bool
}

// Result holds the candidates of the first tier that produced any.
type Result struct {
	Streets []*reference.Street
	Tier    Tier
}

// Resolver runs the street cascade against a reference index.
type Resolver struct {
	index       *reference.Index
	maxDistance int
}

// NewResolver creates a resolver. maxDistance bounds the fuzzy tier; 0
// leaves it unbounded.
func NewResolver(index *reference.Index, maxDistance int) *Resolver {
	return &Resolver{index: index, maxDistance: maxDistance}
}

// Resolve runs the cascade for q.
func (r *Resolver) Resolve(q Query) Result {
	if q.Locality == nil {
		return Result{}
	}
	text := normalize(q.Text)
	if text == "" {
		return Result{}
	}
	name, typeCode := r.split(text, q.IgnoreType)

	var res Result
	if !q.AllowFuzzy {
		res = r.cascade(q, text, name, typeCode)
	}
	if len(res.Streets) == 0 {
		res = Result{Streets: r.fuzzy(q, name, typeCode), Tier: TierFuzzy}
	}
	if len(res.Streets) == 0 {
		return Result{}
	}
	res.Streets = reduce(res.Streets, q.Locality.Canonical())
	return res
}

// cascade runs the non-fuzzy tiers in order.
func (r *Resolver) cascade(q Query, text, name, typeCode string) Result {
	loc := q.Locality.Canonical()
	f := filter{typeCode: typeCode, number: q.Number}

	if c := f.apply(r.index.Streets(loc.ID, name)); len(c) > 0 {
		return Result{Streets: c, Tier: TierExact}
	}
	if c := f.withoutType().apply(r.index.StreetAliases(loc.ID, name)); len(c) > 0 {
		return Result{Streets: c, Tier: TierAlias}
	}

	var near []*reference.Street
	for _, id := range loc.Neighbors {
		near = append(near, r.index.Streets(id, name)...)
	}
	if c := f.apply(near); len(c) > 0 {
		return Result{Streets: c, Tier: TierNeighbour}
	}

	named := narrow(r.index.StreetsNamed(name), func(s *reference.Street) bool {
		return s.Locality.StateID == loc.StateID
	})
	if c := f.apply(named); len(c) > 0 {
		return Result{Streets: c, Tier: TierNameOnly}
	}

	if strings.Contains(text, "-") {
		spaced := strings.ReplaceAll(text, "-", " ")
		spacedName, spacedType := r.split(spaced, q.IgnoreType)
		if res := r.cascade(q, spaced, spacedName, spacedType); len(res.Streets) > 0 {
			return Result{Streets: res.Streets, Tier: TierHyphen}
		}
	}

	words := strings.Fields(name)
	for k := len(words) - 1; k > 0; k-- {
		sf, ok := r.index.Suffix(words[k])
		if !ok {
			break
		}
		trimmedName, trimmedType := r.split(strings.Join(words[:k], " "), q.IgnoreType)
		sfFilter := filter{typeCode: trimmedType, suffixCode: sf.Code, number: q.Number}
		if c := sfFilter.apply(r.index.Streets(loc.ID, trimmedName)); len(c) > 0 {
			return Result{Streets: c, Tier: TierSuffix}
		}
	}
	return Result{}
}

// fuzzy ranks the locality's streets by edit distance to name and returns
// the nearest group, preferring the nearest group whose type matches.
func (r *Resolver) fuzzy(q Query, name, typeCode string) []*reference.Street {
	loc := q.Locality.Canonical()
	f := filter{number: q.Number}
	streets := f.apply(r.index.LocalityStreets(loc.ID))
	if len(streets) == 0 {
		return nil
	}

	names := func(s *reference.Street) []string {
		if !q.IgnoreType {
			return []string{s.Name}
		}
		out := []string{s.Name, s.FullName()}
		if st := r.index.StreetTypeByCode(s.TypeCode); st != nil {
			out = append(out, s.Name+" "+st.Name)
		}
		return out
	}
	groups := fuzzy.Groups(fuzzy.Rank(name, streets, names, r.maxDistance))
	if len(groups) == 0 {
		return nil
	}
	if typeCode != "" {
		typed := filter{typeCode: typeCode}
		for _, g := range groups {
			if c := typed.apply(g); len(c) > 0 {
				return c
			}
		}
	}
	return groups[0]
}

// split strips a trailing street-type word unless ignoreType is set.
func (r *Resolver) split(text string, ignoreType bool) (string, string) {
	if ignoreType {
		return text, ""
	}
	words := strings.Fields(text)
	if len(words) < 2 {
		return text, ""
	}
	st, ok := r.index.StreetType(words[len(words)-1])
	if !ok {
		return text, ""
	}
	return strings.Join(words[:len(words)-1], " "), st.Code
}

// reduce narrows an ambiguous set to streets in or next to the target
// locality, then to streets sharing its postcode.
func reduce(streets []*reference.Street, target *reference.Locality) []*reference.Street {
	if len(streets) < 2 {
		return streets
	}
	streets = narrow(streets, func(s *reference.Street) bool {
		return s.Locality.ID == target.ID || target.IsNeighbor(s.Locality.ID)
	})
	if len(streets) < 2 || target.Postcode == "" {
		return streets
	}
	return narrow(streets, func(s *reference.Street) bool {
		return s.Locality.Postcode == target.Postcode
	})
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(s)), " ")
}
