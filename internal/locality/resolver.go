// Package locality maps free-text suburb, postcode and state onto a
// canonical reference locality.
package locality

import (
	"github.com/gnaf-matcher/internal/fuzzy"
	"github.com/gnaf-matcher/internal/phonetics"
	"github.com/gnaf-matcher/internal/reference"
)

// Method names how a locality was resolved.
type Method string

const (
	MethodNone     Method = ""
	MethodExact    Method = "exact"
	MethodAlias    Method = "alias"
	MethodPostcode Method = "postcode"
	MethodFuzzy    Method = "fuzzy"
)

// Resolution is the outcome of one locality lookup. State may be set while
// Locality is nil when the state is known but no locality fits.
type Resolution struct {
	State    *reference.State
	Locality *reference.Locality
	Method   Method
}

// Resolver resolves localities against a reference index.
type Resolver struct {
	index       *reference.Index
	maxDistance int
}

// NewResolver creates a resolver. maxDistance bounds the in-state fuzzy
// fallback; 0 leaves it unbounded.
func NewResolver(index *reference.Index, maxDistance int) *Resolver {
	return &Resolver{index: index, maxDistance: maxDistance}
}

// Resolve finds the canonical locality for the inputs. Inputs are expected
// already normalised by the parser.
func (r *Resolver) Resolve(state, postcode, name string) Resolution {
	byPostcode := r.index.ByPostcode(postcode)

	st := r.index.State(state)
	if st == nil {
		for _, l := range byPostcode {
			if st = r.index.StateByID(l.StateID); st != nil {
				break
			}
		}
	}
	if st == nil {
		return Resolution{}
	}
	res := Resolution{State: st}

	if name != "" {
		if l := r.index.Locality(st.ID, name); l != nil {
			res.Locality, res.Method = l, MethodExact
			return res
		}
		if a := r.index.LocalityAlias(st.ID, name); a != nil {
			res.Locality, res.Method = a.Canonical(), MethodAlias
			return res
		}
	}

	if len(byPostcode) > 0 {
		loc := r.fromPostcode(byPostcode, st, postcode, name).Canonical()
		if loc.StateID == st.ID {
			res.Locality, res.Method = loc, MethodPostcode
			return res
		}
		// The postcode belongs to another state: a near name in the given
		// state wins, otherwise the postcode decides the state too.
		if l := r.inState(st, name); l != nil {
			res.Locality, res.Method = l, MethodFuzzy
			return res
		}
		if other := r.index.StateByID(loc.StateID); other != nil {
			res.State = other
		}
		res.Locality, res.Method = loc, MethodPostcode
		return res
	}

	if l := r.inState(st, name); l != nil {
		res.Locality, res.Method = l, MethodFuzzy
	}
	return res
}

// inState ranks the state's localities by edit distance to name. Among
// equally near names one that sounds the same is preferred.
func (r *Resolver) inState(st *reference.State, name string) *reference.Locality {
	if name == "" {
		return nil
	}
	groups := fuzzy.Groups(fuzzy.Rank(name, r.index.LocalitiesInState(st.ID), localityNames, r.maxDistance))
	if len(groups) == 0 {
		return nil
	}
	best := narrow(groups[0], func(l *reference.Locality) bool { return phonetics.Match(l.Name, name) })
	return best[0]
}

// fromPostcode narrows the postcode set by state, primary postcode and
// non-alias preference, then by edit distance. Each narrowing step is kept
// only when it leaves at least one candidate.
func (r *Resolver) fromPostcode(cands []*reference.Locality, st *reference.State, postcode, name string) *reference.Locality {
	cands = narrow(cands, func(l *reference.Locality) bool { return l.StateID == st.ID })
	cands = narrow(cands, func(l *reference.Locality) bool { return l.Postcode == postcode })
	cands = narrow(cands, func(l *reference.Locality) bool { return !l.IsAlias })
	if len(cands) == 1 || name == "" {
		return cands[0]
	}
	return fuzzy.Rank(name, cands, localityNames, 0)[0].Item
}

func narrow(cands []*reference.Locality, keep func(*reference.Locality) bool) []*reference.Locality {
	var out []*reference.Locality
	for _, c := range cands {
		if keep(c) {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return cands
	}
	return out
}

func localityNames(l *reference.Locality) []string {
	return []string{l.Name}
}
