package street

import "github.com/gnaf-matcher/internal/reference"

// filter is the single candidate query shared by every tier. Its predicates
// run in a fixed order: address count, number range, type, suffix. Count,
// range and type reject; suffix only narrows when something survives.
type filter struct {
	typeCode   string
	suffixCode string
	number     int
}

type predicate struct {
	keep func(*reference.Street) bool
	soft bool
}

func (f filter) withoutType() filter {
	f.typeCode = ""
	return f
}

func (f filter) predicates() []predicate {
	preds := []predicate{
		{keep: func(s *reference.Street) bool { return s.Range.Count > 0 }},
	}
	if f.number > 0 {
		n := f.number
		preds = append(preds, predicate{keep: func(s *reference.Street) bool { return s.Range.Covers(n) }})
	}
	if f.typeCode != "" {
		code := f.typeCode
		preds = append(preds, predicate{keep: func(s *reference.Street) bool { return s.TypeCode == code }})
	}
	if f.suffixCode != "" {
		code := f.suffixCode
		preds = append(preds, predicate{keep: func(s *reference.Street) bool { return s.SuffixCode == code }, soft: true})
	}
	return preds
}

// apply returns a new slice; the index slices are never modified.
func (f filter) apply(streets []*reference.Street) []*reference.Street {
	out := streets
	for _, p := range f.predicates() {
		if len(out) == 0 {
			return nil
		}
		if p.soft {
			out = narrow(out, p.keep)
			continue
		}
		out = keep(out, p.keep)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func keep(streets []*reference.Street, ok func(*reference.Street) bool) []*reference.Street {
	var out []*reference.Street
	for _, s := range streets {
		if ok(s) {
			out = append(out, s)
		}
	}
	return out
}

// narrow keeps the matching streets unless none match.
func narrow(streets []*reference.Street, ok func(*reference.Street) bool) []*reference.Street {
	if out := keep(streets, ok); len(out) > 0 {
		return out
	}
	return streets
}
