// Package postal reshapes address lines with libpostal. The libpostal
// binding needs cgo and the C library, so it is only compiled with the
// libpostal build tag; other builds get a parser that reports
// ErrUnavailable.
package postal

import (
	"strings"

	"github.com/rotisserie/eris"
)

// ErrUnavailable is returned by New when libpostal is not compiled in.
var ErrUnavailable = eris.New("postal: libpostal not available in this build")

// Component is one labelled piece of a parsed line, e.g. road or
// house_number.
type Component struct {
	Label string
	Value string
}

// Parser splits a free-text line into labelled components.
type Parser interface {
	Parse(line string) []Component
}

// StreetLine rebuilds a street line from components as
// "[LEVEL n] [unit/]number road". It returns "" when there is no road or no
// house number.
func StreetLine(comps []Component) string {
	byLabel := make(map[string]string, len(comps))
	for _, c := range comps {
		if v := strings.TrimSpace(c.Value); v != "" {
			byLabel[c.Label] = strings.ToUpper(v)
		}
	}

	road, house := byLabel["road"], byLabel["house_number"]
	if road == "" || house == "" {
		return ""
	}

	var parts []string
	if level := byLabel["level"]; level != "" {
		if !strings.HasPrefix(level, "LEVEL") {
			level = "LEVEL " + level
		}
		parts = append(parts, level)
	}
	if unit := unitNumber(byLabel["unit"]); unit != "" {
		house = unit + "/" + house
	}
	parts = append(parts, house, road)
	return strings.Join(parts, " ")
}

// unitNumber drops a leading unit word so "UNIT 4" becomes "4".
func unitNumber(unit string) string {
	fields := strings.Fields(unit)
	if len(fields) > 1 {
		return fields[len(fields)-1]
	}
	return unit
}
