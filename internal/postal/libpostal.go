//go:build libpostal

package postal

import (
	gopostal "github.com/openvenues/gopostal/parser"
)

type libpostal struct{}

// New returns the libpostal-backed parser.
func New() (Parser, error) {
	return libpostal{}, nil
}

func (libpostal) Parse(line string) []Component {
	parsed := gopostal.ParseAddress(line)
	comps := make([]Component, 0, len(parsed))
	for _, c := range parsed {
		comps = append(comps, Component{Label: c.Label, Value: c.Value})
	}
	return comps
}
