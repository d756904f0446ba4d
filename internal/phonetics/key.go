// Package phonetics reduces names to sound-alike keys.
package phonetics

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// Key returns the primary double metaphone code of name. Spaces are ignored
// so "MOUNT DRUITT" and "MOUNTDRUITT" share a key.
func Key(name string) string {
	primary, _ := codes(name)
	return primary
}

// Match reports whether a and b share a non-empty primary or alternate
// double metaphone code.
func Match(a, b string) bool {
	pa, sa := codes(a)
	pb, sb := codes(b)
	for _, x := range []string{pa, sa} {
		if x == "" {
			continue
		}
		if x == pb || x == sb {
			return true
		}
	}
	return false
}

func codes(name string) (string, string) {
	s := strings.ToUpper(strings.Join(strings.Fields(name), ""))
	if s == "" {
		return "", ""
	}
	return matchr.DoubleMetaphone(s)
}
