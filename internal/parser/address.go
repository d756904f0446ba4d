// Package parser turns one raw customer address line into structured
// segments. It never consults the reference data.
package parser

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// LocalityLine is the raw suburb, state and postcode of a customer record.
type LocalityLine struct {
	Suburb   string
	State    string
	Postcode string
}

// Segment is one token of the address line. Sep is the separator that
// preceded it: "" for the first segment, otherwise " ", "-" or "/".
type Segment struct {
	Text   string
	Number string
	Sep    string
}

// HasNumber reports whether the segment carries digits.
func (s Segment) HasNumber() bool {
	return s.Number != ""
}

// Numbers holds the numeric parts found before the street name.
type Numbers struct {
	House           string
	HouseSuffix     string
	HouseLast       string
	HouseLastSuffix string
	Flat            string
	FlatSuffix      string
	Level           string
}

// Address is the fully parsed form of one customer address. It is built only
// by Parse and is not modified afterwards.
type Address struct {
	Suburb   string
	State    string
	Postcode string

	Raw        string
	Segments   []Segment
	Street     string
	NumberText string
	Building   string
	Numbers    Numbers

	PostBox      bool
	MailService  bool
	BuildingOnly bool
	Valid        bool
}

// HouseNumber returns the house number as an int, 0 when absent.
func (a Address) HouseNumber() int {
	n, err := strconv.Atoi(a.Numbers.House)
	if err != nil {
		return 0
	}
	return n
}

// NumericTokens returns the distinct digit runs of every segment in order.
func (a Address) NumericTokens() []string {
	var out []string
	seen := map[string]bool{}
	for _, s := range a.Segments {
		if s.HasNumber() && !seen[s.Number] {
			seen[s.Number] = true
			out = append(out, s.Number)
		}
	}
	return out
}

var mailServiceMarkers = map[string]bool{
	"RMB": true, "RMS": true, "RSD": true, "CMB": true, "CMA": true, "MS": true,
}

var postBoxMarkers = map[string]string{
	"PO":      "BOX",
	"GPO":     "BOX",
	"LOCKED":  "BAG",
	"PRIVATE": "BAG",
}

var flatMarkers = map[string]bool{
	"UNIT": true, "U": true, "FLAT": true, "F": true, "APT": true, "APARTMENT": true,
	"SHOP": true, "SUITE": true, "VILLA": true, "TOWNHOUSE": true, "ROOM": true, "OFFICE": true,
}

var levelMarkers = map[string]bool{
	"LEVEL": true, "LVL": true, "L": true, "FLOOR": true, "FL": true,
}

// Parse normalises and segments one address line. The same input always
// yields the same Address.
func Parse(loc LocalityLine, line string) Address {
	addr := Address{
		Suburb:   Normalize(loc.Suburb),
		State:    Normalize(loc.State),
		Postcode: digits(loc.Postcode),
		Raw:      line,
	}
	addr.Segments = Segments(line)
	segs := addr.Segments

	switch {
	case len(segs) == 0:
		return addr
	case len(segs) >= 2 && mailServiceMarkers[segs[0].Text] && segs[1].HasNumber():
		addr.MailService = true
		addr.NumberText = segs[1].Number
		addr.Valid = true
		return addr
	case isPostBox(segs):
		addr.PostBox = true
		addr.NumberText = segs[len(segs)-1].Number
		addr.Valid = true
		return addr
	case len(segs) == 1 && !segs[0].HasNumber():
		addr.BuildingOnly = true
		addr.Building = segs[0].Text
		addr.Valid = true
		return addr
	}

	anchor := -1
	for i := len(segs) - 2; i >= 0; i-- {
		if segs[i].HasNumber() && !isOrdinal(segs[i].Text) {
			anchor = i
			break
		}
	}
	if anchor < 0 {
		return addr
	}

	addr.Street = joinSegments(segs[anchor+1:])
	addr.NumberText = joinSegments(segs[:anchor+1])
	addr.Numbers = splitNumbers(segs[:anchor+1])
	addr.Valid = true
	return addr
}

// isOrdinal matches street-name numbers such as 3RD or 21ST.
func isOrdinal(text string) bool {
	num, suffix := numberAndSuffix(text)
	if num == "" {
		return false
	}
	switch suffix {
	case "ST", "ND", "RD", "TH":
		return true
	}
	return false
}

func isPostBox(segs []Segment) bool {
	if len(segs) >= 2 && segs[0].Text == "POBOX" && segs[1].HasNumber() {
		return true
	}
	if len(segs) < 3 {
		return false
	}
	word, ok := postBoxMarkers[segs[0].Text]
	return ok && segs[1].Text == word && segs[2].HasNumber()
}

// splitNumbers assigns house, range, flat and level parts from the segments
// up to and including the street-number anchor.
func splitNumbers(segs []Segment) Numbers {
	var n Numbers
	last := len(segs) - 1
	anchor := segs[last]
	houseStart := last

	prev := -1
	if last > 0 {
		prev = last - 1
	}

	switch {
	case prev >= 0 && anchor.Sep == "-" && segs[prev].HasNumber() && !isMarked(segs, prev):
		n.House, n.HouseSuffix = numberAndSuffix(segs[prev].Text)
		n.HouseLast, n.HouseLastSuffix = numberAndSuffix(anchor.Text)
		houseStart = prev
	case prev >= 0 && anchor.Sep == "/" && segs[prev].HasNumber():
		n.Flat, n.FlatSuffix = numberAndSuffix(stripMarker(segs[prev].Text, flatMarkers))
		n.House, n.HouseSuffix = numberAndSuffix(anchor.Text)
		houseStart = prev
	case markerBefore(segs, last, flatMarkers) || compactMarker(anchor.Text, flatMarkers):
		n.Flat, n.FlatSuffix = numberAndSuffix(stripMarker(anchor.Text, flatMarkers))
	case markerBefore(segs, last, levelMarkers) || compactMarker(anchor.Text, levelMarkers):
		n.Level = anchor.Number
	default:
		n.House, n.HouseSuffix = numberAndSuffix(anchor.Text)
	}

	for i := 0; i < houseStart; i++ {
		s := segs[i]
		if !s.HasNumber() {
			continue
		}
		switch {
		case markerBefore(segs, i, levelMarkers) || compactMarker(s.Text, levelMarkers):
			if n.Level == "" {
				n.Level = s.Number
			}
		case n.Flat == "":
			n.Flat, n.FlatSuffix = numberAndSuffix(stripMarker(s.Text, flatMarkers))
		}
	}
	return n
}

func isMarked(segs []Segment, i int) bool {
	return markerBefore(segs, i, flatMarkers) || markerBefore(segs, i, levelMarkers) ||
		compactMarker(segs[i].Text, flatMarkers) || compactMarker(segs[i].Text, levelMarkers)
}

func markerBefore(segs []Segment, i int, markers map[string]bool) bool {
	return i > 0 && markers[segs[i-1].Text]
}

// compactMarker matches forms like U2 or L3.
func compactMarker(text string, markers map[string]bool) bool {
	p := leadingLetters(text)
	return p != "" && p != text && markers[p] && unicode.IsDigit(rune(text[len(p)]))
}

func stripMarker(text string, markers map[string]bool) string {
	if compactMarker(text, markers) {
		return text[len(leadingLetters(text)):]
	}
	return text
}

func leadingLetters(text string) string {
	i := 0
	for i < len(text) && text[i] >= 'A' && text[i] <= 'Z' {
		i++
	}
	return text[:i]
}

// numberAndSuffix splits "15A" into ("15", "A"). Text that is not digits
// followed by letters yields its digits and no suffix.
func numberAndSuffix(text string) (string, string) {
	i := 0
	for i < len(text) && text[i] >= '0' && text[i] <= '9' {
		i++
	}
	if i == 0 {
		return digits(text), ""
	}
	rest := text[i:]
	for _, r := range rest {
		if r < 'A' || r > 'Z' {
			return digits(text), ""
		}
	}
	return text[:i], rest
}

func joinSegments(segs []Segment) string {
	var b strings.Builder
	for i, s := range segs {
		if i > 0 {
			b.WriteString(s.Sep)
		}
		b.WriteString(s.Text)
	}
	return b.String()
}

// Segments splits a line on whitespace, commas, "-" and "/".
func Segments(line string) []Segment {
	var segs []Segment
	var cur strings.Builder
	sep := ""
	flush := func() {
		if cur.Len() == 0 {
			return
		}
		text := cur.String()
		segs = append(segs, Segment{Text: text, Number: digits(text), Sep: sep})
		cur.Reset()
		sep = ""
	}
	for _, r := range Normalize(line) {
		switch {
		case r == '-' || r == '/':
			flush()
			if len(segs) > 0 {
				sep = string(r)
			}
		case unicode.IsSpace(r):
			flush()
			if len(segs) > 0 && sep == "" {
				sep = " "
			}
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return segs
}

// Normalize folds accents and case, drops dots and turns punctuation other
// than "-" and "/" into spaces.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	for _, r := range strings.ToUpper(folded) {
		switch {
		case r == '.':
		case r == '-' || r == '/' || r == '\'':
			b.WriteRune(r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
