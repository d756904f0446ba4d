package reference

import (
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Anomaly records a reference row that pointed at an unknown parent. The row
// is skipped and loading continues.
type Anomaly struct {
	Kind string
	Ref  string
}

// Stats summarises what was loaded.
type Stats struct {
	States        int
	Localities    int
	Aliases       int
	Postcodes     int
	Streets       int
	StreetAliases int
	Anomalies     int
}

// Index holds every canonical reference entity and the lookups over them.
// It is built once by Load and is read-only afterwards, so concurrent readers
// need no locking.
type Index struct {
	statesByID     map[int]*State
	statesByAbbrev map[string]*State
	statesByName   map[string]*State

	localitiesByID     map[string]*Locality
	localitiesByState  map[int]map[string]*Locality
	aliasesByState     map[int]map[string]*Locality
	localitiesByPost   map[string][]*Locality
	sortedByState      map[int][]*Locality
	streetsByID        map[string]*Street
	streetsByLocality  map[string]map[string][]*Street
	aliasesByLocality  map[string]map[string][]*Street
	streetsByName      map[string][]*Street
	sortedByLocality   map[string][]*Street
	streetTypesByCode  map[string]*StreetType
	streetTypesByName  map[string]*StreetType
	suffixesByCode     map[string]*StreetSuffix
	suffixesByName     map[string]*StreetSuffix
	orderedStreetTypes []*StreetType

	stats Stats
}

// Load builds an Index from the bootstrap rows. Row sets are applied in
// dependency order so range aggregates and neighbour pairs always see their
// referenced entities.
func Load(rows Rows) (*Index, []Anomaly) {
	ix := &Index{
		statesByID:        make(map[int]*State),
		statesByAbbrev:    make(map[string]*State),
		statesByName:      make(map[string]*State),
		localitiesByID:    make(map[string]*Locality),
		localitiesByState: make(map[int]map[string]*Locality),
		aliasesByState:    make(map[int]map[string]*Locality),
		localitiesByPost:  make(map[string][]*Locality),
		sortedByState:     make(map[int][]*Locality),
		streetsByID:       make(map[string]*Street),
		streetsByLocality: make(map[string]map[string][]*Street),
		aliasesByLocality: make(map[string]map[string][]*Street),
		streetsByName:     make(map[string][]*Street),
		sortedByLocality:  make(map[string][]*Street),
		streetTypesByCode: make(map[string]*StreetType),
		streetTypesByName: make(map[string]*StreetType),
		suffixesByCode:    make(map[string]*StreetSuffix),
		suffixesByName:    make(map[string]*StreetSuffix),
	}
	var anomalies []Anomaly
	anomaly := func(kind, ref string) {
		anomalies = append(anomalies, Anomaly{Kind: kind, Ref: ref})
		zap.L().Warn("reference: load anomaly", zap.String("kind", kind), zap.String("ref", ref))
	}

	for _, r := range rows.States {
		if _, ok := ix.statesByID[r.ID]; ok {
			continue
		}
		st := &State{ID: r.ID, Abbreviation: normalizeKey(r.Abbreviation), Name: normalizeKey(r.Name)}
		ix.statesByID[st.ID] = st
		ix.statesByAbbrev[st.Abbreviation] = st
		ix.statesByName[st.Name] = st
	}

	for _, r := range rows.StreetTypes {
		st := &StreetType{Code: normalizeKey(r.Code), Name: normalizeKey(r.Name)}
		if _, ok := ix.streetTypesByCode[st.Code]; ok {
			continue
		}
		ix.streetTypesByCode[st.Code] = st
		if _, ok := ix.streetTypesByName[st.Name]; !ok {
			ix.streetTypesByName[st.Name] = st
		}
		ix.orderedStreetTypes = append(ix.orderedStreetTypes, st)
	}
	sort.Slice(ix.orderedStreetTypes, func(i, j int) bool {
		return ix.orderedStreetTypes[i].Code < ix.orderedStreetTypes[j].Code
	})

	for _, r := range rows.StreetSuffixes {
		sf := &StreetSuffix{Code: normalizeKey(r.Code), Name: normalizeKey(r.Name)}
		if _, ok := ix.suffixesByCode[sf.Code]; ok {
			continue
		}
		ix.suffixesByCode[sf.Code] = sf
		ix.suffixesByName[sf.Name] = sf
	}

	for _, r := range rows.Localities {
		if _, ok := ix.statesByID[r.StateID]; !ok {
			anomaly("locality_state", r.ID)
			continue
		}
		loc, ok := ix.localitiesByID[r.ID]
		if !ok {
			loc = &Locality{
				ID:      r.ID,
				Name:    normalizeKey(r.Name),
				StateID: r.StateID,
				Rank:    ClassRank(r.ClassCode),
			}
			ix.localitiesByID[r.ID] = loc
			ix.claimName(loc)
		}
		ix.addPostcode(loc, normalizeKey(r.Postcode))
	}

	for _, r := range rows.LocalityPostcodes {
		loc, ok := ix.localitiesByID[r.LocalityID]
		if !ok {
			anomaly("postcode_locality", r.LocalityID)
			continue
		}
		ix.addPostcode(loc, normalizeKey(r.Postcode))
	}

	for _, r := range rows.LocalityAliases {
		target, ok := ix.localitiesByID[r.LocalityID]
		if !ok {
			anomaly("alias_locality", r.LocalityID)
			continue
		}
		stateID := r.StateID
		if _, ok := ix.statesByID[stateID]; !ok {
			stateID = target.StateID
		}
		name := normalizeKey(r.Name)
		byName := ix.aliasesByState[stateID]
		if byName == nil {
			byName = make(map[string]*Locality)
			ix.aliasesByState[stateID] = byName
		}
		alias, ok := byName[name]
		if !ok {
			alias = &Locality{
				ID:        target.ID,
				Name:      name,
				StateID:   stateID,
				Rank:      target.Rank,
				IsAlias:   true,
				canonical: target,
			}
			byName[name] = alias
			ix.stats.Aliases++
		} else if alias.canonical != target {
			// Same alias name pointing at a different locality keeps the first.
			continue
		}
		pc := normalizeKey(r.Postcode)
		if pc == "" {
			pc = target.Postcode
		}
		ix.addPostcode(alias, pc)
	}

	for _, r := range rows.Streets {
		loc, ok := ix.localitiesByID[r.LocalityID]
		if !ok {
			anomaly("street_locality", r.ID)
			continue
		}
		if _, ok := ix.streetsByID[r.ID]; ok {
			continue
		}
		s := &Street{
			ID:         r.ID,
			Name:       normalizeKey(r.Name),
			TypeCode:   normalizeKey(r.TypeCode),
			SuffixCode: normalizeKey(r.SuffixCode),
			Locality:   loc,
		}
		ix.streetsByID[s.ID] = s
		addStreet(ix.streetsByLocality, loc.ID, s.Name, s)
		ix.streetsByName[s.Name] = append(ix.streetsByName[s.Name], s)
		ix.sortedByLocality[loc.ID] = append(ix.sortedByLocality[loc.ID], s)
	}

	for _, r := range rows.StreetAliases {
		s, ok := ix.streetsByID[r.ID]
		if !ok {
			anomaly("street_alias", r.ID)
			continue
		}
		name := normalizeKey(r.Name)
		if name == "" || containsStreet(ix.aliasesByLocality[s.Locality.ID][name], s) {
			continue
		}
		addStreet(ix.aliasesByLocality, s.Locality.ID, name, s)
		ix.stats.StreetAliases++
	}

	for _, r := range rows.LocalityNeighbours {
		a, okA := ix.localitiesByID[r.LocalityID]
		b, okB := ix.localitiesByID[r.NeighbourID]
		if !okA || !okB {
			anomaly("neighbour", r.LocalityID+"/"+r.NeighbourID)
			continue
		}
		a.addNeighbor(b.ID)
		b.addNeighbor(a.ID)
	}

	for _, r := range rows.StreetRanges {
		s, ok := ix.streetsByID[r.StreetID]
		if !ok {
			anomaly("range_street", r.StreetID)
			continue
		}
		s.Range = Range{
			FlatMin:   r.FlatMin,
			FlatMax:   r.FlatMax,
			LevelMin:  r.LevelMin,
			LevelMax:  r.LevelMax,
			NumberMin: r.NumberMin,
			NumberMax: r.NumberMax,
			Count:     r.Count,
		}
	}

	ix.freeze()
	ix.stats.States = len(ix.statesByID)
	ix.stats.Localities = len(ix.localitiesByID)
	ix.stats.Postcodes = len(ix.localitiesByPost)
	ix.stats.Streets = len(ix.streetsByID)
	ix.stats.Anomalies = len(anomalies)
	return ix, anomalies
}

// claimName registers loc under its state and name. A lower-ranked locality
// takes the slot from one already holding the same name.
func (ix *Index) claimName(loc *Locality) {
	byName := ix.localitiesByState[loc.StateID]
	if byName == nil {
		byName = make(map[string]*Locality)
		ix.localitiesByState[loc.StateID] = byName
	}
	if cur, ok := byName[loc.Name]; !ok || loc.Rank < cur.Rank {
		byName[loc.Name] = loc
	}
	ix.sortedByState[loc.StateID] = append(ix.sortedByState[loc.StateID], loc)
}

func (ix *Index) addPostcode(loc *Locality, pc string) {
	if loc.addPostcode(pc) {
		ix.localitiesByPost[pc] = append(ix.localitiesByPost[pc], loc)
	}
}

// freeze orders the enumeration lists so every lookup is deterministic.
func (ix *Index) freeze() {
	for pc, list := range ix.localitiesByPost {
		sort.SliceStable(list, func(i, j int) bool { return list[i].Rank < list[j].Rank })
		ix.localitiesByPost[pc] = list
	}
	for id, list := range ix.sortedByState {
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].Name != list[j].Name {
				return list[i].Name < list[j].Name
			}
			return list[i].ID < list[j].ID
		})
		ix.sortedByState[id] = list
	}
	for id, list := range ix.sortedByLocality {
		sortStreets(list)
		ix.sortedByLocality[id] = list
	}
	for _, byName := range ix.streetsByLocality {
		for _, list := range byName {
			sortStreets(list)
		}
	}
	for _, byName := range ix.aliasesByLocality {
		for _, list := range byName {
			sortStreets(list)
		}
	}
	for _, list := range ix.streetsByName {
		sortStreets(list)
	}
}

func sortStreets(list []*Street) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].ID < list[j].ID
	})
}

func addStreet(m map[string]map[string][]*Street, localityID, name string, s *Street) {
	byName := m[localityID]
	if byName == nil {
		byName = make(map[string][]*Street)
		m[localityID] = byName
	}
	byName[name] = append(byName[name], s)
}

func containsStreet(list []*Street, s *Street) bool {
	for _, c := range list {
		if c == s {
			return true
		}
	}
	return false
}

// Stats returns load counters.
func (ix *Index) Stats() Stats {
	return ix.stats
}

// State finds a state by abbreviation or full name.
func (ix *Index) State(key string) *State {
	key = normalizeKey(key)
	if key == "" {
		return nil
	}
	if st, ok := ix.statesByAbbrev[key]; ok {
		return st
	}
	return ix.statesByName[key]
}

// StateByID returns the state with the given id.
func (ix *Index) StateByID(id int) *State {
	return ix.statesByID[id]
}

// Locality returns the canonical locality with this name in the state.
func (ix *Index) Locality(stateID int, name string) *Locality {
	return ix.localitiesByState[stateID][normalizeKey(name)]
}

// LocalityAlias returns the alias entry with this name in the state.
func (ix *Index) LocalityAlias(stateID int, name string) *Locality {
	return ix.aliasesByState[stateID][normalizeKey(name)]
}

// LocalityByID returns the canonical locality for a locality pid.
func (ix *Index) LocalityByID(id string) *Locality {
	return ix.localitiesByID[id]
}

// ByPostcode returns the localities (aliases included) sharing a postcode,
// ordered by rank then load order.
func (ix *Index) ByPostcode(pc string) []*Locality {
	return ix.localitiesByPost[normalizeKey(pc)]
}

// LocalitiesInState returns the canonical localities of a state sorted by name.
func (ix *Index) LocalitiesInState(stateID int) []*Locality {
	return ix.sortedByState[stateID]
}

// Streets returns the streets of a locality with exactly this name.
func (ix *Index) Streets(localityID, name string) []*Street {
	return ix.streetsByLocality[localityID][normalizeKey(name)]
}

// StreetAliases returns the streets of a locality known by this alias name.
func (ix *Index) StreetAliases(localityID, name string) []*Street {
	return ix.aliasesByLocality[localityID][normalizeKey(name)]
}

// LocalityStreets returns every street of a locality sorted by name then id.
func (ix *Index) LocalityStreets(localityID string) []*Street {
	return ix.sortedByLocality[localityID]
}

// StreetsNamed returns every street in the index with this name.
func (ix *Index) StreetsNamed(name string) []*Street {
	return ix.streetsByName[normalizeKey(name)]
}

// StreetByID returns a street by its pid.
func (ix *Index) StreetByID(id string) *Street {
	return ix.streetsByID[id]
}

// StreetType resolves a word to a street type: abbreviation first, then
// code, then a prefix shared by exactly one code.
func (ix *Index) StreetType(word string) (*StreetType, bool) {
	word = normalizeKey(word)
	if word == "" {
		return nil, false
	}
	if st, ok := ix.streetTypesByName[word]; ok {
		return st, true
	}
	if st, ok := ix.streetTypesByCode[word]; ok {
		return st, true
	}
	if len(word) < 2 {
		return nil, false
	}
	var found *StreetType
	for _, st := range ix.orderedStreetTypes {
		if strings.HasPrefix(st.Code, word) {
			if found != nil {
				return nil, false
			}
			found = st
		}
	}
	return found, found != nil
}

// StreetTypeByCode returns the street type with this code.
func (ix *Index) StreetTypeByCode(code string) *StreetType {
	return ix.streetTypesByCode[normalizeKey(code)]
}

// Suffix resolves a word to a street suffix by name or code.
func (ix *Index) Suffix(word string) (*StreetSuffix, bool) {
	word = normalizeKey(word)
	if sf, ok := ix.suffixesByName[word]; ok {
		return sf, true
	}
	sf, ok := ix.suffixesByCode[word]
	return sf, ok
}
