package bootstrap

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/gnaf-matcher/internal/reference"
)

const schema = `
CREATE TABLE state (state_pid INTEGER, state_abbreviation TEXT, state_name TEXT);
CREATE TABLE street_type_aut (code TEXT, name TEXT);
CREATE TABLE street_suffix_aut (code TEXT, name TEXT);
CREATE TABLE locality (locality_pid TEXT, locality_name TEXT, state_pid INTEGER,
	primary_postcode TEXT, locality_class_code TEXT, date_retired TEXT);
CREATE TABLE locality_alias (locality_pid TEXT, name TEXT, postcode TEXT);
CREATE TABLE street_locality (street_locality_pid TEXT, street_name TEXT, street_type_code TEXT,
	street_suffix_code TEXT, locality_pid TEXT, date_retired TEXT);
CREATE TABLE street_locality_alias (street_locality_pid TEXT, street_name TEXT,
	street_type_code TEXT, street_suffix_code TEXT);
CREATE TABLE locality_neighbour (locality_pid TEXT, neighbour_locality_pid TEXT);
CREATE TABLE address_detail (address_detail_pid TEXT, street_locality_pid TEXT, locality_pid TEXT,
	postcode TEXT, flat_number INTEGER, level_number INTEGER, number_first INTEGER,
	number_last INTEGER, date_retired TEXT);

INSERT INTO state VALUES (1, 'NSW', 'NEW SOUTH WALES');
INSERT INTO street_type_aut VALUES ('STREET', 'ST'), ('ROAD', 'RD');
INSERT INTO street_suffix_aut VALUES ('N', 'NORTH');
INSERT INTO locality VALUES
	('NSW100', 'SYDNEY', 1, '2000', 'G', NULL),
	('NSW101', 'THE ROCKS', 1, NULL, 'G', NULL),
	('NSW199', 'RETIRED', 1, '2999', 'G', '2020-01-01');
INSERT INTO locality_alias VALUES ('NSW100', 'SYDNEY CITY', NULL), ('NSW404', 'NOWHERE', '9999');
INSERT INTO street_locality VALUES
	('NSW2000', 'PITT', 'STREET', NULL, 'NSW100', NULL),
	('NSW2001', 'GEORGE', 'STREET', 'N', 'NSW100', NULL);
INSERT INTO street_locality_alias VALUES ('NSW2001', 'OLD GEORGE', 'STREET', NULL);
INSERT INTO locality_neighbour VALUES ('NSW100', 'NSW101');
INSERT INTO address_detail VALUES
	('GA1', 'NSW2000', 'NSW100', '2000', NULL, NULL, 1, NULL, NULL),
	('GA2', 'NSW2000', 'NSW100', '2000', 3, 2, 12, 14, NULL),
	('GA3', 'NSW2000', 'NSW100', '2001', NULL, NULL, 40, NULL, NULL),
	('GA4', 'NSW2000', 'NSW100', '2000', NULL, NULL, 900, NULL, '2019-05-01'),
	('GA5', 'NSW2001', 'NSW101', '2000', NULL, NULL, 5, NULL, NULL);
`

func newTestDB(t *testing.T, ddl string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "gnaf.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(ddl)
	require.NoError(t, err)
	return db
}

func TestLoad(t *testing.T) {
	db := newTestDB(t, schema)

	rows, err := Load(context.Background(), db)
	require.NoError(t, err)

	assert.Equal(t, []reference.StateRow{{ID: 1, Abbreviation: "NSW", Name: "NEW SOUTH WALES"}}, rows.States)
	assert.Len(t, rows.StreetTypes, 2)
	assert.Len(t, rows.StreetSuffixes, 1)

	require.Len(t, rows.Localities, 2, "retired locality excluded")
	assert.ElementsMatch(t, []reference.LocalityRow{
		{ID: "NSW100", Name: "SYDNEY", StateID: 1, Postcode: "2000", ClassCode: "G"},
		{ID: "NSW101", Name: "THE ROCKS", StateID: 1, Postcode: "", ClassCode: "G"},
	}, rows.Localities)

	assert.ElementsMatch(t, []reference.LocalityPostcodeRow{
		{LocalityID: "NSW100", Postcode: "2000"},
		{LocalityID: "NSW100", Postcode: "2001"},
		{LocalityID: "NSW101", Postcode: "2000"},
	}, rows.LocalityPostcodes)

	assert.ElementsMatch(t, []reference.LocalityAliasRow{
		{LocalityID: "NSW100", Name: "SYDNEY CITY", StateID: 1},
		{LocalityID: "NSW404", Name: "NOWHERE", Postcode: "9999"},
	}, rows.LocalityAliases)

	assert.Len(t, rows.Streets, 2)
	assert.Equal(t, []reference.StreetRow{{ID: "NSW2001", Name: "OLD GEORGE", TypeCode: "STREET"}}, rows.StreetAliases)
	assert.Equal(t, []reference.NeighbourRow{{LocalityID: "NSW100", NeighbourID: "NSW101"}}, rows.LocalityNeighbours)

	ranges := map[string]reference.RangeRow{}
	for _, r := range rows.StreetRanges {
		ranges[r.StreetID] = r
	}
	assert.Equal(t, reference.RangeRow{
		StreetID: "NSW2000", FlatMin: 3, FlatMax: 3, LevelMin: 2, LevelMax: 2,
		NumberMin: 1, NumberMax: 40, Count: 3,
	}, ranges["NSW2000"])
	assert.Equal(t, 1, ranges["NSW2001"].Count)
}

func TestLoadFeedsIndex(t *testing.T) {
	db := newTestDB(t, schema)

	rows, err := Load(context.Background(), db)
	require.NoError(t, err)

	ix, anomalies := reference.Load(rows)
	require.Len(t, anomalies, 1)
	assert.Equal(t, reference.Anomaly{Kind: "alias_locality", Ref: "NSW404"}, anomalies[0])

	rocks := ix.LocalityByID("NSW101")
	require.NotNil(t, rocks)
	assert.Equal(t, "2000", rocks.Postcode, "postcode learned from address details")
	assert.True(t, ix.LocalityByID("NSW100").HasPostcode("2001"))
	assert.Same(t, ix.LocalityByID("NSW100"), ix.LocalityAlias(1, "SYDNEY CITY").Canonical())
	assert.Equal(t, 3, ix.StreetByID("NSW2000").Range.Count)
}

func TestLoadMissingTableFails(t *testing.T) {
	db := newTestDB(t, `CREATE TABLE state (state_pid INTEGER, state_abbreviation TEXT, state_name TEXT);`)

	_, err := Load(context.Background(), db)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrLoadFailed))
}
