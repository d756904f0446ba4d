// Package bootstrap reads the G-NAF reference tables into the row sets the
// reference index is built from.
package bootstrap

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gnaf-matcher/internal/reference"
)

// ErrLoadFailed wraps every failure to read a reference row set. Nothing can
// be resolved without the reference data, so callers treat it as fatal.
var ErrLoadFailed = eris.New("bootstrap: load failed")

// Querier is satisfied by *sql.DB and *sql.Conn.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

const (
	statesSQL = `SELECT state_pid, state_abbreviation, state_name FROM state`

	streetTypesSQL = `SELECT code, name FROM street_type_aut`

	streetSuffixesSQL = `SELECT code, name FROM street_suffix_aut`

	localitiesSQL = `SELECT locality_pid, locality_name, state_pid,
		coalesce(primary_postcode, ''), coalesce(locality_class_code, '')
	FROM locality
	WHERE date_retired IS NULL`

	localityPostcodesSQL = `SELECT DISTINCT locality_pid, postcode
	FROM address_detail
	WHERE date_retired IS NULL AND postcode IS NOT NULL AND postcode <> ''`

	localityAliasesSQL = `SELECT la.locality_pid, la.name, coalesce(la.postcode, ''), coalesce(l.state_pid, 0)
	FROM locality_alias la
	LEFT JOIN locality l ON l.locality_pid = la.locality_pid`

	streetsSQL = `SELECT street_locality_pid, street_name,
		coalesce(street_type_code, ''), coalesce(street_suffix_code, ''), locality_pid
	FROM street_locality
	WHERE date_retired IS NULL`

	streetAliasesSQL = `SELECT street_locality_pid, street_name,
		coalesce(street_type_code, ''), coalesce(street_suffix_code, '')
	FROM street_locality_alias`

	neighboursSQL = `SELECT locality_pid, neighbour_locality_pid FROM locality_neighbour`

	streetRangesSQL = `SELECT street_locality_pid,
		coalesce(min(flat_number), 0), coalesce(max(flat_number), 0),
		coalesce(min(level_number), 0), coalesce(max(level_number), 0),
		coalesce(min(number_first), 0), coalesce(max(coalesce(number_last, number_first)), 0),
		count(*)
	FROM address_detail
	WHERE date_retired IS NULL AND street_locality_pid IS NOT NULL
	GROUP BY street_locality_pid`
)

// Load reads every row set. The sets are independent reads and run
// concurrently; the first failure cancels the rest.
func Load(ctx context.Context, q Querier) (reference.Rows, error) {
	start := time.Now()
	var rows reference.Rows

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		rows.States, err = query(ctx, q, "states", statesSQL, func(r *sql.Rows, s *reference.StateRow) error {
			return r.Scan(&s.ID, &s.Abbreviation, &s.Name)
		})
		return err
	})
	g.Go(func() (err error) {
		rows.StreetTypes, err = query(ctx, q, "street types", streetTypesSQL, scanCode)
		return err
	})
	g.Go(func() (err error) {
		rows.StreetSuffixes, err = query(ctx, q, "street suffixes", streetSuffixesSQL, scanCode)
		return err
	})
	g.Go(func() (err error) {
		rows.Localities, err = query(ctx, q, "localities", localitiesSQL, func(r *sql.Rows, l *reference.LocalityRow) error {
			return r.Scan(&l.ID, &l.Name, &l.StateID, &l.Postcode, &l.ClassCode)
		})
		return err
	})
	g.Go(func() (err error) {
		rows.LocalityPostcodes, err = query(ctx, q, "locality postcodes", localityPostcodesSQL, func(r *sql.Rows, p *reference.LocalityPostcodeRow) error {
			return r.Scan(&p.LocalityID, &p.Postcode)
		})
		return err
	})
	g.Go(func() (err error) {
		rows.LocalityAliases, err = query(ctx, q, "locality aliases", localityAliasesSQL, func(r *sql.Rows, a *reference.LocalityAliasRow) error {
			return r.Scan(&a.LocalityID, &a.Name, &a.Postcode, &a.StateID)
		})
		return err
	})
	g.Go(func() (err error) {
		rows.Streets, err = query(ctx, q, "streets", streetsSQL, func(r *sql.Rows, s *reference.StreetRow) error {
			return r.Scan(&s.ID, &s.Name, &s.TypeCode, &s.SuffixCode, &s.LocalityID)
		})
		return err
	})
	g.Go(func() (err error) {
		rows.StreetAliases, err = query(ctx, q, "street aliases", streetAliasesSQL, func(r *sql.Rows, s *reference.StreetRow) error {
			return r.Scan(&s.ID, &s.Name, &s.TypeCode, &s.SuffixCode)
		})
		return err
	})
	g.Go(func() (err error) {
		rows.LocalityNeighbours, err = query(ctx, q, "locality neighbours", neighboursSQL, func(r *sql.Rows, n *reference.NeighbourRow) error {
			return r.Scan(&n.LocalityID, &n.NeighbourID)
		})
		return err
	})
	g.Go(func() (err error) {
		rows.StreetRanges, err = query(ctx, q, "street ranges", streetRangesSQL, func(r *sql.Rows, s *reference.RangeRow) error {
			return r.Scan(&s.StreetID, &s.FlatMin, &s.FlatMax, &s.LevelMin, &s.LevelMax, &s.NumberMin, &s.NumberMax, &s.Count)
		})
		return err
	})

	if err := g.Wait(); err != nil {
		return reference.Rows{}, err
	}

	zap.L().Info("bootstrap: reference rows loaded",
		zap.Int("states", len(rows.States)),
		zap.Int("localities", len(rows.Localities)),
		zap.Int("streets", len(rows.Streets)),
		zap.Int("ranges", len(rows.StreetRanges)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return rows, nil
}

func scanCode(r *sql.Rows, c *reference.CodeRow) error {
	return r.Scan(&c.Code, &c.Name)
}

func query[T any](ctx context.Context, q Querier, name, stmt string, scan func(*sql.Rows, *T) error) ([]T, error) {
	rows, err := q.QueryContext(ctx, stmt)
	if err != nil {
		return nil, eris.Wrapf(ErrLoadFailed, "query %s: %v", name, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var v T
		if err := scan(rows, &v); err != nil {
			return nil, eris.Wrapf(ErrLoadFailed, "scan %s: %v", name, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(ErrLoadFailed, "read %s: %v", name, err)
	}
	return out, nil
}
