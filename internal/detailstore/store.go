// Package detailstore answers address detail point lookups from the G-NAF
// address_detail table over a pgx pool.
package detailstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/gnaf-matcher/internal/db"
	"github.com/gnaf-matcher/internal/number"
)

// selectDetail returns the detail id and a display string built from every
// descriptive column.
const selectDetail = `SELECT address_detail_pid,
	concat_ws(' ',
		building_name,
		nullif(concat('LOT ', lot_number), 'LOT '),
		flat_type_code,
		nullif(concat(flat_number_prefix, flat_number, flat_number_suffix), ''),
		level_type_code,
		nullif(concat(level_number_prefix, level_number, level_number_suffix), ''),
		nullif(concat(number_first_prefix, number_first, number_first_suffix), ''),
		nullif(concat(number_last_prefix, number_last, number_last_suffix), '')
	)
FROM address_detail
WHERE date_retired IS NULL`

// Options bounds the load placed on the reference database.
type Options struct {
	// MaxConcurrent caps in-flight lookups; 0 leaves them uncapped.
	MaxConcurrent int64
	// PerSecond rate limits lookups; 0 disables the limiter.
	PerSecond float64
}

// Store implements number.Store.
type Store struct {
	pool    db.Pool
	sem     *semaphore.Weighted
	limiter *rate.Limiter
}

var _ number.Store = (*Store)(nil)

// New creates a store over pool.
func New(pool db.Pool, opts Options) *Store {
	s := &Store{pool: pool}
	if opts.MaxConcurrent > 0 {
		s.sem = semaphore.NewWeighted(opts.MaxConcurrent)
	}
	if opts.PerSecond > 0 {
		burst := int(opts.PerSecond)
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.PerSecond), burst)
	}
	return s
}

// Find returns the first detail matching q, or nil.
func (s *Store) Find(ctx context.Context, q number.Lookup) (*number.Record, error) {
	sql, args := BuildQuery(q)
	rec, err := s.queryOne(ctx, sql, args...)
	if err != nil {
		return nil, classify(err, fmt.Sprintf("detailstore: find on street %s", q.StreetID))
	}
	return rec, nil
}

// FindBuilding returns the first detail in the locality carrying the
// building name, or nil.
func (s *Store) FindBuilding(ctx context.Context, localityID, building string) (*number.Record, error) {
	sql := selectDetail + ` AND locality_pid = $1 AND upper(building_name) = $2 LIMIT 1`
	rec, err := s.queryOne(ctx, sql, localityID, strings.ToUpper(building))
	if err != nil {
		return nil, classify(err, fmt.Sprintf("detailstore: find building in %s", localityID))
	}
	return rec, nil
}

// BuildQuery renders a lookup into SQL. Predicates are appended in a fixed
// order so equal lookups always yield equal statements.
func BuildQuery(q number.Lookup) (string, []any) {
	var b strings.Builder
	b.WriteString(selectDetail)
	var args []any
	add := func(format string, v any) {
		args = append(args, v)
		b.WriteString(" AND ")
		b.WriteString(fmt.Sprintf(format, len(args)))
	}

	add("street_locality_pid = $%d", q.StreetID)
	if q.Number > 0 {
		if q.Between {
			add("$%d BETWEEN number_first AND number_last", q.Number)
		} else {
			add("number_first = $%d", q.Number)
		}
	}
	if q.NumberLast > 0 {
		add("number_last = $%d", q.NumberLast)
	}
	if q.NumberSuffix != "" {
		add("number_first_suffix = $%d", q.NumberSuffix)
	}
	if q.Flat > 0 {
		add("flat_number = $%d", q.Flat)
	}
	if q.FlatSuffix != "" {
		add("flat_number_suffix = $%d", q.FlatSuffix)
	}
	if q.Level > 0 {
		add("level_number = $%d", q.Level)
	}
	b.WriteString(" LIMIT 1")
	return b.String(), args
}

func (s *Store) queryOne(ctx context.Context, sql string, args ...any) (*number.Record, error) {
	if s.sem != nil {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer s.sem.Release(1)
	}
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var rec number.Record
	err := s.pool.QueryRow(ctx, sql, args...).Scan(&rec.ID, &rec.Full)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// classify maps a driver error onto the lookup error taxonomy. Deadline
// errors become ErrLookupTimeout; everything else is ErrStoreUnavailable.
func classify(err error, op string) error {
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, context.DeadlineExceeded), pgconn.Timeout(err):
		return eris.Wrapf(number.ErrLookupTimeout, "%s: %v", op, err)
	case errors.As(err, &pgErr) && pgErr.Code == "57014":
		// query_canceled, raised by statement_timeout.
		return eris.Wrapf(number.ErrLookupTimeout, "%s: %v", op, err)
	default:
		zap.L().Debug("detailstore: lookup failed", zap.String("op", op), zap.Error(err))
		return eris.Wrapf(number.ErrStoreUnavailable, "%s: %v", op, err)
	}
}
