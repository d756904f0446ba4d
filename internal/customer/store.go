// Package customer reads pending customer addresses and writes resolution
// outcomes back to the customer database.
package customer

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rotisserie/eris"
)

// Record is one pending customer address.
type Record struct {
	CustomerID   int64
	AddressLine  string
	AddressLine2 string
	Suburb       string
	State        string
	Postcode     string
}

// Outcome is the write-back of one resolved record. DetailID is the single
// matched address; Extra holds every detail id of an ambiguous result.
type Outcome struct {
	CustomerID  int64
	Status      string
	DetailID    string
	Extra       []string
	Invalid     bool
	PostBox     bool
	MailService bool
	Error       string
	ProcessedOn time.Time
}

// Store reads from the customer table and writes the normalized tables.
type Store struct {
	db     *sql.DB
	driver string
}

// NewStore wraps an open connection. driver is "postgres" or "sqlite" and
// selects the placeholder style.
func NewStore(db *sql.DB, driver string) *Store {
	return &Store{db: db, driver: driver}
}

const migration = `
CREATE TABLE IF NOT EXISTS customer_address_normalized (
	customer_id        BIGINT PRIMARY KEY,
	address_detail_pid TEXT,
	outcome            TEXT NOT NULL,
	invalid            BOOLEAN NOT NULL DEFAULT FALSE,
	post_box           BOOLEAN NOT NULL DEFAULT FALSE,
	mail_service       BOOLEAN NOT NULL DEFAULT FALSE,
	error              TEXT,
	run_id             TEXT NOT NULL,
	processed_on       TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS customer_address_normalized_extra (
	customer_id        BIGINT NOT NULL,
	address_detail_pid TEXT NOT NULL,
	run_id             TEXT NOT NULL,
	PRIMARY KEY (customer_id, address_detail_pid)
);
`

// Migrate creates the output tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "customer: migrate")
}

const pendingSQL = `SELECT c.customer_id,
	coalesce(c.address_line1, ''), coalesce(c.address_line2, ''),
	coalesce(c.suburb, ''), coalesce(c.state, ''), coalesce(c.postcode, '')
FROM customer c
LEFT JOIN customer_address_normalized n ON n.customer_id = c.customer_id
WHERE n.processed_on IS NULL
ORDER BY c.customer_id
LIMIT ?`

// Pending returns up to limit customers with no stored outcome, in
// customer id order.
func (s *Store) Pending(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(pendingSQL), limit)
	if err != nil {
		return nil, eris.Wrap(err, "customer: query pending")
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.CustomerID, &r.AddressLine, &r.AddressLine2, &r.Suburb, &r.State, &r.Postcode); err != nil {
			return nil, eris.Wrap(err, "customer: scan pending")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "customer: read pending")
}

const (
	upsertSQL = `INSERT INTO customer_address_normalized
	(customer_id, address_detail_pid, outcome, invalid, post_box, mail_service, error, run_id, processed_on)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (customer_id) DO UPDATE SET
	address_detail_pid = excluded.address_detail_pid,
	outcome = excluded.outcome,
	invalid = excluded.invalid,
	post_box = excluded.post_box,
	mail_service = excluded.mail_service,
	error = excluded.error,
	run_id = excluded.run_id,
	processed_on = excluded.processed_on`

	clearExtraSQL = `DELETE FROM customer_address_normalized_extra WHERE customer_id = ?`

	insertExtraSQL = `INSERT INTO customer_address_normalized_extra
	(customer_id, address_detail_pid, run_id) VALUES (?, ?, ?)`
)

// Save writes outcomes in one transaction. Re-saving a customer replaces
// its previous outcome and extras.
func (s *Store) Save(ctx context.Context, runID uuid.UUID, outcomes []Outcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "customer: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	run := runID.String()
	for _, o := range outcomes {
		processed := o.ProcessedOn
		if processed.IsZero() {
			processed = time.Now().UTC()
		}
		if _, err := tx.ExecContext(ctx, s.rebind(upsertSQL),
			o.CustomerID, nullable(o.DetailID), o.Status, o.Invalid, o.PostBox, o.MailService,
			nullable(o.Error), run, processed,
		); err != nil {
			return eris.Wrapf(err, "customer: save %d", o.CustomerID)
		}
		if _, err := tx.ExecContext(ctx, s.rebind(clearExtraSQL), o.CustomerID); err != nil {
			return eris.Wrapf(err, "customer: clear extras %d", o.CustomerID)
		}
		for _, id := range o.Extra {
			if _, err := tx.ExecContext(ctx, s.rebind(insertExtraSQL), o.CustomerID, id, run); err != nil {
				return eris.Wrapf(err, "customer: save extra %d/%s", o.CustomerID, id)
			}
		}
	}
	return eris.Wrap(tx.Commit(), "customer: commit")
}

// rebind rewrites ? placeholders into the bind style of the driver.
func (s *Store) rebind(query string) string {
	return sqlx.Rebind(sqlx.BindType(s.driver), query)
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
