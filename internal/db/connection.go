package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// Connection holds a database/sql handle and the driver it was opened with.
type Connection struct {
	DB     *sql.DB
	Driver string
}

// Params are the discrete libpq connection settings.
type Params struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
}

// DSN builds a keyword/value connection string understood by lib/pq and pgx.
func (p Params) DSN() string {
	sslmode := p.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, sslmode)
}

// Open opens and pings a database/sql connection. driver is "postgres" or
// "sqlite".
func Open(ctx context.Context, driver, dsn string) (*Connection, error) {
	switch driver {
	case "postgres", "sqlite":
	default:
		return nil, eris.Errorf("db: unsupported driver %q", driver)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, eris.Wrap(err, "db: open")
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, eris.Wrap(err, "db: ping")
	}

	if driver == "sqlite" {
		// One writer at a time keeps sqlite from returning SQLITE_BUSY.
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(20)
		conn.SetMaxIdleConns(10)
		conn.SetConnMaxLifetime(30 * time.Minute)
	}

	return &Connection{DB: conn, Driver: driver}, nil
}

// Close closes the database connection
func (c *Connection) Close() error {
	return c.DB.Close()
}
