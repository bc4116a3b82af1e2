package database

import (
	"context"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/trezcool/eduadmin/core"
)

// Engines
const (
	Postgres = "postgres"
	SQLite   = "sqlite3"
)

// DriverName maps a configured engine (or store backend) to its database/sql driver.
func DriverName(engine string) (string, error) {
	switch engine {
	case "postgres", "postgresql":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	}
	return "", errors.Errorf("unsupported database engine %q", engine)
}

// DSN builds the data source name for the configured engine.
func DSN(conf core.DatabaseConfig) (string, error) {
	driver, err := DriverName(conf.Engine)
	if err != nil {
		return "", err
	}
	if driver == SQLite {
		return conf.Path, nil
	}

	sslMode := "require"
	if conf.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(conf.User, conf.Password),
		Host:     conf.Address(),
		Path:     conf.Name,
		RawQuery: q.Encode(),
	}
	return u.String(), nil
}

// Open connects to the configured database and waits for it to answer.
func Open(ctx context.Context, conf core.DatabaseConfig) (*sqlx.DB, error) {
	driver, err := DriverName(conf.Engine)
	if err != nil {
		return nil, err
	}
	dsn, err := DSN(conf)
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if conf.MaxOpenConns > 0 {
		db.SetMaxOpenConns(conf.MaxOpenConns)
	}
	if conf.MaxIdleConns > 0 {
		db.SetMaxIdleConns(conf.MaxIdleConns)
	}
	if err := ping(ctx, db, conf.ConnectWaitup); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt,
// for at most waitup.
func ping(ctx context.Context, db *sqlx.DB, waitup time.Duration) error {
	deadline := time.Now().Add(waitup)
	var err error
	for attempts := 1; ; attempts++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		pause := time.Duration(attempts) * 100 * time.Millisecond
		if time.Now().Add(pause).After(deadline) {
			break
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "DB ping")
		case <-time.After(pause):
		}
	}
	return errors.Wrap(err, "DB ping timeout")
}
