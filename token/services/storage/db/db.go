/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package db

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"runtime/debug"
	"strings"

	"github.com/anixon604/bootcamp-cordapp/token/services/logging"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

var logger = logging.MustGetLogger("token-sdk.storage.db")

type Driver string

const (
	SQLite   Driver = "sqlite"
	Postgres Driver = "postgres"

	defaultMaxOpenConns = 10
	sqlitePragmas       = "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
)

var prefixRegexp = regexp.MustCompile("^[a-zA-Z_]+$")

var ErrIllegalPrefix = errors.New("illegal character in table prefix, only letters and underscores allowed")

// Opts selects and tunes the backing database
type Opts struct {
	Driver       Driver
	DataSource   string
	TablePrefix  string
	MaxOpenConns int
	// SkipPragmas leaves the sqlite data source untouched
	SkipPragmas bool
}

// DB bundles the handles used for reads and for writes.
// With sqlite all writes go through a single connection.
type DB struct {
	ReadDB  *sql.DB
	WriteDB *sql.DB
	Driver  Driver

	prefix string
}

// Open connects to the database described by opts
func Open(opts Opts) (*DB, error) {
	if err := ValidatePrefix(opts.TablePrefix); err != nil {
		return nil, err
	}
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = defaultMaxOpenConns
	}
	// the data source can contain a password
	logger.Infof("connecting to [%s] database", opts.Driver)

	switch opts.Driver {
	case SQLite:
		dataSource := opts.DataSource
		if !opts.SkipPragmas {
			dataSource = withPragmas(dataSource)
		}
		readDB, err := openSQL("sqlite", dataSource, opts.MaxOpenConns)
		if err != nil {
			return nil, err
		}
		writeDB, err := openSQL("sqlite", dataSource, 1)
		if err != nil {
			_ = readDB.Close()
			return nil, err
		}
		return New(SQLite, readDB, writeDB, opts.TablePrefix), nil
	case Postgres:
		p, err := openSQL("pgx", opts.DataSource, opts.MaxOpenConns)
		if err != nil {
			return nil, err
		}
		return New(Postgres, p, p, opts.TablePrefix), nil
	default:
		return nil, errors.Errorf("driver [%s] not supported", opts.Driver)
	}
}

// New wraps already opened handles, the prefix is assumed valid
func New(driver Driver, readDB, writeDB *sql.DB, prefix string) *DB {
	return &DB{ReadDB: readDB, WriteDB: writeDB, Driver: driver, prefix: prefix}
}

func openSQL(driverName, dataSource string, maxOpenConns int) (*sql.DB, error) {
	p, err := sql.Open(driverName, dataSource)
	if err != nil {
		return nil, errors.Wrapf(err, "can't open %s database", driverName)
	}
	p.SetMaxOpenConns(maxOpenConns)
	if err := p.Ping(); err != nil {
		_ = p.Close()
		return nil, errors.Wrapf(err, "can't ping %s database", driverName)
	}
	return p, nil
}

func withPragmas(dataSource string) string {
	if strings.Contains(dataSource, "_pragma=") {
		return dataSource
	}
	if !strings.HasPrefix(dataSource, "file:") {
		dataSource = "file:" + dataSource
	}
	if strings.Contains(dataSource, "?") {
		return dataSource + "&" + sqlitePragmas
	}
	return dataSource + "?" + sqlitePragmas
}

// ValidatePrefix accepts the empty prefix or letters and underscores
func ValidatePrefix(prefix string) error {
	if prefix == "" || prefixRegexp.MatchString(prefix) {
		return nil
	}
	return errors.Wrapf(ErrIllegalPrefix, "[%s]", prefix)
}

// TableName returns name qualified with the configured prefix
func (d *DB) TableName(name string) string {
	if d.prefix == "" {
		return name
	}
	return fmt.Sprintf("%s_%s", d.prefix, name)
}

// InitSchema runs the passed statements in one transaction
func (d *DB) InitSchema(schemas ...string) error {
	logger.Info("creating tables")
	return d.AtomicWrite(context.Background(), func(tx *sql.Tx) error {
		for _, schema := range schemas {
			logger.Debug(schema)
			if _, err := tx.Exec(schema); err != nil {
				return errors.Wrap(err, "error creating schema")
			}
		}
		return nil
	})
}

// AtomicWrite runs f inside a write transaction, committing only if f succeeds
func (d *DB) AtomicWrite(ctx context.Context, f func(tx *sql.Tx) error) (err error) {
	tx, err := d.WriteDB.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed starting a db transaction")
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logger.Errorf("failed to rollback [%s][%s]", rbErr, debug.Stack())
		}
	}()
	if err = f(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "failed committing db transaction")
	}
	return nil
}

func (d *DB) Close() error {
	if d.ReadDB == d.WriteDB {
		return d.ReadDB.Close()
	}
	rErr := d.ReadDB.Close()
	wErr := d.WriteDB.Close()
	if rErr != nil {
		return rErr
	}
	return wErr
}
