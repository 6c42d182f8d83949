/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package notarydb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/anixon604/bootcamp-cordapp/token/services/logging"
	"github.com/anixon604/bootcamp-cordapp/token/services/storage/db"
	"github.com/anixon604/bootcamp-cordapp/token/token"
	"github.com/pkg/errors"
)

var logger = logging.MustGetLogger("token-sdk.storage.notarydb")

// ConflictError reports an input already consumed by another transaction
type ConflictError struct {
	Input      token.StateRef
	ConsumedBy string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("input %s already consumed by [%s]", e.Input, e.ConsumedBy)
}

// CertificateFunc produces the certificate of a transaction once its position in the order is known
type CertificateFunc func(order uint64) (*token.Certificate, error)

// Store keeps the uniqueness state of a notary: the consumed inputs and the issued certificates.
type Store struct {
	db           *db.DB
	certificates string
	consumed     string
}

func New(d *db.DB, createSchema bool) (*Store, error) {
	s := &Store{
		db:           d,
		certificates: d.TableName("notary_certificates"),
		consumed:     d.TableName("notary_consumed"),
	}
	if createSchema {
		if err := d.InitSchema(s.GetSchema()...); err != nil {
			return nil, errors.WithMessage(err, "failed creating notary schema")
		}
	}
	return s, nil
}

func (s *Store) GetSchema() []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			tx_id TEXT NOT NULL PRIMARY KEY,
			notary_order BIGINT NOT NULL UNIQUE,
			certificate TEXT NOT NULL
		)`, s.certificates),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			tx_id TEXT NOT NULL,
			idx INT NOT NULL,
			consumed_by TEXT NOT NULL,
			PRIMARY KEY (tx_id, idx)
		)`, s.consumed),
	}
}

// Certificate returns the certificate issued for txID, nil if there is none
func (s *Store) Certificate(ctx context.Context, txID string) (*token.Certificate, error) {
	return s.queryCertificate(ctx, s.db.ReadDB, txID)
}

// Commit atomically marks inputs consumed by txID and records its certificate under the next order number.
// If txID was already certified its certificate is returned and nothing changes.
// If an input is consumed by another transaction a *ConflictError is returned and nothing changes.
func (s *Store) Commit(ctx context.Context, txID string, inputs []token.StateRef, newCertificate CertificateFunc) (*token.Certificate, error) {
	var cert *token.Certificate
	err := s.db.AtomicWrite(ctx, func(tx *sql.Tx) error {
		existing, err := s.queryCertificate(ctx, tx, txID)
		if err != nil {
			return err
		}
		if existing != nil {
			logger.Debugf("transaction [%s] already certified at [%d]", txID, existing.Order)
			cert = existing
			return nil
		}

		query := db.NewSelect("consumed_by").From(s.consumed).Where("tx_id = $1").Where("idx = $2").Compile()
		for _, input := range inputs {
			var consumedBy string
			err := tx.QueryRowContext(ctx, query, input.TxID, int64(input.Index)).Scan(&consumedBy)
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			if err != nil {
				return errors.Wrapf(err, "failed checking input %s", input)
			}
			if consumedBy != txID {
				return &ConflictError{Input: input, ConsumedBy: consumedBy}
			}
		}

		var last int64
		query = fmt.Sprintf("SELECT COALESCE(MAX(notary_order), 0) FROM %s", s.certificates)
		if err := tx.QueryRowContext(ctx, query).Scan(&last); err != nil {
			return errors.Wrap(err, "failed reading last order")
		}
		cert, err = newCertificate(uint64(last) + 1)
		if err != nil {
			return errors.WithMessagef(err, "failed creating certificate for [%s]", txID)
		}
		raw, err := json.Marshal(cert)
		if err != nil {
			return errors.Wrap(err, "failed marshalling certificate")
		}

		query = db.NewInsertInto(s.consumed).Columns("tx_id", "idx", "consumed_by").Compile()
		for _, input := range inputs {
			if _, err := tx.ExecContext(ctx, query, input.TxID, int64(input.Index), txID); err != nil {
				return errors.Wrapf(err, "failed consuming input %s", input)
			}
		}
		query = db.NewInsertInto(s.certificates).Columns("tx_id", "notary_order", "certificate").Compile()
		if _, err := tx.ExecContext(ctx, query, txID, int64(cert.Order), string(raw)); err != nil {
			return errors.Wrapf(err, "failed storing certificate for [%s]", txID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cert, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) queryCertificate(ctx context.Context, q queryRower, txID string) (*token.Certificate, error) {
	query := db.NewSelect("certificate").From(s.certificates).Where("tx_id = $1").Compile()
	var raw string
	err := q.QueryRowContext(ctx, query, txID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed loading certificate of [%s]", txID)
	}
	cert := &token.Certificate{}
	if err := json.Unmarshal([]byte(raw), cert); err != nil {
		return nil, errors.Wrapf(err, "failed unmarshalling certificate of [%s]", txID)
	}
	return cert, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
