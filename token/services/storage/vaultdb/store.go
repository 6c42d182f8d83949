/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vaultdb

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/anixon604/bootcamp-cordapp/token/services/logging"
	"github.com/anixon604/bootcamp-cordapp/token/services/storage"
	"github.com/anixon604/bootcamp-cordapp/token/services/storage/db"
	"github.com/anixon604/bootcamp-cordapp/token/services/utils/cache"
	"github.com/anixon604/bootcamp-cordapp/token/token"
	"github.com/pkg/errors"
	"github.com/thedevsaddam/gojsonq"
	"go.uber.org/zap/zapcore"
)

var logger = logging.MustGetLogger("token-sdk.storage.vaultdb")

// ErrTxNotFound is returned when the vault has no record of a transaction
var ErrTxNotFound = errors.New("transaction not found")

type tableNames struct {
	Transactions string
	States       string
}

// Store is the vault of a node: the notarised transactions the node took part in and the states they created.
type Store struct {
	db    *db.DB
	table tableNames
	txs   cache.Cache[string, *token.FinalTransaction]
}

// New returns a vault backed by d. A nil txCache disables caching.
func New(d *db.DB, txCache cache.Cache[string, *token.FinalTransaction], createSchema bool) (*Store, error) {
	if txCache == nil {
		txCache = cache.NewNoCache[string, *token.FinalTransaction]()
	}
	s := &Store{
		db: d,
		table: tableNames{
			Transactions: d.TableName("vault_transactions"),
			States:       d.TableName("vault_states"),
		},
		txs: txCache,
	}
	if createSchema {
		if err := d.InitSchema(s.GetSchema()...); err != nil {
			return nil, errors.WithMessage(err, "failed creating vault schema")
		}
	}
	return s, nil
}

func (s *Store) GetSchema() []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			tx_id TEXT NOT NULL PRIMARY KEY,
			notary_order BIGINT NOT NULL,
			notary TEXT NOT NULL,
			payload TEXT NOT NULL
		)`, s.table.Transactions),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			tx_id TEXT NOT NULL,
			idx INT NOT NULL,
			contract TEXT NOT NULL,
			state_type TEXT NOT NULL,
			owner TEXT NOT NULL DEFAULT '',
			data TEXT NOT NULL,
			content TEXT NOT NULL,
			consumed_by TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (tx_id, idx)
		)`, s.table.States),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_owner ON %s (owner, consumed_by)", s.table.States, s.table.States),
	}
}

// Append records a notarised transaction, its output states, and marks its inputs consumed.
// Either everything is recorded or nothing is. Appending an already recorded transaction is a no-op.
func (s *Store) Append(ctx context.Context, ft *token.FinalTransaction) error {
	if ft == nil || ft.Transaction == nil || ft.Transaction.Tx == nil || ft.Certificate == nil {
		return errors.New("cannot append an incomplete transaction")
	}
	txID := ft.ID()
	payload, err := json.Marshal(ft)
	if err != nil {
		return errors.Wrapf(err, "failed marshalling transaction [%s]", txID)
	}
	tx := ft.Transaction.Tx

	err = s.db.AtomicWrite(ctx, func(dbTx *sql.Tx) error {
		query := db.NewInsertInto(s.table.Transactions).
			Columns("tx_id", "notary_order", "notary", "payload").
			OnConflictDoNothing().
			Compile()
		logger.Debug(query)
		res, err := dbTx.ExecContext(ctx, query, txID, int64(ft.Certificate.Order), string(tx.Notary), string(payload))
		if err != nil {
			return errors.Wrapf(err, "failed inserting transaction [%s]", txID)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			logger.Debugf("transaction [%s] already in the vault", txID)
			return nil
		}

		query = db.NewInsertInto(s.table.States).
			Columns("tx_id", "idx", "contract", "state_type", "owner", "data", "content").
			Compile()
		for i, output := range tx.Outputs {
			content, err := json.Marshal(output.State)
			if err != nil {
				return errors.Wrapf(err, "failed marshalling output [%d] of [%s]", i, txID)
			}
			if _, err := dbTx.ExecContext(ctx, query,
				txID, i, output.Contract, string(output.State.StateType()), string(ownerOf(output.State)),
				hex.EncodeToString(output.State.Bytes()), string(content),
			); err != nil {
				return errors.Wrapf(err, "failed inserting output [%d] of [%s]", i, txID)
			}
		}

		query = fmt.Sprintf("UPDATE %s SET consumed_by = $1 WHERE tx_id = $2 AND idx = $3", s.table.States)
		for _, input := range tx.Inputs {
			if _, err := dbTx.ExecContext(ctx, query, txID, input.TxID, int64(input.Index)); err != nil {
				return errors.Wrapf(err, "failed consuming input %s", input)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.txs.Add(txID, ft)
	if logger.IsEnabledFor(zapcore.DebugLevel) {
		logger.Debugf("appended transaction [%s] with [%d] outputs", txID, len(tx.Outputs))
	}
	return nil
}

// FindUnconsumedStates returns the unconsumed states, optionally only those owned by owner
func (s *Store) FindUnconsumedStates(ctx context.Context, owner *token.Identity) ([]*token.StateAndRef, error) {
	q := db.NewSelect("s.tx_id", "s.idx", "s.state_type", "s.data").
		From(fmt.Sprintf("%s s JOIN %s t ON s.tx_id = t.tx_id", s.table.States, s.table.Transactions)).
		Where("s.consumed_by = ''").
		OrderBy("t.notary_order, s.idx")
	var args []interface{}
	if owner != nil {
		q.Where("s.owner = $1")
		args = append(args, string(*owner))
	}
	query := q.Compile()
	logger.Debug(query)

	rows, err := s.db.ReadDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed querying unconsumed states")
	}
	defer func() { _ = rows.Close() }()

	var res []*token.StateAndRef
	for rows.Next() {
		var (
			txID, stateType, data string
			idx                   int64
		)
		if err := rows.Scan(&txID, &idx, &stateType, &data); err != nil {
			return nil, errors.Wrap(err, "failed scanning state")
		}
		sr, err := decodeState(txID, idx, stateType, data)
		if err != nil {
			return nil, err
		}
		res = append(res, sr)
	}
	return res, rows.Err()
}

// QueryStates returns the unconsumed states whose JSON content has value at key, e.g. ("amount", "99")
func (s *Store) QueryStates(ctx context.Context, key, value string) ([]*token.StateAndRef, error) {
	query := db.NewSelect("s.tx_id", "s.idx", "s.state_type", "s.data", "s.content").
		From(fmt.Sprintf("%s s JOIN %s t ON s.tx_id = t.tx_id", s.table.States, s.table.Transactions)).
		Where("s.consumed_by = ''").
		OrderBy("t.notary_order, s.idx").
		Compile()
	rows, err := s.db.ReadDB.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed querying states")
	}
	defer func() { _ = rows.Close() }()

	var res []*token.StateAndRef
	for rows.Next() {
		var (
			txID, stateType, data, content string
			idx                            int64
		)
		if err := rows.Scan(&txID, &idx, &stateType, &data, &content); err != nil {
			return nil, errors.Wrap(err, "failed scanning state")
		}
		if !matches(content, key, value) {
			continue
		}
		sr, err := decodeState(txID, idx, stateType, data)
		if err != nil {
			return nil, err
		}
		res = append(res, sr)
	}
	return res, rows.Err()
}

func matches(content, key, value string) bool {
	found := gojsonq.New().FromString(content).Find(key)
	if found == nil {
		return false
	}
	if v, ok := found.(string); ok {
		return v == value
	}
	return fmt.Sprint(found) == value
}

// GetTransaction returns a recorded transaction, ErrTxNotFound if there is none
func (s *Store) GetTransaction(ctx context.Context, txID string) (*token.FinalTransaction, error) {
	ft, _, err := s.txs.GetOrLoad(txID, func() (*token.FinalTransaction, error) {
		return s.loadTransaction(ctx, txID)
	})
	return ft, err
}

func (s *Store) loadTransaction(ctx context.Context, txID string) (*token.FinalTransaction, error) {
	query := db.NewSelect("payload").From(s.table.Transactions).Where("tx_id = $1").Compile()
	logger.Debug(query)
	var payload string
	err := s.db.ReadDB.QueryRowContext(ctx, query, txID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrTxNotFound, "[%s]", txID)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed loading transaction [%s]", txID)
	}
	return unmarshalTransaction(payload)
}

// Status returns Confirmed if the transaction is recorded, Unknown otherwise
func (s *Store) Status(ctx context.Context, txID string) (storage.TxStatus, error) {
	if _, found := s.txs.Get(txID); found {
		return storage.Confirmed, nil
	}
	query := db.NewSelect("notary_order").From(s.table.Transactions).Where("tx_id = $1").Compile()
	var order int64
	err := s.db.ReadDB.QueryRowContext(ctx, query, txID).Scan(&order)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Unknown, nil
	}
	if err != nil {
		return storage.Unknown, errors.Wrapf(err, "failed getting status of [%s]", txID)
	}
	return storage.Confirmed, nil
}

// ListTransactions returns all the recorded transactions in notary order
func (s *Store) ListTransactions(ctx context.Context) ([]*token.FinalTransaction, error) {
	query := db.NewSelect("payload").From(s.table.Transactions).OrderBy("notary_order").Compile()
	rows, err := s.db.ReadDB.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed listing transactions")
	}
	defer func() { _ = rows.Close() }()

	var res []*token.FinalTransaction
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, errors.Wrap(err, "failed scanning transaction")
		}
		ft, err := unmarshalTransaction(payload)
		if err != nil {
			return nil, err
		}
		res = append(res, ft)
	}
	return res, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}

func unmarshalTransaction(payload string) (*token.FinalTransaction, error) {
	ft := &token.FinalTransaction{}
	if err := json.Unmarshal([]byte(payload), ft); err != nil {
		return nil, errors.Wrap(err, "failed unmarshalling transaction")
	}
	return ft, nil
}

func decodeState(txID string, idx int64, stateType, data string) (*token.StateAndRef, error) {
	raw, err := hex.DecodeString(data)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid state data at [%s:%d]", txID, idx)
	}
	state, err := token.NewStateFromBytes(token.StateType(stateType), raw)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed decoding state at [%s:%d]", txID, idx)
	}
	return &token.StateAndRef{State: state, Ref: token.StateRef{TxID: txID, Index: uint32(idx)}}, nil
}

func ownerOf(state token.State) token.Identity {
	if ts, ok := state.(*token.TokenState); ok {
		return ts.Owner
	}
	return ""
}
