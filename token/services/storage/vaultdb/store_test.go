/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vaultdb

import (
	"context"
	"path"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/anixon604/bootcamp-cordapp/token/services/storage"
	"github.com/anixon604/bootcamp-cordapp/token/services/storage/db"
	"github.com/anixon604/bootcamp-cordapp/token/services/utils/cache"
	"github.com/anixon604/bootcamp-cordapp/token/token"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alice  token.Identity = "O=Alice,L=London,C=GB"
	bob    token.Identity = "O=Bob,L=New York,C=US"
	carol  token.Identity = "O=Carol,L=Madrid,C=ES"
	notary token.Identity = "O=Notary,L=Paris,C=FR"

	contractID = "bootcamp.contracts.TokenContract"
)

func finalTx(t *testing.T, order uint64, owner token.Identity, amount int64, inputs ...token.StateRef) *token.FinalTransaction {
	b := token.NewTransactionBuilder(notary).
		AddOutputState(token.NewTokenState(alice, owner, amount), contractID).
		AddCommand(&token.Issue{}, alice, owner)
	for _, in := range inputs {
		b.AddInputState(in)
	}
	tx, err := b.Build()
	require.NoError(t, err)
	stx := token.NewSignedTransaction(tx)
	stx.AddSignature(token.Signature{Signer: alice, Sigma: []byte("a")})
	stx.AddSignature(token.Signature{Signer: owner, Sigma: []byte("b")})
	return &token.FinalTransaction{
		Transaction: stx,
		Certificate: &token.Certificate{
			TxID:      tx.ID(),
			Order:     order,
			Timestamp: time.Now().UTC(),
			Notary:    notary,
			Signature: []byte("n"),
		},
	}
}

func newSQLiteStore(t *testing.T) *Store {
	d, err := db.Open(db.Opts{
		Driver:      db.SQLite,
		DataSource:  path.Join(t.TempDir(), "vault.sqlite"),
		TablePrefix: "alice",
	})
	require.NoError(t, err)
	c, err := cache.New[string, *token.FinalTransaction]("vault", 0, nil)
	require.NoError(t, err)
	s, err := New(d, c, true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestVault(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	ft1 := finalTx(t, 1, bob, 99)
	ft2 := finalTx(t, 2, carol, 5)
	require.NoError(t, s.Append(ctx, ft2))
	require.NoError(t, s.Append(ctx, ft1))

	all, err := s.FindUnconsumedStates(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, ft1.ID(), all[0].Ref.TxID)
	assert.Equal(t, ft2.ID(), all[1].Ref.TxID)

	owner := bob
	owned, err := s.FindUnconsumedStates(ctx, &owner)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, token.NewTokenState(alice, bob, 99), owned[0].State)
	assert.Equal(t, token.StateRef{TxID: ft1.ID(), Index: 0}, owned[0].Ref)

	status, err := s.Status(ctx, ft1.ID())
	require.NoError(t, err)
	assert.Equal(t, storage.Confirmed, status)
	status, err = s.Status(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, storage.Unknown, status)

	got, err := s.GetTransaction(ctx, ft2.ID())
	require.NoError(t, err)
	assert.Equal(t, ft2.ID(), got.ID())
	assert.Equal(t, uint64(2), got.Certificate.Order)
	_, err = s.GetTransaction(ctx, "missing")
	assert.ErrorIs(t, err, ErrTxNotFound)

	list, err := s.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, ft1.ID(), list[0].ID())
	assert.Equal(t, ft2.ID(), list[1].ID())

	res, err := s.QueryStates(ctx, "amount", "99")
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, ft1.ID(), res[0].Ref.TxID)
	res, err = s.QueryStates(ctx, "owner", string(carol))
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, ft2.ID(), res[0].Ref.TxID)
	res, err = s.QueryStates(ctx, "owner", "nobody")
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestAppendIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	ft := finalTx(t, 1, bob, 99)
	require.NoError(t, s.Append(ctx, ft))
	require.NoError(t, s.Append(ctx, ft))

	states, err := s.FindUnconsumedStates(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, states, 1)
	list, err := s.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestAppendConsumesInputs(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	ft1 := finalTx(t, 1, bob, 99)
	require.NoError(t, s.Append(ctx, ft1))
	ft2 := finalTx(t, 2, carol, 99, token.StateRef{TxID: ft1.ID(), Index: 0})
	require.NoError(t, s.Append(ctx, ft2))

	states, err := s.FindUnconsumedStates(ctx, nil)
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, ft2.ID(), states[0].Ref.TxID)
}

func TestQueryStatesInNotaryOrder(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	var fts []*token.FinalTransaction
	for order := uint64(1); order <= 5; order++ {
		fts = append(fts, finalTx(t, order, bob, 99))
	}
	for i := len(fts) - 1; i >= 0; i-- {
		require.NoError(t, s.Append(ctx, fts[i]))
	}

	res, err := s.QueryStates(ctx, "amount", "99")
	require.NoError(t, err)
	require.Len(t, res, len(fts))
	for i, ft := range fts {
		assert.Equal(t, ft.ID(), res[i].Ref.TxID, "position %d", i)
	}
}

func TestAppendRejectsIncomplete(t *testing.T) {
	s := newSQLiteStore(t)
	assert.Error(t, s.Append(context.Background(), nil))
	ft := finalTx(t, 1, bob, 99)
	ft.Certificate = nil
	assert.Error(t, s.Append(context.Background(), ft))
}

func TestAppendRollsBackOnFailure(t *testing.T) {
	RegisterTestingT(t)
	mockDB, mock, err := sqlmock.New()
	Expect(err).ToNot(HaveOccurred())

	ft := finalTx(t, 7, bob, 99)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO vault_transactions").
		WithArgs(ft.ID(), int64(7), string(notary), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO vault_states").
		WithArgs(ft.ID(), 0, contractID, "TokenState", string(bob), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(errors.New("constraint failed"))
	mock.ExpectRollback()

	s, err := New(db.New(db.Postgres, mockDB, mockDB, ""), nil, false)
	Expect(err).ToNot(HaveOccurred())
	err = s.Append(context.Background(), ft)
	Expect(err).To(MatchError(ContainSubstring("constraint failed")))
	Expect(mock.ExpectationsWereMet()).To(Succeed())
}

func TestAppendDuplicateSkipsOutputs(t *testing.T) {
	RegisterTestingT(t)
	mockDB, mock, err := sqlmock.New()
	Expect(err).ToNot(HaveOccurred())

	ft := finalTx(t, 7, bob, 99)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO vault_transactions").
		WithArgs(ft.ID(), int64(7), string(notary), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	s, err := New(db.New(db.Postgres, mockDB, mockDB, ""), nil, false)
	Expect(err).ToNot(HaveOccurred())
	Expect(s.Append(context.Background(), ft)).To(Succeed())
	Expect(mock.ExpectationsWereMet()).To(Succeed())
}
