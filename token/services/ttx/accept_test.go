/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ttx

import (
	"context"
	"testing"
	"time"

	"github.com/anixon604/bootcamp-cordapp/token/services/contract"
	"github.com/anixon604/bootcamp-cordapp/token/services/view"
	"github.com/anixon604/bootcamp-cordapp/token/token"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type responderFixture struct {
	env       *testEnv
	node      *testNode
	initiator view.Session
	view      *IssueResponderView
	result    <-chan result
}

func startResponder(t *testing.T, opts ...Option) *responderFixture {
	e := newTestEnv(t)
	b := e.newNode(bob, nil)
	ch, err := NewLocalBidirectionalChannel(IssueProtocol, "ctx", alice, bob)
	require.NoError(t, err)
	v := NewIssueResponderView(b.services, opts...)
	return &responderFixture{
		env:       e,
		node:      b,
		initiator: ch.LeftSession(),
		view:      v,
		result:    run(&testContext{ctx: context.Background(), me: bob, session: ch.RightSession()}, v),
	}
}

// endorse proposes tx and returns the transaction signed by both parties
func (f *responderFixture) endorse(t *testing.T, tx *token.Transaction, sig token.Signature) *token.SignedTransaction {
	sendMessage(t, f.initiator, &Propose{SessionID: f.initiator.Info().ID, Transaction: tx, InitiatorSignature: sig})
	m := nextMessage(t, f.initiator)
	require.IsType(t, &Endorse{}, m)
	endorse := m.(*Endorse)
	assert.Equal(t, f.initiator.Info().ID, endorse.SessionID)

	stx := token.NewSignedTransaction(tx)
	stx.AddSignature(sig)
	stx.AddSignature(endorse.ResponderSignature)
	require.NoError(t, stx.VerifyRequiredSignatures(f.node.sigSvc))
	return stx
}

func TestResponderEndorsesAndRecords(t *testing.T) {
	f := startResponder(t)
	tx, sig := f.env.signedIssue(alice, bob, 99)
	stx := f.endorse(t, tx, sig)

	cert, err := f.env.notary.Certify(context.Background(), stx)
	require.NoError(t, err)
	sendMessage(t, f.initiator, &FinalityNotice{SessionID: f.initiator.Info().ID, CertifiedTransaction: stx, NotarySignature: cert})

	r := wait(t, f.result)
	require.NoError(t, r.err)
	ft, ok := r.res.(*token.FinalTransaction)
	require.True(t, ok)
	assert.Equal(t, tx.ID(), ft.ID())
	assert.Equal(t, ResponderFinalized, f.view.State())

	states := f.node.states(t)
	require.Len(t, states, 1)
	assert.Equal(t, token.NewTokenState(alice, bob, 99), states[0].State)
	assert.Equal(t, float64(1), f.node.provider.Value("ttx_endorsed_transactions"))
	assert.Equal(t, float64(1), f.node.provider.Value("ttx_accepted_transactions"))
}

func TestResponderRefusesZeroAmount(t *testing.T) {
	f := startResponder(t)
	tx, sig := f.env.signedIssue(alice, bob, 0)
	sendMessage(t, f.initiator, &Propose{SessionID: f.initiator.Info().ID, Transaction: tx, InitiatorSignature: sig})

	m := nextMessage(t, f.initiator)
	require.IsType(t, &Refuse{}, m)
	assert.Contains(t, m.(*Refuse).Reason, string(contract.NonPositiveAmount))

	r := wait(t, f.result)
	assert.ErrorIs(t, r.err, ErrProtocolRefusal)
	reason, ok := contract.ReasonOf(r.err)
	require.True(t, ok)
	assert.Equal(t, contract.NonPositiveAmount, reason)
	assert.Equal(t, ResponderRefused, f.view.State())
	assert.Empty(t, f.node.states(t))
	assert.Equal(t, float64(1), f.node.provider.Value("ttx_refused_transactions", "reason", "NonPositiveAmount"))
	assert.Equal(t, float64(0), f.node.provider.Value("ttx_endorsed_transactions"))
}

func TestResponderRefusals(t *testing.T) {
	refuseAll := WithCheckTransaction(func(tx *token.Transaction) error { return errors.New("not today") })

	tests := []struct {
		name    string
		opts    []Option
		propose func(f *responderFixture) *Propose
	}{
		{
			name: "wrong session",
			propose: func(f *responderFixture) *Propose {
				tx, sig := f.env.signedIssue(alice, bob, 99)
				return &Propose{SessionID: "another", Transaction: tx, InitiatorSignature: sig}
			},
		},
		{
			name: "signed by a third party",
			propose: func(f *responderFixture) *Propose {
				tx, _ := f.env.signedIssue(alice, bob, 99)
				sig, err := f.env.sigService(mallory).Sign(mallory, tx)
				require.NoError(t, err)
				return &Propose{SessionID: f.initiator.Info().ID, Transaction: tx, InitiatorSignature: sig}
			},
		},
		{
			name: "forged initiator signature",
			propose: func(f *responderFixture) *Propose {
				tx, _ := f.env.signedIssue(alice, bob, 99)
				sig, err := f.env.sigService(mallory).Sign(mallory, tx)
				require.NoError(t, err)
				sig.Signer = alice
				return &Propose{SessionID: f.initiator.Info().ID, Transaction: tx, InitiatorSignature: sig}
			},
		},
		{
			name: "responder is not a signer",
			propose: func(f *responderFixture) *Propose {
				tx, sig := f.env.signedIssue(alice, mallory, 99)
				return &Propose{SessionID: f.initiator.Info().ID, Transaction: tx, InitiatorSignature: sig}
			},
		},
		{
			name: "application check",
			opts: []Option{refuseAll},
			propose: func(f *responderFixture) *Propose {
				tx, sig := f.env.signedIssue(alice, bob, 99)
				return &Propose{SessionID: f.initiator.Info().ID, Transaction: tx, InitiatorSignature: sig}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := startResponder(t, tt.opts...)
			sendMessage(t, f.initiator, tt.propose(f))

			m := nextMessage(t, f.initiator)
			require.IsType(t, &Refuse{}, m)
			assert.NotEmpty(t, m.(*Refuse).Reason)

			r := wait(t, f.result)
			assert.ErrorIs(t, r.err, ErrProtocolRefusal)
			assert.Equal(t, ResponderRefused, f.view.State())
			assert.Empty(t, f.node.states(t))
			assert.Equal(t, float64(1), f.node.provider.Value("ttx_refused_transactions", "reason", "other"))
		})
	}
}

func TestResponderRejectsSubstitutedNotice(t *testing.T) {
	f := startResponder(t)
	tx, sig := f.env.signedIssue(alice, bob, 99)
	f.endorse(t, tx, sig)

	// a different, properly notarised transaction
	other, otherSig := f.env.signedIssue(alice, bob, 1000)
	stx := token.NewSignedTransaction(other)
	stx.AddSignature(otherSig)
	bobSig, err := f.env.sigService(bob).Sign(bob, other)
	require.NoError(t, err)
	stx.AddSignature(bobSig)
	cert, err := f.env.notary.Certify(context.Background(), stx)
	require.NoError(t, err)
	sendMessage(t, f.initiator, &FinalityNotice{SessionID: f.initiator.Info().ID, CertifiedTransaction: stx, NotarySignature: cert})

	r := wait(t, f.result)
	assert.ErrorIs(t, r.err, ErrTransactionMismatch)
	assert.ErrorIs(t, r.err, ErrProtocolRefusal)
	assert.Equal(t, ResponderAborted, f.view.State())
	assert.Empty(t, f.node.states(t))
}

func TestResponderRejectsForgedCertificate(t *testing.T) {
	f := startResponder(t)
	tx, sig := f.env.signedIssue(alice, bob, 99)
	stx := f.endorse(t, tx, sig)

	cert, err := f.env.notary.Certify(context.Background(), stx)
	require.NoError(t, err)
	forged := *cert
	forged.Order = cert.Order + 10
	sendMessage(t, f.initiator, &FinalityNotice{SessionID: f.initiator.Info().ID, CertifiedTransaction: stx, NotarySignature: &forged})

	r := wait(t, f.result)
	assert.ErrorIs(t, r.err, ErrConsensusRejected)
	assert.ErrorIs(t, r.err, token.ErrInvalidCertificate)
	assert.Empty(t, f.node.states(t))
}

func TestResponderTimesOut(t *testing.T) {
	f := startResponder(t, WithSessionTimeout(50*time.Millisecond))

	r := wait(t, f.result)
	assert.ErrorIs(t, r.err, ErrTimeout)
	assert.ErrorIs(t, r.err, ErrChannelFailure)
	assert.Equal(t, ResponderAborted, f.view.State())
}

func TestResponderStopsWhenInitiatorAborts(t *testing.T) {
	f := startResponder(t, WithFinalityTimeout(time.Hour))
	tx, sig := f.env.signedIssue(alice, bob, 99)
	f.endorse(t, tx, sig)
	require.NoError(t, f.initiator.SendError([]byte("notary unreachable")))

	r := wait(t, f.result)
	assert.ErrorIs(t, r.err, ErrChannelFailure)
	assert.NotErrorIs(t, r.err, ErrTimeout)
	assert.Equal(t, ResponderAborted, f.view.State())
	assert.Empty(t, f.node.states(t))
}

func TestResponderRejectsUnexpectedMessage(t *testing.T) {
	f := startResponder(t)
	sendMessage(t, f.initiator, &Endorse{SessionID: f.initiator.Info().ID})

	r := wait(t, f.result)
	assert.ErrorIs(t, r.err, ErrChannelFailure)
	assert.Equal(t, ResponderAborted, f.view.State())
}
