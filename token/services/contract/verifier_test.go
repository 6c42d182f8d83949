/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package contract_test

import (
	"testing"

	"github.com/anixon604/bootcamp-cordapp/token/services/contract"
	"github.com/anixon604/bootcamp-cordapp/token/token"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alice  token.Identity = "O=Alice,L=London,C=GB"
	bob    token.Identity = "O=Bob,L=New York,C=US"
	notary token.Identity = "O=Notary,L=Paris,C=FR"
)

const dummyStateType token.StateType = "DummyState"

type dummyState struct{}

func (d *dummyState) StateType() token.StateType     { return dummyStateType }
func (d *dummyState) Participants() []token.Identity { return nil }
func (d *dummyState) Bytes() []byte                  { return nil }
func (d *dummyState) SetFromBytes(raw []byte) error  { return nil }

type dummyCommand struct{}

func (d *dummyCommand) CommandType() token.CommandType { return "Dummy" }
func (d *dummyCommand) Bytes() []byte                  { return nil }
func (d *dummyCommand) SetFromBytes(raw []byte) error  { return nil }

func tokenOutput(amount int64) token.Output {
	return token.Output{Contract: contract.TokenContractID, State: token.NewTokenState(alice, bob, amount)}
}

func issue(signers ...token.Identity) token.Command {
	return token.Command{Value: &token.Issue{}, Signers: signers}
}

func TestVerify(t *testing.T) {
	testCases := []struct {
		name   string
		tx     *token.Transaction
		reason contract.Reason
		which  token.Identity
	}{
		{
			name: "valid issuance",
			tx: &token.Transaction{
				Notary:   notary,
				Outputs:  []token.Output{tokenOutput(1)},
				Commands: []token.Command{issue(alice, bob)},
			},
		},
		{
			name: "no command",
			tx: &token.Transaction{
				Notary:  notary,
				Outputs: []token.Output{tokenOutput(1)},
			},
			reason: contract.MultipleOrMissingCommands,
		},
		{
			name: "two commands",
			tx: &token.Transaction{
				Notary:   notary,
				Outputs:  []token.Output{tokenOutput(1)},
				Commands: []token.Command{issue(alice, bob), issue(alice, bob)},
			},
			reason: contract.MultipleOrMissingCommands,
		},
		{
			name: "unrecognized command",
			tx: &token.Transaction{
				Notary:   notary,
				Outputs:  []token.Output{tokenOutput(1)},
				Commands: []token.Command{{Value: &dummyCommand{}, Signers: token.Identities{alice, bob}}},
			},
			reason: contract.UnrecognizedCommand,
		},
		{
			name: "inputs",
			tx: &token.Transaction{
				Notary:   notary,
				Inputs:   []token.StateRef{{TxID: "abcd", Index: 0}},
				Outputs:  []token.Output{tokenOutput(1)},
				Commands: []token.Command{issue(alice, bob)},
			},
			reason: contract.UnexpectedInputs,
		},
		{
			name: "no output",
			tx: &token.Transaction{
				Notary:   notary,
				Commands: []token.Command{issue(alice, bob)},
			},
			reason: contract.WrongOutputCount,
		},
		{
			name: "two outputs",
			tx: &token.Transaction{
				Notary:   notary,
				Outputs:  []token.Output{tokenOutput(1), tokenOutput(1)},
				Commands: []token.Command{issue(alice, bob)},
			},
			reason: contract.WrongOutputCount,
		},
		{
			name: "wrong output type",
			tx: &token.Transaction{
				Notary:   notary,
				Outputs:  []token.Output{{Contract: contract.TokenContractID, State: &dummyState{}}},
				Commands: []token.Command{issue(alice, bob)},
			},
			reason: contract.WrongOutputType,
		},
		{
			name: "issuer not signing",
			tx: &token.Transaction{
				Notary:   notary,
				Outputs:  []token.Output{tokenOutput(1)},
				Commands: []token.Command{issue(bob)},
			},
			reason: contract.MissingRequiredSigner,
			which:  alice,
		},
		{
			name: "owner not signing",
			tx: &token.Transaction{
				Notary:   notary,
				Outputs:  []token.Output{tokenOutput(1)},
				Commands: []token.Command{issue(alice)},
			},
			reason: contract.MissingRequiredSigner,
			which:  bob,
		},
		{
			name: "nobody signing, issuer reported first",
			tx: &token.Transaction{
				Notary:   notary,
				Outputs:  []token.Output{tokenOutput(1)},
				Commands: []token.Command{issue()},
			},
			reason: contract.MissingRequiredSigner,
			which:  alice,
		},
		{
			name: "extra signer is fine",
			tx: &token.Transaction{
				Notary:   notary,
				Outputs:  []token.Output{tokenOutput(1)},
				Commands: []token.Command{issue(alice, bob, notary)},
			},
		},
		{
			name: "zero amount",
			tx: &token.Transaction{
				Notary:   notary,
				Outputs:  []token.Output{tokenOutput(0)},
				Commands: []token.Command{issue(alice, bob)},
			},
			reason: contract.NonPositiveAmount,
		},
		{
			name: "negative amount",
			tx: &token.Transaction{
				Notary:   notary,
				Outputs:  []token.Output{tokenOutput(-1)},
				Commands: []token.Command{issue(alice, bob)},
			},
			reason: contract.NonPositiveAmount,
		},
		{
			name: "inputs reported before amount",
			tx: &token.Transaction{
				Notary:   notary,
				Inputs:   []token.StateRef{{TxID: "abcd", Index: 0}},
				Outputs:  []token.Output{tokenOutput(0)},
				Commands: []token.Command{issue(alice)},
			},
			reason: contract.UnexpectedInputs,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := contract.Verify(tc.tx)
			if len(tc.reason) == 0 {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.ErrorIs(t, err, contract.ErrContractViolation)
			var v *contract.ViolationError
			require.True(t, errors.As(err, &v))
			assert.Equal(t, tc.reason, v.Reason)
			assert.Equal(t, tc.which, v.Which)

			// verification is deterministic
			assert.Equal(t, err.Error(), contract.Verify(tc.tx).Error())
		})
	}
}

func TestRegistry(t *testing.T) {
	r := contract.NewRegistry()
	tx := &token.Transaction{
		Notary:   notary,
		Outputs:  []token.Output{tokenOutput(1)},
		Commands: []token.Command{issue(alice, bob)},
	}
	reason, ok := contract.ReasonOf(r.Verify(tx))
	require.True(t, ok)
	assert.Equal(t, contract.UnrecognizedCommand, reason)

	r.Register(token.IssueCommandType, &contract.IssueVerifier{})
	require.NoError(t, r.Verify(tx))

	r.Register("Dummy", contract.CommandVerifierFunc(func(tx *token.Transaction, cmd token.Command) error {
		return nil
	}))
	tx.Commands = []token.Command{{Value: &dummyCommand{}}}
	require.NoError(t, r.Verify(tx))

	_, ok = contract.ReasonOf(errors.New("boom"))
	assert.False(t, ok)
}
