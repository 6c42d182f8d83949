/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package contract

import (
	"sync"

	"github.com/anixon604/bootcamp-cordapp/token/services/logging"
	"github.com/anixon604/bootcamp-cordapp/token/token"
	"go.uber.org/zap/zapcore"
)

// TokenContractID identifies the contract governing token states
const TokenContractID = "bootcamp.contracts.TokenContract"

var logger = logging.MustGetLogger("token-sdk.contract")

// CommandVerifier checks a transaction carrying a command of a given type.
// Implementations must be pure: no I/O, no clock, no ledger history.
type CommandVerifier interface {
	Verify(tx *token.Transaction, cmd token.Command) error
}

// CommandVerifierFunc adapts a function to CommandVerifier
type CommandVerifierFunc func(tx *token.Transaction, cmd token.Command) error

func (f CommandVerifierFunc) Verify(tx *token.Transaction, cmd token.Command) error {
	return f(tx, cmd)
}

// Registry maps command types to their verification rules
type Registry struct {
	lock      sync.RWMutex
	verifiers map[token.CommandType]CommandVerifier
}

func NewRegistry() *Registry {
	return &Registry{verifiers: map[token.CommandType]CommandVerifier{}}
}

// DefaultRegistry returns a registry that knows the Issue command
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(token.IssueCommandType, &IssueVerifier{})
	return r
}

func (r *Registry) Register(t token.CommandType, v CommandVerifier) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.verifiers[t] = v
}

func (r *Registry) lookup(t token.CommandType) (CommandVerifier, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	v, ok := r.verifiers[t]
	return v, ok
}

// Verify checks the transaction against the rules of its command.
// It returns nil if the transaction is valid, a *ViolationError describing the first failing check otherwise.
func (r *Registry) Verify(tx *token.Transaction) error {
	if tx == nil {
		return violation(MultipleOrMissingCommands, "nil transaction")
	}
	if len(tx.Commands) != 1 {
		return violation(MultipleOrMissingCommands, "expected exactly one command, got [%d]", len(tx.Commands))
	}
	cmd := tx.Commands[0]
	if cmd.Value == nil {
		return violation(UnrecognizedCommand, "command has no value")
	}
	v, ok := r.lookup(cmd.Value.CommandType())
	if !ok {
		return violation(UnrecognizedCommand, "unknown command [%s]", cmd.Value.CommandType())
	}
	if err := v.Verify(tx, cmd); err != nil {
		if logger.IsEnabledFor(zapcore.DebugLevel) {
			logger.Debugf("transaction [%s] rejected: %s", logging.Prefix(tx.ID()), err)
		}
		return err
	}
	return nil
}

var defaultRegistry = DefaultRegistry()

// Verify checks the transaction with the default registry
func Verify(tx *token.Transaction) error {
	return defaultRegistry.Verify(tx)
}

// IssueVerifier holds the rules for issuing a token
type IssueVerifier struct{}

func (v *IssueVerifier) Verify(tx *token.Transaction, cmd token.Command) error {
	if len(tx.Inputs) != 0 {
		return violation(UnexpectedInputs, "issuance must have no inputs, got [%d]", len(tx.Inputs))
	}
	if len(tx.Outputs) != 1 {
		return violation(WrongOutputCount, "issuance must have exactly one output, got [%d]", len(tx.Outputs))
	}
	output, ok := tx.Outputs[0].State.(*token.TokenState)
	if !ok || output == nil {
		typ := token.StateType("<nil>")
		if tx.Outputs[0].State != nil {
			typ = tx.Outputs[0].State.StateType()
		}
		return violation(WrongOutputType, "output must be a token state, got [%s]", typ)
	}
	for _, id := range []token.Identity{output.Issuer, output.Owner} {
		if !cmd.Signers.Contains(id) {
			v := violation(MissingRequiredSigner, "[%s] must sign the issuance", id)
			v.Which = id
			return v
		}
	}
	if output.Amount <= 0 {
		return violation(NonPositiveAmount, "amount must be positive, got [%d]", output.Amount)
	}
	return nil
}
