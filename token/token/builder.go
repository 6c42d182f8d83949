/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package token

import (
	"github.com/hashicorp/go-uuid"
	"github.com/pkg/errors"
)

// SaltSize is the number of random bytes salting every built transaction
const SaltSize = 32

// TransactionBuilder assembles a transaction step by step
type TransactionBuilder struct {
	notary      Identity
	inputs      []StateRef
	outputs     []Output
	commands    []Command
	attachments []Attachment
}

func NewTransactionBuilder(notary Identity) *TransactionBuilder {
	return &TransactionBuilder{notary: notary}
}

func (b *TransactionBuilder) AddInputState(ref StateRef) *TransactionBuilder {
	b.inputs = append(b.inputs, ref)
	return b
}

// AddOutputState appends a new output governed by the passed contract
func (b *TransactionBuilder) AddOutputState(state State, contractID string) *TransactionBuilder {
	b.outputs = append(b.outputs, Output{Contract: contractID, State: state})
	return b
}

func (b *TransactionBuilder) AddCommand(cmd CommandData, signers ...Identity) *TransactionBuilder {
	b.commands = append(b.commands, Command{Value: cmd, Signers: Identities(signers).Dedup()})
	return b
}

func (b *TransactionBuilder) AddAttachment(a Attachment) *TransactionBuilder {
	b.attachments = append(b.attachments, a)
	return b
}

// Build returns the transaction, salted with fresh random bytes.
// A contract attachment is added for every distinct contract governing the outputs,
// unless an attachment with the same id is already present.
func (b *TransactionBuilder) Build() (*Transaction, error) {
	if b.notary.IsNone() {
		return nil, errors.New("no notary set")
	}
	attachments := append([]Attachment{}, b.attachments...)
	present := map[string]struct{}{}
	for _, a := range attachments {
		present[a.ID] = struct{}{}
	}
	for _, o := range b.outputs {
		if o.State == nil {
			return nil, errors.New("output with no state")
		}
		if len(o.Contract) == 0 {
			return nil, errors.Errorf("output [%s] has no contract", o.State.StateType())
		}
		if _, ok := present[o.Contract]; ok {
			continue
		}
		present[o.Contract] = struct{}{}
		attachments = append(attachments, Attachment{ID: o.Contract})
	}
	salt, err := uuid.GenerateRandomBytes(SaltSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed generating salt")
	}
	return &Transaction{
		Salt:        salt,
		Notary:      b.notary,
		Inputs:      append([]StateRef{}, b.inputs...),
		Outputs:     append([]Output{}, b.outputs...),
		Commands:    append([]Command{}, b.commands...),
		Attachments: attachments,
	}, nil
}
