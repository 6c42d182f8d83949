/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issue

import (
	"context"
	"sync/atomic"

	"github.com/anixon604/bootcamp-cordapp/token/sdk"
	"github.com/anixon604/bootcamp-cordapp/token/services/ttx"
	"github.com/anixon604/bootcamp-cordapp/token/services/view"
	"github.com/anixon604/bootcamp-cordapp/token/token"
	. "github.com/onsi/gomega"
)

// Balance returns the amount of the unconsumed tokens of owner recorded by node
func Balance(node *sdk.Node, owner token.Identity) int64 {
	states, err := node.Tokens(context.Background(), &owner)
	Expect(err).NotTo(HaveOccurred())
	var total int64
	for _, s := range states {
		ts, ok := s.State.(*token.TokenState)
		Expect(ok).To(BeTrue())
		total += ts.Amount
	}
	return total
}

// CheckIssued checks that ft issues amount tokens from issuer to owner, signed by both
func CheckIssued(ft *token.FinalTransaction, issuer, owner token.Identity, amount int64) {
	tx := ft.Transaction.Tx
	Expect(tx.Inputs).To(BeEmpty())
	Expect(tx.Outputs).To(HaveLen(1))
	Expect(tx.Outputs[0].State).To(Equal(token.NewTokenState(issuer, owner, amount)))
	Expect(tx.Commands).To(HaveLen(1))
	Expect(tx.Commands[0].Value.CommandType()).To(Equal(token.IssueCommandType))
	Expect(tx.Commands[0].Signers).To(ConsistOf(issuer, owner))

	var signers []token.Identity
	for _, sig := range ft.Transaction.Signatures {
		signers = append(signers, sig.Signer)
	}
	Expect(signers).To(ConsistOf(issuer, owner))
}

// CheckNothingRecorded checks that no node recorded a transaction
func CheckNothingRecorded(network *sdk.LocalNetwork) {
	for _, node := range network.Nodes() {
		txs, err := node.Transactions(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(txs).To(BeEmpty())
		states, err := node.Tokens(context.Background(), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(states).To(BeEmpty())
	}
}

// TamperAmount rewrites the amount of every proposal crossing the network
func TamperAmount(network *sdk.LocalNetwork, amount int64) {
	network.Intercept(func(msg *view.Message) (*view.Message, bool) {
		m, err := ttx.Unmarshal(msg.Payload)
		if err != nil {
			return msg, true
		}
		p, ok := m.(*ttx.Propose)
		if !ok {
			return msg, true
		}
		ts := p.Transaction.Outputs[0].State.(*token.TokenState)
		p.Transaction.Outputs[0].State = token.NewTokenState(ts.Issuer, ts.Owner, amount)
		raw, err := ttx.Marshal(p)
		Expect(err).NotTo(HaveOccurred())
		msg.Payload = raw
		return msg, true
	})
}

// CountMessages counts the messages crossing the network
func CountMessages(network *sdk.LocalNetwork, counter *atomic.Int32) {
	network.Intercept(func(msg *view.Message) (*view.Message, bool) {
		counter.Add(1)
		return msg, true
	})
}
