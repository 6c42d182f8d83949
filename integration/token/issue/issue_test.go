/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issue_test

import (
	"context"
	"errors"
	"os"
	"sync/atomic"

	"github.com/anixon604/bootcamp-cordapp/integration/token/issue"
	"github.com/anixon604/bootcamp-cordapp/token/sdk"
	"github.com/anixon604/bootcamp-cordapp/token/services/contract"
	"github.com/anixon604/bootcamp-cordapp/token/services/storage"
	"github.com/anixon604/bootcamp-cordapp/token/services/ttx"
	"github.com/anixon604/bootcamp-cordapp/token/token"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const (
	notary  token.Identity = "O=Notary,L=London,C=GB"
	alice   token.Identity = "O=Alice,L=London,C=GB"
	bob     token.Identity = "O=Bob,L=New York,C=US"
	charlie token.Identity = "O=Charlie,L=Paris,C=FR"
)

var _ = Describe("Token issuance", func() {
	var (
		dir     string
		network *sdk.LocalNetwork
	)

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "bootcamp-issue")
		Expect(err).NotTo(HaveOccurred())
		network, err = sdk.NewLocalNetwork(context.Background(), dir, []token.Identity{notary, alice, bob, charlie})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(network.Close()).To(Succeed())
		Expect(os.RemoveAll(dir)).To(Succeed())
	})

	It("issues tokens to a counterparty", func() {
		ft, err := network.Node(alice).IssueToken(context.Background(), bob, 99)
		Expect(err).NotTo(HaveOccurred())
		issue.CheckIssued(ft, alice, bob, 99)
		network.Node(bob).Wait()

		for _, id := range []token.Identity{alice, bob} {
			node := network.Node(id)
			Expect(issue.Balance(node, bob)).To(Equal(int64(99)))
			status, err := node.Status(context.Background(), ft.ID())
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(storage.Confirmed))
		}
		Expect(issue.Balance(network.Node(charlie), bob)).To(BeZero())
		Expect(network.Node(notary).Notary()).NotTo(BeNil())
	})

	It("records two issuances of the same amount separately", func() {
		ft1, err := network.Node(alice).IssueToken(context.Background(), bob, 99)
		Expect(err).NotTo(HaveOccurred())
		ft2, err := network.Node(alice).IssueToken(context.Background(), bob, 99)
		Expect(err).NotTo(HaveOccurred())
		network.Node(bob).Wait()

		Expect(ft1.ID()).NotTo(Equal(ft2.ID()))
		Expect(ft2.Certificate.Order).To(Equal(ft1.Certificate.Order + 1))
		Expect(issue.Balance(network.Node(alice), bob)).To(Equal(int64(198)))
		Expect(issue.Balance(network.Node(bob), bob)).To(Equal(int64(198)))
	})

	It("rejects a zero amount before contacting the owner", func() {
		var messages atomic.Int32
		issue.CountMessages(network, &messages)

		ft, err := network.Node(alice).IssueToken(context.Background(), bob, 0)
		Expect(ft).To(BeNil())
		Expect(err).To(MatchError(ttx.ErrContractViolation))
		reason, ok := contract.ReasonOf(err)
		Expect(ok).To(BeTrue())
		Expect(reason).To(Equal(contract.NonPositiveAmount))
		Expect(messages.Load()).To(BeZero())
		issue.CheckNothingRecorded(network)
	})

	It("is refused by an owner receiving a tampered proposal", func() {
		issue.TamperAmount(network, 0)

		ft, err := network.Node(alice).IssueToken(context.Background(), bob, 99)
		network.Node(bob).Wait()
		Expect(ft).To(BeNil())
		Expect(err).To(MatchError(ttx.ErrProtocolRefusal))
		var refusal *ttx.RefusalError
		Expect(errors.As(err, &refusal)).To(BeTrue())
		Expect(refusal.Party).To(Equal(bob))
		Expect(refusal.Reason).To(ContainSubstring(string(contract.NonPositiveAmount)))
		issue.CheckNothingRecorded(network)
	})

	It("runs issuances in both directions", func() {
		_, err := network.Node(alice).IssueToken(context.Background(), bob, 10)
		Expect(err).NotTo(HaveOccurred())
		_, err = network.Node(bob).IssueToken(context.Background(), alice, 7)
		Expect(err).NotTo(HaveOccurred())
		_, err = network.Node(charlie).IssueToken(context.Background(), alice, 3)
		Expect(err).NotTo(HaveOccurred())
		for _, node := range network.Nodes() {
			node.Wait()
		}

		Expect(issue.Balance(network.Node(alice), alice)).To(Equal(int64(10)))
		Expect(issue.Balance(network.Node(bob), bob)).To(Equal(int64(10)))
		Expect(issue.Balance(network.Node(notary), alice)).To(BeZero())
	})

	It("fails with a channel failure when the owner is unreachable", func() {
		network.Disconnect(bob)
		_, err := network.Node(alice).IssueToken(context.Background(), bob, 5)
		Expect(err).To(MatchError(ttx.ErrChannelFailure))
		issue.CheckNothingRecorded(network)

		network.Reconnect(bob)
		_, err = network.Node(alice).IssueToken(context.Background(), bob, 5)
		Expect(err).NotTo(HaveOccurred())
	})
})
