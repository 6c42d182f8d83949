/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package sdk

import (
	"context"

	"github.com/anixon604/bootcamp-cordapp/token/services/comm"
	"github.com/anixon604/bootcamp-cordapp/token/services/config"
	"github.com/anixon604/bootcamp-cordapp/token/services/metrics"
	"github.com/anixon604/bootcamp-cordapp/token/services/notary"
	"github.com/anixon604/bootcamp-cordapp/token/services/storage"
	"github.com/anixon604/bootcamp-cordapp/token/services/storage/db"
	"github.com/anixon604/bootcamp-cordapp/token/services/storage/vaultdb"
	"github.com/anixon604/bootcamp-cordapp/token/services/ttx"
	"github.com/anixon604/bootcamp-cordapp/token/services/view"
	"github.com/anixon604/bootcamp-cordapp/token/token"
	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
)

// Node is a running party of the network
type Node struct {
	me        token.Identity
	config    *config.Config
	provider  metrics.Provider
	db        *db.DB
	vault     *vaultdb.Store
	notary    *notary.Notary
	hub       *comm.Hub
	manager   *view.Manager
	cancel    context.CancelFunc
	services  *ttx.Services
	issueOpts []ttx.Option
}

func (n *Node) start(ctx context.Context) error {
	if err := n.manager.RegisterResponder(ttx.NewIssueResponder(n.services, n.issueOpts...), ttx.IssueProtocol); err != nil {
		return errors.WithMessage(err, "failed registering issuance responder")
	}
	n.manager.AddListener(n)
	context.AfterFunc(ctx, n.cancel)
	return nil
}

// Identity returns the identity of the node
func (n *Node) Identity() token.Identity {
	return n.me
}

func (n *Node) Config() *config.Config {
	return n.config
}

// IssueToken issues amount tokens from this node to owner and returns the notarised transaction.
// A failure before notarisation is a *ttx.AbortError and leaves both vaults untouched.
func (n *Node) IssueToken(ctx context.Context, owner token.Identity, amount int64) (*token.FinalTransaction, error) {
	res, err := n.manager.InitiateView(ctx, ttx.NewIssueView(n.services, owner, amount, n.issueOpts...))
	ft, _ := res.(*token.FinalTransaction)
	return ft, err
}

// Tokens returns the unconsumed tokens, held by owner if not nil
func (n *Node) Tokens(ctx context.Context, owner *token.Identity) ([]*token.StateAndRef, error) {
	return n.vault.FindUnconsumedStates(ctx, owner)
}

// QueryTokens returns the unconsumed states whose JSON field key equals value
func (n *Node) QueryTokens(ctx context.Context, key, value string) ([]*token.StateAndRef, error) {
	return n.vault.QueryStates(ctx, key, value)
}

func (n *Node) Transaction(ctx context.Context, txID string) (*token.FinalTransaction, error) {
	return n.vault.GetTransaction(ctx, txID)
}

// Transactions returns the recorded transactions by notary order
func (n *Node) Transactions(ctx context.Context) ([]*token.FinalTransaction, error) {
	return n.vault.ListTransactions(ctx)
}

func (n *Node) Status(ctx context.Context, txID string) (storage.TxStatus, error) {
	return n.vault.Status(ctx, txID)
}

// Notary returns the notary run by this node, nil if the node uses another one
func (n *Node) Notary() *notary.Notary {
	return n.notary
}

// NotaryService returns the notary this node submits its transactions to
func (n *Node) NotaryService() notary.Service {
	return n.services.Notary
}

// Hub returns the session multiplexer, remote transports deliver inbound messages to it
func (n *Node) Hub() *comm.Hub {
	return n.hub
}

func (n *Node) MetricsProvider() metrics.Provider {
	return n.provider
}

// Wait blocks until the responders running on this node terminate
func (n *Node) Wait() {
	n.manager.Wait()
}

func (n *Node) OnResponderResult(protocol string, session view.SessionInfo, result interface{}, err error) {
	if err != nil {
		logger.Warnf("[%s] session [%s] from [%s] ended with error: %s", protocol, session.ID, session.Endpoint, err)
		return
	}
	if logger.IsEnabledFor(zapcore.DebugLevel) {
		if ft, ok := result.(*token.FinalTransaction); ok {
			logger.Debugf("[%s] session [%s] from [%s] recorded [%s]", protocol, session.ID, session.Endpoint, ft.ID())
		}
	}
}

// Close stops the responders and releases the storage
func (n *Node) Close() error {
	n.cancel()
	n.manager.Wait()
	return n.db.Close()
}
