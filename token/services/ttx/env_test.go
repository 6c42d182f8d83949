/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ttx

import (
	"context"
	"crypto/ed25519"
	"path"
	"testing"
	"time"

	"github.com/anixon604/bootcamp-cordapp/token/services/comm"
	"github.com/anixon604/bootcamp-cordapp/token/services/comm/inmemory"
	"github.com/anixon604/bootcamp-cordapp/token/services/contract"
	"github.com/anixon604/bootcamp-cordapp/token/services/identity"
	"github.com/anixon604/bootcamp-cordapp/token/services/metrics"
	"github.com/anixon604/bootcamp-cordapp/token/services/notary"
	"github.com/anixon604/bootcamp-cordapp/token/services/storage/db"
	"github.com/anixon604/bootcamp-cordapp/token/services/storage/notarydb"
	"github.com/anixon604/bootcamp-cordapp/token/services/storage/vaultdb"
	"github.com/anixon604/bootcamp-cordapp/token/services/view"
	"github.com/anixon604/bootcamp-cordapp/token/token"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

const (
	alice    token.Identity = "O=Alice,L=London,C=GB"
	bob      token.Identity = "O=Bob,L=New York,C=US"
	mallory  token.Identity = "O=Mallory,L=Nowhere,C=XX"
	notaryID token.Identity = "O=Notary,L=Paris,C=FR"
)

type testNode struct {
	id       token.Identity
	sigSvc   *identity.SigService
	vault    *vaultdb.Store
	services *Services
	provider *metrics.InMemoryProvider
	hub      *comm.Hub
	manager  *view.Manager
}

// testEnv holds the keys of every party and an embedded notary
type testEnv struct {
	t      *testing.T
	keys   map[token.Identity]ed25519.PrivateKey
	notary *notary.Notary
}

func newTestEnv(t *testing.T) *testEnv {
	e := &testEnv{t: t, keys: map[token.Identity]ed25519.PrivateKey{}}
	for _, id := range []token.Identity{alice, bob, mallory, notaryID} {
		sk, err := identity.GenerateKey()
		require.NoError(t, err)
		e.keys[id] = sk
	}
	store, err := notarydb.New(e.openDB("notary"), true)
	require.NoError(t, err)
	e.notary = notary.New(notaryID, true, e.sigService(notaryID), contract.DefaultRegistry(), store, notary.NewMetrics(metrics.NewInMemoryProvider()))
	return e
}

func (e *testEnv) openDB(name string) *db.DB {
	d, err := db.Open(db.Opts{Driver: db.SQLite, DataSource: path.Join(e.t.TempDir(), name+".sqlite")})
	require.NoError(e.t, err)
	e.t.Cleanup(func() { _ = d.Close() })
	return d
}

// sigService signs as me and verifies everybody
func (e *testEnv) sigService(me token.Identity) *identity.SigService {
	sigSvc := identity.NewSigService()
	_, err := identity.NewLocalMembership(me, e.keys[me], sigSvc)
	require.NoError(e.t, err)
	for id, sk := range e.keys {
		if id == me {
			continue
		}
		require.NoError(e.t, identity.RegisterPeers(sigSvc, identity.Peer{Name: id, PublicKey: sk.Public().(ed25519.PublicKey)}))
	}
	return sigSvc
}

func (e *testEnv) newNode(id token.Identity, n notary.Service) *testNode {
	vault, err := vaultdb.New(e.openDB("vault"), nil, true)
	require.NoError(e.t, err)
	if n == nil {
		n = e.notary
	}
	provider := metrics.NewInMemoryProvider()
	sigSvc := e.sigService(id)
	return &testNode{
		id:     id,
		sigSvc: sigSvc,
		vault:  vault,
		services: &Services{
			SigService: sigSvc,
			Contract:   contract.DefaultRegistry(),
			Notary:     n,
			NotaryID:   notaryID,
			Vault:      vault,
			Metrics:    NewMetrics(provider),
		},
		provider: provider,
	}
}

// attach connects the node to the network and registers the issuance responder
func (n *testNode) attach(t *testing.T, network *inmemory.Network, opts ...Option) {
	n.hub = network.NewHub(n.id)
	n.manager = view.NewManager(context.Background(), n.id, n.hub)
	n.hub.SetResponderHandler(n.manager)
	require.NoError(t, n.manager.RegisterResponder(NewIssueResponder(n.services, opts...), IssueProtocol))
}

func (n *testNode) states(t *testing.T) []*token.StateAndRef {
	states, err := n.vault.FindUnconsumedStates(context.Background(), nil)
	require.NoError(t, err)
	return states
}

// signedIssue returns an issuance signed by the issuer
func (e *testEnv) signedIssue(issuer, owner token.Identity, amount int64) (*token.Transaction, token.Signature) {
	tx, err := token.NewTransactionBuilder(notaryID).
		AddOutputState(token.NewTokenState(issuer, owner, amount), contract.TokenContractID).
		AddCommand(&token.Issue{}, issuer, owner).
		Build()
	require.NoError(e.t, err)
	sig, err := e.sigService(issuer).Sign(issuer, tx)
	require.NoError(e.t, err)
	return tx, sig
}

// testContext is a view context over pre-built sessions
type testContext struct {
	ctx      context.Context
	me       token.Identity
	session  view.Session
	sessions map[token.Identity]view.Session
}

func (c *testContext) Context() context.Context { return c.ctx }
func (c *testContext) ID() string               { return "test" }
func (c *testContext) Me() view.Identity        { return c.me }
func (c *testContext) Initiator() view.View     { return nil }
func (c *testContext) Session() view.Session    { return c.session }

func (c *testContext) GetSession(caller view.View, party view.Identity) (view.Session, error) {
	s, ok := c.sessions[party]
	if !ok {
		return nil, errors.Errorf("no session to [%s]", party)
	}
	return s, nil
}

type result struct {
	res interface{}
	err error
}

func run(c view.Context, v view.View) <-chan result {
	ch := make(chan result, 1)
	go func() {
		res, err := v.Call(c)
		ch <- result{res: res, err: err}
	}()
	return ch
}

func wait(t *testing.T, ch <-chan result) result {
	select {
	case r := <-ch:
		return r
	case <-time.After(10 * time.Second):
		t.Fatal("view did not terminate")
	}
	return result{}
}

// next reads the next message sent on the passed session
func next(t *testing.T, s view.Session) *view.Message {
	select {
	case msg := <-s.Receive():
		return msg
	case <-time.After(10 * time.Second):
		t.Fatal("no message")
	}
	return nil
}

func nextMessage(t *testing.T, s view.Session) Message {
	raw := next(t, s)
	require.Equal(t, int32(view.OK), raw.Status, string(raw.Payload))
	m, err := Unmarshal(raw.Payload)
	require.NoError(t, err)
	return m
}

func sendMessage(t *testing.T, s view.Session, m Message) {
	raw, err := Marshal(m)
	require.NoError(t, err)
	require.NoError(t, s.Send(raw))
}
