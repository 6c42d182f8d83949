/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rest_test

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/anixon604/bootcamp-cordapp/token/sdk"
	"github.com/anixon604/bootcamp-cordapp/token/sdk/rest"
	"github.com/anixon604/bootcamp-cordapp/token/services/config"
	"github.com/anixon604/bootcamp-cordapp/token/services/identity"
	"github.com/anixon604/bootcamp-cordapp/token/services/metrics"
	"github.com/anixon604/bootcamp-cordapp/token/token"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alice token.Identity = "O=Alice,L=London,C=GB"
	bob   token.Identity = "O=Bob,L=New York,C=US"
)

// lateHandler lets servers start before the nodes they serve exist
type lateHandler struct {
	h atomic.Pointer[http.Handler]
}

func (l *lateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h := l.h.Load()
	if h == nil {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	(*h).ServeHTTP(w, r)
}

type testNetwork struct {
	nodes   map[token.Identity]*sdk.Node
	servers map[token.Identity]*httptest.Server
}

// newTestNetwork runs alice and bob over HTTP, alice runs the notary and bob reaches it remotely
func newTestNetwork(t *testing.T) *testNetwork {
	n := &testNetwork{nodes: map[token.Identity]*sdk.Node{}, servers: map[token.Identity]*httptest.Server{}}
	handlers := map[token.Identity]*lateHandler{}
	keys := map[token.Identity]ed25519.PrivateKey{}
	for _, id := range []token.Identity{alice, bob} {
		handlers[id] = &lateHandler{}
		n.servers[id] = httptest.NewServer(handlers[id])
		t.Cleanup(n.servers[id].Close)
		sk, err := identity.GenerateKey()
		require.NoError(t, err)
		keys[id] = sk
	}

	dir := t.TempDir()
	for _, id := range []token.Identity{alice, bob} {
		c := sdk.LocalConfig(id, alice, filepath.Join(dir, strings.ToLower(string(id[2:5]))+".sqlite"))
		if id == bob {
			c.Notary.Address = n.servers[alice].URL
		}
		for other, sk := range keys {
			if other == id {
				continue
			}
			c.Network.Peers = append(c.Network.Peers, config.Peer{
				Name:      other,
				Address:   n.servers[other].URL,
				PublicKey: config.PublicKey(sk.Public().(ed25519.PublicKey)),
			})
		}
		node, err := sdk.NewNode(context.Background(), c, sdk.WithKey(keys[id]), sdk.WithMetricsProvider(metrics.NewInMemoryProvider()))
		require.NoError(t, err)
		t.Cleanup(func() { _ = node.Close() })
		n.nodes[id] = node
		h := rest.NewHandler(node)
		handlers[id].h.Store(&h)
	}
	return n
}

func (n *testNetwork) client(id token.Identity) *rest.Client {
	return rest.NewClient(n.servers[id].URL, nil)
}

func TestIssueOverHTTP(t *testing.T) {
	n := newTestNetwork(t)

	res, err := n.client(alice).Issue(context.Background(), bob, 99)
	require.NoError(t, err)
	assert.NotEmpty(t, res.TxID)
	assert.Equal(t, uint64(1), res.Order)
	n.nodes[bob].Wait()

	for _, id := range []token.Identity{alice, bob} {
		tokens, err := n.client(id).Tokens(context.Background(), bob)
		require.NoError(t, err)
		require.Len(t, tokens, 1, id)
		assert.Equal(t, &rest.Token{TxID: res.TxID, Index: 0, Issuer: alice, Owner: bob, Amount: 99}, tokens[0])
	}

	response, err := http.Get(n.servers[bob].URL + rest.TransactionsPath + "/" + res.TxID + "/status")
	require.NoError(t, err)
	defer response.Body.Close()
	status := map[string]string{}
	require.NoError(t, json.NewDecoder(response.Body).Decode(&status))
	assert.Equal(t, "Confirmed", status["status"])

	// bob reaches alice's notary over HTTP
	res, err = n.client(bob).Issue(context.Background(), alice, 5)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.Order)
	n.nodes[alice].Wait()
	tokens, err := n.client(alice).Tokens(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, bob, tokens[0].Issuer)
}

func TestIssueErrors(t *testing.T) {
	n := newTestNetwork(t)

	_, err := n.client(alice).Issue(context.Background(), bob, 0)
	var apiErr *rest.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, "ContractViolation", apiErr.Reason)

	_, err = n.client(alice).Issue(context.Background(), alice, 10)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)

	response, err := http.Post(n.servers[alice].URL+rest.IssuePath, "application/json", strings.NewReader(`{"amount":1}`))
	require.NoError(t, err)
	_ = response.Body.Close()
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)

	tokens, err := n.client(bob).Tokens(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, tokens)
}

func TestQueries(t *testing.T) {
	n := newTestNetwork(t)
	url := n.servers[alice].URL

	for path, expected := range map[string]int{
		rest.HealthPath:                        http.StatusOK,
		rest.MetricsPath:                       http.StatusOK,
		rest.TransactionsPath:                  http.StatusOK,
		rest.TransactionsPath + "/unknown":     http.StatusNotFound,
		rest.TokensPath + "?key=owner&value=x": http.StatusOK,
	} {
		response, err := http.Get(url + path)
		require.NoError(t, err)
		_ = response.Body.Close()
		assert.Equal(t, expected, response.StatusCode, path)
	}

	// only the notary node accepts certification requests
	response, err := http.Post(n.servers[bob].URL+"/v1/notary/certify", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	_ = response.Body.Close()
	assert.Equal(t, http.StatusNotFound, response.StatusCode)
}
