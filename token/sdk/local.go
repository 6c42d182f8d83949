/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package sdk

import (
	"context"
	"crypto/ed25519"
	errors2 "errors"
	"fmt"
	"path/filepath"

	"github.com/anixon604/bootcamp-cordapp/token/services/comm/inmemory"
	"github.com/anixon604/bootcamp-cordapp/token/services/config"
	"github.com/anixon604/bootcamp-cordapp/token/services/identity"
	"github.com/anixon604/bootcamp-cordapp/token/services/metrics"
	"github.com/anixon604/bootcamp-cordapp/token/services/storage/db"
	"github.com/anixon604/bootcamp-cordapp/token/services/ttx"
	"github.com/anixon604/bootcamp-cordapp/token/token"
	"github.com/pkg/errors"
)

// LocalNetwork runs nodes in the same process over an in-memory network.
// The first node runs the notary, every node stores its data under its own sqlite file.
type LocalNetwork struct {
	*inmemory.Network
	nodes []*Node
	byID  map[token.Identity]*Node
}

// NewLocalNetwork starts a node for each of the passed names, the options are applied to every node
func NewLocalNetwork(ctx context.Context, dir string, names []token.Identity, opts ...Option) (*LocalNetwork, error) {
	if len(names) < 2 {
		return nil, errors.New("a network needs at least two nodes")
	}
	keys := make([]ed25519.PrivateKey, len(names))
	peers := make([]config.Peer, len(names))
	for i, name := range names {
		sk, err := identity.GenerateKey()
		if err != nil {
			return nil, err
		}
		keys[i] = sk
		peers[i] = config.Peer{Name: name, PublicKey: config.PublicKey(sk.Public().(ed25519.PublicKey))}
	}

	n := &LocalNetwork{Network: inmemory.NewNetwork(), byID: map[token.Identity]*Node{}}
	for i, name := range names {
		if _, ok := n.byID[name]; ok {
			return nil, errors.Errorf("node [%s] listed twice", name)
		}
		c := LocalConfig(name, names[0], filepath.Join(dir, fmt.Sprintf("node%d.sqlite", i)))
		for j, p := range peers {
			if j != i {
				c.Network.Peers = append(c.Network.Peers, p)
			}
		}
		nodeOpts := append([]Option{WithNetwork(n.Network), WithKey(keys[i])}, opts...)
		if i > 0 {
			nodeOpts = append(nodeOpts, WithNotary(n.nodes[0].Notary()))
		}
		node, err := NewNode(ctx, c, nodeOpts...)
		if err != nil {
			_ = n.Close()
			return nil, err
		}
		n.nodes = append(n.nodes, node)
		n.byID[name] = node
	}
	return n, nil
}

// LocalConfig returns the configuration of a node of a local network
func LocalConfig(name, notaryName token.Identity, dataSource string) *config.Config {
	return &config.Config{
		Node:    config.Node{Name: name},
		Metrics: config.Metrics{Provider: metrics.Disabled},
		Persistence: config.Persistence{
			Type:         db.SQLite,
			DataSource:   dataSource,
			MaxOpenConns: 4,
		},
		TTX: config.TTX{
			SessionTimeout:  ttx.DefaultSessionTimeout,
			FinalityTimeout: ttx.DefaultFinalityTimeout,
		},
		Notary: config.Notary{Name: notaryName, Validating: true},
		Cache:  config.Cache{Size: 100},
	}
}

// Node returns the node of the passed party, nil if unknown
func (n *LocalNetwork) Node(id token.Identity) *Node {
	return n.byID[id]
}

// Nodes returns the nodes in creation order
func (n *LocalNetwork) Nodes() []*Node {
	return n.nodes
}

func (n *LocalNetwork) Close() error {
	var errs []error
	for _, node := range n.nodes {
		errs = append(errs, node.Close())
	}
	return errors2.Join(errs...)
}
