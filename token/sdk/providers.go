/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package sdk

import (
	"context"

	"github.com/anixon604/bootcamp-cordapp/token/services/comm"
	"github.com/anixon604/bootcamp-cordapp/token/services/comm/rest"
	"github.com/anixon604/bootcamp-cordapp/token/services/config"
	"github.com/anixon604/bootcamp-cordapp/token/services/contract"
	"github.com/anixon604/bootcamp-cordapp/token/services/identity"
	"github.com/anixon604/bootcamp-cordapp/token/services/metrics"
	"github.com/anixon604/bootcamp-cordapp/token/services/notary"
	"github.com/anixon604/bootcamp-cordapp/token/services/storage/db"
	"github.com/anixon604/bootcamp-cordapp/token/services/storage/notarydb"
	"github.com/anixon604/bootcamp-cordapp/token/services/storage/vaultdb"
	"github.com/anixon604/bootcamp-cordapp/token/services/ttx"
	"github.com/anixon604/bootcamp-cordapp/token/services/utils/cache"
	"github.com/anixon604/bootcamp-cordapp/token/services/view"
	"github.com/anixon604/bootcamp-cordapp/token/token"
	"github.com/pkg/errors"
	"go.uber.org/dig"
)

func newMetricsProvider(c *config.Config, o *options) (metrics.Provider, error) {
	if o.provider != nil {
		return o.provider, nil
	}
	return metrics.NewProvider(c.Metrics.Provider)
}

// newMembership binds the node key and makes the peers verifiable
func newMembership(c *config.Config, o *options) (*identity.SigService, *identity.LocalMembership, error) {
	sk := o.key
	if sk == nil {
		var err error
		sk, err = identity.LoadOrCreatePrivateKey(c.Node.KeyFile)
		if err != nil {
			return nil, nil, errors.WithMessagef(err, "failed loading key of [%s]", c.Node.Name)
		}
	}
	sigSvc := identity.NewSigService()
	membership, err := identity.NewLocalMembership(c.Node.Name, sk, sigSvc)
	if err != nil {
		return nil, nil, err
	}
	if err := identity.RegisterPeers(sigSvc, c.Peers()...); err != nil {
		return nil, nil, err
	}
	return sigSvc, membership, nil
}

func newDB(c *config.Config) (*db.DB, error) {
	return db.Open(db.Opts{
		Driver:       c.Persistence.Type,
		DataSource:   c.Persistence.DataSource,
		TablePrefix:  c.Persistence.TablePrefix,
		MaxOpenConns: c.Persistence.MaxOpenConns,
	})
}

func newVault(c *config.Config, d *db.DB, provider metrics.Provider) (*vaultdb.Store, error) {
	var txCache cache.Cache[string, *token.FinalTransaction]
	if c.Cache.Size > 0 {
		var err error
		txCache, err = cache.New[string, *token.FinalTransaction]("vault_transactions", c.Cache.Size, cache.NewLookupsCounter(provider))
		if err != nil {
			return nil, errors.Wrap(err, "failed creating transaction cache")
		}
	}
	return vaultdb.New(d, txCache, true)
}

type notaryResult struct {
	dig.Out
	Service notary.Service
	// Embedded is nil unless this node runs the notary
	Embedded *notary.Notary
}

func newNotary(c *config.Config, o *options, sigSvc *identity.SigService, d *db.DB, provider metrics.Provider) (notaryResult, error) {
	switch {
	case o.notary != nil:
		return notaryResult{Service: o.notary}, nil
	case !c.Notary.Embedded():
		logger.Infof("using remote notary [%s] at [%s]", c.Notary.Name, c.Notary.Address)
		return notaryResult{Service: notary.NewClient(c.Notary.Address, o.httpClient)}, nil
	}
	store, err := notarydb.New(d, true)
	if err != nil {
		return notaryResult{}, errors.WithMessage(err, "failed opening notary store")
	}
	n := notary.New(c.Notary.Name, c.Notary.Validating, sigSvc, contract.DefaultRegistry(), store, notary.NewMetrics(provider))
	logger.Infof("running notary [%s], validating [%v]", c.Notary.Name, c.Notary.Validating)
	return notaryResult{Service: n, Embedded: n}, nil
}

func newHub(c *config.Config, o *options) *comm.Hub {
	if o.network != nil {
		return o.network.NewHub(c.Node.Name)
	}
	addresses := rest.AddressBook{}
	for _, p := range c.Network.Peers {
		addresses[p.Name] = p.Address
	}
	return comm.NewHub(c.Node.Name, rest.NewTransport(addresses, o.httpClient))
}

// lifecycle bounds the responders of the node, it is cancelled when the node is closed
type lifecycle struct {
	cancel context.CancelFunc
}

func newManager(c *config.Config, hub *comm.Hub) (*view.Manager, *lifecycle) {
	ctx, cancel := context.WithCancel(context.Background())
	m := view.NewManager(ctx, c.Node.Name, hub)
	hub.SetResponderHandler(m)
	return m, &lifecycle{cancel: cancel}
}

func newServices(c *config.Config, sigSvc *identity.SigService, n notary.Service, vault *vaultdb.Store, provider metrics.Provider) *ttx.Services {
	return &ttx.Services{
		SigService: sigSvc,
		Contract:   contract.DefaultRegistry(),
		Notary:     n,
		NotaryID:   c.Notary.Name,
		Vault:      vault,
		Metrics:    ttx.NewMetrics(provider),
	}
}

type nodeParams struct {
	dig.In
	Config    *config.Config
	Options   *options
	Provider  metrics.Provider
	DB        *db.DB
	Vault     *vaultdb.Store
	Notary    *notary.Notary `optional:"true"`
	Hub       *comm.Hub
	Manager   *view.Manager
	Lifecycle *lifecycle
	Services  *ttx.Services
}

func newNode(in nodeParams) *Node {
	issueOpts := append([]ttx.Option{
		ttx.WithSessionTimeout(in.Config.TTX.SessionTimeout),
		ttx.WithFinalityTimeout(in.Config.TTX.FinalityTimeout),
	}, in.Options.issueOpts...)
	return &Node{
		me:        in.Config.Node.Name,
		config:    in.Config,
		provider:  in.Provider,
		db:        in.DB,
		vault:     in.Vault,
		notary:    in.Notary,
		hub:       in.Hub,
		manager:   in.Manager,
		cancel:    in.Lifecycle.cancel,
		services:  in.Services,
		issueOpts: issueOpts,
	}
}
