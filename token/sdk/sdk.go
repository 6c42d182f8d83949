/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package sdk

import (
	"context"
	"crypto/ed25519"
	errors2 "errors"
	"net/http"

	"github.com/anixon604/bootcamp-cordapp/token/services/comm/inmemory"
	"github.com/anixon604/bootcamp-cordapp/token/services/config"
	"github.com/anixon604/bootcamp-cordapp/token/services/logging"
	"github.com/anixon604/bootcamp-cordapp/token/services/metrics"
	"github.com/anixon604/bootcamp-cordapp/token/services/notary"
	"github.com/anixon604/bootcamp-cordapp/token/services/ttx"
	"github.com/pkg/errors"
	"go.uber.org/dig"
)

var logger = logging.MustGetLogger("token-sdk")

// inProcess stands for the address of a notary reached without a transport
const inProcess = "in-process"

type options struct {
	network    *inmemory.Network
	provider   metrics.Provider
	key        ed25519.PrivateKey
	httpClient *http.Client
	notary     notary.Service
	issueOpts  []ttx.Option
}

type Option func(*options)

// WithNetwork attaches the node to an in-process network instead of the HTTP transport
func WithNetwork(network *inmemory.Network) Option {
	return func(o *options) { o.network = network }
}

// WithMetricsProvider replaces the provider selected by metrics.provider
func WithMetricsProvider(provider metrics.Provider) Option {
	return func(o *options) { o.provider = provider }
}

// WithKey replaces the key stored in node.keyFile
func WithKey(sk ed25519.PrivateKey) Option {
	return func(o *options) { o.key = sk }
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithNotary makes the node use the passed notary, typically another node's embedded notary in the same process.
// The notary must still be listed among the peers.
func WithNotary(n notary.Service) Option {
	return func(o *options) { o.notary = n }
}

// WithIssueOptions are applied to every issuance, initiated or responded to, after the configured timeouts
func WithIssueOptions(opts ...ttx.Option) Option {
	return func(o *options) { o.issueOpts = append(o.issueOpts, opts...) }
}

// SDK assembles a node from its configuration
type SDK struct {
	config    *config.Config
	opts      *options
	container *dig.Container
	installed bool
}

func NewSDK(c *config.Config, opts ...Option) *SDK {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return &SDK{config: c, opts: o, container: dig.New()}
}

func (p *SDK) Container() *dig.Container {
	return p.container
}

// Install validates the configuration and registers the constructors of the node components
func (p *SDK) Install() error {
	if p.installed {
		return nil
	}
	if err := p.validate(); err != nil {
		return errors.WithMessage(err, "invalid configuration")
	}
	logger.Infof("installing node [%s]...", p.config.Node.Name)

	err := errors2.Join(
		p.container.Provide(func() *config.Config { return p.config }),
		p.container.Provide(func() *options { return p.opts }),
		p.container.Provide(newMetricsProvider),
		p.container.Provide(newMembership),
		p.container.Provide(newDB),
		p.container.Provide(newVault),
		p.container.Provide(newNotary),
		p.container.Provide(newHub),
		p.container.Provide(newManager),
		p.container.Provide(newServices),
		p.container.Provide(newNode),
	)
	if err != nil {
		return errors.WithMessagef(err, "failed setting up dig container")
	}
	p.installed = true
	return nil
}

// Start builds the node and registers the issuance responder
func (p *SDK) Start(ctx context.Context) (*Node, error) {
	if err := p.Install(); err != nil {
		return nil, err
	}
	var node *Node
	err := p.container.Invoke(func(n *Node) error {
		node = n
		return n.start(ctx)
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "failed starting node [%s]", p.config.Node.Name)
	}
	logger.Infof("node [%s] started", p.config.Node.Name)
	return node, nil
}

// NewNode installs and starts a node in one go
func NewNode(ctx context.Context, c *config.Config, opts ...Option) (*Node, error) {
	return NewSDK(c, opts...).Start(ctx)
}

func (p *SDK) validate() error {
	if p.config == nil {
		return errors.New("no configuration")
	}
	if p.opts.notary == nil {
		return p.config.Validate()
	}
	c := *p.config
	c.Notary.Address = inProcess
	return c.Validate()
}
