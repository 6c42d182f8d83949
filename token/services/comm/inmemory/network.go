/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package inmemory

import (
	"context"
	"sync"

	"github.com/anixon604/bootcamp-cordapp/token/services/comm"
	"github.com/anixon604/bootcamp-cordapp/token/services/view"
	"github.com/pkg/errors"
)

// Interceptor can rewrite or drop a message in flight, it returns false to drop it
type Interceptor func(msg *view.Message) (*view.Message, bool)

// Network connects hubs living in the same process
type Network struct {
	lock         sync.RWMutex
	hubs         map[view.Identity]*comm.Hub
	disconnected map[view.Identity]bool
	interceptors []Interceptor
}

func NewNetwork() *Network {
	return &Network{
		hubs:         map[view.Identity]*comm.Hub{},
		disconnected: map[view.Identity]bool{},
	}
}

// NewHub creates and attaches the hub of the passed party
func (n *Network) NewHub(me view.Identity) *comm.Hub {
	h := comm.NewHub(me, &transport{network: n})
	n.lock.Lock()
	n.hubs[me] = h
	n.lock.Unlock()
	return h
}

// Disconnect makes the passed party unreachable, messages to and from it fail
func (n *Network) Disconnect(id view.Identity) {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.disconnected[id] = true
}

func (n *Network) Reconnect(id view.Identity) {
	n.lock.Lock()
	defer n.lock.Unlock()
	delete(n.disconnected, id)
}

// Intercept installs an interceptor applied to every message, in installation order
func (n *Network) Intercept(i Interceptor) {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.interceptors = append(n.interceptors, i)
}

func (n *Network) deliver(ctx context.Context, msg *view.Message) error {
	n.lock.RLock()
	from, to := n.disconnected[msg.FromEndpoint], n.disconnected[msg.ToEndpoint]
	hub, ok := n.hubs[msg.ToEndpoint]
	interceptors := append([]Interceptor{}, n.interceptors...)
	n.lock.RUnlock()

	if from || to || !ok {
		return errors.Wrapf(comm.ErrUnreachable, "cannot reach [%s] from [%s]", msg.ToEndpoint, msg.FromEndpoint)
	}
	// recipients own what they receive
	cp := *msg
	cp.Payload = append([]byte{}, msg.Payload...)
	m := &cp
	for _, i := range interceptors {
		var keep bool
		m, keep = i(m)
		if !keep {
			return nil
		}
	}
	return hub.Deliver(ctx, m)
}

type transport struct {
	network *Network
}

func (t *transport) Send(ctx context.Context, msg *view.Message) error {
	return t.network.deliver(ctx, msg)
}
