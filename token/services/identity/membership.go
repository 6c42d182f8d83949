/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package identity

import (
	"crypto/ed25519"

	"github.com/anixon604/bootcamp-cordapp/token/token"
	"github.com/pkg/errors"
)

// Peer is a remote party known to this node
type Peer struct {
	Name      token.Identity
	Address   string
	PublicKey ed25519.PublicKey
}

// LocalMembership holds the default identity of this node
type LocalMembership struct {
	me     token.Identity
	sk     ed25519.PrivateKey
	sigSvc *SigService
}

// NewLocalMembership binds the passed key to the node identity in the sig service
func NewLocalMembership(me token.Identity, sk ed25519.PrivateKey, sigSvc *SigService) (*LocalMembership, error) {
	if me.IsNone() {
		return nil, errors.New("empty node identity")
	}
	signer := NewSigner(sk)
	if err := sigSvc.RegisterSigner(me, signer, NewVerifier(signer.Public())); err != nil {
		return nil, errors.WithMessagef(err, "failed registering signer for [%s]", me)
	}
	return &LocalMembership{me: me, sk: sk, sigSvc: sigSvc}, nil
}

// DefaultIdentity returns the identity of this node
func (l *LocalMembership) DefaultIdentity() token.Identity {
	return l.me
}

func (l *LocalMembership) PublicKey() ed25519.PublicKey {
	return l.sk.Public().(ed25519.PublicKey)
}

// RegisterPeers makes the signatures of the passed peers verifiable
func RegisterPeers(sigSvc *SigService, peers ...Peer) error {
	for _, p := range peers {
		if p.Name.IsNone() {
			return errors.New("peer with empty name")
		}
		if len(p.PublicKey) == 0 {
			continue
		}
		if err := sigSvc.RegisterVerifier(p.Name, NewVerifier(p.PublicKey)); err != nil {
			return errors.WithMessagef(err, "failed registering verifier for [%s]", p.Name)
		}
	}
	return nil
}
