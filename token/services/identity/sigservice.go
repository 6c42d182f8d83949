/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package identity

import (
	"runtime/debug"
	"sync"

	"github.com/anixon604/bootcamp-cordapp/token/services/logging"
	"github.com/anixon604/bootcamp-cordapp/token/token"
	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
)

var logger = logging.MustGetLogger("token-sdk.identity")

// ErrUnknownIdentity is returned when no signer or verifier is bound to an identity
var ErrUnknownIdentity = errors.New("unknown identity")

type VerifierEntry struct {
	Verifier   token.Verifier
	DebugStack []byte
}

type SignerEntry struct {
	Signer     token.Signer
	DebugStack []byte
}

// SigService binds identities to signers and verifiers.
// It resolves the verifier of any known party and the signer of the local ones.
type SigService struct {
	sync      sync.RWMutex
	signers   map[token.Identity]SignerEntry
	verifiers map[token.Identity]VerifierEntry
}

func NewSigService() *SigService {
	return &SigService{
		signers:   map[token.Identity]SignerEntry{},
		verifiers: map[token.Identity]VerifierEntry{},
	}
}

// RegisterSigner binds a signer, and optionally its verifier, to the passed identity.
// A second registration for the same identity is ignored.
func (o *SigService) RegisterSigner(identity token.Identity, signer token.Signer, verifier token.Verifier) error {
	if signer == nil {
		return errors.New("invalid signer, expected a valid instance")
	}
	o.sync.Lock()
	s, ok := o.signers[identity]
	if ok {
		o.sync.Unlock()
		logger.Warnf("another signer bound to [%s] from [%s]", identity, string(s.DebugStack))
		return nil
	}
	entry := SignerEntry{Signer: signer}
	if logger.IsEnabledFor(zapcore.DebugLevel) {
		entry.DebugStack = debug.Stack()
	}
	o.signers[identity] = entry
	o.sync.Unlock()

	if verifier != nil {
		return o.RegisterVerifier(identity, verifier)
	}
	return nil
}

// RegisterVerifier binds a verifier to the passed identity.
// A second registration for the same identity is ignored.
func (o *SigService) RegisterVerifier(identity token.Identity, verifier token.Verifier) error {
	if verifier == nil {
		return errors.New("invalid verifier, expected a valid instance")
	}
	o.sync.Lock()
	defer o.sync.Unlock()
	v, ok := o.verifiers[identity]
	if ok {
		logger.Warnf("another verifier bound to [%s] from [%s]", identity, string(v.DebugStack))
		return nil
	}
	entry := VerifierEntry{Verifier: verifier}
	if logger.IsEnabledFor(zapcore.DebugLevel) {
		entry.DebugStack = debug.Stack()
	}
	o.verifiers[identity] = entry
	logger.Debugf("register verifier to [%s]", identity)
	return nil
}

// IsMe returns true if a signer is bound to the passed identity
func (o *SigService) IsMe(identity token.Identity) bool {
	o.sync.RLock()
	defer o.sync.RUnlock()
	_, ok := o.signers[identity]
	return ok
}

func (o *SigService) GetSigner(identity token.Identity) (token.Signer, error) {
	o.sync.RLock()
	defer o.sync.RUnlock()
	entry, ok := o.signers[identity]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownIdentity, "signer not found for [%s]", identity)
	}
	return entry.Signer, nil
}

func (o *SigService) GetVerifier(identity token.Identity) (token.Verifier, error) {
	o.sync.RLock()
	defer o.sync.RUnlock()
	entry, ok := o.verifiers[identity]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownIdentity, "verifier not found for [%s]", identity)
	}
	return entry.Verifier, nil
}

// Sign signs the transaction on behalf of the passed identity
func (o *SigService) Sign(identity token.Identity, tx *token.Transaction) (token.Signature, error) {
	signer, err := o.GetSigner(identity)
	if err != nil {
		return token.Signature{}, err
	}
	sigma, err := signer.Sign(tx.MarshalToSign())
	if err != nil {
		return token.Signature{}, errors.Wrapf(err, "failed signing transaction [%s]", tx.ID())
	}
	return token.Signature{Signer: identity, Sigma: sigma}, nil
}
