/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ttx

import (
	"context"

	"github.com/anixon604/bootcamp-cordapp/token/services/logging"
	"github.com/anixon604/bootcamp-cordapp/token/services/notary"
	"github.com/anixon604/bootcamp-cordapp/token/token"
	"github.com/pkg/errors"
)

var logger = logging.MustGetLogger("token-sdk.ttx")

// IssueProtocol identifies the issuance protocol on the wire, responders are registered against it
const IssueProtocol = "bootcamp.flows.TokenIssueFlow"

// SignatureService signs on behalf of the local identities and resolves the verifiers of everybody
type SignatureService interface {
	token.VerifierProvider
	Sign(id token.Identity, tx *token.Transaction) (token.Signature, error)
}

// ContractVerifier checks a transaction against the contract of its command
type ContractVerifier interface {
	Verify(tx *token.Transaction) error
}

// Vault records notarised transactions
type Vault interface {
	Append(ctx context.Context, ft *token.FinalTransaction) error
}

// Services are the collaborators of the issuance views
type Services struct {
	SigService SignatureService
	Contract   ContractVerifier
	Notary     notary.Service
	// NotaryID is the notary every new transaction is addressed to
	NotaryID token.Identity
	Vault    Vault
	Metrics  *Metrics
}

func (s *Services) validate() error {
	switch {
	case s == nil:
		return errors.New("no services")
	case s.SigService == nil:
		return errors.New("no signature service")
	case s.Contract == nil:
		return errors.New("no contract verifier")
	case s.Notary == nil:
		return errors.New("no notary")
	case s.NotaryID.IsNone():
		return errors.New("no notary identity")
	case s.Vault == nil:
		return errors.New("no vault")
	case s.Metrics == nil:
		return errors.New("no metrics")
	}
	return nil
}
