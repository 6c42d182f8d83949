/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package notary

import (
	"context"
	"sync"
	"time"

	"github.com/anixon604/bootcamp-cordapp/token/services/logging"
	"github.com/anixon604/bootcamp-cordapp/token/services/storage/notarydb"
	"github.com/anixon604/bootcamp-cordapp/token/token"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/trace"
)

var logger = logging.MustGetLogger("token-sdk.notary")

// Service is the consensus service: it certifies that a transaction's inputs are not consumed elsewhere
// and assigns the transaction a position in the total order.
type Service interface {
	// Certify returns the certificate of stx or a *RejectionError
	Certify(ctx context.Context, stx *token.SignedTransaction) (*token.Certificate, error)
}

type SignatureService interface {
	token.VerifierProvider
	GetSigner(id token.Identity) (token.Signer, error)
}

// ContractVerifier checks a transaction against the contract of its command
type ContractVerifier interface {
	Verify(tx *token.Transaction) error
}

// Notary is the embedded consensus service. Certifications are serialised, the first certified
// transaction consuming an input wins.
type Notary struct {
	me         token.Identity
	validating bool
	sigService SignatureService
	contract   ContractVerifier
	store      *notarydb.Store
	metrics    *Metrics

	lock sync.Mutex
	now  func() time.Time
}

// New returns a notary signing as me. A validating notary also re-runs the contract verifier.
func New(me token.Identity, validating bool, sigService SignatureService, contract ContractVerifier, store *notarydb.Store, metrics *Metrics) *Notary {
	return &Notary{
		me:         me,
		validating: validating,
		sigService: sigService,
		contract:   contract,
		store:      store,
		metrics:    metrics,
		now:        time.Now,
	}
}

func (n *Notary) Identity() token.Identity {
	return n.me
}

func (n *Notary) Certify(ctx context.Context, stx *token.SignedTransaction) (*token.Certificate, error) {
	start := time.Now()
	cert, err := n.certify(ctx, stx)
	n.metrics.CertifyDuration.Observe(time.Since(start).Seconds())

	outcome := "certified"
	var rejection *RejectionError
	if errors.As(err, &rejection) {
		outcome = string(rejection.Kind)
		logger.Warnf("rejected transaction: %s", err)
	} else if err != nil {
		outcome = "error"
		logger.Errorf("failed certifying transaction: %s", err)
	}
	n.metrics.Certifications.With("outcome", outcome).Add(1)
	return cert, err
}

func (n *Notary) certify(ctx context.Context, stx *token.SignedTransaction) (*token.Certificate, error) {
	span := trace.SpanFromContext(ctx)
	if stx == nil || stx.Tx == nil {
		return nil, invalid("empty transaction")
	}
	tx := stx.Tx
	txID := tx.ID()
	if tx.Notary != n.me {
		return nil, invalid("transaction [%s] is addressed to notary [%s], this is [%s]", txID, tx.Notary, n.me)
	}
	seen := make(map[token.StateRef]struct{}, len(tx.Inputs))
	for _, in := range tx.Inputs {
		if _, ok := seen[in]; ok {
			return nil, invalid("transaction [%s] lists input [%s] more than once", txID, in)
		}
		seen[in] = struct{}{}
	}
	if n.validating {
		span.AddEvent("verify_contract")
		if err := n.contract.Verify(tx); err != nil {
			return nil, invalid("transaction [%s] does not verify: %s", txID, err)
		}
	}
	span.AddEvent("verify_signatures")
	if err := stx.VerifyRequiredSignatures(n.sigService); err != nil {
		return nil, invalid("transaction [%s] is not fully signed: %s", txID, err)
	}
	signer, err := n.sigService.GetSigner(n.me)
	if err != nil {
		return nil, errors.WithMessagef(err, "notary [%s] cannot sign", n.me)
	}

	n.lock.Lock()
	defer n.lock.Unlock()
	span.AddEvent("commit")
	cert, err := n.store.Commit(ctx, txID, tx.Inputs, func(order uint64) (*token.Certificate, error) {
		cert := &token.Certificate{
			TxID:      txID,
			Order:     order,
			Timestamp: n.now().UTC(),
			Notary:    n.me,
		}
		sigma, err := signer.Sign(cert.MarshalToSign())
		if err != nil {
			return nil, errors.Wrap(err, "failed signing certificate")
		}
		cert.Signature = sigma
		return cert, nil
	})
	var conflict *notarydb.ConflictError
	if errors.As(err, &conflict) {
		return nil, &RejectionError{Kind: Conflict, Reason: conflict.Error(), ConflictingTx: conflict.ConsumedBy}
	}
	if err != nil {
		return nil, err
	}
	logger.Infof("certified transaction [%s] at [%d]", txID, cert.Order)
	return cert, nil
}
