/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ttx

import (
	"sync"
	"time"

	"github.com/anixon604/bootcamp-cordapp/token/services/contract"
	"github.com/anixon604/bootcamp-cordapp/token/services/utils/json/session"
	"github.com/anixon604/bootcamp-cordapp/token/services/view"
	"github.com/anixon604/bootcamp-cordapp/token/token"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/trace"
)

// IssueView issues a token from the node running it to owner.
// The view does the following:
// 1. It builds the transaction and verifies it against the token contract.
// 2. It collects the owner's endorsement.
// 3. It has the transaction certified by the notary and records it in the vault.
// 4. It sends the finality notice to the owner.
// The result is the *token.FinalTransaction, any failure before certification is an *AbortError.
type IssueView struct {
	owner    token.Identity
	amount   int64
	services *Services
	opts     []Option

	lock  sync.RWMutex
	state InitiatorState
	txID  string
}

func NewIssueView(services *Services, owner token.Identity, amount int64, opts ...Option) *IssueView {
	return &IssueView{
		owner:    owner,
		amount:   amount,
		services: services,
		opts:     opts,
	}
}

func (v *IssueView) ProtocolID() string {
	return IssueProtocol
}

// State returns the current state of the issuance
func (v *IssueView) State() InitiatorState {
	v.lock.RLock()
	defer v.lock.RUnlock()
	return v.state
}

// TxID returns the id of the transaction, empty until it is built
func (v *IssueView) TxID() string {
	v.lock.RLock()
	defer v.lock.RUnlock()
	return v.txID
}

func (v *IssueView) setState(s InitiatorState) {
	v.lock.Lock()
	defer v.lock.Unlock()
	v.state = s
}

func (v *IssueView) Call(context view.Context) (interface{}, error) {
	if err := v.services.validate(); err != nil {
		return nil, errors.Wrap(ErrInvalidInput, err.Error())
	}
	start := time.Now()
	ft, err := v.issue(context)
	v.services.Metrics.IssueDuration.Observe(time.Since(start).Seconds())

	outcome := "finalized"
	if ft == nil {
		v.setState(InitiatorAborted)
		outcome = "error"
		if reason, ok := ReasonOf(err); ok {
			outcome = string(reason)
		}
		logger.Warnf("issuance of [%d] to [%s] failed: %s", v.amount, v.owner, err)
	}
	v.services.Metrics.IssuedTransactions.With("outcome", outcome).Add(1)
	if ft == nil {
		return nil, err
	}
	return ft, err
}

func (v *IssueView) issue(context view.Context) (*token.FinalTransaction, error) {
	options, err := CompileOpts(v.opts...)
	if err != nil {
		return nil, err
	}
	me := context.Me()
	if v.owner.IsNone() {
		return nil, errors.Wrap(ErrInvalidInput, "no owner")
	}
	if v.owner == me {
		return nil, errors.Wrapf(ErrInvalidInput, "[%s] cannot issue to itself", me)
	}
	span := trace.SpanFromContext(context.Context())

	v.setState(InitiatorBuilding)
	tx, err := token.NewTransactionBuilder(v.services.NotaryID).
		AddOutputState(token.NewTokenState(me, v.owner, v.amount), contract.TokenContractID).
		AddCommand(&token.Issue{}, me, v.owner).
		Build()
	if err != nil {
		return nil, errors.WithMessage(err, "failed building transaction")
	}
	v.lock.Lock()
	v.txID = tx.ID()
	v.lock.Unlock()

	span.AddEvent("verify")
	if err := v.services.Contract.Verify(tx); err != nil {
		return nil, abort(ContractViolation, err)
	}
	v.setState(InitiatorLocallyVerified)

	sig, err := v.services.SigService.Sign(me, tx)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed signing [%s]", tx.ID())
	}
	stx := token.NewSignedTransaction(tx)
	stx.AddSignature(sig)

	v.setState(InitiatorAwaitingCounterEndorsement)
	js, err := session.NewJSON(context, v, v.owner)
	if err != nil {
		return nil, abort(ChannelFailure, err)
	}
	if err := collectEndorsement(context.Context(), js, stx, sig, v.owner, v.services.SigService, options.SessionTimeout); err != nil {
		notifyAbort(js, err)
		return nil, err
	}

	v.setState(InitiatorAwaitingFinality)
	ft, err := order(context.Context(), v.services, stx, options.FinalityTimeout)
	if err != nil {
		notifyAbort(js, err)
		return nil, err
	}

	// the transaction is final from here on, the owner is told even if the local vault fails
	appendErr := v.services.Vault.Append(context.Context(), ft)
	v.setState(InitiatorFinalized)
	distribute(context.Context(), js, ft)
	if appendErr != nil {
		return ft, errors.WithMessagef(appendErr, "transaction [%s] is final but was not recorded", ft.ID())
	}
	logger.Infof("issued [%d] to [%s] in [%s]", v.amount, v.owner, ft.ID())
	return ft, nil
}
