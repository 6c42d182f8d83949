/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ttx

import (
	"context"
	"sync"

	"github.com/anixon604/bootcamp-cordapp/token/services/contract"
	"github.com/anixon604/bootcamp-cordapp/token/services/utils/json/session"
	"github.com/anixon604/bootcamp-cordapp/token/services/view"
	"github.com/anixon604/bootcamp-cordapp/token/token"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/trace"
)

// IssueResponder is registered against IssueProtocol.
// Every incoming session gets its own IssueResponderView.
type IssueResponder struct {
	services *Services
	opts     []Option
}

func NewIssueResponder(services *Services, opts ...Option) *IssueResponder {
	return &IssueResponder{services: services, opts: opts}
}

func (r *IssueResponder) Call(context view.Context) (interface{}, error) {
	return NewIssueResponderView(r.services, r.opts...).Call(context)
}

// IssueResponderView answers an issuance proposal received on the session of its context.
// It endorses the transaction only if it verifies, then waits for the finality notice and records the transaction.
// The result is the *token.FinalTransaction.
type IssueResponderView struct {
	services *Services
	opts     []Option

	lock  sync.RWMutex
	state ResponderState
}

func NewIssueResponderView(services *Services, opts ...Option) *IssueResponderView {
	return &IssueResponderView{services: services, opts: opts}
}

// State returns the current state of the responder
func (r *IssueResponderView) State() ResponderState {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.state
}

func (r *IssueResponderView) setState(s ResponderState) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.state = s
}

func (r *IssueResponderView) Call(context view.Context) (interface{}, error) {
	if err := r.services.validate(); err != nil {
		return nil, errors.Wrap(ErrInvalidInput, err.Error())
	}
	ft, err := r.respond(context)
	if err != nil {
		if r.State() != ResponderRefused {
			r.setState(ResponderAborted)
		}
		return nil, err
	}
	return ft, nil
}

func (r *IssueResponderView) respond(context view.Context) (*token.FinalTransaction, error) {
	options, err := CompileOpts(r.opts...)
	if err != nil {
		return nil, err
	}
	ctx := context.Context()
	span := trace.SpanFromContext(ctx)
	js := session.JSON(context)

	r.setState(ResponderAwaitingProposal)
	span.AddEvent("wait_proposal")
	m, err := receive(js, options.SessionTimeout)
	if err != nil {
		return nil, err
	}
	propose, ok := m.(*Propose)
	if !ok {
		return nil, abort(ChannelFailure, errors.Errorf("expected [%s], got [%s]", ProposeType, m.MessageType()))
	}

	r.setState(ResponderVerifying)
	span.AddEvent("verify")
	if err := r.check(context, js.Info(), propose, options); err != nil {
		return nil, r.refuse(ctx, js, err)
	}
	tx := propose.Transaction
	sig, err := r.services.SigService.Sign(context.Me(), tx)
	if err != nil {
		return nil, r.refuse(ctx, js, errors.WithMessage(err, "failed signing"))
	}
	if err := send(ctx, js, &Endorse{SessionID: js.Info().ID, ResponderSignature: sig}); err != nil {
		return nil, err
	}
	r.setState(ResponderSigned)
	r.services.Metrics.EndorsedTransactions.Add(1)

	// the initiator has up to its finality timeout to reach the notary, then sends the notice
	r.setState(ResponderAwaitingFinality)
	ft, err := awaitFinality(ctx, js, tx.ID(), r.services.SigService, options.FinalityTimeout+options.SessionTimeout)
	if err != nil {
		return nil, err
	}
	if err := r.services.Vault.Append(ctx, ft); err != nil {
		return nil, errors.WithMessagef(err, "failed recording [%s]", ft.ID())
	}
	r.setState(ResponderFinalized)
	r.services.Metrics.AcceptedTransactions.Add(1)
	logger.Infof("accepted [%s] from [%s]", ft.ID(), js.Info().Endpoint)
	return ft, nil
}

// check runs the contract, then the role checks, then the application check
func (r *IssueResponderView) check(context view.Context, info view.SessionInfo, propose *Propose, options *Options) error {
	if propose.SessionID != info.ID {
		return errors.Errorf("proposal for session [%s], this is [%s]", propose.SessionID, info.ID)
	}
	tx := propose.Transaction
	if tx == nil {
		return errors.New("empty proposal")
	}
	if err := r.services.Contract.Verify(tx); err != nil {
		return err
	}

	me := context.Me()
	counterparty := info.Endpoint
	signers := tx.RequiredSigners()
	if !signers.Contains(me) {
		return errors.Errorf("[%s] is not a required signer", me)
	}
	if propose.InitiatorSignature.Signer != counterparty || !signers.Contains(counterparty) {
		return errors.Errorf("proposal must be signed by [%s], a required signer", counterparty)
	}
	stx := token.NewSignedTransaction(tx)
	stx.AddSignature(propose.InitiatorSignature)
	if err := stx.VerifySignature(counterparty, r.services.SigService); err != nil {
		return errors.WithMessage(err, "invalid initiator signature")
	}

	if options.CheckTransaction != nil {
		if err := options.CheckTransaction(tx); err != nil {
			return errors.WithMessage(err, "transaction check failed")
		}
	}
	return nil
}

func (r *IssueResponderView) refuse(ctx context.Context, js jsonSession, cause error) error {
	label := "other"
	if reason, ok := contract.ReasonOf(cause); ok {
		label = string(reason)
	}
	r.services.Metrics.RefusedTransactions.With("reason", label).Add(1)
	r.setState(ResponderRefused)
	logger.Warnf("refusing proposal on session [%s] from [%s]: %s", js.Info().ID, js.Info().Endpoint, cause)

	if err := send(ctx, js, &Refuse{SessionID: js.Info().ID, Reason: cause.Error()}); err != nil {
		logger.Warnf("failed sending refusal to [%s]: %s", js.Info().Endpoint, err)
	}
	return abort(ProtocolRefusal, cause)
}
