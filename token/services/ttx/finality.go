/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ttx

import (
	"context"
	"time"

	"github.com/anixon604/bootcamp-cordapp/token/token"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap/zapcore"
)

// distribute sends the finality notice to the counterparty.
// The transaction is final whatever the outcome, so failures are only logged.
func distribute(ctx context.Context, js jsonSession, ft *token.FinalTransaction) {
	trace.SpanFromContext(ctx).AddEvent("distribute")
	err := send(ctx, js, &FinalityNotice{
		SessionID:            js.Info().ID,
		CertifiedTransaction: ft.Transaction,
		NotarySignature:      ft.Certificate,
	})
	if err != nil {
		logger.Warnf("failed notifying finality of [%s] to [%s]: %s", ft.ID(), js.Info().Endpoint, err)
	}
}

// awaitFinality waits for the finality notice of txID and checks it
func awaitFinality(ctx context.Context, js jsonSession, txID string, vp token.VerifierProvider, timeout time.Duration) (*token.FinalTransaction, error) {
	span := trace.SpanFromContext(ctx)
	if logger.IsEnabledFor(zapcore.DebugLevel) {
		logger.Debugf("[%s] waiting finality of [%s]", js.Info().ID, txID)
	}
	span.AddEvent("wait_finality")
	m, err := receive(js, timeout)
	if err != nil {
		return nil, err
	}
	notice, ok := m.(*FinalityNotice)
	if !ok {
		return nil, abort(ChannelFailure, errors.Errorf("expected [%s], got [%s]", FinalityNoticeType, m.MessageType()))
	}
	if notice.SessionID != js.Info().ID {
		return nil, abort(ProtocolRefusal, errors.Errorf("finality notice for session [%s], expected [%s]", notice.SessionID, js.Info().ID))
	}
	if notice.CertifiedTransaction == nil || notice.CertifiedTransaction.Tx == nil || notice.NotarySignature == nil {
		return nil, abort(ChannelFailure, errors.New("incomplete finality notice"))
	}
	if id := notice.CertifiedTransaction.ID(); id != txID {
		return nil, abort(ProtocolRefusal, errors.Wrapf(ErrTransactionMismatch, "notice for [%s], endorsed [%s]", id, txID))
	}
	ft := &token.FinalTransaction{Transaction: notice.CertifiedTransaction, Certificate: notice.NotarySignature}
	if err := ft.Verify(vp); err != nil {
		return nil, abort(ConsensusRejected, errors.WithMessagef(err, "finality notice for [%s] does not verify", txID))
	}
	span.AddEvent("final")
	return ft, nil
}
