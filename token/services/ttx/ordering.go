/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ttx

import (
	"context"
	"time"

	"github.com/anixon604/bootcamp-cordapp/token/services/notary"
	"github.com/anixon604/bootcamp-cordapp/token/token"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/trace"
)

// order submits the fully signed transaction to the notary and checks the returned certificate
func order(ctx context.Context, services *Services, stx *token.SignedTransaction, timeout time.Duration) (*token.FinalTransaction, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	span := trace.SpanFromContext(ctx)
	span.AddEvent("certify")
	cert, err := services.Notary.Certify(ctx, stx)
	if err != nil {
		var rejection *notary.RejectionError
		switch {
		case errors.As(err, &rejection):
			return nil, abort(ConsensusRejected, err)
		case ctx.Err() != nil:
			return nil, abort(Timeout, errors.WithMessagef(err, "no certificate for [%s] after [%s]", stx.ID(), timeout))
		default:
			return nil, abort(ChannelFailure, errors.WithMessagef(err, "failed reaching notary [%s]", stx.Tx.Notary))
		}
	}
	span.AddEvent("certified")

	ft := &token.FinalTransaction{Transaction: stx, Certificate: cert}
	if err := ft.Verify(services.SigService); err != nil {
		return nil, abort(ConsensusRejected, errors.WithMessage(err, "invalid certificate"))
	}
	return ft, nil
}
