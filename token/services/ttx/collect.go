/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ttx

import (
	"context"
	"fmt"
	"time"

	"github.com/anixon604/bootcamp-cordapp/token/services/utils/json/session"
	"github.com/anixon604/bootcamp-cordapp/token/services/view"
	"github.com/anixon604/bootcamp-cordapp/token/token"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap/zapcore"
)

// RefusalError carries the reason sent by a counterparty that refused to endorse
type RefusalError struct {
	Party  token.Identity
	Reason string
}

func (e *RefusalError) Error() string {
	return fmt.Sprintf("[%s] refused to endorse: %s", e.Party, e.Reason)
}

type jsonSession interface {
	Info() view.SessionInfo
	ReceiveRawWithTimeout(d time.Duration) ([]byte, error)
	SendRaw(ctx context.Context, raw []byte) error
	SendError(err string) error
}

// collectEndorsement proposes stx to party and adds the party's endorsement to it
func collectEndorsement(ctx context.Context, js jsonSession, stx *token.SignedTransaction, initiatorSignature token.Signature, party token.Identity, vp token.VerifierProvider, timeout time.Duration) error {
	span := trace.SpanFromContext(ctx)
	sessionID := js.Info().ID
	if logger.IsEnabledFor(zapcore.DebugLevel) {
		logger.Debugf("[%s] proposing [%s] to [%s]", sessionID, stx.ID(), party)
	}

	span.AddEvent("send_proposal")
	err := send(ctx, js, &Propose{
		SessionID:          sessionID,
		Transaction:        stx.Tx,
		InitiatorSignature: initiatorSignature,
	})
	if err != nil {
		return err
	}

	span.AddEvent("wait_endorsement")
	m, err := receive(js, timeout)
	if err != nil {
		return err
	}
	switch msg := m.(type) {
	case *Refuse:
		return abort(ProtocolRefusal, &RefusalError{Party: party, Reason: msg.Reason})
	case *Endorse:
		if msg.SessionID != sessionID {
			return abort(ProtocolRefusal, errors.Errorf("endorsement for session [%s], expected [%s]", msg.SessionID, sessionID))
		}
		if msg.ResponderSignature.Signer != party {
			return abort(ProtocolRefusal, errors.Errorf("endorsement signed by [%s], expected [%s]", msg.ResponderSignature.Signer, party))
		}
		stx.AddSignature(msg.ResponderSignature)
		if err := stx.VerifySignature(party, vp); err != nil {
			return abort(ProtocolRefusal, errors.WithMessagef(err, "invalid endorsement from [%s]", party))
		}
		if missing := stx.MissingSigners(); len(missing) != 0 {
			return abort(ProtocolRefusal, errors.Errorf("transaction still misses signatures from %v", missing.Strings()))
		}
		span.AddEvent("endorsed")
		return nil
	default:
		return abort(ChannelFailure, errors.Errorf("expected [%s] or [%s], got [%s]", EndorseType, RefuseType, m.MessageType()))
	}
}

func send(ctx context.Context, js jsonSession, m Message) error {
	raw, err := Marshal(m)
	if err != nil {
		return abort(ChannelFailure, err)
	}
	if err := js.SendRaw(ctx, raw); err != nil {
		return abort(ChannelFailure, errors.WithMessagef(err, "failed sending [%s]", m.MessageType()))
	}
	return nil
}

func receive(js jsonSession, timeout time.Duration) (Message, error) {
	raw, err := js.ReceiveRawWithTimeout(timeout)
	if err != nil {
		if errors.Is(err, session.ErrTimeout) || errors.Is(err, session.ErrContextDone) {
			return nil, abort(Timeout, err)
		}
		return nil, abort(ChannelFailure, err)
	}
	m, err := Unmarshal(raw)
	if err != nil {
		return nil, abort(ChannelFailure, err)
	}
	return m, nil
}

// notifyAbort tells the counterparty to stop waiting, unless it is the one that ended the protocol
func notifyAbort(js jsonSession, err error) {
	var refusal *RefusalError
	if errors.As(err, &refusal) || errors.Is(err, session.ErrRemoteError) || errors.Is(err, session.ErrSessionClosed) {
		return
	}
	if sendErr := js.SendError(err.Error()); sendErr != nil {
		logger.Debugf("failed notifying abort to [%s]: %s", js.Info().Endpoint, sendErr)
	}
}
