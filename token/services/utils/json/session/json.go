/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package session

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/anixon604/bootcamp-cordapp/token/services/logging"
	"github.com/anixon604/bootcamp-cordapp/token/services/view"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap/zapcore"
)

var logger = logging.MustGetLogger("token-sdk.utils.json.session")

var (
	// ErrTimeout is returned when no message arrives in time
	ErrTimeout = errors.New("time out reached")
	// ErrRemoteError is returned when the counterparty aborted the session
	ErrRemoteError = errors.New("received error from remote")
	// ErrContextDone is returned when the context of the session is cancelled
	ErrContextDone = errors.New("context done")
	// ErrSessionClosed is returned when the session stops delivering messages
	ErrSessionClosed = errors.New("session closed")
)

// JSONSession exchanges JSON documents over a view session.
// Every receive is bounded by a timeout and by the context of the view.
type JSONSession struct {
	s   view.Session
	ctx context.Context
}

// NewJSON opens a session to the passed party on behalf of the caller
func NewJSON(context view.Context, caller view.View, party view.Identity) (*JSONSession, error) {
	s, err := context.GetSession(caller, party)
	if err != nil {
		return nil, err
	}
	return &JSONSession{s: s, ctx: context.Context()}, nil
}

// JSON wraps the session that triggered a responder
func JSON(context view.Context) *JSONSession {
	return &JSONSession{s: context.Session(), ctx: context.Context()}
}

func (j *JSONSession) Info() view.SessionInfo {
	return j.s.Info()
}

// ReceiveWithTimeout decodes the next message into state, unknown fields are rejected
func (j *JSONSession) ReceiveWithTimeout(state interface{}, d time.Duration) error {
	raw, err := j.ReceiveRawWithTimeout(d)
	if err != nil {
		return err
	}
	return Unmarshal(raw, state)
}

// ReceiveRawWithTimeout returns the payload of the next message.
// A message with the error status is returned as ErrRemoteError,
// a closed session as ErrSessionClosed.
func (j *JSONSession) ReceiveRawWithTimeout(d time.Duration) ([]byte, error) {
	span := trace.SpanFromContext(j.ctx)
	timer := time.NewTimer(d)
	defer timer.Stop()

	span.AddEvent("wait_receive")
	var msg *view.Message
	select {
	case m, ok := <-j.s.Receive():
		if !ok || m == nil {
			return nil, errors.Wrapf(ErrSessionClosed, "session [%s]", j.s.Info().ID)
		}
		msg = m
	case <-timer.C:
		span.AddEvent("timeout")
		return nil, errors.Wrapf(ErrTimeout, "no message after [%s]", d)
	case <-j.ctx.Done():
		return nil, errors.Wrapf(ErrContextDone, "[%s]", j.ctx.Err())
	}
	span.AddEvent("received_message")
	if msg.Status == view.ERROR {
		return nil, errors.Wrapf(ErrRemoteError, "[%s]", string(msg.Payload))
	}
	if logger.IsEnabledFor(zapcore.DebugLevel) {
		logger.Debugf("[%s] received [%s]", j.s.Info().ID, logging.Base64(msg.Payload))
	}
	return msg.Payload, nil
}

// Send marshals state and sends it within the context of the view
func (j *JSONSession) Send(state interface{}) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return errors.Wrap(err, "failed encoding message")
	}
	return j.SendRaw(j.ctx, raw)
}

func (j *JSONSession) SendRaw(ctx context.Context, raw []byte) error {
	if logger.IsEnabledFor(zapcore.DebugLevel) {
		logger.Debugf("[%s] sending [%s]", j.s.Info().ID, logging.Base64(raw))
	}
	return j.s.SendWithContext(ctx, raw)
}

// SendError tells the counterparty that this side aborted
func (j *JSONSession) SendError(reason string) error {
	logger.Debugf("[%s] sending error [%s]", j.s.Info().ID, reason)
	return j.s.SendError([]byte(reason))
}

// Unmarshal decodes raw into state rejecting unknown fields
func Unmarshal(raw []byte, state interface{}) error {
	d := json.NewDecoder(bytes.NewReader(raw))
	d.DisallowUnknownFields()
	if err := d.Decode(state); err != nil {
		return errors.Wrap(err, "failed decoding message")
	}
	return nil
}
