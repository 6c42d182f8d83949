/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ttx

import (
	"context"
	"sync"

	"github.com/anixon604/bootcamp-cordapp/token/services/view"
	"github.com/hashicorp/go-uuid"
	"github.com/pkg/errors"
)

// LocalBidirectionalChannel is a bidirectional channel that is used to simulate
// a session between two views (let's call them L and R) running in the same process.
type LocalBidirectionalChannel struct {
	left  *localSession
	right *localSession
}

// NewLocalBidirectionalChannel creates a new bidirectional channel between the two parties
func NewLocalBidirectionalChannel(caller string, contextID string, left, right view.Identity) (*LocalBidirectionalChannel, error) {
	id, err := uuid.GenerateUUID()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate session ID")
	}
	lr := make(chan *view.Message, 10)
	rl := make(chan *view.Message, 10)
	return &LocalBidirectionalChannel{
		left: &localSession{
			me:           left,
			contextID:    contextID,
			info:         view.SessionInfo{ID: id, Caller: caller, Endpoint: right},
			readChannel:  rl,
			writeChannel: lr,
		},
		right: &localSession{
			me:           right,
			contextID:    contextID,
			info:         view.SessionInfo{ID: id, Caller: caller, Endpoint: left},
			readChannel:  lr,
			writeChannel: rl,
		},
	}, nil
}

// LeftSession returns the session from the L to R
func (c *LocalBidirectionalChannel) LeftSession() view.Session {
	return c.left
}

// RightSession returns the session from the R to L
func (c *LocalBidirectionalChannel) RightSession() view.Session {
	return c.right
}

// localSession has a read channel and a write channel
type localSession struct {
	me           view.Identity
	contextID    string
	lock         sync.RWMutex
	info         view.SessionInfo
	readChannel  chan *view.Message
	writeChannel chan *view.Message
}

func (s *localSession) Info() view.SessionInfo {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.info
}

func (s *localSession) Send(payload []byte) error {
	return s.send(context.Background(), view.OK, payload)
}

func (s *localSession) SendWithContext(ctx context.Context, payload []byte) error {
	return s.send(ctx, view.OK, payload)
}

func (s *localSession) SendError(payload []byte) error {
	return s.send(context.Background(), view.ERROR, payload)
}

func (s *localSession) send(ctx context.Context, status int32, payload []byte) error {
	info := s.Info()
	if info.Closed {
		return errors.New("session is closed")
	}
	msg := &view.Message{
		SessionID:    info.ID,
		ContextID:    s.contextID,
		Caller:       info.Caller,
		FromEndpoint: s.me,
		ToEndpoint:   info.Endpoint,
		Status:       status,
		Payload:      payload,
	}
	select {
	case s.writeChannel <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *localSession) Receive() <-chan *view.Message {
	return s.readChannel
}

func (s *localSession) Close() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.info.Closed = true
}
