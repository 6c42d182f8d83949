/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package inmemory

import (
	"testing"
	"time"

	"github.com/anixon604/bootcamp-cordapp/token/services/comm"
	"github.com/anixon604/bootcamp-cordapp/token/services/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alice view.Identity = "O=Alice,L=London,C=GB"
	bob   view.Identity = "O=Bob,L=New York,C=US"
)

type handler chan view.Session

func (h handler) HandleSession(session view.Session, first *view.Message) { h <- session }

func TestIntercept(t *testing.T) {
	n := NewNetwork()
	aliceHub, bobHub := n.NewHub(alice), n.NewHub(bob)
	h := make(handler, 1)
	bobHub.SetResponderHandler(h)

	n.Intercept(func(msg *view.Message) (*view.Message, bool) {
		return msg, string(msg.Payload) != "drop"
	})
	n.Intercept(func(msg *view.Message) (*view.Message, bool) {
		msg.Payload = append(msg.Payload, '!')
		return msg, true
	})

	s, err := aliceHub.NewSession("protocol", "ctx", bob)
	require.NoError(t, err)
	payload := []byte("hello")
	require.NoError(t, s.Send(payload))
	assert.Equal(t, "hello", string(payload))

	var responder view.Session
	select {
	case responder = <-h:
	case <-time.After(5 * time.Second):
		t.Fatal("no session opened")
	}
	msg := <-responder.Receive()
	assert.Equal(t, "hello!", string(msg.Payload))

	require.NoError(t, s.Send([]byte("drop")))
	require.NoError(t, s.Send([]byte("again")))
	msg = <-responder.Receive()
	assert.Equal(t, "again!", string(msg.Payload))
}

func TestUnknownParty(t *testing.T) {
	n := NewNetwork()
	aliceHub := n.NewHub(alice)
	s, err := aliceHub.NewSession("protocol", "ctx", bob)
	require.NoError(t, err)
	assert.ErrorIs(t, s.Send([]byte("hello")), comm.ErrUnreachable)

	n.NewHub(bob).SetResponderHandler(make(handler, 1))
	n.Disconnect(alice)
	assert.ErrorIs(t, s.Send([]byte("hello")), comm.ErrUnreachable)
	n.Reconnect(alice)
	assert.NoError(t, s.Send([]byte("hello")))
}
