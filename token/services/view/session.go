/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package view

import (
	"context"
)

const (
	OK    = 1
	ERROR = 2
)

// Message is the unit exchanged over a session
type Message struct {
	SessionID    string   `json:"session_id"`
	ContextID    string   `json:"context_id"`
	Caller       string   `json:"caller"`
	FromEndpoint Identity `json:"from"`
	ToEndpoint   Identity `json:"to"`
	Status       int32    `json:"status"`
	Payload      []byte   `json:"payload"`
}

// SessionInfo describes a session
type SessionInfo struct {
	ID string
	// Caller is the protocol identifier of the view that opened the session
	Caller string
	// Endpoint is the counterparty
	Endpoint Identity
	Closed   bool
}

// Session is a bidirectional, ordered channel between two parties
type Session interface {
	Info() SessionInfo
	// Send sends the payload to the counterparty
	Send(payload []byte) error
	// SendWithContext sends the payload to the counterparty, the context bounds the delivery
	SendWithContext(ctx context.Context, payload []byte) error
	// SendError notifies the counterparty that this side aborted
	SendError(payload []byte) error
	// Receive returns the channel of incoming messages, in send order
	Receive() <-chan *Message
	Close()
}
