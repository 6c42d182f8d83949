/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ttx

import (
	"encoding/json"

	"github.com/anixon604/bootcamp-cordapp/token/services/utils/json/session"
	"github.com/anixon604/bootcamp-cordapp/token/token"
	"github.com/pkg/errors"
)

// MessageType tags the messages of the issuance protocol
type MessageType string

const (
	ProposeType        MessageType = "Propose"
	EndorseType        MessageType = "Endorse"
	RefuseType         MessageType = "Refuse"
	FinalityNoticeType MessageType = "FinalityNotice"
)

// Message is one of Propose, Endorse, Refuse, FinalityNotice
type Message interface {
	MessageType() MessageType
}

// Propose carries the transaction and the initiator's endorsement to the counterparty
type Propose struct {
	SessionID          string             `json:"session_id"`
	Transaction        *token.Transaction `json:"transaction"`
	InitiatorSignature token.Signature    `json:"initiator_signature"`
}

// Endorse carries the counterparty's endorsement back to the initiator
type Endorse struct {
	SessionID          string          `json:"session_id"`
	ResponderSignature token.Signature `json:"responder_signature"`
}

// Refuse ends the protocol, no endorsement is ever attached
type Refuse struct {
	SessionID string `json:"session_id"`
	Reason    string `json:"reason"`
}

// FinalityNotice tells the counterparty the transaction is notarised
type FinalityNotice struct {
	SessionID            string                   `json:"session_id"`
	CertifiedTransaction *token.SignedTransaction `json:"certified_transaction"`
	// NotarySignature is the certificate signed by the notary
	NotarySignature *token.Certificate `json:"notary_signature"`
}

func (m *Propose) MessageType() MessageType        { return ProposeType }
func (m *Endorse) MessageType() MessageType        { return EndorseType }
func (m *Refuse) MessageType() MessageType         { return RefuseType }
func (m *FinalityNotice) MessageType() MessageType { return FinalityNoticeType }

// Envelope is the wire form of a Message
type Envelope struct {
	Type MessageType     `json:"type"`
	Body json.RawMessage `json:"body"`
}

// Marshal wraps the message in its envelope
func Marshal(m Message) ([]byte, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrapf(err, "failed marshalling [%s]", m.MessageType())
	}
	return json.Marshal(&Envelope{Type: m.MessageType(), Body: body})
}

// Unmarshal decodes an envelope into the message it carries. Unknown fields are rejected.
func Unmarshal(raw []byte) (Message, error) {
	env := &Envelope{}
	if err := session.Unmarshal(raw, env); err != nil {
		return nil, err
	}
	var m Message
	switch env.Type {
	case ProposeType:
		m = &Propose{}
	case EndorseType:
		m = &Endorse{}
	case RefuseType:
		m = &Refuse{}
	case FinalityNoticeType:
		m = &FinalityNotice{}
	default:
		return nil, errors.Errorf("unknown message type [%s]", env.Type)
	}
	if err := session.Unmarshal(env.Body, m); err != nil {
		return nil, errors.WithMessagef(err, "invalid [%s]", env.Type)
	}
	return m, nil
}
