/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package token

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// StateType tags the variant of a ledger state
type StateType string

// TokenStateType is the type of TokenState
const TokenStateType StateType = "TokenState"

// State is an immutable record representing a fact at a point in ledger history.
// States are a closed set of variants, each one registered with RegisterStateType.
type State interface {
	StateType() StateType
	// Participants returns the identities entitled to see and be notified of this state
	Participants() []Identity
	// Bytes returns the canonical encoding of the state
	Bytes() []byte
	SetFromBytes(raw []byte) error
}

// StateRef points to an output of a previously recorded transaction
type StateRef struct {
	// TxID is the identifier of the transaction that created the state
	TxID string `json:"tx_id"`
	// Index is the position of the state among the outputs of that transaction
	Index uint32 `json:"index"`
}

func (r StateRef) String() string {
	return fmt.Sprintf("[%s:%d]", r.TxID, r.Index)
}

// StateAndRef couples a state with its position in the ledger
type StateAndRef struct {
	State State
	Ref   StateRef
}

// TokenState is the record created by an issuance.
// Amount is not validated here, the contract rejects non-positive amounts at verification time.
type TokenState struct {
	Issuer Identity `json:"issuer"`
	Owner  Identity `json:"owner"`
	Amount int64    `json:"amount"`
}

func NewTokenState(issuer, owner Identity, amount int64) *TokenState {
	return &TokenState{Issuer: issuer, Owner: owner, Amount: amount}
}

func (t *TokenState) StateType() StateType {
	return TokenStateType
}

// Participants is always {Issuer, Owner}
func (t *TokenState) Participants() []Identity {
	return []Identity{t.Issuer, t.Owner}
}

func (t *TokenState) Bytes() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, string(t.Issuer))
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendString(b, string(t.Owner))
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(t.Amount))
	return b
}

func (t *TokenState) SetFromBytes(raw []byte) error {
	fields, err := consumeFields(raw)
	if err != nil {
		return errors.Wrap(err, "failed decoding token state")
	}
	var s TokenState
	for _, f := range fields {
		switch f.num {
		case 1:
			s.Issuer = Identity(f.bytes)
		case 2:
			s.Owner = Identity(f.bytes)
		case 3:
			s.Amount = protowire.DecodeZigZag(f.varint)
		default:
			return errors.Errorf("unexpected field [%d] in token state", f.num)
		}
	}
	*t = s
	return nil
}

func (t *TokenState) String() string {
	return fmt.Sprintf("TokenState{issuer=%s, owner=%s, amount=%d}", t.Issuer, t.Owner, t.Amount)
}

var (
	stateTypesLock sync.RWMutex
	stateTypes     = map[StateType]func() State{
		TokenStateType: func() State { return &TokenState{} },
	}
)

// RegisterStateType makes a state variant decodable from its canonical encoding
func RegisterStateType(t StateType, constructor func() State) {
	stateTypesLock.Lock()
	defer stateTypesLock.Unlock()
	stateTypes[t] = constructor
}

// NewStateFromBytes decodes a state of the passed type
func NewStateFromBytes(t StateType, raw []byte) (State, error) {
	stateTypesLock.RLock()
	constructor, ok := stateTypes[t]
	stateTypesLock.RUnlock()
	if !ok {
		return nil, errors.Errorf("unknown state type [%s]", t)
	}
	s := constructor()
	if err := s.SetFromBytes(raw); err != nil {
		return nil, errors.WithMessagef(err, "failed decoding state of type [%s]", t)
	}
	return s, nil
}
