/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package token

import (
	"sync"

	"github.com/pkg/errors"
)

// CommandType tags the variant of a command
type CommandType string

// IssueCommandType is the type of the Issue command
const IssueCommandType CommandType = "Issue"

// CommandData is the typed intent attached to a transaction.
// It selects which verification rules apply.
type CommandData interface {
	CommandType() CommandType
	Bytes() []byte
	SetFromBytes(raw []byte) error
}

// Command couples a command value with the identities required to sign the transaction
type Command struct {
	Value   CommandData
	Signers Identities
}

// Issue creates new token states out of nothing.
type Issue struct{}

func (i *Issue) CommandType() CommandType {
	return IssueCommandType
}

func (i *Issue) Bytes() []byte {
	return nil
}

func (i *Issue) SetFromBytes(raw []byte) error {
	if len(raw) != 0 {
		return errors.New("issue command carries no payload")
	}
	return nil
}

var (
	commandTypesLock sync.RWMutex
	commandTypes     = map[CommandType]func() CommandData{
		IssueCommandType: func() CommandData { return &Issue{} },
	}
)

// RegisterCommandType makes a command variant decodable from its canonical encoding
func RegisterCommandType(t CommandType, constructor func() CommandData) {
	commandTypesLock.Lock()
	defer commandTypesLock.Unlock()
	commandTypes[t] = constructor
}

// NewCommandFromBytes decodes a command of the passed type
func NewCommandFromBytes(t CommandType, raw []byte) (CommandData, error) {
	commandTypesLock.RLock()
	constructor, ok := commandTypes[t]
	commandTypesLock.RUnlock()
	if !ok {
		return nil, errors.Errorf("unknown command type [%s]", t)
	}
	c := constructor()
	if err := c.SetFromBytes(raw); err != nil {
		return nil, errors.WithMessagef(err, "failed decoding command of type [%s]", t)
	}
	return c, nil
}
