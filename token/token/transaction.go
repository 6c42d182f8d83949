/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package token

import (
	"encoding/hex"
	"encoding/json"

	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"
)

// Output is a state tagged with the identifier of the contract that governs it
type Output struct {
	Contract string
	State    State
}

type outputJSON struct {
	Contract string    `json:"contract"`
	Type     StateType `json:"type"`
	Data     []byte    `json:"data"`
}

func (o Output) MarshalJSON() ([]byte, error) {
	if o.State == nil {
		return nil, errors.New("output has no state")
	}
	return json.Marshal(&outputJSON{
		Contract: o.Contract,
		Type:     o.State.StateType(),
		Data:     o.State.Bytes(),
	})
}

func (o *Output) UnmarshalJSON(raw []byte) error {
	var j outputJSON
	if err := json.Unmarshal(raw, &j); err != nil {
		return err
	}
	s, err := NewStateFromBytes(j.Type, j.Data)
	if err != nil {
		return err
	}
	o.Contract = j.Contract
	o.State = s
	return nil
}

type commandJSON struct {
	Type    CommandType `json:"type"`
	Data    []byte      `json:"data,omitempty"`
	Signers Identities  `json:"signers"`
}

func (c Command) MarshalJSON() ([]byte, error) {
	if c.Value == nil {
		return nil, errors.New("command has no value")
	}
	return json.Marshal(&commandJSON{
		Type:    c.Value.CommandType(),
		Data:    c.Value.Bytes(),
		Signers: c.Signers,
	})
}

func (c *Command) UnmarshalJSON(raw []byte) error {
	var j commandJSON
	if err := json.Unmarshal(raw, &j); err != nil {
		return err
	}
	v, err := NewCommandFromBytes(j.Type, j.Data)
	if err != nil {
		return err
	}
	c.Value = v
	c.Signers = j.Signers
	return nil
}

// Attachment is an opaque blob carried by a transaction, the verifier does not interpret it
type Attachment struct {
	ID   string `json:"id"`
	Data []byte `json:"data,omitempty"`
}

// Transaction is a proposed atomic change to the ledger.
// It is either fully accepted or fully rejected.
type Transaction struct {
	Notary      Identity     `json:"notary"`
	Inputs      []StateRef   `json:"inputs,omitempty"`
	Outputs     []Output     `json:"outputs"`
	Commands    []Command    `json:"commands"`
	Attachments []Attachment `json:"attachments,omitempty"`
	// Salt makes transactions with the same content distinct
	Salt []byte `json:"salt,omitempty"`
}

// MarshalToSign returns the canonical encoding of the transaction.
// Endorsements and the transaction id are computed over it.
func (t *Transaction) MarshalToSign() []byte {
	var b []byte
	b = appendStringField(b, 1, string(t.Notary))
	for _, in := range t.Inputs {
		var ref []byte
		ref = appendStringField(ref, 1, in.TxID)
		ref = appendVarintField(ref, 2, uint64(in.Index))
		b = appendBytesField(b, 2, ref)
	}
	for _, out := range t.Outputs {
		var o []byte
		o = appendStringField(o, 1, out.Contract)
		if out.State != nil {
			o = appendStringField(o, 2, string(out.State.StateType()))
			o = appendBytesField(o, 3, out.State.Bytes())
		}
		b = appendBytesField(b, 3, o)
	}
	for _, cmd := range t.Commands {
		var c []byte
		if cmd.Value != nil {
			c = appendStringField(c, 1, string(cmd.Value.CommandType()))
			c = appendBytesField(c, 2, cmd.Value.Bytes())
		}
		for _, s := range cmd.Signers {
			c = appendStringField(c, 3, string(s))
		}
		b = appendBytesField(b, 4, c)
	}
	for _, a := range t.Attachments {
		var att []byte
		att = appendStringField(att, 1, a.ID)
		att = appendBytesField(att, 2, a.Data)
		b = appendBytesField(b, 5, att)
	}
	if len(t.Salt) != 0 {
		b = appendBytesField(b, 6, t.Salt)
	}
	return b
}

// ID returns the identifier of the transaction, the hex encoded sha3-256 digest of its canonical encoding
func (t *Transaction) ID() string {
	digest := sha3.Sum256(t.MarshalToSign())
	return hex.EncodeToString(digest[:])
}

// RequiredSigners returns the ordered union of the signers of all commands
func (t *Transaction) RequiredSigners() Identities {
	var res Identities
	for _, cmd := range t.Commands {
		res = append(res, cmd.Signers...)
	}
	return res.Dedup()
}

// OutputsOf returns the outputs whose state has the passed type
func (t *Transaction) OutputsOf(typ StateType) []Output {
	var res []Output
	for _, o := range t.Outputs {
		if o.State != nil && o.State.StateType() == typ {
			res = append(res, o)
		}
	}
	return res
}

// Participants returns the ordered union of the participants of all output states
func (t *Transaction) Participants() Identities {
	var res Identities
	for _, o := range t.Outputs {
		if o.State != nil {
			res = append(res, o.State.Participants()...)
		}
	}
	return res.Dedup()
}
