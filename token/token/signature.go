/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package token

import (
	"time"

	"github.com/pkg/errors"
)

// Signer signs messages on behalf of an identity
type Signer interface {
	Sign(message []byte) ([]byte, error)
}

// Verifier checks signatures produced by a given identity
type Verifier interface {
	Verify(message, sigma []byte) error
}

// VerifierProvider resolves the verifier of an identity
type VerifierProvider interface {
	GetVerifier(id Identity) (Verifier, error)
}

// Signature is an endorsement: a signer's signature over the canonical encoding of a transaction
type Signature struct {
	Signer Identity `json:"signer"`
	Sigma  []byte   `json:"sigma"`
}

// SignedTransaction is a transaction plus the endorsements collected so far
type SignedTransaction struct {
	Tx         *Transaction `json:"tx"`
	Signatures []Signature  `json:"signatures"`
}

func NewSignedTransaction(tx *Transaction) *SignedTransaction {
	return &SignedTransaction{Tx: tx}
}

func (s *SignedTransaction) ID() string {
	return s.Tx.ID()
}

// AddSignature appends the signature, replacing any previous signature by the same signer
func (s *SignedTransaction) AddSignature(sig Signature) {
	for i, existing := range s.Signatures {
		if existing.Signer == sig.Signer {
			s.Signatures[i] = sig
			return
		}
	}
	s.Signatures = append(s.Signatures, sig)
}

// SignatureOf returns the signature of the passed identity, if any
func (s *SignedTransaction) SignatureOf(id Identity) (Signature, bool) {
	for _, sig := range s.Signatures {
		if sig.Signer == id {
			return sig, true
		}
	}
	return Signature{}, false
}

// MissingSigners returns the required signers that have not endorsed yet
func (s *SignedTransaction) MissingSigners() Identities {
	var res Identities
	for _, id := range s.Tx.RequiredSigners() {
		if _, ok := s.SignatureOf(id); !ok {
			res = append(res, id)
		}
	}
	return res
}

// VerifySignature checks the endorsement of the passed identity
func (s *SignedTransaction) VerifySignature(id Identity, vp VerifierProvider) error {
	sig, ok := s.SignatureOf(id)
	if !ok {
		return errors.Wrapf(ErrMissingSignature, "no signature by [%s]", id)
	}
	v, err := vp.GetVerifier(id)
	if err != nil {
		return errors.WithMessagef(err, "failed getting verifier for [%s]", id)
	}
	if err := v.Verify(s.Tx.MarshalToSign(), sig.Sigma); err != nil {
		return errors.Wrapf(ErrInvalidSignature, "signature by [%s] does not verify: %s", id, err)
	}
	return nil
}

// VerifyRequiredSignatures checks that every required signer has a valid endorsement
func (s *SignedTransaction) VerifyRequiredSignatures(vp VerifierProvider) error {
	for _, id := range s.Tx.RequiredSigners() {
		if err := s.VerifySignature(id, vp); err != nil {
			return err
		}
	}
	return nil
}

// Certificate is the consensus service's attestation that a transaction is unique and ordered
type Certificate struct {
	TxID      string    `json:"tx_id"`
	Order     uint64    `json:"order"`
	Timestamp time.Time `json:"timestamp"`
	Notary    Identity  `json:"notary"`
	Signature []byte    `json:"signature"`
}

// MarshalToSign returns the bytes the notary signs
func (c *Certificate) MarshalToSign() []byte {
	var b []byte
	b = appendStringField(b, 1, c.TxID)
	b = appendVarintField(b, 2, c.Order)
	b = appendVarintField(b, 3, uint64(c.Timestamp.UTC().UnixNano()))
	b = appendStringField(b, 4, string(c.Notary))
	return b
}

// FinalTransaction is a fully signed transaction certified by its notary
type FinalTransaction struct {
	Transaction *SignedTransaction `json:"transaction"`
	Certificate *Certificate       `json:"certificate"`
}

func (f *FinalTransaction) ID() string {
	return f.Transaction.ID()
}

// Verify checks that the certificate binds this transaction, it is signed by the transaction's notary,
// and all required endorsements are valid.
func (f *FinalTransaction) Verify(vp VerifierProvider) error {
	if f.Transaction == nil || f.Transaction.Tx == nil || f.Certificate == nil {
		return errors.New("incomplete final transaction")
	}
	if id := f.Transaction.ID(); f.Certificate.TxID != id {
		return errors.Wrapf(ErrInvalidCertificate, "certificate is for [%s], transaction is [%s]", f.Certificate.TxID, id)
	}
	if f.Certificate.Notary != f.Transaction.Tx.Notary {
		return errors.Wrapf(ErrInvalidCertificate, "certificate issued by [%s], expected [%s]", f.Certificate.Notary, f.Transaction.Tx.Notary)
	}
	v, err := vp.GetVerifier(f.Certificate.Notary)
	if err != nil {
		return errors.WithMessagef(err, "failed getting verifier for notary [%s]", f.Certificate.Notary)
	}
	if err := v.Verify(f.Certificate.MarshalToSign(), f.Certificate.Signature); err != nil {
		return errors.Wrapf(ErrInvalidCertificate, "notary signature does not verify: %s", err)
	}
	return f.Transaction.VerifyRequiredSignatures(vp)
}
