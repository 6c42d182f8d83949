/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package notary

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrConflict is matched by rejections caused by an input already consumed by another transaction
	ErrConflict = errors.New("conflict")
	// ErrInvalid is matched by rejections of malformed, unverifiable, or wrongly addressed transactions
	ErrInvalid = errors.New("invalid transaction")
)

type RejectionKind string

const (
	Conflict RejectionKind = "Conflict"
	Invalid  RejectionKind = "Invalid"
)

// RejectionError is returned by Certify when the consensus service refuses a transaction
type RejectionError struct {
	Kind   RejectionKind `json:"kind"`
	Reason string        `json:"reason"`
	// ConflictingTx is the transaction that consumed the input first, set for Conflict
	ConflictingTx string `json:"conflicting_tx,omitempty"`
}

func (e *RejectionError) Error() string {
	if e.Kind == Conflict && len(e.ConflictingTx) != 0 {
		return fmt.Sprintf("notary rejected transaction [%s]: %s, conflicting with [%s]", e.Kind, e.Reason, e.ConflictingTx)
	}
	return fmt.Sprintf("notary rejected transaction [%s]: %s", e.Kind, e.Reason)
}

func (e *RejectionError) Is(target error) bool {
	switch target {
	case ErrConflict:
		return e.Kind == Conflict
	case ErrInvalid:
		return e.Kind == Invalid
	}
	return false
}

func invalid(format string, args ...interface{}) *RejectionError {
	return &RejectionError{Kind: Invalid, Reason: fmt.Sprintf(format, args...)}
}
