/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ttx

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrFailedCompilingOptions signals a failure when compiling the options
	ErrFailedCompilingOptions = errors.New("failed to compiling options")
	// ErrInvalidInput signals that the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrContractViolation is matched by aborts caused by the transaction failing the contract locally
	ErrContractViolation = errors.New("contract violation")
	// ErrProtocolRefusal is matched by aborts caused by a counterparty refusing, or by a counterparty message failing checks
	ErrProtocolRefusal = errors.New("protocol refusal")
	// ErrChannelFailure is matched by aborts caused by the session, timeouts included
	ErrChannelFailure = errors.New("channel failure")
	// ErrConsensusRejected is matched by aborts caused by the notary rejecting the transaction
	ErrConsensusRejected = errors.New("consensus rejected")
	// ErrTimeout is matched by aborts caused by a bounded wait expiring
	ErrTimeout = errors.New("timeout")

	// ErrTransactionMismatch signals a finality notice carrying a transaction other than the endorsed one
	ErrTransactionMismatch = errors.New("transaction mismatch")
)

// Reason classifies why an issuance aborted
type Reason string

const (
	ContractViolation Reason = "ContractViolation"
	ProtocolRefusal   Reason = "ProtocolRefusal"
	ChannelFailure    Reason = "ChannelFailure"
	ConsensusRejected Reason = "ConsensusRejected"
	Timeout           Reason = "Timeout"
)

// AbortError is returned by the issuance views when the protocol ends without a notarised transaction.
// Nothing is recorded in the vault when it is returned.
type AbortError struct {
	Reason Reason
	Err    error
}

func (e *AbortError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("issuance aborted [%s]", e.Reason)
	}
	return fmt.Sprintf("issuance aborted [%s]: %s", e.Reason, e.Err)
}

func (e *AbortError) Unwrap() error {
	return e.Err
}

func (e *AbortError) Is(target error) bool {
	switch target {
	case ErrContractViolation:
		return e.Reason == ContractViolation
	case ErrProtocolRefusal:
		return e.Reason == ProtocolRefusal
	case ErrChannelFailure:
		// a timeout is a channel failure
		return e.Reason == ChannelFailure || e.Reason == Timeout
	case ErrConsensusRejected:
		return e.Reason == ConsensusRejected
	case ErrTimeout:
		return e.Reason == Timeout
	}
	return false
}

func abort(reason Reason, err error) *AbortError {
	return &AbortError{Reason: reason, Err: err}
}

// ReasonOf returns the abort reason carried by err, if any
func ReasonOf(err error) (Reason, bool) {
	var a *AbortError
	if errors.As(err, &a) {
		return a.Reason, true
	}
	return "", false
}
