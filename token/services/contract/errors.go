/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package contract

import (
	"fmt"

	"github.com/anixon604/bootcamp-cordapp/token/token"
	"github.com/pkg/errors"
)

// ErrContractViolation is matched by every error returned by Verify
var ErrContractViolation = errors.New("contract violation")

// Reason classifies why a transaction violates the contract
type Reason string

const (
	MultipleOrMissingCommands Reason = "MultipleOrMissingCommands"
	UnrecognizedCommand       Reason = "UnrecognizedCommand"
	UnexpectedInputs          Reason = "UnexpectedInputs"
	WrongOutputCount          Reason = "WrongOutputCount"
	WrongOutputType           Reason = "WrongOutputType"
	MissingRequiredSigner     Reason = "MissingRequiredSigner"
	NonPositiveAmount         Reason = "NonPositiveAmount"
)

// ViolationError is returned when a transaction fails verification.
// Which is set for MissingRequiredSigner.
type ViolationError struct {
	Reason Reason
	Which  token.Identity
	Detail string
}

func (e *ViolationError) Error() string {
	msg := fmt.Sprintf("contract violation [%s]", e.Reason)
	if !e.Which.IsNone() {
		msg += fmt.Sprintf(" for [%s]", e.Which)
	}
	if len(e.Detail) != 0 {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ViolationError) Is(target error) bool {
	return target == ErrContractViolation
}

func violation(reason Reason, format string, args ...interface{}) *ViolationError {
	return &ViolationError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// ReasonOf returns the violation reason carried by err, if any
func ReasonOf(err error) (Reason, bool) {
	var v *ViolationError
	if errors.As(err, &v) {
		return v.Reason, true
	}
	return "", false
}
