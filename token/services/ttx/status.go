/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ttx

// InitiatorState is the position of an IssueView in the issuance protocol
type InitiatorState int

const (
	InitiatorBuilding InitiatorState = iota
	InitiatorLocallyVerified
	InitiatorAwaitingCounterEndorsement
	InitiatorAwaitingFinality
	InitiatorFinalized
	InitiatorAborted
)

var initiatorStateStrings = map[InitiatorState]string{
	InitiatorBuilding:                   "Building",
	InitiatorLocallyVerified:            "LocallyVerified",
	InitiatorAwaitingCounterEndorsement: "AwaitingCounterEndorsement",
	InitiatorAwaitingFinality:           "AwaitingFinality",
	InitiatorFinalized:                  "Finalized",
	InitiatorAborted:                    "Aborted",
}

func (s InitiatorState) String() string {
	if str, ok := initiatorStateStrings[s]; ok {
		return str
	}
	return "Unknown"
}

// ResponderState is the position of an IssueResponderView in the issuance protocol
type ResponderState int

const (
	ResponderAwaitingProposal ResponderState = iota
	ResponderVerifying
	ResponderSigned
	ResponderRefused
	ResponderAwaitingFinality
	ResponderFinalized
	ResponderAborted
)

var responderStateStrings = map[ResponderState]string{
	ResponderAwaitingProposal: "AwaitingProposal",
	ResponderVerifying:        "Verifying",
	ResponderSigned:           "Signed",
	ResponderRefused:          "Refused",
	ResponderAwaitingFinality: "AwaitingFinality",
	ResponderFinalized:        "Finalized",
	ResponderAborted:          "Aborted",
}

func (s ResponderState) String() string {
	if str, ok := responderStateStrings[s]; ok {
		return str
	}
	return "Unknown"
}

// Terminal returns true if the responder will not move anymore
func (s ResponderState) Terminal() bool {
	return s == ResponderRefused || s == ResponderFinalized || s == ResponderAborted
}
