/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package storage

// TxStatus is the status of a transaction as seen by a vault
type TxStatus int

const (
	// Unknown is the status of a transaction the vault never recorded
	Unknown TxStatus = iota
	// Confirmed is the status of a notarised transaction recorded in the vault
	Confirmed
)

var txStatusStrings = map[TxStatus]string{
	Unknown:   "Unknown",
	Confirmed: "Confirmed",
}

func (s TxStatus) String() string {
	if str, ok := txStatusStrings[s]; ok {
		return str
	}
	return "Invalid"
}
