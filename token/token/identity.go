/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package token

// Identity identifies a party on the network by its legal name, for instance `O=Alice,L=London,C=GB`.
type Identity string

func (id Identity) String() string {
	return string(id)
}

// IsNone returns true if the identity is empty
func (id Identity) IsNone() bool {
	return len(id) == 0
}

func (id Identity) Equal(other Identity) bool {
	return id == other
}

// Identities is an ordered list of identities
type Identities []Identity

// Contains returns true if the passed identity is in the list
func (ids Identities) Contains(id Identity) bool {
	for _, i := range ids {
		if i == id {
			return true
		}
	}
	return false
}

// Dedup returns a copy of the list without duplicates, first occurrence wins.
func (ids Identities) Dedup() Identities {
	res := make(Identities, 0, len(ids))
	seen := make(map[Identity]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		res = append(res, id)
	}
	return res
}

func (ids Identities) Strings() []string {
	res := make([]string, len(ids))
	for i, id := range ids {
		res[i] = string(id)
	}
	return res
}
