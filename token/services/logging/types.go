/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package logging

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Prefix shortens long identifiers, such as transaction ids, for log lines
func Prefix(id string) fmt.Stringer {
	return prefix(id)
}

type prefix string

func (w prefix) String() string {
	s := string(w)
	if len(s) <= 20 {
		return strings.ToValidUTF8(s, "X")
	}
	digest := sha3.Sum256([]byte(s))
	return fmt.Sprintf("%s~%s", strings.ToValidUTF8(s[:20], "X"), hex.EncodeToString(digest[:4]))
}

func Printable(id string) fmt.Stringer {
	return printable(id)
}

type printable string

func (w printable) String() string {
	return strings.ToValidUTF8(string(w), "X")
}

// Keys prints the sorted keys of a map, evaluated lazily
func Keys[K ~string, V any](m map[K]V) fmt.Stringer {
	return keys[K, V](m)
}

type keys[K ~string, V any] map[K]V

func (k keys[K, V]) String() string {
	res := make([]string, 0, len(k))
	for key := range k {
		res = append(res, string(key))
	}
	sort.Strings(res)
	return "[" + strings.Join(res, ", ") + "]"
}

func Base64(b []byte) fmt.Stringer {
	return base64Bytes(b)
}

type base64Bytes []byte

func (b base64Bytes) String() string {
	return base64.StdEncoding.EncodeToString(b)
}
