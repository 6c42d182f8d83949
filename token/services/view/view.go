/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package view

import (
	"context"
	"reflect"

	"github.com/anixon604/bootcamp-cordapp/token/token"
)

// Identity identifies a party, a node speaks for exactly one identity
type Identity = token.Identity

// View is a protocol instance: a unit of business logic that may interact with remote parties through sessions
type View interface {
	Call(context Context) (interface{}, error)
}

// Context is the execution context of a view
type Context interface {
	// Context returns the go context bound to this execution, cancelled when the view terminates
	Context() context.Context
	// ID identifies this execution, it is shared by all the sessions opened from it
	ID() string
	// Me returns the identity of the node running the view
	Me() Identity
	// Initiator returns the view that started this execution, nil for responders
	Initiator() View
	// GetSession returns a session to the passed party on behalf of the passed caller.
	// Sessions are reused within the same execution.
	GetSession(caller View, party Identity) (Session, error)
	// Session returns the session that triggered a responder, nil for initiators
	Session() Session
}

// Identifiable is implemented by views that name their protocol explicitly
type Identifiable interface {
	ProtocolID() string
}

// GetIdentifier returns the protocol identifier of the passed view.
// Responders are registered against the identifier of the initiating view.
func GetIdentifier(v View) string {
	if v == nil {
		return ""
	}
	if i, ok := v.(Identifiable); ok {
		return i.ProtocolID()
	}
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.PkgPath() + "/" + t.Name()
}
