/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"crypto/ed25519"
	"os"
	"reflect"
	"strings"

	"github.com/anixon604/bootcamp-cordapp/token/services/identity"
	"github.com/anixon604/bootcamp-cordapp/token/token"
	"github.com/pkg/errors"
)

const pemHeader = "-----BEGIN"

// PublicKey is an ed25519 public key, configured either inline in PEM or as the path of a PEM file
type PublicKey ed25519.PublicKey

func (k PublicKey) Key() ed25519.PublicKey {
	return ed25519.PublicKey(k)
}

func (k PublicKey) MarshalYAML() (interface{}, error) {
	if len(k) == 0 {
		return "", nil
	}
	raw, err := identity.PemEncodePublicKey(ed25519.PublicKey(k))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

var (
	identityType  = reflect.TypeOf(token.Identity(""))
	publicKeyType = reflect.TypeOf(PublicKey{})
)

// identityHook trims the identities read from files and environment
func identityHook(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
	if f.Kind() != reflect.String || t != identityType {
		return data, nil
	}
	return token.Identity(strings.TrimSpace(data.(string))), nil
}

func publicKeyHook(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
	if f.Kind() != reflect.String || t != publicKeyType {
		return data, nil
	}
	s := strings.TrimSpace(data.(string))
	if len(s) == 0 {
		return PublicKey(nil), nil
	}
	raw := []byte(s)
	if !strings.HasPrefix(s, pemHeader) {
		var err error
		raw, err = os.ReadFile(s)
		if err != nil {
			return nil, errors.Wrapf(err, "failed reading public key file [%s]", s)
		}
	}
	pk, err := identity.PemDecodePublicKey(raw)
	if err != nil {
		return nil, err
	}
	return PublicKey(pk), nil
}
