/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"os"

	"github.com/pkg/errors"
)

type ed25519Signer struct {
	sk ed25519.PrivateKey
}

// NewSigner returns a signer backed by the passed ed25519 private key
func NewSigner(sk ed25519.PrivateKey) *ed25519Signer {
	return &ed25519Signer{sk: sk}
}

func (s *ed25519Signer) Sign(message []byte) ([]byte, error) {
	if len(s.sk) != ed25519.PrivateKeySize {
		return nil, errors.New("invalid private key")
	}
	return ed25519.Sign(s.sk, message), nil
}

func (s *ed25519Signer) Public() ed25519.PublicKey {
	return s.sk.Public().(ed25519.PublicKey)
}

type ed25519Verifier struct {
	pk ed25519.PublicKey
}

// NewVerifier returns a verifier for signatures produced by the owner of the passed public key
func NewVerifier(pk ed25519.PublicKey) *ed25519Verifier {
	return &ed25519Verifier{pk: pk}
}

func (v *ed25519Verifier) Verify(message, sigma []byte) error {
	if len(v.pk) != ed25519.PublicKeySize {
		return errors.New("invalid public key")
	}
	if !ed25519.Verify(v.pk, message, sigma) {
		return errors.New("signature not valid")
	}
	return nil
}

// GenerateKey returns a fresh ed25519 private key
func GenerateKey() (ed25519.PrivateKey, error) {
	_, sk, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed generating ed25519 key")
	}
	return sk, nil
}

// PemEncodePrivateKey returns the PKCS8 PEM encoding of the passed key
func PemEncodePrivateKey(sk ed25519.PrivateKey) ([]byte, error) {
	raw, err := x509.MarshalPKCS8PrivateKey(sk)
	if err != nil {
		return nil, errors.Wrap(err, "failed marshalling private key")
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: raw}), nil
}

// PemEncodePublicKey returns the PKIX PEM encoding of the passed key
func PemEncodePublicKey(pk ed25519.PublicKey) ([]byte, error) {
	raw, err := x509.MarshalPKIXPublicKey(pk)
	if err != nil {
		return nil, errors.Wrap(err, "failed marshalling public key")
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: raw}), nil
}

// PemDecodePrivateKey parses a PKCS8 PEM encoded ed25519 private key
func PemDecodePrivateKey(keyBytes []byte) (ed25519.PrivateKey, error) {
	block, _ := pem.Decode(keyBytes)
	if block == nil {
		return nil, errors.New("bytes are not PEM encoded")
	}
	if block.Type != "PRIVATE KEY" {
		return nil, errors.Errorf("unexpected PEM block [%s]", block.Type)
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, errors.WithMessage(err, "pem bytes are not PKCS8 encoded")
	}
	sk, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.Errorf("expected an ed25519 key, got [%T]", key)
	}
	return sk, nil
}

// PemDecodePublicKey parses a PKIX PEM encoded ed25519 public key
func PemDecodePublicKey(keyBytes []byte) (ed25519.PublicKey, error) {
	block, _ := pem.Decode(keyBytes)
	if block == nil {
		return nil, errors.New("bytes are not PEM encoded")
	}
	if block.Type != "PUBLIC KEY" {
		return nil, errors.Errorf("unexpected PEM block [%s]", block.Type)
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, errors.WithMessage(err, "pem bytes are not PKIX encoded")
	}
	pk, ok := key.(ed25519.PublicKey)
	if !ok {
		return nil, errors.Errorf("expected an ed25519 key, got [%T]", key)
	}
	return pk, nil
}

// LoadOrCreatePrivateKey reads the key stored at path, generating and storing a new one if the file does not exist
func LoadOrCreatePrivateKey(path string) (ed25519.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err == nil {
		return PemDecodePrivateKey(raw)
	}
	if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "failed reading key file [%s]", path)
	}
	sk, err := GenerateKey()
	if err != nil {
		return nil, err
	}
	raw, err = PemEncodePrivateKey(sk)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return nil, errors.Wrapf(err, "failed writing key file [%s]", path)
	}
	logger.Infof("generated new key at [%s]", path)
	return sk, nil
}
