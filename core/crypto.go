// Copyright (C) 2023 Wooyang2018
// Licensed under the GNU General Public License v3.0

package core

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
)

// errors
var (
	ErrInvalidSig     = errors.New("invalid signature")
	ErrInvalidKeySize = errors.New("invalid key size")
	ErrNilKey         = errors.New("nil key")
)

// PublicKey type
type PublicKey struct {
	key    ed25519.PublicKey
	keyStr string
}

func NewPublicKey(b []byte) (*PublicKey, error) {
	if len(b) != ed25519.PublicKeySize {
		return nil, ErrInvalidKeySize
	}
	key := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(key, b)
	return &PublicKey{
		key:    key,
		keyStr: base64.StdEncoding.EncodeToString(key),
	}, nil
}

// Verify reports whether sig is a valid signature of msg by this key
func (pub *PublicKey) Verify(msg, sig []byte) bool {
	return ed25519.Verify(pub.key, msg, sig)
}

// Equal checks whether pub and x have the same value
func (pub *PublicKey) Equal(x *PublicKey) bool {
	if x == nil {
		return false
	}
	return bytes.Equal(pub.key, x.key)
}

func (pub *PublicKey) Bytes() []byte {
	return pub.key
}

func (pub *PublicKey) String() string {
	return pub.keyStr
}

// PrivateKey type
type PrivateKey struct {
	key    ed25519.PrivateKey
	pubKey *PublicKey
}

func NewPrivateKey(b []byte) (*PrivateKey, error) {
	if len(b) != ed25519.PrivateKeySize {
		return nil, ErrInvalidKeySize
	}
	key := make(ed25519.PrivateKey, ed25519.PrivateKeySize)
	copy(key, b)
	pubKey, _ := NewPublicKey(key.Public().(ed25519.PublicKey))
	return &PrivateKey{
		key:    key,
		pubKey: pubKey,
	}, nil
}

// NewRandomKey generates a key pair reading entropy from r, crypto/rand if r is nil.
func NewRandomKey(r io.Reader) (*PrivateKey, error) {
	if r == nil {
		r = rand.Reader
	}
	_, key, err := ed25519.GenerateKey(r)
	if err != nil {
		return nil, err
	}
	return NewPrivateKey(key)
}

// GenerateKey is like NewRandomKey but panics when the entropy source fails.
func GenerateKey(r io.Reader) *PrivateKey {
	priv, err := NewRandomKey(r)
	if err != nil {
		panic(err)
	}
	return priv
}

// Sign signs the message
func (priv *PrivateKey) Sign(msg []byte) *Signature {
	return &Signature{
		value:  ed25519.Sign(priv.key, msg),
		pubKey: priv.pubKey,
	}
}

func (priv *PrivateKey) PublicKey() *PublicKey {
	return priv.pubKey
}

func (priv *PrivateKey) Bytes() []byte {
	return priv.key
}

// Signature type
type Signature struct {
	value  []byte
	pubKey *PublicKey
}

func newSignature(pubKey, value []byte) (*Signature, error) {
	key, err := NewPublicKey(pubKey)
	if err != nil {
		return nil, err
	}
	if len(value) != ed25519.SignatureSize {
		return nil, ErrInvalidSig
	}
	return &Signature{
		value:  value,
		pubKey: key,
	}, nil
}

// Verify verifies the signature
func (sig *Signature) Verify(msg []byte) bool {
	return sig.pubKey.Verify(msg, sig.value)
}

func (sig *Signature) PublicKey() *PublicKey {
	return sig.pubKey
}

func (sig *Signature) Bytes() []byte {
	return sig.value
}
