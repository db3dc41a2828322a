/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package keywrap provides the JWE key management algorithms ("alg" header values) defined in
// https://tools.ietf.org/html/rfc7518#section-4.
//
// An Algorithm recovers (Unwrap) or produces (Wrap) the content encryption key of one recipient. Errors returned by
// Unwrap are intentionally generic: callers must not expose them to the party that produced the JWE.
package keywrap

import (
	"errors"
)

// Key management algorithm names.
const (
	RSA1_5           = "RSA1_5" //nolint:revive,stylecheck
	RSAOAEP          = "RSA-OAEP"
	RSAOAEP256       = "RSA-OAEP-256"
	RSAOAEP384       = "RSA-OAEP-384"
	RSAOAEP512       = "RSA-OAEP-512"
	A128KW           = "A128KW"
	A192KW           = "A192KW"
	A256KW           = "A256KW"
	A128GCMKW        = "A128GCMKW"
	A192GCMKW        = "A192GCMKW"
	A256GCMKW        = "A256GCMKW"
	Direct           = "dir"
	ECDHES           = "ECDH-ES"
	ECDHESA128KW     = "ECDH-ES+A128KW"
	ECDHESA192KW     = "ECDH-ES+A192KW"
	ECDHESA256KW     = "ECDH-ES+A256KW"
	PBES2HS256A128KW = "PBES2-HS256+A128KW"
	PBES2HS384A192KW = "PBES2-HS384+A192KW"
	PBES2HS512A256KW = "PBES2-HS512+A256KW"
)

// Mode is the key management mode of an algorithm (https://tools.ietf.org/html/rfc7516#section-2).
type Mode int

const (
	// KeyEncryption encrypts the CEK to the recipient with an asymmetric algorithm (RSA).
	KeyEncryption Mode = iota + 1
	// KeyWrapping encrypts the CEK with a symmetric key (AES-KW, AES-GCMKW, PBES2).
	KeyWrapping
	// DirectKeyAgreement derives the CEK itself with a key agreement (ECDH-ES).
	DirectKeyAgreement
	// KeyAgreementWithKeyWrapping derives a KEK with a key agreement, then wraps the CEK with it (ECDH-ES+AxxxKW).
	KeyAgreementWithKeyWrapping
	// DirectEncryption uses a shared symmetric key as the CEK (dir).
	DirectEncryption
)

// Direct reports whether the mode produces the CEK without an encrypted key.
func (m Mode) Direct() bool {
	return m == DirectKeyAgreement || m == DirectEncryption
}

var (
	// ErrUnwrapFailed is the single error reported when a CEK can't be recovered.
	ErrUnwrapFailed = errors.New("key unwrap failed")
	// ErrIncompatibleKey is returned when the key material type or size doesn't fit the algorithm.
	ErrIncompatibleKey = errors.New("key is not compatible with algorithm")
	// ErrMissingParameter is returned when a header parameter required by the algorithm is missing or invalid.
	ErrMissingParameter = errors.New("missing or invalid key management header parameter")
)

// X25519PrivateKey is a raw X25519 private scalar.
type X25519PrivateKey []byte

// X25519PublicKey is a raw X25519 public key (u-coordinate).
type X25519PublicKey []byte

// HeaderParams are the key management header parameters of a recipient (epk, apu, apv, iv, tag, p2s, p2c).
type HeaderParams struct {
	// EPK is *ecdsa.PublicKey or X25519PublicKey.
	EPK interface{}
	APU []byte
	APV []byte
	IV  []byte
	Tag []byte
	P2S []byte
	P2C int
}

// UnwrapInput holds what a recipient contributes to CEK recovery.
type UnwrapInput struct {
	EncryptedKey []byte
	Params       HeaderParams
	// EncAlg is the "enc" value, used as the KDF algorithm id in direct key agreement.
	EncAlg string
	// CEKSize is the CEK size required by EncAlg.
	CEKSize int
}

// WrapInput holds what is needed to produce a recipient's encrypted key.
type WrapInput struct {
	// CEK is nil for direct modes, where the CEK is produced by Wrap.
	CEK     []byte
	EncAlg  string
	CEKSize int
	APU     []byte
	APV     []byte
	// P2C is the PBES2 iteration count, DefaultPBES2Count when zero.
	P2C int
}

// WrapOutput is the result of Wrap.
type WrapOutput struct {
	EncryptedKey []byte
	// CEK is only set by direct modes.
	CEK    []byte
	Params HeaderParams
}

// Algorithm is a JWE key management algorithm.
type Algorithm interface {
	// Name is the "alg" header value.
	Name() string
	// Mode is the key management mode.
	Mode() Mode
	// Accepts reports whether a decryption key can be used by Unwrap.
	Accepts(key interface{}) bool
	// Unwrap recovers the CEK with a decryption key.
	Unwrap(key interface{}, in *UnwrapInput) ([]byte, error)
	// Wrap encrypts (or derives) the CEK for a recipient key.
	Wrap(key interface{}, in *WrapInput) (*WrapOutput, error)
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}

	return append([]byte{}, b...)
}
