/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package contentcipher provides the JWE content encryption algorithms ("enc" header values) defined in
// https://tools.ietf.org/html/rfc7518#section-5 plus XChacha20Poly1305 (XC20P).
//
// Every Cipher is an AEAD operating on the split JWE representation (iv, ciphertext, tag). Implementations are
// stateless and safe for concurrent use.
package contentcipher

import (
	"errors"
	"fmt"
)

// Content encryption algorithm names.
const (
	A128GCM      = "A128GCM"
	A192GCM      = "A192GCM"
	A256GCM      = "A256GCM"
	A128CBCHS256 = "A128CBC-HS256"
	A192CBCHS384 = "A192CBC-HS384"
	A256CBCHS512 = "A256CBC-HS512"
	XC20P        = "XC20P"
)

var (
	// ErrInvalidKeySize is returned when the CEK size doesn't match the algorithm.
	ErrInvalidKeySize = errors.New("invalid content encryption key size")
	// ErrAuthenticationFailed is returned when the IV, tag or ciphertext fail authentication.
	ErrAuthenticationFailed = errors.New("message authentication failed")
)

// Cipher is a JWE content encryption algorithm.
type Cipher interface {
	// Name is the "enc" header value.
	Name() string
	// KeySize is the exact CEK size in bytes.
	KeySize() int
	// IVSize is the exact IV size in bytes.
	IVSize() int
	// TagSize is the exact authentication tag size in bytes.
	TagSize() int
	// Seal encrypts plaintext with a fresh random IV.
	Seal(cek, plaintext, aad []byte) (iv, ciphertext, tag []byte, err error)
	// Open authenticates and decrypts. No plaintext is returned unless authentication succeeds.
	Open(cek, iv, ciphertext, tag, aad []byte) ([]byte, error)
}

// checkOpenInput validates the sizes of the inputs of Cipher.Open. Underlying primitives panic on wrong IV sizes
// so this must run before them.
func checkOpenInput(c Cipher, cek, iv, tag []byte) error {
	if len(cek) != c.KeySize() {
		return fmt.Errorf("%s: %w: got %d bytes, want %d", c.Name(), ErrInvalidKeySize, len(cek), c.KeySize())
	}

	if len(iv) != c.IVSize() || len(tag) != c.TagSize() {
		return fmt.Errorf("%s: %w", c.Name(), ErrAuthenticationFailed)
	}

	return nil
}

func checkSealInput(c Cipher, cek []byte) error {
	if len(cek) != c.KeySize() {
		return fmt.Errorf("%s: %w: got %d bytes, want %d", c.Name(), ErrInvalidKeySize, len(cek), c.KeySize())
	}

	return nil
}

func ciphertextAndTag(ciphertext, tag []byte) []byte {
	ctAndTag := make([]byte, len(ciphertext)+len(tag))
	copy(ctAndTag, ciphertext)
	copy(ctAndTag[len(ciphertext):], tag)

	return ctAndTag
}
