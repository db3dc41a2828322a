/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package contentcipher

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/google/tink/go/subtle/random"
)

const (
	gcmIVSize  = 12
	gcmTagSize = 16
)

// AESGCM implements A128GCM, A192GCM and A256GCM.
type AESGCM struct {
	name    string
	keySize int
}

// NewAESGCM returns the AES GCM content cipher for the given key size in bytes (16, 24 or 32).
func NewAESGCM(name string, keySize int) *AESGCM {
	return &AESGCM{name: name, keySize: keySize}
}

// Name returns the "enc" value.
func (a *AESGCM) Name() string { return a.name }

// KeySize returns the CEK size.
func (a *AESGCM) KeySize() int { return a.keySize }

// IVSize returns the IV size.
func (a *AESGCM) IVSize() int { return gcmIVSize }

// TagSize returns the authentication tag size.
func (a *AESGCM) TagSize() int { return gcmTagSize }

// Seal encrypts plaintext.
func (a *AESGCM) Seal(cek, plaintext, aad []byte) ([]byte, []byte, []byte, error) {
	if err := checkSealInput(a, cek); err != nil {
		return nil, nil, nil, err
	}

	gcm, err := a.aead(cek)
	if err != nil {
		return nil, nil, nil, err
	}

	iv := random.GetRandomBytes(gcmIVSize)
	sealed := gcm.Seal(nil, iv, plaintext, aad)
	split := len(sealed) - gcmTagSize

	return iv, sealed[:split], sealed[split:], nil
}

// Open decrypts ciphertext.
func (a *AESGCM) Open(cek, iv, ciphertext, tag, aad []byte) ([]byte, error) {
	if err := checkOpenInput(a, cek, iv, tag); err != nil {
		return nil, err
	}

	gcm, err := a.aead(cek)
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, iv, ciphertextAndTag(ciphertext, tag), aad)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.name, ErrAuthenticationFailed)
	}

	return plaintext, nil
}

func (a *AESGCM) aead(cek []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(cek)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.name, err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.name, err)
	}

	return gcm, nil
}
