/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package contentcipher

import (
	"fmt"

	"github.com/google/tink/go/aead/subtle"
	"golang.org/x/crypto/chacha20poly1305"
)

const xc20pTagSize = 16

// XChacha20Poly1305 implements XC20P content encryption using Tink's XChaCha20Poly1305 primitive.
type XChacha20Poly1305 struct{}

// Name returns the "enc" value.
func (x *XChacha20Poly1305) Name() string { return XC20P }

// KeySize returns the CEK size.
func (x *XChacha20Poly1305) KeySize() int { return chacha20poly1305.KeySize }

// IVSize returns the nonce size.
func (x *XChacha20Poly1305) IVSize() int { return chacha20poly1305.NonceSizeX }

// TagSize returns the Poly1305 tag size.
func (x *XChacha20Poly1305) TagSize() int { return xc20pTagSize }

// Seal encrypts plaintext. Tink prepends a random nonce to the output, it is split back into the JWE iv.
func (x *XChacha20Poly1305) Seal(cek, plaintext, aad []byte) ([]byte, []byte, []byte, error) {
	if err := checkSealInput(x, cek); err != nil {
		return nil, nil, nil, err
	}

	p, err := subtle.NewXChaCha20Poly1305(cek)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%s: %w", XC20P, err)
	}

	sealed, err := p.Encrypt(plaintext, aad)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%s: %w", XC20P, err)
	}

	nonceSize := x.IVSize()
	split := len(sealed) - xc20pTagSize

	return sealed[:nonceSize], sealed[nonceSize:split], sealed[split:], nil
}

// Open decrypts ciphertext.
func (x *XChacha20Poly1305) Open(cek, iv, ciphertext, tag, aad []byte) ([]byte, error) {
	if err := checkOpenInput(x, cek, iv, tag); err != nil {
		return nil, err
	}

	p, err := subtle.NewXChaCha20Poly1305(cek)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", XC20P, err)
	}

	sealed := make([]byte, 0, len(iv)+len(ciphertext)+len(tag))
	sealed = append(sealed, iv...)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := p.Decrypt(sealed, aad)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", XC20P, ErrAuthenticationFailed)
	}

	return plaintext, nil
}
