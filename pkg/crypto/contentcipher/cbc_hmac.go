/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package contentcipher

import (
	"crypto/aes"
	"fmt"

	josecipher "github.com/go-jose/go-jose/v3/cipher"
	"github.com/google/tink/go/subtle/random"
)

const cbcIVSize = aes.BlockSize

// AESCBCHMAC implements the AES_CBC_HMAC_SHA2 family (A128CBC-HS256, A192CBC-HS384, A256CBC-HS512).
// The CEK is the concatenation of the MAC key and the encryption key, the tag is the truncated HMAC
// (https://tools.ietf.org/html/rfc7518#section-5.2).
type AESCBCHMAC struct {
	name    string
	keySize int
}

// NewAESCBCHMAC returns an AES CBC HMAC content cipher for a composite key size of 32, 48 or 64 bytes.
func NewAESCBCHMAC(name string, keySize int) *AESCBCHMAC {
	return &AESCBCHMAC{name: name, keySize: keySize}
}

// Name returns the "enc" value.
func (a *AESCBCHMAC) Name() string { return a.name }

// KeySize returns the composite CEK size.
func (a *AESCBCHMAC) KeySize() int { return a.keySize }

// IVSize returns the IV size.
func (a *AESCBCHMAC) IVSize() int { return cbcIVSize }

// TagSize returns the truncated HMAC size, which is half the composite key size.
func (a *AESCBCHMAC) TagSize() int { return a.keySize / 2 } //nolint:gomnd

// Seal encrypts plaintext.
func (a *AESCBCHMAC) Seal(cek, plaintext, aad []byte) ([]byte, []byte, []byte, error) {
	if err := checkSealInput(a, cek); err != nil {
		return nil, nil, nil, err
	}

	cbcHMAC, err := josecipher.NewCBCHMAC(cek, aes.NewCipher)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%s: %w", a.name, err)
	}

	iv := random.GetRandomBytes(cbcIVSize)
	sealed := cbcHMAC.Seal(nil, iv, plaintext, aad)
	split := len(sealed) - a.TagSize()

	return iv, sealed[:split], sealed[split:], nil
}

// Open verifies the tag in constant time and only then decrypts.
func (a *AESCBCHMAC) Open(cek, iv, ciphertext, tag, aad []byte) ([]byte, error) {
	if err := checkOpenInput(a, cek, iv, tag); err != nil {
		return nil, err
	}

	cbcHMAC, err := josecipher.NewCBCHMAC(cek, aes.NewCipher)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.name, err)
	}

	plaintext, err := cbcHMAC.Open(nil, iv, ciphertextAndTag(ciphertext, tag), aad)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.name, ErrAuthenticationFailed)
	}

	return plaintext, nil
}
