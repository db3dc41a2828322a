/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package keywrap

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	josecipher "github.com/go-jose/go-jose/v3/cipher"
	"github.com/google/tink/go/subtle/random"
)

const (
	gcmKWIVSize  = 12
	gcmKWTagSize = 16
)

// AESKeyWrap implements A128KW, A192KW and A256KW (RFC 3394).
type AESKeyWrap struct {
	name    string
	keySize int
}

// NewAESKeyWrap returns an AES key wrap algorithm for a KEK of keySize bytes.
func NewAESKeyWrap(name string, keySize int) *AESKeyWrap {
	return &AESKeyWrap{name: name, keySize: keySize}
}

// Name returns the "alg" value.
func (a *AESKeyWrap) Name() string { return a.name }

// Mode returns KeyWrapping.
func (a *AESKeyWrap) Mode() Mode { return KeyWrapping }

// Accepts reports whether key is a symmetric key of the KEK size.
func (a *AESKeyWrap) Accepts(key interface{}) bool {
	k, ok := key.([]byte)

	return ok && len(k) == a.keySize
}

// Unwrap unwraps the CEK, the RFC 3394 integrity check fails for a wrong KEK or a tampered encrypted key.
func (a *AESKeyWrap) Unwrap(key interface{}, in *UnwrapInput) ([]byte, error) {
	if !a.Accepts(key) {
		return nil, fmt.Errorf("%s: %w", a.name, ErrIncompatibleKey)
	}

	return aesUnwrap(a.name, key.([]byte), in.EncryptedKey) //nolint:forcetypeassert
}

// Wrap wraps the CEK.
func (a *AESKeyWrap) Wrap(key interface{}, in *WrapInput) (*WrapOutput, error) {
	if !a.Accepts(key) {
		return nil, fmt.Errorf("%s: %w", a.name, ErrIncompatibleKey)
	}

	encryptedKey, err := aesWrap(a.name, key.([]byte), in.CEK) //nolint:forcetypeassert
	if err != nil {
		return nil, err
	}

	return &WrapOutput{EncryptedKey: encryptedKey}, nil
}

func aesUnwrap(alg string, kek, encryptedKey []byte) ([]byte, error) {
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", alg, ErrIncompatibleKey)
	}

	cek, err := josecipher.KeyUnwrap(block, encryptedKey)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", alg, ErrUnwrapFailed)
	}

	return cek, nil
}

func aesWrap(alg string, kek, cek []byte) ([]byte, error) {
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", alg, ErrIncompatibleKey)
	}

	encryptedKey, err := josecipher.KeyWrap(block, cek)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", alg, err)
	}

	return encryptedKey, nil
}

// AESGCMKeyWrap implements A128GCMKW, A192GCMKW and A256GCMKW
// (https://tools.ietf.org/html/rfc7518#section-4.7). The IV and tag travel in the "iv" and "tag" headers.
type AESGCMKeyWrap struct {
	name    string
	keySize int
}

// NewAESGCMKeyWrap returns an AES GCM key wrap algorithm for a KEK of keySize bytes.
func NewAESGCMKeyWrap(name string, keySize int) *AESGCMKeyWrap {
	return &AESGCMKeyWrap{name: name, keySize: keySize}
}

// Name returns the "alg" value.
func (a *AESGCMKeyWrap) Name() string { return a.name }

// Mode returns KeyWrapping.
func (a *AESGCMKeyWrap) Mode() Mode { return KeyWrapping }

// Accepts reports whether key is a symmetric key of the KEK size.
func (a *AESGCMKeyWrap) Accepts(key interface{}) bool {
	k, ok := key.([]byte)

	return ok && len(k) == a.keySize
}

// Unwrap decrypts the CEK with the "iv" and "tag" header parameters.
func (a *AESGCMKeyWrap) Unwrap(key interface{}, in *UnwrapInput) ([]byte, error) {
	if !a.Accepts(key) {
		return nil, fmt.Errorf("%s: %w", a.name, ErrIncompatibleKey)
	}

	if len(in.Params.IV) != gcmKWIVSize || len(in.Params.Tag) != gcmKWTagSize {
		return nil, fmt.Errorf("%s: %w: iv/tag", a.name, ErrMissingParameter)
	}

	gcm, err := a.aead(key.([]byte)) //nolint:forcetypeassert
	if err != nil {
		return nil, err
	}

	sealed := append(cloneBytes(in.EncryptedKey), in.Params.Tag...)

	cek, err := gcm.Open(nil, in.Params.IV, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.name, ErrUnwrapFailed)
	}

	return cek, nil
}

// Wrap encrypts the CEK and returns the generated "iv" and "tag" header parameters.
func (a *AESGCMKeyWrap) Wrap(key interface{}, in *WrapInput) (*WrapOutput, error) {
	if !a.Accepts(key) {
		return nil, fmt.Errorf("%s: %w", a.name, ErrIncompatibleKey)
	}

	gcm, err := a.aead(key.([]byte)) //nolint:forcetypeassert
	if err != nil {
		return nil, err
	}

	iv := random.GetRandomBytes(gcmKWIVSize)
	sealed := gcm.Seal(nil, iv, in.CEK, nil)
	split := len(sealed) - gcmKWTagSize

	return &WrapOutput{
		EncryptedKey: sealed[:split],
		Params:       HeaderParams{IV: iv, Tag: sealed[split:]},
	}, nil
}

func (a *AESGCMKeyWrap) aead(kek []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.name, ErrIncompatibleKey)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.name, err)
	}

	return gcm, nil
}
