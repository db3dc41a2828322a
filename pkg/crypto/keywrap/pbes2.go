/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package keywrap

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"

	"github.com/google/tink/go/subtle/random"
	"golang.org/x/crypto/pbkdf2"

	"github.com/hyperledger/aries-framework-go-jwe/pkg/internal/cryptoutil"
)

const (
	// MinPBES2Count is the lowest accepted "p2c" value.
	MinPBES2Count = 1000
	// MaxPBES2Count is the highest accepted "p2c" value. It bounds the work an untrusted JWE can request.
	MaxPBES2Count = 1000000
	// DefaultPBES2Count is the "p2c" value used when wrapping.
	DefaultPBES2Count = 310000

	minPBES2SaltSize = 8
	pbes2SaltSize    = 16
)

// PBES2 implements PBES2-HS256+A128KW, PBES2-HS384+A192KW and PBES2-HS512+A256KW
// (https://tools.ietf.org/html/rfc7518#section-4.8). The key is a password.
type PBES2 struct {
	name   string
	hash   func() hash.Hash
	kwSize int
}

// NewPBES2HS256A128KW returns PBES2-HS256+A128KW.
func NewPBES2HS256A128KW() *PBES2 {
	return &PBES2{name: PBES2HS256A128KW, hash: sha256.New, kwSize: 16}
}

// NewPBES2HS384A192KW returns PBES2-HS384+A192KW.
func NewPBES2HS384A192KW() *PBES2 {
	return &PBES2{name: PBES2HS384A192KW, hash: sha512.New384, kwSize: 24}
}

// NewPBES2HS512A256KW returns PBES2-HS512+A256KW.
func NewPBES2HS512A256KW() *PBES2 {
	return &PBES2{name: PBES2HS512A256KW, hash: sha512.New, kwSize: 32}
}

// Name returns the "alg" value.
func (p *PBES2) Name() string { return p.name }

// Mode returns KeyWrapping.
func (p *PBES2) Mode() Mode { return KeyWrapping }

// Accepts reports whether key is a non-empty password.
func (p *PBES2) Accepts(key interface{}) bool {
	k, ok := key.([]byte)

	return ok && len(k) > 0
}

// Unwrap derives the KEK from the password, "p2s" and "p2c", then unwraps the CEK.
func (p *PBES2) Unwrap(key interface{}, in *UnwrapInput) ([]byte, error) {
	if !p.Accepts(key) {
		return nil, fmt.Errorf("%s: %w", p.name, ErrIncompatibleKey)
	}

	if len(in.Params.P2S) < minPBES2SaltSize {
		return nil, fmt.Errorf("%s: %w: p2s", p.name, ErrMissingParameter)
	}

	if in.Params.P2C < MinPBES2Count || in.Params.P2C > MaxPBES2Count {
		return nil, fmt.Errorf("%s: %w: p2c out of range", p.name, ErrMissingParameter)
	}

	kek := p.deriveKEK(key.([]byte), in.Params.P2S, in.Params.P2C) //nolint:forcetypeassert
	defer cryptoutil.Zero(kek)

	return aesUnwrap(p.name, kek, in.EncryptedKey)
}

// Wrap derives a KEK with a fresh salt and wraps the CEK.
func (p *PBES2) Wrap(key interface{}, in *WrapInput) (*WrapOutput, error) {
	if !p.Accepts(key) {
		return nil, fmt.Errorf("%s: %w", p.name, ErrIncompatibleKey)
	}

	count := in.P2C
	if count == 0 {
		count = DefaultPBES2Count
	}

	if count < MinPBES2Count || count > MaxPBES2Count {
		return nil, fmt.Errorf("%s: %w: p2c out of range", p.name, ErrMissingParameter)
	}

	p2s := random.GetRandomBytes(pbes2SaltSize)

	kek := p.deriveKEK(key.([]byte), p2s, count) //nolint:forcetypeassert
	defer cryptoutil.Zero(kek)

	encryptedKey, err := aesWrap(p.name, kek, in.CEK)
	if err != nil {
		return nil, err
	}

	return &WrapOutput{
		EncryptedKey: encryptedKey,
		Params:       HeaderParams{P2S: p2s, P2C: count},
	}, nil
}

// deriveKEK computes PBKDF2 over the salt value (UTF8(alg) || 0x00 || p2s).
func (p *PBES2) deriveKEK(password, p2s []byte, count int) []byte {
	salt := make([]byte, 0, len(p.name)+1+len(p2s))
	salt = append(salt, p.name...)
	salt = append(salt, 0)
	salt = append(salt, p2s...)

	return pbkdf2.Key(password, salt, count, p.kwSize, p.hash)
}
