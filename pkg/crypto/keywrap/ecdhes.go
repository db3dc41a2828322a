/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package keywrap

import (
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"

	josecipher "github.com/go-jose/go-jose/v3/cipher"
	"github.com/google/tink/go/subtle/random"

	"github.com/hyperledger/aries-framework-go-jwe/pkg/internal/cryptoutil"
)

// ECDHESKeyAgreement implements ECDH-ES and ECDH-ES+A128KW/A192KW/A256KW
// (https://tools.ietf.org/html/rfc7518#section-4.6) on NIST P curves (EC keys) and X25519 (OKP keys).
type ECDHESKeyAgreement struct {
	name string
	// kwSize is the AES key wrap KEK size, zero for direct key agreement.
	kwSize int
}

// NewECDHESDirect returns the ECDH-ES direct key agreement algorithm.
func NewECDHESDirect() *ECDHESKeyAgreement {
	return &ECDHESKeyAgreement{name: ECDHES}
}

// NewECDHESKeyWrap returns an ECDH-ES+AxxxKW algorithm with a KEK of kwSize bytes.
func NewECDHESKeyWrap(name string, kwSize int) *ECDHESKeyAgreement {
	return &ECDHESKeyAgreement{name: name, kwSize: kwSize}
}

// Name returns the "alg" value.
func (e *ECDHESKeyAgreement) Name() string { return e.name }

// Mode returns DirectKeyAgreement or KeyAgreementWithKeyWrapping.
func (e *ECDHESKeyAgreement) Mode() Mode {
	if e.kwSize == 0 {
		return DirectKeyAgreement
	}

	return KeyAgreementWithKeyWrapping
}

// Accepts reports whether key is an EC or X25519 private key.
func (e *ECDHESKeyAgreement) Accepts(key interface{}) bool {
	switch k := key.(type) {
	case *ecdsa.PrivateKey:
		return k != nil
	case X25519PrivateKey:
		return len(k) == cryptoutil.Curve25519KeySize
	default:
		return false
	}
}

// Unwrap performs the key agreement with the "epk" header and derives the CEK (ECDH-ES) or the KEK used to unwrap
// the encrypted key (ECDH-ES+AxxxKW).
func (e *ECDHESKeyAgreement) Unwrap(key interface{}, in *UnwrapInput) ([]byte, error) {
	if !e.Accepts(key) {
		return nil, fmt.Errorf("%s: %w", e.name, ErrIncompatibleKey)
	}

	if in.Params.EPK == nil {
		return nil, fmt.Errorf("%s: %w: epk", e.name, ErrMissingParameter)
	}

	if e.kwSize == 0 && len(in.EncryptedKey) != 0 {
		return nil, fmt.Errorf("%s: %w: encrypted key must be empty", e.name, ErrUnwrapFailed)
	}

	algID, size := e.kdfParams(in.EncAlg, in.CEKSize)

	derived, err := e.deriveRecipient(key, in.Params.EPK, algID, in.Params.APU, in.Params.APV, size)
	if err != nil {
		return nil, err
	}

	if e.kwSize == 0 {
		return derived, nil
	}

	defer cryptoutil.Zero(derived)

	return aesUnwrap(e.name, derived, in.EncryptedKey)
}

// Wrap generates an ephemeral key on the recipient's curve, derives the CEK (ECDH-ES) or wraps in.CEK with the
// derived KEK (ECDH-ES+AxxxKW), and returns the ephemeral public key as the "epk" parameter.
func (e *ECDHESKeyAgreement) Wrap(key interface{}, in *WrapInput) (*WrapOutput, error) {
	algID, size := e.kdfParams(in.EncAlg, in.CEKSize)

	derived, epk, err := e.deriveSender(key, algID, in.APU, in.APV, size)
	if err != nil {
		return nil, err
	}

	out := &WrapOutput{Params: HeaderParams{EPK: epk, APU: in.APU, APV: in.APV}}

	if e.kwSize == 0 {
		out.CEK = derived

		return out, nil
	}

	defer cryptoutil.Zero(derived)

	out.EncryptedKey, err = aesWrap(e.name, derived, in.CEK)
	if err != nil {
		return nil, err
	}

	return out, nil
}

// kdfParams returns the Concat KDF algorithm id and key size: "enc" and the CEK size for direct key agreement,
// "alg" and the KEK size otherwise.
func (e *ECDHESKeyAgreement) kdfParams(encAlg string, cekSize int) (string, int) {
	if e.kwSize == 0 {
		return encAlg, cekSize
	}

	return e.name, e.kwSize
}

func (e *ECDHESKeyAgreement) deriveRecipient(key, epk interface{}, algID string, apu, apv []byte,
	size int) ([]byte, error) {
	switch priv := key.(type) {
	case *ecdsa.PrivateKey:
		pub, ok := epk.(*ecdsa.PublicKey)
		if !ok || !sameCurve(priv, pub) {
			return nil, fmt.Errorf("%s: %w: epk is not on the recipient's curve", e.name, ErrUnwrapFailed)
		}

		return josecipher.DeriveECDHES(algID, apu, apv, priv, pub, size), nil
	case X25519PrivateKey:
		pub, ok := epk.(X25519PublicKey)
		if !ok {
			return nil, fmt.Errorf("%s: %w: epk is not an X25519 key", e.name, ErrUnwrapFailed)
		}

		z, err := cryptoutil.DeriveECDHX25519(priv, pub)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.name, ErrUnwrapFailed)
		}

		defer cryptoutil.Zero(z)

		return cryptoutil.ConcatKDF(z, algID, apu, apv, size), nil
	default:
		return nil, fmt.Errorf("%s: %w", e.name, ErrIncompatibleKey)
	}
}

func (e *ECDHESKeyAgreement) deriveSender(key interface{}, algID string, apu, apv []byte,
	size int) ([]byte, interface{}, error) {
	switch k := key.(type) {
	case *ecdsa.PrivateKey:
		return e.deriveSender(&k.PublicKey, algID, apu, apv, size)
	case *ecdsa.PublicKey:
		ephemeral, err := ecdsa.GenerateKey(k.Curve, rand.Reader)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: generate ephemeral key: %w", e.name, err)
		}

		if !sameCurve(ephemeral, k) {
			return nil, nil, fmt.Errorf("%s: %w: recipient key is not on its curve", e.name, ErrIncompatibleKey)
		}

		return josecipher.DeriveECDHES(algID, apu, apv, ephemeral, k, size), &ephemeral.PublicKey, nil
	case X25519PublicKey:
		ephemeral := random.GetRandomBytes(cryptoutil.Curve25519KeySize)
		defer cryptoutil.Zero(ephemeral)

		ephemeralPub, err := cryptoutil.X25519PublicKey(ephemeral)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", e.name, err)
		}

		z, err := cryptoutil.DeriveECDHX25519(ephemeral, k)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", e.name, ErrIncompatibleKey)
		}

		defer cryptoutil.Zero(z)

		return cryptoutil.ConcatKDF(z, algID, apu, apv, size), X25519PublicKey(ephemeralPub), nil
	default:
		return nil, nil, fmt.Errorf("%s: %w", e.name, ErrIncompatibleKey)
	}
}

// sameCurve checks that pub is a valid point on priv's curve. DeriveECDHES panics otherwise, and accepting an
// off-curve point would allow invalid curve attacks.
func sameCurve(priv *ecdsa.PrivateKey, pub *ecdsa.PublicKey) bool {
	if pub == nil || pub.X == nil || pub.Y == nil || pub.Curve == nil {
		return false
	}

	if priv.Curve.Params().Name != pub.Curve.Params().Name {
		return false
	}

	return priv.Curve.IsOnCurve(pub.X, pub.Y)
}
