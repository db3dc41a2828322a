/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package keywrap

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	_ "crypto/sha1"   // RSA-OAEP
	_ "crypto/sha256" // RSA-OAEP-256
	_ "crypto/sha512" // RSA-OAEP-384, RSA-OAEP-512
	"fmt"

	"github.com/google/tink/go/subtle/random"
)

const minRSAKeyBits = 2048

// RSAKeyEncryption implements RSA1_5 and the RSA-OAEP family.
type RSAKeyEncryption struct {
	name string
	// hash is zero for RSA1_5.
	hash crypto.Hash
}

// NewRSAPKCS1v15 returns the RSA1_5 algorithm.
func NewRSAPKCS1v15() *RSAKeyEncryption {
	return &RSAKeyEncryption{name: RSA1_5}
}

// NewRSAOAEP returns an RSA-OAEP algorithm using hash for both OAEP and MGF1.
func NewRSAOAEP(name string, hash crypto.Hash) *RSAKeyEncryption {
	return &RSAKeyEncryption{name: name, hash: hash}
}

// Name returns the "alg" value.
func (r *RSAKeyEncryption) Name() string { return r.name }

// Mode returns KeyEncryption.
func (r *RSAKeyEncryption) Mode() Mode { return KeyEncryption }

// Accepts reports whether key is an RSA private key of at least 2048 bits.
func (r *RSAKeyEncryption) Accepts(key interface{}) bool {
	priv, ok := key.(*rsa.PrivateKey)

	return ok && priv.N.BitLen() >= minRSAKeyBits
}

// Unwrap decrypts the CEK.
//
// For RSA1_5 a random CEK of the expected size is returned whenever decryption fails, so that a padding error can
// only be observed as a content authentication failure
// (https://tools.ietf.org/html/rfc7516#section-11.5, Bleichenbacher's attack).
func (r *RSAKeyEncryption) Unwrap(key interface{}, in *UnwrapInput) ([]byte, error) {
	priv, ok := key.(*rsa.PrivateKey)
	if !ok || !r.Accepts(key) {
		return nil, fmt.Errorf("%s: %w", r.name, ErrIncompatibleKey)
	}

	if r.hash == 0 {
		cek := random.GetRandomBytes(uint32(in.CEKSize))

		// DecryptPKCS1v15SessionKey leaves cek untouched in constant time if the padding or the size is wrong.
		_ = rsa.DecryptPKCS1v15SessionKey(rand.Reader, priv, in.EncryptedKey, cek) //nolint:errcheck

		return cek, nil
	}

	cek, err := rsa.DecryptOAEP(r.hash.New(), rand.Reader, priv, in.EncryptedKey, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.name, ErrUnwrapFailed)
	}

	return cek, nil
}

// Wrap encrypts the CEK to an RSA public key.
func (r *RSAKeyEncryption) Wrap(key interface{}, in *WrapInput) (*WrapOutput, error) {
	var pub *rsa.PublicKey

	switch k := key.(type) {
	case *rsa.PublicKey:
		pub = k
	case *rsa.PrivateKey:
		pub = &k.PublicKey
	default:
		return nil, fmt.Errorf("%s: %w", r.name, ErrIncompatibleKey)
	}

	if pub.N.BitLen() < minRSAKeyBits {
		return nil, fmt.Errorf("%s: %w: RSA key must be at least %d bits", r.name, ErrIncompatibleKey, minRSAKeyBits)
	}

	var (
		encryptedKey []byte
		err          error
	)

	if r.hash == 0 {
		encryptedKey, err = rsa.EncryptPKCS1v15(rand.Reader, pub, in.CEK)
	} else {
		encryptedKey, err = rsa.EncryptOAEP(r.hash.New(), rand.Reader, pub, in.CEK, nil)
	}

	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.name, err)
	}

	return &WrapOutput{EncryptedKey: encryptedKey}, nil
}
