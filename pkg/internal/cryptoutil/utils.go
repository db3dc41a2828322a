/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cryptoutil

import (
	"crypto"
	"encoding/binary"
	"errors"
	"fmt"

	josecipher "github.com/go-jose/go-jose/v3/cipher"
	"golang.org/x/crypto/curve25519"
)

// Curve25519KeySize number of bytes in a Curve25519 public or private key.
const Curve25519KeySize = 32

const bitsPerByte = 8

// ErrInvalidKey is used when a key is invalid.
var ErrInvalidKey = errors.New("invalid key")

// LengthPrefix array with a bigEndian uint32 value of array's length.
func LengthPrefix(array []byte) []byte {
	arrInfo := make([]byte, 4+len(array))
	binary.BigEndian.PutUint32(arrInfo, uint32(len(array)))
	copy(arrInfo[4:], array)

	return arrInfo
}

// ConcatKDF derives keySize bytes from the shared secret z as per https://tools.ietf.org/html/rfc7518#section-4.6.2.
// algID is the "enc" value for direct key agreement or the "alg" value when the result is used as a KEK.
func ConcatKDF(z []byte, algID string, apu, apv []byte, keySize int) []byte {
	// suppPubInfo is the encoded length of the derived key in bits
	supPubInfo := make([]byte, 4)
	binary.BigEndian.PutUint32(supPubInfo, uint32(keySize)*bitsPerByte)

	reader := josecipher.NewConcatKDF(crypto.SHA256, z, LengthPrefix([]byte(algID)), LengthPrefix(apu),
		LengthPrefix(apv), supPubInfo, []byte{})

	key := make([]byte, keySize)

	_, _ = reader.Read(key) // nolint:errcheck // ConcatKDF's Read() never returns an error

	return key
}

// DeriveECDHX25519 computes the X25519 shared secret between a private scalar and a peer public key.
func DeriveECDHX25519(privKey, pubKey []byte) ([]byte, error) {
	if len(privKey) != Curve25519KeySize || len(pubKey) != Curve25519KeySize {
		return nil, ErrInvalidKey
	}

	z, err := curve25519.X25519(privKey, pubKey)
	if err != nil {
		return nil, fmt.Errorf("deriveECDHX25519: %w", err)
	}

	return z, nil
}

// X25519PublicKey returns the public key of an X25519 private scalar.
func X25519PublicKey(privKey []byte) ([]byte, error) {
	if len(privKey) != Curve25519KeySize {
		return nil, ErrInvalidKey
	}

	return curve25519.X25519(privKey, curve25519.Basepoint)
}

// Zero overwrites b with zeros. It is used to wipe CEK and KEK buffers once they are no longer needed.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
