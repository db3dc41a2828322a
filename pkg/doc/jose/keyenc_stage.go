/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jose

import (
	"errors"
	"fmt"

	"github.com/go-jose/go-jose/v3"

	"github.com/hyperledger/aries-framework-go-jwe/pkg/crypto/keywrap"
	"github.com/hyperledger/aries-framework-go-jwe/pkg/doc/jose/jwa"
)

const useEncryption = "enc"

// KeySetProvider returns the candidate decryption keys for a JWE recipient.
// Key material is set in JSONWebKey.Key: *rsa.PrivateKey, *ecdsa.PrivateKey, keywrap.X25519PrivateKey or []byte
// for symmetric keys and passwords.
type KeySetProvider interface {
	// FindKeysFor returns the keys that may decrypt a recipient with the given (merged) JOSE header.
	FindKeysFor(headers Headers) ([]*jose.JSONWebKey, error)
}

// RecoverCEK recovers the content encryption key of a recipient.
//
// header is the merged JOSE header of the recipient. The "alg" and "enc" values are checked against allowlist
// before keys is consulted. Every failure to recover the CEK with a permitted algorithm is reported as
// ErrCEKRecoveryFailed, without telling which key or which step failed.
// For RSA1_5, a wrong key or a tampered encrypted key yields a random CEK instead of an error. With any other
// algorithm, a CEK that unwraps but doesn't fit "enc" is returned as is.
//
// The caller owns the returned CEK and must wipe it with cryptoutil.Zero.
func RecoverCEK(recipient *Recipient, header Headers, keys KeySetProvider, allowlist *Allowlist) ([]byte, error) {
	alg, cekSize, err := checkKeyEncryption(header, allowlist)
	if err != nil {
		return nil, err
	}

	params, err := keyManagementParams(header)
	if err != nil {
		return nil, err
	}

	enc, _ := header.Encryption()

	in := &keywrap.UnwrapInput{
		EncryptedKey: recipient.EncryptedKey,
		Params:       *params,
		EncAlg:       enc,
		CEKSize:      cekSize,
	}

	candidates, err := keys.FindKeysFor(header)
	if err != nil {
		return nil, fmt.Errorf("%w: key lookup: %v", ErrCEKRecoveryFailed, err)
	}

	kid, _ := header.KeyID()

	for _, k := range candidates {
		if !keyMatches(k, alg, kid) {
			continue
		}

		cek, errUnwrap := alg.Unwrap(k.Key, in)
		if errUnwrap != nil {
			continue
		}

		// a successful unwrap authenticates the key, a CEK of the wrong size is left to DecryptContent, which
		// rejects it with ErrInvalidKeyLength.
		return cek, nil
	}

	return nil, ErrCEKRecoveryFailed
}

// checkKeyEncryption validates "alg" and "enc" of a recipient header. It returns the key management algorithm and
// the CEK size of the content encryption algorithm.
func checkKeyEncryption(header Headers, allowlist *Allowlist) (keywrap.Algorithm, int, error) {
	algName, ok := header.Algorithm()
	if !ok || algName == "" {
		return nil, 0, fmt.Errorf("%w: missing %q header", ErrMalformedToken, HeaderAlgorithm)
	}

	alg, err := jwa.KeyEncryption(algName)
	if err != nil {
		return nil, 0, err
	}

	if !allowlist.AllowsKeyEncryption(algName) {
		return nil, 0, fmt.Errorf("%w: %q %q", ErrAlgorithmNotAllowed, HeaderAlgorithm, algName)
	}

	enc, err := checkContentEncryption(header, allowlist)
	if err != nil {
		return nil, 0, err
	}

	return alg, enc.KeySize(), nil
}

// keyManagementParams decodes the key management header parameters. A missing parameter is left empty and reported
// by the algorithm, an "epk" that can't be used is a CEK recovery failure.
func keyManagementParams(header Headers) (*keywrap.HeaderParams, error) {
	params := &keywrap.HeaderParams{}

	for _, p := range []struct {
		get func() ([]byte, error)
		dst *[]byte
	}{
		{header.APU, &params.APU},
		{header.APV, &params.APV},
		{header.IV, &params.IV},
		{header.Tag, &params.Tag},
		{header.P2S, &params.P2S},
	} {
		v, err := p.get()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		}

		*p.dst = v
	}

	p2c, err := header.P2C()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	params.P2C = p2c

	if rawEPK, ok := header.EPK(); ok {
		params.EPK, err = keywrap.ParseEPK(rawEPK)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCEKRecoveryFailed, err)
		}
	}

	return params, nil
}

// keyMatches filters the candidate keys on declared use, algorithm, key ID and key material type.
func keyMatches(k *jose.JSONWebKey, alg keywrap.Algorithm, kid string) bool {
	if k == nil || k.Key == nil {
		return false
	}

	if k.Use != "" && k.Use != useEncryption {
		return false
	}

	if k.Algorithm != "" && k.Algorithm != alg.Name() {
		return false
	}

	if kid != "" && k.KeyID != "" && kid != k.KeyID {
		return false
	}

	return alg.Accepts(k.Key)
}

// isAllowlistError reports whether err is a structural or allowlist error that must be returned as is.
func isAllowlistError(err error) bool {
	return errors.Is(err, ErrMalformedToken) || errors.Is(err, ErrUnsupportedAlgorithm) ||
		errors.Is(err, ErrAlgorithmNotAllowed)
}
