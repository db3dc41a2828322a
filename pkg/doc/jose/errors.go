/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jose

import (
	"errors"

	"github.com/hyperledger/aries-framework-go-jwe/pkg/doc/jose/jwa"
)

var (
	// ErrMalformedToken is returned when a JWE can't be parsed or its headers are structurally invalid.
	ErrMalformedToken = errors.New("malformed JWE")
	// ErrUnsupportedAlgorithm is returned for "alg", "enc" or "zip" values that are not supported.
	ErrUnsupportedAlgorithm = jwa.ErrUnsupportedAlgorithm
	// ErrAlgorithmNotAllowed is returned when "alg", "enc" or "zip" is outside of the configured allowlist.
	ErrAlgorithmNotAllowed = errors.New("algorithm not allowed")
	// ErrCEKRecoveryFailed is returned by RecoverCEK when no candidate key recovers the CEK. JWEDecrypt reports it
	// as ErrDecryptionFailed.
	ErrCEKRecoveryFailed = errors.New("CEK recovery failed")
	// ErrInvalidKeyLength is returned when the CEK size doesn't match the content encryption algorithm.
	ErrInvalidKeyLength = errors.New("invalid content encryption key length")
	// ErrDecryptionFailed is the uniform error for every cryptographic failure of a decryption attempt.
	ErrDecryptionFailed = errors.New("decryption failed")
)
