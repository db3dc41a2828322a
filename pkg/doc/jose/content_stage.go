/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jose

import (
	"errors"
	"fmt"

	"github.com/hyperledger/aries-framework-go-jwe/pkg/crypto/contentcipher"
	"github.com/hyperledger/aries-framework-go-jwe/pkg/doc/jose/jwa"
)

// DecryptContent authenticates and decrypts the JWE content with the CEK.
//
// header is the merged JOSE header, its "enc" value is checked against allowlist. aad is the full additional
// authenticated data (see JSONWebEncryption.AdditionalAuthenticatedData). A CEK whose size doesn't match "enc" fails
// with ErrInvalidKeyLength before any tag check, every other failure is ErrDecryptionFailed. No plaintext is returned
// unless the tag verifies.
func DecryptContent(cek []byte, header Headers, iv, ciphertext, tag, aad []byte, allowlist *Allowlist) ([]byte,
	error) {
	cipher, err := checkContentEncryption(header, allowlist)
	if err != nil {
		return nil, err
	}

	if len(cek) != cipher.KeySize() {
		return nil, fmt.Errorf("%w: %s requires %d bytes, got %d", ErrInvalidKeyLength, cipher.Name(),
			cipher.KeySize(), len(cek))
	}

	plaintext, err := cipher.Open(cek, iv, ciphertext, tag, aad)
	if err != nil {
		if errors.Is(err, contentcipher.ErrInvalidKeySize) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKeyLength, err)
		}

		return nil, ErrDecryptionFailed
	}

	return plaintext, nil
}

func checkContentEncryption(header Headers, allowlist *Allowlist) (contentcipher.Cipher, error) {
	encName, ok := header.Encryption()
	if !ok || encName == "" {
		return nil, fmt.Errorf("%w: missing %q header", ErrMalformedToken, HeaderEncryption)
	}

	cipher, err := jwa.ContentEncryption(encName)
	if err != nil {
		return nil, err
	}

	if !allowlist.AllowsContentEncryption(encName) {
		return nil, fmt.Errorf("%w: %q %q", ErrAlgorithmNotAllowed, HeaderEncryption, encName)
	}

	return cipher, nil
}
