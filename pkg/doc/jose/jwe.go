/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jose

// JSONWebEncryption represents a JWE as defined in https://tools.ietf.org/html/rfc7516.
//
// A parsed JSONWebEncryption is never modified by JWEDecrypt.
type JSONWebEncryption struct {
	ProtectedHeaders Headers
	// OrigProtectedHeaders is the base64url encoded protected header exactly as received (or produced). It is the
	// input of the additional authenticated data, re-encoding ProtectedHeaders would not be byte exact.
	OrigProtectedHeaders string
	UnprotectedHeaders   Headers
	Recipients           []*Recipient
	AAD                  []byte
	IV                   []byte
	Ciphertext           []byte
	Tag                  []byte
}

// Recipient is a recipient of a JWE including the encrypted CEK.
type Recipient struct {
	Header       Headers
	EncryptedKey []byte
}

// RecipientHeaders returns the JOSE header of the recipient at index i: the union of the protected, unprotected and
// per-recipient headers.
func (e *JSONWebEncryption) RecipientHeaders(i int) Headers {
	var recipientHeader Headers

	if i >= 0 && i < len(e.Recipients) && e.Recipients[i] != nil {
		recipientHeader = e.Recipients[i].Header
	}

	return e.ProtectedHeaders.merge(e.UnprotectedHeaders, recipientHeader)
}

// AdditionalAuthenticatedData computes the AEAD additional authenticated data of the JWE:
// ASCII(BASE64URL(protected)), followed by '.' || BASE64URL(aad) when the JWE has an aad member.
func (e *JSONWebEncryption) AdditionalAuthenticatedData() []byte {
	if len(e.AAD) == 0 {
		return []byte(e.OrigProtectedHeaders)
	}

	return []byte(e.OrigProtectedHeaders + "." + encodeSegment(e.AAD))
}
