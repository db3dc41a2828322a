/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jose

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/go-jose/go-jose/v3"
	"github.com/stretchr/testify/require"
)

// keyList is a KeySetProvider returning every key.
type keyList []*jose.JSONWebKey

func (k keyList) FindKeysFor(Headers) ([]*jose.JSONWebKey, error) {
	return k, nil
}

func newRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	return priv
}

func newAllowlist(t *testing.T, alg, enc string) *Allowlist {
	t.Helper()

	a, err := NewAllowlist([]string{alg}, []string{enc})
	require.NoError(t, err)

	return a
}

func encryptTo(t *testing.T, enc string, recipient *RecipientKey, plaintext []byte) *JSONWebEncryption {
	t.Helper()

	e, err := NewJWEEncrypt(enc, []*RecipientKey{recipient}, WithPBES2Count(1000))
	require.NoError(t, err)

	jwe, err := e.Encrypt(plaintext)
	require.NoError(t, err)

	return jwe
}
