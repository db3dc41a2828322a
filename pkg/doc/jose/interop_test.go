/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jose_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"testing"

	"github.com/go-jose/go-jose/v3"
	"github.com/google/tink/go/subtle/random"
	"github.com/stretchr/testify/require"

	jwe "github.com/hyperledger/aries-framework-go-jwe/pkg/doc/jose"
	mockkeyset "github.com/hyperledger/aries-framework-go-jwe/pkg/mock/keyset"
)

type interopCase struct {
	name   string
	alg    jose.KeyAlgorithm
	enc    jose.ContentEncryption
	encKey interface{}
	decKey interface{}
}

func interopCases(t *testing.T) []*interopCase {
	t.Helper()

	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	p384, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	require.NoError(t, err)

	k16, k24, k32 := random.GetRandomBytes(16), random.GetRandomBytes(24), random.GetRandomBytes(32)
	password := []byte("interop password")

	return []*interopCase{
		{name: "RSA-OAEP", alg: jose.RSA_OAEP, enc: jose.A256GCM, encKey: &rsaKey.PublicKey, decKey: rsaKey},
		{name: "RSA-OAEP-256", alg: jose.RSA_OAEP_256, enc: jose.A128CBC_HS256, encKey: &rsaKey.PublicKey, decKey: rsaKey},
		{name: "A128KW", alg: jose.A128KW, enc: jose.A192GCM, encKey: k16, decKey: k16},
		{name: "A192GCMKW", alg: jose.A192GCMKW, enc: jose.A256CBC_HS512, encKey: k24, decKey: k24},
		{name: "dir", alg: jose.DIRECT, enc: jose.A256GCM, encKey: k32, decKey: k32},
		{name: "ECDH-ES", alg: jose.ECDH_ES, enc: jose.A128GCM, encKey: &p384.PublicKey, decKey: p384},
		{name: "ECDH-ES+A256KW", alg: jose.ECDH_ES_A256KW, enc: jose.A192CBC_HS384, encKey: &p384.PublicKey, decKey: p384},
		{name: "PBES2-HS384+A192KW", alg: jose.PBES2_HS384_A192KW, enc: jose.A128GCM, encKey: password, decKey: password},
	}
}

func TestDecryptGoJoseTokens(t *testing.T) {
	for _, tc := range interopCases(t) {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			encrypter, err := jose.NewEncrypter(tc.enc,
				jose.Recipient{Algorithm: tc.alg, Key: tc.encKey, KeyID: "k1", PBES2Count: testP2C},
				(&jose.EncrypterOptions{Compression: jose.DEFLATE}).WithContentType("text/plain"))
			require.NoError(t, err)

			obj, err := encrypter.EncryptWithAuthData(plaintext, []byte("interop aad"))
			require.NoError(t, err)

			d := jwe.NewJWEDecrypt(&mockkeyset.Provider{Keys: []*jose.JSONWebKey{{Key: tc.decKey, KeyID: "k1"}}},
				allowlist(t, []string{string(tc.alg)}, []string{string(tc.enc)}, "DEF"))

			result, err := d.DecryptString(obj.FullSerialize())
			require.NoError(t, err)
			require.Equal(t, plaintext, result.Plaintext)

			cty, _ := result.Headers.ContentType()
			require.Equal(t, "text/plain", cty)

			obj, err = encrypter.Encrypt(plaintext)
			require.NoError(t, err)

			serialized, err := obj.CompactSerialize()
			require.NoError(t, err)

			result, err = d.DecryptString(serialized)
			require.NoError(t, err)
			require.Equal(t, plaintext, result.Plaintext)
		})
	}
}

func TestGoJoseDecryptsTokens(t *testing.T) {
	for _, tc := range interopCases(t) {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			e, err := jwe.NewJWEEncrypt(string(tc.enc),
				[]*jwe.RecipientKey{{Algorithm: string(tc.alg), KeyID: "k1", Key: tc.encKey}},
				jwe.WithPBES2Count(testP2C), jwe.WithCompression("DEF"))
			require.NoError(t, err)

			token, err := e.EncryptWithAuthData(plaintext, []byte("interop aad"))
			require.NoError(t, err)

			full, err := token.FullSerialize(json.Marshal)
			require.NoError(t, err)

			obj, err := jose.ParseEncrypted(full)
			require.NoError(t, err)

			decrypted, err := obj.Decrypt(tc.decKey)
			require.NoError(t, err)
			require.Equal(t, plaintext, decrypted)
		})
	}
}

func TestMultiRecipientInterop(t *testing.T) {
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	kek := random.GetRandomBytes(32)

	t.Run("go-jose to jwe", func(t *testing.T) {
		encrypter, err := jose.NewMultiEncrypter(jose.A256GCM, []jose.Recipient{
			{Algorithm: jose.RSA_OAEP_256, Key: &rsaKey.PublicKey, KeyID: "rsa"},
			{Algorithm: jose.A256KW, Key: kek, KeyID: "sym"},
		}, nil)
		require.NoError(t, err)

		obj, err := encrypter.Encrypt(plaintext)
		require.NoError(t, err)

		d := jwe.NewJWEDecrypt(&mockkeyset.Provider{Keys: []*jose.JSONWebKey{{Key: kek, KeyID: "sym"}}},
			allowlist(t, []string{"RSA-OAEP-256", "A256KW"}, []string{"A256GCM"}))

		result, err := d.DecryptString(obj.FullSerialize())
		require.NoError(t, err)
		require.Equal(t, plaintext, result.Plaintext)
		require.Equal(t, 1, result.Recipient)
	})

	t.Run("jwe to go-jose", func(t *testing.T) {
		e, err := jwe.NewJWEEncrypt("A256GCM", []*jwe.RecipientKey{
			{Algorithm: "RSA-OAEP-256", KeyID: "rsa", Key: &rsaKey.PublicKey},
			{Algorithm: "A256KW", KeyID: "sym", Key: kek},
		})
		require.NoError(t, err)

		token, err := e.Encrypt(plaintext)
		require.NoError(t, err)

		full, err := token.FullSerialize(json.Marshal)
		require.NoError(t, err)

		obj, err := jose.ParseEncrypted(full)
		require.NoError(t, err)

		i, header, decrypted, err := obj.DecryptMulti(rsaKey)
		require.NoError(t, err)
		require.Equal(t, 0, i)
		require.Equal(t, "rsa", header.KeyID)
		require.Equal(t, plaintext, decrypted)
	})
}
