/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jose_test

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/go-jose/go-jose/v3"
	josecipher "github.com/go-jose/go-jose/v3/cipher"
	"github.com/golang/mock/gomock"
	"github.com/google/tink/go/subtle/random"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-framework-go-jwe/pkg/crypto/keywrap"
	jwe "github.com/hyperledger/aries-framework-go-jwe/pkg/doc/jose"
	"github.com/hyperledger/aries-framework-go-jwe/pkg/internal/cryptoutil"
	mockjose "github.com/hyperledger/aries-framework-go-jwe/pkg/internal/gomocks/doc/jose"
	mockkeyset "github.com/hyperledger/aries-framework-go-jwe/pkg/mock/keyset"
)

const testP2C = 1000

var plaintext = []byte("Lorem ipsum dolor sit amet, consectetur adipiscing elit")

type testKey struct {
	alg     string
	encKey  interface{}
	decKey  interface{}
	encAlgs []string
}

func testKeys(t *testing.T) []*testKey {
	t.Helper()

	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	p256, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	p521, err := ecdsa.GenerateKey(elliptic.P521(), rand.Reader)
	require.NoError(t, err)

	x25519Priv := random.GetRandomBytes(cryptoutil.Curve25519KeySize)
	x25519Pub, err := cryptoutil.X25519PublicKey(x25519Priv)
	require.NoError(t, err)

	sym := func(size uint32) []byte { return random.GetRandomBytes(size) }
	k16, k24, k32 := sym(16), sym(24), sym(32)
	password := []byte("correct horse battery staple")

	return []*testKey{
		{alg: "RSA1_5", encKey: &rsaKey.PublicKey, decKey: rsaKey},
		{alg: "RSA-OAEP", encKey: &rsaKey.PublicKey, decKey: rsaKey},
		{alg: "RSA-OAEP-256", encKey: &rsaKey.PublicKey, decKey: rsaKey},
		{alg: "RSA-OAEP-384", encKey: &rsaKey.PublicKey, decKey: rsaKey},
		{alg: "RSA-OAEP-512", encKey: &rsaKey.PublicKey, decKey: rsaKey},
		{alg: "A128KW", encKey: k16, decKey: k16},
		{alg: "A192KW", encKey: k24, decKey: k24},
		{alg: "A256KW", encKey: k32, decKey: k32},
		{alg: "A128GCMKW", encKey: k16, decKey: k16},
		{alg: "A192GCMKW", encKey: k24, decKey: k24},
		{alg: "A256GCMKW", encKey: k32, decKey: k32},
		{alg: "dir", encKey: k32, decKey: k32, encAlgs: []string{"A256GCM", "A128CBC-HS256", "XC20P"}},
		{alg: "ECDH-ES", encKey: &p256.PublicKey, decKey: p256},
		{alg: "ECDH-ES", encKey: keywrap.X25519PublicKey(x25519Pub), decKey: keywrap.X25519PrivateKey(x25519Priv)},
		{alg: "ECDH-ES+A128KW", encKey: &p521.PublicKey, decKey: p521},
		{alg: "ECDH-ES+A192KW", encKey: &p256.PublicKey, decKey: p256},
		{alg: "ECDH-ES+A256KW", encKey: keywrap.X25519PublicKey(x25519Pub), decKey: keywrap.X25519PrivateKey(x25519Priv)},
		{alg: "PBES2-HS256+A128KW", encKey: password, decKey: password},
		{alg: "PBES2-HS384+A192KW", encKey: password, decKey: password},
		{alg: "PBES2-HS512+A256KW", encKey: password, decKey: password},
	}
}

var allEncAlgs = []string{ //nolint:gochecknoglobals
	"A128GCM", "A192GCM", "A256GCM", "A128CBC-HS256", "A192CBC-HS384", "A256CBC-HS512", "XC20P",
}

func allowlist(t *testing.T, algs, encs []string, zip ...string) *jwe.Allowlist {
	t.Helper()

	a, err := jwe.NewAllowlist(algs, encs, zip...)
	require.NoError(t, err)

	return a
}

func encrypt(t *testing.T, enc string, recipients []*jwe.RecipientKey, opts ...jwe.EncrypterOpt) *jwe.JSONWebEncryption {
	t.Helper()

	e, err := jwe.NewJWEEncrypt(enc, recipients, append(opts, jwe.WithPBES2Count(testP2C))...)
	require.NoError(t, err)

	token, err := e.Encrypt(plaintext)
	require.NoError(t, err)

	return token
}

func compact(t *testing.T, token *jwe.JSONWebEncryption) string {
	t.Helper()

	s, err := token.CompactSerialize(json.Marshal)
	require.NoError(t, err)

	return s
}

func base64URL(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

func sealA128GCM(t *testing.T, key, plaintext, aad []byte) ([]byte, []byte, []byte) {
	t.Helper()

	block, err := aes.NewCipher(key)
	require.NoError(t, err)

	gcm, err := cipher.NewGCM(block)
	require.NoError(t, err)

	iv := random.GetRandomBytes(uint32(gcm.NonceSize()))
	sealed := gcm.Seal(nil, iv, plaintext, aad)
	tagStart := len(sealed) - gcm.Overhead()

	return iv, sealed[:tagStart], sealed[tagStart:]
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	for _, k := range testKeys(t) {
		k := k

		encAlgs := k.encAlgs
		if encAlgs == nil {
			encAlgs = allEncAlgs
		}

		for _, enc := range encAlgs {
			enc := enc

			t.Run(k.alg+"/"+enc, func(t *testing.T) {
				token := encrypt(t, enc, []*jwe.RecipientKey{{Algorithm: k.alg, Key: k.encKey}})

				d := jwe.NewJWEDecrypt(&mockkeyset.Provider{Keys: []*jose.JSONWebKey{{Key: k.decKey}}},
					allowlist(t, []string{k.alg}, []string{enc}))

				result, err := d.DecryptString(compact(t, token))
				require.NoError(t, err)
				require.Equal(t, plaintext, result.Plaintext)

				alg, _ := result.Headers.Algorithm()
				require.Equal(t, k.alg, alg)

				decrypted, err := d.Decrypt(token)
				require.NoError(t, err)
				require.Equal(t, plaintext, decrypted)
			})
		}
	}
}

func TestRSAOAEPScenario(t *testing.T) {
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	token := compact(t, encrypt(t, "A256GCM", []*jwe.RecipientKey{{Algorithm: "RSA-OAEP", Key: &rsaKey.PublicKey}}))
	keys := &mockkeyset.Provider{Keys: []*jose.JSONWebKey{{Key: rsaKey}}}

	t.Run("allowed", func(t *testing.T) {
		d := jwe.NewJWEDecrypt(keys, allowlist(t, []string{"RSA-OAEP"}, []string{"A256GCM"}))

		result, err := d.DecryptString(token)
		require.NoError(t, err)
		require.Equal(t, plaintext, result.Plaintext)
	})

	t.Run("alg not allowed, whatever the key", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// keys are never consulted for a disallowed algorithm
		noKeys := mockjose.NewMockKeySetProvider(ctrl)

		d := jwe.NewJWEDecrypt(noKeys, allowlist(t, []string{"RSA1_5"}, []string{"A256GCM"}))

		_, err := d.DecryptString(token)
		require.ErrorIs(t, err, jwe.ErrAlgorithmNotAllowed)
	})

	t.Run("enc not allowed even though the CEK is recoverable", func(t *testing.T) {
		keys := &mockkeyset.Provider{Keys: []*jose.JSONWebKey{{Key: rsaKey}}}
		d := jwe.NewJWEDecrypt(keys, allowlist(t, []string{"RSA-OAEP"}, []string{"A128GCM"}))

		_, err := d.DecryptString(token)
		require.ErrorIs(t, err, jwe.ErrAlgorithmNotAllowed)
		require.Empty(t, keys.Calls())
	})
}

func TestDecryptFailures(t *testing.T) {
	kek := random.GetRandomBytes(32)
	token := encrypt(t, "A256GCM", []*jwe.RecipientKey{{Algorithm: "A256KW", Key: kek}})
	serialized := compact(t, token)
	parts := strings.Split(serialized, ".")

	var (
		mu          sync.Mutex
		diagnostics []*jwe.Diagnostic
	)

	d := jwe.NewJWEDecrypt(&mockkeyset.Provider{Keys: []*jose.JSONWebKey{{Key: kek}}},
		allowlist(t, []string{"A256KW"}, []string{"A256GCM"}),
		jwe.WithName("test"),
		jwe.WithDiagnostics(func(diag *jwe.Diagnostic) {
			mu.Lock()
			diagnostics = append(diagnostics, diag)
			mu.Unlock()
		}))

	tamper := func(part int) string {
		tampered := append([]string{}, parts...)
		b := []byte(tampered[part])
		// flip a character in the middle, keeping the segment valid base64url
		if b[len(b)/2] == 'A' {
			b[len(b)/2] = 'B'
		} else {
			b[len(b)/2] = 'A'
		}

		tampered[part] = string(b)

		return strings.Join(tampered, ".")
	}

	t.Run("tampering is reported uniformly", func(t *testing.T) {
		for part, stage := range map[int]jwe.Stage{
			1: jwe.StageKeyRecovery,
			2: jwe.StageContentDecryption,
			3: jwe.StageContentDecryption,
			4: jwe.StageContentDecryption,
		} {
			diagnostics = nil

			_, err := d.DecryptString(tamper(part))
			require.Error(t, err)
			require.True(t, errors.Is(err, jwe.ErrDecryptionFailed), "part %d: %v", part, err)
			require.Equal(t, "jwedecrypt: decryption failed", err.Error())

			require.NotEmpty(t, diagnostics)
			require.Equal(t, stage, diagnostics[0].Stage)
			require.Equal(t, "test", diagnostics[0].Decrypter)
			require.NotEmpty(t, diagnostics[0].AttemptID)
		}
	})

	t.Run("tampered encrypted key is a CEK recovery failure internally", func(t *testing.T) {
		diagnostics = nil

		_, err := d.DecryptString(tamper(1))
		require.ErrorIs(t, err, jwe.ErrDecryptionFailed)
		require.ErrorIs(t, diagnostics[0].Err, jwe.ErrCEKRecoveryFailed)
		require.ErrorIs(t, diagnostics[1].Err, jwe.ErrDecryptionFailed)
		require.Equal(t, diagnostics[0].AttemptID, diagnostics[1].AttemptID)
	})

	t.Run("tampered aad", func(t *testing.T) {
		withAAD, err := jwe.NewJWEEncrypt("A256GCM", []*jwe.RecipientKey{{Algorithm: "A256KW", Key: kek}})
		require.NoError(t, err)

		token, err := withAAD.EncryptWithAuthData(plaintext, []byte("external aad"))
		require.NoError(t, err)

		result, err := d.DecryptJWE(token)
		require.NoError(t, err)
		require.Equal(t, plaintext, result.Plaintext)

		token.AAD = []byte("external aaD")

		_, err = d.DecryptJWE(token)
		require.ErrorIs(t, err, jwe.ErrDecryptionFailed)
	})

	t.Run("wrong segment count", func(t *testing.T) {
		for _, s := range []string{
			strings.Join(parts[:4], "."),
			serialized + ".",
			strings.Join(parts, ".."),
			"",
		} {
			_, err := d.DecryptString(s)
			require.ErrorIs(t, err, jwe.ErrMalformedToken)
		}
	})

	t.Run("no key", func(t *testing.T) {
		noKey := jwe.NewJWEDecrypt(&mockkeyset.Provider{}, allowlist(t, []string{"A256KW"}, []string{"A256GCM"}))

		_, err := noKey.DecryptString(serialized)
		require.Equal(t, "jwedecrypt: decryption failed", err.Error())
	})

	t.Run("key lookup error", func(t *testing.T) {
		failing := jwe.NewJWEDecrypt(&mockkeyset.Provider{FindKeysErr: errors.New("store down")},
			allowlist(t, []string{"A256KW"}, []string{"A256GCM"}))

		_, err := failing.DecryptString(serialized)
		require.Equal(t, "jwedecrypt: decryption failed", err.Error())
	})

	t.Run("unsupported alg", func(t *testing.T) {
		unsupported := &jwe.JSONWebEncryption{
			ProtectedHeaders:     jwe.Headers{"alg": "RSA-OAEP-1024", "enc": "A256GCM"},
			OrigProtectedHeaders: "e30",
			Recipients:           []*jwe.Recipient{{}},
		}

		_, err := d.DecryptJWE(unsupported)
		require.ErrorIs(t, err, jwe.ErrUnsupportedAlgorithm)
	})

	t.Run("no recipients", func(t *testing.T) {
		_, err := d.DecryptJWE(&jwe.JSONWebEncryption{})
		require.ErrorIs(t, err, jwe.ErrMalformedToken)

		_, err = d.DecryptJWE(nil)
		require.ErrorIs(t, err, jwe.ErrMalformedToken)

		_, err = d.DecryptJWE(&jwe.JSONWebEncryption{Recipients: []*jwe.Recipient{nil}})
		require.ErrorIs(t, err, jwe.ErrMalformedToken)
	})
}

func TestInvalidKeyLength(t *testing.T) {
	key16 := random.GetRandomBytes(16)
	token := encrypt(t, "A128GCM", []*jwe.RecipientKey{{Algorithm: "dir", Key: key16}})

	// same token, but claiming A256GCM which requires a 32 bytes CEK
	token.ProtectedHeaders[jwe.HeaderEncryption] = "A256GCM"

	d := jwe.NewJWEDecrypt(&mockkeyset.Provider{Keys: []*jose.JSONWebKey{{Key: key16}}},
		allowlist(t, []string{"dir"}, []string{"A256GCM"}))

	_, err := d.DecryptJWE(token)
	require.ErrorIs(t, err, jwe.ErrInvalidKeyLength)
}

func TestInvalidWrappedKeyLength(t *testing.T) {
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	kek := random.GetRandomBytes(16)
	cek16 := random.GetRandomBytes(16)

	// a 16 bytes CEK wrapped for A256GCM, which requires 32 bytes
	protected := func(alg string) string {
		return base64URL([]byte(`{"alg":"` + alg + `","enc":"A256GCM"}`))
	}

	oaepKey, err := rsa.EncryptOAEP(sha1.New(), rand.Reader, &rsaKey.PublicKey, cek16, nil) //nolint:gosec
	require.NoError(t, err)

	block, err := aes.NewCipher(kek)
	require.NoError(t, err)

	kwKey, err := josecipher.KeyWrap(block, cek16)
	require.NoError(t, err)

	tests := []struct {
		alg          string
		key          interface{}
		encryptedKey []byte
	}{
		{alg: "RSA-OAEP", key: rsaKey, encryptedKey: oaepKey},
		{alg: "A128KW", key: kek, encryptedKey: kwKey},
	}

	for _, tc := range tests {
		tc := tc

		t.Run(tc.alg, func(t *testing.T) {
			token := strings.Join([]string{
				protected(tc.alg),
				base64URL(tc.encryptedKey),
				base64URL(random.GetRandomBytes(12)),
				base64URL([]byte("ciphertext")),
				base64URL(random.GetRandomBytes(16)),
			}, ".")

			keys := &mockkeyset.Provider{Keys: []*jose.JSONWebKey{{Key: tc.key}}}
			d := jwe.NewJWEDecrypt(keys, allowlist(t, []string{tc.alg}, []string{"A256GCM"}))

			_, err := d.DecryptString(token)
			require.ErrorIs(t, err, jwe.ErrInvalidKeyLength)
			require.NotErrorIs(t, err, jwe.ErrDecryptionFailed)
			require.Len(t, keys.Calls(), 1)
		})
	}
}

func TestEmptyPlaintext(t *testing.T) {
	key := random.GetRandomBytes(32)

	for _, enc := range []string{"A256GCM", "XC20P", "A128CBC-HS256"} {
		enc := enc

		t.Run(enc, func(t *testing.T) {
			e, err := jwe.NewJWEEncrypt(enc, []*jwe.RecipientKey{{Algorithm: "A256KW", Key: key}})
			require.NoError(t, err)

			token, err := e.Encrypt([]byte{})
			require.NoError(t, err)

			d := jwe.NewJWEDecrypt(&mockkeyset.Provider{Keys: []*jose.JSONWebKey{{Key: key}}},
				allowlist(t, []string{"A256KW"}, []string{enc}))

			compactJWE, err := token.CompactSerialize(json.Marshal)
			require.NoError(t, err)

			fullJWE, err := token.FullSerialize(json.Marshal)
			require.NoError(t, err)

			flattenedJWE, err := token.FlattenedSerialize(json.Marshal)
			require.NoError(t, err)

			for _, serialized := range []string{compactJWE, fullJWE, flattenedJWE} {
				result, err := d.DecryptString(serialized)
				require.NoError(t, err)
				require.Empty(t, result.Plaintext)
			}
		})
	}

	t.Run("ciphertext member is required", func(t *testing.T) {
		d := jwe.NewJWEDecrypt(&mockkeyset.Provider{}, allowlist(t, []string{"A256KW"}, []string{"A256GCM"}))

		_, err := d.DecryptString(`{"protected":"eyJlbmMiOiJBMjU2R0NNIn0","iv":"AAAA","tag":"AAAA"}`)
		require.ErrorIs(t, err, jwe.ErrMalformedToken)
	})
}

func TestNilAllowlistAndKeys(t *testing.T) {
	key := random.GetRandomBytes(32)
	token := compact(t, encrypt(t, "A256GCM", []*jwe.RecipientKey{{Algorithm: "A256KW", Key: key}}))

	d := jwe.NewJWEDecrypt(nil, nil)
	require.Empty(t, d.Allowlist().KeyEncryptionAlgorithms())

	_, err := d.DecryptString(token)
	require.ErrorIs(t, err, jwe.ErrAlgorithmNotAllowed)

	d = jwe.NewJWEDecrypt(nil, allowlist(t, []string{"A256KW"}, []string{"A256GCM"}))

	_, err = d.DecryptString(token)
	require.ErrorIs(t, err, jwe.ErrDecryptionFailed)
}

func TestSharedKeyIsNotWiped(t *testing.T) {
	key := random.GetRandomBytes(32)
	original := append([]byte{}, key...)

	token := encrypt(t, "A256GCM", []*jwe.RecipientKey{{Algorithm: "dir", Key: key}})

	d := jwe.NewJWEDecrypt(&mockkeyset.Provider{Keys: []*jose.JSONWebKey{{Key: key}}},
		allowlist(t, []string{"dir"}, []string{"A256GCM"}))

	_, err := d.DecryptJWE(token)
	require.NoError(t, err)
	require.Equal(t, original, key)
}

func TestMultipleRecipients(t *testing.T) {
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	kek := random.GetRandomBytes(16)

	token := encrypt(t, "A128CBC-HS256", []*jwe.RecipientKey{
		{Algorithm: "RSA-OAEP-256", KeyID: "rsa", Key: &rsaKey.PublicKey},
		{Algorithm: "ECDH-ES+A128KW", KeyID: "ec", Key: &ecKey.PublicKey},
		{Algorithm: "A128KW", KeyID: "sym", Key: kek},
	}, jwe.WithType("JWE"), jwe.WithContentType("text/plain"))

	require.Len(t, token.Recipients, 3)
	require.Equal(t, jwe.Headers{"enc": "A128CBC-HS256", "typ": "JWE", "cty": "text/plain"}, token.ProtectedHeaders)

	full, err := token.FullSerialize(json.Marshal)
	require.NoError(t, err)

	t.Run("only the last recipient alg is allowed", func(t *testing.T) {
		keys := &mockkeyset.Provider{Keys: []*jose.JSONWebKey{{Key: kek, KeyID: "sym"}}}
		d := jwe.NewJWEDecrypt(keys, allowlist(t, []string{"A128KW"}, []string{"A128CBC-HS256"}))

		result, err := d.DecryptString(full)
		require.NoError(t, err)
		require.Equal(t, plaintext, result.Plaintext)
		require.Equal(t, 2, result.Recipient)

		kid, _ := result.Headers.KeyID()
		require.Equal(t, "sym", kid)

		// disallowed recipients were skipped without a key lookup
		require.Len(t, keys.Calls(), 1)
	})

	t.Run("first successful recipient wins", func(t *testing.T) {
		keys := &mockkeyset.Provider{Keys: []*jose.JSONWebKey{{Key: ecKey, KeyID: "ec"}, {Key: kek, KeyID: "sym"}}}
		d := jwe.NewJWEDecrypt(keys, allowlist(t, []string{"RSA-OAEP-256", "ECDH-ES+A128KW", "A128KW"},
			[]string{"A128CBC-HS256"}))

		result, err := d.DecryptString(full)
		require.NoError(t, err)
		require.Equal(t, 1, result.Recipient)
	})

	t.Run("gomock key lookup per recipient", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		keys := mockjose.NewMockKeySetProvider(ctrl)
		keys.EXPECT().FindKeysFor(gomock.Any()).DoAndReturn(func(h jwe.Headers) ([]*jose.JSONWebKey, error) {
			kid, _ := h.KeyID()
			require.Equal(t, "rsa", kid)

			return []*jose.JSONWebKey{{Key: rsaKey, KeyID: "rsa"}}, nil
		}).Times(1)

		d := jwe.NewJWEDecrypt(keys, allowlist(t, []string{"RSA-OAEP-256"}, []string{"A128CBC-HS256"}))

		result, err := d.DecryptString(full)
		require.NoError(t, err)
		require.Equal(t, 0, result.Recipient)
	})

	t.Run("all recipients fail uniformly", func(t *testing.T) {
		d := jwe.NewJWEDecrypt(&mockkeyset.Provider{Keys: []*jose.JSONWebKey{{Key: random.GetRandomBytes(16)}}},
			allowlist(t, []string{"RSA-OAEP-256", "ECDH-ES+A128KW", "A128KW"}, []string{"A128CBC-HS256"}))

		_, err := d.DecryptString(full)
		require.Equal(t, "jwedecrypt: decryption failed", err.Error())
	})

	t.Run("no recipient allowed", func(t *testing.T) {
		d := jwe.NewJWEDecrypt(&mockkeyset.Provider{}, allowlist(t, []string{"dir"}, []string{"A128CBC-HS256"}))

		_, err := d.DecryptString(full)
		require.ErrorIs(t, err, jwe.ErrAlgorithmNotAllowed)
	})

	t.Run("direct modes need a single recipient", func(t *testing.T) {
		_, err := jwe.NewJWEEncrypt("A128GCM", []*jwe.RecipientKey{
			{Algorithm: "dir", Key: random.GetRandomBytes(16)},
			{Algorithm: "A128KW", Key: kek},
		})
		require.Error(t, err)
	})
}

func TestCriticalHeaders(t *testing.T) {
	key := random.GetRandomBytes(16)
	a := allowlist(t, []string{"dir"}, []string{"A128GCM"})
	keys := &mockkeyset.Provider{Keys: []*jose.JSONWebKey{{Key: key}}}

	build := func(protected jwe.Headers) *jwe.JSONWebEncryption {
		token := encrypt(t, "A128GCM", []*jwe.RecipientKey{{Algorithm: "dir", Key: key}})

		for k, v := range protected {
			token.ProtectedHeaders[k] = v
		}

		raw, err := json.Marshal(token.ProtectedHeaders)
		require.NoError(t, err)

		// re-encrypt with the final protected header so that the token authenticates
		token.OrigProtectedHeaders = base64URL(raw)
		token.IV, token.Ciphertext, token.Tag = sealA128GCM(t, key, plaintext, []byte(token.OrigProtectedHeaders))

		return token
	}

	t.Run("understood and present", func(t *testing.T) {
		d := jwe.NewJWEDecrypt(keys, a, jwe.WithCriticalHeaders("exp"))

		result, err := d.DecryptJWE(build(jwe.Headers{"crit": []interface{}{"exp"}, "exp": 1}))
		require.NoError(t, err)
		require.Equal(t, plaintext, result.Plaintext)
	})

	t.Run("not understood", func(t *testing.T) {
		d := jwe.NewJWEDecrypt(keys, a)

		_, err := d.DecryptJWE(build(jwe.Headers{"crit": []interface{}{"exp"}, "exp": 1}))
		require.ErrorIs(t, err, jwe.ErrMalformedToken)
	})

	t.Run("missing", func(t *testing.T) {
		d := jwe.NewJWEDecrypt(keys, a, jwe.WithCriticalHeaders("exp"))

		_, err := d.DecryptJWE(build(jwe.Headers{"crit": []interface{}{"exp"}}))
		require.ErrorIs(t, err, jwe.ErrMalformedToken)
	})

	t.Run("unprotected crit", func(t *testing.T) {
		d := jwe.NewJWEDecrypt(keys, a, jwe.WithCriticalHeaders("exp"))
		token := build(nil)
		token.UnprotectedHeaders = jwe.Headers{"crit": []interface{}{"exp"}, "exp": 1}

		_, err := d.DecryptJWE(token)
		require.ErrorIs(t, err, jwe.ErrMalformedToken)
	})
}

func TestCompression(t *testing.T) {
	key := random.GetRandomBytes(32)
	recipients := []*jwe.RecipientKey{{Algorithm: "A256KW", Key: key}}
	keys := &mockkeyset.Provider{Keys: []*jose.JSONWebKey{{Key: key}}}

	compressible := bytes.Repeat([]byte("compress me "), 1000)

	e, err := jwe.NewJWEEncrypt("A256GCM", recipients, jwe.WithCompression("DEF"))
	require.NoError(t, err)

	token, err := e.Encrypt(compressible)
	require.NoError(t, err)
	require.Less(t, len(token.Ciphertext), len(compressible))

	t.Run("allowed", func(t *testing.T) {
		d := jwe.NewJWEDecrypt(keys, allowlist(t, []string{"A256KW"}, []string{"A256GCM"}, "DEF"))

		result, err := d.DecryptJWE(token)
		require.NoError(t, err)
		require.Equal(t, compressible, result.Plaintext)
	})

	t.Run("not allowed", func(t *testing.T) {
		d := jwe.NewJWEDecrypt(keys, allowlist(t, []string{"A256KW"}, []string{"A256GCM"}))

		_, err := d.DecryptJWE(token)
		require.ErrorIs(t, err, jwe.ErrAlgorithmNotAllowed)
	})

	t.Run("exceeds the size limit", func(t *testing.T) {
		d := jwe.NewJWEDecrypt(keys, allowlist(t, []string{"A256KW"}, []string{"A256GCM"}, "DEF"),
			jwe.WithMaxDecompressedSize(int64(len(compressible)-1)))

		_, err := d.DecryptJWE(token)
		require.Equal(t, "jwedecrypt: decryption failed", err.Error())
	})

	t.Run("unknown method", func(t *testing.T) {
		_, err := jwe.NewJWEEncrypt("A256GCM", recipients, jwe.WithCompression("GZIP"))
		require.ErrorIs(t, err, jwe.ErrUnsupportedAlgorithm)
	})
}

func TestConcurrentDecryption(t *testing.T) {
	key := random.GetRandomBytes(32)
	serialized := compact(t, encrypt(t, "XC20P", []*jwe.RecipientKey{{Algorithm: "A256GCMKW", Key: key}}))

	d := jwe.NewJWEDecrypt(&mockkeyset.Provider{Keys: []*jose.JSONWebKey{{Key: key}}},
		allowlist(t, []string{"A256GCMKW"}, []string{"XC20P"}))

	var wg sync.WaitGroup

	errs := make(chan error, 20)

	for i := 0; i < 20; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			result, err := d.DecryptString(serialized)
			if err == nil && !bytes.Equal(plaintext, result.Plaintext) {
				err = errors.New("plaintext mismatch")
			}

			errs <- err
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
}

func TestDecryptKnownAnswer(t *testing.T) {
	// RFC 7516 appendix A.3
	token := "eyJhbGciOiJBMTI4S1ciLCJlbmMiOiJBMTI4Q0JDLUhTMjU2In0." +
		"6KB707dM9YTIgHtLvtgWQ8mKwboJW3of9locizkDTHzBC2IlrT1oOQ." +
		"AxY8DCtDaGlsbGljb3RoZQ." +
		"KDlTtXchhZTGufMYmOYGS4HffxPSUrfmqCHXaI9wOGY." +
		"U0m_YmjN04DJvceFICbCVQ"

	key, err := base64.RawURLEncoding.DecodeString("GawgguFyGrWKav7AX4VKUg")
	require.NoError(t, err)

	d := jwe.NewJWEDecrypt(&mockkeyset.Provider{Keys: []*jose.JSONWebKey{{Key: key}}},
		allowlist(t, []string{"A128KW"}, []string{"A128CBC-HS256"}))

	result, err := d.DecryptString(token)
	require.NoError(t, err)
	require.Equal(t, "Live long and prosper.", string(result.Plaintext))
	require.Equal(t, 0, result.Recipient)
}
