/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jose

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/google/tink/go/subtle/random"
	"github.com/klauspost/compress/flate"

	"github.com/hyperledger/aries-framework-go-jwe/pkg/crypto/keywrap"
	"github.com/hyperledger/aries-framework-go-jwe/pkg/doc/jose/jwa"
	"github.com/hyperledger/aries-framework-go-jwe/pkg/internal/cryptoutil"
)

var (
	errNoRecipients          = errors.New("at least one recipient is required")
	errDirectMultiRecipients = errors.New("direct key management requires a single recipient")
)

// Encrypter interface to Encrypt JWE messages.
type Encrypter interface {
	// EncryptWithAuthData encrypt plaintext and aad sent to 1 or more recipients and returns a valid
	// JSONWebEncryption instance
	EncryptWithAuthData(plaintext, aad []byte) (*JSONWebEncryption, error)

	// Encrypt plaintext with empty aad sent to 1 or more recipients and returns a valid JSONWebEncryption instance
	Encrypt(plaintext []byte) (*JSONWebEncryption, error)
}

// RecipientKey is the key a JWE is encrypted to, with its key management algorithm.
// Key is a public key (*rsa.PublicKey, *ecdsa.PublicKey, keywrap.X25519PublicKey) or a []byte symmetric key or
// password.
type RecipientKey struct {
	Algorithm string
	KeyID     string
	Key       interface{}
}

// JWEEncrypt is responsible for encrypting a plaintext and its AAD into a protected JWE.
type JWEEncrypt struct {
	encAlg     string
	recipients []*RecipientKey
	zip        string
	cty        string
	typ        string
	apu        []byte
	apv        []byte
	p2c        int
}

// EncrypterOpt is an option of NewJWEEncrypt.
type EncrypterOpt func(*JWEEncrypt)

// WithCompression compresses the plaintext before encryption ("zip" header), jwa.Deflate is the only method.
func WithCompression(zip string) EncrypterOpt {
	return func(je *JWEEncrypt) {
		je.zip = zip
	}
}

// WithContentType sets the "cty" header.
func WithContentType(cty string) EncrypterOpt {
	return func(je *JWEEncrypt) {
		je.cty = cty
	}
}

// WithType sets the "typ" header.
func WithType(typ string) EncrypterOpt {
	return func(je *JWEEncrypt) {
		je.typ = typ
	}
}

// WithAgreementPartyInfo sets the ECDH-ES "apu" and "apv" values.
func WithAgreementPartyInfo(apu, apv []byte) EncrypterOpt {
	return func(je *JWEEncrypt) {
		je.apu = apu
		je.apv = apv
	}
}

// WithPBES2Count sets the PBES2 iteration count, keywrap.DefaultPBES2Count otherwise.
func WithPBES2Count(p2c int) EncrypterOpt {
	return func(je *JWEEncrypt) {
		je.p2c = p2c
	}
}

// NewJWEEncrypt creates a new JWEEncrypt instance to build JWEs with the content encryption algorithm encAlg for
// recipients. A single recipient JWE has all its headers protected and can be compact serialized.
func NewJWEEncrypt(encAlg string, recipients []*RecipientKey, opts ...EncrypterOpt) (*JWEEncrypt, error) {
	if _, err := jwa.ContentEncryption(encAlg); err != nil {
		return nil, fmt.Errorf("jweencrypt: %w", err)
	}

	if len(recipients) == 0 {
		return nil, fmt.Errorf("jweencrypt: %w", errNoRecipients)
	}

	for _, r := range recipients {
		alg, err := jwa.KeyEncryption(r.Algorithm)
		if err != nil {
			return nil, fmt.Errorf("jweencrypt: %w", err)
		}

		if alg.Mode().Direct() && len(recipients) > 1 {
			return nil, fmt.Errorf("jweencrypt: %s: %w", alg.Name(), errDirectMultiRecipients)
		}
	}

	je := &JWEEncrypt{encAlg: encAlg, recipients: recipients}

	for _, opt := range opts {
		opt(je)
	}

	if je.zip != "" {
		if _, err := jwa.LookupKind(je.zip, jwa.KindCompression); err != nil {
			return nil, fmt.Errorf("jweencrypt: %w", err)
		}
	}

	return je, nil
}

// Encrypt encrypt plaintext with empty aad.
func (je *JWEEncrypt) Encrypt(plaintext []byte) (*JSONWebEncryption, error) {
	return je.EncryptWithAuthData(plaintext, nil)
}

// EncryptWithAuthData encrypts plaintext with aad as the JWE "aad" member.
func (je *JWEEncrypt) EncryptWithAuthData(plaintext, aad []byte) (*JSONWebEncryption, error) {
	cipher, err := jwa.ContentEncryption(je.encAlg)
	if err != nil {
		return nil, fmt.Errorf("jweencrypt: %w", err)
	}

	protected := Headers{HeaderEncryption: je.encAlg}

	je.addOptionalHeaders(protected)

	cek, recipients, err := je.wrapCEK(cipher.KeySize())
	if err != nil {
		return nil, fmt.Errorf("jweencrypt: %w", err)
	}

	defer cryptoutil.Zero(cek)

	// a single recipient has all its headers protected
	if len(recipients) == 1 {
		protected = protected.merge(recipients[0].Header)
		recipients[0].Header = nil
	}

	protectedJSON, err := jsonMarshal(protected)
	if err != nil {
		return nil, fmt.Errorf("jweencrypt: marshal protected headers: %w", err)
	}

	jwe := &JSONWebEncryption{
		ProtectedHeaders:     protected,
		OrigProtectedHeaders: encodeSegment(protectedJSON),
		Recipients:           recipients,
		AAD:                  aad,
	}

	if je.zip != "" {
		plaintext, err = deflate(plaintext)
		if err != nil {
			return nil, fmt.Errorf("jweencrypt: %w", err)
		}
	}

	jwe.IV, jwe.Ciphertext, jwe.Tag, err = cipher.Seal(cek, plaintext, jwe.AdditionalAuthenticatedData())
	if err != nil {
		return nil, fmt.Errorf("jweencrypt: %w", err)
	}

	return jwe, nil
}

func (je *JWEEncrypt) addOptionalHeaders(protected Headers) {
	for name, value := range map[string]string{
		HeaderCompression: je.zip,
		HeaderContentType: je.cty,
		HeaderType:        je.typ,
	} {
		if value != "" {
			protected[name] = value
		}
	}
}

// wrapCEK generates the CEK, or derives it for direct modes, and wraps it for every recipient.
func (je *JWEEncrypt) wrapCEK(cekSize int) ([]byte, []*Recipient, error) {
	var cek []byte

	recipients := make([]*Recipient, 0, len(je.recipients))

	for _, r := range je.recipients {
		alg, err := jwa.KeyEncryption(r.Algorithm)
		if err != nil {
			return nil, nil, err
		}

		if cek == nil && !alg.Mode().Direct() {
			cek = random.GetRandomBytes(uint32(cekSize))
		}

		out, err := alg.Wrap(r.Key, &keywrap.WrapInput{
			CEK:     cek,
			EncAlg:  je.encAlg,
			CEKSize: cekSize,
			APU:     je.apu,
			APV:     je.apv,
			P2C:     je.p2c,
		})
		if err != nil {
			cryptoutil.Zero(cek)

			return nil, nil, err
		}

		if alg.Mode().Direct() {
			cek = out.CEK
		}

		header, err := recipientHeaders(alg.Name(), r.KeyID, &out.Params)
		if err != nil {
			cryptoutil.Zero(cek)

			return nil, nil, err
		}

		recipients = append(recipients, &Recipient{Header: header, EncryptedKey: out.EncryptedKey})
	}

	return cek, recipients, nil
}

func recipientHeaders(alg, kid string, params *keywrap.HeaderParams) (Headers, error) {
	header := Headers{HeaderAlgorithm: alg}

	if kid != "" {
		header[HeaderKeyID] = kid
	}

	if params.EPK != nil {
		epk, err := keywrap.MarshalEPK(params.EPK)
		if err != nil {
			return nil, err
		}

		header[HeaderEPK] = epk
	}

	for name, value := range map[string][]byte{
		HeaderAPU: params.APU,
		HeaderAPV: params.APV,
		HeaderIV:  params.IV,
		HeaderTag: params.Tag,
		HeaderP2S: params.P2S,
	} {
		if len(value) != 0 {
			header[name] = encodeSegment(value)
		}
	}

	if params.P2C != 0 {
		header[HeaderP2C] = params.P2C
	}

	return header, nil
}

func deflate(plaintext []byte) ([]byte, error) {
	var buf bytes.Buffer

	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("deflate: %w", err)
	}

	if _, err = w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("deflate: %w", err)
	}

	if err = w.Close(); err != nil {
		return nil, fmt.Errorf("deflate: %w", err)
	}

	return buf.Bytes(), nil
}
