/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jose

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-jose/go-jose/v3"
	"github.com/google/tink/go/subtle/random"
	"github.com/google/uuid"
	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/klauspost/compress/flate"

	"github.com/hyperledger/aries-framework-go-jwe/pkg/doc/jose/jwa"
	"github.com/hyperledger/aries-framework-go-jwe/pkg/internal/cryptoutil"
	"github.com/hyperledger/aries-framework-go-jwe/pkg/internal/logutil"
)

const (
	logModule = "aries-framework/jwe/decrypter"
	logCmd    = "jwedecrypt"

	// DefaultMaxDecompressedSize is the default limit of the plaintext size of a compressed ("zip": "DEF") JWE.
	DefaultMaxDecompressedSize = 1 << 20
)

var logger = log.New(logModule)

// Stage is a step of a decryption attempt, reported in a Diagnostic.
type Stage string

// Decryption attempt stages.
const (
	StageAlgorithmValidation Stage = "algorithm-validation"
	StageKeyRecovery         Stage = "key-recovery"
	StageContentDecryption   Stage = "content-decryption"
	StageDecompression       Stage = "decompression"
)

// Diagnostic describes why a recipient of a decryption attempt failed. It carries internal failure causes that
// JWEDecrypt never returns to its caller, it must not be sent to the party that produced the JWE.
type Diagnostic struct {
	// AttemptID correlates the diagnostics of one decryption attempt.
	AttemptID string
	// Decrypter is the name given with WithName.
	Decrypter string
	// Recipient is the index of the recipient in the JWE.
	Recipient int
	Stage     Stage
	Err       error
}

// DecryptionResult is the outcome of a successful decryption.
type DecryptionResult struct {
	Plaintext []byte
	// Headers is the JOSE header of the recipient that was decrypted: protected, unprotected and recipient headers.
	Headers Headers
	// Recipient is the index of the recipient that was decrypted.
	Recipient int
}

// Decrypter interface to Decrypt JWE messages.
type Decrypter interface {
	// Decrypt a deserialized JWE, extracts the corresponding recipient key to decrypt plaintext and returns it
	Decrypt(jwe *JSONWebEncryption) ([]byte, error)
}

// JWEDecrypt is responsible for decrypting a JWE message and returns its protected plaintext.
//
// A JWEDecrypt is immutable once created and safe for concurrent use.
type JWEDecrypt struct {
	name                string
	keys                KeySetProvider
	allowlist           *Allowlist
	criticalHeaders     map[string]struct{}
	maxDecompressedSize int64
	diagnostics         func(*Diagnostic)
}

// DecrypterOpt is an option of NewJWEDecrypt.
type DecrypterOpt func(*JWEDecrypt)

// WithName sets the name of the decrypter reported in logs and diagnostics.
func WithName(name string) DecrypterOpt {
	return func(jd *JWEDecrypt) {
		jd.name = name
	}
}

// WithCriticalHeaders declares the extension header names the caller understands and processes. A JWE listing
// any other name in "crit" is rejected.
func WithCriticalHeaders(names ...string) DecrypterOpt {
	return func(jd *JWEDecrypt) {
		for _, n := range names {
			jd.criticalHeaders[n] = struct{}{}
		}
	}
}

// WithMaxDecompressedSize sets the plaintext size limit of compressed JWEs.
func WithMaxDecompressedSize(size int64) DecrypterOpt {
	return func(jd *JWEDecrypt) {
		jd.maxDecompressedSize = size
	}
}

// WithDiagnostics registers a function receiving the internal cause of every recipient failure.
func WithDiagnostics(fn func(*Diagnostic)) DecrypterOpt {
	return func(jd *JWEDecrypt) {
		jd.diagnostics = fn
	}
}

// NewJWEDecrypt creates a new JWEDecrypt decrypting JWEs with the keys returned by keys, for the algorithms in
// allowlist only. A nil allowlist allows no algorithm and nil keys provide no key.
func NewJWEDecrypt(keys KeySetProvider, allowlist *Allowlist, opts ...DecrypterOpt) *JWEDecrypt {
	if allowlist == nil {
		allowlist = &Allowlist{}
	}

	if keys == nil {
		keys = noKeys{}
	}

	jd := &JWEDecrypt{
		keys:                keys,
		allowlist:           allowlist,
		criticalHeaders:     map[string]struct{}{},
		maxDecompressedSize: DefaultMaxDecompressedSize,
	}

	for _, opt := range opts {
		opt(jd)
	}

	return jd
}

// Name returns the decrypter name.
func (jd *JWEDecrypt) Name() string {
	return jd.name
}

// Allowlist returns the algorithms allowed by the decrypter.
func (jd *JWEDecrypt) Allowlist() *Allowlist {
	return jd.allowlist
}

// Decrypt a deserialized JWE, decrypts its protected content and returns plaintext.
func (jd *JWEDecrypt) Decrypt(jwe *JSONWebEncryption) ([]byte, error) {
	result, err := jd.DecryptJWE(jwe)
	if err != nil {
		return nil, err
	}

	return result.Plaintext, nil
}

// DecryptString deserializes a compact or JSON serialized JWE and decrypts it.
func (jd *JWEDecrypt) DecryptString(serialized string) (*DecryptionResult, error) {
	jwe, err := Deserialize(serialized)
	if err != nil {
		return nil, fmt.Errorf("jwedecrypt: %w", err)
	}

	return jd.DecryptJWE(jwe)
}

// DecryptJWE decrypts a deserialized JWE. Recipients are tried in order and the first one that decrypts wins.
//
// ErrMalformedToken, ErrUnsupportedAlgorithm, ErrAlgorithmNotAllowed and ErrInvalidKeyLength are returned as such.
// Any other failure, whether the CEK couldn't be recovered or the content didn't authenticate, is
// ErrDecryptionFailed. The cause is only reported to the WithDiagnostics function and in debug logs.
func (jd *JWEDecrypt) DecryptJWE(jwe *JSONWebEncryption) (*DecryptionResult, error) {
	a := &attempt{jd: jd, id: uuid.NewString()}

	result, err := a.run(jwe)
	if err != nil {
		return nil, fmt.Errorf("jwedecrypt: %w", err)
	}

	return result, nil
}

// attempt is a single decryption of a JWE.
type attempt struct {
	jd *JWEDecrypt
	id string
}

func (a *attempt) run(jwe *JSONWebEncryption) (*DecryptionResult, error) {
	if jwe == nil || len(jwe.Recipients) == 0 {
		return nil, fmt.Errorf("%w: no recipients", ErrMalformedToken)
	}

	if err := a.jd.checkProtectedOnlyHeaders(jwe); err != nil {
		return nil, err
	}

	zip, err := a.jd.checkCompression(jwe.ProtectedHeaders)
	if err != nil {
		return nil, err
	}

	aad := jwe.AdditionalAuthenticatedData()

	var (
		skipErr  error
		eligible int
	)

	for i, rec := range jwe.Recipients {
		if rec == nil {
			return nil, fmt.Errorf("%w: recipient %d is null", ErrMalformedToken, i)
		}

		header := jwe.RecipientHeaders(i)

		cekSize, err := a.validateAlgorithms(i, header)
		if err != nil {
			if isSkippable(err) {
				if skipErr == nil {
					skipErr = err
				}

				continue
			}

			return nil, err
		}

		eligible++

		plaintext, err := a.decryptRecipient(i, rec, header, cekSize, jwe, aad)
		if err != nil {
			if errors.Is(err, ErrDecryptionFailed) {
				continue
			}

			return nil, err
		}

		if zip != "" {
			plaintext, err = a.jd.inflate(plaintext)
			if err != nil {
				a.report(i, StageDecompression, err)

				return nil, ErrDecryptionFailed
			}
		}

		logutil.LogDebug(logger, logCmd, "decrypt", "recipient decrypted",
			logutil.CreateKeyValueString("attempt", a.id), logutil.CreateKeyValueString("decrypter", a.jd.name),
			logutil.CreateKeyValueString("recipient", fmt.Sprint(i)))

		return &DecryptionResult{Plaintext: plaintext, Headers: header, Recipient: i}, nil
	}

	if eligible == 0 {
		return nil, skipErr
	}

	return nil, ErrDecryptionFailed
}

// validateAlgorithms checks "alg" and "enc" of a recipient against the allowlist and returns the CEK size.
func (a *attempt) validateAlgorithms(i int, header Headers) (int, error) {
	_, cekSize, err := checkKeyEncryption(header, a.jd.allowlist)
	if err != nil {
		a.report(i, StageAlgorithmValidation, err)

		return 0, err
	}

	return cekSize, nil
}

// decryptRecipient runs the key recovery and content decryption stages for a recipient. A failed key recovery
// continues with a random CEK so that both failures take the same path.
func (a *attempt) decryptRecipient(i int, rec *Recipient, header Headers, cekSize int, jwe *JSONWebEncryption,
	aad []byte) ([]byte, error) {
	cekFailed := false

	cek, err := RecoverCEK(rec, header, a.jd.keys, a.jd.allowlist)
	if err != nil {
		a.report(i, StageKeyRecovery, err)

		if isAllowlistError(err) {
			return nil, err
		}

		cek = random.GetRandomBytes(uint32(cekSize))
		cekFailed = true
	}

	defer cryptoutil.Zero(cek)

	plaintext, err := DecryptContent(cek, header, jwe.IV, jwe.Ciphertext, jwe.Tag, aad, a.jd.allowlist)
	if err != nil {
		a.report(i, StageContentDecryption, err)

		if errors.Is(err, ErrInvalidKeyLength) || isAllowlistError(err) {
			return nil, err
		}

		return nil, ErrDecryptionFailed
	}

	if cekFailed {
		cryptoutil.Zero(plaintext)

		return nil, ErrDecryptionFailed
	}

	return plaintext, nil
}

func (a *attempt) report(i int, stage Stage, err error) {
	d := &Diagnostic{AttemptID: a.id, Decrypter: a.jd.name, Recipient: i, Stage: stage, Err: err}

	if logutil.DebugEnabled(logModule) {
		logutil.LogDebug(logger, logCmd, "decrypt", err.Error(),
			logutil.CreateKeyValueString("attempt", d.AttemptID), logutil.CreateKeyValueString("decrypter", d.Decrypter),
			logutil.CreateKeyValueString("recipient", fmt.Sprint(i)), logutil.CreateKeyValueString("stage", string(stage)))
	}

	if a.jd.diagnostics != nil {
		a.jd.diagnostics(d)
	}
}

type noKeys struct{}

func (noKeys) FindKeysFor(Headers) ([]*jose.JSONWebKey, error) {
	return nil, nil
}

// isSkippable reports whether a recipient can be skipped in favor of the next one: its "alg" is not allowed or not
// supported.
func isSkippable(err error) bool {
	return errors.Is(err, ErrAlgorithmNotAllowed) || errors.Is(err, ErrUnsupportedAlgorithm)
}

// checkProtectedOnlyHeaders validates "crit" and checks that "crit" and "zip" only appear in the protected header.
func (jd *JWEDecrypt) checkProtectedOnlyHeaders(jwe *JSONWebEncryption) error {
	for _, name := range []string{HeaderCritical, HeaderCompression} {
		if _, ok := jwe.UnprotectedHeaders[name]; ok {
			return fmt.Errorf("%w: %q must be integrity protected", ErrMalformedToken, name)
		}

		for _, rec := range jwe.Recipients {
			if rec == nil {
				continue
			}

			if _, ok := rec.Header[name]; ok {
				return fmt.Errorf("%w: %q must be integrity protected", ErrMalformedToken, name)
			}
		}
	}

	crit, ok, err := jwe.ProtectedHeaders.Critical()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	if !ok {
		return nil
	}

	for _, name := range crit {
		if _, understood := jd.criticalHeaders[name]; !understood {
			return fmt.Errorf("%w: critical header %q is not supported", ErrMalformedToken, name)
		}

		if _, present := jwe.ProtectedHeaders[name]; !present {
			return fmt.Errorf("%w: critical header %q is missing", ErrMalformedToken, name)
		}
	}

	return nil
}

// checkCompression validates the "zip" header against the allowlist.
func (jd *JWEDecrypt) checkCompression(protected Headers) (string, error) {
	if _, ok := protected[HeaderCompression]; !ok {
		return "", nil
	}

	zip, ok := protected.Compression()
	if !ok {
		return "", fmt.Errorf("%w: %q must be a string", ErrMalformedToken, HeaderCompression)
	}

	if _, err := jwa.LookupKind(zip, jwa.KindCompression); err != nil {
		return "", err
	}

	if !jd.allowlist.AllowsCompression(zip) {
		return "", fmt.Errorf("%w: %q %q", ErrAlgorithmNotAllowed, HeaderCompression, zip)
	}

	return zip, nil
}

func (jd *JWEDecrypt) inflate(compressed []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(compressed))
	defer r.Close() //nolint:errcheck

	plaintext, err := io.ReadAll(io.LimitReader(r, jd.maxDecompressedSize+1))
	if err != nil {
		return nil, fmt.Errorf("inflate: %w", err)
	}

	if int64(len(plaintext)) > jd.maxDecompressedSize {
		return nil, fmt.Errorf("inflate: plaintext exceeds %d bytes", jd.maxDecompressedSize)
	}

	return plaintext, nil
}
