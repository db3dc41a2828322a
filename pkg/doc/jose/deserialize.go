/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jose

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const compactJWEParts = 5

// rawJSONWebEncryption represents a RAW JWE that is used for serialization/deserialization of the JSON general and
// flattened forms (https://tools.ietf.org/html/rfc7516#section-7.2).
type rawJSONWebEncryption struct {
	ProtectedHeaders   string          `json:"protected,omitempty"`
	UnprotectedHeaders json.RawMessage `json:"unprotected,omitempty"`
	Recipients         json.RawMessage `json:"recipients,omitempty"`
	Header             json.RawMessage `json:"header,omitempty"`
	EncryptedKey       *string         `json:"encrypted_key,omitempty"`
	AAD                string          `json:"aad,omitempty"`
	IV                 string          `json:"iv,omitempty"`
	Ciphertext         *string         `json:"ciphertext"`
	Tag                string          `json:"tag,omitempty"`
}

type rawRecipient struct {
	Header       json.RawMessage `json:"header,omitempty"`
	EncryptedKey string          `json:"encrypted_key,omitempty"`
}

// Deserialize parses a JWE in compact, JSON general or JSON flattened serialization. It performs no cryptographic
// operation. Every parsing error wraps ErrMalformedToken.
func Deserialize(serialized string) (*JSONWebEncryption, error) {
	var (
		jwe *JSONWebEncryption
		err error
	)

	if strings.HasPrefix(strings.TrimSpace(serialized), "{") {
		jwe, err = deserializeFull(serialized)
	} else {
		jwe, err = deserializeCompact(serialized)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	if err = checkDisjointHeaders(jwe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	return jwe, nil
}

func deserializeCompact(serialized string) (*JSONWebEncryption, error) {
	parts := strings.Split(serialized, ".")
	if len(parts) != compactJWEParts {
		return nil, fmt.Errorf("compact serialization must have %d parts, got %d", compactJWEParts, len(parts))
	}

	protectedHeaders, err := parseProtectedHeaders(parts[0])
	if err != nil {
		return nil, err
	}

	segments := make([][]byte, 0, compactJWEParts-1)

	for i, name := range []string{"encrypted key", "iv", "ciphertext", "tag"} {
		segment, e := decodeSegment(parts[i+1])
		if e != nil {
			return nil, fmt.Errorf("%s: %w", name, e)
		}

		segments = append(segments, segment)
	}

	return &JSONWebEncryption{
		ProtectedHeaders:     protectedHeaders,
		OrigProtectedHeaders: parts[0],
		Recipients:           []*Recipient{{EncryptedKey: segments[0]}},
		IV:                   segments[1],
		Ciphertext:           segments[2],
		Tag:                  segments[3],
	}, nil
}

func deserializeFull(serialized string) (*JSONWebEncryption, error) {
	var raw rawJSONWebEncryption

	if err := json.Unmarshal([]byte(serialized), &raw); err != nil {
		return nil, fmt.Errorf("unmarshal JWE: %w", err)
	}

	// an empty plaintext encrypts to an empty ciphertext, so only an absent member is malformed.
	if raw.Ciphertext == nil {
		return nil, fmt.Errorf("missing ciphertext")
	}

	jwe := &JSONWebEncryption{OrigProtectedHeaders: raw.ProtectedHeaders}

	var err error

	if raw.ProtectedHeaders != "" {
		jwe.ProtectedHeaders, err = parseProtectedHeaders(raw.ProtectedHeaders)
		if err != nil {
			return nil, err
		}
	}

	jwe.UnprotectedHeaders, err = parseHeaderObject("unprotected", raw.UnprotectedHeaders)
	if err != nil {
		return nil, err
	}

	jwe.Recipients, err = parseRecipients(&raw)
	if err != nil {
		return nil, err
	}

	for name, field := range map[string]struct {
		encoded string
		decoded *[]byte
	}{
		"aad":        {raw.AAD, &jwe.AAD},
		"iv":         {raw.IV, &jwe.IV},
		"ciphertext": {*raw.Ciphertext, &jwe.Ciphertext},
		"tag":        {raw.Tag, &jwe.Tag},
	} {
		*field.decoded, err = decodeSegment(field.encoded)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}

	return jwe, nil
}

func parseRecipients(raw *rawJSONWebEncryption) ([]*Recipient, error) {
	flattened := len(raw.Header) != 0 || raw.EncryptedKey != nil

	if len(raw.Recipients) == 0 {
		rec := rawRecipient{Header: raw.Header}
		if raw.EncryptedKey != nil {
			rec.EncryptedKey = *raw.EncryptedKey
		}

		recipient, err := parseRecipient(&rec)
		if err != nil {
			return nil, err
		}

		return []*Recipient{recipient}, nil
	}

	if flattened {
		return nil, fmt.Errorf("\"recipients\" can't be combined with flattened \"header\" or \"encrypted_key\"")
	}

	var rawRecipients []*rawRecipient

	if err := json.Unmarshal(raw.Recipients, &rawRecipients); err != nil {
		return nil, fmt.Errorf("recipients: %w", err)
	}

	if len(rawRecipients) == 0 {
		return nil, fmt.Errorf("recipients must not be empty")
	}

	recipients := make([]*Recipient, 0, len(rawRecipients))

	for i, rec := range rawRecipients {
		if rec == nil {
			return nil, fmt.Errorf("recipient %d is null", i)
		}

		recipient, err := parseRecipient(rec)
		if err != nil {
			return nil, fmt.Errorf("recipient %d: %w", i, err)
		}

		recipients = append(recipients, recipient)
	}

	return recipients, nil
}

func parseRecipient(rec *rawRecipient) (*Recipient, error) {
	header, err := parseHeaderObject("header", rec.Header)
	if err != nil {
		return nil, err
	}

	encryptedKey, err := decodeSegment(rec.EncryptedKey)
	if err != nil {
		return nil, fmt.Errorf("encrypted_key: %w", err)
	}

	return &Recipient{Header: header, EncryptedKey: encryptedKey}, nil
}

func parseProtectedHeaders(encoded string) (Headers, error) {
	headersJSON, err := decodeSegment(encoded)
	if err != nil {
		return nil, fmt.Errorf("protected headers: %w", err)
	}

	headers, err := parseHeaderObject("protected", headersJSON)
	if err != nil {
		return nil, err
	}

	if headers == nil {
		return nil, fmt.Errorf("protected headers must be a JSON object")
	}

	return headers, nil
}

// parseHeaderObject decodes an optional header member, which must be a JSON object when present.
func parseHeaderObject(name string, raw json.RawMessage) (Headers, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}

	if raw[0] != '{' {
		return nil, fmt.Errorf("%s headers must be a JSON object", name)
	}

	var headers Headers

	if err := json.Unmarshal(raw, &headers); err != nil {
		return nil, fmt.Errorf("%s headers: %w", name, err)
	}

	return headers, nil
}

// checkDisjointHeaders rejects header parameter names present in more than one of the protected, unprotected and
// per-recipient headers (https://tools.ietf.org/html/rfc7516#section-7.2.1).
func checkDisjointHeaders(jwe *JSONWebEncryption) error {
	for name := range jwe.UnprotectedHeaders {
		if _, ok := jwe.ProtectedHeaders[name]; ok {
			return fmt.Errorf("duplicate header parameter %q", name)
		}
	}

	for i, rec := range jwe.Recipients {
		for name := range rec.Header {
			_, inProtected := jwe.ProtectedHeaders[name]
			_, inUnprotected := jwe.UnprotectedHeaders[name]

			if inProtected || inUnprotected {
				return fmt.Errorf("recipient %d: duplicate header parameter %q", i, name)
			}
		}
	}

	return nil
}
