/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jose

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	errNotOneRecipient      = errors.New("serialization requires exactly one recipient")
	errCompactUnprotected   = errors.New("compact serialization doesn't support unprotected headers")
	errCompactAAD           = errors.New("compact serialization doesn't support aad")
	errCompactNoProtected   = errors.New("compact serialization requires protected headers")
	errRecipientsNotPresent = errors.New("at least one recipient is required")
)

// MarshalFunc marshals JSON, json.Marshal is the usual choice.
type MarshalFunc func(interface{}) ([]byte, error)

// CompactSerialize serializes the JWE into the compact form (https://tools.ietf.org/html/rfc7516#section-7.1).
// It requires a single recipient without per-recipient header, no unprotected header and no aad.
func (e *JSONWebEncryption) CompactSerialize(marshal MarshalFunc) (string, error) {
	if len(e.Recipients) != 1 {
		return "", errNotOneRecipient
	}

	if len(e.UnprotectedHeaders) != 0 || len(e.Recipients[0].Header) != 0 {
		return "", errCompactUnprotected
	}

	if len(e.AAD) != 0 {
		return "", errCompactAAD
	}

	protected, err := e.protectedHeadersSegment(marshal)
	if err != nil {
		return "", err
	}

	if protected == "" {
		return "", errCompactNoProtected
	}

	return strings.Join([]string{
		protected,
		encodeSegment(e.Recipients[0].EncryptedKey),
		encodeSegment(e.IV),
		encodeSegment(e.Ciphertext),
		encodeSegment(e.Tag),
	}, "."), nil
}

// FullSerialize serializes the JWE into the JSON general form (https://tools.ietf.org/html/rfc7516#section-7.2.1).
func (e *JSONWebEncryption) FullSerialize(marshal MarshalFunc) (string, error) {
	if len(e.Recipients) == 0 {
		return "", errRecipientsNotPresent
	}

	raw, err := e.prepareRaw(marshal)
	if err != nil {
		return "", err
	}

	recipients := make([]rawRecipient, 0, len(e.Recipients))

	for _, rec := range e.Recipients {
		r, errRec := toRawRecipient(rec, marshal)
		if errRec != nil {
			return "", errRec
		}

		recipients = append(recipients, r)
	}

	// "recipients" must always be an array of objects, even if some or all of them are empty "{}".
	raw.Recipients, err = marshal(recipients)
	if err != nil {
		return "", fmt.Errorf("marshal recipients: %w", err)
	}

	return marshalRaw(raw, marshal)
}

// FlattenedSerialize serializes a single recipient JWE into the JSON flattened form
// (https://tools.ietf.org/html/rfc7516#section-7.2.2).
func (e *JSONWebEncryption) FlattenedSerialize(marshal MarshalFunc) (string, error) {
	if len(e.Recipients) != 1 {
		return "", errNotOneRecipient
	}

	raw, err := e.prepareRaw(marshal)
	if err != nil {
		return "", err
	}

	rec, err := toRawRecipient(e.Recipients[0], marshal)
	if err != nil {
		return "", err
	}

	raw.Header = rec.Header

	if rec.EncryptedKey != "" {
		raw.EncryptedKey = &rec.EncryptedKey
	}

	return marshalRaw(raw, marshal)
}

func (e *JSONWebEncryption) prepareRaw(marshal MarshalFunc) (*rawJSONWebEncryption, error) {
	protected, err := e.protectedHeadersSegment(marshal)
	if err != nil {
		return nil, err
	}

	ciphertext := encodeSegment(e.Ciphertext)

	raw := &rawJSONWebEncryption{
		ProtectedHeaders: protected,
		IV:               encodeSegment(e.IV),
		Ciphertext:       &ciphertext,
		Tag:              encodeSegment(e.Tag),
	}

	if len(e.AAD) != 0 {
		raw.AAD = encodeSegment(e.AAD)
	}

	if len(e.UnprotectedHeaders) != 0 {
		raw.UnprotectedHeaders, err = marshal(e.UnprotectedHeaders)
		if err != nil {
			return nil, fmt.Errorf("marshal unprotected headers: %w", err)
		}
	}

	return raw, nil
}

// protectedHeadersSegment returns the received protected header text when there is one, so that the serialized
// JWE keeps authenticating.
func (e *JSONWebEncryption) protectedHeadersSegment(marshal MarshalFunc) (string, error) {
	if e.OrigProtectedHeaders != "" {
		return e.OrigProtectedHeaders, nil
	}

	if len(e.ProtectedHeaders) == 0 {
		return "", nil
	}

	protectedHeadersJSON, err := marshal(e.ProtectedHeaders)
	if err != nil {
		return "", fmt.Errorf("marshal protected headers: %w", err)
	}

	return encodeSegment(protectedHeadersJSON), nil
}

func toRawRecipient(rec *Recipient, marshal MarshalFunc) (rawRecipient, error) {
	var r rawRecipient

	if rec == nil {
		return r, nil
	}

	if len(rec.Header) != 0 {
		header, err := marshal(rec.Header)
		if err != nil {
			return r, fmt.Errorf("marshal recipient headers: %w", err)
		}

		r.Header = header
	}

	if len(rec.EncryptedKey) != 0 {
		r.EncryptedKey = encodeSegment(rec.EncryptedKey)
	}

	return r, nil
}

func marshalRaw(raw *rawJSONWebEncryption, marshal MarshalFunc) (string, error) {
	serializedJWE, err := marshal(raw)
	if err != nil {
		return "", fmt.Errorf("marshal JWE: %w", err)
	}

	return string(serializedJWE), nil
}

// jsonMarshal is the default MarshalFunc.
var jsonMarshal MarshalFunc = json.Marshal //nolint:gochecknoglobals
