/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jose

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// IANA registered JOSE headers (https://tools.ietf.org/html/rfc7516#section-4.1)
const (
	// HeaderAlgorithm identifies the cryptographic algorithm used to encrypt or determine the value of the CEK.
	HeaderAlgorithm = "alg" // string

	// HeaderEncryption identifies the JWE content encryption algorithm.
	HeaderEncryption = "enc" // string

	// HeaderCompression identifies the compression algorithm applied to the plaintext before encryption.
	HeaderCompression = "zip" // string

	// HeaderKeyID is a hint which references the public key to which the JWE was encrypted.
	HeaderKeyID = "kid" // string

	// HeaderType is used by JWE applications to declare the media type of this complete JWE.
	HeaderType = "typ" // string

	// HeaderContentType is used by JWE applications to declare the media type of the secured content (the plaintext).
	HeaderContentType = "cty" // string

	// HeaderCritical indicates that extensions to the JWE header specification and/or JWA are being used that MUST
	// be understood and processed.
	HeaderCritical = "crit" // array
)

// Key management header parameters (https://tools.ietf.org/html/rfc7518#section-4)
const (
	// HeaderEPK is the ephemeral public key of ECDH-ES key agreement.
	HeaderEPK = "epk" // JSON
	// HeaderAPU is the agreement PartyUInfo of ECDH-ES key agreement.
	HeaderAPU = "apu" // base64url
	// HeaderAPV is the agreement PartyVInfo of ECDH-ES key agreement.
	HeaderAPV = "apv" // base64url
	// HeaderIV is the initialization vector of AES GCM key wrapping.
	HeaderIV = "iv" // base64url
	// HeaderTag is the authentication tag of AES GCM key wrapping.
	HeaderTag = "tag" // base64url
	// HeaderP2S is the PBES2 salt input.
	HeaderP2S = "p2s" // base64url
	// HeaderP2C is the PBES2 iteration count.
	HeaderP2C = "p2c" // number
)

// Headers represents JOSE headers.
type Headers map[string]interface{}

// KeyID gets Key ID from JOSE headers.
func (h Headers) KeyID() (string, bool) {
	return h.stringValue(HeaderKeyID)
}

// Algorithm gets Algorithm from JOSE headers.
func (h Headers) Algorithm() (string, bool) {
	return h.stringValue(HeaderAlgorithm)
}

// Encryption gets content encryption algorithm from JOSE headers.
func (h Headers) Encryption() (string, bool) {
	return h.stringValue(HeaderEncryption)
}

// Compression gets the compression algorithm from JOSE headers.
func (h Headers) Compression() (string, bool) {
	return h.stringValue(HeaderCompression)
}

// Type gets content encryption type from JOSE headers.
func (h Headers) Type() (string, bool) {
	return h.stringValue(HeaderType)
}

// ContentType gets the payload content type from JOSE headers.
func (h Headers) ContentType() (string, bool) {
	return h.stringValue(HeaderContentType)
}

// Critical gets the critical header names. ok is false when "crit" is absent, an error is returned when it is not
// a non-empty array of non-empty strings.
func (h Headers) Critical() ([]string, bool, error) {
	raw, ok := h[HeaderCritical]
	if !ok {
		return nil, false, nil
	}

	var names []string

	switch v := raw.(type) {
	case []string:
		names = v
	case []interface{}:
		for _, n := range v {
			s, isString := n.(string)
			if !isString {
				return nil, true, fmt.Errorf("%q must contain strings", HeaderCritical)
			}

			names = append(names, s)
		}
	default:
		return nil, true, fmt.Errorf("%q must be an array", HeaderCritical)
	}

	if len(names) == 0 {
		return nil, true, fmt.Errorf("%q must not be empty", HeaderCritical)
	}

	for _, n := range names {
		if n == "" {
			return nil, true, fmt.Errorf("%q must not contain empty names", HeaderCritical)
		}
	}

	return names, true, nil
}

// EPK gets the raw ephemeral public key JSON object from JOSE headers.
func (h Headers) EPK() (interface{}, bool) {
	epk, ok := h[HeaderEPK]

	return epk, ok && epk != nil
}

// APU gets the decoded agreement PartyUInfo from JOSE headers.
func (h Headers) APU() ([]byte, error) {
	return h.bytesValue(HeaderAPU)
}

// APV gets the decoded agreement PartyVInfo from JOSE headers.
func (h Headers) APV() ([]byte, error) {
	return h.bytesValue(HeaderAPV)
}

// IV gets the decoded key wrapping initialization vector from JOSE headers.
func (h Headers) IV() ([]byte, error) {
	return h.bytesValue(HeaderIV)
}

// Tag gets the decoded key wrapping authentication tag from JOSE headers.
func (h Headers) Tag() ([]byte, error) {
	return h.bytesValue(HeaderTag)
}

// P2S gets the decoded PBES2 salt input from JOSE headers.
func (h Headers) P2S() ([]byte, error) {
	return h.bytesValue(HeaderP2S)
}

// P2C gets the PBES2 iteration count from JOSE headers. Zero is returned when it is absent.
func (h Headers) P2C() (int, error) {
	raw, ok := h[HeaderP2C]
	if !ok {
		return 0, nil
	}

	switch v := raw.(type) {
	case int:
		return v, nil
	case float64:
		if v != math.Trunc(v) || v < 0 || v > math.MaxInt32 {
			return 0, fmt.Errorf("%q must be a positive integer", HeaderP2C)
		}

		return int(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil || n < 0 || n > math.MaxInt32 {
			return 0, fmt.Errorf("%q must be a positive integer", HeaderP2C)
		}

		return int(n), nil
	default:
		return 0, fmt.Errorf("%q must be a number", HeaderP2C)
	}
}

func (h Headers) stringValue(key string) (string, bool) {
	raw, ok := h[key]
	if !ok {
		return "", false
	}

	str, ok := raw.(string)

	return str, ok
}

func (h Headers) bytesValue(key string) ([]byte, error) {
	raw, ok := h[key]
	if !ok {
		return nil, nil
	}

	str, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("%q must be a string", key)
	}

	b, err := decodeSegment(str)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", key, err)
	}

	return b, nil
}

// merge returns a new Headers with the union of h and others. Header sets are disjoint in a valid JWE, so the order
// of precedence is irrelevant.
func (h Headers) merge(others ...Headers) Headers {
	size := len(h)
	for _, o := range others {
		size += len(o)
	}

	merged := make(Headers, size)

	for k, v := range h {
		merged[k] = v
	}

	for _, o := range others {
		for k, v := range o {
			merged[k] = v
		}
	}

	return merged
}

func decodeSegment(s string) ([]byte, error) {
	// the decoder silently skips CR and LF, they are not valid in a base64url segment
	if strings.ContainsAny(s, "\r\n") {
		return nil, fmt.Errorf("illegal newline in base64url value")
	}

	return base64.RawURLEncoding.Strict().DecodeString(s)
}

func encodeSegment(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}
