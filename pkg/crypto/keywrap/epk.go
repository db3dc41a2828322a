/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package keywrap

import (
	"crypto/ecdsa"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/go-jose/go-jose/v3"

	"github.com/hyperledger/aries-framework-go-jwe/pkg/internal/cryptoutil"
)

const (
	okpKeyType  = "OKP"
	x25519Curve = "X25519"
	jwkKeyType  = "kty"
	jwkCurve    = "crv"
	jwkXCoord   = "x"
	jwkPrivate  = "d"
)

// MarshalEPK returns the JWK representation of an ephemeral public key as a generic JSON object, the form headers
// take once a JWE is parsed.
func MarshalEPK(epk interface{}) (map[string]interface{}, error) {
	var (
		raw []byte
		err error
	)

	switch k := epk.(type) {
	case *ecdsa.PublicKey:
		raw, err = (&jose.JSONWebKey{Key: k}).MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("marshal epk: %w", err)
		}
	case X25519PublicKey:
		return map[string]interface{}{
			jwkKeyType: okpKeyType,
			jwkCurve:   x25519Curve,
			jwkXCoord:  base64.RawURLEncoding.EncodeToString(k),
		}, nil
	default:
		return nil, fmt.Errorf("marshal epk: unsupported key type %T", epk)
	}

	m := make(map[string]interface{})

	err = json.Unmarshal(raw, &m)
	if err != nil {
		return nil, fmt.Errorf("marshal epk: %w", err)
	}

	return m, nil
}

// ParseEPK parses an "epk" header value. Only public keys are accepted.
func ParseEPK(value interface{}) (interface{}, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("parse epk: %w", err)
	}

	var fields map[string]interface{}

	if err = json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("parse epk: not a JSON object")
	}

	if _, ok := fields[jwkPrivate]; ok {
		return nil, fmt.Errorf("parse epk: private key material is not allowed")
	}

	if fields[jwkKeyType] == okpKeyType {
		return parseX25519(fields, jwkXCoord)
	}

	var jwk jose.JSONWebKey

	if err = jwk.UnmarshalJSON(raw); err != nil {
		return nil, fmt.Errorf("parse epk: %w", err)
	}

	pub, ok := jwk.Key.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("parse epk: unsupported key type %T", jwk.Key)
	}

	return pub, nil
}

// ParseX25519JWK parses an OKP JWK on curve X25519, returning X25519PrivateKey when "d" is present and
// X25519PublicKey otherwise.
func ParseX25519JWK(raw []byte) (interface{}, error) {
	var fields map[string]interface{}

	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("parse X25519 jwk: %w", err)
	}

	if _, ok := fields[jwkPrivate]; ok {
		return parseX25519(fields, jwkPrivate)
	}

	return parseX25519(fields, jwkXCoord)
}

// IsX25519JWK reports whether the JSON object fields describe an OKP key on curve X25519.
func IsX25519JWK(fields map[string]interface{}) bool {
	return fields[jwkKeyType] == okpKeyType && fields[jwkCurve] == x25519Curve
}

func parseX25519(fields map[string]interface{}, member string) (interface{}, error) {
	if !IsX25519JWK(fields) {
		return nil, fmt.Errorf("parse X25519 jwk: unsupported OKP curve %v", fields[jwkCurve])
	}

	encoded, ok := fields[member].(string)
	if !ok {
		return nil, fmt.Errorf("parse X25519 jwk: missing %q", member)
	}

	k, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil || len(k) != cryptoutil.Curve25519KeySize {
		return nil, fmt.Errorf("parse X25519 jwk: invalid %q", member)
	}

	if member == jwkPrivate {
		return X25519PrivateKey(k), nil
	}

	return X25519PublicKey(k), nil
}
