/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package keyset provides the key sets JWEDecrypt looks decryption keys up in: a static in-memory set, a set
// persisted in an aries storage provider and a cache in front of either.
package keyset

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-jose/go-jose/v3"

	"github.com/hyperledger/aries-framework-go-jwe/pkg/crypto/keywrap"
	"github.com/hyperledger/aries-framework-go-jwe/pkg/internal/cryptoutil"
)

var errNoKeys = errors.New("JWK set has no \"keys\" member")

type rawJWKS struct {
	Keys []json.RawMessage `json:"keys"`
}

// okpJWK is the JWK form of X25519 keys, which go-jose doesn't support.
type okpJWK struct {
	Kty string `json:"kty"`
	Crv string `json:"crv"`
	X   string `json:"x"`
	D   string `json:"d,omitempty"`
	Kid string `json:"kid,omitempty"`
	Alg string `json:"alg,omitempty"`
	Use string `json:"use,omitempty"`
}

// ParseJWKS parses a JWK Set (https://tools.ietf.org/html/rfc7517#section-5).
func ParseJWKS(data []byte) ([]*jose.JSONWebKey, error) {
	var set rawJWKS

	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parse JWK set: %w", err)
	}

	if set.Keys == nil {
		return nil, fmt.Errorf("parse JWK set: %w", errNoKeys)
	}

	keys := make([]*jose.JSONWebKey, 0, len(set.Keys))

	for i, raw := range set.Keys {
		k, err := ParseJWK(raw)
		if err != nil {
			return nil, fmt.Errorf("parse JWK set: key %d: %w", i, err)
		}

		keys = append(keys, k)
	}

	return keys, nil
}

// ParseJWK parses a single JWK. X25519 keys get a keywrap.X25519PrivateKey or keywrap.X25519PublicKey as Key.
func ParseJWK(raw []byte) (*jose.JSONWebKey, error) {
	var fields map[string]interface{}

	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("parse JWK: %w", err)
	}

	if keywrap.IsX25519JWK(fields) {
		key, err := keywrap.ParseX25519JWK(raw)
		if err != nil {
			return nil, err
		}

		var meta okpJWK

		if err = json.Unmarshal(raw, &meta); err != nil {
			return nil, fmt.Errorf("parse JWK: %w", err)
		}

		return &jose.JSONWebKey{Key: key, KeyID: meta.Kid, Algorithm: meta.Alg, Use: meta.Use}, nil
	}

	k := &jose.JSONWebKey{}

	if err := k.UnmarshalJSON(raw); err != nil {
		return nil, fmt.Errorf("parse JWK: %w", err)
	}

	return k, nil
}

// MarshalJWK marshals a JWK, including X25519 keys.
func MarshalJWK(k *jose.JSONWebKey) ([]byte, error) {
	okp := okpJWK{Kty: "OKP", Crv: "X25519", Kid: k.KeyID, Alg: k.Algorithm, Use: k.Use}

	switch key := k.Key.(type) {
	case keywrap.X25519PrivateKey:
		pub, err := cryptoutil.X25519PublicKey(key)
		if err != nil {
			return nil, fmt.Errorf("marshal JWK: %w", err)
		}

		okp.X = base64.RawURLEncoding.EncodeToString(pub)
		okp.D = base64.RawURLEncoding.EncodeToString(key)
	case keywrap.X25519PublicKey:
		okp.X = base64.RawURLEncoding.EncodeToString(key)
	default:
		b, err := k.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("marshal JWK: %w", err)
		}

		return b, nil
	}

	return json.Marshal(okp)
}
