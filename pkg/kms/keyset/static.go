/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package keyset

import (
	"github.com/go-jose/go-jose/v3"

	jwe "github.com/hyperledger/aries-framework-go-jwe/pkg/doc/jose"
)

// StaticProvider is an immutable in-memory key set.
type StaticProvider struct {
	keys []*jose.JSONWebKey
}

// NewStaticProvider creates a StaticProvider holding keys.
func NewStaticProvider(keys ...*jose.JSONWebKey) *StaticProvider {
	return &StaticProvider{keys: append([]*jose.JSONWebKey{}, keys...)}
}

// FindKeysFor returns the keys matching the "kid" header, keys without a key ID always match.
func (p *StaticProvider) FindKeysFor(headers jwe.Headers) ([]*jose.JSONWebKey, error) {
	kid, _ := headers.KeyID()

	return filterByKeyID(p.keys, kid), nil
}

func filterByKeyID(keys []*jose.JSONWebKey, kid string) []*jose.JSONWebKey {
	if kid == "" {
		return keys
	}

	var matching []*jose.JSONWebKey

	for _, k := range keys {
		if k.KeyID == "" || k.KeyID == kid {
			matching = append(matching, k)
		}
	}

	return matching
}
