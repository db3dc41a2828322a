/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package keyset

import (
	"sync"

	"github.com/go-jose/go-jose/v3"

	jwe "github.com/hyperledger/aries-framework-go-jwe/pkg/doc/jose"
)

// Provider mock key set provider.
type Provider struct {
	Keys         []*jose.JSONWebKey
	FindKeysErr  error
	FindKeysFunc func(headers jwe.Headers) ([]*jose.JSONWebKey, error)

	mu    sync.Mutex
	calls []jwe.Headers
}

// FindKeysFor returns Keys, or the result of FindKeysFunc when set.
func (p *Provider) FindKeysFor(headers jwe.Headers) ([]*jose.JSONWebKey, error) {
	p.mu.Lock()
	p.calls = append(p.calls, headers)
	p.mu.Unlock()

	if p.FindKeysFunc != nil {
		return p.FindKeysFunc(headers)
	}

	if p.FindKeysErr != nil {
		return nil, p.FindKeysErr
	}

	return p.Keys, nil
}

// Calls returns the headers of every FindKeysFor call.
func (p *Provider) Calls() []jwe.Headers {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]jwe.Headers{}, p.calls...)
}
