/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package keyset

import (
	"errors"
	"fmt"

	"github.com/go-jose/go-jose/v3"
	"github.com/hyperledger/aries-framework-go/spi/storage"

	jwe "github.com/hyperledger/aries-framework-go-jwe/pkg/doc/jose"
)

const (
	// DefaultStoreName is the store keys are saved in when no name is given.
	DefaultStoreName = "jwekeys"

	jwkTagName = "jwk"
	algTagName = "alg"
)

var errMissingKeyID = errors.New("key ID is required")

// StoreProvider is a key set persisted in an aries storage provider. Keys are saved as JWK JSON under their key ID.
type StoreProvider struct {
	store storage.Store
}

// NewStoreProvider opens storeName (DefaultStoreName when empty) in provider.
func NewStoreProvider(provider storage.Provider, storeName string) (*StoreProvider, error) {
	if storeName == "" {
		storeName = DefaultStoreName
	}

	store, err := provider.OpenStore(storeName)
	if err != nil {
		return nil, fmt.Errorf("open key store: %w", err)
	}

	err = provider.SetStoreConfig(storeName, storage.StoreConfiguration{TagNames: []string{jwkTagName, algTagName}})
	if err != nil {
		return nil, fmt.Errorf("set key store config: %w", err)
	}

	return &StoreProvider{store: store}, nil
}

// Put saves a key, replacing any key with the same key ID.
func (p *StoreProvider) Put(k *jose.JSONWebKey) error {
	if k.KeyID == "" {
		return errMissingKeyID
	}

	raw, err := MarshalJWK(k)
	if err != nil {
		return err
	}

	tags := []storage.Tag{{Name: jwkTagName}}
	if k.Algorithm != "" {
		tags = append(tags, storage.Tag{Name: algTagName, Value: k.Algorithm})
	}

	if err = p.store.Put(k.KeyID, raw, tags...); err != nil {
		return fmt.Errorf("save key %s: %w", k.KeyID, err)
	}

	return nil
}

// Delete removes a key.
func (p *StoreProvider) Delete(kid string) error {
	return p.store.Delete(kid)
}

// FindKeysFor returns the key saved under the "kid" header, or every saved key when the header has no key ID.
func (p *StoreProvider) FindKeysFor(headers jwe.Headers) ([]*jose.JSONWebKey, error) {
	if kid, ok := headers.KeyID(); ok && kid != "" {
		raw, err := p.store.Get(kid)
		if errors.Is(err, storage.ErrDataNotFound) {
			return nil, nil
		}

		if err != nil {
			return nil, fmt.Errorf("get key %s: %w", kid, err)
		}

		k, err := ParseJWK(raw)
		if err != nil {
			return nil, err
		}

		return []*jose.JSONWebKey{k}, nil
	}

	return p.all()
}

func (p *StoreProvider) all() ([]*jose.JSONWebKey, error) {
	iter, err := p.store.Query(jwkTagName)
	if err != nil {
		return nil, fmt.Errorf("query keys: %w", err)
	}

	defer func() {
		if errClose := iter.Close(); errClose != nil {
			logger.Warnf("failed to close key iterator: %s", errClose)
		}
	}()

	var keys []*jose.JSONWebKey

	more, err := iter.Next()

	for ; more && err == nil; more, err = iter.Next() {
		raw, errValue := iter.Value()
		if errValue != nil {
			return nil, fmt.Errorf("read key: %w", errValue)
		}

		k, errParse := ParseJWK(raw)
		if errParse != nil {
			return nil, errParse
		}

		keys = append(keys, k)
	}

	if err != nil {
		return nil, fmt.Errorf("iterate keys: %w", err)
	}

	return keys, nil
}
