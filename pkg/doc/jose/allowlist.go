/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jose

import (
	"errors"
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/hyperledger/aries-framework-go-jwe/pkg/doc/jose/jwa"
)

var (
	errNoKeyEncryptionAlgorithm     = errors.New("at least one key encryption algorithm is required")
	errNoContentEncryptionAlgorithm = errors.New("at least one content encryption algorithm is required")
)

// Allowlist holds the algorithms a JWEDecrypt accepts. It is validated once by NewAllowlist and is read-only
// afterwards.
type Allowlist struct {
	keyEncryption     map[string]struct{}
	contentEncryption map[string]struct{}
	compression       map[string]struct{}
}

// NewAllowlist creates an Allowlist. Both algorithm lists must be non-empty and every name must be a registered
// algorithm of the matching kind.
func NewAllowlist(keyEncryptionAlgs, contentEncryptionAlgs []string, compressionMethods ...string) (*Allowlist, error) {
	if len(keyEncryptionAlgs) == 0 {
		return nil, fmt.Errorf("allowlist: %w", errNoKeyEncryptionAlgorithm)
	}

	if len(contentEncryptionAlgs) == 0 {
		return nil, fmt.Errorf("allowlist: %w", errNoContentEncryptionAlgorithm)
	}

	a := &Allowlist{}

	var err error

	if a.keyEncryption, err = algorithmSet(keyEncryptionAlgs, jwa.KindKeyEncryption); err != nil {
		return nil, err
	}

	if a.contentEncryption, err = algorithmSet(contentEncryptionAlgs, jwa.KindContentEncryption); err != nil {
		return nil, err
	}

	if a.compression, err = algorithmSet(compressionMethods, jwa.KindCompression); err != nil {
		return nil, err
	}

	return a, nil
}

func algorithmSet(names []string, kind jwa.Kind) (map[string]struct{}, error) {
	set := make(map[string]struct{}, len(names))

	for _, name := range names {
		if _, err := jwa.LookupKind(name, kind); err != nil {
			return nil, fmt.Errorf("allowlist: %w", err)
		}

		set[name] = struct{}{}
	}

	return set, nil
}

// AllowsKeyEncryption reports whether the "alg" value is allowed.
func (a *Allowlist) AllowsKeyEncryption(alg string) bool {
	_, ok := a.keyEncryption[alg]

	return ok
}

// AllowsContentEncryption reports whether the "enc" value is allowed.
func (a *Allowlist) AllowsContentEncryption(enc string) bool {
	_, ok := a.contentEncryption[enc]

	return ok
}

// AllowsCompression reports whether the "zip" value is allowed.
func (a *Allowlist) AllowsCompression(zip string) bool {
	_, ok := a.compression[zip]

	return ok
}

// KeyEncryptionAlgorithms returns the sorted allowed "alg" values.
func (a *Allowlist) KeyEncryptionAlgorithms() []string {
	return sortedKeys(a.keyEncryption)
}

// ContentEncryptionAlgorithms returns the sorted allowed "enc" values.
func (a *Allowlist) ContentEncryptionAlgorithms() []string {
	return sortedKeys(a.contentEncryption)
}

// CompressionMethods returns the sorted allowed "zip" values.
func (a *Allowlist) CompressionMethods() []string {
	return sortedKeys(a.compression)
}

func sortedKeys(set map[string]struct{}) []string {
	keys := maps.Keys(set)
	slices.Sort(keys)

	return keys
}
