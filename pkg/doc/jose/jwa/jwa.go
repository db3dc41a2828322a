/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package jwa is the registry of the JSON Web Algorithms supported for JWE
// (https://tools.ietf.org/html/rfc7518). The registry is built once at package initialization and is read-only
// afterwards, so it is safe for concurrent use.
package jwa

import (
	"crypto"
	"errors"
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/hyperledger/aries-framework-go-jwe/pkg/crypto/contentcipher"
	"github.com/hyperledger/aries-framework-go-jwe/pkg/crypto/keywrap"
)

// Deflate is the "zip" value for raw DEFLATE compression (RFC 1951).
const Deflate = "DEF"

// ErrUnsupportedAlgorithm is returned for algorithm names that are not in the registry or not of the expected kind.
var ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")

// Kind is the family of an algorithm.
type Kind int

const (
	// KindKeyEncryption is a key management algorithm ("alg").
	KindKeyEncryption Kind = iota + 1
	// KindContentEncryption is a content encryption algorithm ("enc").
	KindContentEncryption
	// KindCompression is a compression algorithm ("zip").
	KindCompression
)

// String returns the header name of the kind.
func (k Kind) String() string {
	switch k {
	case KindKeyEncryption:
		return "alg"
	case KindContentEncryption:
		return "enc"
	case KindCompression:
		return "zip"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Descriptor describes a registered algorithm. KeyManagement is set for KindKeyEncryption and Content for
// KindContentEncryption.
type Descriptor struct {
	Name          string
	Kind          Kind
	KeyManagement keywrap.Algorithm
	Content       contentcipher.Cipher
}

var registry = newRegistry() //nolint:gochecknoglobals

func newRegistry() map[string]Descriptor {
	keyManagement := []keywrap.Algorithm{
		keywrap.NewRSAPKCS1v15(),
		keywrap.NewRSAOAEP(keywrap.RSAOAEP, crypto.SHA1),
		keywrap.NewRSAOAEP(keywrap.RSAOAEP256, crypto.SHA256),
		keywrap.NewRSAOAEP(keywrap.RSAOAEP384, crypto.SHA384),
		keywrap.NewRSAOAEP(keywrap.RSAOAEP512, crypto.SHA512),
		keywrap.NewAESKeyWrap(keywrap.A128KW, 16),
		keywrap.NewAESKeyWrap(keywrap.A192KW, 24),
		keywrap.NewAESKeyWrap(keywrap.A256KW, 32),
		keywrap.NewAESGCMKeyWrap(keywrap.A128GCMKW, 16),
		keywrap.NewAESGCMKeyWrap(keywrap.A192GCMKW, 24),
		keywrap.NewAESGCMKeyWrap(keywrap.A256GCMKW, 32),
		&keywrap.DirectKey{},
		keywrap.NewECDHESDirect(),
		keywrap.NewECDHESKeyWrap(keywrap.ECDHESA128KW, 16),
		keywrap.NewECDHESKeyWrap(keywrap.ECDHESA192KW, 24),
		keywrap.NewECDHESKeyWrap(keywrap.ECDHESA256KW, 32),
		keywrap.NewPBES2HS256A128KW(),
		keywrap.NewPBES2HS384A192KW(),
		keywrap.NewPBES2HS512A256KW(),
	}

	content := []contentcipher.Cipher{
		contentcipher.NewAESGCM(contentcipher.A128GCM, 16),
		contentcipher.NewAESGCM(contentcipher.A192GCM, 24),
		contentcipher.NewAESGCM(contentcipher.A256GCM, 32),
		contentcipher.NewAESCBCHMAC(contentcipher.A128CBCHS256, 32),
		contentcipher.NewAESCBCHMAC(contentcipher.A192CBCHS384, 48),
		contentcipher.NewAESCBCHMAC(contentcipher.A256CBCHS512, 64),
		&contentcipher.XChacha20Poly1305{},
	}

	r := make(map[string]Descriptor, len(keyManagement)+len(content)+1)

	for _, a := range keyManagement {
		r[a.Name()] = Descriptor{Name: a.Name(), Kind: KindKeyEncryption, KeyManagement: a}
	}

	for _, c := range content {
		r[c.Name()] = Descriptor{Name: c.Name(), Kind: KindContentEncryption, Content: c}
	}

	r[Deflate] = Descriptor{Name: Deflate, Kind: KindCompression}

	return r
}

// Lookup returns a copy of the descriptor of a registered algorithm.
func Lookup(name string) (Descriptor, error) {
	d, ok := registry[name]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, name)
	}

	return d, nil
}

// LookupKind returns the descriptor of a registered algorithm of the given kind.
func LookupKind(name string, kind Kind) (Descriptor, error) {
	d, err := Lookup(name)
	if err != nil {
		return Descriptor{}, err
	}

	if d.Kind != kind {
		return Descriptor{}, fmt.Errorf("%w: %q is not a valid %q value", ErrUnsupportedAlgorithm, name, kind)
	}

	return d, nil
}

// KeyEncryption returns the key management algorithm registered under name.
func KeyEncryption(name string) (keywrap.Algorithm, error) {
	d, err := LookupKind(name, KindKeyEncryption)
	if err != nil {
		return nil, err
	}

	return d.KeyManagement, nil
}

// ContentEncryption returns the content encryption algorithm registered under name.
func ContentEncryption(name string) (contentcipher.Cipher, error) {
	d, err := LookupKind(name, KindContentEncryption)
	if err != nil {
		return nil, err
	}

	return d.Content, nil
}

// Names returns the sorted names of the registered algorithms of a kind.
func Names(kind Kind) []string {
	names := maps.Keys(registry)
	names = slices.DeleteFunc(names, func(n string) bool { return registry[n].Kind != kind })
	slices.Sort(names)

	return names
}
