/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"fmt"

	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/hyperledger/aries-framework-go-jwe/pkg/config/lookup"
	"github.com/hyperledger/aries-framework-go-jwe/pkg/doc/jose"
	"github.com/hyperledger/aries-framework-go-jwe/pkg/internal/logutil"
)

const (
	logModule = "aries-framework/jwe/config"
	logCmd    = "config"

	// JWERoot is the configuration path of the JWE section.
	JWERoot = "jose.jwe"
	// DecryptersRoot is the configuration path of the named decrypters.
	DecryptersRoot = JWERoot + ".decrypters"

	// MaxDecompressedSizeKey is the configuration path of the plaintext size limit of compressed JWEs, shared by
	// every decrypter.
	MaxDecompressedSizeKey = JWERoot + ".max_decompressed_size"

	keyEncryptionAlgorithms     = "key_encryption_algorithms"
	contentEncryptionAlgorithms = "content_encryption_algorithms"
	isPublic                    = "is_public"
)

var logger = log.New(logModule)

// ValidationError is an invalid decrypter configuration.
type ValidationError struct {
	Path string
	msg  string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func missingChild(child, parent string) error {
	return &ValidationError{
		Path: parent + "." + child,
		msg:  fmt.Sprintf("child config %q under %q must be configured", child, parent),
	}
}

func tooFewElements(path string, min int) error {
	return &ValidationError{
		Path: path,
		msg:  fmt.Sprintf("path %q should have at least %d element(s) defined", path, min),
	}
}

func invalidType(path, expected string) error {
	return &ValidationError{
		Path: path,
		msg:  fmt.Sprintf("invalid type for path %q, expected %s", path, expected),
	}
}

// DecrypterConfig is the configuration of a named decrypter.
type DecrypterConfig struct {
	Name                        string   `mapstructure:"-"`
	KeyEncryptionAlgorithms     []string `mapstructure:"key_encryption_algorithms"`
	ContentEncryptionAlgorithms []string `mapstructure:"content_encryption_algorithms"`
	CompressionMethods          []string `mapstructure:"compression_methods"`
	// IsPublic marks decrypters meant to be exposed to the application rather than used internally.
	IsPublic bool `mapstructure:"-"`
}

// Decrypters reads and validates the decrypters configured under DecryptersRoot, sorted by name. Names are lower
// case, as every configuration key.
//
// A missing, false or empty JWE section configures no decrypters.
func Decrypters(backend lookup.ConfigBackend) ([]*DecrypterConfig, error) {
	cfg := lookup.New(backend)

	section, ok := cfg.Lookup(JWERoot)
	if !ok {
		return nil, nil
	}

	// "jwe: true" enables the section without decrypters
	if _, isBool := section.(bool); isBool {
		return nil, nil
	}

	if cfg.GetStringMap(JWERoot) == nil {
		return nil, invalidType(JWERoot, "a map or a boolean")
	}

	raw, ok := cfg.Lookup(DecryptersRoot)
	if !ok {
		return nil, nil
	}

	nodes := cfg.GetStringMap(DecryptersRoot)
	if nodes == nil {
		return nil, invalidType(DecryptersRoot, fmt.Sprintf("a map, got %T", raw))
	}

	names := maps.Keys(nodes)
	slices.Sort(names)

	decrypters := make([]*DecrypterConfig, 0, len(names))

	for _, name := range names {
		dc, err := decodeDecrypter(cfg, name, nodes[name])
		if err != nil {
			return nil, err
		}

		decrypters = append(decrypters, dc)
	}

	return decrypters, nil
}

func decodeDecrypter(cfg *lookup.ConfigLookup, name string, node interface{}) (*DecrypterConfig, error) {
	path := DecryptersRoot + "." + name

	fields := map[string]interface{}{}

	if node != nil {
		nodeFields, err := cast.ToStringMapE(node)
		if err != nil {
			return nil, invalidType(path, "a map")
		}

		// the node belongs to the backend
		fields = maps.Clone(nodeFields)
	}

	for _, child := range []string{keyEncryptionAlgorithms, contentEncryptionAlgorithms} {
		value, ok := fields[child]
		if !ok {
			return nil, missingChild(child, path)
		}

		list, err := cast.ToStringSliceE(value)
		if err != nil {
			return nil, invalidType(path+"."+child, "a list")
		}

		if len(list) == 0 {
			return nil, tooFewElements(path+"."+child, 1)
		}
	}

	dc := &DecrypterConfig{Name: name, CompressionMethods: []string{}, IsPublic: true}

	if _, ok := fields[isPublic]; ok {
		dc.IsPublic = cfg.GetBool(path + "." + isPublic)

		delete(fields, isPublic)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           dc,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("decrypter %s: %w", name, err)
	}

	if err = decoder.Decode(fields); err != nil {
		return nil, fmt.Errorf("decrypter %s: %w", name, err)
	}

	return dc, nil
}

// BuildDecrypters creates a JWEDecrypt named after each configured decrypter, all using keys. opts apply to every
// decrypter.
func BuildDecrypters(backend lookup.ConfigBackend, keys jose.KeySetProvider,
	opts ...jose.DecrypterOpt) (map[string]*jose.JWEDecrypt, error) {
	configs, err := Decrypters(backend)
	if err != nil {
		logutil.LogError(logger, logCmd, "buildDecrypters", err.Error())

		return nil, err
	}

	common, err := sharedOptions(lookup.New(backend))
	if err != nil {
		logutil.LogError(logger, logCmd, "buildDecrypters", err.Error())

		return nil, err
	}

	decrypters := make(map[string]*jose.JWEDecrypt, len(configs))

	for _, dc := range configs {
		allowlist, err := jose.NewAllowlist(dc.KeyEncryptionAlgorithms, dc.ContentEncryptionAlgorithms,
			dc.CompressionMethods...)
		if err != nil {
			logutil.LogError(logger, logCmd, "buildDecrypters", err.Error(), logutil.CreateKeyValueString("name", dc.Name))

			return nil, fmt.Errorf("decrypter %s: %w", dc.Name, err)
		}

		decrypterOpts := append([]jose.DecrypterOpt{jose.WithName(dc.Name)}, common...)

		decrypters[dc.Name] = jose.NewJWEDecrypt(keys, allowlist, append(decrypterOpts, opts...)...)

		logutil.LogInfo(logger, logCmd, "buildDecrypters", "decrypter created",
			logutil.CreateKeyValueString("name", dc.Name),
			logutil.CreateKeyValueString("public", fmt.Sprint(dc.IsPublic)))
	}

	return decrypters, nil
}

// sharedOptions returns the decrypter options configured for the whole JWE section.
func sharedOptions(cfg *lookup.ConfigLookup) ([]jose.DecrypterOpt, error) {
	if _, ok := cfg.Lookup(MaxDecompressedSizeKey); !ok {
		return nil, nil
	}

	size := cfg.GetInt(MaxDecompressedSizeKey)
	if size <= 0 {
		return nil, &ValidationError{
			Path: MaxDecompressedSizeKey,
			msg:  fmt.Sprintf("path %q should be a positive integer", MaxDecompressedSizeKey),
		}
	}

	return []jose.DecrypterOpt{jose.WithMaxDecompressedSize(int64(size))}, nil
}
