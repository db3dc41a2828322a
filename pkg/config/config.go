/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package config loads the JWE decrypter configuration from yaml or json, files, maps and environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/viper"

	"github.com/hyperledger/aries-framework-go-jwe/pkg/config/lookup"
)

type options struct {
	envPrefix string
}

const (
	cmdRoot = "JWE"
)

// Option configures the package.
type Option func(opts *options)

// FromReader loads configuration from in.
// configType can be "json" or "yaml".
func FromReader(in io.Reader, configType string, opts ...Option) lookup.ConfigProvider {
	return func() (lookup.ConfigBackend, error) {
		return initFromReader(in, configType, opts...)
	}
}

// FromFile reads from named config file.
func FromFile(name string, opts ...Option) lookup.ConfigProvider {
	return func() (lookup.ConfigBackend, error) {
		backend := newBackend(opts...)

		if name == "" {
			return nil, errors.New("filename is required")
		}

		backend.configViper.SetConfigFile(name)

		err := backend.configViper.MergeInConfig()
		if err != nil {
			return nil, fmt.Errorf("loading config file failed: %w", err)
		}

		return backend, nil
	}
}

// FromMap loads configuration from an in-memory tree.
func FromMap(cfg map[string]interface{}, opts ...Option) lookup.ConfigProvider {
	return func() (lookup.ConfigBackend, error) {
		backend := newBackend(opts...)

		if err := backend.configViper.MergeConfigMap(cfg); err != nil {
			return nil, fmt.Errorf("viper MergeConfigMap failed : %w", err)
		}

		return backend, nil
	}
}

func initFromReader(in io.Reader, configType string, opts ...Option) (lookup.ConfigBackend, error) {
	backend := newBackend(opts...)

	if configType == "" {
		return nil, errors.New("empty config type")
	}

	// read config from bytes array, but must set ConfigType
	// for viper to properly unmarshal the bytes array
	backend.configViper.SetConfigType(configType)

	err := backend.configViper.MergeConfig(in)
	if err != nil {
		return nil, fmt.Errorf("viper MergeConfig failed : %w", err)
	}

	return backend, nil
}

// WithEnvPrefix defines the prefix for environment variable overrides.
func WithEnvPrefix(prefix string) Option {
	return func(opts *options) {
		opts.envPrefix = prefix
	}
}

func newBackend(opts ...Option) *defConfigBackend {
	o := options{
		envPrefix: cmdRoot,
	}

	for _, option := range opts {
		option(&o)
	}

	return &defConfigBackend{
		configViper: newViper(o.envPrefix),
		opts:        o,
	}
}

func newViper(cmdRootPrefix string) *viper.Viper {
	myViper := viper.New()
	myViper.SetEnvPrefix(cmdRootPrefix)
	myViper.AutomaticEnv()
	myViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return myViper
}
