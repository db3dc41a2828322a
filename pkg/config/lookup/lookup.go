/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package lookup

import (
	"github.com/spf13/cast"
)

// ConfigProvider provides a config backend.
type ConfigProvider func() (ConfigBackend, error)

// ConfigBackend is a source of configuration values.
type ConfigBackend interface {
	Lookup(key string) (interface{}, bool)
}

// New providers lookup wrapper around given backend.
func New(backend ConfigBackend) *ConfigLookup {
	return &ConfigLookup{backend: backend}
}

// ConfigLookup is wrapper for ConfigBackend which performs key lookup and unmarshalling.
type ConfigLookup struct {
	backend ConfigBackend
}

// Lookup returns value for given key.
func (c *ConfigLookup) Lookup(key string) (interface{}, bool) {
	val, ok := c.backend.Lookup(key)
	if ok {
		return val, true
	}

	return nil, false
}

// GetBool returns bool value for given key.
func (c *ConfigLookup) GetBool(key string) bool {
	value, ok := c.Lookup(key)
	if !ok {
		return false
	}

	return cast.ToBool(value)
}

// GetInt returns int value for given key.
func (c *ConfigLookup) GetInt(key string) int {
	value, ok := c.Lookup(key)
	if !ok {
		return 0
	}

	return cast.ToInt(value)
}

// GetStringMap returns the map value for given key, nil if the value is not a map.
func (c *ConfigLookup) GetStringMap(key string) map[string]interface{} {
	value, ok := c.Lookup(key)
	if !ok {
		return nil
	}

	m, err := cast.ToStringMapE(value)
	if err != nil {
		return nil
	}

	return m
}
