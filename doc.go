/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package jwe decrypts JSON Web Encryption (RFC 7516) messages with configured, algorithm restricted decrypters.
//
// # Packages for end developer usage
//
// pkg/doc/jose: JWE parsing and serialization, JWEDecrypt and JWEEncrypt.
//
// pkg/doc/jose/jwa: The key management, content encryption and compression algorithms.
//
// pkg/kms/keyset: Key sets JWEDecrypt finds decryption keys in: static, persisted in an aries storage provider
// or cached.
//
// pkg/config: Loads named decrypters from yaml or json configuration.
//
// Basic workflow
//
//  1. Load the decrypters configuration with config.FromFile or config.FromReader.
//  2. Create a key set, for example keyset.NewStaticProvider with the keys of keyset.ParseJWKS.
//  3. Call config.BuildDecrypters, or jose.NewJWEDecrypt with a jose.NewAllowlist.
//  4. Call DecryptString with a compact or JSON serialized JWE.
package jwe
