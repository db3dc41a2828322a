/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package keywrap

import (
	"fmt"
)

// DirectKey implements "dir": the shared symmetric key is the CEK and the encrypted key is empty.
// The CEK size is checked against "enc" by the content encryption stage, not here.
type DirectKey struct{}

// Name returns the "alg" value.
func (d *DirectKey) Name() string { return Direct }

// Mode returns DirectEncryption.
func (d *DirectKey) Mode() Mode { return DirectEncryption }

// Accepts reports whether key is a non-empty symmetric key.
func (d *DirectKey) Accepts(key interface{}) bool {
	k, ok := key.([]byte)

	return ok && len(k) > 0
}

// Unwrap returns a copy of the shared key so that wiping the CEK never touches the caller's key.
func (d *DirectKey) Unwrap(key interface{}, in *UnwrapInput) ([]byte, error) {
	if !d.Accepts(key) {
		return nil, fmt.Errorf("%s: %w", Direct, ErrIncompatibleKey)
	}

	if len(in.EncryptedKey) != 0 {
		return nil, fmt.Errorf("%s: %w: encrypted key must be empty", Direct, ErrUnwrapFailed)
	}

	return cloneBytes(key.([]byte)), nil //nolint:forcetypeassert
}

// Wrap returns a copy of the shared key as the CEK.
func (d *DirectKey) Wrap(key interface{}, in *WrapInput) (*WrapOutput, error) {
	if !d.Accepts(key) {
		return nil, fmt.Errorf("%s: %w", Direct, ErrIncompatibleKey)
	}

	k := key.([]byte) //nolint:forcetypeassert
	if in.CEKSize != 0 && len(k) != in.CEKSize {
		return nil, fmt.Errorf("%s: %w: key is %d bytes, %s requires %d", Direct, ErrIncompatibleKey, len(k),
			in.EncAlg, in.CEKSize)
	}

	return &WrapOutput{CEK: cloneBytes(k)}, nil
}
