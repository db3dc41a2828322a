/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package keywrap

import "encoding/base64"

func encode(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}
