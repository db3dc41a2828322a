/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package main is a command line tool decrypting JWEs with the decrypters of a configuration file.
package main

import (
	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/spf13/cobra"

	"github.com/hyperledger/aries-framework-go-jwe/cmd/jwe-decrypt/decryptcmd"
)

func main() {
	rootCmd := &cobra.Command{
		Use: "jwe-decrypt",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	logger := log.New("aries-framework/jwe-decrypt")

	rootCmd.AddCommand(decryptcmd.Cmd())

	if err := rootCmd.Execute(); err != nil {
		logger.Fatalf("Failed to run jwe-decrypt: %s", err)
	}
}
