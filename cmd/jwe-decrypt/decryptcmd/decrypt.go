/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package decryptcmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/spf13/cobra"

	"github.com/hyperledger/aries-framework-go-jwe/pkg/config"
	"github.com/hyperledger/aries-framework-go-jwe/pkg/kms/keyset"
)

const (
	configFileFlagName      = "config-file"
	configFileEnvKey        = "JWE_CONFIG_FILE"
	configFileFlagShorthand = "c"
	configFileFlagUsage     = "Path of the yaml or json file configuring the decrypters." +
		" Alternatively, this can be set with the following environment variable: " + configFileEnvKey

	jwksFileFlagName      = "jwks-file"
	jwksFileEnvKey        = "JWE_JWKS_FILE"
	jwksFileFlagShorthand = "k"
	jwksFileFlagUsage     = "Path of the JWK set holding the decryption keys." +
		" Alternatively, this can be set with the following environment variable: " + jwksFileEnvKey

	decrypterFlagName      = "decrypter"
	decrypterEnvKey        = "JWE_DECRYPTER"
	decrypterFlagShorthand = "d"
	decrypterFlagUsage     = "Name of the configured decrypter to use." +
		" Alternatively, this can be set with the following environment variable: " + decrypterEnvKey

	logLevelFlagName  = "log-level"
	logLevelEnvKey    = "JWE_LOG_LEVEL"
	logLevelFlagUsage = "Log level. Possible values [INFO] [DEBUG] [ERROR] [WARNING] [CRITICAL] . " +
		"Defaults to INFO if not set. Setting to DEBUG may adversely impact performance. Optional. " +
		" Alternatively, this can be set with the following environment variable: " + logLevelEnvKey
)

var logger = log.New("aries-framework/jwe-decrypt")

type parameters struct {
	configFile string
	jwksFile   string
	decrypter  string
	token      string
}

// Cmd returns the decrypt command. The JWE is read from the first argument, or from the standard input.
func Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decrypt [jwe]",
		Short: "Decrypt a JWE",
		Long:  `Decrypt a compact or JSON serialized JWE with a configured decrypter and print its plaintext`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logLevel, err := getUserSetVar(cmd, logLevelFlagName, logLevelEnvKey, true)
			if err != nil {
				return err
			}

			if err = setLogLevel(logLevel); err != nil {
				return err
			}

			p := &parameters{}

			if p.configFile, err = getUserSetVar(cmd, configFileFlagName, configFileEnvKey, false); err != nil {
				return err
			}

			if p.jwksFile, err = getUserSetVar(cmd, jwksFileFlagName, jwksFileEnvKey, false); err != nil {
				return err
			}

			if p.decrypter, err = getUserSetVar(cmd, decrypterFlagName, decrypterEnvKey, false); err != nil {
				return err
			}

			if p.token, err = readToken(cmd, args); err != nil {
				return err
			}

			return decrypt(p, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringP(configFileFlagName, configFileFlagShorthand, "", configFileFlagUsage)
	cmd.Flags().StringP(jwksFileFlagName, jwksFileFlagShorthand, "", jwksFileFlagUsage)
	cmd.Flags().StringP(decrypterFlagName, decrypterFlagShorthand, "", decrypterFlagUsage)
	cmd.Flags().String(logLevelFlagName, "", logLevelFlagUsage)

	return cmd
}

func decrypt(p *parameters, out io.Writer) error {
	backend, err := config.FromFile(p.configFile)()
	if err != nil {
		return err
	}

	jwks, err := os.ReadFile(p.jwksFile)
	if err != nil {
		return fmt.Errorf("read JWK set: %w", err)
	}

	keys, err := keyset.ParseJWKS(jwks)
	if err != nil {
		return err
	}

	decrypters, err := config.BuildDecrypters(backend, keyset.NewStaticProvider(keys...))
	if err != nil {
		return err
	}

	d, ok := decrypters[strings.ToLower(p.decrypter)]
	if !ok {
		return fmt.Errorf("decrypter %q is not configured", p.decrypter)
	}

	result, err := d.DecryptString(p.token)
	if err != nil {
		return err
	}

	if _, err = out.Write(result.Plaintext); err != nil {
		return fmt.Errorf("write plaintext: %w", err)
	}

	return nil
}

func readToken(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return strings.TrimSpace(args[0]), nil
	}

	token, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read JWE: %w", err)
	}

	if len(strings.TrimSpace(string(token))) == 0 {
		return "", errors.New("no JWE given")
	}

	return strings.TrimSpace(string(token)), nil
}

func getUserSetVar(cmd *cobra.Command, flagName, envKey string, isOptional bool) (string, error) {
	if cmd.Flags().Changed(flagName) {
		value, err := cmd.Flags().GetString(flagName)
		if err != nil {
			return "", fmt.Errorf(flagName+" flag not found: %s", err)
		}

		return value, nil
	}

	value, isSet := os.LookupEnv(envKey)

	if isOptional || isSet {
		return value, nil
	}

	return "", errors.New("Neither " + flagName + " (command line flag) nor " + envKey +
		" (environment variable) have been set.")
}

func setLogLevel(logLevel string) error {
	if logLevel != "" {
		level, err := log.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("failed to parse log level '%s' : %w", logLevel, err)
		}

		log.SetLevel("", level)

		logger.Infof("logger level set to %s", logLevel)
	}

	return nil
}
