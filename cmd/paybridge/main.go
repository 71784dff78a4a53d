// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "PAYBRIDGE"

var rootCmd = &cobra.Command{
	Use:   "paybridge",
	Short: "Mobile money payment gateway",
	Long:  "Paybridge initiates mobile money push payments and disbursements, reconciles the provider's asynchronous callbacks and keeps an audit trail of every delivery.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serverCmd.RunE(cmd, args)
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
	// SilenceErrors allows us to explicitly log the error returned from rootCmd below.
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String(envFileFlag, ".env", "Optional file of environment variables to load before reading configuration")
	addServerFlags(rootCmd.Flags())

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(registerURLsCmd)
	rootCmd.AddCommand(transactionCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(disburseCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

// loadConfig fills every flag the user did not set from PAYBRIDGE_*
// environment variables, after loading the optional env file.
func loadConfig(cmd *cobra.Command) error {
	envFile, _ := cmd.Flags().GetString(envFileFlag)
	if envFile != "" {
		err := godotenv.Load(envFile)
		if err != nil && !os.IsNotExist(errors.Cause(err)) {
			return errors.Wrapf(err, "failed to load %s", envFile)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	err := v.BindPFlags(cmd.Flags())
	if err != nil {
		return errors.Wrap(err, "failed to bind flags")
	}

	var setErr error
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		if setErr != nil || flag.Changed || !v.IsSet(flag.Name) {
			return
		}
		value := v.GetString(flag.Name)
		if value == flag.DefValue {
			return
		}
		if err := cmd.Flags().Set(flag.Name, value); err != nil {
			setErr = errors.Wrapf(err, "invalid value for %s_%s", envPrefix, strings.ToUpper(strings.ReplaceAll(flag.Name, "-", "_")))
		}
	})

	return setErr
}

func printJSON(data interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "    ")
	return encoder.Encode(data)
}
