// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mattermost/paybridge/internal/payment"
)

const (
	confirmationURLFlag = "confirmation-url"
	validationURLFlag   = "validation-url"
	responseTypeFlag    = "response-type"
)

func init() {
	registerURLsCmd.Flags().String(confirmationURLFlag, "", "C2B confirmation URL, defaults to the callback URL's /confirmation")
	registerURLsCmd.Flags().String(validationURLFlag, "", "C2B validation URL, defaults to the callback URL's /validation")
	registerURLsCmd.Flags().String(responseTypeFlag, "", "What the provider does when validation is unreachable, Completed or Cancelled")
	addProviderFlags(registerURLsCmd.Flags())
}

var registerURLsCmd = &cobra.Command{
	Use:   "register-urls",
	Short: "Register the C2B confirmation and validation URLs with the provider.",
	RunE: func(command *cobra.Command, args []string) error {
		command.SilenceUsage = true

		provider, err := getProviderConfig(command)
		if err != nil {
			return err
		}
		confirmationURL, _ := command.Flags().GetString(confirmationURLFlag)
		validationURL, _ := command.Flags().GetString(validationURLFlag)
		responseType, _ := command.Flags().GetString(responseTypeFlag)

		registrar := payment.NewRegistrar(buildProviderClient(provider), payment.RegistrarOptions{
			ShortCode:       provider.shortCode,
			ResponseType:    responseType,
			CallbackBaseURL: provider.callbackURL,
		}, logger)

		ctx, cancel := context.WithTimeout(context.Background(), 2*provider.timeout)
		defer cancel()

		ack, err := registrar.RegisterURLs(ctx, confirmationURL, validationURL)
		if err != nil {
			return err
		}

		return printJSON(ack)
	},
}
