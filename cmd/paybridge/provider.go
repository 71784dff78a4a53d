// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package main

import (
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mattermost/paybridge/internal/daraja"
)

const (
	envFileFlag = "env-file"

	environmentFlag       = "environment"
	apiURLFlag            = "api-url"
	consumerKeyFlag       = "consumer-key"
	consumerSecretFlag    = "consumer-secret"
	shortCodeFlag         = "short-code"
	passkeyFlag           = "passkey"
	transactionTypeFlag   = "transaction-type"
	b2cShortCodeFlag      = "b2c-short-code"
	initiatorNameFlag     = "initiator-name"
	securityCredFlag      = "security-credential"
	commandIDFlag         = "command-id"
	callbackURLFlag       = "callback-url"
	requestTimeoutFlag    = "request-timeout"
	tokenSafetyMarginFlag = "token-safety-margin"
)

// addProviderFlags registers the settings needed to talk to the provider.
func addProviderFlags(flags *pflag.FlagSet) {
	flags.String(environmentFlag, "sandbox", "Provider environment, sandbox or production")
	flags.String(apiURLFlag, "", "Provider API base URL, overriding --environment")
	flags.String(consumerKeyFlag, "", "Consumer key of the provider app")
	flags.String(consumerSecretFlag, "", "Consumer secret of the provider app")
	flags.String(shortCodeFlag, "", "Business short code receiving push payments and owning the C2B URLs")
	flags.String(callbackURLFlag, "", "Public base URL the provider delivers callbacks to")
	flags.Duration(requestTimeoutFlag, daraja.DefaultRequestTimeout, "Timeout of a single provider request")
	flags.Duration(tokenSafetyMarginFlag, daraja.DefaultTokenSafetyMargin, "Refresh access tokens this long before they expire")
}

// addPaymentFlags registers the settings used to sign payment requests.
func addPaymentFlags(flags *pflag.FlagSet) {
	flags.String(passkeyFlag, "", "Passkey used to derive push payment passwords")
	flags.String(transactionTypeFlag, daraja.TransactionTypePayBill, "Push payment transaction type")
	flags.String(b2cShortCodeFlag, "", "Short code disbursements are paid from, defaults to --short-code")
	flags.String(initiatorNameFlag, "", "API operator name used for disbursements")
	flags.String(securityCredFlag, "", "Encrypted initiator credential used for disbursements")
	flags.String(commandIDFlag, daraja.CommandBusinessPayment, "Disbursement command")
}

type providerConfig struct {
	baseURL        string
	consumerKey    string
	consumerSecret string
	shortCode      string
	callbackURL    string
	timeout        time.Duration
	safetyMargin   time.Duration
}

func getProviderConfig(command *cobra.Command) (*providerConfig, error) {
	flags := command.Flags()
	config := &providerConfig{}
	config.baseURL, _ = flags.GetString(apiURLFlag)
	config.consumerKey, _ = flags.GetString(consumerKeyFlag)
	config.consumerSecret, _ = flags.GetString(consumerSecretFlag)
	config.shortCode, _ = flags.GetString(shortCodeFlag)
	config.callbackURL, _ = flags.GetString(callbackURLFlag)
	config.timeout, _ = flags.GetDuration(requestTimeoutFlag)
	config.safetyMargin, _ = flags.GetDuration(tokenSafetyMarginFlag)

	if config.baseURL == "" {
		environment, _ := flags.GetString(environmentFlag)
		baseURL, err := daraja.BaseURLForEnvironment(environment)
		if err != nil {
			return nil, err
		}
		config.baseURL = baseURL
	}
	if config.consumerKey == "" || config.consumerSecret == "" {
		return nil, errors.Errorf("the --%s and --%s flags must not be empty", consumerKeyFlag, consumerSecretFlag)
	}
	if config.shortCode == "" {
		return nil, errors.Errorf("the --%s flag must not be empty", shortCodeFlag)
	}
	if config.callbackURL == "" {
		return nil, errors.Errorf("the --%s flag must not be empty", callbackURLFlag)
	}

	return config, nil
}

func buildProviderClient(config *providerConfig) *daraja.Client {
	httpClient := &http.Client{}
	tokens := daraja.NewTokenManager(daraja.TokenManagerOptions{
		BaseURL:        config.baseURL,
		ConsumerKey:    config.consumerKey,
		ConsumerSecret: config.consumerSecret,
		SafetyMargin:   config.safetyMargin,
		Timeout:        config.timeout,
		HTTPClient:     httpClient,
	}, logger)

	return daraja.NewClient(config.baseURL, tokens, httpClient, config.timeout, logger)
}
