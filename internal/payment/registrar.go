// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package payment

import (
	"context"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/mattermost/paybridge/internal/daraja"
	"github.com/mattermost/paybridge/model"
)

// The provider refuses URLs containing these words.
var forbiddenURLKeywords = []string{"mpesa", "m-pesa", "safaricom", "exec", "cmd", "sql", "query"}

// RegistrarOptions configures a Registrar.
type RegistrarOptions struct {
	ShortCode       string
	ResponseType    string
	CallbackBaseURL string
}

// Registrar registers the C2B confirmation and validation URLs. It runs at
// deployment time and never on a payment's request path.
type Registrar struct {
	provider        URLRegisterer
	shortCode       string
	responseType    string
	callbackBaseURL string
	logger          log.FieldLogger
}

// NewRegistrar creates a new Registrar.
func NewRegistrar(provider URLRegisterer, options RegistrarOptions, logger log.FieldLogger) *Registrar {
	if options.ResponseType == "" {
		options.ResponseType = daraja.ResponseTypeCompleted
	}

	return &Registrar{
		provider:        provider,
		shortCode:       options.ShortCode,
		responseType:    options.ResponseType,
		callbackBaseURL: strings.TrimSuffix(options.CallbackBaseURL, "/"),
		logger:          logger.WithField("component", "registrar"),
	}
}

// RegisterURLs registers the given URLs, defaulting empty ones to this
// service's own webhook endpoints. Registering the same URLs again is safe.
func (r *Registrar) RegisterURLs(ctx context.Context, confirmationURL, validationURL string) (*model.RegistrationAck, error) {
	if confirmationURL == "" {
		confirmationURL = r.callbackBaseURL + ConfirmationPath
	}
	if validationURL == "" {
		validationURL = r.callbackBaseURL + ValidationPath
	}
	for _, u := range []string{confirmationURL, validationURL} {
		if err := validateWebhookURL(u); err != nil {
			return nil, &RegistrationError{Err: &ValidationError{Err: err}}
		}
	}

	logger := r.logger.WithFields(log.Fields{
		"short-code":       r.shortCode,
		"confirmation-url": confirmationURL,
		"validation-url":   validationURL,
	})

	response, err := r.provider.RegisterURL(ctx, &daraja.RegisterURLRequest{
		ShortCode:       r.shortCode,
		ResponseType:    r.responseType,
		ConfirmationURL: confirmationURL,
		ValidationURL:   validationURL,
	})
	if err != nil {
		logger.WithError(err).Error("Failed to register C2B URLs")
		return nil, &RegistrationError{Err: err}
	}

	logger.Info("Registered C2B URLs")

	return &model.RegistrationAck{
		ConfirmationURL:     confirmationURL,
		ValidationURL:       validationURL,
		OriginatorID:        response.OriginatorCoversationID,
		ResponseCode:        response.ResponseCode,
		ResponseDescription: response.ResponseDescription,
	}, nil
}

func validateWebhookURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errors.Wrapf(err, "invalid url %q", raw)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return errors.Errorf("url %q must use http or https", raw)
	}
	if u.Host == "" {
		return errors.Errorf("url %q has no host", raw)
	}
	lower := strings.ToLower(raw)
	for _, keyword := range forbiddenURLKeywords {
		if strings.Contains(lower, keyword) {
			return errors.Errorf("url %q contains the keyword %q which the provider refuses", raw, keyword)
		}
	}

	return nil
}
