// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package api

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/mattermost/paybridge/internal/daraja"
	"github.com/mattermost/paybridge/internal/payment"
	"github.com/mattermost/paybridge/model"
)

func handleInitiatePush(c *Context, w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	request, err := model.NewPushPaymentRequestFromReader(r.Body)
	if err != nil {
		c.Logger.WithError(err).Warn("failed to unmarshal push payment request")
		writeError(c, w, http.StatusBadRequest, err)
		return
	}
	request.RequestedBy = r.Header.Get(model.PrincipalHeader)

	transaction, existing, err := c.Payments.InitiatePush(r.Context(), request)
	writeInitiation(c, w, transaction, existing, err)
}

func handleInitiateDisbursement(c *Context, w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	request, err := model.NewDisbursementRequestFromReader(r.Body)
	if err != nil {
		c.Logger.WithError(err).Warn("failed to unmarshal disbursement request")
		writeError(c, w, http.StatusBadRequest, err)
		return
	}
	request.RequestedBy = r.Header.Get(model.PrincipalHeader)

	transaction, existing, err := c.Payments.InitiateDisbursement(r.Context(), request)
	writeInitiation(c, w, transaction, existing, err)
}

// writeInitiation maps the result of an initiation to a response. New
// transactions are accepted, resubmissions return the stored transaction
// and provider failures carry the recorded transaction alongside the error.
func writeInitiation(c *Context, w http.ResponseWriter, transaction *model.Transaction, existing bool, err error) {
	if err == nil {
		statusCode := http.StatusAccepted
		if existing {
			statusCode = http.StatusOK
		}
		writeJSON(c, w, statusCode, &model.InitiationResponse{Transaction: transaction, Existing: existing})
		return
	}

	var validationErr *payment.ValidationError
	var initiationErr *payment.InitiationError
	switch {
	case errors.As(err, &validationErr):
		writeError(c, w, http.StatusBadRequest, err)
	case daraja.IsAuthError(err):
		c.Logger.WithError(err).Error("provider authentication failed")
		writeError(c, w, http.StatusServiceUnavailable, errors.New("payment provider is unavailable"))
	case errors.As(err, &initiationErr):
		writeJSON(c, w, http.StatusBadGateway, &model.InitiationResponse{Transaction: transaction, Error: err.Error()})
	default:
		c.Logger.WithError(err).Error("failed to initiate transaction")
		writeError(c, w, http.StatusInternalServerError, errors.New("internal error"))
	}
}
