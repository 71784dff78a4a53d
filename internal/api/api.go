// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

// Package api exposes the payment, callback and query endpoints over HTTP.
package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mattermost/paybridge/internal/payment"
	"github.com/mattermost/paybridge/model"
)

// Register adds the API routes to rootRouter.
func Register(rootRouter *mux.Router, context *Context) {
	addContext := func(handler contextHandlerFunc) *contextHandler {
		return newContextHandler(context, handler)
	}

	rootRouter.Handle("/stkpush", addContext(handleInitiatePush)).Methods("POST")
	rootRouter.Handle("/b2curlrequest", addContext(handleInitiateDisbursement)).Methods("POST")
	rootRouter.Handle("/registerurl", addContext(handleRegisterURLs)).Methods("GET")

	rootRouter.Handle(payment.STKCallbackPath, addContext(handleCallback(model.ChannelSTK))).Methods("POST")
	rootRouter.Handle(payment.B2CResultPath, addContext(handleCallback(model.ChannelB2CResult))).Methods("POST")
	rootRouter.Handle(payment.B2CQueueTimeoutPath, addContext(handleCallback(model.ChannelB2CTimeout))).Methods("POST")
	rootRouter.Handle(payment.ConfirmationPath, addContext(handleCallback(model.ChannelC2BConfirmation))).Methods("GET", "POST")
	rootRouter.Handle(payment.ValidationPath, addContext(handleCallback(model.ChannelC2BValidation))).Methods("GET", "POST")

	rootRouter.Handle("/transaction/{id}", addContext(handleGetTransaction)).Methods("GET")
	rootRouter.Handle("/transaction/{id}/callbacks", addContext(handleGetTransactionCallbacks)).Methods("GET")
	rootRouter.Handle("/transactions", addContext(handleGetTransactions)).Methods("GET")

	rootRouter.Handle("/metrics", promhttp.Handler()).Methods("GET")
}

// outputJSON is a helper method to write the given data as JSON to the given writer.
//
// It only logs an error if one occurs, rather than returning, since there is no point in trying
// to send a new status code back to the client once the body has started sending.
func outputJSON(c *Context, w io.Writer, data interface{}) {
	encoder := json.NewEncoder(w)
	err := encoder.Encode(data)
	if err != nil {
		c.Logger.WithError(err).Error("failed to encode result")
	}
}

func writeJSON(c *Context, w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	outputJSON(c, w, data)
}

func writeError(c *Context, w http.ResponseWriter, statusCode int, err error) {
	writeJSON(c, w, statusCode, &model.ErrorResponse{Error: err.Error()})
}
