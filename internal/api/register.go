// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package api

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/mattermost/paybridge/internal/payment"
)

func handleRegisterURLs(c *Context, w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	ack, err := c.Registrar.RegisterURLs(r.Context(), query.Get("confirmation_url"), query.Get("validation_url"))
	if err != nil {
		var validationErr *payment.ValidationError
		if errors.As(err, &validationErr) {
			writeError(c, w, http.StatusBadRequest, err)
			return
		}
		c.Logger.WithError(err).Error("failed to register urls")
		writeError(c, w, http.StatusBadGateway, err)
		return
	}

	writeJSON(c, w, http.StatusOK, ack)
}
