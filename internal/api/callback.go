// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package api

import (
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/mattermost/paybridge/model"
)

// maxCallbackBytes bounds provider payloads read from a single delivery.
const maxCallbackBytes = 1 << 20

// handleCallback serves a provider webhook. The provider retries anything
// other than an accepted acknowledgement, so the answer never depends on
// what reconciliation made of the payload.
func handleCallback(channel model.CallbackChannel) contextHandlerFunc {
	return func(c *Context, w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBytes+1))
		if err != nil {
			c.Logger.WithError(err).Warn("failed to read callback body")
		}
		if len(raw) > maxCallbackBytes {
			raw = raw[:maxCallbackBytes]
			c.Logger.WithFields(logrus.Fields{
				"channel":       channel,
				"max-bytes":     maxCallbackBytes,
				"truncated":     true,
				"content-bytes": r.ContentLength,
			}).Warn("Callback body exceeds the size limit; only its first part is recorded")
		}

		ack, outcome := c.Callbacks.HandleCallback(channel, raw)
		c.Logger.WithFields(logrus.Fields{
			"channel": channel,
			"outcome": outcome,
		}).Debug("Handled callback")

		writeJSON(c, w, http.StatusOK, &ack)
	}
}
