// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package api

import (
	"net/http"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattermost/paybridge/internal/daraja"
	"github.com/mattermost/paybridge/internal/payment"
	"github.com/mattermost/paybridge/model"
)

func TestRegisterURLs(t *testing.T) {
	api := newTestAPI(t)

	t.Run("registered", func(t *testing.T) {
		api.registrar.EXPECT().
			RegisterURLs(gomock.Any(), "https://hooks.example.com/c", "").
			Return(&model.RegistrationAck{ConfirmationURL: "https://hooks.example.com/c", ResponseCode: "0"}, nil).
			Times(1)

		resp, err := http.Get(api.url + "/registerurl?confirmation_url=https%3A%2F%2Fhooks.example.com%2Fc")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		ack, err := model.NewRegistrationAckFromReader(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "0", ack.ResponseCode)
	})

	t.Run("invalid url", func(t *testing.T) {
		api.registrar.EXPECT().
			RegisterURLs(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, &payment.RegistrationError{Err: &payment.ValidationError{Err: errors.New("contains mpesa")}}).
			Times(1)

		resp, err := http.Get(api.url + "/registerurl")
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("provider failure", func(t *testing.T) {
		api.registrar.EXPECT().
			RegisterURLs(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, &payment.RegistrationError{Err: &daraja.RejectionError{StatusCode: 400, Message: "already registered"}}).
			Times(1)

		resp, err := http.Get(api.url + "/registerurl")
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	})
}
