// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package payment

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattermost/paybridge/internal/daraja"
	"github.com/mattermost/paybridge/internal/testlib"
)

type fakeRegisterer struct {
	requests []*daraja.RegisterURLRequest
	err      error
}

func (f *fakeRegisterer) RegisterURL(ctx context.Context, request *daraja.RegisterURLRequest) (*daraja.RegisterURLResponse, error) {
	f.requests = append(f.requests, request)
	if f.err != nil {
		return nil, f.err
	}
	return &daraja.RegisterURLResponse{
		OriginatorCoversationID: "7619-37765134-1",
		ResponseCode:            "0",
		ResponseDescription:     "success",
	}, nil
}

func TestRegisterURLs(t *testing.T) {
	newRegistrar := func(t *testing.T, provider URLRegisterer) *Registrar {
		return NewRegistrar(provider, RegistrarOptions{
			ShortCode:       "600638",
			CallbackBaseURL: "https://pay.example.com/",
		}, testlib.MakeLogger(t))
	}

	t.Run("defaults to own endpoints", func(t *testing.T) {
		provider := &fakeRegisterer{}
		registrar := newRegistrar(t, provider)

		ack, err := registrar.RegisterURLs(context.Background(), "", "")
		require.NoError(t, err)
		assert.Equal(t, "https://pay.example.com/confirmation", ack.ConfirmationURL)
		assert.Equal(t, "https://pay.example.com/validation", ack.ValidationURL)
		assert.Equal(t, "7619-37765134-1", ack.OriginatorID)
		assert.Equal(t, "0", ack.ResponseCode)

		require.Len(t, provider.requests, 1)
		assert.Equal(t, "600638", provider.requests[0].ShortCode)
		assert.Equal(t, daraja.ResponseTypeCompleted, provider.requests[0].ResponseType)
	})

	t.Run("repeat registration", func(t *testing.T) {
		provider := &fakeRegisterer{}
		registrar := newRegistrar(t, provider)

		for i := 0; i < 2; i++ {
			_, err := registrar.RegisterURLs(context.Background(), "https://hooks.example.com/c", "https://hooks.example.com/v")
			require.NoError(t, err)
		}
		assert.Len(t, provider.requests, 2)
		assert.Equal(t, provider.requests[0], provider.requests[1])
	})

	t.Run("invalid urls are refused locally", func(t *testing.T) {
		for _, u := range []string{
			"ftp://hooks.example.com/c",
			"https:///c",
			"https://hooks.example.com/mpesa/confirm",
			"https://safaricom.example.com/c",
			"https://hooks.example.com/c?query=1",
			"https://hooks.example.com/M-PESA",
			"://bad",
		} {
			t.Run(u, func(t *testing.T) {
				provider := &fakeRegisterer{}
				registrar := newRegistrar(t, provider)

				_, err := registrar.RegisterURLs(context.Background(), u, "")
				require.Error(t, err)
				var registrationErr *RegistrationError
				assert.True(t, errors.As(err, &registrationErr))
				var validationErr *ValidationError
				assert.True(t, errors.As(err, &validationErr))
				assert.Empty(t, provider.requests)
			})
		}
	})

	t.Run("provider rejection", func(t *testing.T) {
		provider := &fakeRegisterer{err: &daraja.RejectionError{StatusCode: 400, Code: "500.003.1001", Message: "Urls are already registered"}}
		registrar := newRegistrar(t, provider)

		_, err := registrar.RegisterURLs(context.Background(), "", "")
		require.Error(t, err)
		var registrationErr *RegistrationError
		require.True(t, errors.As(err, &registrationErr))
		assert.True(t, daraja.IsRejection(err))
		var validationErr *ValidationError
		assert.False(t, errors.As(err, &validationErr))
	})
}
