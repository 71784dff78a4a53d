// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package model_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattermost/paybridge/internal/api"
	mock_api "github.com/mattermost/paybridge/internal/mocks/api"
	"github.com/mattermost/paybridge/internal/payment"
	"github.com/mattermost/paybridge/internal/testlib"
	"github.com/mattermost/paybridge/model"
)

func TestClient(t *testing.T) {
	logger := testlib.MakeLogger(t)
	mockController := gomock.NewController(t)
	store := mock_api.NewMockStore(mockController)
	payments := mock_api.NewMockPayments(mockController)
	callbacks := mock_api.NewMockCallbacks(mockController)
	registrar := mock_api.NewMockRegistrar(mockController)

	router := mux.NewRouter()
	api.Register(router, &api.Context{
		Store:     store,
		Payments:  payments,
		Callbacks: callbacks,
		Registrar: registrar,
		Logger:    logger,
	})
	ts := httptest.NewServer(router)
	defer ts.Close()

	client := model.NewClient(ts.URL)
	client.SetPrincipal("user-1")

	t.Run("unknown transaction", func(t *testing.T) {
		store.EXPECT().
			GetTransaction("bogusID").
			Return(nil, nil).
			Times(1)

		transaction, err := client.GetTransaction("bogusID")
		assert.NoError(t, err)
		assert.Nil(t, transaction)
	})

	t.Run("fetch a transaction successfully", func(t *testing.T) {
		transactionID := model.NewID()
		store.EXPECT().
			GetTransaction(transactionID).
			Return(&model.Transaction{ID: transactionID, Status: model.TransactionStatusPending}, nil).
			Times(1)

		transaction, err := client.GetTransaction(transactionID)
		require.NoError(t, err)
		assert.Equal(t, transactionID, transaction.ID)
		assert.Equal(t, model.TransactionStatusPending, transaction.Status)
	})

	t.Run("server error", func(t *testing.T) {
		store.EXPECT().
			GetTransaction("broken").
			Return(nil, errors.New("problem talking to database")).
			Times(1)

		_, err := client.GetTransaction("broken")
		require.Error(t, err)
	})

	t.Run("list transactions", func(t *testing.T) {
		store.EXPECT().
			GetTransactions(&model.TransactionFilter{Status: model.TransactionStatusFailed, PerPage: 20, Page: 1}).
			Return([]*model.Transaction{{ID: "a"}, {ID: "b"}}, nil).
			Times(1)

		transactions, err := client.GetTransactions(&model.TransactionFilter{Status: model.TransactionStatusFailed, Page: 1, PerPage: 20})
		require.NoError(t, err)
		assert.Len(t, transactions, 2)
	})

	t.Run("transaction callbacks", func(t *testing.T) {
		store.EXPECT().
			GetTransaction("t1").
			Return(&model.Transaction{ID: "t1", CheckoutRequestID: "ws_CO_1"}, nil).
			Times(1)
		store.EXPECT().
			GetCallbackRecordsByCorrelationID("ws_CO_1").
			Return([]*model.CallbackRecord{{ID: "r1", Channel: model.ChannelSTK}}, nil).
			Times(1)

		records, err := client.GetTransactionCallbacks("t1")
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, model.ChannelSTK, records[0].Channel)
	})

	t.Run("create push payment", func(t *testing.T) {
		payments.EXPECT().
			InitiatePush(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, request *model.PushPaymentRequest) (*model.Transaction, bool, error) {
				assert.Equal(t, "user-1", request.RequestedBy)
				assert.True(t, decimal.NewFromInt(10).Equal(request.Amount))
				return &model.Transaction{ID: "t1", IdempotencyKey: request.IdempotencyKey, Status: model.TransactionStatusPending}, false, nil
			}).
			Times(1)

		response, err := client.CreatePushPayment(&model.PushPaymentRequest{
			IdempotencyKey:   "k1",
			Phone:            "254708374149",
			Amount:           decimal.NewFromInt(10),
			AccountReference: "INV1",
		})
		require.NoError(t, err)
		assert.False(t, response.Existing)
		assert.Equal(t, "k1", response.Transaction.IdempotencyKey)
	})

	t.Run("rejected disbursement", func(t *testing.T) {
		payments.EXPECT().
			InitiateDisbursement(gomock.Any(), gomock.Any()).
			Return(&model.Transaction{ID: "d1", Status: model.TransactionStatusFailed}, false, &payment.InitiationError{TransactionID: "d1", Err: errors.New("insufficient funds")}).
			Times(1)

		response, err := client.CreateDisbursement(&model.DisbursementRequest{
			Phone:   "254708374149",
			Amount:  decimal.NewFromInt(250),
			Remarks: "refund",
		})
		require.Error(t, err)
		require.NotNil(t, response)
		assert.Equal(t, model.TransactionStatusFailed, response.Transaction.Status)
	})

	t.Run("invalid push payment", func(t *testing.T) {
		payments.EXPECT().
			InitiatePush(gomock.Any(), gomock.Any()).
			Return(nil, false, &payment.ValidationError{Err: errors.New("must specify an account reference")}).
			Times(1)

		response, err := client.CreatePushPayment(&model.PushPaymentRequest{IdempotencyKey: "k2"})
		require.Error(t, err)
		assert.Nil(t, response)
		assert.Contains(t, err.Error(), "account reference")
	})

	t.Run("register urls", func(t *testing.T) {
		registrar.EXPECT().
			RegisterURLs(gomock.Any(), "https://hooks.example.com/c", "https://hooks.example.com/v").
			Return(&model.RegistrationAck{ResponseCode: "0", OriginatorID: "o-1"}, nil).
			Times(1)

		ack, err := client.RegisterURLs(&model.RegisterURLsRequest{
			ConfirmationURL: "https://hooks.example.com/c",
			ValidationURL:   "https://hooks.example.com/v",
		})
		require.NoError(t, err)
		assert.Equal(t, "o-1", ack.OriginatorID)
	})

	t.Run("deliver callback", func(t *testing.T) {
		callbacks.EXPECT().
			HandleCallback(model.ChannelB2CResult, []byte(`{"Result":{}}`)).
			Return(model.AcceptedAcknowledgement, model.CallbackOutcomeMalformed).
			Times(1)

		ack, err := client.DeliverCallback(payment.B2CResultPath, []byte(`{"Result":{}}`))
		require.NoError(t, err)
		assert.Equal(t, model.AcceptedAcknowledgement, *ack)
	})
}
