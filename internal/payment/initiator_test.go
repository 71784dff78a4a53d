// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package payment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattermost/paybridge/internal/daraja"
	"github.com/mattermost/paybridge/internal/testlib"
	"github.com/mattermost/paybridge/model"
)

// fakeProvider records outbound calls and answers with the configured results.
type fakeProvider struct {
	lock         sync.Mutex
	pushes       []*daraja.STKPushRequest
	disbursals   []*daraja.B2CRequest
	queries      []*daraja.STKQueryRequest
	pushErr      error
	b2cErr       error
	queryErr     error
	queryResult  *daraja.STKQueryResponse
	nextCheckout int
}

func (p *fakeProvider) STKPush(ctx context.Context, request *daraja.STKPushRequest) (*daraja.STKPushResponse, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.pushes = append(p.pushes, request)
	if p.pushErr != nil {
		return nil, p.pushErr
	}
	p.nextCheckout++
	return &daraja.STKPushResponse{
		MerchantRequestID: "m-" + request.AccountReference,
		CheckoutRequestID: "ws_CO_" + request.AccountReference,
		ResponseCode:      "0",
	}, nil
}

func (p *fakeProvider) STKPushQuery(ctx context.Context, request *daraja.STKQueryRequest) (*daraja.STKQueryResponse, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.queries = append(p.queries, request)
	if p.queryErr != nil {
		return nil, p.queryErr
	}
	return p.queryResult, nil
}

func (p *fakeProvider) B2CPayment(ctx context.Context, request *daraja.B2CRequest) (*daraja.B2CResponse, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.disbursals = append(p.disbursals, request)
	if p.b2cErr != nil {
		return nil, p.b2cErr
	}
	return &daraja.B2CResponse{
		ConversationID:           "AG_" + request.OriginatorConversationID,
		OriginatorConversationID: request.OriginatorConversationID,
		ResponseCode:             "0",
	}, nil
}

func (p *fakeProvider) pushCount() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return len(p.pushes)
}

func newTestInitiator(t *testing.T, store InitiatorStore, provider Provider) *Initiator {
	return NewInitiator(store, provider, InitiatorOptions{
		ShortCode:          "174379",
		Passkey:            "passkey",
		B2CShortCode:       "600000",
		InitiatorName:      "apiop",
		SecurityCredential: "encrypted-credential",
		CallbackBaseURL:    "https://pay.example.com/",
		Now:                func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC) },
	}, testlib.MakeLogger(t))
}

func newPushRequest(key, reference string) *model.PushPaymentRequest {
	return &model.PushPaymentRequest{
		IdempotencyKey:   key,
		Phone:            "254708374149",
		Amount:           decimal.NewFromInt(10),
		AccountReference: reference,
		RequestedBy:      "user-1",
	}
}

func TestInitiatePush(t *testing.T) {
	t.Run("acknowledged", func(t *testing.T) {
		store := newMemStore()
		provider := &fakeProvider{}
		initiator := newTestInitiator(t, store, provider)

		transaction, existing, err := initiator.InitiatePush(context.Background(), newPushRequest("k1", "order1"))
		require.NoError(t, err)
		assert.False(t, existing)
		assert.Equal(t, model.TransactionStatusPending, transaction.Status)
		assert.Equal(t, "ws_CO_order1", transaction.CheckoutRequestID)
		assert.Equal(t, "m-order1", transaction.MerchantRequestID)

		stored, err := store.GetTransactionByCorrelationID("ws_CO_order1")
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, transaction.ID, stored.ID)
		assert.Equal(t, "user-1", stored.RequestedBy)
		assert.Equal(t, model.TransactionStatusPending, stored.Status)

		require.Len(t, provider.pushes, 1)
		sent := provider.pushes[0]
		assert.Equal(t, "20240301123000", sent.Timestamp)
		assert.Equal(t, daraja.Password("174379", "passkey", "20240301123000"), sent.Password)
		assert.Equal(t, int64(10), sent.Amount)
		assert.Equal(t, "https://pay.example.com/callback", sent.CallBackURL)
		assert.Equal(t, daraja.TransactionTypePayBill, sent.TransactionType)
		assert.Equal(t, "order1", sent.TransactionDesc)
	})

	t.Run("resubmission returns the existing transaction", func(t *testing.T) {
		store := newMemStore()
		provider := &fakeProvider{}
		initiator := newTestInitiator(t, store, provider)

		first, _, err := initiator.InitiatePush(context.Background(), newPushRequest("k1", "order1"))
		require.NoError(t, err)

		second, existing, err := initiator.InitiatePush(context.Background(), newPushRequest("k1", "order1"))
		require.NoError(t, err)
		assert.True(t, existing)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 1, provider.pushCount())
		assert.Equal(t, 1, store.transactionCount())
	})

	t.Run("racing double submit sends once", func(t *testing.T) {
		store := newMemStore()
		provider := &fakeProvider{}
		initiator := newTestInitiator(t, store, provider)

		var wg sync.WaitGroup
		ids := make(chan string, 10)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				transaction, _, err := initiator.InitiatePush(context.Background(), newPushRequest("k-race", "order1"))
				if assert.NoError(t, err) {
					ids <- transaction.ID
				}
			}()
		}
		wg.Wait()
		close(ids)

		unique := map[string]bool{}
		for id := range ids {
			unique[id] = true
		}
		assert.Len(t, unique, 1)
		assert.Equal(t, 1, provider.pushCount())
	})

	t.Run("invalid request", func(t *testing.T) {
		store := newMemStore()
		provider := &fakeProvider{}
		initiator := newTestInitiator(t, store, provider)

		request := newPushRequest("", "order1")
		_, _, err := initiator.InitiatePush(context.Background(), request)
		require.Error(t, err)
		var validationErr *ValidationError
		assert.True(t, errors.As(err, &validationErr))
		assert.Equal(t, 0, provider.pushCount())
		assert.Equal(t, 0, store.transactionCount())
	})

	t.Run("rejection fails the transaction", func(t *testing.T) {
		store := newMemStore()
		provider := &fakeProvider{pushErr: &daraja.RejectionError{StatusCode: 400, Code: "400.002.02", Message: "Bad Request - Invalid Amount"}}
		initiator := newTestInitiator(t, store, provider)

		transaction, existing, err := initiator.InitiatePush(context.Background(), newPushRequest("k1", "order1"))
		require.Error(t, err)
		assert.False(t, existing)
		var initiationErr *InitiationError
		require.True(t, errors.As(err, &initiationErr))
		assert.False(t, initiationErr.Ambiguous)
		require.NotNil(t, transaction)
		assert.Equal(t, model.TransactionStatusFailed, transaction.Status)

		stored, err := store.GetTransaction(transaction.ID)
		require.NoError(t, err)
		assert.Equal(t, model.TransactionStatusFailed, stored.Status)
		assert.Equal(t, "Bad Request - Invalid Amount", stored.ResultDesc)
		assert.Nil(t, stored.ResultCode)
		assert.Empty(t, stored.CheckoutRequestID)

		t.Run("resubmission after rejection does not resend", func(t *testing.T) {
			again, existing, err := initiator.InitiatePush(context.Background(), newPushRequest("k1", "order1"))
			require.NoError(t, err)
			assert.True(t, existing)
			assert.Equal(t, model.TransactionStatusFailed, again.Status)
			assert.Equal(t, 1, provider.pushCount())
		})
	})

	t.Run("numeric rejection code is kept", func(t *testing.T) {
		store := newMemStore()
		provider := &fakeProvider{pushErr: &daraja.RejectionError{StatusCode: 200, Code: "1", Message: "Insufficient balance"}}
		initiator := newTestInitiator(t, store, provider)

		transaction, _, err := initiator.InitiatePush(context.Background(), newPushRequest("k1", "order1"))
		require.Error(t, err)
		require.NotNil(t, transaction.ResultCode)
		assert.Equal(t, 1, *transaction.ResultCode)
	})

	t.Run("ambiguous outcome stays pending", func(t *testing.T) {
		store := newMemStore()
		provider := &fakeProvider{pushErr: errors.Wrap(context.DeadlineExceeded, "request to /mpesa/stkpush/v1/processrequest failed")}
		initiator := newTestInitiator(t, store, provider)

		transaction, _, err := initiator.InitiatePush(context.Background(), newPushRequest("k1", "order1"))
		require.Error(t, err)
		var initiationErr *InitiationError
		require.True(t, errors.As(err, &initiationErr))
		assert.True(t, initiationErr.Ambiguous)
		assert.Equal(t, transaction.ID, initiationErr.TransactionID)

		stored, err := store.GetTransaction(transaction.ID)
		require.NoError(t, err)
		assert.Equal(t, model.TransactionStatusPending, stored.Status)
		assert.Empty(t, stored.CheckoutRequestID)

		_, existing, err := initiator.InitiatePush(context.Background(), newPushRequest("k1", "order1"))
		require.NoError(t, err)
		assert.True(t, existing)
		assert.Equal(t, 1, provider.pushCount())
	})

	t.Run("lost acknowledgement stays pending", func(t *testing.T) {
		store := newMemStore()
		store.ackErr = errors.New("connection reset by peer")
		provider := &fakeProvider{}
		initiator := newTestInitiator(t, store, provider)

		transaction, _, err := initiator.InitiatePush(context.Background(), newPushRequest("k1", "order1"))
		require.Error(t, err)
		var initiationErr *InitiationError
		require.True(t, errors.As(err, &initiationErr))
		assert.True(t, initiationErr.Ambiguous)
		require.NotNil(t, transaction)
		assert.Equal(t, model.TransactionStatusPending, transaction.Status)

		stored, err := store.GetTransaction(transaction.ID)
		require.NoError(t, err)
		assert.Equal(t, model.TransactionStatusPending, stored.Status)
		assert.Empty(t, stored.CheckoutRequestID)

		store.ackErr = nil
		again, existing, err := initiator.InitiatePush(context.Background(), newPushRequest("k1", "order1"))
		require.NoError(t, err)
		assert.True(t, existing)
		assert.Equal(t, model.TransactionStatusPending, again.Status)
		assert.Equal(t, 1, provider.pushCount())
	})

	t.Run("token failure frees the key", func(t *testing.T) {
		store := newMemStore()
		provider := &fakeProvider{pushErr: &daraja.AuthError{StatusCode: 400, Err: errors.New("bad credentials")}}
		initiator := newTestInitiator(t, store, provider)

		transaction, _, err := initiator.InitiatePush(context.Background(), newPushRequest("k1", "order1"))
		require.Error(t, err)
		assert.Nil(t, transaction)
		assert.True(t, daraja.IsAuthError(err))
		assert.Equal(t, 0, store.transactionCount())

		provider.pushErr = nil
		transaction, existing, err := initiator.InitiatePush(context.Background(), newPushRequest("k1", "order1"))
		require.NoError(t, err)
		assert.False(t, existing)
		assert.Equal(t, model.TransactionStatusPending, transaction.Status)
	})
}

func TestInitiateDisbursement(t *testing.T) {
	store := newMemStore()
	provider := &fakeProvider{}
	initiator := newTestInitiator(t, store, provider)

	request := &model.DisbursementRequest{
		Phone:   "254708374149",
		Amount:  decimal.NewFromInt(250),
		Remarks: "refund",
	}
	transaction, existing, err := initiator.InitiateDisbursement(context.Background(), request)
	require.NoError(t, err)
	assert.False(t, existing)
	assert.NotEmpty(t, transaction.IdempotencyKey)
	assert.Equal(t, model.TransactionKindDisbursement, transaction.Kind)
	assert.Equal(t, model.TransactionStatusPending, transaction.Status)
	assert.Equal(t, "AG_"+transaction.ID, transaction.CheckoutRequestID)
	assert.Equal(t, transaction.ID, transaction.MerchantRequestID)

	require.Len(t, provider.disbursals, 1)
	sent := provider.disbursals[0]
	assert.Equal(t, "encrypted-credential", sent.SecurityCredential)
	assert.Equal(t, "apiop", sent.InitiatorName)
	assert.Equal(t, daraja.CommandBusinessPayment, sent.CommandID)
	assert.Equal(t, "600000", sent.PartyA)
	assert.Equal(t, "254708374149", sent.PartyB)
	assert.Equal(t, int64(250), sent.Amount)
	assert.Equal(t, "https://pay.example.com/b2c/result", sent.ResultURL)
	assert.Equal(t, "https://pay.example.com/b2c/queue", sent.QueueTimeOutURL)

	t.Run("same key does not pay twice", func(t *testing.T) {
		again, existing, err := initiator.InitiateDisbursement(context.Background(), &model.DisbursementRequest{
			IdempotencyKey: transaction.IdempotencyKey,
			Phone:          "254708374149",
			Amount:         decimal.NewFromInt(250),
			Remarks:        "refund",
		})
		require.NoError(t, err)
		assert.True(t, existing)
		assert.Equal(t, transaction.ID, again.ID)
		assert.Len(t, provider.disbursals, 1)
	})

	t.Run("invalid amount", func(t *testing.T) {
		_, _, err := initiator.InitiateDisbursement(context.Background(), &model.DisbursementRequest{
			Phone:   "254708374149",
			Amount:  decimal.RequireFromString("10.5"),
			Remarks: "refund",
		})
		require.Error(t, err)
		var validationErr *ValidationError
		assert.True(t, errors.As(err, &validationErr))
	})
}

func TestQueryPushStatus(t *testing.T) {
	provider := &fakeProvider{queryResult: &daraja.STKQueryResponse{CheckoutRequestID: "ws_CO_1", ResultCode: "0"}}
	initiator := newTestInitiator(t, newMemStore(), provider)

	response, err := initiator.QueryPushStatus(context.Background(), "ws_CO_1")
	require.NoError(t, err)
	assert.Equal(t, "0", response.ResultCode)
	require.Len(t, provider.queries, 1)
	assert.Equal(t, "ws_CO_1", provider.queries[0].CheckoutRequestID)
	assert.Equal(t, "174379", provider.queries[0].BusinessShortCode)
	assert.Equal(t, daraja.Password("174379", "passkey", provider.queries[0].Timestamp), provider.queries[0].Password)
}
