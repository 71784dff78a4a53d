// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package payment

import (
	"context"

	"github.com/mattermost/paybridge/internal/daraja"
	"github.com/mattermost/paybridge/model"
)

// InitiatorStore is the persistence used while a transaction is initiated.
type InitiatorStore interface {
	CreateTransaction(transaction *model.Transaction) (bool, error)
	GetTransactionByIdempotencyKey(key string) (*model.Transaction, error)
	AcknowledgeTransaction(id, checkoutRequestID, merchantRequestID string) error
	MarkTransactionPending(id string) error
	FailInitiatedTransaction(id string, resultCode *int, resultDesc string) error
	DeleteInitiatedTransaction(id string) error
}

// CallbackStore is the persistence used by reconciliation.
type CallbackStore interface {
	GetTransaction(id string) (*model.Transaction, error)
	GetTransactionByCorrelationID(correlationID string) (*model.Transaction, error)
	CreateCallbackRecord(record *model.CallbackRecord) error
	FinalizeTransaction(id string, result *model.TransactionResult) (bool, error)
}

// Provider performs the outbound payment calls.
type Provider interface {
	STKPush(ctx context.Context, request *daraja.STKPushRequest) (*daraja.STKPushResponse, error)
	STKPushQuery(ctx context.Context, request *daraja.STKQueryRequest) (*daraja.STKQueryResponse, error)
	B2CPayment(ctx context.Context, request *daraja.B2CRequest) (*daraja.B2CResponse, error)
}

// URLRegisterer registers C2B webhook URLs.
type URLRegisterer interface {
	RegisterURL(ctx context.Context, request *daraja.RegisterURLRequest) (*daraja.RegisterURLResponse, error)
}
