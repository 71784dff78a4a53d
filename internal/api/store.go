// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

//go:generate mockgen -destination=../mocks/api/api.go -package=mock_api github.com/mattermost/paybridge/internal/api Store,Payments,Callbacks,Registrar

package api

import (
	"context"

	"github.com/mattermost/paybridge/model"
)

// Store is the read side of the transaction store used by the query endpoints.
type Store interface {
	GetTransaction(id string) (*model.Transaction, error)
	GetTransactions(filter *model.TransactionFilter) ([]*model.Transaction, error)
	GetCallbackRecordsByCorrelationID(correlationID string) ([]*model.CallbackRecord, error)
}

// Payments initiates outbound payments.
type Payments interface {
	InitiatePush(ctx context.Context, request *model.PushPaymentRequest) (*model.Transaction, bool, error)
	InitiateDisbursement(ctx context.Context, request *model.DisbursementRequest) (*model.Transaction, bool, error)
}

// Callbacks reconciles provider deliveries.
type Callbacks interface {
	HandleCallback(channel model.CallbackChannel, raw []byte) (model.Acknowledgement, model.CallbackOutcome)
}

// Registrar registers C2B webhook URLs with the provider.
type Registrar interface {
	RegisterURLs(ctx context.Context, confirmationURL, validationURL string) (*model.RegistrationAck, error)
}
