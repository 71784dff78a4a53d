// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

// Package payment implements initiation, callback reconciliation and URL
// registration on top of the provider client and the transaction store.
package payment

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/mattermost/paybridge/internal/daraja"
	"github.com/mattermost/paybridge/internal/metrics"
	"github.com/mattermost/paybridge/model"
)

// Callback paths served by the API and advertised to the provider.
const (
	STKCallbackPath     = "/callback"
	B2CResultPath       = "/b2c/result"
	B2CQueueTimeoutPath = "/b2c/queue"
	ConfirmationPath    = "/confirmation"
	ValidationPath      = "/validation"
)

// InitiatorOptions configures an Initiator.
type InitiatorOptions struct {
	// ShortCode is the business short code push payments are paid to.
	ShortCode       string
	Passkey         string
	TransactionType string
	// B2CShortCode is the short code disbursements are paid from.
	B2CShortCode       string
	InitiatorName      string
	SecurityCredential string
	CommandID          string
	// CallbackBaseURL is the public URL the provider reaches this service on.
	CallbackBaseURL string
	Now             func() time.Time
}

// Initiator sends push payments and disbursements. It owns a transaction
// only while it is initiated; once pending, the Reconciler takes over.
type Initiator struct {
	store              InitiatorStore
	provider           Provider
	signer             *daraja.Signer
	transactionType    string
	b2cShortCode       string
	initiatorName      string
	securityCredential string
	commandID          string
	callbackBaseURL    string
	logger             log.FieldLogger
}

// NewInitiator creates a new Initiator.
func NewInitiator(store InitiatorStore, provider Provider, options InitiatorOptions, logger log.FieldLogger) *Initiator {
	if options.TransactionType == "" {
		options.TransactionType = daraja.TransactionTypePayBill
	}
	if options.CommandID == "" {
		options.CommandID = daraja.CommandBusinessPayment
	}
	if options.B2CShortCode == "" {
		options.B2CShortCode = options.ShortCode
	}

	return &Initiator{
		store:              store,
		provider:           provider,
		signer:             daraja.NewSigner(options.ShortCode, options.Passkey, options.Now),
		transactionType:    options.TransactionType,
		b2cShortCode:       options.B2CShortCode,
		initiatorName:      options.InitiatorName,
		securityCredential: options.SecurityCredential,
		commandID:          options.CommandID,
		callbackBaseURL:    strings.TrimSuffix(options.CallbackBaseURL, "/"),
		logger:             logger.WithField("component", "initiator"),
	}
}

// InitiatePush requests a push payment. The boolean result reports whether
// the idempotency key matched an earlier request, in which case the stored
// transaction is returned and nothing is sent to the provider.
func (i *Initiator) InitiatePush(ctx context.Context, request *model.PushPaymentRequest) (*model.Transaction, bool, error) {
	err := request.Validate()
	if err != nil {
		return nil, false, &ValidationError{Err: err}
	}

	transaction := &model.Transaction{
		IdempotencyKey:   request.IdempotencyKey,
		Kind:             model.TransactionKindPush,
		Amount:           request.Amount,
		PartyA:           request.Phone,
		PartyB:           i.signer.ShortCode(),
		AccountReference: request.AccountReference,
		Remarks:          request.Description,
		RequestedBy:      request.RequestedBy,
		Status:           model.TransactionStatusInitiated,
	}

	stored, existing, err := i.createIfAbsent(transaction)
	if err != nil || existing {
		return stored, existing, err
	}

	logger := i.logger.WithFields(log.Fields{
		"transaction":     transaction.ID,
		"idempotency-key": transaction.IdempotencyKey,
	})

	description := request.Description
	if description == "" {
		description = request.AccountReference
	}
	password, timestamp := i.signer.Sign()
	response, err := i.provider.STKPush(ctx, &daraja.STKPushRequest{
		BusinessShortCode: i.signer.ShortCode(),
		Password:          password,
		Timestamp:         timestamp,
		TransactionType:   i.transactionType,
		Amount:            request.Amount.IntPart(),
		PartyA:            request.Phone,
		PartyB:            i.signer.ShortCode(),
		PhoneNumber:       request.Phone,
		CallBackURL:       i.callbackBaseURL + STKCallbackPath,
		AccountReference:  request.AccountReference,
		TransactionDesc:   description,
	})
	if err != nil {
		return i.handleFailure(logger, transaction, err)
	}

	return i.acknowledge(logger, transaction, response.CheckoutRequestID, response.MerchantRequestID)
}

// InitiateDisbursement requests a payout to a customer. A missing
// idempotency key is generated.
func (i *Initiator) InitiateDisbursement(ctx context.Context, request *model.DisbursementRequest) (*model.Transaction, bool, error) {
	err := request.Validate()
	if err != nil {
		return nil, false, &ValidationError{Err: err}
	}
	if request.IdempotencyKey == "" {
		request.IdempotencyKey = model.NewID()
	}

	transaction := &model.Transaction{
		ID:             model.NewID(),
		IdempotencyKey: request.IdempotencyKey,
		Kind:           model.TransactionKindDisbursement,
		Amount:         request.Amount,
		PartyA:         i.b2cShortCode,
		PartyB:         request.Phone,
		Remarks:        request.Remarks,
		RequestedBy:    request.RequestedBy,
		Status:         model.TransactionStatusInitiated,
	}

	stored, existing, err := i.createIfAbsent(transaction)
	if err != nil || existing {
		return stored, existing, err
	}

	logger := i.logger.WithFields(log.Fields{
		"transaction":     transaction.ID,
		"idempotency-key": transaction.IdempotencyKey,
	})

	response, err := i.provider.B2CPayment(ctx, &daraja.B2CRequest{
		OriginatorConversationID: transaction.ID,
		InitiatorName:            i.initiatorName,
		SecurityCredential:       i.securityCredential,
		CommandID:                i.commandID,
		Amount:                   request.Amount.IntPart(),
		PartyA:                   i.b2cShortCode,
		PartyB:                   request.Phone,
		Remarks:                  request.Remarks,
		QueueTimeOutURL:          i.callbackBaseURL + B2CQueueTimeoutPath,
		ResultURL:                i.callbackBaseURL + B2CResultPath,
		Occasion:                 request.Occasion,
	})
	if err != nil {
		return i.handleFailure(logger, transaction, err)
	}

	return i.acknowledge(logger, transaction, response.ConversationID, response.OriginatorConversationID)
}

// QueryPushStatus asks the provider for the state of a push payment.
func (i *Initiator) QueryPushStatus(ctx context.Context, checkoutRequestID string) (*daraja.STKQueryResponse, error) {
	password, timestamp := i.signer.Sign()
	return i.provider.STKPushQuery(ctx, &daraja.STKQueryRequest{
		BusinessShortCode: i.signer.ShortCode(),
		Password:          password,
		Timestamp:         timestamp,
		CheckoutRequestID: checkoutRequestID,
	})
}

// createIfAbsent atomically records the transaction unless its idempotency
// key is already in use, in which case the stored transaction is returned.
func (i *Initiator) createIfAbsent(transaction *model.Transaction) (*model.Transaction, bool, error) {
	created, err := i.store.CreateTransaction(transaction)
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to record transaction")
	}
	if created {
		return transaction, false, nil
	}

	existing, err := i.store.GetTransactionByIdempotencyKey(transaction.IdempotencyKey)
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to fetch transaction by idempotency key")
	}
	if existing == nil {
		return nil, false, errors.Errorf("transaction with idempotency key %s disappeared; retry the request", transaction.IdempotencyKey)
	}

	logger := i.logger.WithFields(log.Fields{
		"transaction":     existing.ID,
		"idempotency-key": existing.IdempotencyKey,
	})
	if existing.Kind != transaction.Kind || !existing.Amount.Equal(transaction.Amount) ||
		existing.PartyA != transaction.PartyA || existing.PartyB != transaction.PartyB {
		logger.Warn("Idempotency key reused with different request details; returning the original transaction")
	} else {
		logger.Debug("Idempotency key matched an existing transaction")
	}
	metrics.Initiations.WithLabelValues(string(transaction.Kind), "existing").Inc()

	return existing, true, nil
}

func (i *Initiator) acknowledge(logger log.FieldLogger, transaction *model.Transaction, correlationID, secondaryID string) (*model.Transaction, bool, error) {
	err := i.store.AcknowledgeTransaction(transaction.ID, correlationID, secondaryID)
	if err != nil {
		err = errors.Wrap(err, "failed to record provider acknowledgement")
		metrics.Initiations.WithLabelValues(string(transaction.Kind), "ambiguous").Inc()
		logger.WithError(err).WithField("correlation-id", correlationID).Error("Provider accepted the request but the acknowledgement was lost; leaving transaction pending")

		markErr := i.store.MarkTransactionPending(transaction.ID)
		if markErr != nil {
			logger.WithError(markErr).Error("Failed to mark transaction as pending")
			return nil, false, err
		}
		transaction.Status = model.TransactionStatusPending

		return transaction, false, &InitiationError{TransactionID: transaction.ID, Ambiguous: true, Err: err}
	}

	transaction.CheckoutRequestID = correlationID
	transaction.MerchantRequestID = secondaryID
	transaction.Status = model.TransactionStatusPending
	metrics.Initiations.WithLabelValues(string(transaction.Kind), "pending").Inc()
	logger.WithField("correlation-id", correlationID).Info("Provider acknowledged transaction")

	return transaction, false, nil
}

// handleFailure settles an initiated transaction after the provider call
// failed. Token failures mean nothing was sent, so the record is removed and
// the key can be retried. Rejections fail the transaction. Anything else is
// ambiguous and leaves it pending for a callback or the sweep to resolve.
func (i *Initiator) handleFailure(logger log.FieldLogger, transaction *model.Transaction, cause error) (*model.Transaction, bool, error) {
	kind := string(transaction.Kind)

	if daraja.IsAuthError(cause) {
		metrics.Initiations.WithLabelValues(kind, "auth-error").Inc()
		logger.WithError(cause).Error("Could not obtain access token; discarding initiated transaction")
		err := i.store.DeleteInitiatedTransaction(transaction.ID)
		if err != nil {
			logger.WithError(err).Error("Failed to discard initiated transaction")
		}
		return nil, false, cause
	}

	var rejection *daraja.RejectionError
	if errors.As(cause, &rejection) {
		metrics.Initiations.WithLabelValues(kind, "rejected").Inc()
		logger.WithError(cause).Warn("Provider rejected transaction")

		var resultCode *int
		if code, err := strconv.Atoi(rejection.Code); err == nil {
			resultCode = &code
		}
		err := i.store.FailInitiatedTransaction(transaction.ID, resultCode, rejection.Message)
		if err != nil {
			logger.WithError(err).Error("Failed to mark transaction as failed")
			return nil, false, errors.Wrap(err, "failed to record provider rejection")
		}
		transaction.Status = model.TransactionStatusFailed
		transaction.ResultCode = resultCode
		transaction.ResultDesc = rejection.Message

		return transaction, false, &InitiationError{TransactionID: transaction.ID, Err: cause}
	}

	metrics.Initiations.WithLabelValues(kind, "ambiguous").Inc()
	logger.WithError(cause).Warn("Provider outcome unknown; leaving transaction pending")
	err := i.store.MarkTransactionPending(transaction.ID)
	if err != nil {
		logger.WithError(err).Error("Failed to mark transaction as pending")
		return nil, false, errors.Wrap(err, "failed to record ambiguous initiation")
	}
	transaction.Status = model.TransactionStatusPending

	return transaction, false, &InitiationError{TransactionID: transaction.ID, Ambiguous: true, Err: cause}
}
