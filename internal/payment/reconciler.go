// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package payment

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/mattermost/paybridge/internal/daraja"
	"github.com/mattermost/paybridge/internal/metrics"
	"github.com/mattermost/paybridge/model"
)

// Reconciler applies provider callbacks to stored transactions. It is the
// only writer of a transaction once it is pending and it never creates one.
type Reconciler struct {
	store  CallbackStore
	logger log.FieldLogger
}

// NewReconciler creates a new Reconciler.
func NewReconciler(store CallbackStore, logger log.FieldLogger) *Reconciler {
	return &Reconciler{
		store:  store,
		logger: logger.WithField("component", "reconciler"),
	}
}

// HandleCallback records and reconciles a single delivery. Every internal
// fault is absorbed into the logs and the audit trail, so the returned
// acknowledgement is always the accepted one.
func (r *Reconciler) HandleCallback(channel model.CallbackChannel, raw []byte) (model.Acknowledgement, model.CallbackOutcome) {
	outcome := r.reconcile(channel, raw)
	metrics.Callbacks.WithLabelValues(string(channel), string(outcome)).Inc()

	return model.AcceptedAcknowledgement, outcome
}

func (r *Reconciler) reconcile(channel model.CallbackChannel, raw []byte) model.CallbackOutcome {
	logger := r.logger.WithField("channel", channel)
	record := &model.CallbackRecord{
		Channel:    channel,
		RawPayload: raw,
	}

	switch channel {
	case model.ChannelC2BConfirmation, model.ChannelC2BValidation:
		return r.recordNotification(logger, record)
	}

	result, err := parseCallback(channel, raw)
	if err != nil {
		logger.WithError(err).Warn("Received malformed callback")
		r.storeRecord(logger, record)
		return model.CallbackOutcomeMalformed
	}
	record.CorrelationID = result.CorrelationID
	logger = logger.WithField("correlation-id", result.CorrelationID)

	// The lookup is read only so that the record can be stored with its
	// final Matched value before any transition happens.
	transaction, err := r.store.GetTransactionByCorrelationID(result.CorrelationID)
	if err != nil {
		logger.WithError(err).Error("Failed to look up transaction for callback")
		r.storeRecord(logger, record)
		return model.CallbackOutcomeStoreError
	}

	adopted := false
	if transaction == nil && isDisbursementChannel(channel) {
		transaction, err = r.unacknowledgedDisbursement(result.SecondaryID)
		if err != nil {
			logger.WithError(err).Error("Failed to look up disbursement by originator conversation id")
			r.storeRecord(logger, record)
			return model.CallbackOutcomeStoreError
		}
		adopted = transaction != nil
	}
	record.Matched = transaction != nil
	r.storeRecord(logger, record)

	if transaction == nil {
		logger.Warn("Received orphan callback for an unknown transaction")
		return model.CallbackOutcomeOrphan
	}
	logger = logger.WithField("transaction", transaction.ID)

	if !channelServesKind(channel, transaction.Kind) {
		logger.WithField("kind", transaction.Kind).Error("Anomaly: callback channel does not match transaction kind")
		return model.CallbackOutcomeConflict
	}

	target := resultFor(channel, result)
	if target == nil {
		logger.Debug("Callback carries no final result yet")
		return model.CallbackOutcomeIgnored
	}

	if transaction.IsTerminal() {
		return compareSettled(logger, transaction, target)
	}
	if adopted {
		logger.Info("Matched unacknowledged disbursement by originator conversation id")
		target.CorrelationID = result.CorrelationID
	}

	applied, err := r.store.FinalizeTransaction(transaction.ID, target)
	if err != nil {
		logger.WithError(err).Error("Failed to apply callback result")
		return model.CallbackOutcomeStoreError
	}
	if !applied {
		// A concurrent delivery settled the transaction first.
		current, err := r.store.GetTransaction(transaction.ID)
		if err != nil || current == nil {
			logger.WithError(err).Error("Failed to reload transaction after losing a concurrent update")
			return model.CallbackOutcomeStoreError
		}
		return compareSettled(logger, current, target)
	}

	logger.WithFields(log.Fields{
		"status":      target.Status,
		"result-code": formatResultCode(target.ResultCode),
	}).Info("Transaction settled")

	return model.CallbackOutcomeApplied
}

func (r *Reconciler) recordNotification(logger log.FieldLogger, record *model.CallbackRecord) model.CallbackOutcome {
	notification, err := daraja.ParseC2BNotification(record.RawPayload)
	if err != nil {
		logger.WithError(err).Warn("Received malformed C2B notification")
		r.storeRecord(logger, record)
		return model.CallbackOutcomeMalformed
	}

	record.CorrelationID = notification.TransID
	r.storeRecord(logger, record)
	logger.WithFields(log.Fields{
		"trans-id":    notification.TransID,
		"bill-ref":    notification.BillRefNumber,
		"short-code":  notification.BusinessShortCode,
		"trans-type":  notification.TransactionType,
		"trans-time":  notification.TransTime,
		"trans-value": notification.TransAmount,
	}).Info("Recorded C2B notification")

	return model.CallbackOutcomeRecorded
}

// storeRecord persists the audit record. A failure is logged and does not
// stop reconciliation: the transition is still attempted.
func (r *Reconciler) storeRecord(logger log.FieldLogger, record *model.CallbackRecord) {
	err := r.store.CreateCallbackRecord(record)
	if err != nil {
		logger.WithError(err).WithField("payload-bytes", len(record.RawPayload)).Error("Failed to store callback record")
	}
}

// unacknowledgedDisbursement finds the disbursement a B2C callback belongs
// to when its acknowledgement was never recorded. The originator
// conversation id is the transaction id sent with the request.
func (r *Reconciler) unacknowledgedDisbursement(originatorConversationID string) (*model.Transaction, error) {
	if originatorConversationID == "" {
		return nil, nil
	}
	transaction, err := r.store.GetTransaction(originatorConversationID)
	if err != nil || transaction == nil {
		return nil, err
	}
	if transaction.Kind != model.TransactionKindDisbursement ||
		transaction.Status != model.TransactionStatusPending ||
		transaction.HasCorrelationID() {
		return nil, nil
	}

	return transaction, nil
}

func isDisbursementChannel(channel model.CallbackChannel) bool {
	return channel == model.ChannelB2CResult || channel == model.ChannelB2CTimeout
}

func parseCallback(channel model.CallbackChannel, raw []byte) (*daraja.CallbackResult, error) {
	switch channel {
	case model.ChannelSTK:
		return daraja.ParseSTKCallback(raw)
	case model.ChannelStatusQuery:
		return daraja.ParseSTKQueryResult(raw)
	case model.ChannelB2CResult:
		return daraja.ParseB2CResult(raw)
	case model.ChannelB2CTimeout:
		return daraja.ParseB2CTimeout(raw)
	}
	return nil, &daraja.MalformedCallbackError{Reason: "unknown channel", Err: errors.Errorf("channel %q", channel)}
}

func channelServesKind(channel model.CallbackChannel, kind model.TransactionKind) bool {
	switch channel {
	case model.ChannelSTK, model.ChannelStatusQuery:
		return kind == model.TransactionKindPush
	case model.ChannelB2CResult, model.ChannelB2CTimeout:
		return kind == model.TransactionKindDisbursement
	}
	return false
}

// resultFor maps a parsed callback to the terminal result it implies, or nil
// when the callback carries no final result.
func resultFor(channel model.CallbackChannel, result *daraja.CallbackResult) *model.TransactionResult {
	if channel == model.ChannelB2CTimeout {
		return &model.TransactionResult{
			Status:     model.TransactionStatusTimedOut,
			ResultCode: result.ResultCode,
			ResultDesc: result.ResultDesc,
		}
	}
	if result.ResultCode == nil {
		return nil
	}
	if *result.ResultCode == daraja.SuccessResultCode {
		return &model.TransactionResult{
			Status:          model.TransactionStatusCompleted,
			ResultCode:      result.ResultCode,
			ResultDesc:      result.ResultDesc,
			ReceiptMetadata: result.Metadata,
		}
	}
	return &model.TransactionResult{
		Status:     model.TransactionStatusFailed,
		ResultCode: result.ResultCode,
		ResultDesc: result.ResultDesc,
	}
}

// compareSettled classifies a delivery for a transaction that is already
// terminal. The stored state is never changed.
func compareSettled(logger log.FieldLogger, transaction *model.Transaction, incoming *model.TransactionResult) model.CallbackOutcome {
	if incoming.Matches(transaction) {
		logger.WithField("status", transaction.Status).Debug("Duplicate callback for settled transaction")
		return model.CallbackOutcomeDuplicate
	}

	logger.WithFields(log.Fields{
		"stored-status":        transaction.Status,
		"stored-result-code":   formatResultCode(transaction.ResultCode),
		"incoming-status":      incoming.Status,
		"incoming-result-code": formatResultCode(incoming.ResultCode),
	}).Error("State conflict: callback disagrees with settled transaction; keeping stored result")

	return model.CallbackOutcomeConflict
}

func formatResultCode(code *int) interface{} {
	if code == nil {
		return "none"
	}
	return *code
}
