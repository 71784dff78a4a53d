// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package model

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// TransactionKind distinguishes the outbound flow that created a Transaction.
type TransactionKind string

const (
	// TransactionKindPush is a customer prompted push payment (STK push).
	TransactionKindPush TransactionKind = "push-payment"
	// TransactionKindDisbursement is a business to customer payout (B2C).
	TransactionKindDisbursement TransactionKind = "disbursement"
)

// TransactionStatus is the lifecycle state of a Transaction.
type TransactionStatus string

const (
	// TransactionStatusInitiated is a transaction recorded locally that has
	// not yet been acknowledged by the provider.
	TransactionStatusInitiated TransactionStatus = "initiated"
	// TransactionStatusPending is a transaction waiting on its callback.
	TransactionStatusPending TransactionStatus = "pending"
	// TransactionStatusCompleted is a transaction the provider settled successfully.
	TransactionStatusCompleted TransactionStatus = "completed"
	// TransactionStatusFailed is a transaction rejected at initiation or by its callback.
	TransactionStatusFailed TransactionStatus = "failed"
	// TransactionStatusTimedOut is a disbursement that never reached final processing.
	TransactionStatusTimedOut TransactionStatus = "timed-out"
)

// NonTerminalStatuses are the statuses from which a transaction may still move.
var NonTerminalStatuses = []TransactionStatus{
	TransactionStatusInitiated,
	TransactionStatusPending,
}

// IsTerminal reports whether no further transition is possible from s.
func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case TransactionStatusCompleted, TransactionStatusFailed, TransactionStatusTimedOut:
		return true
	}
	return false
}

// IsValid reports whether s is a known status.
func (s TransactionStatus) IsValid() bool {
	switch s {
	case TransactionStatusInitiated, TransactionStatusPending,
		TransactionStatusCompleted, TransactionStatusFailed, TransactionStatusTimedOut:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next respects the
// monotonic lifecycle initiated -> pending -> {completed|failed|timed-out}.
// A transaction may also fail directly from initiated when the provider
// rejects the request outright.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	switch s {
	case TransactionStatusInitiated:
		return next == TransactionStatusPending || next.IsTerminal()
	case TransactionStatusPending:
		return next.IsTerminal()
	}
	return false
}

// Metadata holds receipt details reported by the provider, captured verbatim.
type Metadata map[string]interface{}

// Value implements driver.Valuer so that Metadata is stored as JSON.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal metadata")
	}
	return string(b), nil
}

// Scan implements sql.Scanner, preserving numbers as json.Number.
func (m *Metadata) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.Errorf("unsupported metadata column type %T", src)
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var out Metadata
	if err := decoder.Decode(&out); err != nil {
		return errors.Wrap(err, "failed to unmarshal metadata")
	}
	*m = out
	return nil
}

// Transaction is a single payment attempt against the provider and the
// lifecycle state it has reached.
type Transaction struct {
	ID             string
	IdempotencyKey string
	// CheckoutRequestID is the provider correlation id. It stays empty until
	// the provider acknowledges the request. For disbursements it holds the
	// ConversationID.
	CheckoutRequestID string
	// MerchantRequestID holds the OriginatorConversationID for disbursements.
	MerchantRequestID string
	Kind              TransactionKind
	Amount            decimal.Decimal
	PartyA            string
	PartyB            string
	AccountReference  string
	Remarks           string
	RequestedBy       string
	Status            TransactionStatus
	ResultCode        *int
	ResultDesc        string
	ReceiptMetadata   Metadata
	CreateAt          int64
	UpdateAt          int64
}

// IsTerminal reports whether the transaction has reached a final state.
func (t *Transaction) IsTerminal() bool {
	return t.Status.IsTerminal()
}

// HasCorrelationID reports whether the provider acknowledged the transaction.
func (t *Transaction) HasCorrelationID() bool {
	return t.CheckoutRequestID != ""
}

// IsQueryable reports whether the provider status of the transaction can be
// queried, which needs a push payment with a correlation id.
func (t *Transaction) IsQueryable() bool {
	return t.Kind == TransactionKindPush && t.HasCorrelationID()
}

// TransactionResult is the terminal outcome applied to a transaction.
type TransactionResult struct {
	Status          TransactionStatus
	ResultCode      *int
	ResultDesc      string
	ReceiptMetadata Metadata
	// CorrelationID, when set, is recorded on a transaction that was never
	// acknowledged. The result then only applies while the transaction has no
	// correlation id.
	CorrelationID string
}

// Matches reports whether the stored terminal state of t agrees with r on
// status and result code.
func (r *TransactionResult) Matches(t *Transaction) bool {
	if t.Status != r.Status {
		return false
	}
	return equalResultCodes(t.ResultCode, r.ResultCode)
}

func equalResultCodes(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// IntPtr returns a pointer to the given int.
func IntPtr(i int) *int {
	return &i
}

// TransactionFilter describes the parameters used to constrain a set of transactions.
type TransactionFilter struct {
	Status  TransactionStatus
	Kind    TransactionKind
	Page    int
	PerPage int
}

// StalePendingFilter selects pending transactions for the pending sweep.
type StalePendingFilter struct {
	UpdatedBefore int64
	// Queryable selects push payments carrying a correlation id when true
	// and every other pending transaction when false.
	Queryable bool
	// AfterUpdateAt and AfterID resume a listing after the last row returned.
	AfterUpdateAt int64
	AfterID       string
	Limit         int
}

// AllPerPage signals that all transactions should be returned.
const AllPerPage = -1

// NewTransactionFromReader will create a Transaction from an io.Reader.
func NewTransactionFromReader(reader io.Reader) (*Transaction, error) {
	var transaction Transaction
	decoder := json.NewDecoder(reader)
	decoder.UseNumber()
	err := decoder.Decode(&transaction)
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "failed to decode transaction")
	}

	return &transaction, nil
}

// NewTransactionListFromReader will create a list of Transactions from an io.Reader.
func NewTransactionListFromReader(reader io.Reader) ([]*Transaction, error) {
	transactions := []*Transaction{}
	decoder := json.NewDecoder(reader)
	decoder.UseNumber()
	err := decoder.Decode(&transactions)
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "failed to decode transaction list")
	}

	return transactions, nil
}
