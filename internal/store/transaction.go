// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package store

import (
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/mattermost/paybridge/model"
)

const transactionsTableName = "Transactions"

var transactionSelect sq.SelectBuilder

func init() {
	transactionSelect = sq.
		Select(
			"ID",
			"IdempotencyKey",
			"CheckoutRequestID",
			"MerchantRequestID",
			"Kind",
			"Amount",
			"PartyA",
			"PartyB",
			"AccountReference",
			"Remarks",
			"RequestedBy",
			"Status",
			"ResultCode",
			"ResultDesc",
			"ReceiptMetadata",
			"CreateAt",
			"UpdateAt",
		).
		From(transactionsTableName)
}

func nonTerminalStatuses() []string {
	statuses := make([]string, 0, len(model.NonTerminalStatuses))
	for _, status := range model.NonTerminalStatuses {
		statuses = append(statuses, string(status))
	}
	return statuses
}

// CreateTransaction inserts the transaction unless one with the same
// idempotency key already exists. It reports whether a row was inserted.
func (sqlStore *SQLStore) CreateTransaction(transaction *model.Transaction) (bool, error) {
	if transaction.ID == "" {
		transaction.ID = model.NewID()
	}
	if transaction.Status == "" {
		transaction.Status = model.TransactionStatusInitiated
	}
	transaction.CreateAt = model.GetMillis()
	transaction.UpdateAt = transaction.CreateAt

	rows, err := sqlStore.execBuilderAffected(sqlStore.db, sq.
		Insert(transactionsTableName).
		SetMap(map[string]interface{}{
			"ID":                transaction.ID,
			"IdempotencyKey":    transaction.IdempotencyKey,
			"CheckoutRequestID": transaction.CheckoutRequestID,
			"MerchantRequestID": transaction.MerchantRequestID,
			"Kind":              transaction.Kind,
			"Amount":            transaction.Amount,
			"PartyA":            transaction.PartyA,
			"PartyB":            transaction.PartyB,
			"AccountReference":  transaction.AccountReference,
			"Remarks":           transaction.Remarks,
			"RequestedBy":       transaction.RequestedBy,
			"Status":            transaction.Status,
			"ResultCode":        transaction.ResultCode,
			"ResultDesc":        transaction.ResultDesc,
			"ReceiptMetadata":   transaction.ReceiptMetadata,
			"CreateAt":          transaction.CreateAt,
			"UpdateAt":          transaction.UpdateAt,
		}).
		Suffix("ON CONFLICT (IdempotencyKey) DO NOTHING"),
	)
	if err != nil {
		return false, errors.Wrap(err, "failed to create transaction")
	}

	return rows == 1, nil
}

// GetTransaction fetches the given transaction by id.
func (sqlStore *SQLStore) GetTransaction(id string) (*model.Transaction, error) {
	return sqlStore.getTransactionByField("ID", id)
}

// GetTransactionByIdempotencyKey fetches the transaction created for the given key.
func (sqlStore *SQLStore) GetTransactionByIdempotencyKey(key string) (*model.Transaction, error) {
	return sqlStore.getTransactionByField("IdempotencyKey", key)
}

// GetTransactionByCorrelationID fetches the transaction the provider assigned
// the given CheckoutRequestID or ConversationID.
func (sqlStore *SQLStore) GetTransactionByCorrelationID(correlationID string) (*model.Transaction, error) {
	if correlationID == "" {
		return nil, nil
	}
	return sqlStore.getTransactionByField("CheckoutRequestID", correlationID)
}

func (sqlStore *SQLStore) getTransactionByField(field, value string) (*model.Transaction, error) {
	var transaction model.Transaction
	err := sqlStore.getBuilder(sqlStore.db, &transaction,
		transactionSelect.Where(sq.Eq{field: value}),
	)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, errors.Wrapf(err, "failed to get transaction by %s", field)
	}

	return &transaction, nil
}

// GetTransactions fetches the transactions matching the filter, newest first.
func (sqlStore *SQLStore) GetTransactions(filter *model.TransactionFilter) ([]*model.Transaction, error) {
	query := transactionSelect.OrderBy("CreateAt DESC", "ID")
	if filter != nil {
		if filter.Status != "" {
			query = query.Where(sq.Eq{"Status": string(filter.Status)})
		}
		if filter.Kind != "" {
			query = query.Where(sq.Eq{"Kind": string(filter.Kind)})
		}
		if filter.PerPage != model.AllPerPage {
			query = query.
				Limit(uint64(filter.PerPage)).
				Offset(uint64(filter.Page * filter.PerPage))
		}
	}

	var transactions []*model.Transaction
	err := sqlStore.selectBuilder(sqlStore.db, &transactions, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query for transactions")
	}

	return transactions, nil
}

// GetStalePendingTransactions returns pending transactions last updated
// before the filter cutoff, ordered by UpdateAt and then ID so that a listing
// can be resumed after its last row.
func (sqlStore *SQLStore) GetStalePendingTransactions(filter *model.StalePendingFilter) ([]*model.Transaction, error) {
	builder := transactionSelect.
		Where(sq.Eq{"Status": string(model.TransactionStatusPending)}).
		Where(sq.Lt{"UpdateAt": filter.UpdatedBefore})

	if filter.Queryable {
		builder = builder.
			Where(sq.Eq{"Kind": string(model.TransactionKindPush)}).
			Where(sq.NotEq{"CheckoutRequestID": ""})
	} else {
		builder = builder.Where(sq.Or{
			sq.NotEq{"Kind": string(model.TransactionKindPush)},
			sq.Eq{"CheckoutRequestID": ""},
		})
	}

	if filter.AfterID != "" {
		builder = builder.Where(sq.Or{
			sq.Gt{"UpdateAt": filter.AfterUpdateAt},
			sq.And{
				sq.Eq{"UpdateAt": filter.AfterUpdateAt},
				sq.Gt{"ID": filter.AfterID},
			},
		})
	}

	var transactions []*model.Transaction
	err := sqlStore.selectBuilder(sqlStore.db, &transactions, builder.
		OrderBy("UpdateAt ASC", "ID ASC").
		Limit(uint64(filter.Limit)),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query for stale pending transactions")
	}

	return transactions, nil
}

// updateInitiated applies set to a transaction that is still initiated.
func (sqlStore *SQLStore) updateInitiated(id string, set map[string]interface{}) error {
	set["UpdateAt"] = model.GetMillis()
	rows, err := sqlStore.execBuilderAffected(sqlStore.db, sq.
		Update(transactionsTableName).
		SetMap(set).
		Where(sq.Eq{
			"ID":     id,
			"Status": string(model.TransactionStatusInitiated),
		}),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to update transaction %s", id)
	}
	if rows != 1 {
		return errors.Errorf("transaction %s is no longer initiated", id)
	}

	return nil
}

// AcknowledgeTransaction records the provider correlation ids and moves the
// transaction from initiated to pending.
func (sqlStore *SQLStore) AcknowledgeTransaction(id, checkoutRequestID, merchantRequestID string) error {
	return sqlStore.updateInitiated(id, map[string]interface{}{
		"CheckoutRequestID": checkoutRequestID,
		"MerchantRequestID": merchantRequestID,
		"Status":            string(model.TransactionStatusPending),
	})
}

// MarkTransactionPending moves an initiated transaction whose acknowledgement
// never arrived to pending, without a correlation id.
func (sqlStore *SQLStore) MarkTransactionPending(id string) error {
	return sqlStore.updateInitiated(id, map[string]interface{}{
		"Status": string(model.TransactionStatusPending),
	})
}

// FailInitiatedTransaction marks an initiated transaction the provider
// rejected as failed.
func (sqlStore *SQLStore) FailInitiatedTransaction(id string, resultCode *int, resultDesc string) error {
	return sqlStore.updateInitiated(id, map[string]interface{}{
		"Status":     string(model.TransactionStatusFailed),
		"ResultCode": resultCode,
		"ResultDesc": resultDesc,
	})
}

// DeleteInitiatedTransaction removes an initiated transaction for which no
// request ever reached the provider, freeing its idempotency key.
func (sqlStore *SQLStore) DeleteInitiatedTransaction(id string) error {
	_, err := sqlStore.execBuilder(sqlStore.db, sq.
		Delete(transactionsTableName).
		Where(sq.Eq{
			"ID":     id,
			"Status": string(model.TransactionStatusInitiated),
		}),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to delete transaction %s", id)
	}

	return nil
}

// FinalizeTransaction applies a terminal result to the transaction only if
// it is not terminal yet. A result carrying a correlation id also requires
// the transaction to have none and records it. It reports whether the update
// was applied; false means another delivery settled the transaction first.
func (sqlStore *SQLStore) FinalizeTransaction(id string, result *model.TransactionResult) (bool, error) {
	if !result.Status.IsTerminal() {
		return false, errors.Errorf("status %s is not terminal", result.Status)
	}

	set := map[string]interface{}{
		"Status":          string(result.Status),
		"ResultCode":      result.ResultCode,
		"ResultDesc":      result.ResultDesc,
		"ReceiptMetadata": result.ReceiptMetadata,
		"UpdateAt":        model.GetMillis(),
	}
	where := sq.Eq{
		"ID":     id,
		"Status": nonTerminalStatuses(),
	}
	if result.CorrelationID != "" {
		set["CheckoutRequestID"] = result.CorrelationID
		where["CheckoutRequestID"] = ""
	}

	rows, err := sqlStore.execBuilderAffected(sqlStore.db, sq.
		Update(transactionsTableName).
		SetMap(set).
		Where(where),
	)
	if err != nil {
		return false, errors.Wrapf(err, "failed to finalize transaction %s", id)
	}

	return rows == 1, nil
}
