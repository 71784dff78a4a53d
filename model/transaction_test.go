// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package model_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattermost/paybridge/model"
)

func TestTransactionStatusTransitions(t *testing.T) {
	var testCases = []struct {
		from    model.TransactionStatus
		to      model.TransactionStatus
		allowed bool
	}{
		{model.TransactionStatusInitiated, model.TransactionStatusPending, true},
		{model.TransactionStatusInitiated, model.TransactionStatusFailed, true},
		{model.TransactionStatusInitiated, model.TransactionStatusInitiated, false},
		{model.TransactionStatusPending, model.TransactionStatusCompleted, true},
		{model.TransactionStatusPending, model.TransactionStatusFailed, true},
		{model.TransactionStatusPending, model.TransactionStatusTimedOut, true},
		{model.TransactionStatusPending, model.TransactionStatusInitiated, false},
		{model.TransactionStatusPending, model.TransactionStatusPending, false},
		{model.TransactionStatusCompleted, model.TransactionStatusFailed, false},
		{model.TransactionStatusFailed, model.TransactionStatusCompleted, false},
		{model.TransactionStatusTimedOut, model.TransactionStatusCompleted, false},
	}

	for _, tc := range testCases {
		t.Run(string(tc.from)+" to "+string(tc.to), func(t *testing.T) {
			assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to))
		})
	}

	for _, status := range model.NonTerminalStatuses {
		assert.False(t, status.IsTerminal())
	}
	assert.False(t, model.TransactionStatus("settled").IsValid())
}

func TestTransactionResultMatches(t *testing.T) {
	transaction := &model.Transaction{Status: model.TransactionStatusFailed, ResultCode: model.IntPtr(1032)}

	assert.True(t, (&model.TransactionResult{Status: model.TransactionStatusFailed, ResultCode: model.IntPtr(1032)}).Matches(transaction))
	assert.False(t, (&model.TransactionResult{Status: model.TransactionStatusFailed, ResultCode: model.IntPtr(1)}).Matches(transaction))
	assert.False(t, (&model.TransactionResult{Status: model.TransactionStatusFailed}).Matches(transaction))
	assert.False(t, (&model.TransactionResult{Status: model.TransactionStatusCompleted, ResultCode: model.IntPtr(1032)}).Matches(transaction))

	timedOut := &model.Transaction{Status: model.TransactionStatusTimedOut}
	assert.True(t, (&model.TransactionResult{Status: model.TransactionStatusTimedOut}).Matches(timedOut))
}

func TestMetadata(t *testing.T) {
	t.Run("value and scan keep numbers verbatim", func(t *testing.T) {
		metadata := model.Metadata{
			"Amount":             json.Number("1.00"),
			"MpesaReceiptNumber": "NLJ7RT61SV",
			"PhoneNumber":        json.Number("254708374149"),
		}
		value, err := metadata.Value()
		require.NoError(t, err)

		var scanned model.Metadata
		require.NoError(t, scanned.Scan([]byte(value.(string))))
		assert.Equal(t, json.Number("1.00"), scanned["Amount"])
		assert.Equal(t, json.Number("254708374149"), scanned["PhoneNumber"])
		assert.Equal(t, "NLJ7RT61SV", scanned["MpesaReceiptNumber"])
	})

	t.Run("nil", func(t *testing.T) {
		value, err := model.Metadata(nil).Value()
		require.NoError(t, err)
		assert.Nil(t, value)

		scanned := model.Metadata{"stale": true}
		require.NoError(t, scanned.Scan(nil))
		assert.Nil(t, scanned)
	})

	t.Run("unsupported column type", func(t *testing.T) {
		var scanned model.Metadata
		require.Error(t, scanned.Scan(42))
	})
}

func TestNewTransactionFromReader(t *testing.T) {
	transaction, err := model.NewTransactionFromReader(bytes.NewReader([]byte(
		`{"ID":"t1","Amount":"10","Status":"completed","ResultCode":0,"ReceiptMetadata":{"Amount":10,"MpesaReceiptNumber":"ABC123"}}`,
	)))
	require.NoError(t, err)
	assert.Equal(t, "t1", transaction.ID)
	assert.True(t, decimal.NewFromInt(10).Equal(transaction.Amount))
	require.NotNil(t, transaction.ResultCode)
	assert.Equal(t, 0, *transaction.ResultCode)
	assert.Equal(t, json.Number("10"), transaction.ReceiptMetadata["Amount"])
	assert.True(t, transaction.IsTerminal())
	assert.False(t, transaction.HasCorrelationID())

	transactions, err := model.NewTransactionListFromReader(bytes.NewReader([]byte(`[{"ID":"t1"},{"ID":"t2"}]`)))
	require.NoError(t, err)
	assert.Len(t, transactions, 2)

	_, err = model.NewTransactionFromReader(bytes.NewReader([]byte(`{"ID":`)))
	require.Error(t, err)
}
