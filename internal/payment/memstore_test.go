// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package payment

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/mattermost/paybridge/model"
)

// memStore is an in-memory store with the same conditional update semantics
// as the SQL store.
type memStore struct {
	lock         sync.Mutex
	transactions map[string]*model.Transaction
	records      []*model.CallbackRecord

	lookupErr   error
	getErr      error
	ackErr      error
	recordErr   error
	finalizeErr error
	sequence    int64
}

func newMemStore() *memStore {
	return &memStore{transactions: make(map[string]*model.Transaction)}
}

func copyTransaction(t *model.Transaction) *model.Transaction {
	c := *t
	return &c
}

func (s *memStore) CreateTransaction(transaction *model.Transaction) (bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	for _, t := range s.transactions {
		if t.IdempotencyKey == transaction.IdempotencyKey {
			return false, nil
		}
	}
	if transaction.ID == "" {
		transaction.ID = model.NewID()
	}
	transaction.CreateAt = model.GetMillis()
	transaction.UpdateAt = transaction.CreateAt
	s.transactions[transaction.ID] = copyTransaction(transaction)

	return true, nil
}

func (s *memStore) GetTransaction(id string) (*model.Transaction, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.getErr != nil {
		return nil, s.getErr
	}

	t, ok := s.transactions[id]
	if !ok {
		return nil, nil
	}
	return copyTransaction(t), nil
}

func (s *memStore) GetTransactionByIdempotencyKey(key string) (*model.Transaction, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	for _, t := range s.transactions {
		if t.IdempotencyKey == key {
			return copyTransaction(t), nil
		}
	}
	return nil, nil
}

func (s *memStore) GetTransactionByCorrelationID(correlationID string) (*model.Transaction, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	if correlationID == "" {
		return nil, nil
	}
	for _, t := range s.transactions {
		if t.CheckoutRequestID == correlationID {
			return copyTransaction(t), nil
		}
	}
	return nil, nil
}

func (s *memStore) updateInitiated(id string, update func(t *model.Transaction)) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	t, ok := s.transactions[id]
	if !ok || t.Status != model.TransactionStatusInitiated {
		return errors.Errorf("transaction %s is no longer initiated", id)
	}
	update(t)
	t.UpdateAt = model.GetMillis()
	return nil
}

func (s *memStore) AcknowledgeTransaction(id, checkoutRequestID, merchantRequestID string) error {
	if s.ackErr != nil {
		return s.ackErr
	}
	return s.updateInitiated(id, func(t *model.Transaction) {
		t.CheckoutRequestID = checkoutRequestID
		t.MerchantRequestID = merchantRequestID
		t.Status = model.TransactionStatusPending
	})
}

func (s *memStore) MarkTransactionPending(id string) error {
	return s.updateInitiated(id, func(t *model.Transaction) {
		t.Status = model.TransactionStatusPending
	})
}

func (s *memStore) FailInitiatedTransaction(id string, resultCode *int, resultDesc string) error {
	return s.updateInitiated(id, func(t *model.Transaction) {
		t.Status = model.TransactionStatusFailed
		t.ResultCode = resultCode
		t.ResultDesc = resultDesc
	})
}

func (s *memStore) DeleteInitiatedTransaction(id string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if t, ok := s.transactions[id]; ok && t.Status == model.TransactionStatusInitiated {
		delete(s.transactions, id)
	}
	return nil
}

func (s *memStore) FinalizeTransaction(id string, result *model.TransactionResult) (bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.finalizeErr != nil {
		return false, s.finalizeErr
	}
	t, ok := s.transactions[id]
	if !ok || t.Status.IsTerminal() {
		return false, nil
	}
	if result.CorrelationID != "" {
		if t.HasCorrelationID() {
			return false, nil
		}
		t.CheckoutRequestID = result.CorrelationID
	}
	t.Status = result.Status
	t.ResultCode = result.ResultCode
	t.ResultDesc = result.ResultDesc
	t.ReceiptMetadata = result.ReceiptMetadata
	t.UpdateAt = model.GetMillis()
	return true, nil
}

func (s *memStore) CreateCallbackRecord(record *model.CallbackRecord) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.recordErr != nil {
		return s.recordErr
	}
	s.sequence++
	record.ID = model.NewID()
	record.Sequence = s.sequence
	record.ReceivedAt = model.GetMillis()
	c := *record
	s.records = append(s.records, &c)
	return nil
}

func (s *memStore) recordsFor(correlationID string) []*model.CallbackRecord {
	s.lock.Lock()
	defer s.lock.Unlock()

	var records []*model.CallbackRecord
	for _, r := range s.records {
		if r.CorrelationID == correlationID {
			records = append(records, r)
		}
	}
	return records
}

func (s *memStore) recordCount() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.records)
}

func (s *memStore) transactionCount() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.transactions)
}
