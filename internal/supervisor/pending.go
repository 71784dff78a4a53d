// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package supervisor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/mattermost/paybridge/internal/daraja"
	"github.com/mattermost/paybridge/model"
)

const defaultPendingBatch = 50

type pendingStore interface {
	GetStalePendingTransactions(filter *model.StalePendingFilter) ([]*model.Transaction, error)
}

type statusQuerier interface {
	QueryPushStatus(ctx context.Context, checkoutRequestID string) (*daraja.STKQueryResponse, error)
}

type callbackHandler interface {
	HandleCallback(channel model.CallbackChannel, raw []byte) (model.Acknowledgement, model.CallbackOutcome)
}

// PendingSupervisorOptions configures a PendingSupervisor.
type PendingSupervisorOptions struct {
	// After is how long a transaction stays pending before it is swept.
	After    time.Duration
	Interval time.Duration
	Batch    int
	Timeout  time.Duration
	Now      func() time.Time
}

// PendingSupervisor resolves push payments whose callback never arrived by
// querying their status. Answers go through the reconciler like any other
// delivery so the usual transition rules apply.
type PendingSupervisor struct {
	store      pendingStore
	querier    statusQuerier
	reconciler callbackHandler
	options    PendingSupervisorOptions
	logger     log.FieldLogger

	stop chan struct{}
	done chan struct{}
}

// NewPendingSupervisor creates a new PendingSupervisor.
func NewPendingSupervisor(store pendingStore, querier statusQuerier, reconciler callbackHandler, options PendingSupervisorOptions, logger log.FieldLogger) *PendingSupervisor {
	if options.Interval <= 0 {
		options.Interval = time.Minute
	}
	if options.Batch <= 0 {
		options.Batch = defaultPendingBatch
	}
	if options.Timeout <= 0 {
		options.Timeout = daraja.DefaultRequestTimeout
	}
	if options.Now == nil {
		options.Now = time.Now
	}

	return &PendingSupervisor{
		store:      store,
		querier:    querier,
		reconciler: reconciler,
		options:    options,
		logger:     logger.WithField("supervisor", "pending"),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start runs the sweep on a new goroutine until Stop is called.
func (s *PendingSupervisor) Start() {
	s.logger.WithField("after", s.options.After).Info("Pending supervisor started")
	go run(s.options.Interval, s.stop, s.done, func() {
		err := s.supervise()
		if err != nil {
			s.logger.WithError(err).Error("Failed to sweep pending transactions")
		}
	})
}

// Stop ends the sweep loop and waits for the current pass to finish.
func (s *PendingSupervisor) Stop() {
	close(s.stop)
	<-s.done
}

func (s *PendingSupervisor) supervise() error {
	cutoff := model.MillisFromTime(s.options.Now().Add(-s.options.After))

	err := s.eachStale(cutoff, true, s.sweep)
	if err != nil {
		return errors.Wrap(err, "failed to look up stale queryable transactions")
	}

	err = s.eachStale(cutoff, false, func(transaction *model.Transaction) {
		s.logger.WithFields(log.Fields{
			"transaction": transaction.ID,
			"kind":        transaction.Kind,
		}).Warn("Transaction has been pending too long and cannot be queried; it needs operator attention")
	})
	if err != nil {
		return errors.Wrap(err, "failed to look up stale unqueryable transactions")
	}

	return nil
}

// eachStale calls fn for every stale pending transaction, one batch at a
// time. Each batch resumes after the last row of the previous one, so rows
// that stay pending never hide the ones behind them.
func (s *PendingSupervisor) eachStale(cutoff int64, queryable bool, fn func(*model.Transaction)) error {
	filter := &model.StalePendingFilter{
		UpdatedBefore: cutoff,
		Queryable:     queryable,
		Limit:         s.options.Batch,
	}

	for {
		transactions, err := s.store.GetStalePendingTransactions(filter)
		if err != nil {
			return err
		}
		for _, transaction := range transactions {
			fn(transaction)
		}
		if len(transactions) < filter.Limit {
			return nil
		}

		last := transactions[len(transactions)-1]
		filter.AfterUpdateAt = last.UpdateAt
		filter.AfterID = last.ID
	}
}

func (s *PendingSupervisor) sweep(transaction *model.Transaction) {
	logger := s.logger.WithFields(log.Fields{
		"transaction": transaction.ID,
		"kind":        transaction.Kind,
	})

	logger = logger.WithField("correlation-id", transaction.CheckoutRequestID)

	ctx, cancel := context.WithTimeout(context.Background(), s.options.Timeout)
	defer cancel()

	response, err := s.querier.QueryPushStatus(ctx, transaction.CheckoutRequestID)
	if err != nil {
		if daraja.IsRejection(err) {
			logger.WithError(err).Debug("Provider has no final status yet")
			return
		}
		logger.WithError(err).Warn("Failed to query transaction status")
		return
	}

	raw, err := json.Marshal(response)
	if err != nil {
		logger.WithError(err).Error("Failed to encode status query answer")
		return
	}

	_, outcome := s.reconciler.HandleCallback(model.ChannelStatusQuery, raw)
	logger.WithField("outcome", outcome).Info("Swept pending transaction")
}
