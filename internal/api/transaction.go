// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package api

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/mattermost/paybridge/model"
)

const defaultPerPage = 100

func handleGetTransaction(c *Context, w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	transactionID := vars["id"]

	transaction, err := c.Store.GetTransaction(transactionID)
	if err != nil {
		c.Logger.WithError(err).Errorf("failed to fetch transaction with ID %s", transactionID)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if transaction == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	writeJSON(c, w, http.StatusOK, transaction)
}

func handleGetTransactions(c *Context, w http.ResponseWriter, r *http.Request) {
	filter, err := parseTransactionFilter(r.URL.Query())
	if err != nil {
		writeError(c, w, http.StatusBadRequest, err)
		return
	}

	transactions, err := c.Store.GetTransactions(filter)
	if err != nil {
		c.Logger.WithError(err).Error("failed to fetch transactions")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if transactions == nil {
		transactions = []*model.Transaction{}
	}

	writeJSON(c, w, http.StatusOK, transactions)
}

func handleGetTransactionCallbacks(c *Context, w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	transactionID := vars["id"]

	transaction, err := c.Store.GetTransaction(transactionID)
	if err != nil {
		c.Logger.WithError(err).Errorf("failed to fetch transaction with ID %s", transactionID)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if transaction == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	records := []*model.CallbackRecord{}
	if transaction.HasCorrelationID() {
		records, err = c.Store.GetCallbackRecordsByCorrelationID(transaction.CheckoutRequestID)
		if err != nil {
			c.Logger.WithError(err).Errorf("failed to fetch callbacks for transaction %s", transactionID)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []*model.CallbackRecord{}
		}
	}

	writeJSON(c, w, http.StatusOK, records)
}

func parseTransactionFilter(query url.Values) (*model.TransactionFilter, error) {
	filter := &model.TransactionFilter{
		Status:  model.TransactionStatus(query.Get("status")),
		Kind:    model.TransactionKind(query.Get("kind")),
		PerPage: defaultPerPage,
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, errors.Errorf("unknown status %q", filter.Status)
	}
	if filter.Kind != "" && filter.Kind != model.TransactionKindPush && filter.Kind != model.TransactionKindDisbursement {
		return nil, errors.Errorf("unknown kind %q", filter.Kind)
	}

	var err error
	if page := query.Get("page"); page != "" {
		filter.Page, err = strconv.Atoi(page)
		if err != nil || filter.Page < 0 {
			return nil, errors.Errorf("invalid page %q", page)
		}
	}
	if perPage := query.Get("per_page"); perPage != "" {
		filter.PerPage, err = strconv.Atoi(perPage)
		if err != nil || (filter.PerPage < 1 && filter.PerPage != model.AllPerPage) {
			return nil, errors.Errorf("invalid per_page %q", perPage)
		}
	}

	return filter, nil
}
