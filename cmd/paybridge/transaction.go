// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/mattermost/paybridge/model"
)

const (
	serverFlag    = "server"
	principalFlag = "principal"
	idFlag        = "id"
	statusFlag    = "status"
	kindFlag      = "kind"
	pageFlag      = "page"
	perPageFlag   = "per-page"
)

func init() {
	transactionCmd.PersistentFlags().String(serverFlag, "http://localhost:8077", "The paybridge server to communicate with")

	transactionGetCmd.Flags().String(idFlag, "", "ID of the transaction")
	transactionCallbacksCmd.Flags().String(idFlag, "", "ID of the transaction")

	transactionListCmd.Flags().String(statusFlag, "", "Only list transactions with this status")
	transactionListCmd.Flags().String(kindFlag, "", "Only list transactions of this kind, push-payment or disbursement")
	transactionListCmd.Flags().Int(pageFlag, 0, "Page to fetch")
	transactionListCmd.Flags().Int(perPageFlag, 100, "Transactions per page")

	transactionCmd.AddCommand(transactionGetCmd)
	transactionCmd.AddCommand(transactionListCmd)
	transactionCmd.AddCommand(transactionCallbacksCmd)
}

var transactionCmd = &cobra.Command{
	Use:   "transaction",
	Short: "Inspect transactions on a paybridge server",
}

var transactionGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Fetch a transaction by ID",
	RunE: func(command *cobra.Command, args []string) error {
		command.SilenceUsage = true

		id, err := requiredString(command, idFlag)
		if err != nil {
			return err
		}

		transaction, err := newClient(command).GetTransaction(id)
		if err != nil {
			return err
		}
		if transaction == nil {
			return errors.Errorf("transaction %s not found", id)
		}

		return printJSON(transaction)
	},
}

var transactionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List transactions",
	RunE: func(command *cobra.Command, args []string) error {
		command.SilenceUsage = true

		status, _ := command.Flags().GetString(statusFlag)
		kind, _ := command.Flags().GetString(kindFlag)
		page, _ := command.Flags().GetInt(pageFlag)
		perPage, _ := command.Flags().GetInt(perPageFlag)

		transactions, err := newClient(command).GetTransactions(&model.TransactionFilter{
			Status:  model.TransactionStatus(status),
			Kind:    model.TransactionKind(kind),
			Page:    page,
			PerPage: perPage,
		})
		if err != nil {
			return err
		}

		return printJSON(transactions)
	},
}

var transactionCallbacksCmd = &cobra.Command{
	Use:   "callbacks",
	Short: "List the provider callbacks received for a transaction",
	RunE: func(command *cobra.Command, args []string) error {
		command.SilenceUsage = true

		id, err := requiredString(command, idFlag)
		if err != nil {
			return err
		}

		records, err := newClient(command).GetTransactionCallbacks(id)
		if err != nil {
			return err
		}
		if records == nil {
			return errors.Errorf("transaction %s not found", id)
		}

		return printJSON(records)
	},
}

func newClient(command *cobra.Command) *model.Client {
	server, _ := command.Flags().GetString(serverFlag)
	client := model.NewClient(server)
	if principal, _ := command.Flags().GetString(principalFlag); principal != "" {
		client.SetPrincipal(principal)
	}

	return client
}

func requiredString(command *cobra.Command, name string) (string, error) {
	value, _ := command.Flags().GetString(name)
	if value == "" {
		return "", errors.Errorf("the --%s flag must not be empty", name)
	}

	return value, nil
}
