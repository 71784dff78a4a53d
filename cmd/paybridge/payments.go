// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package main

import (
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mattermost/paybridge/model"
)

const (
	idempotencyKeyFlag = "idempotency-key"
	phoneFlag          = "phone"
	amountFlag         = "amount"
	referenceFlag      = "account-reference"
	descriptionFlag    = "description"
	remarksFlag        = "remarks"
	occasionFlag       = "occasion"
)

func addClientFlags(flags *pflag.FlagSet) {
	flags.String(serverFlag, "http://localhost:8077", "The paybridge server to communicate with")
	flags.String(principalFlag, "", "Principal the request is made on behalf of")
	flags.String(idempotencyKeyFlag, "", "Key identifying the request; resubmitting it never pays twice")
	flags.String(phoneFlag, "", "Customer phone number, 254 followed by 9 digits")
	flags.String(amountFlag, "", "Whole amount to pay")
}

func init() {
	addClientFlags(pushCmd.Flags())
	pushCmd.Flags().String(referenceFlag, "", "Account reference shown to the customer")
	pushCmd.Flags().String(descriptionFlag, "", "Transaction description")

	addClientFlags(disburseCmd.Flags())
	disburseCmd.Flags().String(remarksFlag, "", "Remarks sent with the disbursement")
	disburseCmd.Flags().String(occasionFlag, "", "Optional occasion sent with the disbursement")
}

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Request a push payment from a customer",
	RunE: func(command *cobra.Command, args []string) error {
		command.SilenceUsage = true
		flags := command.Flags()

		amount, err := amountFromFlags(flags)
		if err != nil {
			return err
		}
		request := &model.PushPaymentRequest{Amount: amount}
		request.IdempotencyKey, _ = flags.GetString(idempotencyKeyFlag)
		request.Phone, _ = flags.GetString(phoneFlag)
		request.AccountReference, _ = flags.GetString(referenceFlag)
		request.Description, _ = flags.GetString(descriptionFlag)

		response, err := newClient(command).CreatePushPayment(request)
		if response != nil {
			if printErr := printJSON(response); printErr != nil {
				return printErr
			}
		}

		return err
	},
}

var disburseCmd = &cobra.Command{
	Use:   "disburse",
	Short: "Pay out to a customer",
	RunE: func(command *cobra.Command, args []string) error {
		command.SilenceUsage = true
		flags := command.Flags()

		amount, err := amountFromFlags(flags)
		if err != nil {
			return err
		}
		request := &model.DisbursementRequest{Amount: amount}
		request.IdempotencyKey, _ = flags.GetString(idempotencyKeyFlag)
		request.Phone, _ = flags.GetString(phoneFlag)
		request.Remarks, _ = flags.GetString(remarksFlag)
		request.Occasion, _ = flags.GetString(occasionFlag)

		response, err := newClient(command).CreateDisbursement(request)
		if response != nil {
			if printErr := printJSON(response); printErr != nil {
				return printErr
			}
		}

		return err
	},
}

func amountFromFlags(flags *pflag.FlagSet) (decimal.Decimal, error) {
	value, _ := flags.GetString(amountFlag)
	return decimal.NewFromString(value)
}
