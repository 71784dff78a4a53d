// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package model

import (
	"encoding/json"
	"io"
	"regexp"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	// AccountReferenceMaxLength is the longest account reference the provider accepts.
	AccountReferenceMaxLength = 12
	// RemarksMaxLength is the longest disbursement remark the provider accepts.
	RemarksMaxLength = 100
	// IdempotencyKeyMaxLength bounds client supplied idempotency keys.
	IdempotencyKeyMaxLength = 128
)

var msisdnPattern = regexp.MustCompile(`^254[0-9]{9}$`)

// PushPaymentRequest asks for a push payment prompt on the payer's phone.
type PushPaymentRequest struct {
	IdempotencyKey   string
	Phone            string
	Amount           decimal.Decimal
	AccountReference string
	Description      string
	RequestedBy      string
}

// Validate validates the values of a push payment request.
func (request *PushPaymentRequest) Validate() error {
	if len(request.IdempotencyKey) == 0 {
		return errors.New("must specify an idempotency key")
	}
	if len(request.IdempotencyKey) > IdempotencyKeyMaxLength {
		return errors.Errorf("idempotency key must be at most %d characters", IdempotencyKeyMaxLength)
	}
	if !msisdnPattern.MatchString(request.Phone) {
		return errors.Errorf("phone %q must be in the format 254XXXXXXXXX", request.Phone)
	}
	if err := validateAmount(request.Amount); err != nil {
		return err
	}
	if len(request.AccountReference) == 0 {
		return errors.New("must specify an account reference")
	}
	if len(request.AccountReference) > AccountReferenceMaxLength {
		return errors.Errorf("account reference must be at most %d characters", AccountReferenceMaxLength)
	}

	return nil
}

// DisbursementRequest asks for a payout from the business short code to a
// customer phone. The idempotency key is optional and generated when absent.
type DisbursementRequest struct {
	IdempotencyKey string
	Phone          string
	Amount         decimal.Decimal
	Remarks        string
	Occasion       string
	RequestedBy    string
}

// Validate validates the values of a disbursement request.
func (request *DisbursementRequest) Validate() error {
	if len(request.IdempotencyKey) > IdempotencyKeyMaxLength {
		return errors.Errorf("idempotency key must be at most %d characters", IdempotencyKeyMaxLength)
	}
	if !msisdnPattern.MatchString(request.Phone) {
		return errors.Errorf("phone %q must be in the format 254XXXXXXXXX", request.Phone)
	}
	if err := validateAmount(request.Amount); err != nil {
		return err
	}
	if len(request.Remarks) == 0 {
		return errors.New("must specify remarks")
	}
	if len(request.Remarks) > RemarksMaxLength {
		return errors.Errorf("remarks must be at most %d characters", RemarksMaxLength)
	}

	return nil
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return errors.New("amount must be positive")
	}
	if !amount.Equal(amount.Truncate(0)) {
		return errors.New("amount must be a whole number")
	}

	return nil
}

// InitiationResponse is returned by the initiation endpoints.
type InitiationResponse struct {
	Transaction *Transaction `json:",omitempty"`
	// Existing is set when the idempotency key matched an earlier request.
	Existing bool
	Error    string `json:",omitempty"`
}

// RegisterURLsRequest carries the C2B webhook URLs to register. Empty URLs
// are derived from the configured public callback base URL.
type RegisterURLsRequest struct {
	ConfirmationURL string
	ValidationURL   string
}

// RegistrationAck is the provider's answer to a URL registration.
type RegistrationAck struct {
	ConfirmationURL     string
	ValidationURL       string
	OriginatorID        string
	ResponseCode        string
	ResponseDescription string
}

// ErrorResponse is the body returned with client errors.
type ErrorResponse struct {
	Error string
}

// NewPushPaymentRequestFromReader will create a PushPaymentRequest from an io.Reader.
func NewPushPaymentRequestFromReader(reader io.Reader) (*PushPaymentRequest, error) {
	var request PushPaymentRequest
	err := json.NewDecoder(reader).Decode(&request)
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "failed to decode push payment request")
	}

	return &request, nil
}

// NewDisbursementRequestFromReader will create a DisbursementRequest from an io.Reader.
func NewDisbursementRequestFromReader(reader io.Reader) (*DisbursementRequest, error) {
	var request DisbursementRequest
	err := json.NewDecoder(reader).Decode(&request)
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "failed to decode disbursement request")
	}

	return &request, nil
}

// NewInitiationResponseFromReader will create an InitiationResponse from an io.Reader.
func NewInitiationResponseFromReader(reader io.Reader) (*InitiationResponse, error) {
	var response InitiationResponse
	err := json.NewDecoder(reader).Decode(&response)
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "failed to decode initiation response")
	}

	return &response, nil
}

// NewRegistrationAckFromReader will create a RegistrationAck from an io.Reader.
func NewRegistrationAckFromReader(reader io.Reader) (*RegistrationAck, error) {
	var ack RegistrationAck
	err := json.NewDecoder(reader).Decode(&ack)
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "failed to decode registration acknowledgement")
	}

	return &ack, nil
}

// NewErrorResponseFromReader will create an ErrorResponse from an io.Reader.
func NewErrorResponseFromReader(reader io.Reader) (*ErrorResponse, error) {
	var response ErrorResponse
	err := json.NewDecoder(reader).Decode(&response)
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "failed to decode error response")
	}

	return &response, nil
}
