// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package daraja

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
)

// SuccessResultCode is the result code of a settled successful payment.
const SuccessResultCode = 0

// CallbackResult is the provider agnostic content of a result delivery.
type CallbackResult struct {
	// CorrelationID is the CheckoutRequestID of push payments and the
	// ConversationID of disbursements.
	CorrelationID string
	// SecondaryID is the MerchantRequestID or OriginatorConversationID.
	SecondaryID string
	// ResultCode is nil only for queue timeouts that carry none.
	ResultCode *int
	ResultDesc string
	// Metadata holds receipt items, numbers kept as json.Number.
	Metadata map[string]interface{}
}

type stkCallbackItem struct {
	Name  string
	Value interface{}
}

type stkCallbackBody struct {
	Body *struct {
		StkCallback *struct {
			MerchantRequestID string
			CheckoutRequestID string
			ResultCode        *json.Number
			ResultDesc        string
			CallbackMetadata  *struct {
				Item []stkCallbackItem
			}
		} `json:"stkCallback"`
	}
}

// ParseSTKCallback validates and parses a push payment result callback.
func ParseSTKCallback(raw []byte) (*CallbackResult, error) {
	var body stkCallbackBody
	if err := decodeStrict(raw, &body); err != nil {
		return nil, err
	}
	if body.Body == nil || body.Body.StkCallback == nil {
		return nil, malformed("missing Body.stkCallback")
	}
	callback := body.Body.StkCallback
	if callback.CheckoutRequestID == "" {
		return nil, malformed("missing CheckoutRequestID")
	}
	code, err := parseResultCode(callback.ResultCode)
	if err != nil {
		return nil, err
	}

	result := &CallbackResult{
		CorrelationID: callback.CheckoutRequestID,
		SecondaryID:   callback.MerchantRequestID,
		ResultCode:    code,
		ResultDesc:    callback.ResultDesc,
	}
	if callback.CallbackMetadata != nil {
		result.Metadata = make(map[string]interface{}, len(callback.CallbackMetadata.Item))
		for _, item := range callback.CallbackMetadata.Item {
			if item.Name == "" {
				return nil, malformed("metadata item without a Name")
			}
			result.Metadata[item.Name] = item.Value
		}
	}

	return result, nil
}

type b2cResultParameter struct {
	Key   string
	Value interface{}
}

type b2cResultBody struct {
	Result *struct {
		ResultType               *json.Number
		ResultCode               *json.Number
		ResultDesc               string
		OriginatorConversationID string
		ConversationID           string
		TransactionID            string
		ResultParameters         *struct {
			ResultParameter []b2cResultParameter
		}
	}
}

// ParseB2CResult validates and parses a disbursement result callback.
func ParseB2CResult(raw []byte) (*CallbackResult, error) {
	return parseB2C(raw, true)
}

// ParseB2CTimeout validates and parses a disbursement queue timeout
// callback. Unlike results, timeouts are not required to carry a result code.
func ParseB2CTimeout(raw []byte) (*CallbackResult, error) {
	return parseB2C(raw, false)
}

func parseB2C(raw []byte, requireResultCode bool) (*CallbackResult, error) {
	var body b2cResultBody
	if err := decodeStrict(raw, &body); err != nil {
		return nil, err
	}
	if body.Result == nil {
		return nil, malformed("missing Result")
	}
	callback := body.Result
	if callback.ConversationID == "" {
		return nil, malformed("missing ConversationID")
	}

	result := &CallbackResult{
		CorrelationID: callback.ConversationID,
		SecondaryID:   callback.OriginatorConversationID,
		ResultDesc:    callback.ResultDesc,
	}
	if callback.ResultCode != nil || requireResultCode {
		code, err := parseResultCode(callback.ResultCode)
		if err != nil {
			return nil, err
		}
		result.ResultCode = code
	}
	if callback.ResultParameters != nil || callback.TransactionID != "" {
		result.Metadata = make(map[string]interface{})
		if callback.TransactionID != "" {
			result.Metadata["TransactionID"] = callback.TransactionID
		}
		if callback.ResultParameters != nil {
			for _, parameter := range callback.ResultParameters.ResultParameter {
				if parameter.Key == "" {
					return nil, malformed("result parameter without a Key")
				}
				result.Metadata[parameter.Key] = parameter.Value
			}
		}
	}

	return result, nil
}

// ParseSTKQueryResult parses a push payment status query answer. Answers
// without a result code describe a payment still being processed and are
// reported with a nil ResultCode.
func ParseSTKQueryResult(raw []byte) (*CallbackResult, error) {
	var body struct {
		MerchantRequestID string
		CheckoutRequestID string
		ResultCode        string
		ResultDesc        string
	}
	if err := decodeStrict(raw, &body); err != nil {
		return nil, err
	}
	if body.CheckoutRequestID == "" {
		return nil, malformed("missing CheckoutRequestID")
	}

	result := &CallbackResult{
		CorrelationID: body.CheckoutRequestID,
		SecondaryID:   body.MerchantRequestID,
		ResultDesc:    body.ResultDesc,
	}
	if body.ResultCode != "" {
		code, err := strconv.Atoi(body.ResultCode)
		if err != nil {
			return nil, &MalformedCallbackError{Reason: "non integer ResultCode", Err: err}
		}
		result.ResultCode = &code
	}

	return result, nil
}

// C2BNotification is a customer to business confirmation or validation request.
type C2BNotification struct {
	TransactionType   string
	TransID           string
	TransTime         string
	TransAmount       string
	BusinessShortCode string
	BillRefNumber     string
	InvoiceNumber     string
	OrgAccountBalance string
	ThirdPartyTransID string
	MSISDN            string
	FirstName         string
	MiddleName        string
	LastName          string
}

// ParseC2BNotification validates and parses a C2B webhook body.
func ParseC2BNotification(raw []byte) (*C2BNotification, error) {
	var notification C2BNotification
	if err := decodeStrict(raw, &notification); err != nil {
		return nil, err
	}
	if notification.TransID == "" {
		return nil, malformed("missing TransID")
	}

	return &notification, nil
}

// decodeStrict decodes a single JSON object, keeping numbers verbatim.
func decodeStrict(raw []byte, dest interface{}) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return malformed("empty body")
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	if err := decoder.Decode(dest); err != nil {
		return &MalformedCallbackError{Reason: "invalid JSON", Err: errors.WithStack(err)}
	}
	if decoder.More() {
		return malformed("trailing data after JSON object")
	}

	return nil
}

func parseResultCode(number *json.Number) (*int, error) {
	if number == nil {
		return nil, malformed("missing ResultCode")
	}
	code, err := strconv.Atoi(number.String())
	if err != nil {
		return nil, &MalformedCallbackError{Reason: "non integer ResultCode", Err: err}
	}

	return &code, nil
}
