// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package daraja

import (
	"context"

	"github.com/pkg/errors"
)

const (
	stkPushPath      = "/mpesa/stkpush/v1/processrequest"
	stkPushQueryPath = "/mpesa/stkpushquery/v1/query"

	// TransactionTypePayBill is used for pay bill short codes.
	TransactionTypePayBill = "CustomerPayBillOnline"
	// TransactionTypeBuyGoods is used for till numbers.
	TransactionTypeBuyGoods = "CustomerBuyGoodsOnline"
)

// STKPushRequest is the body of a push payment request.
type STKPushRequest struct {
	BusinessShortCode string
	Password          string
	Timestamp         string
	TransactionType   string
	Amount            int64
	PartyA            string
	PartyB            string
	PhoneNumber       string
	CallBackURL       string
	AccountReference  string
	TransactionDesc   string
}

// STKPushResponse is the provider acknowledgement of a push payment request.
type STKPushResponse struct {
	MerchantRequestID   string
	CheckoutRequestID   string
	ResponseCode        string
	ResponseDescription string
	CustomerMessage     string
}

// STKPush sends a push payment request. A nil error means the provider
// acknowledged the request and assigned correlation ids.
func (c *Client) STKPush(ctx context.Context, request *STKPushRequest) (*STKPushResponse, error) {
	var response STKPushResponse
	err := c.post(ctx, stkPushPath, request, &response)
	if err != nil {
		return nil, err
	}

	if !isSuccessCode(response.ResponseCode) {
		return nil, &RejectionError{
			StatusCode: 200,
			Code:       response.ResponseCode,
			Message:    response.ResponseDescription,
		}
	}
	if response.CheckoutRequestID == "" {
		return nil, errors.New("push payment acknowledged without a CheckoutRequestID")
	}

	return &response, nil
}

// STKQueryRequest asks for the status of an earlier push payment.
type STKQueryRequest struct {
	BusinessShortCode string
	Password          string
	Timestamp         string
	CheckoutRequestID string
}

// STKQueryResponse is the provider answer to a status query. ResultCode is
// only present once the payment has reached a final state.
type STKQueryResponse struct {
	ResponseCode        string
	ResponseDescription string
	MerchantRequestID   string
	CheckoutRequestID   string
	ResultCode          string
	ResultDesc          string
}

// STKPushQuery queries the status of a push payment. While the payment is
// still in flight the provider answers with a RejectionError.
func (c *Client) STKPushQuery(ctx context.Context, request *STKQueryRequest) (*STKQueryResponse, error) {
	var response STKQueryResponse
	err := c.post(ctx, stkPushQueryPath, request, &response)
	if err != nil {
		return nil, err
	}

	if !isSuccessCode(response.ResponseCode) {
		return nil, &RejectionError{
			StatusCode: 200,
			Code:       response.ResponseCode,
			Message:    response.ResponseDescription,
		}
	}

	return &response, nil
}
