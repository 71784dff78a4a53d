// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package daraja

import (
	"context"

	"github.com/pkg/errors"
)

const b2cPaymentPath = "/mpesa/b2c/v3/paymentrequest"

// Command IDs accepted for disbursements.
const (
	CommandBusinessPayment  = "BusinessPayment"
	CommandSalaryPayment    = "SalaryPayment"
	CommandPromotionPayment = "PromotionPayment"
)

// B2CRequest is the body of a disbursement request.
type B2CRequest struct {
	OriginatorConversationID string
	InitiatorName            string
	SecurityCredential       string
	CommandID                string
	Amount                   int64
	PartyA                   string
	PartyB                   string
	Remarks                  string
	QueueTimeOutURL          string
	ResultURL                string
	Occasion                 string
}

// B2CResponse is the provider acknowledgement of a disbursement request.
type B2CResponse struct {
	ConversationID           string
	OriginatorConversationID string
	ResponseCode             string
	ResponseDescription      string
}

// B2CPayment sends a disbursement request.
func (c *Client) B2CPayment(ctx context.Context, request *B2CRequest) (*B2CResponse, error) {
	var response B2CResponse
	err := c.post(ctx, b2cPaymentPath, request, &response)
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
	if response.ConversationID == "" {
		return nil, errors.New("disbursement acknowledged without a ConversationID")
	}

	return &response, nil
}
