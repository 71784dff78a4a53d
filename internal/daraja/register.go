// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package daraja

import "context"

const registerURLPath = "/mpesa/c2b/v1/registerurl"

// Response types for C2B URL registration, applied when validation is unreachable.
const (
	ResponseTypeCompleted = "Completed"
	ResponseTypeCancelled = "Cancelled"
)

// RegisterURLRequest is the body of a C2B URL registration.
type RegisterURLRequest struct {
	ShortCode       string
	ResponseType    string
	ConfirmationURL string
	ValidationURL   string
}

// RegisterURLResponse is the provider answer to a URL registration.
type RegisterURLResponse struct {
	// The provider spells this field without the second "n".
	OriginatorCoversationID string
	ResponseCode            string
	ResponseDescription     string
}

// RegisterURL registers the C2B confirmation and validation URLs.
func (c *Client) RegisterURL(ctx context.Context, request *RegisterURLRequest) (*RegisterURLResponse, error) {
	var response RegisterURLResponse
	err := c.post(ctx, registerURLPath, request, &response)
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
