// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
)

// PrincipalHeader carries the authenticated principal supplied by the
// upstream auth layer.
const PrincipalHeader = "X-Principal-ID"

// Client is the programmatic interface to the paybridge API.
type Client struct {
	address    string
	headers    map[string]string
	httpClient *http.Client
}

// NewClient creates a new instance of Client.
func NewClient(address string) *Client {
	return &Client{
		address:    address,
		headers:    make(map[string]string),
		httpClient: &http.Client{},
	}
}

// SetPrincipal attributes subsequent initiation requests to the given principal.
func (c *Client) SetPrincipal(principalID string) {
	c.headers[PrincipalHeader] = principalID
}

// CreatePushPayment requests a new push payment. A rejected or ambiguous
// initiation returns both the response, carrying the recorded transaction,
// and an error.
func (c *Client) CreatePushPayment(request *PushPaymentRequest) (*InitiationResponse, error) {
	resp, err := c.doPost(c.buildURL("/stkpush"), request)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	return initiationResponse(resp)
}

// CreateDisbursement requests a new disbursement.
func (c *Client) CreateDisbursement(request *DisbursementRequest) (*InitiationResponse, error) {
	resp, err := c.doPost(c.buildURL("/b2curlrequest"), request)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	return initiationResponse(resp)
}

func initiationResponse(resp *http.Response) (*InitiationResponse, error) {
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.New("failed to read response body")
	}

	switch resp.StatusCode {
	case http.StatusAccepted, http.StatusOK:
		return NewInitiationResponseFromReader(bytes.NewReader(bodyBytes))
	case http.StatusBadGateway:
		initiation, err := NewInitiationResponseFromReader(bytes.NewReader(bodyBytes))
		if err != nil {
			return nil, err
		}
		return initiation, errors.Errorf("initiation failed: %s", initiation.Error)
	default:
		return nil, errors.Errorf("failed with status code %d: %s", resp.StatusCode, string(bodyBytes))
	}
}

// GetTransaction returns the transaction with the given ID, or nil if it
// does not exist.
func (c *Client) GetTransaction(transactionID string) (*Transaction, error) {
	resp, err := c.doGet(c.buildURL("/transaction/%s", transactionID))
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	switch resp.StatusCode {
	case http.StatusNotFound:
		return nil, nil
	case http.StatusOK:
		return NewTransactionFromReader(resp.Body)
	default:
		return nil, errors.Errorf("failed with status code %d", resp.StatusCode)
	}
}

// GetTransactions returns the transactions matching the given filter.
func (c *Client) GetTransactions(filter *TransactionFilter) ([]*Transaction, error) {
	query := url.Values{}
	if filter != nil {
		if filter.Status != "" {
			query.Set("status", string(filter.Status))
		}
		if filter.Kind != "" {
			query.Set("kind", string(filter.Kind))
		}
		query.Set("page", strconv.Itoa(filter.Page))
		query.Set("per_page", strconv.Itoa(filter.PerPage))
	}

	resp, err := c.doGet(c.buildURL("/transactions?%s", query.Encode()))
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	switch resp.StatusCode {
	case http.StatusOK:
		return NewTransactionListFromReader(resp.Body)
	default:
		return nil, errors.Errorf("failed with status code %d", resp.StatusCode)
	}
}

// GetTransactionCallbacks returns the callbacks delivered for a transaction,
// or nil if the transaction does not exist.
func (c *Client) GetTransactionCallbacks(transactionID string) ([]*CallbackRecord, error) {
	resp, err := c.doGet(c.buildURL("/transaction/%s/callbacks", transactionID))
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	switch resp.StatusCode {
	case http.StatusNotFound:
		return nil, nil
	case http.StatusOK:
		return NewCallbackRecordListFromReader(resp.Body)
	default:
		return nil, errors.Errorf("failed with status code %d", resp.StatusCode)
	}
}

// RegisterURLs registers the C2B confirmation and validation URLs with the
// provider through the server.
func (c *Client) RegisterURLs(request *RegisterURLsRequest) (*RegistrationAck, error) {
	query := url.Values{}
	if request.ConfirmationURL != "" {
		query.Set("confirmation_url", request.ConfirmationURL)
	}
	if request.ValidationURL != "" {
		query.Set("validation_url", request.ValidationURL)
	}

	resp, err := c.doGet(c.buildURL("/registerurl?%s", query.Encode()))
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	switch resp.StatusCode {
	case http.StatusOK:
		return NewRegistrationAckFromReader(resp.Body)
	default:
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, errors.Errorf("failed with status code %d: %s", resp.StatusCode, string(bodyBytes))
	}
}

// DeliverCallback posts a raw provider payload to one of the callback
// paths, such as /callback or /b2c/result.
func (c *Client) DeliverCallback(path string, payload []byte) (*Acknowledgement, error) {
	req, err := http.NewRequest(http.MethodPost, c.buildURL("%s", path), bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create http request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	switch resp.StatusCode {
	case http.StatusOK:
		return NewAcknowledgementFromReader(resp.Body)
	default:
		return nil, errors.Errorf("failed with status code %d", resp.StatusCode)
	}
}

// closeBody ensures the Body of an http.Response is properly closed.
func closeBody(r *http.Response) {
	if r.Body != nil {
		_, _ = io.Copy(io.Discard, r.Body)
		_ = r.Body.Close()
	}
}

// buildURL builds a complete URL from a path and arguments.
func (c *Client) buildURL(urlPath string, args ...interface{}) string {
	return fmt.Sprintf("%s%s", c.address, fmt.Sprintf(urlPath, args...))
}

func (c *Client) doGet(u string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create http request")
	}
	for k, v := range c.headers {
		req.Header.Add(k, v)
	}

	return c.httpClient.Do(req)
}

func (c *Client) doPost(u string, request interface{}) (*http.Response, error) {
	requestBytes, err := json.Marshal(request)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request")
	}

	req, err := http.NewRequest(http.MethodPost, u, bytes.NewReader(requestBytes))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create http request")
	}
	for k, v := range c.headers {
		req.Header.Add(k, v)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.httpClient.Do(req)
}
