// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

// Package daraja is a client for the Daraja mobile money API: token
// acquisition, request signing, outbound payment calls and callback parsing.
package daraja

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/mattermost/paybridge/internal/metrics"
)

const (
	// SandboxBaseURL is the base URL of the provider sandbox.
	SandboxBaseURL = "https://sandbox.safaricom.co.ke"
	// ProductionBaseURL is the base URL of the live provider API.
	ProductionBaseURL = "https://api.safaricom.co.ke"
)

// BaseURLForEnvironment maps an environment name to a base URL.
func BaseURLForEnvironment(environment string) (string, error) {
	switch environment {
	case "sandbox":
		return SandboxBaseURL, nil
	case "production":
		return ProductionBaseURL, nil
	}
	return "", errors.Errorf("unknown environment %q, expected sandbox or production", environment)
}

// Client performs authenticated calls against the provider API.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	timeout    time.Duration
	logger     log.FieldLogger
}

// NewClient creates a new Client. A zero timeout uses DefaultRequestTimeout.
func NewClient(baseURL string, tokens TokenSource, httpClient *http.Client, timeout time.Duration, logger log.FieldLogger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		tokens:     tokens,
		httpClient: httpClient,
		timeout:    timeout,
		logger:     logger.WithField("component", "daraja-client"),
	}
}

// errorBody is the shape of provider error responses.
type errorBody struct {
	RequestID    string `json:"requestId"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// post sends payload to path with a bearer token and decodes the 2xx body
// into out. Non-2xx answers and 2xx answers carrying an error body become
// a RejectionError. Transport failures are returned wrapped and mean the
// outcome is unknown.
func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "failed to marshal request")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "failed to create http request")
	}
	req.Header.Set("Authorization", "Bearer "+token.Value)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.ProviderRequestDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
	if err != nil {
		return errors.Wrapf(err, "request to %s failed", path)
	}
	defer closeBody(resp)

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "failed to read response from %s", path)
	}

	var errBody errorBody
	_ = json.Unmarshal(respBytes, &errBody)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		rejection := &RejectionError{
			StatusCode: resp.StatusCode,
			Code:       errBody.ErrorCode,
			Message:    errBody.ErrorMessage,
			RequestID:  errBody.RequestID,
		}
		if rejection.Message == "" {
			rejection.Message = http.StatusText(resp.StatusCode)
		}
		return rejection
	}
	if errBody.ErrorCode != "" {
		return &RejectionError{
			StatusCode: resp.StatusCode,
			Code:       errBody.ErrorCode,
			Message:    errBody.ErrorMessage,
			RequestID:  errBody.RequestID,
		}
	}

	err = json.Unmarshal(respBytes, out)
	if err != nil {
		return errors.Wrapf(err, "failed to decode response from %s", path)
	}

	return nil
}

// isSuccessCode reports whether a provider response code signals success.
// The provider uses both "0" and zero padded variants.
func isSuccessCode(code string) bool {
	return code != "" && strings.Trim(code, "0") == ""
}

// closeBody ensures the Body of an http.Response is properly closed.
func closeBody(r *http.Response) {
	if r.Body != nil {
		_, _ = io.Copy(io.Discard, r.Body)
		_ = r.Body.Close()
	}
}
