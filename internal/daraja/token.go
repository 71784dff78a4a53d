// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package daraja

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/mattermost/paybridge/internal/metrics"
)

const (
	tokenPath = "/oauth/v1/generate?grant_type=client_credentials"

	// DefaultTokenSafetyMargin is subtracted from the advertised token TTL.
	DefaultTokenSafetyMargin = 60 * time.Second
	// DefaultRequestTimeout bounds every outbound provider call.
	DefaultRequestTimeout = 30 * time.Second
)

// AccessToken is a provider bearer token. Its String method redacts the
// value so that it never reaches a log line.
type AccessToken struct {
	Value     string
	ExpiresAt time.Time
}

// String implements fmt.Stringer without exposing the token value.
func (t *AccessToken) String() string {
	return fmt.Sprintf("AccessToken(redacted, expires %s)", t.ExpiresAt.Format(time.RFC3339))
}

// GoString implements fmt.GoStringer without exposing the token value.
func (t *AccessToken) GoString() string {
	return t.String()
}

// TokenSource provides access tokens for authenticated provider calls.
type TokenSource interface {
	Token(ctx context.Context) (*AccessToken, error)
}

// TokenManagerOptions configures a TokenManager.
type TokenManagerOptions struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	SafetyMargin   time.Duration
	Timeout        time.Duration
	HTTPClient     *http.Client
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// TokenManager acquires and caches client credentials access tokens.
// Concurrent callers that find the cache stale share a single fetch.
type TokenManager struct {
	tokenURL       string
	consumerKey    string
	consumerSecret string
	safetyMargin   time.Duration
	timeout        time.Duration
	httpClient     *http.Client
	now            func() time.Time
	logger         log.FieldLogger

	group   singleflight.Group
	lock    sync.RWMutex
	current *AccessToken
}

// NewTokenManager creates a new TokenManager.
func NewTokenManager(options TokenManagerOptions, logger log.FieldLogger) *TokenManager {
	if options.SafetyMargin <= 0 {
		options.SafetyMargin = DefaultTokenSafetyMargin
	}
	if options.Timeout <= 0 {
		options.Timeout = DefaultRequestTimeout
	}
	if options.HTTPClient == nil {
		options.HTTPClient = &http.Client{}
	}
	if options.Now == nil {
		options.Now = time.Now
	}

	return &TokenManager{
		tokenURL:       options.BaseURL + tokenPath,
		consumerKey:    options.ConsumerKey,
		consumerSecret: options.ConsumerSecret,
		safetyMargin:   options.SafetyMargin,
		timeout:        options.Timeout,
		httpClient:     options.HTTPClient,
		now:            options.Now,
		logger:         logger.WithField("component", "token-manager"),
	}
}

// Token returns the cached token while it is fresh and otherwise refreshes
// it. The refresh runs detached from ctx so that one caller giving up does
// not fail the fetch for everyone else waiting on it.
func (tm *TokenManager) Token(ctx context.Context) (*AccessToken, error) {
	if token := tm.cachedToken(); tm.isFresh(token) {
		return token, nil
	}

	result := tm.group.DoChan("token", func() (interface{}, error) {
		return tm.refresh()
	})

	select {
	case r := <-result:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*AccessToken), nil
	case <-ctx.Done():
		return nil, &AuthError{Err: errors.Wrap(ctx.Err(), "gave up waiting for access token")}
	}
}

func (tm *TokenManager) cachedToken() *AccessToken {
	tm.lock.RLock()
	defer tm.lock.RUnlock()
	return tm.current
}

func (tm *TokenManager) isFresh(token *AccessToken) bool {
	return token != nil && tm.now().Before(token.ExpiresAt.Add(-tm.safetyMargin))
}

func (tm *TokenManager) isUnexpired(token *AccessToken) bool {
	return token != nil && tm.now().Before(token.ExpiresAt)
}

func (tm *TokenManager) refresh() (*AccessToken, error) {
	// Another flight may have completed between our cache check and this one starting.
	previous := tm.cachedToken()
	if tm.isFresh(previous) {
		return previous, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), tm.timeout)
	defer cancel()

	token, err := tm.fetch(ctx)
	if err != nil {
		metrics.TokenFetches.WithLabelValues("error").Inc()
		if tm.isUnexpired(previous) {
			tm.logger.WithError(err).Warn("Failed to refresh access token; using current token until it expires")
			return previous, nil
		}
		tm.logger.WithError(err).Error("Failed to obtain access token")
		return nil, err
	}
	metrics.TokenFetches.WithLabelValues("success").Inc()

	tm.lock.Lock()
	tm.current = token
	tm.lock.Unlock()

	tm.logger.WithField("expires-at", token.ExpiresAt).Debug("Refreshed access token")

	return token, nil
}

type tokenResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   json.Number `json:"expires_in"`
}

func (tm *TokenManager) fetch(ctx context.Context) (*AccessToken, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tm.tokenURL, nil)
	if err != nil {
		return nil, &AuthError{Err: errors.Wrap(err, "failed to create token request")}
	}
	req.SetBasicAuth(tm.consumerKey, tm.consumerSecret)

	issuedAt := tm.now()
	resp, err := tm.httpClient.Do(req)
	if err != nil {
		return nil, &AuthError{Err: errors.Wrap(err, "token request failed")}
	}
	defer closeBody(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, &AuthError{
			StatusCode: resp.StatusCode,
			Err:        errors.Errorf("token endpoint responded with status %d", resp.StatusCode),
		}
	}

	var body tokenResponse
	err = json.NewDecoder(resp.Body).Decode(&body)
	if err != nil {
		return nil, &AuthError{StatusCode: resp.StatusCode, Err: errors.Wrap(err, "failed to decode token response")}
	}
	if body.AccessToken == "" {
		return nil, &AuthError{StatusCode: resp.StatusCode, Err: errors.New("token response carried no access_token")}
	}
	seconds, err := body.ExpiresIn.Int64()
	if err != nil || seconds <= 0 {
		return nil, &AuthError{StatusCode: resp.StatusCode, Err: errors.Errorf("invalid expires_in %q", body.ExpiresIn)}
	}

	return &AccessToken{
		Value:     body.AccessToken,
		ExpiresAt: issuedAt.Add(time.Duration(seconds) * time.Second),
	}, nil
}
