// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package daraja

import (
	"fmt"

	"github.com/pkg/errors"
)

// AuthError is returned when an access token could not be obtained, either
// because the token endpoint was unreachable or because it rejected the
// configured credentials.
type AuthError struct {
	StatusCode int
	Err        error
}

func (e *AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to obtain access token (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("failed to obtain access token: %v", e.Err)
}

// Unwrap returns the underlying cause.
func (e *AuthError) Unwrap() error { return e.Err }

// RejectionError is returned when the provider answered a request with a
// definite refusal: a non-2xx status, an error body, or a non-zero response
// code.
type RejectionError struct {
	StatusCode int
	Code       string
	Message    string
	RequestID  string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("provider rejected request (status %d, code %s): %s", e.StatusCode, e.Code, e.Message)
}

// MalformedCallbackError is returned when a callback payload does not match
// the schema of its channel.
type MalformedCallbackError struct {
	Reason string
	Err    error
}

func (e *MalformedCallbackError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed callback: %s: %v", e.Reason, e.Err)
	}
	return "malformed callback: " + e.Reason
}

// Unwrap returns the underlying cause.
func (e *MalformedCallbackError) Unwrap() error { return e.Err }

func malformed(reason string) error {
	return &MalformedCallbackError{Reason: reason}
}

// IsAuthError reports whether err is or wraps an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// IsRejection reports whether err is or wraps a RejectionError.
func IsRejection(err error) bool {
	var rejection *RejectionError
	return errors.As(err, &rejection)
}

// IsMalformedCallback reports whether err is or wraps a MalformedCallbackError.
func IsMalformedCallback(err error) bool {
	var malformedErr *MalformedCallbackError
	return errors.As(err, &malformedErr)
}
