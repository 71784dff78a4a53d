// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package payment

import "fmt"

// ValidationError is returned when a request is rejected before any record
// is created.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return "invalid request: " + e.Err.Error()
}

// Unwrap returns the underlying cause.
func (e *ValidationError) Unwrap() error { return e.Err }

// InitiationError is returned when the provider rejected a payment request
// or its outcome is unknown. Ambiguous initiations are left pending.
type InitiationError struct {
	TransactionID string
	Ambiguous     bool
	Err           error
}

func (e *InitiationError) Error() string {
	if e.Ambiguous {
		return fmt.Sprintf("outcome of transaction %s is unknown: %v", e.TransactionID, e.Err)
	}
	return fmt.Sprintf("transaction %s was rejected: %v", e.TransactionID, e.Err)
}

// Unwrap returns the underlying cause.
func (e *InitiationError) Unwrap() error { return e.Err }

// RegistrationError is returned when C2B URL registration failed.
type RegistrationError struct {
	Err error
}

func (e *RegistrationError) Error() string {
	return "failed to register urls: " + e.Err.Error()
}

// Unwrap returns the underlying cause.
func (e *RegistrationError) Unwrap() error { return e.Err }
