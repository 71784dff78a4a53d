// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package model

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// CallbackChannel identifies the logical endpoint a provider delivery arrived on.
type CallbackChannel string

const (
	// ChannelSTK carries push payment results.
	ChannelSTK CallbackChannel = "stk"
	// ChannelB2CResult carries the final outcome of a disbursement.
	ChannelB2CResult CallbackChannel = "b2c-result"
	// ChannelB2CTimeout carries queue timeouts of a disbursement.
	ChannelB2CTimeout CallbackChannel = "b2c-timeout"
	// ChannelC2BConfirmation carries customer to business confirmations.
	ChannelC2BConfirmation CallbackChannel = "c2b-confirmation"
	// ChannelC2BValidation carries customer to business validation requests.
	ChannelC2BValidation CallbackChannel = "c2b-validation"
	// ChannelStatusQuery carries push payment status query answers obtained
	// by the pending sweep.
	ChannelStatusQuery CallbackChannel = "status-query"
)

// CallbackRecord is the immutable audit entry stored for every delivery.
type CallbackRecord struct {
	ID            string
	Sequence      int64
	Channel       CallbackChannel
	CorrelationID string
	RawPayload    []byte
	ReceivedAt    int64
	Matched       bool
}

// CallbackOutcome describes what reconciliation did with a delivery.
type CallbackOutcome string

const (
	// CallbackOutcomeApplied means the delivery moved a transaction to a terminal state.
	CallbackOutcomeApplied CallbackOutcome = "applied"
	// CallbackOutcomeDuplicate means the delivery repeated a settled result.
	CallbackOutcomeDuplicate CallbackOutcome = "duplicate"
	// CallbackOutcomeConflict means the delivery disagreed with a settled result.
	CallbackOutcomeConflict CallbackOutcome = "conflict"
	// CallbackOutcomeOrphan means no transaction matched the correlation id.
	CallbackOutcomeOrphan CallbackOutcome = "orphan"
	// CallbackOutcomeMalformed means the payload failed schema validation.
	CallbackOutcomeMalformed CallbackOutcome = "malformed"
	// CallbackOutcomeStoreError means the store could not be consulted or updated.
	CallbackOutcomeStoreError CallbackOutcome = "store-error"
	// CallbackOutcomeRecorded means the delivery was kept for audit only.
	CallbackOutcomeRecorded CallbackOutcome = "recorded"
	// CallbackOutcomeIgnored means the delivery carried no final result yet.
	CallbackOutcomeIgnored CallbackOutcome = "ignored"
)

// Acknowledgement is the body returned to the provider for every delivery.
type Acknowledgement struct {
	ResultCode int
	ResultDesc string
}

// AcceptedAcknowledgement is the only acknowledgement ever returned.
var AcceptedAcknowledgement = Acknowledgement{ResultCode: 0, ResultDesc: "Accepted"}

// NewCallbackRecordListFromReader will create a list of CallbackRecords from an io.Reader.
func NewCallbackRecordListFromReader(reader io.Reader) ([]*CallbackRecord, error) {
	records := []*CallbackRecord{}
	err := json.NewDecoder(reader).Decode(&records)
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "failed to decode callback record list")
	}

	return records, nil
}

// NewAcknowledgementFromReader will create an Acknowledgement from an io.Reader.
func NewAcknowledgementFromReader(reader io.Reader) (*Acknowledgement, error) {
	var ack Acknowledgement
	err := json.NewDecoder(reader).Decode(&ack)
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "failed to decode acknowledgement")
	}

	return &ack, nil
}
