// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package store

import (
	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/mattermost/paybridge/model"
)

const callbackRecordsTableName = "CallbackRecords"

var callbackRecordSelect sq.SelectBuilder

func init() {
	callbackRecordSelect = sq.
		Select(
			"ID",
			"Sequence",
			"Channel",
			"CorrelationID",
			"RawPayload",
			"ReceivedAt",
			"Matched",
		).
		From(callbackRecordsTableName)
}

// CreateCallbackRecord stores the record and fills in its ID and Sequence.
// Records are never updated once created.
func (sqlStore *SQLStore) CreateCallbackRecord(record *model.CallbackRecord) error {
	record.ID = model.NewID()
	if record.ReceivedAt == 0 {
		record.ReceivedAt = model.GetMillis()
	}
	if record.RawPayload == nil {
		record.RawPayload = []byte{}
	}

	err := sqlStore.getBuilder(sqlStore.db, &record.Sequence, sq.
		Insert(callbackRecordsTableName).
		SetMap(map[string]interface{}{
			"ID":            record.ID,
			"Channel":       string(record.Channel),
			"CorrelationID": record.CorrelationID,
			"RawPayload":    record.RawPayload,
			"ReceivedAt":    record.ReceivedAt,
			"Matched":       record.Matched,
		}).
		Suffix("RETURNING Sequence"),
	)
	if err != nil {
		return errors.Wrap(err, "failed to create callback record")
	}

	return nil
}

// GetCallbackRecordsByCorrelationID returns every delivery for the given
// correlation id in arrival order.
func (sqlStore *SQLStore) GetCallbackRecordsByCorrelationID(correlationID string) ([]*model.CallbackRecord, error) {
	var records []*model.CallbackRecord
	err := sqlStore.selectBuilder(sqlStore.db, &records, callbackRecordSelect.
		Where(sq.Eq{"CorrelationID": correlationID}).
		OrderBy("Sequence ASC"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query for callback records")
	}

	return records, nil
}

// GetCallbackRecordsAfter returns up to limit records with a sequence
// greater than the given one, in arrival order.
func (sqlStore *SQLStore) GetCallbackRecordsAfter(sequence int64, limit int) ([]*model.CallbackRecord, error) {
	var records []*model.CallbackRecord
	err := sqlStore.selectBuilder(sqlStore.db, &records, callbackRecordSelect.
		Where(sq.Gt{"Sequence": sequence}).
		OrderBy("Sequence ASC").
		Limit(uint64(limit)),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query for callback records")
	}

	return records, nil
}
