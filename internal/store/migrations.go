// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package store

import (
	"github.com/blang/semver"
)

type migration struct {
	fromVersion   semver.Version
	toVersion     semver.Version
	migrationFunc func(execer) error
}

// migrations defines the set of migrations necessary to advance the database to the latest
// expected version.
//
// Note that the canonical schema is currently obtained by applying all migrations to an empty
// database.
var migrations = []migration{
	{semver.MustParse("0.0.0"), semver.MustParse("0.1.0"),
		func(e execer) error {
			_, err := e.Exec(`
				CREATE TABLE System (
						Key    VARCHAR(64) PRIMARY KEY,
						Value  VARCHAR(1024) NULL
				);
			`)
			if err != nil {
				return err
			}

			_, err = e.Exec(`
				CREATE TABLE Transactions (
						ID                 TEXT PRIMARY KEY NOT NULL,
						IdempotencyKey     TEXT NOT NULL,
						CheckoutRequestID  TEXT NOT NULL DEFAULT '',
						MerchantRequestID  TEXT NOT NULL DEFAULT '',
						Kind               TEXT NOT NULL,
						Amount             NUMERIC NOT NULL,
						PartyA             TEXT NOT NULL,
						PartyB             TEXT NOT NULL,
						AccountReference   TEXT NOT NULL DEFAULT '',
						Remarks            TEXT NOT NULL DEFAULT '',
						RequestedBy        TEXT NOT NULL DEFAULT '',
						Status             TEXT NOT NULL,
						ResultCode         INTEGER NULL,
						ResultDesc         TEXT NOT NULL DEFAULT '',
						ReceiptMetadata    JSONB NULL,
						CreateAt           BIGINT NOT NULL,
						UpdateAt           BIGINT NOT NULL
				);

				CREATE UNIQUE INDEX Transactions_IdempotencyKey
						ON Transactions (IdempotencyKey);

				CREATE UNIQUE INDEX Transactions_CheckoutRequestID
						ON Transactions (CheckoutRequestID)
						WHERE CheckoutRequestID <> '';
			`)
			if err != nil {
				return err
			}

			_, err = e.Exec(`
				CREATE TABLE CallbackRecords (
						ID             TEXT PRIMARY KEY NOT NULL,
						Sequence       BIGSERIAL UNIQUE,
						Channel        TEXT NOT NULL,
						CorrelationID  TEXT NOT NULL DEFAULT '',
						RawPayload     BYTEA NOT NULL,
						ReceivedAt     BIGINT NOT NULL,
						Matched        BOOLEAN NOT NULL
				);

				CREATE INDEX CallbackRecords_CorrelationID
						ON CallbackRecords (CorrelationID);
			`)
			return err
		},
	},
	{semver.MustParse("0.1.0"), semver.MustParse("0.2.0"),
		func(e execer) error {
			// Supports the stale pending sweep.
			_, err := e.Exec(`
				CREATE INDEX Transactions_Status_UpdateAt
						ON Transactions (Status, UpdateAt);
			`)
			return err
		},
	},
}
