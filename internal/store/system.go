// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package store

import (
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
)

// GetSystemValue returns the value stored under key, or the empty string.
func (sqlStore *SQLStore) GetSystemValue(key string) (string, error) {
	return sqlStore.getSystemValue(sqlStore.db, key)
}

// SetSystemValue stores value under key, replacing any previous value.
func (sqlStore *SQLStore) SetSystemValue(key, value string) error {
	return sqlStore.setSystemValue(sqlStore.db, key, value)
}

func (sqlStore *SQLStore) getSystemValue(q queryer, key string) (string, error) {
	var value sql.NullString
	err := sqlStore.getBuilder(q, &value,
		sq.Select("Value").From(systemTableName).Where(sq.Eq{"Key": key}),
	)
	if err == sql.ErrNoRows {
		return "", nil
	} else if err != nil {
		return "", errors.Wrapf(err, "failed to get system value %s", key)
	}

	return value.String, nil
}

func (sqlStore *SQLStore) setSystemValue(e execer, key, value string) error {
	_, err := sqlStore.execBuilder(e, sq.
		Insert(systemTableName).
		Columns("Key", "Value").
		Values(key, value).
		Suffix("ON CONFLICT (Key) DO UPDATE SET Value = EXCLUDED.Value"),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to set system value %s", key)
	}

	return nil
}
