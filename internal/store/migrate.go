// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package store

import (
	"github.com/blang/semver"
	"github.com/pkg/errors"
)

const (
	systemTableName   = "System"
	currentVersionKey = "CurrentVersion"
)

// CurrentVersion returns the schema version of the database, 0.0.0 when no
// migration has run yet.
func (sqlStore *SQLStore) CurrentVersion() (semver.Version, error) {
	return sqlStore.currentVersion(sqlStore.db)
}

func (sqlStore *SQLStore) currentVersion(q dbInterface) (semver.Version, error) {
	exists, err := sqlStore.tableExists(q, "system")
	if err != nil {
		return semver.Version{}, err
	}
	if !exists {
		return semver.MustParse("0.0.0"), nil
	}

	value, err := sqlStore.getSystemValue(q, currentVersionKey)
	if err != nil {
		return semver.Version{}, err
	}
	if value == "" {
		return semver.MustParse("0.0.0"), nil
	}

	version, err := semver.Parse(value)
	if err != nil {
		return semver.Version{}, errors.Wrapf(err, "failed to parse schema version %q", value)
	}

	return version, nil
}

// LatestVersion returns the version the migrations advance the schema to.
func LatestVersion() semver.Version {
	return migrations[len(migrations)-1].toVersion
}

// Migrate advances the schema to the latest supported version, applying
// each migration in its own database transaction.
func (sqlStore *SQLStore) Migrate() error {
	currentVersion, err := sqlStore.CurrentVersion()
	if err != nil {
		return err
	}

	logger := sqlStore.logger.WithField("version", currentVersion.String())
	if currentVersion.GT(LatestVersion()) {
		return errors.Errorf("schema version %s is newer than this binary supports (%s)", currentVersion, LatestVersion())
	}

	for _, m := range migrations {
		if !currentVersion.EQ(m.fromVersion) {
			continue
		}

		err = sqlStore.applyMigration(m)
		if err != nil {
			return errors.Wrapf(err, "failed to migrate schema from %s to %s", m.fromVersion, m.toVersion)
		}

		currentVersion = m.toVersion
		logger.WithField("to", m.toVersion.String()).Info("Migrated schema")
	}

	return nil
}

func (sqlStore *SQLStore) applyMigration(m migration) error {
	tx, err := sqlStore.beginTransaction()
	if err != nil {
		return err
	}
	defer tx.RollbackUnlessCommitted()

	// Serializes concurrent migrations from several replicas.
	_, err = tx.Exec("SELECT pg_advisory_xact_lock(4207)")
	if err != nil {
		return errors.Wrap(err, "failed to acquire migration lock")
	}

	version, err := sqlStore.currentVersion(tx)
	if err != nil {
		return err
	}
	if !version.EQ(m.fromVersion) {
		// Another replica already applied it.
		return nil
	}

	err = m.migrationFunc(tx)
	if err != nil {
		return err
	}

	err = sqlStore.setSystemValue(tx, currentVersionKey, m.toVersion.String())
	if err != nil {
		return err
	}

	return tx.Commit()
}
