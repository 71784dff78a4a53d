// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

// Package store persists transactions, callback records and system values
// in PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"net/url"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	// enable the pq driver
	_ "github.com/lib/pq"
)

// SQLStore abstracts access to the database.
type SQLStore struct {
	db     *sqlx.DB
	logger logrus.FieldLogger
}

// New connects to the PostgreSQL database described by dsn.
func New(dsn string, logger logrus.FieldLogger) (*SQLStore, error) {
	dbURL, err := url.Parse(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse dsn as an url")
	}
	if dbURL.Scheme != "postgres" && dbURL.Scheme != "postgresql" {
		return nil, errors.Errorf("unsupported database scheme %q", dbURL.Scheme)
	}

	db, err := sqlx.Connect("postgres", dbURL.String())
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to postgres database")
	}

	return &SQLStore{
		db:     db,
		logger: logger.WithField("component", "store"),
	}, nil
}

// Close releases the underlying connection pool.
func (sqlStore *SQLStore) Close() error {
	return sqlStore.db.Close()
}

// builder is an interface describing a resource that can construct SQL and arguments.
//
// It exists to allow consuming any squirrel.*Builder type.
type builder interface {
	ToSql() (string, []interface{}, error)
}

// getBuilder queries for a single row, building the sql, and writing the result into dest.
//
// Dest may be a pointer to a simple type, or a struct with fields to be
// populated from the returned columns.
func (sqlStore *SQLStore) getBuilder(q sqlx.Queryer, dest interface{}, b builder) error {
	sql, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, "failed to build sql")
	}

	return sqlx.Get(q, dest, sqlStore.db.Rebind(sql), args...)
}

// selectBuilder queries for one or more rows, building the sql, and writing the result into dest.
func (sqlStore *SQLStore) selectBuilder(q sqlx.Queryer, dest interface{}, b builder) error {
	sql, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, "failed to build sql")
	}

	return sqlx.Select(q, dest, sqlStore.db.Rebind(sql), args...)
}

// execer is an interface describing a resource that can execute write queries.
//
// It allows the use of *sqlx.Db and *sqlx.Tx.
type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

// queryer reads rows; it is satisfied by *sqlx.DB and *sqlx.Tx.
type queryer interface {
	sqlx.Queryer
}

// dbInterface can both read and write.
type dbInterface interface {
	execer
	queryer
}

// exec executes the given query using positional arguments, automatically rebinding for the db.
func (sqlStore *SQLStore) exec(e execer, sql string, args ...interface{}) (sql.Result, error) {
	return e.Exec(sqlStore.db.Rebind(sql), args...)
}

// execBuilder executes the given query, building the necessary sql.
func (sqlStore *SQLStore) execBuilder(e execer, b builder) (sql.Result, error) {
	sql, args, err := b.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build sql")
	}

	return sqlStore.exec(e, sql, args...)
}

// execBuilderAffected executes the given query and reports how many rows it touched.
func (sqlStore *SQLStore) execBuilderAffected(e execer, b builder) (int64, error) {
	result, err := sqlStore.execBuilder(e, b)
	if err != nil {
		return 0, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to determine affected rows")
	}

	return rows, nil
}

func (sqlStore *SQLStore) beginTransaction() (*Transaction, error) {
	tx, err := sqlStore.db.BeginTxx(context.Background(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}

	return &Transaction{
		Tx:       tx,
		sqlStore: sqlStore,
	}, nil
}

// Transaction is a wrapper around *sqlx.Tx providing convenience methods.
type Transaction struct {
	*sqlx.Tx
	sqlStore  *SQLStore
	committed bool
}

// Commit commits the pending transaction.
func (t *Transaction) Commit() error {
	err := t.Tx.Commit()
	if err != nil {
		return errors.Wrap(err, "failed to commit the transaction")
	}
	t.committed = true
	return nil
}

// RollbackUnlessCommitted rolls the transaction back if it was not committed.
func (t *Transaction) RollbackUnlessCommitted() {
	if t.committed {
		return
	}
	err := t.Tx.Rollback()
	if err != nil {
		t.sqlStore.logger.WithError(err).Error("Failed to rollback uncommitted transaction")
	}
}

// tableExists determines if the given table name exists in the current schema.
func (sqlStore *SQLStore) tableExists(q queryer, tableName string) (bool, error) {
	var exists bool
	err := sqlx.Get(q, &exists, sqlStore.db.Rebind(
		"SELECT EXISTS(SELECT 1 FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = ?)"),
		tableName,
	)
	if err != nil {
		return false, errors.Wrapf(err, "failed to check if %s table exists", tableName)
	}

	return exists, nil
}
