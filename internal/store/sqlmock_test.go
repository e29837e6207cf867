package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-alerts/internal/types"
)

func newMockDB(t *testing.T, dialect Dialect) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, dialect, WithClock(func() time.Time { return day0 })), mock
}

func TestUpsert_RollsBackOnWriteFailure(t *testing.T) {
	d, mock := newMockDB(t, DialectSQLite)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM offers WHERE external_id = \?`).
		WithArgs("A1").
		WillReturnRows(sqlmock.NewRows(offerColumns))
	mock.ExpectExec(`INSERT INTO offers`).WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	created, err := d.Upsert(context.Background(), posting("A1", 1), nil)
	require.Error(t, err)
	assert.False(t, created)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_CommitFailure(t *testing.T) {
	d, mock := newMockDB(t, DialectSQLite)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM offers WHERE external_id = \?`).
		WithArgs("A1").
		WillReturnRows(sqlmock.NewRows(offerColumns))
	mock.ExpectExec(`INSERT INTO offers`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit().WillReturnError(errors.New("database is locked"))

	_, err := d.Upsert(context.Background(), posting("A1", 1), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to commit")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_PostgresLocksRow(t *testing.T) {
	d, mock := newMockDB(t, DialectPostgres)

	existing := sqlmock.NewRows(offerColumns).AddRow(
		"A1", "old title", "ACME", "68 - MULHOUSE", "68", day0,
		"stored description", "CDI", "", "", "", 1.0, `["CORE_ROBOTICS"]`,
		"applied", day0, day0, 0, nil, nil, nil,
	)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM offers WHERE external_id = \$1 FOR UPDATE`).
		WithArgs("A1").
		WillReturnRows(existing)
	mock.ExpectExec(`UPDATE offers SET (.+) WHERE external_id = \$15`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	created, err := d.Upsert(context.Background(), posting("A1", 2), nil)
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_LookupFailure(t *testing.T) {
	d, mock := newMockDB(t, DialectSQLite)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM offers`).WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, err := d.Upsert(context.Background(), posting("A1", 1), nil)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetStatus_NoRowsIsNotFound(t *testing.T) {
	d, mock := newMockDB(t, DialectPostgres)

	mock.ExpectExec(`UPDATE offers SET status = \$1, status_changed_at = \$2, followup_acked = \$3 WHERE external_id = \$4`).
		WithArgs("rejected", day0, 0, "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := d.SetStatus(context.Background(), "ghost", types.StatusRejected)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkNotified_RollsBackOnFailure(t *testing.T) {
	d, mock := newMockDB(t, DialectSQLite)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE offers SET notified_at = \? WHERE external_id IN \(\?,\?\)`).
		WillReturnError(errors.New("constraint failed"))
	mock.ExpectRollback()

	err := d.MarkNotified(context.Background(), []string{"A", "B"}, day0)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNew_PlaceholderPerDialect(t *testing.T) {
	tests := []struct {
		dialect Dialect
		want    string
	}{
		{DialectSQLite, "SELECT external_id FROM offers WHERE status = ?"},
		{DialectPostgres, "SELECT external_id FROM offers WHERE status = $1"},
	}

	for _, tt := range tests {
		t.Run(string(tt.dialect), func(t *testing.T) {
			d, _ := newMockDB(t, tt.dialect)
			query, args, err := d.sb.Select("external_id").From("offers").Where(sq.Eq{"status": "new"}).ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.want, query)
			assert.Equal(t, []any{"new"}, args)
		})
	}
}
