package db

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "clinic/internal/errors"
)

func newMockExecutor(t *testing.T) (*Executor, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	pool := NewPool(sqlDB, PoolConfig{Size: 2})
	return NewExecutor(pool, zerolog.Nop()), mock
}

func TestExecuteQuery_FetchOne(t *testing.T) {
	exec, mock := newMockExecutor(t)

	mock.ExpectQuery("SELECT id, email FROM users WHERE email = ?").
		WithArgs("a@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}).AddRow(int64(7), "a@x.com"))

	res, err := exec.ExecuteQuery(context.Background(), "SELECT id, email FROM users WHERE email = ?", FetchOne, "a@x.com")
	require.NoError(t, err)

	rec, ok := res.Record()
	require.True(t, ok)
	assert.Equal(t, []string{"id", "email"}, rec.Columns())
	assert.Equal(t, uint(7), rec.Uint("id"))
	assert.Equal(t, "a@x.com", rec.String("email"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteQuery_FetchOneNoRow(t *testing.T) {
	exec, mock := newMockExecutor(t)

	mock.ExpectQuery("SELECT id FROM users WHERE email = ?").
		WithArgs("missing@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	res, err := exec.ExecuteQuery(context.Background(), "SELECT id FROM users WHERE email = ?", FetchOne, "missing@x.com")
	require.NoError(t, err)

	_, ok := res.Record()
	assert.False(t, ok)
	assert.Empty(t, res.Rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteQuery_FetchAllKeepsOrder(t *testing.T) {
	exec, mock := newMockExecutor(t)

	mock.ExpectQuery("SELECT id, name FROM branches ORDER BY name").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(int64(2), "Downtown").
			AddRow(int64(1), "Uptown"))

	res, err := exec.ExecuteQuery(context.Background(), "SELECT id, name FROM branches ORDER BY name", FetchAll)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "Downtown", res.Rows[0].String("name"))
	assert.Equal(t, "Uptown", res.Rows[1].String("name"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteQuery_FetchNoneCommits(t *testing.T) {
	exec, mock := newMockExecutor(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE sessions SET is_active = FALSE WHERE token = ?").
		WithArgs("tok").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := exec.ExecuteQuery(context.Background(), "UPDATE sessions SET is_active = FALSE WHERE token = ?", FetchNone, "tok")
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.RowsAffected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteQuery_UnknownMode(t *testing.T) {
	exec, _ := newMockExecutor(t)

	_, err := exec.ExecuteQuery(context.Background(), "SELECT 1", FetchMode(42))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestExec_ConstraintViolationRollsBack(t *testing.T) {
	exec, mock := newMockExecutor(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users (email) VALUES (?)").
		WithArgs("dup@x.com").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	_, err := exec.Exec(context.Background(), "INSERT INTO users (email) VALUES (?)", "dup@x.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConstraintViolation)

	var se *apperrors.StorageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, apperrors.StorageConstraintViolation, se.Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_CommitsOnce(t *testing.T) {
	exec, mock := newMockExecutor(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE appointments SET status = ? WHERE id = ?").
		WithArgs("cancelled", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE time_slots SET is_available = TRUE WHERE id = ?").
		WithArgs(9).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := exec.WithTx(context.Background(), func(tx *Tx) error {
		if _, err := tx.Exec(context.Background(), "UPDATE appointments SET status = ? WHERE id = ?", "cancelled", 3); err != nil {
			return err
		}
		_, err := tx.Exec(context.Background(), "UPDATE time_slots SET is_available = TRUE WHERE id = ?", 9)
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	exec, mock := newMockExecutor(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := exec.WithTx(context.Background(), func(tx *Tx) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	exec, mock := newMockExecutor(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = exec.WithTx(context.Background(), func(tx *Tx) error { panic("kaboom") })
	})
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, int64(0), exec.Pool().Stats().InUse)
}

func TestExecuteStoredProcedure_DrainsResultSetsAndReadsOut(t *testing.T) {
	exec, mock := newMockExecutor(t)

	slots := sqlmock.NewRows([]string{"slot_id", "start_time", "end_time", "is_available"}).
		AddRow(int64(1), "09:00:00", "09:30:00", int64(1)).
		AddRow(int64(2), "09:30:00", "10:00:00", int64(0))
	visits := sqlmock.NewRows([]string{"appointment_id", "patient_id", "status", "start_time"}).
		AddRow(int64(11), int64(4), "scheduled", "09:30:00")

	mock.ExpectBegin()
	mock.ExpectQuery("CALL sp_doctor_schedule(?, ?, @_sp_doctor_schedule_2)").
		WithArgs(5, "2026-10-18").
		WillReturnRows(slots, visits)
	mock.ExpectQuery("SELECT @_sp_doctor_schedule_2 AS `total`").
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(int64(1)))
	mock.ExpectCommit()

	rows, out, err := exec.ExecuteStoredProcedure(context.Background(), "sp_doctor_schedule", 5, "2026-10-18", Out("total"))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, uint(1), rows[0].Uint("slot_id"))
	assert.False(t, rows[1].Bool("is_available"))
	assert.True(t, rows[2].Has("appointment_id"))
	assert.Equal(t, int64(1), out["total"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteStoredProcedure_NoResultSets(t *testing.T) {
	exec, mock := newMockExecutor(t)

	mock.ExpectBegin()
	mock.ExpectQuery("CALL sp_touch(?)").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{}))
	mock.ExpectCommit()

	rows, out, err := exec.ExecuteStoredProcedure(context.Background(), "sp_touch", 1)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Empty(t, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteStoredProcedure_FailureRollsBack(t *testing.T) {
	exec, mock := newMockExecutor(t)

	mock.ExpectBegin()
	mock.ExpectQuery("CALL sp_doctor_schedule(?, ?)").
		WithArgs(5, "bad").
		WillReturnError(&mysql.MySQLError{Number: 1292, Message: "Incorrect date value"})
	mock.ExpectRollback()

	_, _, err := exec.ExecuteStoredProcedure(context.Background(), "sp_doctor_schedule", 5, "bad")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrStorage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteFunction(t *testing.T) {
	exec, mock := newMockExecutor(t)

	mock.ExpectQuery("SELECT fn_branch_doctor_count(?) AS result").
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"result"}).AddRow(int64(4)))

	v, err := exec.ExecuteFunction(context.Background(), "fn_branch_doctor_count", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(4), v)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteFunction_NoArgs(t *testing.T) {
	exec, mock := newMockExecutor(t)

	mock.ExpectQuery("SELECT fn_now() AS result").
		WillReturnRows(sqlmock.NewRows([]string{"result"}).AddRow(nil))

	v, err := exec.ExecuteFunction(context.Background(), "fn_now")
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoutineNamesAreValidated(t *testing.T) {
	exec, mock := newMockExecutor(t)

	names := []string{
		"",
		"sp; DROP TABLE users",
		"fn()",
		"1abc",
		"a.b.c",
		"name`",
	}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			_, _, err := exec.ExecuteStoredProcedure(context.Background(), name)
			assert.ErrorIs(t, err, apperrors.ErrValidation)

			_, err = exec.ExecuteFunction(context.Background(), name)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}

	_, _, err := exec.ExecuteStoredProcedure(context.Background(), "sp_ok", Out("bad name"))
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryOne_ConnectionLost(t *testing.T) {
	exec, mock := newMockExecutor(t)

	mock.ExpectQuery("SELECT 1").WillReturnError(&mysql.MySQLError{Number: 2006, Message: "MySQL server has gone away"})

	_, _, err := exec.QueryOne(context.Background(), "SELECT 1")
	assert.ErrorIs(t, err, apperrors.ErrConnectionLost)

	var se *apperrors.StorageError
	require.True(t, errors.As(err, &se))
	assert.True(t, se.Retryable())
}
