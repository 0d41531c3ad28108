package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"net"

	"github.com/go-sql-driver/mysql"

	apperrors "clinic/internal/errors"
)

// MySQL server error numbers that mean the write broke a declared constraint.
var constraintErrors = map[uint16]bool{
	1048: true, // column cannot be null
	1062: true, // duplicate entry
	1216: true, // child row: foreign key fails (legacy)
	1217: true, // parent row: foreign key fails (legacy)
	1451: true, // cannot delete or update a parent row
	1452: true, // cannot add or update a child row
	3819: true, // check constraint violated
}

// MySQL server error numbers that mean the session is gone.
var connectionErrors = map[uint16]bool{
	1053: true, // server shutdown in progress
	1927: true, // connection was killed
	2006: true, // server has gone away
	2013: true, // lost connection during query
}

// classify turns a driver failure into a *StorageError. Errors that are already
// classified pass through untouched.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *apperrors.StorageError
	if errors.As(err, &se) {
		return err
	}
	return apperrors.NewStorageError(kindOf(err), op, err)
}

func kindOf(err error) apperrors.StorageKind {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch {
		case constraintErrors[myErr.Number]:
			return apperrors.StorageConstraintViolation
		case connectionErrors[myErr.Number]:
			return apperrors.StorageConnectionLost
		}
		return apperrors.StorageOther
	}

	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, mysql.ErrInvalidConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return apperrors.StorageConnectionLost
	}

	var netErr net.Error
	if errors.As(err, &netErr) && !errors.Is(err, context.DeadlineExceeded) {
		return apperrors.StorageConnectionLost
	}
	return apperrors.StorageOther
}
