package db

import (
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// IsTransient reports whether err is a transient connectivity failure — a
// recoverable, short-lived inability to use a pooled connection, as opposed
// to a data-integrity or logic error. Only errors of this kind are eligible
// for the single read-path retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08: connection exceptions. 57P01: server shut down the
		// connection (admin shutdown).
		return strings.HasPrefix(pgErr.Code, "08") || pgErr.Code == "57P01"
	}

	return false
}
