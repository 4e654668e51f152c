package apperr

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// FromDB classifies a datastore error. The gorm handle must be opened with
// TranslateError so that constraint violations arrive as gorm sentinels.
// what names the entity for NotFound messages ("ticket 42").
func FromDB(err error, what string) error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return err
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &Error{Kind: KindNotFound, Msg: what + " not found"}
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return &Error{Kind: KindReferentialConflict, Msg: what + " is still referenced by dependent records", Err: err}
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &Error{Kind: KindInvalidInput, Msg: what + " already exists", Err: err}
	case unavailable(err):
		return &Error{Kind: KindUpstreamUnavailable, Msg: "datastore unavailable", Err: err}
	}
	return &Error{Kind: KindInternal, Msg: what, Err: err}
}

func unavailable(err error) bool {
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
