package dao

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	"github.com/syssam/daox"
)

// MySQL error numbers indicating a constraint violation.
// https://dev.mysql.com/doc/mysql-errors/en/server-error-reference.html
var mysqlConstraintErrors = map[uint16]struct{}{
	1048: {}, // ER_BAD_NULL_ERROR
	1062: {}, // ER_DUP_ENTRY
	1169: {}, // ER_DUP_UNIQUE
	1216: {}, // ER_NO_REFERENCED_ROW
	1217: {}, // ER_ROW_IS_REFERENCED
	1451: {}, // ER_ROW_IS_REFERENCED_2
	1452: {}, // ER_NO_REFERENCED_ROW_2
	3819: {}, // ER_CHECK_CONSTRAINT_VIOLATED
}

// translateError maps backend-specific constraint violations to
// daox.ConstraintError so callers can branch with daox.IsConstraintError
// regardless of the driver in use. Unrecognized errors pass through
// unchanged.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		if _, ok := mysqlConstraintErrors[me.Number]; ok {
			return daox.NewConstraintError(me.Message, err)
		}
		return err
	}
	var pe *pq.Error
	if errors.As(err, &pe) {
		// Class 23 covers integrity constraint violations.
		if pe.Code.Class() == "23" {
			return daox.NewConstraintError(pe.Message, err)
		}
		return err
	}
	// SQLite drivers report constraint violations by message only.
	if s := err.Error(); strings.Contains(s, "constraint failed") || strings.Contains(s, "UNIQUE constraint") {
		return daox.NewConstraintError(s, err)
	}
	return err
}
