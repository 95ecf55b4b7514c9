package database

import (
	"database/sql"
	"fmt"
)

// execRequireRows returns notFoundErr when an exec affected zero rows,
// wrapping any underlying error first.
func execRequireRows(result sql.Result, err, notFoundErr error) error {
	if err != nil {
		return fmt.Errorf("exec failed: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return notFoundErr
	}
	return nil
}
