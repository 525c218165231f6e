package queries

import (
	"context"
	"database/sql"
	"fmt"
)

func run(ctx context.Context, db *sql.DB, table string, id int64) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", table)) // want "query built with fmt.Sprintf, use placeholders"
	if err != nil {
		return err
	}

	_ = db.QueryRow(fmt.Sprintf("SELECT id FROM notes WHERE id = %d", id)) // want "query built with fmt.Sprintf, use placeholders"

	_ = db.QueryRowContext(ctx, "SELECT id FROM notes WHERE id = $1", id)

	label := fmt.Sprintf("note %d", id)
	_ = label

	_, err = db.Exec("UPDATE notes SET title = $1 WHERE id = $2", fmt.Sprintf("copy of %d", id), id)

	return err
}
