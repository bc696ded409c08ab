package categories

import (
	"database/sql"
	"time"
)

type Category struct {
	ID        string         `db:"id"`
	Name      string         `db:"name"`
	Slug      sql.NullString `db:"slug"`
	CreatedAt time.Time      `db:"created_at"`
}
