package books

import (
	"database/sql"
	"time"
)

type Book struct {
	ID           string         `db:"id"`
	Title        string         `db:"title"`
	Author       string         `db:"author"`
	Quantity     int            `db:"quantity"`
	CategoryID   sql.NullString `db:"category_id"`
	CategoryName sql.NullString `db:"category_name"`
	Archived     bool           `db:"archived"`
	CreatedAt    time.Time      `db:"created_at"`
}

type Filter struct {
	CategoryID      *string
	IncludeArchived bool
}
