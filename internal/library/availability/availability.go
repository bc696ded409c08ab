// Package availability computes how many copies of a book are currently on loan.
//
// A loan is active while it has no return date or its due date is still in the
// future. Lending counts are never stored; they are queried on demand, inside the
// caller's transaction when the count guards a write.
package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"scribe-backend/internal/platform/db"
)

func IsActive(returnDate *time.Time, dueDate, now time.Time) bool {
	return returnDate == nil || dueDate.After(now)
}

// Available は表示用。貸出数が所蔵数を超えていても 0 で止める。
func Available(quantity, lending int) int {
	if lending >= quantity {
		return 0
	}
	return quantity - lending
}

const countActiveQuery = `
SELECT book_id, COUNT(*) AS lending
FROM loans
WHERE book_id IN (?) AND (return_date IS NULL OR due_date > ?)
GROUP BY book_id
`

type lendingRow struct {
	BookID  string `db:"book_id"`
	Lending int    `db:"lending"`
}

// CountActive returns the active loan count per book id in one query. Books
// without active loans are absent from the map.
func CountActive(ctx context.Context, q db.DBTX, bookIDs []string, now time.Time) (map[string]int, error) {
	return countActive(ctx, q, countActiveQuery, bookIDs, now)
}

// CountActiveLocked is CountActive as a locking read (FOR SHARE). Inside a
// transaction it sees the latest committed loans instead of the snapshot taken
// by the transaction's first plain read, and holds the counted rows until commit.
func CountActiveLocked(ctx context.Context, q db.DBTX, bookIDs []string, now time.Time) (map[string]int, error) {
	return countActive(ctx, q, countActiveQuery+"FOR SHARE\n", bookIDs, now)
}

func countActive(ctx context.Context, q db.DBTX, base string, bookIDs []string, now time.Time) (map[string]int, error) {
	out := make(map[string]int, len(bookIDs))
	if len(bookIDs) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In(base, bookIDs, now)
	if err != nil {
		return nil, fmt.Errorf("build lending query: %w", err)
	}
	var rows []lendingRow
	if err := q.SelectContext(ctx, &rows, q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("count active loans: %w", err)
	}
	for _, r := range rows {
		out[r.BookID] = r.Lending
	}
	return out, nil
}
