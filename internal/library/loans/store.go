package loans

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"scribe-backend/internal/library/availability"
	"scribe-backend/internal/platform/db"
	"scribe-backend/internal/platform/paging"
)

// Queries は Tx の内外どちらでも使える読み取り。見つからなければ nil, nil。
type Queries interface {
	GetApplication(ctx context.Context, id string) (*Application, error)
	GetLoan(ctx context.Context, id string) (*Loan, error)
}

type TxRepository interface {
	Queries

	// LockApplicant は申請者のアカウント行をロックする。行が無ければ false。
	LockApplicant(ctx context.Context, applicantID string) (bool, error)
	CountApplicationsInRange(ctx context.Context, applicantID string, from, to time.Time, statuses ...Status) (int, error)
	// ExistingBooks は ids のうちアーカイブされていない本の id を返す。
	ExistingBooks(ctx context.Context, ids []string) ([]string, error)
	InsertApplication(ctx context.Context, a *Application) error

	LockApplication(ctx context.Context, id string) (*Application, error)
	// LockBooks は id 昇順で行ロックし、所蔵数を返す。アーカイブ済みは含まない。
	LockBooks(ctx context.Context, ids []string) (map[string]int, error)
	LendingCounts(ctx context.Context, ids []string, now time.Time) (map[string]int, error)
	// ResolveApplication は Open の申請だけを更新する。Open でなければ false。
	ResolveApplication(ctx context.Context, a *Application) (bool, error)
	InsertLoans(ctx context.Context, ls []Loan) error

	LockLoan(ctx context.Context, id string) (*Loan, error)
	UpdateLoan(ctx context.Context, l *Loan) error
}

type Repository interface {
	Queries
	ListApplications(ctx context.Context, f ApplicationFilter, p paging.Params) ([]Application, int64, error)
	ListLoans(ctx context.Context, f LoanFilter, p paging.Params) ([]Loan, int64, error)
	LoansByApplication(ctx context.Context, applicationID string) ([]Loan, error)
	CancelStale(ctx context.Context, cutoff, now time.Time) (int64, error)
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
}

type queries struct {
	q db.DBTX
	// Tx 内では貸出数をロック付きで数える
	locking bool
}

type Store struct {
	*queries
	conn *sqlx.DB
}

func NewStore(conn *sqlx.DB) *Store {
	return &Store{queries: &queries{q: conn}, conn: conn}
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return db.RunInTx(ctx, s.conn, db.LockingTx(), func(ctx context.Context, tx db.DBTX) error {
		return fn(ctx, &queries{q: tx, locking: true})
	})
}

// ===== loan_applications =====

const applicationSelect = `
SELECT id, applicant_id, status, application_date, actor_id, decision_date
FROM loan_applications`

func (s *queries) GetApplication(ctx context.Context, id string) (*Application, error) {
	return s.getApplication(ctx, applicationSelect+` WHERE id = ?`, id)
}

func (s *queries) LockApplication(ctx context.Context, id string) (*Application, error) {
	return s.getApplication(ctx, applicationSelect+` WHERE id = ? FOR UPDATE`, id)
}

func (s *queries) getApplication(ctx context.Context, q, id string) (*Application, error) {
	var a Application
	err := s.q.GetContext(ctx, &a, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := s.q.SelectContext(ctx, &a.BookIDs,
		`SELECT book_id FROM loan_application_items WHERE application_id = ? ORDER BY book_id`, id); err != nil {
		return nil, fmt.Errorf("select application items: %w", err)
	}
	return &a, nil
}

func (s *queries) ListApplications(ctx context.Context, f ApplicationFilter, p paging.Params) ([]Application, int64, error) {
	where := strings.Builder{}
	where.WriteString(` WHERE 1=1`)
	args := []any{}
	if f.ApplicantID != nil {
		where.WriteString(` AND applicant_id = ?`)
		args = append(args, *f.ApplicantID)
	}
	if f.Status != nil {
		where.WriteString(` AND status = ?`)
		args = append(args, *f.Status)
	}

	var total int64
	if err := s.q.GetContext(ctx, &total, `SELECT COUNT(*) FROM loan_applications`+where.String(), args...); err != nil {
		return nil, 0, err
	}

	apps := []Application{}
	q := applicationSelect + where.String() + ` ORDER BY id ASC LIMIT ? OFFSET ?`
	if err := s.q.SelectContext(ctx, &apps, q, append(args, p.Limit(), p.Offset())...); err != nil {
		return nil, 0, err
	}
	if err := s.attachItems(ctx, apps); err != nil {
		return nil, 0, err
	}
	return apps, total, nil
}

type itemRow struct {
	ApplicationID string `db:"application_id"`
	BookID        string `db:"book_id"`
}

// attachItems はページ分の明細を 1 クエリで取る
func (s *queries) attachItems(ctx context.Context, apps []Application) error {
	if len(apps) == 0 {
		return nil
	}
	ids := make([]string, 0, len(apps))
	for _, a := range apps {
		ids = append(ids, a.ID)
	}
	q, args, err := sqlx.In(`
SELECT application_id, book_id FROM loan_application_items
WHERE application_id IN (?)
ORDER BY application_id, book_id`, ids)
	if err != nil {
		return err
	}
	var rows []itemRow
	if err := s.q.SelectContext(ctx, &rows, s.q.Rebind(q), args...); err != nil {
		return fmt.Errorf("select application items: %w", err)
	}
	byApp := make(map[string][]string, len(apps))
	for _, r := range rows {
		byApp[r.ApplicationID] = append(byApp[r.ApplicationID], r.BookID)
	}
	for i := range apps {
		apps[i].BookIDs = byApp[apps[i].ID]
	}
	return nil
}

func (s *queries) LockApplicant(ctx context.Context, applicantID string) (bool, error) {
	var id string
	err := s.q.GetContext(ctx, &id, `SELECT id FROM accounts WHERE id = ? FOR UPDATE`, applicantID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *queries) CountApplicationsInRange(ctx context.Context, applicantID string, from, to time.Time, statuses ...Status) (int, error) {
	q, args, err := sqlx.In(`
SELECT COUNT(*) FROM loan_applications
WHERE applicant_id = ? AND status IN (?) AND application_date >= ? AND application_date < ?`,
		applicantID, statuses, from, to)
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.q.GetContext(ctx, &n, s.q.Rebind(q), args...); err != nil {
		return 0, fmt.Errorf("count applications: %w", err)
	}
	return n, nil
}

func (s *queries) ExistingBooks(ctx context.Context, ids []string) ([]string, error) {
	found := []string{}
	if len(ids) == 0 {
		return found, nil
	}
	q, args, err := sqlx.In(`SELECT id FROM books WHERE id IN (?) AND archived = 0`, ids)
	if err != nil {
		return nil, err
	}
	if err := s.q.SelectContext(ctx, &found, s.q.Rebind(q), args...); err != nil {
		return nil, err
	}
	return found, nil
}

func (s *queries) InsertApplication(ctx context.Context, a *Application) error {
	const q = `
INSERT INTO loan_applications (id, applicant_id, status, application_date, actor_id, decision_date)
VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := s.q.ExecContext(ctx, q, a.ID, a.ApplicantID, a.Status, a.ApplicationDate, a.ActorID, a.DecisionDate); err != nil {
		return err
	}

	items := make([]itemRow, 0, len(a.BookIDs))
	for _, b := range a.BookIDs {
		items = append(items, itemRow{ApplicationID: a.ID, BookID: b})
	}
	_, err := sqlx.NamedExecContext(ctx, s.q,
		`INSERT INTO loan_application_items (application_id, book_id) VALUES (:application_id, :book_id)`, items)
	return err
}

func (s *queries) LockBooks(ctx context.Context, ids []string) (map[string]int, error) {
	out := make(map[string]int, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	q, args, err := sqlx.In(`
SELECT id, quantity FROM books
WHERE id IN (?) AND archived = 0
ORDER BY id
FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		ID       string `db:"id"`
		Quantity int    `db:"quantity"`
	}
	if err := s.q.SelectContext(ctx, &rows, s.q.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("lock books: %w", err)
	}
	for _, r := range rows {
		out[r.ID] = r.Quantity
	}
	return out, nil
}

func (s *queries) LendingCounts(ctx context.Context, ids []string, now time.Time) (map[string]int, error) {
	if s.locking {
		return availability.CountActiveLocked(ctx, s.q, ids, now)
	}
	return availability.CountActive(ctx, s.q, ids, now)
}

func (s *queries) ResolveApplication(ctx context.Context, a *Application) (bool, error) {
	const q = `
UPDATE loan_applications SET status = ?, actor_id = ?, decision_date = ?
WHERE id = ? AND status = ?`
	res, err := s.q.ExecContext(ctx, q, a.Status, a.ActorID, a.DecisionDate, a.ID, StatusOpen)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CancelStale は cutoff より前に出された Open の申請を取り消す。actor_id は空のまま。
func (s *queries) CancelStale(ctx context.Context, cutoff, now time.Time) (int64, error) {
	const q = `
UPDATE loan_applications SET status = ?, decision_date = ?
WHERE status = ? AND application_date < ?`
	res, err := s.q.ExecContext(ctx, q, StatusCancelled, now, StatusOpen, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ===== loans =====

const loanSelect = `
SELECT l.id, l.book_id, b.title AS book_title, l.applicant_id, l.loan_application_id,
       l.loan_date, l.due_date, l.return_date, l.extension_count
FROM loans l
JOIN books b ON b.id = l.book_id`

func (s *queries) InsertLoans(ctx context.Context, ls []Loan) error {
	if len(ls) == 0 {
		return nil
	}
	_, err := sqlx.NamedExecContext(ctx, s.q, `
INSERT INTO loans (id, book_id, applicant_id, loan_application_id, loan_date, due_date, return_date, extension_count)
VALUES (:id, :book_id, :applicant_id, :loan_application_id, :loan_date, :due_date, :return_date, :extension_count)`, ls)
	return err
}

func (s *queries) GetLoan(ctx context.Context, id string) (*Loan, error) {
	return s.getLoan(ctx, loanSelect+` WHERE l.id = ?`, id)
}

func (s *queries) LockLoan(ctx context.Context, id string) (*Loan, error) {
	return s.getLoan(ctx, loanSelect+` WHERE l.id = ? FOR UPDATE OF l`, id)
}

func (s *queries) getLoan(ctx context.Context, q, id string) (*Loan, error) {
	var l Loan
	err := s.q.GetContext(ctx, &l, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *queries) UpdateLoan(ctx context.Context, l *Loan) error {
	const q = `UPDATE loans SET due_date = ?, return_date = ?, extension_count = ? WHERE id = ?`
	_, err := s.q.ExecContext(ctx, q, l.DueDate, l.ReturnDate, l.ExtensionCount, l.ID)
	return err
}

func (s *queries) ListLoans(ctx context.Context, f LoanFilter, p paging.Params) ([]Loan, int64, error) {
	where := strings.Builder{}
	where.WriteString(` WHERE 1=1`)
	args := []any{}
	if f.ApplicantID != nil {
		where.WriteString(` AND l.applicant_id = ?`)
		args = append(args, *f.ApplicantID)
	}
	if f.ActiveAt != nil {
		where.WriteString(` AND (l.return_date IS NULL OR l.due_date > ?)`)
		args = append(args, *f.ActiveAt)
	}

	var total int64
	if err := s.q.GetContext(ctx, &total, `SELECT COUNT(*) FROM loans l`+where.String(), args...); err != nil {
		return nil, 0, err
	}

	items := []Loan{}
	q := loanSelect + where.String() + ` ORDER BY l.id ASC LIMIT ? OFFSET ?`
	if err := s.q.SelectContext(ctx, &items, q, append(args, p.Limit(), p.Offset())...); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *queries) LoansByApplication(ctx context.Context, applicationID string) ([]Loan, error) {
	items := []Loan{}
	err := s.q.SelectContext(ctx, &items, loanSelect+` WHERE l.loan_application_id = ? ORDER BY l.book_id`, applicationID)
	return items, err
}
