package loans

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"scribe-backend/internal/library/availability"
	"scribe-backend/internal/platform/auth"
	"scribe-backend/internal/platform/paging"
)

// memRepo は Repository と TxRepository の両方を満たす。WithTx はエラー時に状態を巻き戻す。
type memRepo struct {
	accounts map[string]bool
	books    map[string]int
	apps     map[string]Application
	loans    map[string]Loan

	// LockBooks に渡された順
	lockedBooks [][]string
}

func newMemRepo() *memRepo {
	return &memRepo{
		accounts: map[string]bool{},
		books:    map[string]int{},
		apps:     map[string]Application{},
		loans:    map[string]Loan{},
	}
}

func (m *memRepo) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	apps, loans := maps.Clone(m.apps), maps.Clone(m.loans)
	if err := fn(ctx, m); err != nil {
		m.apps, m.loans = apps, loans
		return err
	}
	return nil
}

func (m *memRepo) GetApplication(_ context.Context, id string) (*Application, error) {
	a, ok := m.apps[id]
	if !ok {
		return nil, nil
	}
	a.BookIDs = slices.Clone(a.BookIDs)
	return &a, nil
}

func (m *memRepo) LockApplication(ctx context.Context, id string) (*Application, error) {
	return m.GetApplication(ctx, id)
}

func (m *memRepo) GetLoan(_ context.Context, id string) (*Loan, error) {
	l, ok := m.loans[id]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (m *memRepo) LockLoan(ctx context.Context, id string) (*Loan, error) { return m.GetLoan(ctx, id) }

func (m *memRepo) LockApplicant(_ context.Context, id string) (bool, error) {
	return m.accounts[id], nil
}

func (m *memRepo) CountApplicationsInRange(_ context.Context, applicantID string, from, to time.Time, statuses ...Status) (int, error) {
	n := 0
	for _, a := range m.apps {
		if a.ApplicantID != applicantID || !slices.Contains(statuses, a.Status) {
			continue
		}
		if !a.ApplicationDate.Before(from) && a.ApplicationDate.Before(to) {
			n++
		}
	}
	return n, nil
}

func (m *memRepo) ExistingBooks(_ context.Context, ids []string) ([]string, error) {
	found := []string{}
	for _, id := range ids {
		if _, ok := m.books[id]; ok {
			found = append(found, id)
		}
	}
	return found, nil
}

func (m *memRepo) InsertApplication(_ context.Context, a *Application) error {
	cp := *a
	cp.BookIDs = slices.Clone(a.BookIDs)
	slices.Sort(cp.BookIDs)
	m.apps[a.ID] = cp
	return nil
}

func (m *memRepo) LockBooks(_ context.Context, ids []string) (map[string]int, error) {
	m.lockedBooks = append(m.lockedBooks, slices.Clone(ids))
	out := map[string]int{}
	for _, id := range ids {
		if q, ok := m.books[id]; ok {
			out[id] = q
		}
	}
	return out, nil
}

func (m *memRepo) LendingCounts(_ context.Context, ids []string, now time.Time) (map[string]int, error) {
	out := map[string]int{}
	for _, l := range m.loans {
		if slices.Contains(ids, l.BookID) && availability.IsActive(l.returnDate(), l.DueDate, now) {
			out[l.BookID]++
		}
	}
	return out, nil
}

func (m *memRepo) ResolveApplication(_ context.Context, a *Application) (bool, error) {
	cur, ok := m.apps[a.ID]
	if !ok || cur.Status != StatusOpen {
		return false, nil
	}
	cur.Status, cur.ActorID, cur.DecisionDate = a.Status, a.ActorID, a.DecisionDate
	m.apps[a.ID] = cur
	return true, nil
}

func (m *memRepo) InsertLoans(_ context.Context, ls []Loan) error {
	for _, l := range ls {
		m.loans[l.ID] = l
	}
	return nil
}

func (m *memRepo) UpdateLoan(_ context.Context, l *Loan) error {
	m.loans[l.ID] = *l
	return nil
}

func (m *memRepo) ListApplications(_ context.Context, f ApplicationFilter, p paging.Params) ([]Application, int64, error) {
	var all []Application
	for _, a := range m.apps {
		if f.ApplicantID != nil && a.ApplicantID != *f.ApplicantID {
			continue
		}
		if f.Status != nil && a.Status != *f.Status {
			continue
		}
		all = append(all, a)
	}
	slices.SortFunc(all, func(x, y Application) int { return strings.Compare(x.ID, y.ID) })
	return page(all, p), int64(len(all)), nil
}

func (m *memRepo) ListLoans(_ context.Context, f LoanFilter, p paging.Params) ([]Loan, int64, error) {
	var all []Loan
	for _, l := range m.loans {
		if f.ApplicantID != nil && l.ApplicantID != *f.ApplicantID {
			continue
		}
		if f.ActiveAt != nil && !availability.IsActive(l.returnDate(), l.DueDate, *f.ActiveAt) {
			continue
		}
		all = append(all, l)
	}
	slices.SortFunc(all, func(x, y Loan) int { return strings.Compare(x.ID, y.ID) })
	return page(all, p), int64(len(all)), nil
}

func (m *memRepo) LoansByApplication(_ context.Context, applicationID string) ([]Loan, error) {
	out := []Loan{}
	for _, l := range m.loans {
		if l.ApplicationID == applicationID {
			out = append(out, l)
		}
	}
	slices.SortFunc(out, func(x, y Loan) int { return strings.Compare(x.BookID, y.BookID) })
	return out, nil
}

func (m *memRepo) CancelStale(_ context.Context, cutoff, now time.Time) (int64, error) {
	var n int64
	for id, a := range m.apps {
		if a.Status == StatusOpen && a.ApplicationDate.Before(cutoff) {
			a.Status = StatusCancelled
			a.DecisionDate.Time, a.DecisionDate.Valid = now, true
			m.apps[id] = a
			n++
		}
	}
	return n, nil
}

func page[T any](all []T, p paging.Params) []T {
	start := min(p.Offset(), len(all))
	end := min(start+p.Limit(), len(all))
	return all[start:end]
}

// ===== clock / ids =====

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time { return f.t }

type seqIDs struct{ n int }

func (s *seqIDs) NewULID(time.Time) string {
	s.n++
	return fmt.Sprintf("01J00000000000000000000%03d", s.n)
}

var testNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

const (
	alice = "01J0000000000000000000A11C"
	bob   = "01J0000000000000000000B0B0"
	admin = "01J0000000000000000000AD00"

	book1 = "01J000000000000000000B0001"
	book2 = "01J000000000000000000B0002"
	book3 = "01J000000000000000000B0003"
	book4 = "01J000000000000000000B0004"
	book5 = "01J000000000000000000B0005"
	book6 = "01J000000000000000000B0006"
)

var (
	asAlice = auth.Principal{ID: alice, Role: auth.RoleUser}
	asBob   = auth.Principal{ID: bob, Role: auth.RoleUser}
	asAdmin = auth.Principal{ID: admin, Role: auth.RoleAdministrator}
)

func newTestService() (*Service, *memRepo, *fakeClock) {
	repo := newMemRepo()
	for _, id := range []string{alice, bob, admin} {
		repo.accounts[id] = true
	}
	for _, id := range []string{book1, book2, book3, book4, book5, book6} {
		repo.books[id] = 1
	}
	clk := &fakeClock{t: testNow}
	svc := NewService(repo)
	svc.clock = clk
	svc.id = &seqIDs{}
	return svc, repo, clk
}
