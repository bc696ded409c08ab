package books

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scribe-backend/internal/library/availability"
	"scribe-backend/internal/platform/paging"
	"scribe-backend/internal/platform/problem"
)

type memLoan struct {
	bookID   string
	due      time.Time
	returned *time.Time
}

type memRepo struct {
	books      map[string]Book
	categories map[string]string
	loans      []memLoan
	// 履歴から参照されている本（物理削除すると FK エラー）
	referenced map[string]bool
	lendingQs  int
}

func newMemRepo() *memRepo {
	return &memRepo{
		books:      map[string]Book{},
		categories: map[string]string{},
		referenced: map[string]bool{},
	}
}

func (m *memRepo) Get(_ context.Context, id string) (*Book, error) {
	if b, ok := m.books[id]; ok {
		return &b, nil
	}
	return nil, nil
}

func (m *memRepo) LockBook(ctx context.Context, id string) (*Book, error) { return m.Get(ctx, id) }

func (m *memRepo) CategoryName(_ context.Context, id string) (string, bool, error) {
	name, ok := m.categories[id]
	return name, ok, nil
}

func (m *memRepo) LendingCounts(_ context.Context, ids []string, now time.Time) (map[string]int, error) {
	m.lendingQs++
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	out := map[string]int{}
	for _, l := range m.loans {
		if want[l.bookID] && availability.IsActive(l.returned, l.due, now) {
			out[l.bookID]++
		}
	}
	return out, nil
}

func (m *memRepo) List(_ context.Context, f Filter, p paging.Params) ([]Book, int64, error) {
	var all []Book
	for _, b := range m.books {
		if b.Archived && !f.IncludeArchived {
			continue
		}
		if f.CategoryID != nil && b.CategoryID.String != *f.CategoryID {
			continue
		}
		all = append(all, b)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	start := min(p.Offset(), len(all))
	end := min(start+p.Limit(), len(all))
	return all[start:end], int64(len(all)), nil
}

func (m *memRepo) Create(_ context.Context, b *Book) error {
	m.books[b.ID] = *b
	return nil
}

func (m *memRepo) Update(_ context.Context, b *Book) error {
	m.books[b.ID] = *b
	return nil
}

func (m *memRepo) Delete(_ context.Context, id string) error {
	if m.referenced[id] {
		return &mysql.MySQLError{Number: 1451, Message: "Cannot delete or update a parent row"}
	}
	delete(m.books, id)
	return nil
}

func (m *memRepo) Archive(_ context.Context, id string) error {
	b := m.books[id]
	b.Archived = true
	m.books[id] = b
	return nil
}

func (m *memRepo) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return fn(ctx, m)
}

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }

type seqIDs struct{ n int }

func (s *seqIDs) NewULID(time.Time) string {
	s.n++
	return fmt.Sprintf("01J00000000000000000000%03d", s.n)
}

var testNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func newTestService() (*Service, *memRepo) {
	repo := newMemRepo()
	svc := NewService(repo)
	svc.clock = fixedClock{t: testNow}
	svc.id = &seqIDs{}
	return svc, repo
}

func seedBook(t *testing.T, svc *Service, qty int) BookResponse {
	t.Helper()
	b, err := svc.Create(context.Background(), CreateBookRequest{Title: "The Left Hand of Darkness", Author: "Ursula K. Le Guin", Quantity: qty})
	require.NoError(t, err)
	return b
}

func TestGet_ComputesAvailability(t *testing.T) {
	svc, repo := newTestService()
	b := seedBook(t, svc, 3)
	returned := testNow.Add(-48 * time.Hour)
	repo.loans = []memLoan{
		{bookID: b.ID, due: testNow.Add(7 * 24 * time.Hour)},
		// 延滞中
		{bookID: b.ID, due: testNow.Add(-24 * time.Hour)},
		// 返却済み
		{bookID: b.ID, due: testNow.Add(-72 * time.Hour), returned: &returned},
	}

	got, err := svc.Get(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.LendingQuantity)
	assert.Equal(t, 1, got.AvailableQuantity)
	assert.Equal(t, got.Quantity-got.LendingQuantity, got.AvailableQuantity)
}

func TestGet_NotFound(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Get(context.Background(), "01J00000000000000000000999")
	require.Error(t, err)
	assert.Equal(t, 404, problem.ToHTTPStatus(err))
	assert.Contains(t, err.Error(), "Item with id 01J00000000000000000000999 not found.")
}

func TestList_SingleLendingQuery(t *testing.T) {
	svc, repo := newTestService()
	for i := 0; i < 4; i++ {
		seedBook(t, svc, 1)
	}
	repo.loans = []memLoan{{bookID: "01J00000000000000000000002", due: testNow.Add(time.Hour)}}

	page, err := svc.List(context.Background(), Filter{}, paging.Params{PageIndex: 0, PageSize: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.Count)
	require.Len(t, page.Data, 3)
	assert.Equal(t, 1, repo.lendingQs)
	assert.Equal(t, 0, page.Data[1].AvailableQuantity)
	assert.Equal(t, 1, page.Data[0].AvailableQuantity)
}

func TestCreate_UnknownCategory(t *testing.T) {
	svc, repo := newTestService()
	repo.categories["01J000000000000000000000C1"] = "Fantasy"

	missing := "01J000000000000000000000C2"
	_, err := svc.Create(context.Background(), CreateBookRequest{Title: "A Wizard of Earthsea", Author: "Ursula K. Le Guin", Quantity: 1, CategoryID: &missing})
	require.Error(t, err)
	assert.Equal(t, 400, problem.ToHTTPStatus(err))
	assert.Contains(t, err.Error(), "Category with id 01J000000000000000000000C2 not found.")

	known := "01J000000000000000000000C1"
	b, err := svc.Create(context.Background(), CreateBookRequest{Title: "A Wizard of Earthsea", Author: "Ursula K. Le Guin", Quantity: 1, CategoryID: &known})
	require.NoError(t, err)
	require.NotNil(t, b.CategoryName)
	assert.Equal(t, "Fantasy", *b.CategoryName)
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Create(context.Background(), CreateBookRequest{Title: "Dune", Author: "Frank Herbert", Quantity: 1})
	assert.Equal(t, 400, problem.ToHTTPStatus(err))
	_, err = svc.Create(context.Background(), CreateBookRequest{Title: "Children of Dune", Author: "Frank Herbert", Quantity: -1})
	assert.Equal(t, 400, problem.ToHTTPStatus(err))
}

func TestUpdate_QuantityBelowLendingFails(t *testing.T) {
	svc, repo := newTestService()
	b := seedBook(t, svc, 3)
	repo.loans = []memLoan{
		{bookID: b.ID, due: testNow.Add(time.Hour)},
		{bookID: b.ID, due: testNow.Add(time.Hour)},
	}

	_, err := svc.Update(context.Background(), b.ID, UpdateBookRequest{Title: b.Title, Author: b.Author, Quantity: 1})
	require.Error(t, err)
	assert.Equal(t, 400, problem.ToHTTPStatus(err))
	assert.Contains(t, err.Error(), "Cannot set quantity less than what's currently in use.")
	assert.Equal(t, 3, repo.books[b.ID].Quantity)

	got, err := svc.Update(context.Background(), b.ID, UpdateBookRequest{Title: b.Title, Author: b.Author, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, got.Quantity)
	assert.Equal(t, 0, got.AvailableQuantity)
}

func TestUpdate_NotFound(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Update(context.Background(), "nope", UpdateBookRequest{Title: "Some Title", Author: "Some Author", Quantity: 1})
	assert.Equal(t, 404, problem.ToHTTPStatus(err))
}

func TestDelete(t *testing.T) {
	svc, repo := newTestService()
	lent := seedBook(t, svc, 1)
	history := seedBook(t, svc, 1)
	fresh := seedBook(t, svc, 1)
	returned := testNow.Add(-time.Hour)
	repo.loans = []memLoan{
		{bookID: lent.ID, due: testNow.Add(time.Hour)},
		{bookID: history.ID, due: testNow.Add(-time.Hour), returned: &returned},
	}
	repo.referenced[history.ID] = true

	err := svc.Delete(context.Background(), lent.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Cannot delete book that is currently in use.")
	assert.Contains(t, repo.books, lent.ID)

	require.NoError(t, svc.Delete(context.Background(), history.ID))
	assert.True(t, repo.books[history.ID].Archived)

	require.NoError(t, svc.Delete(context.Background(), fresh.ID))
	assert.NotContains(t, repo.books, fresh.ID)

	assert.Equal(t, 404, problem.ToHTTPStatus(svc.Delete(context.Background(), fresh.ID)))
}

func TestList_HidesArchived(t *testing.T) {
	svc, repo := newTestService()
	a := seedBook(t, svc, 1)
	seedBook(t, svc, 1)
	b := repo.books[a.ID]
	b.Archived = true
	b.CategoryID = sql.NullString{}
	repo.books[a.ID] = b

	page, err := svc.List(context.Background(), Filter{}, paging.Params{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Count)

	page, err = svc.List(context.Background(), Filter{IncludeArchived: true}, paging.Params{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Count)
}
