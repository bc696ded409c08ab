package books

import (
	"context"
	"database/sql"
	"strings"
	"unicode/utf8"

	"scribe-backend/internal/library/categories"
	"scribe-backend/internal/platform/db"
	"scribe-backend/internal/platform/ident"
	"scribe-backend/internal/platform/paging"
	"scribe-backend/internal/platform/problem"
)

var (
	errQuantityBelowLending = problem.Invalid("Cannot set quantity less than what's currently in use.")
	errBookInUse            = problem.Invalid("Cannot delete book that is currently in use.")
)

type Service struct {
	repo  Repository
	clock ident.Clock
	id    ident.IDGen
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: ident.SystemClock{}, id: ident.ULIDGen{}}
}

func (s *Service) List(ctx context.Context, f Filter, p paging.Params) (paging.Result[BookResponse], error) {
	rows, total, err := s.repo.List(ctx, f, p)
	if err != nil {
		return paging.Result[BookResponse]{}, err
	}

	ids := make([]string, 0, len(rows))
	for _, b := range rows {
		ids = append(ids, b.ID)
	}
	// 1 クエリでまとめて数える
	lending, err := s.repo.LendingCounts(ctx, ids, s.clock.Now())
	if err != nil {
		return paging.Result[BookResponse]{}, err
	}

	items := make([]BookResponse, 0, len(rows))
	for _, b := range rows {
		items = append(items, toResponse(b, lending[b.ID]))
	}
	return paging.NewResult(p, total, items), nil
}

func (s *Service) Get(ctx context.Context, id string) (BookResponse, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return BookResponse{}, err
	}
	// アーカイブ済みは削除済みとして扱う
	if b == nil || b.Archived {
		return BookResponse{}, problem.ItemNotFound(id)
	}
	lending, err := s.repo.LendingCounts(ctx, []string{id}, s.clock.Now())
	if err != nil {
		return BookResponse{}, err
	}
	return toResponse(*b, lending[id]), nil
}

func (s *Service) Create(ctx context.Context, in CreateBookRequest) (BookResponse, error) {
	title, author, err := normalize(in.Title, in.Author, in.Quantity)
	if err != nil {
		return BookResponse{}, err
	}
	now := s.clock.Now()
	b := &Book{
		ID:        s.id.NewULID(now),
		Title:     title,
		Author:    author,
		Quantity:  in.Quantity,
		CreatedAt: now,
	}
	if err := resolveCategory(ctx, s.repo, b, in.CategoryID); err != nil {
		return BookResponse{}, err
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return BookResponse{}, mapCategoryFK(err, in.CategoryID)
	}
	return toResponse(*b, 0), nil
}

// Update は対象行をロックしてから貸出数と比較する。承認処理と同じ行ロックで直列化される。
func (s *Service) Update(ctx context.Context, id string, in UpdateBookRequest) (BookResponse, error) {
	title, author, err := normalize(in.Title, in.Author, in.Quantity)
	if err != nil {
		return BookResponse{}, err
	}

	var res BookResponse
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		b, err := tx.LockBook(ctx, id)
		if err != nil {
			return err
		}
		if b == nil || b.Archived {
			return problem.ItemNotFound(id)
		}

		counts, err := tx.LendingCounts(ctx, []string{id}, s.clock.Now())
		if err != nil {
			return err
		}
		lending := counts[id]
		if in.Quantity < lending {
			return errQuantityBelowLending
		}

		b.Title, b.Author, b.Quantity = title, author, in.Quantity
		if err := resolveCategory(ctx, tx, b, in.CategoryID); err != nil {
			return err
		}
		if err := tx.Update(ctx, b); err != nil {
			return mapCategoryFK(err, in.CategoryID)
		}
		res = toResponse(*b, lending)
		return nil
	})
	if err != nil {
		return BookResponse{}, err
	}
	return res, nil
}

// Delete は貸出中なら拒否する。過去の貸出履歴から参照されている場合は物理削除せずアーカイブする。
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		b, err := tx.LockBook(ctx, id)
		if err != nil {
			return err
		}
		if b == nil || b.Archived {
			return problem.ItemNotFound(id)
		}

		counts, err := tx.LendingCounts(ctx, []string{id}, s.clock.Now())
		if err != nil {
			return err
		}
		if counts[id] > 0 {
			return errBookInUse
		}

		err = tx.Delete(ctx, id)
		if db.IsRowReferenced(err) {
			return tx.Archive(ctx, id)
		}
		return err
	})
}

func normalize(title, author string, quantity int) (string, string, error) {
	title, author = strings.TrimSpace(title), strings.TrimSpace(author)
	if n := utf8.RuneCountInString(title); n < 6 || n > 500 {
		return "", "", problem.Invalid("Title must be between 6 and 500 characters.")
	}
	if n := utf8.RuneCountInString(author); n < 6 || n > 500 {
		return "", "", problem.Invalid("Author must be between 6 and 500 characters.")
	}
	if quantity < 0 {
		return "", "", problem.Invalid("Quantity must not be negative.")
	}
	return title, author, nil
}

func resolveCategory(ctx context.Context, q Queries, b *Book, categoryID *string) error {
	if categoryID == nil || *categoryID == "" {
		b.CategoryID, b.CategoryName = sql.NullString{}, sql.NullString{}
		return nil
	}
	name, ok, err := q.CategoryName(ctx, *categoryID)
	if err != nil {
		return err
	}
	if !ok {
		return problem.Invalid(categories.NotFound(*categoryID).Message)
	}
	b.CategoryID = sql.NullString{String: *categoryID, Valid: true}
	b.CategoryName = sql.NullString{String: name, Valid: true}
	return nil
}

// 確認後にカテゴリが消された場合
func mapCategoryFK(err error, categoryID *string) error {
	if db.IsMissingReference(err) && categoryID != nil {
		return problem.Invalid(categories.NotFound(*categoryID).Message)
	}
	return err
}
