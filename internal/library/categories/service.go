package categories

import (
	"context"
	"database/sql"
	"strings"
	"unicode/utf8"

	"scribe-backend/internal/platform/db"
	"scribe-backend/internal/platform/ident"
	"scribe-backend/internal/platform/paging"
	"scribe-backend/internal/platform/problem"
)

type Service struct {
	repo  Repository
	clock ident.Clock
	id    ident.IDGen
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: ident.SystemClock{}, id: ident.ULIDGen{}}
}

func NotFound(id string) *problem.APIError {
	return problem.NotFoundf("Category with id %s not found.", id)
}

func (s *Service) List(ctx context.Context, p paging.Params) (paging.Result[CategoryResponse], error) {
	rows, total, err := s.repo.List(ctx, p)
	if err != nil {
		return paging.Result[CategoryResponse]{}, err
	}
	return paging.Map(paging.NewResult(p, total, rows), toResponse), nil
}

func (s *Service) Get(ctx context.Context, id string) (CategoryResponse, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return CategoryResponse{}, err
	}
	if c == nil {
		return CategoryResponse{}, NotFound(id)
	}
	return toResponse(*c), nil
}

func (s *Service) Create(ctx context.Context, in CreateCategoryRequest) (CategoryResponse, error) {
	name, err := normalizeName(in.Name)
	if err != nil {
		return CategoryResponse{}, err
	}
	now := s.clock.Now()
	c := &Category{
		ID:        s.id.NewULID(now),
		Name:      name,
		Slug:      slugFor(name, in.Slug),
		CreatedAt: now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return CategoryResponse{}, mapWriteErr(err, c)
	}
	return toResponse(*c), nil
}

func (s *Service) Update(ctx context.Context, id string, in UpdateCategoryRequest) (CategoryResponse, error) {
	name, err := normalizeName(in.Name)
	if err != nil {
		return CategoryResponse{}, err
	}
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return CategoryResponse{}, err
	}
	if c == nil {
		return CategoryResponse{}, NotFound(id)
	}

	// slug 未指定で名前が変わったら作り直す
	if in.Slug != nil || name != c.Name {
		c.Slug = slugFor(name, in.Slug)
	}
	c.Name = name
	if err := s.repo.Update(ctx, c); err != nil {
		return CategoryResponse{}, mapWriteErr(err, c)
	}
	return toResponse(*c), nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if c == nil {
		return NotFound(id)
	}
	n, err := s.repo.CountBooks(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return errCategoryInUse
	}
	if _, err := s.repo.Delete(ctx, id); err != nil {
		// 確認後に本が追加された場合は FK で弾かれる
		if db.IsRowReferenced(err) {
			return errCategoryInUse
		}
		return err
	}
	return nil
}

var errCategoryInUse = problem.Invalid("Cannot delete category that is currently in use.")

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < 3 || n > 500 {
		return "", problem.Invalid("Category name must be between 3 and 500 characters.")
	}
	return name, nil
}

func slugFor(name string, requested *string) sql.NullString {
	src := name
	if requested != nil && strings.TrimSpace(*requested) != "" {
		src = *requested
	}
	slug := Slugify(src)
	if slug == "" {
		return sql.NullString{}
	}
	if utf8.RuneCountInString(slug) > 500 {
		slug = string([]rune(slug)[:500])
	}
	return sql.NullString{String: slug, Valid: true}
}

func mapWriteErr(err error, c *Category) error {
	if db.IsDuplicateKey(err) {
		if strings.Contains(err.Error(), "slug") {
			return problem.Conflictf("Category with slug %s already exists.", c.Slug.String)
		}
		return problem.Conflictf("Category with name %s already exists.", c.Name)
	}
	return err
}
