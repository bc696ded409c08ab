package loans

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"scribe-backend/internal/platform/auth"
	"scribe-backend/internal/platform/ident"
	"scribe-backend/internal/platform/paging"
	"scribe-backend/internal/platform/problem"
)

var (
	errNoItems          = problem.Invalid("At least one item is required.")
	errTooManyItems     = problem.Invalid("You can only apply for up to 5 books at a time.")
	errItemMissing      = problem.Invalid("One or more item was not found.")
	errMonthlyCap       = problem.Invalid("You can not apply for new applications at the moment. Please try again later.")
	errNotOpen          = problem.Invalid("Loan application is not open.")
	errUnavailable      = problem.Invalid("One or more items is no longer available.")
	errInvalidDecision  = problem.Invalid("Status must be either approved or denied.")
	errAlreadyReturned  = problem.Invalid("Loan is already returned.")
	errNoMoreExtensions = problem.Invalid("Loan can not be extended any further.")
	errUnknownApplicant = problem.Unauthorized("Account not found.")
)

type Service struct {
	repo  Repository
	clock ident.Clock
	id    ident.IDGen
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: ident.SystemClock{}, id: ident.ULIDGen{}}
}

// ===== 申請 =====

// Create は申請者の行をロックしてから今月の件数を数えるので、同じ申請者の同時申請は直列になる。
func (s *Service) Create(ctx context.Context, who auth.Principal, in CreateApplicationRequest) (ApplicationResponse, error) {
	// 件数の上限は重複を除く前の入力に対してかける
	if len(in.Items) > MaxBooksPerApplication {
		return ApplicationResponse{}, errTooManyItems
	}
	ids := dedupe(in.Items)
	if len(ids) == 0 {
		return ApplicationResponse{}, errNoItems
	}

	now := s.clock.Now()
	from, to := monthRange(now)
	app := &Application{
		ID:              s.id.NewULID(now),
		ApplicantID:     who.ID,
		Status:          StatusOpen,
		ApplicationDate: now,
		BookIDs:         ids,
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ok, err := tx.LockApplicant(ctx, who.ID)
		if err != nil {
			return err
		}
		if !ok {
			return errUnknownApplicant
		}

		found, err := tx.ExistingBooks(ctx, ids)
		if err != nil {
			return err
		}
		if len(found) != len(ids) {
			return errItemMissing
		}

		n, err := tx.CountApplicationsInRange(ctx, who.ID, from, to, StatusOpen, StatusApproved)
		if err != nil {
			return err
		}
		if n >= MaxApplicationsPerMonth {
			return errMonthlyCap
		}
		return tx.InsertApplication(ctx, app)
	})
	if err != nil {
		return ApplicationResponse{}, err
	}
	return toApplicationResponse(*app), nil
}

// Get は本人か管理者だけが見られる。他人の申請は存在しないものとして扱う。
func (s *Service) Get(ctx context.Context, who auth.Principal, id string) (ApplicationResponse, error) {
	app, err := s.repo.GetApplication(ctx, id)
	if err != nil {
		return ApplicationResponse{}, err
	}
	if app == nil || !who.CanAccess(app.ApplicantID) {
		return ApplicationResponse{}, problem.ItemNotFound(id)
	}
	res := toApplicationResponse(*app)
	if app.Status == StatusApproved {
		ls, err := s.repo.LoansByApplication(ctx, id)
		if err != nil {
			return ApplicationResponse{}, err
		}
		res.Loans = toLoanResponses(ls, s.clock.Now())
	}
	return res, nil
}

// List: 管理者以外は自分の申請に絞る
func (s *Service) List(ctx context.Context, who auth.Principal, f ApplicationFilter, p paging.Params) (paging.Result[ApplicationResponse], error) {
	if !who.IsAdmin() {
		f.ApplicantID = &who.ID
	}
	apps, total, err := s.repo.ListApplications(ctx, f, p)
	if err != nil {
		return paging.Result[ApplicationResponse]{}, err
	}
	return paging.Map(paging.NewResult(p, total, apps), toApplicationResponse), nil
}

// Decide は PUT /loan/{id} の本体。status は approved / denied のどちらか。
func (s *Service) Decide(ctx context.Context, who auth.Principal, id string, in DecisionRequest) (ApplicationResponse, error) {
	st, ok := ParseStatus(strings.TrimSpace(in.Status))
	switch {
	case ok && st == StatusApproved:
		return s.Approve(ctx, who, id)
	case ok && st == StatusDenied:
		return s.Deny(ctx, who, id)
	default:
		return ApplicationResponse{}, errInvalidDecision
	}
}

// Approve は申請行、本の行の順にロックし、同じトランザクション内で貸出数を数える。
// 1 冊でも空きが無ければ何も書かずに失敗する。
func (s *Service) Approve(ctx context.Context, who auth.Principal, id string) (ApplicationResponse, error) {
	var (
		app   *Application
		loans []Loan
	)
	now := s.clock.Now()

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		app, err = tx.LockApplication(ctx, id)
		if err != nil {
			return err
		}
		if app == nil {
			return problem.ItemNotFound(id)
		}
		if app.Status != StatusOpen {
			return errNotOpen
		}

		quantities, err := tx.LockBooks(ctx, app.BookIDs)
		if err != nil {
			return err
		}
		lending, err := tx.LendingCounts(ctx, app.BookIDs, now)
		if err != nil {
			return err
		}
		for _, b := range app.BookIDs {
			q, ok := quantities[b]
			if !ok || q-lending[b] <= 0 {
				return errUnavailable
			}
		}

		if err := s.resolve(ctx, tx, app, who, StatusApproved, now); err != nil {
			return err
		}

		loans = make([]Loan, 0, len(app.BookIDs))
		for _, b := range app.BookIDs {
			loans = append(loans, Loan{
				ID:            s.id.NewULID(now),
				BookID:        b,
				ApplicantID:   app.ApplicantID,
				ApplicationID: app.ID,
				LoanDate:      now,
				DueDate:       now.Add(LoanPeriod),
			})
		}
		return tx.InsertLoans(ctx, loans)
	})
	if err != nil {
		return ApplicationResponse{}, err
	}

	res := toApplicationResponse(*app)
	res.Loans = toLoanResponses(loans, now)
	return res, nil
}

func (s *Service) Deny(ctx context.Context, who auth.Principal, id string) (ApplicationResponse, error) {
	return s.close(ctx, who, id, StatusDenied)
}

// Cancel は申請者本人か管理者が Open の申請を取り消す。
func (s *Service) Cancel(ctx context.Context, who auth.Principal, id string) (ApplicationResponse, error) {
	return s.close(ctx, who, id, StatusCancelled)
}

// close は貸出を作らずに申請を終わらせる
func (s *Service) close(ctx context.Context, who auth.Principal, id string, to Status) (ApplicationResponse, error) {
	var app *Application
	now := s.clock.Now()
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		app, err = tx.LockApplication(ctx, id)
		if err != nil {
			return err
		}
		if app == nil || !who.CanAccess(app.ApplicantID) {
			return problem.ItemNotFound(id)
		}
		if app.Status != StatusOpen {
			return errNotOpen
		}
		return s.resolve(ctx, tx, app, who, to, now)
	})
	if err != nil {
		return ApplicationResponse{}, err
	}
	return toApplicationResponse(*app), nil
}

func (s *Service) resolve(ctx context.Context, tx TxRepository, app *Application, who auth.Principal, to Status, now time.Time) error {
	app.Status = to
	app.ActorID = sql.NullString{String: who.ID, Valid: who.ID != ""}
	app.DecisionDate = sql.NullTime{Time: now, Valid: true}
	ok, err := tx.ResolveApplication(ctx, app)
	if err != nil {
		return err
	}
	if !ok {
		return errNotOpen
	}
	return nil
}

// CancelStale は olderThan より前に出されたまま Open の申請を取り消し、件数を返す。
func (s *Service) CancelStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	now := s.clock.Now()
	return s.repo.CancelStale(ctx, now.Add(-olderThan), now)
}

// ===== 貸出 =====

func (s *Service) ListLoans(ctx context.Context, who auth.Principal, f LoanFilter, p paging.Params) (paging.Result[LoanResponse], error) {
	if !who.IsAdmin() {
		f.ApplicantID = &who.ID
	}
	ls, total, err := s.repo.ListLoans(ctx, f, p)
	if err != nil {
		return paging.Result[LoanResponse]{}, err
	}
	now := s.clock.Now()
	return paging.NewResult(p, total, toLoanResponses(ls, now)), nil
}

func (s *Service) GetLoan(ctx context.Context, who auth.Principal, id string) (LoanResponse, error) {
	l, err := s.repo.GetLoan(ctx, id)
	if err != nil {
		return LoanResponse{}, err
	}
	if l == nil || !who.CanAccess(l.ApplicantID) {
		return LoanResponse{}, problem.ItemNotFound(id)
	}
	return toLoanResponse(*l, s.clock.Now()), nil
}

// Return は返却を記録する。期限前の返却では期限も返却時刻に詰め、その場で貸出可能数に戻す。
func (s *Service) Return(ctx context.Context, who auth.Principal, id string) (LoanResponse, error) {
	if !who.IsAdmin() {
		return LoanResponse{}, problem.Forbidden("forbidden")
	}
	now := s.clock.Now()
	return s.updateLoan(ctx, who, id, func(l *Loan) error {
		if l.ReturnDate.Valid {
			return errAlreadyReturned
		}
		l.ReturnDate = sql.NullTime{Time: now, Valid: true}
		if l.DueDate.After(now) {
			l.DueDate = now
		}
		return nil
	})
}

// Extend は期限を今から LoanPeriod 後に延ばす。MaxExtensions 回まで。
func (s *Service) Extend(ctx context.Context, who auth.Principal, id string) (LoanResponse, error) {
	now := s.clock.Now()
	return s.updateLoan(ctx, who, id, func(l *Loan) error {
		if l.ReturnDate.Valid {
			return errAlreadyReturned
		}
		if l.ExtensionCount >= MaxExtensions {
			return errNoMoreExtensions
		}
		l.DueDate = now.Add(LoanPeriod)
		l.ExtensionCount++
		return nil
	})
}

func (s *Service) updateLoan(ctx context.Context, who auth.Principal, id string, mutate func(*Loan) error) (LoanResponse, error) {
	var l *Loan
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		l, err = tx.LockLoan(ctx, id)
		if err != nil {
			return err
		}
		if l == nil || !who.CanAccess(l.ApplicantID) {
			return problem.ItemNotFound(id)
		}
		if err := mutate(l); err != nil {
			return err
		}
		return tx.UpdateLoan(ctx, l)
	})
	if err != nil {
		return LoanResponse{}, err
	}
	return toLoanResponse(*l, s.clock.Now()), nil
}

// dedupe は空白を除いて重複を落とす。順序は最初に出た順。
func dedupe(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
