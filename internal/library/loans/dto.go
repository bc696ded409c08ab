package loans

import (
	"time"

	"scribe-backend/internal/library/availability"
)

// ===== Requests =====

// 重複した id は 1 冊として数える
type CreateApplicationRequest struct {
	Items []string `json:"items" binding:"required,min=1"`
}

type DecisionRequest struct {
	Status string `json:"status" binding:"required" enums:"approved,denied"`
}

// ===== Responses =====

type ApplicationResponse struct {
	ID              string         `json:"id"`
	ApplicantID     string         `json:"applicant_id"`
	Status          Status         `json:"status" swaggertype:"string" enums:"Open,Cancelled,Approved,Denied"`
	ApplicationDate time.Time      `json:"application_date"`
	ActorID         *string        `json:"actor_id,omitempty"`
	DecisionDate    *time.Time     `json:"decision_date,omitempty"`
	Items           []string       `json:"items"`
	Loans           []LoanResponse `json:"loans,omitempty"`
}

type LoanResponse struct {
	ID                string     `json:"id"`
	BookID            string     `json:"book_id"`
	BookTitle         *string    `json:"book_title,omitempty"`
	ApplicantID       string     `json:"applicant_id"`
	LoanApplicationID string     `json:"loan_application_id"`
	LoanDate          time.Time  `json:"loan_date"`
	DueDate           time.Time  `json:"due_date"`
	ReturnDate        *time.Time `json:"return_date,omitempty"`
	ExtensionCount    int        `json:"extension_count"`
	Active            bool       `json:"active"`
}

func toApplicationResponse(a Application) ApplicationResponse {
	res := ApplicationResponse{
		ID:              a.ID,
		ApplicantID:     a.ApplicantID,
		Status:          a.Status,
		ApplicationDate: a.ApplicationDate,
		Items:           a.BookIDs,
	}
	if res.Items == nil {
		res.Items = []string{}
	}
	if a.ActorID.Valid {
		v := a.ActorID.String
		res.ActorID = &v
	}
	if a.DecisionDate.Valid {
		v := a.DecisionDate.Time
		res.DecisionDate = &v
	}
	return res
}

func toLoanResponse(l Loan, now time.Time) LoanResponse {
	res := LoanResponse{
		ID:                l.ID,
		BookID:            l.BookID,
		ApplicantID:       l.ApplicantID,
		LoanApplicationID: l.ApplicationID,
		LoanDate:          l.LoanDate,
		DueDate:           l.DueDate,
		ReturnDate:        l.returnDate(),
		ExtensionCount:    l.ExtensionCount,
		Active:            availability.IsActive(l.returnDate(), l.DueDate, now),
	}
	if l.BookTitle.Valid {
		v := l.BookTitle.String
		res.BookTitle = &v
	}
	return res
}

func toLoanResponses(ls []Loan, now time.Time) []LoanResponse {
	out := make([]LoanResponse, 0, len(ls))
	for _, l := range ls {
		out = append(out, toLoanResponse(l, now))
	}
	return out
}
