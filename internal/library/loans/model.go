package loans

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	MaxBooksPerApplication  = 5
	MaxApplicationsPerMonth = 3
	MaxExtensions           = 2
	LoanPeriod              = 14 * 24 * time.Hour
)

// Status は loan_applications.status の値。
type Status int8

const (
	StatusOpen Status = iota
	StatusCancelled
	StatusApproved
	StatusDenied
)

var statusNames = [...]string{"Open", "Cancelled", "Approved", "Denied"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "Unknown"
	}
	return statusNames[s]
}

func (s Status) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

func (s *Status) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	v, ok := ParseStatus(name)
	if !ok {
		return fmt.Errorf("unknown loan application status %q", name)
	}
	*s = v
	return nil
}

// ParseStatus は大文字小文字を区別しない。
func ParseStatus(v string) (Status, bool) {
	for i, name := range statusNames {
		if strings.EqualFold(v, name) {
			return Status(i), true
		}
	}
	return 0, false
}

type Application struct {
	ID              string         `db:"id"`
	ApplicantID     string         `db:"applicant_id"`
	Status          Status         `db:"status"`
	ApplicationDate time.Time      `db:"application_date"`
	ActorID         sql.NullString `db:"actor_id"`
	DecisionDate    sql.NullTime   `db:"decision_date"`
	BookIDs         []string       `db:"-"`
}

type Loan struct {
	ID             string         `db:"id"`
	BookID         string         `db:"book_id"`
	BookTitle      sql.NullString `db:"book_title"`
	ApplicantID    string         `db:"applicant_id"`
	ApplicationID  string         `db:"loan_application_id"`
	LoanDate       time.Time      `db:"loan_date"`
	DueDate        time.Time      `db:"due_date"`
	ReturnDate     sql.NullTime   `db:"return_date"`
	ExtensionCount int            `db:"extension_count"`
}

func (l Loan) returnDate() *time.Time {
	if !l.ReturnDate.Valid {
		return nil
	}
	t := l.ReturnDate.Time
	return &t
}

type ApplicationFilter struct {
	ApplicantID *string
	Status      *Status
}

type LoanFilter struct {
	ApplicantID *string
	// ActiveAt が非 nil ならその時点で貸出中のものだけ
	ActiveAt *time.Time
}

// monthRange は now を含む暦月 [start, next) を UTC で返す。
func monthRange(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
