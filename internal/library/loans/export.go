package loans

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"scribe-backend/internal/platform/auth"
	"scribe-backend/internal/platform/paging"
	"scribe-backend/internal/platform/problem"
)

// CSV の文字コード
const (
	EncodingUTF8     = "utf-8"
	EncodingShiftJIS = "shift_jis"
)

var exportHeader = []string{
	"id", "book_id", "book_title", "applicant_id", "loan_application_id",
	"loan_date", "due_date", "return_date", "extension_count", "active",
}

// ParseEncoding は空文字を UTF-8 とみなす。
func ParseEncoding(v string) (string, error) {
	switch strings.ToLower(v) {
	case "", "utf8", EncodingUTF8:
		return EncodingUTF8, nil
	case "sjis", "cp932", EncodingShiftJIS:
		return EncodingShiftJIS, nil
	}
	return "", problem.Invalid("encoding must be utf-8 or shift_jis")
}

// ExportLoans は条件に合う貸出を全件 CSV で w に書き出す（管理者のみ）。
func (s *Service) ExportLoans(ctx context.Context, who auth.Principal, f LoanFilter, encoding string, w io.Writer) (int, error) {
	if !who.IsAdmin() {
		return 0, problem.Forbidden("forbidden")
	}
	out := w
	if encoding == EncodingShiftJIS {
		// Windows の Excel でそのまま開けるように CP932 相当で出す
		tw := transform.NewWriter(w, japanese.ShiftJIS.NewEncoder())
		defer tw.Close()
		out = tw
	}
	cw := csv.NewWriter(out)
	if err := cw.Write(exportHeader); err != nil {
		return 0, err
	}

	now := s.clock.Now()
	written := 0
	for p := (paging.Params{PageSize: paging.MaxPageSize}); ; p.PageIndex++ {
		ls, total, err := s.repo.ListLoans(ctx, f, p)
		if err != nil {
			return written, err
		}
		for _, l := range ls {
			if err := cw.Write(loanRecord(toLoanResponse(l, now))); err != nil {
				return written, err
			}
			written++
		}
		if len(ls) == 0 || int64(written) >= total {
			break
		}
	}
	cw.Flush()
	return written, cw.Error()
}

func loanRecord(l LoanResponse) []string {
	title, returned := "", ""
	if l.BookTitle != nil {
		title = *l.BookTitle
	}
	if l.ReturnDate != nil {
		returned = l.ReturnDate.UTC().Format(time.RFC3339)
	}
	return []string{
		l.ID, l.BookID, title, l.ApplicantID, l.LoanApplicationID,
		l.LoanDate.UTC().Format(time.RFC3339), l.DueDate.UTC().Format(time.RFC3339), returned,
		strconv.Itoa(l.ExtensionCount), strconv.FormatBool(l.Active),
	}
}
