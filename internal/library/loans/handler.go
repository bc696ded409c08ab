package loans

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"scribe-backend/internal/platform/auth"
	"scribe-backend/internal/platform/paging"
	"scribe-backend/internal/platform/problem"
)

type Handler struct{ svc *Service }

// RegisterRoutes は /loan（申請）と /loans（貸出）を登録する。どちらも認証必須。
func RegisterRoutes(r gin.IRoutes, svc *Service, authn gin.HandlerFunc) {
	h := &Handler{svc: svc}
	admin := auth.RequireAdmin()

	r.GET("/loan", authn, h.ListApplications)
	r.GET("/loan/:id", authn, h.GetApplication)
	r.POST("/loan", authn, h.CreateApplication)
	r.PUT("/loan/:id", authn, admin, h.DecideApplication)
	r.POST("/loan/:id/cancel", authn, h.CancelApplication)

	r.GET("/loans", authn, h.ListLoans)
	r.GET("/loans/export", authn, admin, h.ExportLoans)
	r.GET("/loans/:id", authn, h.GetLoan)
	r.POST("/loans/:id/return", authn, admin, h.ReturnLoan)
	r.POST("/loans/:id/extend", authn, h.ExtendLoan)
}

// ListApplications godoc
// @Summary  List loan applications (own ones unless administrator)
// @Tags     loan
// @Produce  json
// @Security BearerAuth
// @Param    pageIndex   query int    false "0-based page index"
// @Param    pageSize    query int    false "page size (1-100)"
// @Param    status      query string false "Open, Cancelled, Approved or Denied"
// @Param    applicantId query string false "administrator only"
// @Success  200 {object} paging.Result[ApplicationResponse]
// @Router   /loan [get]
func (h *Handler) ListApplications(c *gin.Context) {
	p, err := paging.FromQuery(c)
	if err != nil {
		problem.Write(c, err)
		return
	}
	f := ApplicationFilter{}
	if v := c.Query("status"); v != "" {
		st, ok := ParseStatus(v)
		if !ok {
			problem.Write(c, problem.Invalid("status must be one of Open, Cancelled, Approved, Denied"))
			return
		}
		f.Status = &st
	}
	if v := c.Query("applicantId"); v != "" {
		f.ApplicantID = &v
	}

	res, err := h.svc.List(c.Request.Context(), auth.CurrentPrincipal(c), f, p)
	if err != nil {
		problem.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetApplication godoc
// @Summary  Get one loan application with its loans
// @Tags     loan
// @Produce  json
// @Security BearerAuth
// @Param    id path string true "application id"
// @Success  200 {object} ApplicationResponse
// @Failure  404 {object} problem.Details
// @Router   /loan/{id} [get]
func (h *Handler) GetApplication(c *gin.Context) {
	res, err := h.svc.Get(c.Request.Context(), auth.CurrentPrincipal(c), c.Param("id"))
	if err != nil {
		problem.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// CreateApplication godoc
// @Summary  Apply for up to 5 books
// @Tags     loan
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    body body CreateApplicationRequest true "book ids"
// @Success  201 {object} ApplicationResponse
// @Failure  400 {object} problem.Details
// @Router   /loan [post]
func (h *Handler) CreateApplication(c *gin.Context) {
	var req CreateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		problem.Write(c, errNoItems)
		return
	}
	res, err := h.svc.Create(c.Request.Context(), auth.CurrentPrincipal(c), req)
	if err != nil {
		problem.Write(c, err)
		return
	}
	c.Header("Location", "/loan/"+res.ID)
	c.JSON(http.StatusCreated, res)
}

// DecideApplication godoc
// @Summary  Approve or deny an open application
// @Tags     loan
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    id   path string          true "application id"
// @Param    body body DecisionRequest true "approved or denied"
// @Success  200 {object} ApplicationResponse
// @Failure  400 {object} problem.Details
// @Router   /loan/{id} [put]
func (h *Handler) DecideApplication(c *gin.Context) {
	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		problem.Write(c, errInvalidDecision)
		return
	}
	res, err := h.svc.Decide(c.Request.Context(), auth.CurrentPrincipal(c), c.Param("id"), req)
	if err != nil {
		problem.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) CancelApplication(c *gin.Context) {
	res, err := h.svc.Cancel(c.Request.Context(), auth.CurrentPrincipal(c), c.Param("id"))
	if err != nil {
		problem.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ListLoans godoc
// @Summary  List loans (own ones unless administrator)
// @Tags     loans
// @Produce  json
// @Security BearerAuth
// @Param    pageIndex   query int    false "0-based page index"
// @Param    pageSize    query int    false "page size (1-100)"
// @Param    active      query bool   false "only loans that are currently on loan"
// @Param    applicantId query string false "administrator only"
// @Success  200 {object} paging.Result[LoanResponse]
// @Router   /loans [get]
func (h *Handler) ListLoans(c *gin.Context) {
	p, err := paging.FromQuery(c)
	if err != nil {
		problem.Write(c, err)
		return
	}
	f, err := h.loanFilter(c)
	if err != nil {
		problem.Write(c, err)
		return
	}
	res, err := h.svc.ListLoans(c.Request.Context(), auth.CurrentPrincipal(c), f, p)
	if err != nil {
		problem.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) loanFilter(c *gin.Context) (LoanFilter, error) {
	f := LoanFilter{}
	if v := c.Query("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return f, problem.Invalid("active must be true or false")
		}
		if active {
			now := h.svc.clock.Now()
			f.ActiveAt = &now
		}
	}
	if v := c.Query("applicantId"); v != "" {
		f.ApplicantID = &v
	}
	return f, nil
}

// ExportLoans godoc
// @Summary  Download loans as CSV
// @Tags     loans
// @Produce  text/csv
// @Security BearerAuth
// @Param    active      query bool   false "only loans that are currently on loan"
// @Param    applicantId query string false "filter by applicant"
// @Param    encoding    query string false "utf-8 (default) or shift_jis"
// @Success  200 {file} file
// @Failure  400 {object} problem.Details
// @Router   /loans/export [get]
func (h *Handler) ExportLoans(c *gin.Context) {
	f, err := h.loanFilter(c)
	if err != nil {
		problem.Write(c, err)
		return
	}
	enc, err := ParseEncoding(c.Query("encoding"))
	if err != nil {
		problem.Write(c, err)
		return
	}
	charset := "utf-8"
	if enc == EncodingShiftJIS {
		charset = "Shift_JIS"
	}
	c.Header("Content-Type", "text/csv; charset="+charset)
	c.Header("Content-Disposition", `attachment; filename="loans.csv"`)
	c.Status(http.StatusOK)
	if _, err := h.svc.ExportLoans(c.Request.Context(), auth.CurrentPrincipal(c), f, enc, c.Writer); err != nil {
		// ヘッダ送信後なのでログだけ
		_ = c.Error(err)
	}
}

func (h *Handler) GetLoan(c *gin.Context) {
	res, err := h.svc.GetLoan(c.Request.Context(), auth.CurrentPrincipal(c), c.Param("id"))
	if err != nil {
		problem.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ReturnLoan godoc
// @Summary  Record the return of a loan
// @Tags     loans
// @Produce  json
// @Security BearerAuth
// @Param    id path string true "loan id"
// @Success  200 {object} LoanResponse
// @Failure  400 {object} problem.Details
// @Router   /loans/{id}/return [post]
func (h *Handler) ReturnLoan(c *gin.Context) {
	res, err := h.svc.Return(c.Request.Context(), auth.CurrentPrincipal(c), c.Param("id"))
	if err != nil {
		problem.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ExtendLoan godoc
// @Summary  Extend the due date of an unreturned loan
// @Tags     loans
// @Produce  json
// @Security BearerAuth
// @Param    id path string true "loan id"
// @Success  200 {object} LoanResponse
// @Failure  400 {object} problem.Details
// @Router   /loans/{id}/extend [post]
func (h *Handler) ExtendLoan(c *gin.Context) {
	res, err := h.svc.Extend(c.Request.Context(), auth.CurrentPrincipal(c), c.Param("id"))
	if err != nil {
		problem.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
