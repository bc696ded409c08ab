package books

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"scribe-backend/internal/platform/auth"
	"scribe-backend/internal/platform/paging"
	"scribe-backend/internal/platform/problem"
)

type Handler struct{ svc *Service }

// RegisterRoutes の一覧・詳細は公開。peek は任意認証で、管理者だけがアーカイブ済みを一覧できる。
func RegisterRoutes(r gin.IRoutes, svc *Service, authn, peek gin.HandlerFunc) {
	h := &Handler{svc: svc}
	admin := auth.RequireAdmin()

	r.GET("/books", peek, h.List)
	r.GET("/books/:id", h.Get)
	r.POST("/books", authn, admin, h.Create)
	r.PUT("/books/:id", authn, admin, h.Update)
	r.DELETE("/books/:id", authn, admin, h.Delete)
}

// List godoc
// @Summary  List books with lending and available quantities
// @Tags     books
// @Produce  json
// @Param    pageIndex  query int    false "0-based page index"
// @Param    pageSize   query int    false "page size (1-100)"
// @Param    categoryId query string false "only books in this category"
// @Param    archived   query bool   false "include archived books (administrator only)"
// @Success  200 {object} paging.Result[BookResponse]
// @Router   /books [get]
func (h *Handler) List(c *gin.Context) {
	p, err := paging.FromQuery(c)
	if err != nil {
		problem.Write(c, err)
		return
	}
	f := Filter{}
	if v := c.Query("categoryId"); v != "" {
		f.CategoryID = &v
	}
	if v := c.Query("archived"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			problem.Write(c, problem.Invalid("archived must be true or false"))
			return
		}
		if b && !auth.CurrentPrincipal(c).IsAdmin() {
			problem.Write(c, problem.Forbidden("forbidden"))
			return
		}
		f.IncludeArchived = b
	}
	res, err := h.svc.List(c.Request.Context(), f, p)
	if err != nil {
		problem.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Get godoc
// @Summary  Get one book
// @Tags     books
// @Produce  json
// @Param    id path string true "book id"
// @Success  200 {object} BookResponse
// @Failure  404 {object} problem.Details
// @Router   /books/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	res, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		problem.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		problem.Write(c, problem.Invalid(bindMessage))
		return
	}
	res, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		problem.Write(c, err)
		return
	}
	c.Header("Location", "/books/"+res.ID)
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Update(c *gin.Context) {
	var req UpdateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		problem.Write(c, problem.Invalid(bindMessage))
		return
	}
	res, err := h.svc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		problem.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		problem.Write(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

const bindMessage = "Title and author must be 6 to 500 characters, quantity must not be negative and category_id must be a valid id."
