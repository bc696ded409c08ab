package categories

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"scribe-backend/internal/platform/auth"
	"scribe-backend/internal/platform/paging"
	"scribe-backend/internal/platform/problem"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service, authn gin.HandlerFunc) {
	h := &Handler{svc: svc}
	admin := auth.RequireAdmin()

	r.GET("/category", h.List)
	r.GET("/category/:id", h.Get)
	r.POST("/category", authn, admin, h.Create)
	r.PUT("/category/:id", authn, admin, h.Update)
	r.DELETE("/category/:id", authn, admin, h.Delete)
}

// List godoc
// @Summary  List categories
// @Tags     category
// @Produce  json
// @Param    pageIndex query int false "0-based page index"
// @Param    pageSize  query int false "page size (1-100)"
// @Success  200 {object} paging.Result[CategoryResponse]
// @Router   /category [get]
func (h *Handler) List(c *gin.Context) {
	p, err := paging.FromQuery(c)
	if err != nil {
		problem.Write(c, err)
		return
	}
	res, err := h.svc.List(c.Request.Context(), p)
	if err != nil {
		problem.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Get(c *gin.Context) {
	res, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		problem.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		problem.Write(c, problem.Invalid("Category name must be between 3 and 500 characters."))
		return
	}
	res, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		problem.Write(c, err)
		return
	}
	c.Header("Location", "/category/"+res.ID)
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Update(c *gin.Context) {
	var req UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		problem.Write(c, problem.Invalid("Category name must be between 3 and 500 characters."))
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
