package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"scribe-backend/internal/platform/problem"
)

type AuthHandler struct{ svc *Service }

// RegisterRoutes は /identity 配下に載せる想定
func RegisterRoutes(r gin.IRoutes, svc *Service, authn gin.HandlerFunc) {
	h := &AuthHandler{svc: svc}
	r.POST("/register", h.Register)
	r.POST("/login", h.Login)
	r.POST("/refresh", h.Refresh)
	r.POST("/logout", h.Logout)
	r.GET("/me", authn, h.Me)
	r.PUT("/accounts/:id/role", authn, RequireAdmin(), h.ChangeRole)
}

type CredentialsRequest struct {
	Email    string `json:"email" binding:"required,email,max=320"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=administrator user"`
}

type TokenResponse struct {
	TokenType    string `json:"token_type"`
	AccessToken  string `json:"access_token"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

type AccountResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func toAccountResponse(a *Account) AccountResponse {
	return AccountResponse{ID: a.ID, Email: a.Email, Role: a.Role, CreatedAt: a.CreatedAt}
}

func toTokenResponse(p TokenPair) TokenResponse {
	return TokenResponse{
		TokenType:    "Bearer",
		AccessToken:  p.AccessToken,
		ExpiresIn:    int64(p.ExpiresIn / time.Second),
		RefreshToken: p.RefreshToken,
	}
}

// Register godoc
// @Summary  Register a borrower account
// @Tags     identity
// @Accept   json
// @Produce  json
// @Param    body body CredentialsRequest true "credentials"
// @Success  201 {object} AccountResponse
// @Failure  409 {object} problem.Details
// @Router   /identity/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		problem.Write(c, problem.Invalid("A valid email and a password of 8 to 72 characters are required."))
		return
	}
	acct, err := h.svc.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		problem.Write(c, err)
		return
	}
	c.Header("Location", "/identity/me")
	c.JSON(http.StatusCreated, toAccountResponse(acct))
}

// Login godoc
// @Summary  Exchange credentials for bearer tokens
// @Tags     identity
// @Accept   json
// @Produce  json
// @Param    body body CredentialsRequest true "credentials"
// @Success  200 {object} TokenResponse
// @Failure  401 {object} problem.Details
// @Router   /identity/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		problem.Write(c, ErrInvalidCredentials)
		return
	}
	pair, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		problem.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, toTokenResponse(pair))
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		problem.Write(c, problem.Invalid("refresh_token is required"))
		return
	}
	pair, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		problem.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, toTokenResponse(pair))
}

func (h *AuthHandler) Logout(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		problem.Write(c, problem.Invalid("refresh_token is required"))
		return
	}
	if err := h.svc.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		problem.Write(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) Me(c *gin.Context) {
	acct, err := h.svc.Get(c.Request.Context(), CurrentPrincipal(c).ID)
	if err != nil {
		problem.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, toAccountResponse(acct))
}

func (h *AuthHandler) ChangeRole(c *gin.Context) {
	var req ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		problem.Write(c, problem.Invalidf("Role must be %q or %q.", RoleAdministrator, RoleUser))
		return
	}
	acct, err := h.svc.ChangeRole(c.Request.Context(), c.Param("id"), req.Role)
	if err != nil {
		problem.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, toAccountResponse(acct))
}
