package auth

import (
	"strings"

	"github.com/gin-gonic/gin"

	"scribe-backend/internal/platform/problem"
)

const (
	CtxUserIDKey = "user_id"
	CtxRoleKey   = "role"
)

// Principal は認証済みの呼び出し元。
type Principal struct {
	ID   string
	Role string
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdministrator }

// CanAccess は本人か管理者なら true（same-applicant ポリシー）。
func (p Principal) CanAccess(ownerID string) bool {
	return p.IsAdmin() || (p.ID != "" && p.ID == ownerID)
}

// RequireAuth: Authorization: Bearer <token> を検証して context に sub/role を詰める
func RequireAuth(tokens *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := bearerClaims(c, tokens)
		if err != nil {
			problem.Abort(c, err)
			return
		}
		c.Set(CtxUserIDKey, claims.Subject)
		c.Set(CtxRoleKey, claims.Role)
		c.Next()
	}
}

// OptionalAuth は公開ルート用。有効なトークンがあれば RequireAuth と同じく詰め、
// なければ匿名のまま通す。
func OptionalAuth(tokens *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, err := bearerClaims(c, tokens); err == nil {
			c.Set(CtxUserIDKey, claims.Subject)
			c.Set(CtxRoleKey, claims.Role)
		}
		c.Next()
	}
}

func bearerClaims(c *gin.Context, tokens *TokenIssuer) (*Claims, error) {
	h := c.GetHeader("Authorization")
	if h == "" {
		return nil, problem.Unauthorized("missing Authorization header")
	}

	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, problem.Unauthorized("invalid Authorization header")
	}

	tokenStr := strings.TrimSpace(parts[1])
	if tokenStr == "" {
		return nil, problem.Unauthorized("empty token")
	}

	claims, err := tokens.ParseAccess(tokenStr)
	if err != nil {
		return nil, problem.Unauthorized("invalid token")
	}
	return claims, nil
}

// RequireRole: RequireAuth の後ろに置く
func RequireRole(roles ...string) gin.HandlerFunc {
	roleSet := make(map[string]struct{})
	for _, r := range roles {
		if r == "" {
			continue
		}
		roleSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		role := c.GetString(CtxRoleKey)
		if role == "" {
			problem.Abort(c, problem.Forbidden("missing role"))
			return
		}
		if _, allowed := roleSet[role]; !allowed {
			problem.Abort(c, problem.Forbidden("forbidden"))
			return
		}
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc { return RequireRole(RoleAdministrator) }

func CurrentPrincipal(c *gin.Context) Principal {
	return Principal{ID: c.GetString(CtxUserIDKey), Role: c.GetString(CtxRoleKey)}
}
