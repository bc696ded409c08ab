package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	Role string `json:"role,omitempty"`
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	RefreshID    string
	ExpiresIn    time.Duration
	RefreshTTL   time.Duration
}

// TokenIssuer は HS256 固定でアクセス/リフレッシュトークンを発行・検証する。
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenIssuer(secret []byte, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: secret, accessTTL: accessTTL, refreshTTL: refreshTTL, now: time.Now}
}

func (t *TokenIssuer) Issue(a *Account) (TokenPair, error) {
	now := t.now()
	access, err := t.sign(Claims{
		Role: a.Role,
		Type: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.accessTTL)),
		},
	})
	if err != nil {
		return TokenPair{}, err
	}

	jti := uuid.NewString()
	refresh, err := t.sign(Claims{
		Type: tokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   a.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.refreshTTL)),
		},
	})
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		RefreshID:    jti,
		ExpiresIn:    t.accessTTL,
		RefreshTTL:   t.refreshTTL,
	}, nil
}

func (t *TokenIssuer) sign(c Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
}

func (t *TokenIssuer) ParseAccess(s string) (*Claims, error) { return t.parse(s, tokenTypeAccess) }

func (t *TokenIssuer) ParseRefresh(s string) (*Claims, error) { return t.parse(s, tokenTypeRefresh) }

func (t *TokenIssuer) parse(s, typ string) (*Claims, error) {
	var c Claims
	token, err := jwt.ParseWithClaims(s, &c, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		// alg 固定（none攻撃とか回避）
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || token == nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if c.Type != typ || c.Subject == "" {
		return nil, ErrInvalidToken
	}
	if typ == tokenTypeRefresh && c.ID == "" {
		return nil, ErrInvalidToken
	}
	return &c, nil
}
