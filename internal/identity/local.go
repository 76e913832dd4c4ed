package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nao1215/savings/internal/store"
	"github.com/nao1215/savings/pkg/middleware"
)

// issuer はトークンのiss クレームに設定する値。
const issuer = "savings"

// UserLookup はIDでユーザーを取得する。*store.Queriesが満たす。
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (store.User, error)
}

// Claims はトークンのクレーム（ペイロード）を表す。
// Roleは発行時点の値で、検証時にはストアのロールを優先する。
type Claims struct {
	jwt.RegisteredClaims
	// UserID はユーザーの一意識別子。
	UserID string `json:"user_id"`
	// Username はユーザー名。
	Username string `json:"username"`
	// Role は発行時点のロール。
	Role string `json:"role"`
}

// LocalAuthority は自前で署名付きトークンを発行・検証する。
type LocalAuthority struct {
	secret []byte
	ttl    time.Duration
	users  UserLookup
	now    func() time.Time
}

// NewLocalAuthority は新しいLocalAuthorityを生成する。
// secretはHS256の署名鍵、ttlはトークンの有効期間。
func NewLocalAuthority(secret string, ttl time.Duration, users UserLookup) *LocalAuthority {
	return &LocalAuthority{
		secret: []byte(secret),
		ttl:    ttl,
		users:  users,
		now:    time.Now,
	}
}

// Issue はユーザーのトークンを発行する。
func (a *LocalAuthority) Issue(u store.User) (string, error) {
	now := a.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
		UserID:   u.ID,
		Username: u.Username,
		Role:     u.Role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("トークンの署名に失敗: %w", err)
	}
	return signed, nil
}

// Verify はトークンの署名と有効期限を検証し、ユーザーが存在することを確認する。
// 返すIdentityのユーザー名とロールはストアの現在値。
func (a *LocalAuthority) Verify(ctx context.Context, token string) (middleware.Identity, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(_ *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || !parsed.Valid || claims.UserID == "" {
		return middleware.Identity{}, fmt.Errorf("%w: %v", middleware.ErrInvalidCredential, err)
	}

	u, err := a.users.GetUserByID(ctx, claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return middleware.Identity{}, fmt.Errorf("%w: id=%s", middleware.ErrIdentityGone, claims.UserID)
	}
	if err != nil {
		return middleware.Identity{}, fmt.Errorf("ユーザーの確認に失敗: %w", err)
	}

	return middleware.Identity{UserID: u.ID, Username: u.Username, Role: u.Role}, nil
}
