package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
)

var (
	// ErrInvalidCredential はトークンが不正または期限切れであることを表す。
	ErrInvalidCredential = errors.New("認証情報が無効です")
	// ErrIdentityGone はトークン自体は正しいが、参照先のユーザーが存在しないことを表す。
	ErrIdentityGone = errors.New("ユーザーが存在しません")
)

// Identity は認証済みの呼び出し元を表す。
type Identity struct {
	// UserID は呼び出し元ユーザーの一意識別子。
	UserID string `json:"id"`
	// Username はユーザー名。
	Username string `json:"username"`
	// Role はユーザーのロール。
	Role string `json:"role"`
}

// Verifier はBearerトークンを検証して呼び出し元を特定する。
// 不正なトークンにはErrInvalidCredential、削除済みユーザーにはErrIdentityGoneを返す。
// それ以外のエラーは検証先の障害として扱われる。
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// contextKeyIdentity はGinコンテキストに呼び出し元を格納するキー。
const contextKeyIdentity = "identity"

// Authenticate はBearerトークンを検証するGinミドルウェアを返す。
// 検証に成功した場合、コンテキストに呼び出し元のIdentityを設定する。
func Authenticate(v Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "認証トークンがありません",
			})
			return
		}

		id, err := v.Verify(c.Request.Context(), token)
		switch {
		case errors.Is(err, ErrInvalidCredential), errors.Is(err, ErrIdentityGone):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "トークンが無効です",
			})
			return
		case err != nil:
			log.Printf("[Auth] トークン検証エラー: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "トークンの検証に失敗しました",
			})
			return
		}

		c.Set(contextKeyIdentity, id)
		c.Next()
	}
}

// RequireRole は呼び出し元のロールが指定されたいずれかであることを要求するGinミドルウェアを返す。
// Authenticateの後に適用する。
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := GetIdentity(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "認証が必要です",
			})
			return
		}
		if !slices.Contains(roles, id.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "この操作を行う権限がありません",
			})
			return
		}
		c.Next()
	}
}

// GetIdentity はGinコンテキストから呼び出し元を取得する。
func GetIdentity(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(contextKeyIdentity)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

// GetUserID はGinコンテキストからユーザーIDを取得する。
// Authenticateミドルウェアが事前に適用されている必要がある。
func GetUserID(c *gin.Context) string {
	id, _ := GetIdentity(c)
	return id.UserID
}

// GetRole はGinコンテキストから呼び出し元のロールを取得する。
func GetRole(c *gin.Context) string {
	id, _ := GetIdentity(c)
	return id.Role
}

// bearerToken はAuthorizationヘッダーからトークン部分を取り出す。
func bearerToken(header string) (string, bool) {
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
