package server

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nao1215/savings/internal/identity"
	"github.com/nao1215/savings/internal/store"
	"github.com/nao1215/savings/pkg/middleware"
)

// maxPasswordBytes はbcryptが扱えるパスワードの最大バイト数。
const maxPasswordBytes = 72

// registerRequest はユーザー登録リクエストのJSON構造。
type registerRequest struct {
	// Username はログイン名。
	Username string `json:"username" binding:"required,max=64"`
	// Password はパスワード。バイト数はハンドラで検証する。
	Password string `json:"password" binding:"required,max=72"`
	// Role は任意のロール。省略時はuser。
	Role string `json:"role"`
}

// loginRequest はログインリクエストのJSON構造。
type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// handleRegister はユーザー登録を処理するハンドラを返す。
// localモードではパスワードをハッシュ化して保存し、providerモードではIdPにユーザーを作成して
// そのIDでローカルにも記録する。
func (s *Server) handleRegister() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}
		req.Username = strings.TrimSpace(req.Username)
		if req.Username == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ユーザー名を入力してください"})
			return
		}
		if len(req.Password) > maxPasswordBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("パスワードは%dバイト以内で入力してください", maxPasswordBytes)})
			return
		}

		role, status, msg := s.resolveSignupRole(req.Role)
		if status != 0 {
			c.JSON(status, gin.H{"error": msg})
			return
		}

		var (
			userID string
			hash   string
			err    error
		)
		if s.provider != nil {
			userID, err = s.registerWithProvider(c, req.Username, req.Password)
			if err != nil {
				return
			}
		} else {
			userID = uuid.New().String()
			if hash, err = identity.HashPassword(req.Password); err != nil {
				internalError(c, "ユーザーの登録に失敗しました", err)
				return
			}
		}

		err = s.queries.CreateUser(c.Request.Context(), store.CreateUserParams{
			ID:           userID,
			Username:     req.Username,
			Role:         role,
			PasswordHash: hash,
			CreatedAt:    time.Now(),
		})
		if err != nil && s.provider != nil {
			// IdP側のアカウントは作成済みのまま残る
			log.Printf("[Server] IdPユーザー %s のローカル登録に失敗しました: %v", userID, err)
		}
		if errors.Is(err, store.ErrDuplicateUsername) {
			c.JSON(http.StatusConflict, gin.H{"error": "このユーザー名はすでに使用されています"})
			return
		}
		if err != nil {
			internalError(c, "ユーザーの登録に失敗しました", err)
			return
		}

		created, err := s.queries.GetUserByID(c.Request.Context(), userID)
		if err != nil {
			internalError(c, "登録したユーザーの取得に失敗しました", err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"message": "ユーザーを登録しました",
			"user":    toUserResponse(created),
		})
	}
}

// resolveSignupRole は登録時に要求されたロールを検証する。
// 拒否する場合はステータスコードとメッセージを返す。
func (s *Server) resolveSignupRole(requested string) (string, int, string) {
	switch requested {
	case "", store.RoleUser:
		return store.RoleUser, 0, ""
	case store.RoleAdmin:
		if !s.allowAdminSignup {
			return "", http.StatusForbidden, "管理者ロールでの登録は許可されていません"
		}
		return store.RoleAdmin, 0, ""
	default:
		return "", http.StatusBadRequest, fmt.Sprintf("不正なロールです: %q", requested)
	}
}

// registerWithProvider はIdPにユーザーを作成してIDを返す。
// 失敗した場合はレスポンスを書き込み済みでエラーを返す。
func (s *Server) registerWithProvider(c *gin.Context, username, password string) (string, error) {
	_, err := s.queries.GetUserByUsername(c.Request.Context(), username)
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "このユーザー名はすでに使用されています"})
		return "", store.ErrDuplicateUsername
	}
	if !errors.Is(err, store.ErrNotFound) {
		internalError(c, "ユーザーの確認に失敗しました", err)
		return "", err
	}

	userID, err := s.provider.CreateUser(c.Request.Context(), username, password)
	if errors.Is(err, identity.ErrDuplicateUser) {
		c.JSON(http.StatusConflict, gin.H{"error": "このユーザー名はすでに使用されています"})
		return "", err
	}
	if err != nil {
		internalError(c, "IdPへのユーザー登録に失敗しました", err)
		return "", err
	}
	return userID, nil
}

// handleLogin はログインを処理するハンドラを返す。localモードでのみ登録される。
// ユーザー名とパスワードが一致した場合に署名付きトークンを発行する。
func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		u, err := s.queries.GetUserByUsername(c.Request.Context(), strings.TrimSpace(req.Username))
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザー名またはパスワードが正しくありません"})
			return
		}
		if err != nil {
			internalError(c, "ログインに失敗しました", err)
			return
		}

		err = identity.ComparePassword(u.PasswordHash, req.Password)
		if errors.Is(err, identity.ErrPasswordMismatch) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザー名またはパスワードが正しくありません"})
			return
		}
		if err != nil {
			internalError(c, "ログインに失敗しました", err)
			return
		}

		token, err := s.local.Issue(u)
		if err != nil {
			internalError(c, "トークンの発行に失敗しました", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "ログインしました",
			"token":   token,
		})
	}
}

// handleVerify はトークンの検証結果として呼び出し元の情報を返すハンドラを返す。
func (s *Server) handleVerify() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := middleware.GetIdentity(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "トークンは有効です",
			"user":    id,
		})
	}
}
