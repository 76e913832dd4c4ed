package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/nao1215/savings/internal/store"
	"github.com/nao1215/savings/pkg/httpclient"
	"github.com/nao1215/savings/pkg/middleware"
)

// ErrDuplicateUser はIdPに同じユーザーがすでに存在することを表す。
var ErrDuplicateUser = errors.New("IdPにユーザーがすでに存在します")

const (
	// introspectPath はIdPのトークン照会エンドポイント。
	introspectPath = "/v1/tokens:introspect"
	// usersPath はIdPのユーザー作成エンドポイント。
	usersPath = "/v1/users"
)

// introspectRequest はトークン照会のリクエストボディ。
type introspectRequest struct {
	Token string `json:"token"`
}

// introspectResponse はトークン照会のレスポンスボディ。
type introspectResponse struct {
	// Active はトークンが有効かどうか。
	Active bool `json:"active"`
	// UserID はIdP上のユーザーID。
	UserID string `json:"user_id"`
	// Username はIdP上のユーザー名。
	Username string `json:"username"`
}

// createUserRequest はユーザー作成のリクエストボディ。
type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// createUserResponse はユーザー作成のレスポンスボディ。
type createUserResponse struct {
	UserID string `json:"user_id"`
}

// Provider は外部IdPにトークン検証とユーザー作成を委譲する。
type Provider struct {
	client *httpclient.Client
	users  UserLookup
}

// NewProvider は新しいProviderを生成する。
// usersはロールの参照と削除済みユーザーの判定に使う。
func NewProvider(client *httpclient.Client, users UserLookup) *Provider {
	return &Provider{client: client, users: users}
}

// Verify はIdPのトークン照会APIでトークンを検証する。
func (p *Provider) Verify(ctx context.Context, token string) (middleware.Identity, error) {
	var resp introspectResponse
	err := p.client.PostJSON(ctx, introspectPath, introspectRequest{Token: token}, &resp)
	if isRejection(err) {
		return middleware.Identity{}, fmt.Errorf("%w: %v", middleware.ErrInvalidCredential, err)
	}
	if err != nil {
		return middleware.Identity{}, fmt.Errorf("IdPへのトークン照会に失敗: %w", err)
	}
	if !resp.Active || resp.UserID == "" {
		return middleware.Identity{}, middleware.ErrInvalidCredential
	}

	// 登録時にローカルにも記録するため、記録が無いユーザーは削除済みとみなす
	u, err := p.users.GetUserByID(ctx, resp.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return middleware.Identity{}, fmt.Errorf("%s: %w", resp.UserID, middleware.ErrIdentityGone)
	}
	if err != nil {
		return middleware.Identity{}, fmt.Errorf("ユーザーの確認に失敗: %w", err)
	}

	id := middleware.Identity{UserID: u.ID, Username: resp.Username, Role: u.Role}
	if id.Username == "" {
		id.Username = u.Username
	}
	if id.Username == "" {
		id.Username = u.ID
	}
	return id, nil
}

// CreateUser はIdPにユーザーを作成し、IdP上のユーザーIDを返す。
func (p *Provider) CreateUser(ctx context.Context, username, password string) (string, error) {
	var resp createUserResponse
	err := p.client.PostJSON(ctx, usersPath, createUserRequest{Username: username, Password: password}, &resp)

	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusConflict {
		return "", ErrDuplicateUser
	}
	if err != nil {
		return "", fmt.Errorf("IdPへのユーザー作成に失敗: %w", err)
	}
	if resp.UserID == "" {
		return "", errors.New("IdPのレスポンスにuser_idがありません")
	}
	return resp.UserID, nil
}

// isRejection はIdPがトークンを拒否した応答かどうかを判定する。
func isRejection(err error) bool {
	var statusErr *httpclient.StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	switch statusErr.StatusCode {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}
