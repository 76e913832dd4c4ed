package identity

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/savings/internal/store"
)

// EnsureAdmin は指定したユーザー名の管理者が存在しなければ作成する。
// 作成した場合はtrueを返す。同名の一般ユーザーが存在する場合は昇格させずエラーを返す。
func EnsureAdmin(ctx context.Context, q *store.Queries, username, password string) (bool, error) {
	existing, err := q.GetUserByUsername(ctx, username)
	switch {
	case err == nil:
		if existing.Role != store.RoleAdmin {
			return false, fmt.Errorf("ユーザー %q は管理者ではありません", username)
		}
		return false, nil
	case !errors.Is(err, store.ErrNotFound):
		return false, fmt.Errorf("管理者の確認に失敗: %w", err)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return false, err
	}
	id := uuid.New().String()
	if err := q.CreateUser(ctx, store.CreateUserParams{
		ID:           id,
		Username:     username,
		Role:         store.RoleAdmin,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}); err != nil {
		return false, fmt.Errorf("管理者の作成に失敗: %w", err)
	}

	log.Printf("[Identity] 管理者 %s を作成しました: %s", username, id)
	return true, nil
}
