package server

import (
	"time"

	"github.com/nao1215/savings/internal/store"
)

// userResponse はユーザーのJSONレスポンス構造。パスワードハッシュは含めない。
type userResponse struct {
	// ID はユーザーの一意識別子。
	ID string `json:"id"`
	// Username はログイン名。
	Username string `json:"username"`
	// Role はユーザーのロール。
	Role string `json:"role"`
	// CreatedAt は登録日時。
	CreatedAt string `json:"createdAt"`
}

// goalResponse は貯蓄目標のJSONレスポンス構造。
type goalResponse struct {
	// ID は目標の一意識別子。
	ID string `json:"id"`
	// UserID は目標を作成したユーザーのID。
	UserID string `json:"userId"`
	// Name は目標名。
	Name string `json:"name"`
	// TargetAmount は目標金額。
	TargetAmount float64 `json:"targetAmount"`
	// SavedAmount は貯蓄済みの金額。
	SavedAmount float64 `json:"savedAmount"`
	// Category はカテゴリ。
	Category string `json:"category"`
	// TargetDate は達成予定日。未設定の場合はnull。
	TargetDate *string `json:"targetDate"`
	// CreatedAt は作成日時。
	CreatedAt string `json:"createdAt"`
	// UpdatedAt は更新日時。
	UpdatedAt string `json:"updatedAt"`
}

// toUserResponse はDB行をJSONレスポンスに変換する。
func toUserResponse(u store.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Role:      u.Role,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// toGoalResponse はDB行をJSONレスポンスに変換する。
func toGoalResponse(g store.Goal) goalResponse {
	var targetDate *string
	if g.TargetDate != nil {
		d := g.TargetDate.Format(time.DateOnly)
		targetDate = &d
	}
	return goalResponse{
		ID:           g.ID,
		UserID:       g.UserID,
		Name:         g.Name,
		TargetAmount: g.TargetAmount,
		SavedAmount:  g.SavedAmount,
		Category:     g.Category,
		TargetDate:   targetDate,
		CreatedAt:    g.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    g.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
