package store

import "time"

const (
	// RoleUser は一般ユーザーのロール。
	RoleUser = "user"
	// RoleAdmin は管理者のロール。
	RoleAdmin = "admin"
)

// User はusersテーブルの1行を表す。
type User struct {
	ID           string
	Username     string
	Role         string
	PasswordHash string
	CreatedAt    time.Time
}

// Goal はgoalsテーブルの1行を表す。
type Goal struct {
	ID           string
	UserID       string
	Name         string
	TargetAmount float64
	SavedAmount  float64
	Category     string
	// TargetDate は目標期日。未設定の場合はnil。
	TargetDate *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
