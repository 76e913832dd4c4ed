package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateUserParams はユーザー作成のパラメータ。
type CreateUserParams struct {
	ID           string
	Username     string
	Role         string
	PasswordHash string
	CreatedAt    time.Time
}

const createUser = `
INSERT INTO users (id, username, role, password_hash, created_at)
VALUES (?, ?, ?, ?, ?)
`

// CreateUser はユーザーを作成する。
// ユーザー名が重複している場合はErrDuplicateUsernameを返す。
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) error {
	_, err := q.db.ExecContext(ctx, createUser,
		arg.ID, arg.Username, arg.Role, arg.PasswordHash, formatTime(arg.CreatedAt))
	if isUniqueViolation(err) {
		return ErrDuplicateUsername
	}
	if err != nil {
		return fmt.Errorf("ユーザーの作成に失敗: %w", err)
	}
	return nil
}

const getUserByID = `
SELECT id, username, role, password_hash, created_at FROM users WHERE id = ?
`

// GetUserByID はIDでユーザーを取得する。
func (q *Queries) GetUserByID(ctx context.Context, id string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByID, id))
}

const getUserByUsername = `
SELECT id, username, role, password_hash, created_at FROM users WHERE username = ?
`

// GetUserByUsername はユーザー名でユーザーを取得する。
func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByUsername, username))
}

const listUsers = `
SELECT id, username, role, password_hash, created_at FROM users ORDER BY created_at, username
`

// ListUsers はすべてのユーザーを作成日時順に取得する。
func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := q.db.QueryContext(ctx, listUsers)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

const deleteUser = `DELETE FROM users WHERE id = ?`

// DeleteUser はユーザーを削除する。存在しない場合はErrNotFoundを返す。
func (q *Queries) DeleteUser(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, deleteUser, id)
	if err != nil {
		return fmt.Errorf("ユーザーの削除に失敗: %w", err)
	}
	return expectAffected(res)
}

// DeleteUserCascade はユーザーの目標とユーザー本体を1つのトランザクションで削除する。
// 途中で失敗した場合はどちらも削除されない。
func DeleteUserCascade(ctx context.Context, db *sql.DB, id string) (int64, error) {
	var removed int64
	err := InTx(ctx, db, func(q *Queries) error {
		n, err := q.DeleteGoalsByUserID(ctx, id)
		if err != nil {
			return err
		}
		if err := q.DeleteUser(ctx, id); err != nil {
			return err
		}
		removed = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// scanUser は1行をUserに変換する。
func scanUser(row rowScanner) (User, error) {
	var (
		u         User
		createdAt string
	)
	err := row.Scan(&u.ID, &u.Username, &u.Role, &u.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("ユーザーの読み取りに失敗: %w", err)
	}
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return User{}, err
	}
	return u, nil
}

// expectAffected は更新・削除で1行以上が対象になったことを確認する。
func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("影響行数の取得に失敗: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
