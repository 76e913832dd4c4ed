package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const goalColumns = `id, user_id, name, target_amount, saved_amount, category, target_date, created_at, updated_at`

// CreateGoalParams は目標作成のパラメータ。
type CreateGoalParams struct {
	ID           string
	UserID       string
	Name         string
	TargetAmount float64
	SavedAmount  float64
	Category     string
	TargetDate   *time.Time
	CreatedAt    time.Time
}

const createGoal = `
INSERT INTO goals (` + goalColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// CreateGoal は目標を作成する。作成日時と更新日時は同じ値になる。
func (q *Queries) CreateGoal(ctx context.Context, arg CreateGoalParams) error {
	now := formatTime(arg.CreatedAt)
	_, err := q.db.ExecContext(ctx, createGoal,
		arg.ID, arg.UserID, arg.Name, arg.TargetAmount, arg.SavedAmount, arg.Category,
		formatDate(arg.TargetDate), now, now)
	if err != nil {
		return fmt.Errorf("目標の作成に失敗: %w", err)
	}
	return nil
}

const getGoalByID = `SELECT ` + goalColumns + ` FROM goals WHERE id = ?`

// GetGoalByID はIDで目標を取得する。所有者による絞り込みは行わないため、
// 呼び出し側で所有者を確認すること。
func (q *Queries) GetGoalByID(ctx context.Context, id string) (Goal, error) {
	return scanGoal(q.db.QueryRowContext(ctx, getGoalByID, id))
}

const getGoalForUser = `SELECT ` + goalColumns + ` FROM goals WHERE id = ? AND user_id = ?`

// GetGoalForUser は指定ユーザーが所有する目標を取得する。
// 存在しない場合も他人の目標の場合もErrNotFoundを返す。
func (q *Queries) GetGoalForUser(ctx context.Context, id, userID string) (Goal, error) {
	return scanGoal(q.db.QueryRowContext(ctx, getGoalForUser, id, userID))
}

const listGoalsByUserID = `
SELECT ` + goalColumns + ` FROM goals WHERE user_id = ? ORDER BY created_at DESC, id
`

// ListGoalsByUserID はユーザーの目標を新しい順に取得する。
func (q *Queries) ListGoalsByUserID(ctx context.Context, userID string) ([]Goal, error) {
	rows, err := q.db.QueryContext(ctx, listGoalsByUserID, userID)
	if err != nil {
		return nil, fmt.Errorf("目標一覧の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	goals := []Goal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

// UpdateGoalParams は目標更新のパラメータ。IDとUserIDの両方に一致する行だけを更新する。
type UpdateGoalParams struct {
	ID           string
	UserID       string
	Name         string
	TargetAmount float64
	SavedAmount  float64
	Category     string
	TargetDate   *time.Time
	UpdatedAt    time.Time
}

const updateGoal = `
UPDATE goals
SET name = ?, target_amount = ?, saved_amount = ?, category = ?, target_date = ?, updated_at = ?
WHERE id = ? AND user_id = ?
`

// UpdateGoal は目標を更新する。対象がない場合はErrNotFoundを返す。
func (q *Queries) UpdateGoal(ctx context.Context, arg UpdateGoalParams) error {
	res, err := q.db.ExecContext(ctx, updateGoal,
		arg.Name, arg.TargetAmount, arg.SavedAmount, arg.Category,
		formatDate(arg.TargetDate), formatTime(arg.UpdatedAt),
		arg.ID, arg.UserID)
	if err != nil {
		return fmt.Errorf("目標の更新に失敗: %w", err)
	}
	return expectAffected(res)
}

const deleteGoal = `DELETE FROM goals WHERE id = ? AND user_id = ?`

// DeleteGoal は指定ユーザーが所有する目標を削除する。対象がない場合はErrNotFoundを返す。
func (q *Queries) DeleteGoal(ctx context.Context, id, userID string) error {
	res, err := q.db.ExecContext(ctx, deleteGoal, id, userID)
	if err != nil {
		return fmt.Errorf("目標の削除に失敗: %w", err)
	}
	return expectAffected(res)
}

const deleteGoalsByUserID = `DELETE FROM goals WHERE user_id = ?`

// DeleteGoalsByUserID はユーザーのすべての目標を削除し、削除件数を返す。
func (q *Queries) DeleteGoalsByUserID(ctx context.Context, userID string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteGoalsByUserID, userID)
	if err != nil {
		return 0, fmt.Errorf("目標の一括削除に失敗: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("影響行数の取得に失敗: %w", err)
	}
	return n, nil
}

// formatDate は目標期日を保存形式に変換する。nilはNULLになる。
func formatDate(d *time.Time) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.Format(dateLayout), Valid: true}
}

// scanGoal は1行をGoalに変換する。
func scanGoal(row rowScanner) (Goal, error) {
	var (
		g          Goal
		targetDate sql.NullString
		createdAt  string
		updatedAt  string
	)
	err := row.Scan(&g.ID, &g.UserID, &g.Name, &g.TargetAmount, &g.SavedAmount, &g.Category,
		&targetDate, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Goal{}, ErrNotFound
	}
	if err != nil {
		return Goal{}, fmt.Errorf("目標の読み取りに失敗: %w", err)
	}

	if targetDate.Valid {
		d, err := time.Parse(dateLayout, targetDate.String)
		if err != nil {
			return Goal{}, fmt.Errorf("目標期日の解析に失敗: %q: %w", targetDate.String, err)
		}
		g.TargetDate = &d
	}
	if g.CreatedAt, err = parseTime(createdAt); err != nil {
		return Goal{}, err
	}
	if g.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return Goal{}, err
	}
	return g, nil
}
