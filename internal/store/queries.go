package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DBTX は*sql.DBと*sql.Txの両方が満たすクエリ実行インターフェース。
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries はユーザーと目標に対するクエリをまとめたもの。
type Queries struct {
	db DBTX
}

// New は新しいQueriesを生成する。
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx はトランザクション上で実行するQueriesを返す。
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// timeLayout はタイムスタンプ列の保存形式。
// 文字列比較で時刻順に並ぶよう小数部を9桁固定にする。
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// dateLayout は目標期日列の保存形式。
const dateLayout = time.DateOnly

// formatTime はタイムスタンプをUTCの保存形式に変換する。
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime は保存形式のタイムスタンプを解析する。
func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("タイムスタンプの解析に失敗: %q: %w", s, err)
	}
	return t, nil
}

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}
