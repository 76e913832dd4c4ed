// Package store はユーザーと貯蓄目標を永続化するSQLiteストアを提供する。
//
// クエリはsqlcと同じ形のQueriesに集約し、*sql.DBと*sql.Txのどちらでも
// 実行できる。目標の更新・削除はすべて所有ユーザーIDで絞り込む。
package store
