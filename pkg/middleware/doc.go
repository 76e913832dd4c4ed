// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// Bearerトークンによる認証ゲート、ロールによる認可、パニックリカバリ、
// CORS設定を含む。トークンの検証方法はVerifierとして外から注入する。
package middleware
