// Package server は貯蓄目標APIのHTTPサーバーを提供する。
//
// ユーザー登録とログイン、トークン検証、管理者向けのユーザー管理、
// 呼び出し元ユーザーに限定した目標のCRUDを扱う。認証方式はlocalと
// providerのどちらか一方を起動時に選ぶ。
package server
