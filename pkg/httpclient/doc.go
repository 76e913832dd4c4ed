// Package httpclient は外部サービスとJSONでやり取りするHTTPクライアントを提供する。
//
// 外部の認証基盤（IdP）へのトークン照会やユーザー作成に使用する。
// 2xx以外の応答はStatusErrorとして返すため、呼び出し側でステータスごとに扱いを分けられる。
package httpclient
