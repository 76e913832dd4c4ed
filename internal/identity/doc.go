// Package identity は呼び出し元の認証方式を提供する。
//
// 2つの方式があり、プロセスごとにどちらか一方だけを使う。
//
//   - LocalAuthority: 自前で署名付きトークン（HS256のJWT）を発行・検証する。
//     検証時には署名と有効期限に加え、ユーザーがまだ存在するかをストアで確認し、
//     ロールはストアの値を採用する。
//   - Provider: 外部の認証基盤（IdP）のトークン照会APIに検証を委譲する。
//
// どちらもmiddleware.Verifierを満たし、認証ゲートに注入して使う。
package identity
