// Package config は環境変数からアプリケーション設定を読み込む。
//
// カレントディレクトリに .env があれば先に読み込み、すでに設定済みの
// 環境変数は上書きしない。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// AuthMode は認証方式を表す。
type AuthMode string

const (
	// AuthModeLocal は自前の署名付きトークンで認証する。
	AuthModeLocal AuthMode = "local"
	// AuthModeProvider は外部IdPに認証を委譲する。
	AuthModeProvider AuthMode = "provider"
)

// minSecretLength はJWT署名鍵の最小バイト数。
const minSecretLength = 32

// Config はアプリケーション設定。
type Config struct {
	// Port はHTTPサーバーのリッスンポート。
	Port string `envconfig:"PORT" default:"8080"`
	// DatabasePath はSQLiteデータベースファイルのパス。
	DatabasePath string `envconfig:"DATABASE_PATH" default:"data/savings.db"`
	// AllowedOrigins はCORSで許可するオリジン。
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`

	// AuthMode は認証方式（local または provider）。
	AuthMode AuthMode `envconfig:"AUTH_MODE" default:"local"`
	// JWTSecret はlocalモードのトークン署名鍵。
	JWTSecret string `envconfig:"JWT_SECRET"`
	// TokenTTL はlocalモードで発行するトークンの有効期間。
	TokenTTL time.Duration `envconfig:"TOKEN_TTL" default:"24h"`
	// IdentityProviderURL はproviderモードのIdPのベースURL。
	IdentityProviderURL string `envconfig:"IDP_URL"`
	// IdentityProviderAPIKey はIdPへのリクエストに付与するAPIキー。
	IdentityProviderAPIKey string `envconfig:"IDP_API_KEY"`
	// IdentityProviderTimeout はIdPへのリクエストのタイムアウト。
	IdentityProviderTimeout time.Duration `envconfig:"IDP_TIMEOUT" default:"10s"`

	// AllowAdminSignup は /register で admin ロールの登録を許可するかどうか。
	AllowAdminSignup bool `envconfig:"ALLOW_ADMIN_SIGNUP" default:"false"`
	// AdminUsername は起動時に作成する管理者のユーザー名（localモードのみ）。
	AdminUsername string `envconfig:"ADMIN_USERNAME"`
	// AdminPassword は起動時に作成する管理者のパスワード。
	AdminPassword string `envconfig:"ADMIN_PASSWORD"`

	// ShutdownTimeout はグレースフルシャットダウンの待ち時間。
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// Load は .env と環境変数から設定を読み込み、検証する。
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf(".envの読み込みに失敗: %w", err)
	}

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("環境変数の読み込みに失敗: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate は認証方式ごとに必要な設定が揃っているかを確認する。
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT が設定されていません")
	}
	if c.DatabasePath == "" {
		return errors.New("DATABASE_PATH が設定されていません")
	}

	switch c.AuthMode {
	case AuthModeLocal:
		if len(c.JWTSecret) < minSecretLength {
			return fmt.Errorf("JWT_SECRET は%dバイト以上必要です", minSecretLength)
		}
		if c.TokenTTL <= 0 {
			return errors.New("TOKEN_TTL は正の値である必要があります")
		}
		if (c.AdminUsername == "") != (c.AdminPassword == "") {
			return errors.New("ADMIN_USERNAME と ADMIN_PASSWORD は両方設定する必要があります")
		}
	case AuthModeProvider:
		if c.IdentityProviderURL == "" {
			return errors.New("AUTH_MODE=provider では IDP_URL が必要です")
		}
		if c.AdminUsername != "" {
			return errors.New("ADMIN_USERNAME は AUTH_MODE=local でのみ使用できます")
		}
	default:
		return fmt.Errorf("未対応の AUTH_MODE です: %q", c.AuthMode)
	}
	return nil
}
