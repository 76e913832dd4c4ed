// 貯蓄目標サービスのエントリポイント。
// ユーザー認証と、ユーザーごとの貯蓄目標のCRUDを提供する。
// 認証方式はAUTH_MODEで自前トークン（local）と外部IdP（provider）から1つを選ぶ。
package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/savings/internal/config"
	"github.com/nao1215/savings/internal/identity"
	"github.com/nao1215/savings/internal/server"
	"github.com/nao1215/savings/internal/store"
	"github.com/nao1215/savings/pkg/httpclient"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("貯蓄目標サービスの起動に失敗: %v", err)
	}
}

// run は設定の読み込みからサーバーの停止までを実行する。
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	opts, err := authOptions(ctx, cfg, db)
	if err != nil {
		return err
	}
	opts.Port = cfg.Port
	opts.AllowedOrigins = cfg.AllowedOrigins
	opts.AllowAdminSignup = cfg.AllowAdminSignup
	opts.ShutdownTimeout = cfg.ShutdownTimeout

	srv, err := server.NewServer(db, opts)
	if err != nil {
		return err
	}

	log.Printf("貯蓄目標サービスを起動します: :%s (AUTH_MODE=%s)", cfg.Port, cfg.AuthMode)
	return srv.Run(ctx)
}

// authOptions は認証方式に応じたサーバー設定を組み立てる。
func authOptions(ctx context.Context, cfg *config.Config, db *sql.DB) (server.Options, error) {
	queries := store.New(db)

	if cfg.AuthMode == config.AuthModeProvider {
		client := httpclient.New(cfg.IdentityProviderURL,
			httpclient.WithTimeout(cfg.IdentityProviderTimeout),
			httpclient.WithHeader("X-API-Key", cfg.IdentityProviderAPIKey),
		)
		return server.Options{Provider: identity.NewProvider(client, queries)}, nil
	}

	if cfg.AdminUsername != "" {
		if _, err := identity.EnsureAdmin(ctx, queries, cfg.AdminUsername, cfg.AdminPassword); err != nil {
			return server.Options{}, err
		}
	}
	return server.Options{
		Local: identity.NewLocalAuthority(cfg.JWTSecret, cfg.TokenTTL, queries),
	}, nil
}
