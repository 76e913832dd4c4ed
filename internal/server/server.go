package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/savings/internal/identity"
	"github.com/nao1215/savings/internal/store"
	"github.com/nao1215/savings/pkg/middleware"
)

// Options はサーバーの設定。LocalとProviderはどちらか一方だけを指定する。
type Options struct {
	// Port はリッスンポート。
	Port string
	// AllowedOrigins はCORSで許可するオリジン。
	AllowedOrigins []string
	// AllowAdminSignup は /register で admin ロールの登録を許可するかどうか。
	AllowAdminSignup bool
	// Local は自前トークン方式の認証。
	Local *identity.LocalAuthority
	// Provider は外部IdP方式の認証。
	Provider *identity.Provider
	// ShutdownTimeout はグレースフルシャットダウンの待ち時間。
	ShutdownTimeout time.Duration
}

// Server は貯蓄目標APIのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// db はSQLiteデータベース接続。トランザクションの開始に使う。
	db *sql.DB
	// queries はユーザーと目標のクエリ実行オブジェクト。
	queries *store.Queries
	// verifier は認証ゲートで使うトークン検証器。
	verifier middleware.Verifier
	// local はlocalモードのトークン発行者。providerモードではnil。
	local *identity.LocalAuthority
	// provider はproviderモードのIdPクライアント。localモードではnil。
	provider *identity.Provider
	// allowAdminSignup は admin ロールの自己登録を許可するかどうか。
	allowAdminSignup bool
	// shutdownTimeout はグレースフルシャットダウンの待ち時間。
	shutdownTimeout time.Duration
}

// NewServer は新しいサーバーを生成する。
func NewServer(db *sql.DB, opts Options) (*Server, error) {
	s := &Server{
		port:             opts.Port,
		db:               db,
		queries:          store.New(db),
		local:            opts.Local,
		provider:         opts.Provider,
		allowAdminSignup: opts.AllowAdminSignup,
		shutdownTimeout:  opts.ShutdownTimeout,
	}

	switch {
	case opts.Local != nil && opts.Provider != nil:
		return nil, errors.New("認証方式はlocalとproviderのどちらか一方だけを指定してください")
	case opts.Local != nil:
		s.verifier = opts.Local
	case opts.Provider != nil:
		s.verifier = opts.Provider
	default:
		return nil, errors.New("認証方式が指定されていません")
	}
	if s.shutdownTimeout <= 0 {
		s.shutdownTimeout = 10 * time.Second
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORS(opts.AllowedOrigins))
	s.router = router
	s.setupRoutes()

	return s, nil
}

// Handler はサーバーのHTTPハンドラを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run はHTTPサーバーを起動し、ctxがキャンセルされるとグレースフルシャットダウンする。
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTPサーバーが停止しました: %w", err)
	case <-ctx.Done():
	}

	log.Printf("[Server] シャットダウンを開始します")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("シャットダウンに失敗: %w", err)
	}
	return nil
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	// 認証不要のエンドポイント
	s.router.POST("/register", s.handleRegister())
	if s.local != nil {
		// providerモードではクライアントがIdPで直接ログインする
		s.router.POST("/login", s.handleLogin())
	}

	authed := s.router.Group("/")
	authed.Use(middleware.Authenticate(s.verifier))
	{
		authed.GET("/verify", s.handleVerify())

		// 管理者のみ
		users := authed.Group("/users")
		users.Use(middleware.RequireRole(store.RoleAdmin))
		{
			users.GET("", s.handleListUsers())
			users.DELETE("/:id", s.handleDeleteUser())
		}

		goals := authed.Group("/goals")
		{
			goals.GET("", s.handleListGoals())
			goals.POST("", s.handleCreateGoal())
			goals.GET("/:id", s.handleGetGoal())
			goals.PUT("/:id", s.handleUpdateGoal())
			goals.PATCH("/:id", s.handlePatchGoal())
			goals.DELETE("/:id", s.handleDeleteGoal())
		}
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "savings"})
	})
}

// callerID は認証済みユーザーのIDを取得する。取得できない場合は401を返してfalseを返す。
func callerID(c *gin.Context) (string, bool) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
		return "", false
	}
	return userID, true
}

// internalError は500エラーを返し、原因をログに記録する。
func internalError(c *gin.Context, message string, err error) {
	c.JSON(http.StatusInternalServerError, gin.H{"error": message})
	log.Printf("[Server] %s %s: %s: %v", c.Request.Method, c.Request.URL.Path, message, err)
}
