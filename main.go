package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"cartel-backend/internal/bnf"
	"cartel-backend/internal/catalog"
	"cartel-backend/internal/contributors"
	"cartel-backend/internal/library"
	"cartel-backend/internal/loans"
	"cartel-backend/internal/members"
	"cartel-backend/internal/platform/apperr"
	"cartel-backend/internal/platform/auth"
	"cartel-backend/internal/platform/config"
	"cartel-backend/internal/platform/db"
	"cartel-backend/internal/platform/httpx"
	"cartel-backend/internal/storage/memstore"
	"cartel-backend/internal/storage/mysqlstore"
)

func main() {
	cfgPath := flag.String("config", "config/config.yaml", "path to the YAML configuration")
	hashPw := flag.String("hash-password", "", "print the bcrypt hash of the given password and exit")
	flag.Parse()

	// auth.admin_password_hash 用
	if *hashPw != "" {
		h, err := auth.HashPassword(*hashPw)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(h)
		return
	}

	// 設定読み込み
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("[ERROR] config: %v", err)
	}
	log.Printf("[INFO] mode:%s storage:%s", cfg.Mode, cfg.Storage.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("[ERROR] storage: %v", err)
	}
	defer closeStore()

	if cfg.Mode == config.ModeRelease {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(httpx.RequestID(), httpx.AccessLog(), gin.Recovery())
	_ = r.SetTrustedProxies(nil)

	if cfg.Mode == config.ModeDev {
		// CORS（開発中のみ必要）
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowOrigins,
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", httpx.HeaderRequestID},
			ExposeHeaders:    []string{"Content-Length", "Location", httpx.HeaderRequestID},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowCredentials: true,
		}))
	}

	// ヘルス
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	authSvc := auth.NewService(cfg.Auth)

	// 読み取りは公開、変更系は admin トークン必須
	api := r.Group("/api/v1")
	protected := api.Group("", auth.RequireAuth(authSvc.Secret()), auth.RequireRole(auth.RoleAdmin))

	auth.RegisterRoutes(api, authSvc)
	catalog.RegisterRoutes(api, protected, catalog.NewService(store, bnf.New(cfg.BnF.BaseURL, cfg.BnF.Timeout)))
	contributors.RegisterRoutes(api, protected, contributors.NewService(store))
	members.RegisterRoutes(api, protected, members.NewService(store))
	loans.RegisterRoutes(api, protected, loans.NewService(store))

	r.NoRoute(func(c *gin.Context) {
		httpx.Error(c, apperr.ErrNotFound("route", c.Request.URL.Path))
	})

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: r,
	}

	go func() {
		var err error
		if cfg.Server.Cert != "" && cfg.Server.Key != "" {
			log.Printf("[INFO] listening on https://%s", cfg.Server.Addr)
			err = srv.ListenAndServeTLS(cfg.Server.Cert, cfg.Server.Key)
		} else {
			log.Printf("[INFO] listening on http://%s", cfg.Server.Addr)
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[ERROR] server: %v", err)
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	log.Println("[INFO] shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[ERROR] shutdown: %v", err)
	}
}

// openStore は storage.driver に応じて Store を返す
func openStore(ctx context.Context, cfg *config.Config) (library.Store, func(), error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		log.Println("[WARN] using the in-memory store, data is lost on restart")
		return memstore.New(), func() {}, nil
	default:
		conn, err := db.Connect(ctx, cfg.DB)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("[INFO] connected to DB: %s", cfg.DB.DBName)
		if cfg.DB.Migrate {
			if err := mysqlstore.Migrate(ctx, conn); err != nil {
				_ = conn.Close()
				return nil, nil, fmt.Errorf("migrate: %w", err)
			}
			log.Println("[INFO] schema applied")
		}
		return mysqlstore.New(conn), func() { _ = conn.Close() }, nil
	}
}
