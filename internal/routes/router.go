// Package routes はルーティングとミドルウェアを提供します。
package routes

import (
	"database/sql"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"go-group-todo/internal/config"
	"go-group-todo/internal/handlers"
	"go-group-todo/internal/repositories"
	"go-group-todo/internal/services"
)

// Dependencies はルーターの組み立てに必要なものです。
type Dependencies struct {
	DB       *sql.DB
	Config   *config.Config
	Logger   *zap.Logger
	Sessions *services.SessionService
	// Registry が nil の場合は新しいレジストリを作成します。
	Registry *prometheus.Registry
}

// SetupRouter はGinルーターをセットアップし、すべてのエンドポイントを登録します。
func SetupRouter(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	logger := deps.Logger

	reg := deps.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	reg.MustRegister(collectors.NewDBStatsCollector(deps.DB, cfg.DBDriver))
	metrics := NewMetrics(reg)

	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(logger), metrics.Middleware())

	// CORS対策
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	// リポジトリ
	todoRepo := repositories.NewTodoRepository(deps.DB)
	userRepo := repositories.NewUserRepository(deps.DB)
	groupRepo := repositories.NewGroupRepository(deps.DB)

	// サービス
	guard := services.NewGuard(groupRepo, todoRepo)
	userService := services.NewUserService(userRepo, logger)
	groupService := services.NewGroupService(groupRepo, logger)
	todoService := services.NewTodoService(todoRepo, guard, logger)

	// ハンドラー
	userHandler := handlers.NewUserHandler(userService, deps.Sessions, cfg.CookieSecure, logger)
	groupHandler := handlers.NewGroupHandler(groupService, logger)
	todoHandler := handlers.NewTodoHandler(todoService, logger)

	// ルーティング
	r.GET("/api/health", handlers.HealthHandler(deps.DB, logger))
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	r.POST("/api/register", userHandler.RegisterHandler)
	r.POST("/api/login", userHandler.LoginHandler)
	r.POST("/api/logout", userHandler.LogoutHandler)
	r.GET("/api/check-auth", userHandler.CheckAuthHandler)

	authorized := r.Group("/api")
	authorized.Use(SessionMiddleware(deps.Sessions, logger))
	{
		authorized.PUT("/password", userHandler.ChangePasswordHandler)

		authorized.GET("/groups", groupHandler.ListGroupsHandler)
		authorized.POST("/groups", groupHandler.CreateGroupHandler)
		authorized.POST("/groups/join", groupHandler.JoinGroupHandler)

		authorized.GET("/todos", todoHandler.GetTodosHandler)
		authorized.GET("/todos/:id", todoHandler.GetTodoByIDHandler)
		authorized.POST("/todos", todoHandler.CreateTodoHandler)
		authorized.PUT("/todos", todoHandler.UpdateTodoHandler)
		authorized.PUT("/todos/:id", todoHandler.UpdateTodoHandler)
		authorized.DELETE("/todos", todoHandler.DeleteTodoHandler)
		authorized.DELETE("/todos/:id", todoHandler.DeleteTodoHandler)
	}

	r.NoRoute(staticHandler(cfg.StaticDir))

	return r
}

// staticHandler はAPI以外のパスで静的ファイルを返します。存在しないパスは index.html にフォールバックします。
func staticHandler(dir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if dir == "" || strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}

		urlPath := c.Request.URL.Path
		if urlPath == "/" {
			urlPath = "/index.html"
		}
		filePath := filepath.Join(dir, filepath.Clean("/"+urlPath))
		if info, err := os.Stat(filePath); err != nil || info.IsDir() {
			filePath = filepath.Join(dir, "index.html")
		}
		c.File(filePath)
	}
}
