package api

import (
	"github.com/gin-gonic/gin"

	"github.com/prathamsoni002/migration-automation-service/config"
	"github.com/prathamsoni002/migration-automation-service/internal/api/handler"
	"github.com/prathamsoni002/migration-automation-service/internal/api/middleware"
)

type Router struct {
	migrationHandler *handler.MigrationHandler
	healthHandler    *handler.HealthHandler
	websocketHandler *handler.WebSocketHandler
	cfg              *config.Config
}

func NewRouter(
	migrationHandler *handler.MigrationHandler,
	healthHandler *handler.HealthHandler,
	websocketHandler *handler.WebSocketHandler,
	cfg *config.Config,
) *Router {
	return &Router{
		migrationHandler: migrationHandler,
		healthHandler:    healthHandler,
		websocketHandler: websocketHandler,
		cfg:              cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(r.cfg.CORS))

	// 限制 multipart 内存缓冲，超出部分落盘
	engine.MaxMultipartMemory = 8 << 20

	// 服务信息与健康检查
	engine.GET("/", r.healthHandler.Home)
	engine.GET("/health", r.healthHandler.Health)

	// 迁移任务生命周期
	engine.POST("/process_migration", r.migrationHandler.Process)
	engine.GET("/task_status/:task_id", r.migrationHandler.Status)
	engine.GET("/download_result/:task_id", r.migrationHandler.Download)
	engine.DELETE("/cleanup/:task_id", r.migrationHandler.Cleanup)

	// WebSocket 进度推送
	engine.GET("/ws/:task_id", r.websocketHandler.Watch)

	return engine
}
