package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prathamsoni002/migration-automation-service/config"
	"github.com/prathamsoni002/migration-automation-service/internal/api"
	"github.com/prathamsoni002/migration-automation-service/internal/api/handler"
	"github.com/prathamsoni002/migration-automation-service/internal/browser"
	"github.com/prathamsoni002/migration-automation-service/internal/chatbot"
	"github.com/prathamsoni002/migration-automation-service/internal/cron"
	"github.com/prathamsoni002/migration-automation-service/internal/pkg/ws"
	"github.com/prathamsoni002/migration-automation-service/internal/repository"
	"github.com/prathamsoni002/migration-automation-service/internal/service"
	"github.com/prathamsoni002/migration-automation-service/internal/worker"
)

func main() {
	// 加载配置
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := os.MkdirAll(cfg.Upload.TempDir, 0o755); err != nil {
		log.Fatalf("Failed to create temp dir: %v", err)
	}

	// 初始化 WebSocket Hub
	wsHub := ws.NewHub()
	log.Println("WebSocket hub started")

	// 初始化 Repository 与 Service
	taskRepo := repository.NewTaskRepository()
	intakeService := service.NewIntakeService(cfg)
	chatbotClient := chatbot.NewClient(cfg.Chatbot)
	launcher := browser.NewRodLauncher(cfg.Browser)

	// 后台迁移处理
	orchestrator := worker.NewOrchestrator(taskRepo, launcher, chatbotClient, wsHub, cfg)

	// 过期任务清扫
	cleaner := cron.NewCleaner(taskRepo, cfg)
	cleaner.Start()
	defer cleaner.Stop()
	log.Println("Cleanup scheduler started")

	// 初始化 Handler
	migrationHandler := handler.NewMigrationHandler(intakeService, taskRepo, orchestrator, cfg)
	healthHandler := handler.NewHealthHandler(taskRepo, chatbotClient, cfg)
	websocketHandler := handler.NewWebSocketHandler(wsHub, taskRepo)

	// 初始化 Router
	router := api.NewRouter(migrationHandler, healthHandler, websocketHandler, cfg)
	engine := router.Setup()

	// 启动服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Starting Migration Automation Service on %s", addr)
	log.Printf("Mode: HEADLESS=%v", cfg.Browser.Headless)

	srv := &http.Server{Addr: addr, Handler: engine}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 收到退出信号后停止接收请求并清掉临时目录
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	if err := os.RemoveAll(cfg.Upload.TempDir); err != nil {
		log.Printf("Scratch cleanup error: %v", err)
	}
	log.Println("Server stopped")
}
