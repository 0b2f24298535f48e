package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/prathamsoni002/migration-automation-service/config"
	"github.com/prathamsoni002/migration-automation-service/internal/chatbot"
	"github.com/prathamsoni002/migration-automation-service/internal/pkg/response"
	"github.com/prathamsoni002/migration-automation-service/internal/repository"
)

const serviceName = "Migration Automation Service (Headless) + AI Error Analysis"

type HealthHandler struct {
	tasks   *repository.TaskRepository
	chatbot *chatbot.Client
	cfg     *config.Config
}

func NewHealthHandler(tasks *repository.TaskRepository, chatbotClient *chatbot.Client, cfg *config.Config) *HealthHandler {
	return &HealthHandler{
		tasks:   tasks,
		chatbot: chatbotClient,
		cfg:     cfg,
	}
}

// Home 服务信息
// GET /
func (h *HealthHandler) Home(c *gin.Context) {
	response.Success(c, gin.H{
		"service":   serviceName,
		"version":   "2.0.0",
		"status":    "running",
		"mode":      "headless",
		"timestamp": time.Now().Format(time.RFC3339),
		"endpoints": gin.H{
			"health":            "/health (GET)",
			"process_migration": "/process_migration (POST)",
			"task_status":       "/task_status/:task_id (GET)",
			"download_result":   "/download_result/:task_id (GET)",
			"cleanup":           "/cleanup/:task_id (DELETE)",
			"watch":             "/ws/:task_id (GET, websocket)",
		},
		"limits": gin.H{
			"max_file_size_mb":   h.cfg.Upload.MaxSize / (1024 * 1024),
			"allowed_extensions": h.cfg.Upload.AllowedExtensions,
		},
		"integrations": gin.H{
			"chatbot_service": h.cfg.Chatbot.BaseURL,
			"error_analysis":  "enabled",
		},
	})
}

// Health 本服务与分析服务的健康状况
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	chatbotStatus := h.chatbot.Health(c.Request.Context())

	response.Success(c, gin.H{
		"status":       "healthy",
		"service":      serviceName,
		"timestamp":    time.Now().Format(time.RFC3339),
		"active_tasks": h.tasks.Count(),
		"integrations": gin.H{
			"chatbot_service": chatbotStatus,
			"error_analysis":  "enabled",
		},
	})
}
