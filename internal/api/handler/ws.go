package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/prathamsoni002/migration-automation-service/internal/pkg/response"
	"github.com/prathamsoni002/migration-automation-service/internal/pkg/ws"
	"github.com/prathamsoni002/migration-automation-service/internal/repository"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: 生产环境需要验证 Origin
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type WebSocketHandler struct {
	hub   *ws.Hub
	tasks *repository.TaskRepository
}

func NewWebSocketHandler(hub *ws.Hub, tasks *repository.TaskRepository) *WebSocketHandler {
	return &WebSocketHandler{
		hub:   hub,
		tasks: tasks,
	}
}

// Watch 订阅任务进度推送
// GET /ws/:task_id
func (h *WebSocketHandler) Watch(c *gin.Context) {
	taskID := c.Param("task_id")

	task, err := h.tasks.Get(taskID)
	if err != nil {
		response.NotFound(c, "Task not found")
		return
	}

	// 升级连接
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}

	client := &ws.Client{
		TaskID: taskID,
		Conn:   conn,
	}

	h.hub.Register(client)

	// 先推一次当前快照，避免订阅者错过已发生的状态变化
	h.hub.NotifyTask(taskID, task)

	// 保持连接，读取消息（主要用于检测断开）
	go func() {
		defer h.hub.Unregister(client)
		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				break
			}
		}
	}()
}
