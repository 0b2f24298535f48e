package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/prathamsoni002/migration-automation-service/internal/model"
)

type Hub struct {
	// 每个任务可以有多个观察连接（多标签页、重连等场景）
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	TaskID string
	Conn   *websocket.Conn
	mu     sync.Mutex // 写锁，防止并发写入
}

type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.TaskID] == nil {
		h.clients[client.TaskID] = make(map[*Client]struct{})
	}
	h.clients[client.TaskID][client] = struct{}{}
	log.Printf("Watcher connected for task %s, watchers: %d", client.TaskID, len(h.clients[client.TaskID]))
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.clients[client.TaskID]; ok {
		delete(conns, client)
		if len(conns) == 0 {
			delete(h.clients, client.TaskID)
		}
	}
	log.Printf("Watcher disconnected for task %s", client.TaskID)
}

// SendToTask 向任务的所有观察连接发送消息；无人观察时静默返回
func (h *Hub) SendToTask(taskID string, msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	h.mu.RLock()
	conns, ok := h.clients[taskID]
	if !ok {
		h.mu.RUnlock()
		return nil
	}
	// 复制一份引用，避免长时间持锁
	clients := make([]*Client, 0, len(conns))
	for c := range conns {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.mu.Lock()
		err := c.Conn.WriteMessage(websocket.TextMessage, data)
		c.mu.Unlock()
		if err != nil {
			log.Printf("SendToTask write error for task %s: %v", taskID, err)
		}
	}
	return nil
}

// NotifyTask worker 的进度回调：把最新任务快照推给观察者
func (h *Hub) NotifyTask(taskID string, task model.Task) {
	_ = h.SendToTask(taskID, &Message{Type: "task_update", Data: task})
}

// IsWatched 检查任务是否有观察连接
func (h *Hub) IsWatched(taskID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conns, ok := h.clients[taskID]
	return ok && len(conns) > 0
}

// ConnectionCount 获取在线连接数
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, conns := range h.clients {
		total += len(conns)
	}
	return total
}
