// Package chatbot is the HTTP client for the companion analysis service that
// turns harvested error reports into natural-language explanations.
package chatbot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prathamsoni002/migration-automation-service/config"
)

type Client struct {
	baseURL      string
	sendClient   *http.Client
	healthClient *http.Client
}

func NewClient(cfg config.ChatbotConfig) *Client {
	return &Client{
		baseURL:      cfg.BaseURL,
		sendClient:   &http.Client{Timeout: cfg.SendTimeout()},
		healthClient: &http.Client{Timeout: cfg.HealthTimeout()},
	}
}

// analysisRequest 错误分析请求载荷
type analysisRequest struct {
	Type      string `json:"type"`
	FilePath  string `json:"file_path"`
	TaskID    string `json:"task_id"`
	Timestamp string `json:"timestamp"`
}

// SendErrorReport 把错误报告的位置推给分析服务。fire-and-forget：任何失败
// 只记日志并返回 false，绝不抛给调用方。
func (c *Client) SendErrorReport(ctx context.Context, filePath, taskID string) bool {
	payload := analysisRequest{
		Type:      "error_analysis",
		FilePath:  filePath,
		TaskID:    taskID,
		Timestamp: time.Now().Format(time.RFC3339),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Error in analysis workflow: %v", err)
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/send_to_chatbot", c.baseURL), bytes.NewReader(body))
	if err != nil {
		log.Printf("Error in analysis workflow: %v", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.sendClient.Do(req)
	if err != nil {
		log.Printf("Error in analysis workflow: %v", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("Failed to initiate analysis: %d", resp.StatusCode)
		return false
	}

	log.Printf("Successfully initiated error analysis for task: %s", taskID)
	return true
}

// Health 探测分析服务的健康状况，用于 /health 汇报
func (c *Client) Health(ctx context.Context) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/migration/health", c.baseURL), nil)
	if err != nil {
		return "unavailable"
	}

	resp, err := c.healthClient.Do(req)
	if err != nil {
		return "unavailable"
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return "healthy"
	}
	return "unhealthy"
}
