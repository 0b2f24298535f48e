package dto

import "time"

// ProcessMigrationResponse POST /process_migration 的 202 响应
type ProcessMigrationResponse struct {
	TaskID         string `json:"task_id"`
	Status         string `json:"status"`
	Message        string `json:"message"`
	Filename       string `json:"filename"`
	CheckStatusURL string `json:"check_status_url"`
}

// TaskStatusResponse GET /task_status/:id 的轮询响应
type TaskStatusResponse struct {
	TaskID       string    `json:"task_id"`
	Status       string    `json:"status"`
	Message      string    `json:"message"`
	CreatedAt    time.Time `json:"created_at"`
	Filename     string    `json:"filename"`
	AnalysisSent bool      `json:"analysis_sent"`
	DownloadURL  string    `json:"download_url,omitempty"`
	AIAnalysis   string    `json:"ai_analysis,omitempty"`
}
