package model

import "time"

// 任务状态。uploading/uploaded 由请求线程写入，processing 及之后的状态
// 由后台 worker 写入；success/failed/error 为终态，之后不再变化。
const (
	StatusUploading  = "uploading"
	StatusUploaded   = "uploaded"
	StatusProcessing = "processing"
	StatusSuccess    = "success"
	StatusFailed     = "failed"
	StatusError      = "error"
)

// Task 一次迁移上传任务的全部状态
type Task struct {
	ID           string    `json:"task_id"`
	Status       string    `json:"status"`
	Message      string    `json:"message"`
	CreatedAt    time.Time `json:"created_at"`
	Filename     string    `json:"filename"`
	FilePath     string    `json:"-"` // 校验后的私有副本，绝对路径
	ResultFile   string    `json:"-"` // 采集到的错误报告，仅 failed 且采集成功时存在
	AnalysisSent bool      `json:"analysis_sent"`
}

// IsTerminal 终态任务不会再被 worker 修改
func (t *Task) IsTerminal() bool {
	switch t.Status {
	case StatusSuccess, StatusFailed, StatusError:
		return true
	}
	return false
}
