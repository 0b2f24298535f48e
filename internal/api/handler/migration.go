package handler

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/prathamsoni002/migration-automation-service/config"
	"github.com/prathamsoni002/migration-automation-service/internal/model"
	"github.com/prathamsoni002/migration-automation-service/internal/model/dto"
	"github.com/prathamsoni002/migration-automation-service/internal/pkg/response"
	"github.com/prathamsoni002/migration-automation-service/internal/repository"
	"github.com/prathamsoni002/migration-automation-service/internal/service"
)

// TaskStarter 把已落盘的任务交给后台处理
type TaskStarter interface {
	Start(taskID, filePath string)
}

type MigrationHandler struct {
	intake  *service.IntakeService
	tasks   *repository.TaskRepository
	starter TaskStarter
	cfg     *config.Config
}

func NewMigrationHandler(
	intake *service.IntakeService,
	tasks *repository.TaskRepository,
	starter TaskStarter,
	cfg *config.Config,
) *MigrationHandler {
	return &MigrationHandler{
		intake:  intake,
		tasks:   tasks,
		starter: starter,
		cfg:     cfg,
	}
}

// Process 接收迁移文件并启动后台处理
// POST /process_migration
func (h *MigrationHandler) Process(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		log.Println("File upload request with no file")
		response.BadRequest(c, "No file uploaded")
		return
	}
	defer file.Close()

	ok, message := h.intake.Validate(file, header)
	if !ok {
		log.Printf("File validation failed: %s", message)
		response.BadRequest(c, message)
		return
	}

	log.Printf("Processing file: %s", header.Filename)

	taskID := service.GenerateTaskID(header.Filename)
	task := &model.Task{
		ID:        taskID,
		Status:    model.StatusUploading,
		Message:   "Receiving file...",
		CreatedAt: time.Now(),
		Filename:  header.Filename,
	}
	if err := h.tasks.Create(task); err != nil {
		response.ServerError(c, err.Error())
		return
	}

	path, secureName, err := h.intake.Save(file, header, taskID)
	if err != nil {
		log.Printf("Error saving file: %v", err)
		_ = h.tasks.Update(taskID, func(t *model.Task) {
			t.Status = model.StatusError
			t.Message = err.Error()
		})
		response.ServerError(c, err.Error())
		return
	}

	_ = h.tasks.Update(taskID, func(t *model.Task) {
		t.Status = model.StatusUploaded
		t.Message = "File uploaded successfully, starting processing..."
		t.FilePath = path
	})

	h.starter.Start(taskID, path)
	log.Printf("Task %s started for file: %s", taskID, secureName)

	response.Accepted(c, dto.ProcessMigrationResponse{
		TaskID:         taskID,
		Status:         "accepted",
		Message:        "File received and processing started in headless mode",
		Filename:       secureName,
		CheckStatusURL: fmt.Sprintf("/task_status/%s", taskID),
	})
}

// Status 任务状态轮询
// GET /task_status/:task_id
func (h *MigrationHandler) Status(c *gin.Context) {
	taskID := c.Param("task_id")

	task, err := h.tasks.Get(taskID)
	if err != nil {
		response.NotFound(c, "Task not found")
		return
	}

	resp := dto.TaskStatusResponse{
		TaskID:       task.ID,
		Status:       task.Status,
		Message:      task.Message,
		CreatedAt:    task.CreatedAt,
		Filename:     task.Filename,
		AnalysisSent: task.AnalysisSent,
	}
	if task.Status == model.StatusFailed && task.ResultFile != "" {
		resp.DownloadURL = fmt.Sprintf("/download_result/%s", taskID)
	}
	if task.AnalysisSent {
		resp.AIAnalysis = "Analysis sent to chatbot - check chatbot for insights"
	}

	response.Success(c, resp)
}

// Download 下载采集到的错误报告
// GET /download_result/:task_id
func (h *MigrationHandler) Download(c *gin.Context) {
	taskID := c.Param("task_id")

	task, err := h.tasks.Get(taskID)
	if err != nil {
		response.NotFound(c, "Task not found")
		return
	}

	if task.Status != model.StatusFailed || task.ResultFile == "" {
		response.NotFound(c, "No result file available")
		return
	}
	if _, err := os.Stat(task.ResultFile); err != nil {
		response.NotFound(c, "Result file not found")
		return
	}

	log.Printf("Downloading error report for task: %s", taskID)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.FileAttachment(task.ResultFile, fmt.Sprintf("error_report_%s.xlsx", taskID))
}

// Cleanup 删除任务记录及其全部落盘文件
// DELETE /cleanup/:task_id
func (h *MigrationHandler) Cleanup(c *gin.Context) {
	taskID := c.Param("task_id")

	if _, err := h.tasks.Delete(taskID); err != nil {
		response.NotFound(c, "Task not found")
		return
	}

	// 任务目录带走上传副本、下载目录和错误报告
	if err := os.RemoveAll(h.intake.TaskDir(taskID)); err != nil {
		log.Printf("Cleanup error for task %s: %v", taskID, err)
	}

	response.Success(c, gin.H{"message": "Task cleaned up successfully"})
}
