package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prathamsoni002/migration-automation-service/config"
	"github.com/prathamsoni002/migration-automation-service/internal/model"
	"github.com/prathamsoni002/migration-automation-service/internal/model/dto"
	"github.com/prathamsoni002/migration-automation-service/internal/repository"
	"github.com/prathamsoni002/migration-automation-service/internal/service"
)

// noopStarter 记录启动请求但不做任何后台处理
type noopStarter struct {
	started []string
}

func (s *noopStarter) Start(taskID, filePath string) {
	s.started = append(s.started, taskID)
}

func setupMigrationHandler(t *testing.T) (*MigrationHandler, *repository.TaskRepository, *noopStarter, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Upload: config.UploadConfig{
			MaxSize:           104857600,
			TempDir:           t.TempDir(),
			ExpireHours:       1,
			AllowedExtensions: []string{".xml", ".xlsx", ".xls", ".csv"},
		},
	}
	tasks := repository.NewTaskRepository()
	intake := service.NewIntakeService(cfg)
	starter := &noopStarter{}
	h := NewMigrationHandler(intake, tasks, starter, cfg)

	router := gin.New()
	router.POST("/process_migration", h.Process)
	router.GET("/task_status/:task_id", h.Status)
	router.GET("/download_result/:task_id", h.Download)
	router.DELETE("/cleanup/:task_id", h.Cleanup)

	return h, tasks, starter, router
}

func multipartUpload(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/process_migration", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestMigrationHandler_Process(t *testing.T) {
	_, tasks, starter, router := setupMigrationHandler(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, multipartUpload(t, "products.csv", []byte("sku,name\n1,widget\n")))

	assert.Equal(t, http.StatusAccepted, w.Code)

	var resp dto.ProcessMigrationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.TaskID)
	assert.Len(t, resp.TaskID, 12)
	assert.Equal(t, "accepted", resp.Status)
	assert.Contains(t, resp.CheckStatusURL, resp.TaskID)

	// 任务已落盘并交给后台
	task, err := tasks.Get(resp.TaskID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusUploaded, task.Status)
	assert.NotEmpty(t, task.FilePath)
	_, err = os.Stat(task.FilePath)
	assert.NoError(t, err)
	assert.Equal(t, []string{resp.TaskID}, starter.started)
}

func TestMigrationHandler_Process_NoFile(t *testing.T) {
	_, _, _, router := setupMigrationHandler(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/process_migration", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "No file uploaded")
}

func TestMigrationHandler_Process_DisallowedExtension(t *testing.T) {
	_, tasks, starter, router := setupMigrationHandler(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, multipartUpload(t, "report.pdf", []byte("%PDF-1.4")))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "not allowed")
	assert.Equal(t, 0, tasks.Count())
	assert.Empty(t, starter.started)
}

func TestMigrationHandler_Process_EmptyFile(t *testing.T) {
	_, _, _, router := setupMigrationHandler(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, multipartUpload(t, "empty.csv", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "empty")
}

func TestMigrationHandler_Status(t *testing.T) {
	_, tasks, _, router := setupMigrationHandler(t)

	require.NoError(t, tasks.Create(&model.Task{
		ID:        "abc123def456",
		Status:    model.StatusProcessing,
		Message:   "Uploading file to migration cockpit...",
		CreatedAt: time.Now(),
		Filename:  "products.csv",
	}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/task_status/abc123def456", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.TaskStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "abc123def456", resp.TaskID)
	assert.Equal(t, model.StatusProcessing, resp.Status)
	assert.Empty(t, resp.DownloadURL)
}

func TestMigrationHandler_Status_FailedWithReport(t *testing.T) {
	_, tasks, _, router := setupMigrationHandler(t)

	require.NoError(t, tasks.Create(&model.Task{
		ID:           "abc123def456",
		Status:       model.StatusFailed,
		Message:      "Validation failed. Error analysis completed - check chatbot for detailed insights",
		CreatedAt:    time.Now(),
		Filename:     "products.csv",
		ResultFile:   "/tmp/error_report_abc123def456.xlsx",
		AnalysisSent: true,
	}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/task_status/abc123def456", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.TaskStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "/download_result/abc123def456", resp.DownloadURL)
	assert.True(t, resp.AnalysisSent)
	assert.NotEmpty(t, resp.AIAnalysis)
}

func TestMigrationHandler_Status_NotFound(t *testing.T) {
	_, _, _, router := setupMigrationHandler(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/task_status/nope", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Task not found")
}

func TestMigrationHandler_Download(t *testing.T) {
	_, tasks, _, router := setupMigrationHandler(t)

	report := filepath.Join(t.TempDir(), "error_report_abc123def456.xlsx")
	require.NoError(t, os.WriteFile(report, []byte("xlsx-bytes"), 0o644))

	require.NoError(t, tasks.Create(&model.Task{
		ID:         "abc123def456",
		Status:     model.StatusFailed,
		ResultFile: report,
	}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/download_result/abc123def456", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "xlsx-bytes", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "error_report_abc123def456.xlsx")
}

func TestMigrationHandler_Download_NotFailed(t *testing.T) {
	_, tasks, _, router := setupMigrationHandler(t)

	require.NoError(t, tasks.Create(&model.Task{
		ID:     "abc123def456",
		Status: model.StatusSuccess,
	}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/download_result/abc123def456", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "No result file available")
}

func TestMigrationHandler_Download_FileMissing(t *testing.T) {
	_, tasks, _, router := setupMigrationHandler(t)

	require.NoError(t, tasks.Create(&model.Task{
		ID:         "abc123def456",
		Status:     model.StatusFailed,
		ResultFile: "/nonexistent/error_report.xlsx",
	}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/download_result/abc123def456", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Result file not found")
}

func TestMigrationHandler_Cleanup(t *testing.T) {
	h, tasks, _, router := setupMigrationHandler(t)

	// 先通过上传建立真实的任务目录
	w := httptest.NewRecorder()
	router.ServeHTTP(w, multipartUpload(t, "products.csv", []byte("sku\n1\n")))
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp dto.ProcessMigrationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	taskDir := h.intake.TaskDir(resp.TaskID)
	_, err := os.Stat(taskDir)
	require.NoError(t, err)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/cleanup/"+resp.TaskID, nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "cleaned up")

	_, err = tasks.Get(resp.TaskID)
	assert.ErrorIs(t, err, repository.ErrTaskNotFound)
	_, err = os.Stat(taskDir)
	assert.True(t, os.IsNotExist(err))

	// 重复清理返回 404
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/cleanup/"+resp.TaskID, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
