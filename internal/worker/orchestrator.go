package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prathamsoni002/migration-automation-service/config"
	"github.com/prathamsoni002/migration-automation-service/internal/browser"
	"github.com/prathamsoni002/migration-automation-service/internal/model"
	"github.com/prathamsoni002/migration-automation-service/internal/repository"
)

// AnalysisDispatcher 把采集到的错误报告转交给外部分析服务
type AnalysisDispatcher interface {
	SendErrorReport(ctx context.Context, filePath, taskID string) bool
}

// ProgressNotifier 推送任务状态变化（可选，ws hub 实现）
type ProgressNotifier interface {
	NotifyTask(taskID string, task model.Task)
}

// Orchestrator drives one migration attempt through the portal: login,
// upload, validation polling, then the success/failed/error branch. It is the
// only writer of a task's processing and terminal states.
type Orchestrator struct {
	tasks      *repository.TaskRepository
	launcher   browser.Launcher
	dispatcher AnalysisDispatcher
	progress   ProgressNotifier
	cfg        *config.Config
}

func NewOrchestrator(
	tasks *repository.TaskRepository,
	launcher browser.Launcher,
	dispatcher AnalysisDispatcher,
	progress ProgressNotifier,
	cfg *config.Config,
) *Orchestrator {
	return &Orchestrator{
		tasks:      tasks,
		launcher:   launcher,
		dispatcher: dispatcher,
		progress:   progress,
		cfg:        cfg,
	}
}

// Start 把任务交给后台 goroutine 处理后立即返回。goroutine 内任何 panic
// 都被吞掉并转成 error 终态，绝不向外传播。
func (o *Orchestrator) Start(taskID, filePath string) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Background processing error for task %s: %v", taskID, r)
				o.update(taskID, func(t *model.Task) {
					t.Status = model.StatusError
					t.Message = fmt.Sprintf("Processing error: %v", r)
				})
			}
		}()
		o.process(taskID, filePath)
	}()
}

func (o *Orchestrator) process(taskID, filePath string) {
	log.Printf("Starting processing for task: %s", taskID)

	// 整体兜底时限：门户界面永远不到终态时强制收会话
	ctx, cancel := context.WithTimeout(context.Background(), o.cfg.Worker.TaskTimeout())
	defer cancel()

	o.update(taskID, func(t *model.Task) {
		t.Status = model.StatusProcessing
		t.Message = "Starting browser automation..."
	})

	// 缺配置或缺文件直接 error，不值得开浏览器
	if o.cfg.Credentials.Username == "" || o.cfg.Credentials.Password == "" {
		o.setError(taskID, "Portal credentials not configured")
		return
	}
	loc := o.cfg.Portal.Locators
	if o.cfg.Portal.URL == "" || loc.Username == "" || loc.Password == "" || loc.Continue == "" || loc.ValidationStatus == "" {
		o.setError(taskID, "Portal locators not configured")
		return
	}
	if _, err := os.Stat(filePath); err != nil {
		o.setError(taskID, fmt.Sprintf("File not found: %s", filePath))
		return
	}

	downloadDir := filepath.Join(o.cfg.Upload.TempDir, taskID, "downloads")
	if err := os.MkdirAll(downloadDir, 0755); err != nil {
		o.setError(taskID, fmt.Sprintf("Cannot create download dir: %v", err))
		return
	}

	session, err := o.launcher.NewSession(ctx, browser.SessionOptions{DownloadDir: downloadDir})
	if err != nil {
		o.setError(taskID, fmt.Sprintf("Browser session failed: %v", err))
		return
	}
	// 无论从哪条路径退出都释放会话，释放失败只记日志
	defer func() {
		if err := session.Quit(); err != nil {
			log.Printf("Error closing browser session for task %s: %v", taskID, err)
		}
	}()

	wk := o.cfg.Worker

	// Step 1: 登录。只等固定时长，不验证登录结果——失败会在后面的
	// 定位中暴露出来（已知局限）。
	log.Println("Navigating to portal and logging in")
	o.update(taskID, func(t *model.Task) { t.Message = "Logging in..." })

	if err := o.login(session); err != nil {
		o.setError(taskID, fmt.Sprintf("Login failed: %v", err))
		return
	}
	sleepCtx(ctx, wk.LoginSettle())

	// Step 2: 上传文件
	log.Println("Starting file upload")
	o.update(taskID, func(t *model.Task) { t.Message = "Uploading file..." })
	sleepCtx(ctx, wk.PreUploadSettle())

	o.navigateToMigrationPage(session)

	locators := loc.UploadFallbacks
	if len(locators) == 0 {
		locators = []string{fileInputXPath}
	}
	if loc.Upload != "" {
		locators = append(locators, loc.Upload)
	}
	if !Upload(session, filePath, locators, wk.LocatorWait(), wk.UploadSettle()) {
		o.setError(taskID, "All upload methods failed")
		return
	}

	// Step 3: 等上传与校验
	log.Println("Waiting for upload completion and validation")
	o.update(taskID, func(t *model.Task) { t.Message = "Validating file..." })

	AwaitUploadSettled(session, loc.WaitUpload, loc.WaitUploadDots, wk.UploadPoll(), wk.UploadWait())
	sleepCtx(ctx, wk.PreUploadSettle())
	AwaitValidationTerminal(session, loc.ValidationStatus, wk.Attempts(), wk.ValidationPoll(), wk.ValidationPoll())

	// 分支判断：直接再读一次状态文本
	el, err := session.Element(loc.ValidationStatus, wk.LocatorWait())
	if err != nil {
		o.setError(taskID, fmt.Sprintf("Validation check failed: %v", err))
		return
	}
	statusText, err := el.Text()
	if err != nil {
		o.setError(taskID, fmt.Sprintf("Validation check failed: %v", err))
		return
	}

	lower := strings.ToLower(strings.TrimSpace(statusText))
	if strings.Contains(lower, "failed") || strings.Contains(lower, "error") {
		log.Printf("Validation failed for task %s", taskID)
		o.handleValidationFailure(ctx, session, taskID, downloadDir)
		return
	}

	log.Printf("Validation successful for task %s", taskID)
	o.update(taskID, func(t *model.Task) {
		t.Status = model.StatusSuccess
		t.Message = "File validation completed successfully"
	})
}

func (o *Orchestrator) login(s browser.Session) error {
	loc := o.cfg.Portal.Locators
	wait := o.cfg.Worker.LocatorWait()

	if err := s.Navigate(o.cfg.Portal.URL); err != nil {
		return err
	}
	el, err := s.Element(loc.Username, wait)
	if err != nil {
		return err
	}
	if err := el.Input(o.cfg.Credentials.Username); err != nil {
		return err
	}
	el, err = s.Element(loc.Password, wait)
	if err != nil {
		return err
	}
	if err := el.Input(o.cfg.Credentials.Password); err != nil {
		return err
	}
	el, err = s.Element(loc.Continue, wait)
	if err != nil {
		return err
	}
	return el.Click()
}

// navigateToMigrationPage 当前地址不像迁移页时尝试候选链接，第一个能点的
// 就算数；全都不匹配则原地继续，页面可能本来就支持就地上传。
func (o *Orchestrator) navigateToMigrationPage(s browser.Session) {
	current, err := s.CurrentURL()
	if err == nil && strings.Contains(strings.ToLower(current), "migration") {
		return
	}
	for _, link := range o.cfg.Portal.MigrationLinks {
		el, err := s.Element(link, o.cfg.Worker.UploadSettle())
		if err != nil {
			continue
		}
		if err := el.Click(); err != nil {
			continue
		}
		time.Sleep(o.cfg.Worker.UploadSettle())
		return
	}
}

// handleValidationFailure 走失败分支：采集错误报告并转发分析服务。采集和
// 转发的任何问题都降级成带说明的 failed，不升级成 error。
func (o *Orchestrator) handleValidationFailure(ctx context.Context, session browser.Session, taskID, downloadDir string) {
	wk := o.cfg.Worker
	loc := o.cfg.Portal.Locators

	o.update(taskID, func(t *model.Task) { t.Message = "Downloading error report..." })

	if !ClickShowMessages(session, loc.ShowMessage, wk.LocatorWait(), wk.UploadSettle()) {
		o.setFailed(taskID, "Could not access error details", "", false)
		return
	}

	taskDir := filepath.Join(o.cfg.Upload.TempDir, taskID)
	reportPath, err := Harvest(session, loc.Print, downloadDir, taskDir, taskID, wk.LocatorWait(), wk.DownloadSettle())
	if err != nil {
		if err == ErrNoReportDownloaded {
			o.setFailed(taskID, "No error report downloaded", "", false)
		} else {
			log.Printf("Could not download error report for task %s: %v", taskID, err)
			o.setFailed(taskID, fmt.Sprintf("Validation failed: %v", err), "", false)
		}
		return
	}

	// 转发给分析服务；成败只影响提示语，任务一律 failed
	log.Printf("Sending error file for analysis: %s", taskID)
	o.update(taskID, func(t *model.Task) { t.Message = "Analyzing errors with AI..." })

	sent := o.dispatcher.SendErrorReport(ctx, reportPath, taskID)
	message := "Error analysis completed - check chatbot for detailed insights"
	if !sent {
		log.Printf("Failed to send error file for analysis: %s", taskID)
		message = "Error report ready for download (analysis service unavailable)"
	}

	o.setFailed(taskID, message, reportPath, sent)
}

func (o *Orchestrator) setError(taskID, message string) {
	log.Printf("Processing failed for task %s: %s", taskID, message)
	o.update(taskID, func(t *model.Task) {
		t.Status = model.StatusError
		t.Message = message
	})
}

func (o *Orchestrator) setFailed(taskID, message, resultFile string, analysisSent bool) {
	o.update(taskID, func(t *model.Task) {
		t.Status = model.StatusFailed
		t.Message = message
		t.ResultFile = resultFile
		t.AnalysisSent = analysisSent
	})
}

// update 在注册表上做部分更新，更新成功后推送进度
func (o *Orchestrator) update(taskID string, mutate func(*model.Task)) {
	if err := o.tasks.Update(taskID, mutate); err != nil {
		log.Printf("Task %s update failed: %v", taskID, err)
		return
	}
	if o.progress != nil {
		if task, err := o.tasks.Get(taskID); err == nil {
			o.progress.NotifyTask(taskID, task)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
