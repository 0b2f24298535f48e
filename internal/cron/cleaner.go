package cron

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/prathamsoni002/migration-automation-service/config"
	"github.com/prathamsoni002/migration-automation-service/internal/repository"
)

// Cleaner 定时清扫过期任务：磁盘上的任务目录和注册表里的终态记录。
// 仍在处理中的任务绝不清理，即使目录已经超期。
type Cleaner struct {
	tasks       *repository.TaskRepository
	tempDir     string
	expireHours int
	stopChan    chan struct{}
}

func NewCleaner(tasks *repository.TaskRepository, cfg *config.Config) *Cleaner {
	return &Cleaner{
		tasks:       tasks,
		tempDir:     cfg.Upload.TempDir,
		expireHours: cfg.Upload.ExpireHours,
		stopChan:    make(chan struct{}),
	}
}

// Start 启动定时任务
func (c *Cleaner) Start() {
	go c.run()
}

// Stop 停止定时任务
func (c *Cleaner) Stop() {
	close(c.stopChan)
}

// run 每小时执行一次全量清理
func (c *Cleaner) run() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.RunNow()
		}
	}
}

// RunNow 立即执行一次清理（用于测试或手动触发）
func (c *Cleaner) RunNow() {
	expireHours := c.expireHours
	if expireHours <= 0 {
		expireHours = 1
	}
	cleaned := c.sweep(time.Duration(expireHours) * time.Hour)
	if cleaned > 0 {
		log.Printf("Cleanup summary: tasks=%d", cleaned)
	}
}

// sweep 清理过期的任务目录（<temp_dir>/<task_id>/）及其注册表记录
func (c *Cleaner) sweep(expireDuration time.Duration) int {
	if c.tempDir == "" {
		return 0
	}

	entries, err := os.ReadDir(c.tempDir)
	if err != nil {
		log.Printf("Cleanup: failed to read dir %s: %v", c.tempDir, err)
		return 0
	}

	cleaned := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if time.Since(info.ModTime()) <= expireDuration {
			continue
		}

		taskID := entry.Name()

		// 注册表里还在跑的任务不碰，目录名对不上注册表的孤儿目录直接清
		if task, err := c.tasks.Get(taskID); err == nil && !task.IsTerminal() {
			continue
		}

		dirPath := filepath.Join(c.tempDir, taskID)
		if err := os.RemoveAll(dirPath); err != nil {
			log.Printf("Cleanup: failed to remove %s: %v", dirPath, err)
			continue
		}
		if _, err := c.tasks.Delete(taskID); err == nil {
			log.Printf("Cleaned up expired task: %s", taskID)
		}
		cleaned++
	}
	return cleaned
}
