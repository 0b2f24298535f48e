package worker

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prathamsoni002/migration-automation-service/internal/browser"
)

var ErrNoReportDownloaded = fmt.Errorf("no error report downloaded")

// ClickShowMessages 打开错误消息弹层。门户把点击目标做在状态标签的父节点
// 上，所以先定位标签再点它的父元素。
func ClickShowMessages(s browser.Session, locator string, wait, settle time.Duration) bool {
	el, err := s.Element(locator, wait)
	if err != nil {
		log.Printf("Failed to click Show Messages: %v", err)
		return false
	}
	parent, err := el.Parent()
	if err != nil {
		log.Printf("Failed to click Show Messages: %v", err)
		return false
	}
	if err := parent.Click(); err != nil {
		log.Printf("Failed to click Show Messages: %v", err)
		return false
	}
	time.Sleep(settle)
	return true
}

// Harvest 触发报告导出，等下载落盘后把下载目录里最新的文件复制到任务目录。
// "最新文件"是个近似：下载完成没有可靠的回调，目录按任务隔离后并发误判的
// 风险已经很小。
func Harvest(s browser.Session, printLocator, downloadDir, destDir, taskID string, wait, settle time.Duration) (string, error) {
	el, err := s.Element(printLocator, wait)
	if err != nil {
		return "", fmt.Errorf("locate print action: %w", err)
	}
	if err := el.Click(); err != nil {
		return "", fmt.Errorf("trigger print action: %w", err)
	}

	time.Sleep(settle)

	latest, err := newestFile(downloadDir)
	if err != nil {
		return "", fmt.Errorf("scan download dir: %w", err)
	}
	if latest == "" {
		return "", ErrNoReportDownloaded
	}

	name := fmt.Sprintf("error_report_%s_%s.xlsx", taskID, time.Now().Format("20060102_150405"))
	dest := filepath.Join(destDir, name)
	if err := copyFile(latest, dest); err != nil {
		return "", fmt.Errorf("copy error report: %w", err)
	}

	log.Printf("Error report harvested for task %s: %s", taskID, dest)
	return dest, nil
}

// newestFile 返回目录中修改时间最新的常规文件，跳过未完成的下载
func newestFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var newest string
	var newestTime time.Time
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), ".crdownload") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestTime) {
			newest = filepath.Join(dir, entry.Name())
			newestTime = info.ModTime()
		}
	}
	return newest, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		os.Remove(dst)
		return err
	}
	return nil
}
