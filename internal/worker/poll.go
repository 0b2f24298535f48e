package worker

import (
	"log"
	"strings"
	"time"

	"github.com/prathamsoni002/migration-automation-service/internal/browser"
)

// 上传完成与校验终态的关键字，大小写不敏感的子串匹配
var (
	uploadDoneKeywords = []string{"complete", "uploaded", "finished", "100%", "done"}
	terminalKeywords   = []string{"success", "failed", "complete"}
)

func containsAny(text string, keywords []string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// AwaitUploadSettled 轮询上传进度指示直到出现完成关键字或超时。指示元素
// 消失时，以"转圈"元素同样消失作为完成的旁证。超时返回 false —— 上传完成
// 检测只是参考信号，编排器照常继续，不因此判任务失败。
func AwaitUploadSettled(s browser.Session, indicator, spinner string, interval, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		indicators, err := s.Elements(indicator)
		if err == nil && len(indicators) > 0 {
			if text, err := indicators[0].Text(); err == nil && containsAny(text, uploadDoneKeywords) {
				log.Println("File upload completed successfully")
				return true
			}
		} else {
			spinners, err := s.Elements(spinner)
			if err == nil && len(spinners) == 0 {
				log.Println("Upload indicators disappeared - upload complete")
				return true
			}
		}
		time.Sleep(interval)
	}

	log.Println("Upload timeout reached - proceeding anyway")
	return false
}

// AwaitValidationTerminal 有限次数轮询校验状态元素，读取异常一律吞掉重试。
// 尝试耗尽不算失败，编排器随后还会直接读一次状态文本做分支判断。
func AwaitValidationTerminal(s browser.Session, statusLocator string, attempts int, interval, probe time.Duration) bool {
	for i := 0; i < attempts; i++ {
		el, err := s.Element(statusLocator, probe)
		if err == nil {
			if text, err := el.Text(); err == nil && containsAny(text, terminalKeywords) {
				return true
			}
		}
		time.Sleep(interval)
	}
	return false
}
