package worker

import (
	"encoding/base64"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/prathamsoni002/migration-automation-service/internal/browser"
)

// fileInputXPath 兜底定位：页面上任意文件输入框
const fileInputXPath = "//input[@type='file']"

// injectFileJS reconstructs the file from base64 inside the page and fires a
// change event, so page handlers that only react to user-driven changes run.
const injectFileJS = `(name, data) => {
	const input = document.querySelector('input[type="file"]');
	if (!input) return false;
	const chars = atob(data);
	const bytes = new Uint8Array(chars.length);
	for (let i = 0; i < chars.length; i++) {
		bytes[i] = chars.charCodeAt(i);
	}
	const dt = new DataTransfer();
	dt.items.add(new File([bytes], name));
	input.files = dt.files;
	input.dispatchEvent(new Event('change', { bubbles: true }));
	return true;
}`

// Upload 按优先级尝试两种上传方式：先对每个候选定位符直接注入文件路径，
// 全部失败后退回脚本注入。两种都失败才返回 false，由编排器决定善后。
func Upload(s browser.Session, filePath string, locators []string, locatorWait, settle time.Duration) bool {
	// 方式一：直接向文件输入框写入路径
	for _, locator := range locators {
		el, err := s.Element(locator, locatorWait)
		if err != nil {
			continue
		}
		if err := el.SetFiles(filePath); err != nil {
			continue
		}
		time.Sleep(settle)
		log.Printf("File uploaded via direct injection (%s)", locator)
		return true
	}

	// 方式二：页面脚本注入，适用于不可直接交互的输入框
	inputs, err := s.Elements(fileInputXPath)
	if err != nil || len(inputs) == 0 {
		return false
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		log.Printf("Scripted upload failed to read %s: %v", filePath, err)
		return false
	}

	ok, err := s.EvalBool(injectFileJS, filepath.Base(filePath), base64.StdEncoding.EncodeToString(data))
	if err != nil || !ok {
		log.Printf("Scripted upload method failed: ok=%v err=%v", ok, err)
		return false
	}

	time.Sleep(settle)
	log.Println("File uploaded via scripted injection")
	return true
}
