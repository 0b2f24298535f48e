package service

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prathamsoni002/migration-automation-service/config"
)

var ErrSaveFailed = fmt.Errorf("file save failed")

// IntakeService 入站文件校验与落盘
type IntakeService struct {
	cfg *config.Config
}

func NewIntakeService(cfg *config.Config) *IntakeService {
	return &IntakeService{cfg: cfg}
}

// Validate 校验上传文件：扩展名白名单、非空、大小上限。
// 大小通过 Seek 到文件末尾测量，不信任请求头里的长度。
func (s *IntakeService) Validate(file multipart.File, header *multipart.FileHeader) (bool, string) {
	if file == nil || header == nil || header.Filename == "" {
		return false, "No file provided"
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	allowed := false
	for _, allowedExt := range s.cfg.Upload.AllowedExtensions {
		if ext == allowedExt {
			allowed = true
			break
		}
	}
	if !allowed {
		return false, fmt.Sprintf("File type %s not allowed. Allowed: %s",
			ext, strings.Join(s.cfg.Upload.AllowedExtensions, ", "))
	}

	size, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return false, fmt.Sprintf("Cannot determine file size: %v", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return false, fmt.Sprintf("Cannot rewind file: %v", err)
	}

	if size > s.cfg.Upload.MaxSize {
		return false, fmt.Sprintf("File too large. Maximum size: %dMB", s.cfg.Upload.MaxSize/(1024*1024))
	}
	if size == 0 {
		return false, "File is empty"
	}

	return true, fmt.Sprintf("File validated: %s (%d bytes)", header.Filename, size)
}

// Save 将校验通过的文件写入任务私有目录 <temp_dir>/<task_id>/。
// 文件名清洗后加时间戳和短哈希前缀，同名并发上传不会互相覆盖。
func (s *IntakeService) Save(file multipart.File, header *multipart.FileHeader, taskID string) (string, string, error) {
	filename := sanitizeFilename(header.Filename)
	timestamp := time.Now().Format("20060102_150405")
	sum := md5.Sum([]byte(filename + timestamp))
	secureName := fmt.Sprintf("%s_%s_%s", timestamp, hex.EncodeToString(sum[:])[:8], filename)

	taskDir := filepath.Join(s.cfg.Upload.TempDir, taskID)
	if err := os.MkdirAll(taskDir, 0755); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}

	path := filepath.Join(taskDir, secureName)
	dst, err := os.Create(path)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(path)
		return "", "", fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}

	if _, err := os.Stat(path); err != nil {
		return "", "", fmt.Errorf("%w: file missing after write", ErrSaveFailed)
	}

	return path, secureName, nil
}

// TaskDir 返回任务的私有临时目录
func (s *IntakeService) TaskDir(taskID string) string {
	return filepath.Join(s.cfg.Upload.TempDir, taskID)
}

// GenerateTaskID 基于文件名和当前时间生成任务 ID，防碰撞即可，无安全要求
func GenerateTaskID(filename string) string {
	sum := md5.Sum([]byte(filename + time.Now().Format(time.RFC3339Nano)))
	return hex.EncodeToString(sum[:])[:12]
}

// sanitizeFilename 去掉路径分隔符和不安全字符，只保留字母数字、点、下划线和连字符
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := b.String()
	if out == "" || out == "." || out == ".." {
		out = "upload"
	}
	return out
}
