package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Upload      UploadConfig      `mapstructure:"upload"`
	Portal      PortalConfig      `mapstructure:"portal"`
	Browser     BrowserConfig     `mapstructure:"browser"`
	Worker      WorkerConfig      `mapstructure:"worker"`
	Chatbot     ChatbotConfig     `mapstructure:"chatbot"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
	CORS        CORSConfig        `mapstructure:"cors"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type UploadConfig struct {
	MaxSize           int64    `mapstructure:"max_size"`           // 最大文件大小（字节）
	TempDir           string   `mapstructure:"temp_dir"`           // 任务临时目录
	ExpireHours       int      `mapstructure:"expire_hours"`       // 过期时间（小时）
	AllowedExtensions []string `mapstructure:"allowed_extensions"` // 允许的扩展名
}

// PortalConfig 目标 SAP 门户地址与页面导航配置
type PortalConfig struct {
	URL            string         `mapstructure:"url"`
	Locators       LocatorsConfig `mapstructure:"locators"`
	MigrationLinks []string       `mapstructure:"migration_links"` // 迁移页面候选导航链接
}

// LocatorsConfig holds the portal's element XPaths. These track the portal's
// markup, so they live in configuration rather than code.
type LocatorsConfig struct {
	Username         string   `mapstructure:"username"`
	Password         string   `mapstructure:"password"`
	Continue         string   `mapstructure:"continue"`
	Upload           string   `mapstructure:"upload"`
	UploadFallbacks  []string `mapstructure:"upload_fallbacks"`
	ValidationStatus string   `mapstructure:"validation_status"`
	ShowMessage      string   `mapstructure:"show_message"`
	Print            string   `mapstructure:"print"`
	WaitUpload       string   `mapstructure:"wait_upload"`
	WaitUploadDots   string   `mapstructure:"wait_upload_dots"`
}

type BrowserConfig struct {
	Bin            string `mapstructure:"bin"`
	Headless       bool   `mapstructure:"headless"`
	WindowWidth    int    `mapstructure:"window_width"`
	WindowHeight   int    `mapstructure:"window_height"`
	NavTimeoutSecs int    `mapstructure:"nav_timeout_seconds"`
}

func (c BrowserConfig) NavTimeout() time.Duration {
	if c.NavTimeoutSecs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.NavTimeoutSecs) * time.Second
}

// WorkerConfig 后台处理各阶段的等待与轮询参数（秒）
type WorkerConfig struct {
	LoginSettleSecs     int `mapstructure:"login_settle_seconds"`
	PreUploadSettleSecs int `mapstructure:"pre_upload_settle_seconds"`
	UploadSettleSecs    int `mapstructure:"upload_settle_seconds"`
	UploadWaitSecs      int `mapstructure:"upload_wait_seconds"`
	UploadPollSecs      int `mapstructure:"upload_poll_seconds"`
	ValidationAttempts  int `mapstructure:"validation_attempts"`
	ValidationPollSecs  int `mapstructure:"validation_poll_seconds"`
	LocatorWaitSecs     int `mapstructure:"locator_wait_seconds"`
	DownloadSettleSecs  int `mapstructure:"download_settle_seconds"`
	TaskTimeoutMins     int `mapstructure:"task_timeout_minutes"`
}

func (c WorkerConfig) LoginSettle() time.Duration     { return secs(c.LoginSettleSecs, 10) }
func (c WorkerConfig) PreUploadSettle() time.Duration { return secs(c.PreUploadSettleSecs, 5) }
func (c WorkerConfig) UploadSettle() time.Duration    { return secs(c.UploadSettleSecs, 3) }
func (c WorkerConfig) UploadWait() time.Duration      { return secs(c.UploadWaitSecs, 300) }
func (c WorkerConfig) UploadPoll() time.Duration      { return secs(c.UploadPollSecs, 2) }
func (c WorkerConfig) ValidationPoll() time.Duration  { return secs(c.ValidationPollSecs, 1) }
func (c WorkerConfig) LocatorWait() time.Duration     { return secs(c.LocatorWaitSecs, 10) }
func (c WorkerConfig) DownloadSettle() time.Duration  { return secs(c.DownloadSettleSecs, 10) }

func (c WorkerConfig) Attempts() int {
	if c.ValidationAttempts <= 0 {
		return 60
	}
	return c.ValidationAttempts
}

func (c WorkerConfig) TaskTimeout() time.Duration {
	if c.TaskTimeoutMins <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.TaskTimeoutMins) * time.Minute
}

type ChatbotConfig struct {
	BaseURL           string `mapstructure:"base_url"`
	SendTimeoutSecs   int    `mapstructure:"send_timeout_seconds"`
	HealthTimeoutSecs int    `mapstructure:"health_timeout_seconds"`
}

func (c ChatbotConfig) SendTimeout() time.Duration   { return secs(c.SendTimeoutSecs, 60) }
func (c ChatbotConfig) HealthTimeout() time.Duration { return secs(c.HealthTimeoutSecs, 5) }

// CredentialsConfig 门户登录凭据，通过环境变量 CREDENTIALS_USERNAME /
// CREDENTIALS_PASSWORD 注入，不要写进配置文件
type CredentialsConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

func secs(v, def int) time.Duration {
	if v <= 0 {
		return time.Duration(def) * time.Second
	}
	return time.Duration(v) * time.Second
}

func Load(configPath string) (*Config, error) {
	// 优先尝试读取 config.local.yaml（包含真实凭据，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	// 环境变量覆盖
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
