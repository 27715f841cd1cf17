package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github-star-curator/internal/domain"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	GitHub   GitHubConfig        `mapstructure:"github"`
	Database DatabaseConfig      `mapstructure:"database"`
	AI       domain.AIConfig     `mapstructure:"ai"`
	WebDAV   domain.WebDAVConfig `mapstructure:"webdav"`
	Feishu   FeishuConfig        `mapstructure:"feishu"`
	Release  ReleaseConfig       `mapstructure:"release"`
	Analysis AnalysisConfig      `mapstructure:"analysis"`
	Schedule ScheduleConfig      `mapstructure:"schedule"`
	Log      LogConfig           `mapstructure:"log"`
}

type GitHubConfig struct {
	Token string `mapstructure:"token"`
}

type DatabaseConfig struct {
	DSN         string `mapstructure:"dsn"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

type FeishuConfig struct {
	Webhook string `mapstructure:"webhook"`
	// NotifyLimit 每轮同步最多推送多少条新 Release
	NotifyLimit int `mapstructure:"notify_limit"`
}

type ReleaseConfig struct {
	PageSize  int           `mapstructure:"page_size"`
	MaxPages  int           `mapstructure:"max_pages"`
	Delay     time.Duration `mapstructure:"delay"`
	Watermark string        `mapstructure:"watermark"`
}

type AnalysisConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type ScheduleConfig struct {
	// Cron 为空表示只执行一次
	Cron string `mapstructure:"cron"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// 环境变量到配置项的映射，同一个配置项可以接受多个变量名
var envBindings = map[string][]string{
	"github.token":           {"GITHUB_TOKEN"},
	"database.dsn":           {"DATABASE_URL", "DATABASE_DSN"},
	"database.use_in_memory": {"USE_IN_MEMORY"},
	"ai.provider":            {"AI_PROVIDER"},
	"ai.base_url":            {"AI_BASE_URL", "OPENAI_BASE_URL"},
	"ai.api_key":             {"AI_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY"},
	"ai.model":               {"AI_MODEL"},
	"webdav.url":             {"WEBDAV_URL"},
	"webdav.username":        {"WEBDAV_USERNAME"},
	"webdav.password":        {"WEBDAV_PASSWORD"},
	"webdav.path":            {"WEBDAV_PATH"},
	"feishu.webhook":         {"FEISHU_WEBHOOK"},
	"schedule.cron":          {"SYNC_CRON"},
	"log.level":              {"LOG_LEVEL"},
}

// Load 依次读取 .env、配置文件 (可选) 和环境变量，后者优先
func Load(path string) (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("绑定环境变量失败: %w", err)
		}
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("读取配置文件失败: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = domain.ProviderOpenAI
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.use_in_memory", false)
	v.SetDefault("ai.provider", string(domain.ProviderOpenAI))
	v.SetDefault("ai.base_url", "https://api.openai.com/v1")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("webdav.path", "/github-star-curator")
	v.SetDefault("feishu.notify_limit", 10)
	v.SetDefault("release.page_size", 30)
	v.SetDefault("release.max_pages", 5)
	v.SetDefault("release.delay", "150ms")
	v.SetDefault("release.watermark", "global")
	v.SetDefault("analysis.poll_interval", "1s")
	v.SetDefault("log.level", "info")
}
