package domain

import "time"

// AIProvider 指定使用哪种大模型后端
type AIProvider string

const (
	ProviderOpenAI AIProvider = "openai"
	ProviderGemini AIProvider = "gemini"
)

// AIConfig 是一套大模型接入配置；备份时密钥原样保存
type AIConfig struct {
	ID       string     `json:"id" mapstructure:"id"`
	Name     string     `json:"name" mapstructure:"name"`
	Provider AIProvider `json:"provider" mapstructure:"provider"`
	BaseURL  string     `json:"baseUrl" mapstructure:"base_url"`
	APIKey   string     `json:"apiKey" mapstructure:"api_key"`
	Model    string     `json:"model" mapstructure:"model"`
	IsActive bool       `json:"isActive" mapstructure:"is_active"`
}

// Configured 是否具备发起调用的最低条件
func (c AIConfig) Configured() bool {
	if c.APIKey == "" || c.Model == "" {
		return false
	}
	return c.Provider == ProviderGemini || c.BaseURL != ""
}

// WebDAVConfig 是一个 WebDAV 备份目标
type WebDAVConfig struct {
	ID       string `json:"id" mapstructure:"id"`
	Name     string `json:"name" mapstructure:"name"`
	URL      string `json:"url" mapstructure:"url"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Path     string `json:"path" mapstructure:"path"`
	IsActive bool   `json:"isActive" mapstructure:"is_active"`
}

// Settings 是与搜索/展示相关的用户设置
type Settings struct {
	Language      string        `json:"language"`
	SearchFilters SearchFilters `json:"searchFilters"`
	AssetFilters  []AssetFilter `json:"assetFilters"`
	Categories    []Category    `json:"customCategories"`
}

// BackupPayload 是上传到 WebDAV 的完整备份内容
type BackupPayload struct {
	Version       string         `json:"version"`
	Timestamp     time.Time      `json:"timestamp"`
	Repositories  []Repository   `json:"repositories"`
	Releases      []Release      `json:"releases"`
	AIConfigs     []AIConfig     `json:"aiConfigs"`
	WebDAVConfigs []WebDAVConfig `json:"webdavConfigs"`
	Subscriptions []int64        `json:"releaseSubscriptions"`
	ReadReleases  []int64        `json:"readReleases"`
	Settings      Settings       `json:"settings"`
}
