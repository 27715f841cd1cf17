package domain

import (
	"strings"
	"time"
)

// 展示层在没有任何描述时使用的占位文本
const (
	PlaceholderDescription = "暂无描述"
	UncategorizedName      = "未分类"
)

// Repository 代表一个被用户 Star 的 GitHub 仓库
type Repository struct {
	// 基础信息 (来自 GitHub)
	ID              int64     `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Name            string    `json:"name"`
	FullName        string    `json:"full_name" gorm:"index"`
	Description     string    `json:"description"`
	HTMLURL         string    `json:"html_url"`
	Language        string    `json:"language"`
	Topics          []string  `json:"topics" gorm:"serializer:json"`
	StargazersCount int       `json:"stargazers_count"`
	UpdatedAt       time.Time `json:"updated_at" gorm:"autoUpdateTime:false"`
	StarredAt       time.Time `json:"starred_at"`

	// --- AI 分析维度 (只由分析流程写入) ---
	AISummary   string     `json:"ai_summary,omitempty" gorm:"type:text"`
	AITags      []string   `json:"ai_tags,omitempty" gorm:"serializer:json"`
	AIPlatforms []string   `json:"ai_platforms,omitempty" gorm:"serializer:json"`
	AnalyzedAt  *time.Time `json:"analyzed_at,omitempty"`

	// --- 用户手动覆盖，永远优先 ---
	CustomDescription string     `json:"custom_description,omitempty"`
	CustomTags        []string   `json:"custom_tags,omitempty" gorm:"serializer:json"`
	CustomCategory    string     `json:"custom_category,omitempty"`
	LastEdited        *time.Time `json:"last_edited,omitempty"`
}

// IsAnalyzed 是否已经过 AI 分析
func (r *Repository) IsAnalyzed() bool {
	return r.AnalyzedAt != nil
}

// DisplayDescription 按 custom > AI > 原始 > 占位 的优先级解析描述
func (r *Repository) DisplayDescription() string {
	switch {
	case strings.TrimSpace(r.CustomDescription) != "":
		return r.CustomDescription
	case strings.TrimSpace(r.AISummary) != "":
		return r.AISummary
	case strings.TrimSpace(r.Description) != "":
		return r.Description
	default:
		return PlaceholderDescription
	}
}

// DisplayTags 同样的优先级，但标签集合之间从不混合
func (r *Repository) DisplayTags() []string {
	switch {
	case len(r.CustomTags) > 0:
		return r.CustomTags
	case len(r.AITags) > 0:
		return r.AITags
	case len(r.Topics) > 0:
		return r.Topics
	default:
		return []string{}
	}
}

// DisplayCategory 返回手动分类；没有手动分类时交给调用方用分类引擎推断
func (r *Repository) DisplayCategory(inferred string) string {
	if strings.TrimSpace(r.CustomCategory) != "" {
		return r.CustomCategory
	}
	if inferred != "" {
		return inferred
	}
	return UncategorizedName
}

// MergeFetched 用新抓取的记录覆盖原始字段，保留 AI 字段和用户覆盖
func (r *Repository) MergeFetched(fresh *Repository) *Repository {
	merged := *fresh
	merged.AISummary = r.AISummary
	merged.AITags = r.AITags
	merged.AIPlatforms = r.AIPlatforms
	merged.AnalyzedAt = r.AnalyzedAt
	merged.CustomDescription = r.CustomDescription
	merged.CustomTags = r.CustomTags
	merged.CustomCategory = r.CustomCategory
	merged.LastEdited = r.LastEdited
	if merged.StarredAt.IsZero() {
		merged.StarredAt = r.StarredAt
	}
	return &merged
}

// ReleaseRepo 是 Release 所属仓库的精简引用
type ReleaseRepo struct {
	ID       int64  `json:"id" gorm:"index"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
}

// ReleaseAsset 是 GitHub Release 附带的可下载文件
type ReleaseAsset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Size               int64  `json:"size"`
	DownloadCount      int    `json:"download_count"`
}

// Release 代表某个仓库的一次发布；阅读状态不存放在这里
type Release struct {
	ID          int64          `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Repository  ReleaseRepo    `json:"repository" gorm:"embedded;embeddedPrefix:repo_"`
	TagName     string         `json:"tag_name"`
	Name        string         `json:"name"`
	Body        string         `json:"body" gorm:"type:text"`
	HTMLURL     string         `json:"html_url"`
	Prerelease  bool           `json:"prerelease"`
	PublishedAt time.Time      `json:"published_at" gorm:"index"`
	Assets      []ReleaseAsset `json:"assets" gorm:"serializer:json"`
}

// DisplayName 优先使用 Release 名称，为空时退回 tag
func (r *Release) DisplayName() string {
	if strings.TrimSpace(r.Name) != "" {
		return r.Name
	}
	return r.TagName
}

// LinkSource 标记下载链接的来源
type LinkSource string

const (
	LinkFromAsset LinkSource = "asset"
	LinkFromBody  LinkSource = "body"
)

// DownloadLink 是从 Release 中提取出的一个下载入口
type DownloadLink struct {
	Name          string     `json:"name"`
	URL           string     `json:"url"`
	Size          int64      `json:"size"`
	DownloadCount int        `json:"download_count"`
	Source        LinkSource `json:"source"`
}
