package port

import (
	"context"
	"time"

	"github-star-curator/internal/domain"
)

// GitHubUser 是当前 Token 对应的账号
type GitHubUser struct {
	Login     string
	Name      string
	AvatarURL string
}

// RateLimit 是 GitHub core 配额
type RateLimit struct {
	Limit     int
	Remaining int
	Reset     time.Time
}

// GitHubClient 负责和 GitHub REST API 打交道，401 统一转换为 common.ErrUnauthorized
type GitHubClient interface {
	GetUser(ctx context.Context) (*GitHubUser, error)
	// ListStarred 拉取全部 Star 仓库 (每页 100，直到不满一页)
	ListStarred(ctx context.Context) ([]domain.Repository, error)
	GetReadme(ctx context.Context, fullName string) (string, error)
	// ListReleases 拉取某一页 Release，按发布时间倒序
	ListReleases(ctx context.Context, fullName string, page, perPage int) ([]domain.Release, error)
	GetRateLimit(ctx context.Context) (*RateLimit, error)
}

// ChatCompleter 是一次 system+user 的对话补全
type ChatCompleter interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Annotator (鉴定师): 调用大模型为仓库打标签、理解搜索意图
type Annotator interface {
	// AnalyzeRepository 总能返回可用结果，Source 标明来自 AI 还是启发式兜底
	AnalyzeRepository(ctx context.Context, repo *domain.Repository, readme string) domain.AnalysisResult
	// SemanticSearch 用大模型理解查询并返回重新排序后的子集，失败时返回 error 交给调用方兜底
	SemanticSearch(ctx context.Context, repos []domain.Repository, query string) ([]domain.Repository, error)
}

// Store (仓库管理员): 持久化仓库、Release 以及各种用户状态
type Store interface {
	ListRepositories(ctx context.Context) ([]domain.Repository, error)
	SaveRepositories(ctx context.Context, repos []domain.Repository) error
	SaveRepository(ctx context.Context, repo *domain.Repository) error

	ListReleases(ctx context.Context) ([]domain.Release, error)
	AddReleases(ctx context.Context, releases []domain.Release) error

	Subscriptions(ctx context.Context) ([]int64, error)
	SetSubscribed(ctx context.Context, repoID int64, subscribed bool) error

	ReadReleases(ctx context.Context) ([]int64, error)
	SetRead(ctx context.Context, read bool, releaseIDs ...int64) error

	CustomCategories(ctx context.Context) ([]domain.Category, error)
	SaveCustomCategories(ctx context.Context, cats []domain.Category) error

	AssetFilters(ctx context.Context) ([]domain.AssetFilter, error)
	SaveAssetFilters(ctx context.Context, filters []domain.AssetFilter) error

	SearchHistory(ctx context.Context) ([]string, error)
	SaveSearchHistory(ctx context.Context, history []string) error

	// Clear 退出登录时清空仓库与 Release 数据
	Clear(ctx context.Context) error
}

// Notifier (信使): 把新发现的 Release 推送出去
type Notifier interface {
	NotifyRelease(ctx context.Context, release *domain.Release) error
}

// BackupTarget 是 WebDAV 备份目标
type BackupTarget interface {
	TestConnection(ctx context.Context) error
	Upload(ctx context.Context, filename string, content []byte) error
	Download(ctx context.Context, filename string) ([]byte, error)
	List(ctx context.Context) ([]string, error)
}
