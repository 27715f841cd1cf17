package search

import (
	"context"
	"strings"

	"github-star-curator/internal/adapter/filter"
	"github-star-curator/internal/domain"

	"go.uber.org/zap"
)

// Semantic 是 AI 语义搜索能力，失败时返回 error
type Semantic interface {
	SemanticSearch(ctx context.Context, repos []domain.Repository, query string) ([]domain.Repository, error)
}

// Mode 是一次搜索采用的策略
type Mode int

const (
	ModeIdle Mode = iota
	ModeRealtime
	ModeDeep
)

func (m Mode) String() string {
	switch m {
	case ModeRealtime:
		return "realtime"
	case ModeDeep:
		return "deep"
	default:
		return "idle"
	}
}

// Result 总是可用；Source 为 heuristic 时 DegradedReason 说明降级原因
type Result struct {
	Repositories   []domain.Repository
	Source         domain.SearchSource
	DegradedReason string
}

// Degraded AI 搜索是否退化成了基础文本搜索
func (r Result) Degraded() bool {
	return r.DegradedReason != ""
}

// Engine 根据模式选择匹配策略，然后统一执行过滤与排序
type Engine struct {
	semantic Semantic
	post     *filter.RepoFilter
	logger   *zap.Logger
}

// NewEngine semantic 可以为 nil，此时深度搜索直接走基础文本搜索
func NewEngine(semantic Semantic, post *filter.RepoFilter, logger *zap.Logger) *Engine {
	if post == nil {
		post = filter.NewRepoFilter(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{semantic: semantic, post: post, logger: logger}
}

// Search 查询为空时只做结构化过滤与排序
func (e *Engine) Search(ctx context.Context, repos []domain.Repository, filters domain.SearchFilters, mode Mode) Result {
	query := strings.TrimSpace(filters.Query)

	var res Result
	switch {
	case query == "" || mode == ModeIdle:
		res = Result{Repositories: repos, Source: domain.SourceNone}
	case mode == ModeRealtime:
		res = Result{Repositories: RealtimeSearch(repos, query), Source: domain.SourceRealtime}
	default:
		res = e.AISearch(ctx, repos, query)
	}

	res.Repositories = e.post.Apply(res.Repositories, filters)
	return res
}

// AISearch 调用语义搜索，任何失败都退化为基础文本搜索，从不返回 error
func (e *Engine) AISearch(ctx context.Context, repos []domain.Repository, query string) Result {
	if e.semantic == nil {
		return e.fallback(repos, query, "未配置 AI 服务")
	}

	found, err := e.semantic.SemanticSearch(ctx, repos, query)
	if err != nil {
		e.logger.Warn("AI 搜索失败，降级为基础搜索", zap.String("query", query), zap.Error(err))
		return e.fallback(repos, query, err.Error())
	}
	return Result{Repositories: found, Source: domain.SourceAI}
}

func (e *Engine) fallback(repos []domain.Repository, query, reason string) Result {
	return Result{
		Repositories:   BasicSearch(repos, query),
		Source:         domain.SourceHeuristic,
		DegradedReason: reason,
	}
}

// RealtimeSearch 只匹配 name 和 full_name，大小写不敏感
func RealtimeSearch(repos []domain.Repository, query string) []domain.Repository {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return repos
	}
	out := make([]domain.Repository, 0)
	for _, r := range repos {
		if strings.Contains(strings.ToLower(r.Name), q) || strings.Contains(strings.ToLower(r.FullName), q) {
			out = append(out, r)
		}
	}
	return out
}

// BasicSearch 查询按空白拆词，所有词都要出现在拼接后的文本里 (顺序无关)
func BasicSearch(repos []domain.Repository, query string) []domain.Repository {
	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 {
		return repos
	}
	out := make([]domain.Repository, 0)
	for i := range repos {
		text := haystack(&repos[i])
		if containsAll(text, words) {
			out = append(out, repos[i])
		}
	}
	return out
}

func containsAll(text string, words []string) bool {
	for _, w := range words {
		if !strings.Contains(text, w) {
			return false
		}
	}
	return true
}

func haystack(r *domain.Repository) string {
	parts := []string{r.Name, r.FullName, r.Description, r.Language, r.AISummary}
	parts = append(parts, r.Topics...)
	parts = append(parts, r.AITags...)
	parts = append(parts, r.AIPlatforms...)
	return strings.ToLower(strings.Join(parts, " "))
}
