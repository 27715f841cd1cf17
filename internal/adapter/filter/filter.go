package filter

import (
	"sort"
	"strings"
	"time"

	"github-star-curator/internal/domain"
)

// RepoFilter 是所有搜索模式之后共用的结构化过滤与排序阶段
type RepoFilter struct {
	// subscribed 判断仓库是否订阅了 Release
	subscribed func(repoID int64) bool
}

// NewRepoFilter 创建过滤器；subscribed 为 nil 时视为没有任何订阅
func NewRepoFilter(subscribed func(repoID int64) bool) *RepoFilter {
	if subscribed == nil {
		subscribed = func(int64) bool { return false }
	}
	return &RepoFilter{subscribed: subscribed}
}

// Apply 依次执行过滤与排序，返回新切片，不修改输入
func (f *RepoFilter) Apply(repos []domain.Repository, filters domain.SearchFilters) []domain.Repository {
	filtered := f.Filter(repos, filters)
	Sort(filtered, filters.SortBy, filters.SortOrder)
	return filtered
}

// Filter 按语言、标签、平台、分析状态、订阅状态、Star 区间过滤
func (f *RepoFilter) Filter(repos []domain.Repository, filters domain.SearchFilters) []domain.Repository {
	languages := lowerSet(filters.Languages)
	tags := lowerSet(filters.Tags)
	platforms := lowerSet(filters.Platforms)

	out := make([]domain.Repository, 0, len(repos))
	for i := range repos {
		repo := &repos[i]

		if len(languages) > 0 {
			if _, ok := languages[strings.ToLower(repo.Language)]; !ok {
				continue
			}
		}

		// 标签同时查 AI 标签和 topics
		if len(tags) > 0 && !anyIn(tags, repo.AITags, repo.Topics) {
			continue
		}

		if len(platforms) > 0 && !anyIn(platforms, repo.AIPlatforms) {
			continue
		}

		if filters.IsAnalyzed != nil && repo.IsAnalyzed() != *filters.IsAnalyzed {
			continue
		}

		if filters.IsSubscribed != nil && f.subscribed(repo.ID) != *filters.IsSubscribed {
			continue
		}

		// 区间两端都是闭区间
		if filters.MinStars != nil && repo.StargazersCount < *filters.MinStars {
			continue
		}
		if filters.MaxStars != nil && repo.StargazersCount > *filters.MaxStars {
			continue
		}

		out = append(out, *repo)
	}
	return out
}

// Sort 原地排序。键相同的元素之间不保证稳定顺序
func Sort(repos []domain.Repository, by domain.SortField, order domain.SortOrder) {
	if by == "" {
		return
	}
	desc := order != domain.SortAsc

	sort.Slice(repos, func(i, j int) bool {
		a, b := &repos[i], &repos[j]
		var less bool
		switch by {
		case domain.SortByStars:
			if desc {
				return a.StargazersCount > b.StargazersCount
			}
			less = a.StargazersCount < b.StargazersCount
		case domain.SortByUpdated:
			if desc {
				return a.UpdatedAt.After(b.UpdatedAt)
			}
			less = a.UpdatedAt.Before(b.UpdatedAt)
		case domain.SortByName:
			an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
			if desc {
				return an > bn
			}
			less = an < bn
		case domain.SortByStarred:
			at, bt := starredUnix(a.StarredAt), starredUnix(b.StarredAt)
			if desc {
				return at > bt
			}
			less = at < bt
		}
		return less
	})
}

// 缺失的 Star 时间按纪元 0 处理
func starredUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func lowerSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}

func anyIn(set map[string]struct{}, lists ...[]string) bool {
	for _, list := range lists {
		for _, v := range list {
			if _, ok := set[strings.ToLower(v)]; ok {
				return true
			}
		}
	}
	return false
}

// Facets 汇总仓库集合中出现过的语言、标签与平台，供筛选面板使用
type Facets struct {
	Languages []string
	Tags      []string
	Platforms []string
}

// CollectFacets 收集去重后按字母排序的可选值
func CollectFacets(repos []domain.Repository) Facets {
	langs := map[string]struct{}{}
	tags := map[string]struct{}{}
	platforms := map[string]struct{}{}
	for i := range repos {
		if repos[i].Language != "" {
			langs[repos[i].Language] = struct{}{}
		}
		for _, t := range repos[i].AITags {
			tags[t] = struct{}{}
		}
		for _, t := range repos[i].Topics {
			tags[t] = struct{}{}
		}
		for _, p := range repos[i].AIPlatforms {
			platforms[p] = struct{}{}
		}
	}
	return Facets{
		Languages: sortedKeys(langs),
		Tags:      sortedKeys(tags),
		Platforms: sortedKeys(platforms),
	}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
