// Package classify 决定一个仓库属于哪些分类、一个附件是否命中附件过滤器
package classify

import (
	"strings"

	"github-star-curator/internal/domain"
)

// Matches 判断仓库是否属于某个分类，按优先级短路：
// 手动分类 > AI 标签 (双向包含) > 元数据文本 (单向包含)
func Matches(repo *domain.Repository, cat *domain.Category) bool {
	if cat.IsAll() {
		return true
	}

	// 1. 手动分类是权威结果，关键字匹配完全跳过
	if repo.CustomCategory != "" {
		return repo.CustomCategory == cat.Name
	}

	keywords := normalize(cat.Keywords)
	if len(keywords) == 0 {
		return false
	}

	// 2. 有 AI 标签时只看标签，失败也不再退回文本匹配
	tags := normalize(repo.AITags)
	if len(tags) > 0 {
		for _, tag := range tags {
			if containsEither(tag, keywords) {
				return true
			}
		}
		return false
	}

	// 3. 旧式文本匹配
	text := repoText(repo)
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// Infer 返回第一个命中的非“全部”分类名称，没有命中时返回空字符串
func Infer(repo *domain.Repository, cats []domain.Category) string {
	for i := range cats {
		if cats[i].IsAll() {
			continue
		}
		if Matches(repo, &cats[i]) {
			return cats[i].Name
		}
	}
	return ""
}

// CountByCategory 统计每个分类下的仓库数量，key 为分类 ID
func CountByCategory(cats []domain.Category, repos []domain.Repository) map[string]int {
	counts := make(map[string]int, len(cats))
	for i := range cats {
		n := 0
		for j := range repos {
			if Matches(&repos[j], &cats[i]) {
				n++
			}
		}
		counts[cats[i].ID] = n
	}
	return counts
}

// FilterByCategory 返回属于该分类的仓库
func FilterByCategory(repos []domain.Repository, cat *domain.Category) []domain.Repository {
	out := make([]domain.Repository, 0, len(repos))
	for i := range repos {
		if Matches(&repos[i], cat) {
			out = append(out, repos[i])
		}
	}
	return out
}

// MatchAsset 文件名命中任意一个过滤器的任意一个关键字即可
func MatchAsset(filename string, filters []domain.AssetFilter) bool {
	name := strings.ToLower(strings.TrimSpace(filename))
	if name == "" {
		return false
	}
	for _, f := range filters {
		if containsEither(name, normalize(f.Keywords)) {
			return true
		}
	}
	return false
}

// FilterAssets 返回命中过滤器的附件；没有过滤器时原样返回
func FilterAssets(assets []domain.ReleaseAsset, filters []domain.AssetFilter) []domain.ReleaseAsset {
	if len(filters) == 0 {
		return assets
	}
	out := make([]domain.ReleaseAsset, 0, len(assets))
	for _, a := range assets {
		if MatchAsset(a.Name, filters) {
			out = append(out, a)
		}
	}
	return out
}

// FilterReleases 只保留至少有一个附件命中的 Release；没有过滤器时全部保留
func FilterReleases(releases []domain.Release, filters []domain.AssetFilter) []domain.Release {
	if len(filters) == 0 {
		return releases
	}
	out := make([]domain.Release, 0, len(releases))
	for _, r := range releases {
		if len(FilterAssets(r.Assets, filters)) > 0 {
			out = append(out, r)
		}
	}
	return out
}

func containsEither(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) || strings.Contains(kw, s) {
			return true
		}
	}
	return false
}

// normalize 小写化并去掉空白项；空字符串会被任何文本“包含”，必须剔除
func normalize(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

func repoText(repo *domain.Repository) string {
	parts := []string{repo.Name, repo.Description, repo.Language}
	parts = append(parts, repo.Topics...)
	parts = append(parts, repo.AISummary)
	return strings.ToLower(strings.Join(parts, " "))
}
