package llm

import (
	"fmt"
	"strings"

	"github-star-curator/internal/domain"
)

// 语言到平台的粗略映射
var languagePlatforms = map[string][]string{
	"swift":       {"mac", "ios"},
	"objective-c": {"mac", "ios"},
	"kotlin":      {"android"},
	"java":        {"android", "windows", "mac", "linux"},
	"dart":        {"ios", "android"},
	"c#":          {"windows"},
	"javascript":  {"web"},
	"typescript":  {"web"},
	"html":        {"web"},
	"css":         {"web"},
	"vue":         {"web"},
	"go":          {"linux", "mac", "windows", "cli"},
	"rust":        {"linux", "mac", "windows", "cli"},
	"shell":       {"linux", "mac", "cli"},
	"powershell":  {"windows"},
	"dockerfile":  {"docker"},
}

// 文本关键字到平台
var keywordPlatforms = map[string]string{
	"windows":  "windows",
	"win32":    "windows",
	"macos":    "mac",
	"mac os":   "mac",
	"osx":      "mac",
	"linux":    "linux",
	"ios":      "ios",
	"iphone":   "ios",
	"android":  "android",
	"docker":   "docker",
	"browser":  "web",
	"web":      "web",
	"cli":      "cli",
	"command":  "cli",
	"terminal": "cli",
}

// 文本关键字到标签
var keywordTags = []struct {
	keyword string
	tag     string
}{
	{"machine learning", "机器学习"},
	{"llm", "AI"},
	{"gpt", "AI"},
	{"neural", "AI"},
	{"database", "数据库"},
	{"editor", "编辑器"},
	{"cli", "命令行"},
	{"terminal", "命令行"},
	{"framework", "框架"},
	{"library", "库"},
	{"game", "游戏"},
	{"proxy", "网络"},
	{"security", "安全"},
	{"awesome", "资源列表"},
	{"tutorial", "教程"},
	{"docker", "容器"},
	{"kubernetes", "容器"},
}

// HeuristicAnalysis 不依赖任何外部服务，基于语言和关键字给出确定性的分析结果
func HeuristicAnalysis(repo *domain.Repository) domain.Analysis {
	text := strings.ToLower(strings.Join(append([]string{repo.Name, repo.Description}, repo.Topics...), " "))
	lang := strings.ToLower(repo.Language)

	var tags []string
	if repo.Language != "" {
		tags = append(tags, repo.Language)
	}
	for _, kt := range keywordTags {
		if strings.Contains(text, kt.keyword) {
			tags = append(tags, kt.tag)
		}
	}
	tags = append(tags, repo.Topics...)

	var platforms []string
	platforms = append(platforms, languagePlatforms[lang]...)
	for kw, p := range keywordPlatforms {
		if strings.Contains(text, kw) {
			platforms = append(platforms, p)
		}
	}

	summary := strings.TrimSpace(repo.Description)
	if summary == "" {
		if repo.Language != "" {
			summary = fmt.Sprintf("一个使用 %s 编写的开源项目", repo.Language)
		} else {
			summary = "一个开源项目"
		}
	}
	if r := []rune(summary); len(r) > 100 {
		summary = string(r[:100]) + "..."
	}

	return domain.Analysis{
		Summary:   summary,
		Tags:      capList(dedupe(tags, false), maxTags),
		Platforms: capList(sortPlatforms(dedupe(platforms, true)), maxPlatforms),
	}
}

var platformOrder = []string{"mac", "windows", "linux", "ios", "android", "docker", "web", "cli"}

// sortPlatforms 让 map 遍历得到的平台顺序保持确定
func sortPlatforms(platforms []string) []string {
	set := make(map[string]struct{}, len(platforms))
	for _, p := range platforms {
		set[p] = struct{}{}
	}
	out := make([]string, 0, len(platforms))
	for _, p := range platformOrder {
		if _, ok := set[p]; ok {
			out = append(out, p)
			delete(set, p)
		}
	}
	for _, p := range platforms {
		if _, ok := set[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

func heuristicResult(repo *domain.Repository, reason string) domain.AnalysisResult {
	return domain.AnalysisResult{
		Analysis:       HeuristicAnalysis(repo),
		Source:         domain.SourceHeuristic,
		DegradedReason: reason,
	}
}
