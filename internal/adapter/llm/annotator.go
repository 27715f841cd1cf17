package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github-star-curator/internal/common"
	"github-star-curator/internal/domain"
	"github-star-curator/internal/port"

	"go.uber.org/zap"
)

const (
	maxTags      = 5
	maxPlatforms = 8
	readmeLimit  = 3000
)

// ErrNotConfigured 表示没有可用的 AI 配置
var ErrNotConfigured = common.NewError(common.ErrCodeAIProcessing, "未配置 AI 服务")

// NewCompleter 根据配置选择后端
func NewCompleter(ctx context.Context, cfg domain.AIConfig) (port.ChatCompleter, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}
	switch cfg.Provider {
	case domain.ProviderGemini:
		return NewGeminiCompleter(ctx, cfg.APIKey, cfg.Model)
	default:
		return NewOpenAICompleter(cfg.BaseURL, cfg.APIKey, cfg.Model), nil
	}
}

// Annotator 实现了 port.Annotator 接口
type Annotator struct {
	completer port.ChatCompleter
	logger    *zap.Logger
}

// NewAnnotator completer 可以为 nil，此时所有调用都走启发式兜底
func NewAnnotator(completer port.ChatCompleter, logger *zap.Logger) *Annotator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Annotator{completer: completer, logger: logger}
}

var _ port.Annotator = (*Annotator)(nil)

const analysisSystemPrompt = `你是一个 GitHub 仓库分析助手。根据仓库信息和 README，输出一个 JSON 对象：
{"summary": "一句话中文简介，不超过 50 字", "tags": ["最多5个标签"], "platforms": ["支持的平台，取值范围 mac windows linux ios android docker web cli，最多8个"]}
只返回 JSON，不要包含 Markdown 格式标记。`

type analysisResponse struct {
	Summary   string   `json:"summary"`
	Tags      []string `json:"tags"`
	Platforms []string `json:"platforms"`
}

// AnalyzeRepository 调用 AI 分析仓库；任何失败都转为启发式结果，不向上抛错
func (a *Annotator) AnalyzeRepository(ctx context.Context, repo *domain.Repository, readme string) domain.AnalysisResult {
	if a.completer == nil {
		return heuristicResult(repo, ErrNotConfigured.Error())
	}

	raw, err := a.completer.Complete(ctx, analysisSystemPrompt, buildAnalysisPrompt(repo, readme))
	if err != nil {
		a.logger.Warn("AI 分析失败，使用启发式分类", zap.String("repo", repo.FullName), zap.Error(err))
		return heuristicResult(repo, err.Error())
	}

	var res analysisResponse
	if err := extractJSON(raw, &res); err != nil {
		a.logger.Warn("AI 返回无法解析，使用启发式分类", zap.String("repo", repo.FullName), zap.Error(err))
		return heuristicResult(repo, err.Error())
	}

	analysis := domain.Analysis{
		Summary:   strings.TrimSpace(res.Summary),
		Tags:      capList(dedupe(res.Tags, false), maxTags),
		Platforms: capList(dedupe(res.Platforms, true), maxPlatforms),
	}
	if analysis.Summary == "" && len(analysis.Tags) == 0 {
		return heuristicResult(repo, "AI 返回内容缺少 summary/tags")
	}
	return domain.AnalysisResult{Analysis: analysis, Source: domain.SourceAI}
}

const querySystemPrompt = `你是一个搜索意图解析助手。用户会用自然语言描述想找的 GitHub 仓库。
请输出 JSON：{"keywords": ["核心关键词"], "categories": ["可能的分类"], "synonyms": ["同义词或英文翻译"]}
只返回 JSON。`

// InterpretQuery 把自由文本解析为关键词/分类/同义词；
// 服务不可用时返回 error，返回内容无法解析时退化为按空白拆词
func (a *Annotator) InterpretQuery(ctx context.Context, query string) (domain.QueryIntent, error) {
	if a.completer == nil {
		return domain.QueryIntent{}, ErrNotConfigured
	}
	raw, err := a.completer.Complete(ctx, querySystemPrompt, query)
	if err != nil {
		return domain.QueryIntent{}, err
	}

	var intent domain.QueryIntent
	if err := extractJSON(raw, &intent); err != nil || len(intent.Terms()) == 0 {
		a.logger.Debug("搜索意图解析失败，按空白拆词", zap.String("query", query), zap.Error(err))
		return SplitQuery(query), nil
	}
	intent.Keywords = dedupe(intent.Keywords, true)
	intent.Categories = dedupe(intent.Categories, true)
	intent.Synonyms = dedupe(intent.Synonyms, true)
	return intent, nil
}

// SplitQuery 最朴素的意图：查询里的每个词都是关键词
func SplitQuery(query string) domain.QueryIntent {
	return domain.QueryIntent{Keywords: dedupe(strings.Fields(query), true)}
}

type scored struct {
	repo  domain.Repository
	score float64
}

// SemanticSearch 先让 AI 扩展查询，再按字段权重给仓库打分并重新排序
func (a *Annotator) SemanticSearch(ctx context.Context, repos []domain.Repository, query string) ([]domain.Repository, error) {
	intent, err := a.InterpretQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	terms := dedupe(intent.Terms(), true)
	if len(terms) == 0 {
		return nil, errors.New("搜索意图为空")
	}

	var hits []scored
	for i := range repos {
		if s := scoreRepository(&repos[i], terms); s > 0 {
			hits = append(hits, scored{repo: repos[i], score: s})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	out := make([]domain.Repository, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.repo)
	}
	a.logger.Debug("AI 语义搜索完成", zap.String("query", query), zap.Strings("terms", terms), zap.Int("hits", len(out)))
	return out, nil
}

func scoreRepository(repo *domain.Repository, terms []string) float64 {
	name := strings.ToLower(repo.Name + " " + repo.FullName)
	desc := strings.ToLower(repo.Description + " " + repo.CustomDescription + " " + repo.AISummary)
	lang := strings.ToLower(repo.Language)

	var score float64
	for _, term := range terms {
		if strings.Contains(name, term) {
			score += 3
		}
		if anyContains(repo.AITags, term) || anyContains(repo.CustomTags, term) {
			score += 2.5
		}
		if strings.Contains(desc, term) {
			score += 2
		}
		if anyContains(repo.Topics, term) {
			score += 1.5
		}
		if anyContains(repo.AIPlatforms, term) {
			score += 1
		}
		if lang != "" && lang == term {
			score += 1
		}
	}
	return score
}

func anyContains(list []string, term string) bool {
	for _, v := range list {
		if strings.Contains(strings.ToLower(v), term) {
			return true
		}
	}
	return false
}

func buildAnalysisPrompt(repo *domain.Repository, readme string) string {
	// 按字符截断，避免切坏多字节字符
	if r := []rune(readme); len(r) > readmeLimit {
		readme = string(r[:readmeLimit])
	}
	return fmt.Sprintf(`仓库名称: %s
仓库描述: %s
主要语言: %s
Topics: %s
Stars: %d

README:
%s`, repo.FullName, repo.Description, repo.Language, strings.Join(repo.Topics, ", "), repo.StargazersCount, readme)
}

// extractJSON 智能寻找 JSON 的起止位置：
// 即使 AI 返回 "```json { ... } ```"，也能精准抠出中间的 { ... }
func extractJSON(raw string, out interface{}) error {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end <= start {
		return fmt.Errorf("无法提取 JSON, AI 原文: %s", raw)
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), out); err != nil {
		return fmt.Errorf("JSON 解析失败: %w", err)
	}
	return nil
}

func dedupe(values []string, lower bool) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if lower {
			v = strings.ToLower(v)
		}
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

func capList(values []string, n int) []string {
	if len(values) > n {
		return values[:n]
	}
	return values
}
