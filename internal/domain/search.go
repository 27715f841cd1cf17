package domain

// SortField 是列表排序的字段
type SortField string

const (
	SortByStars   SortField = "stars"
	SortByUpdated SortField = "updated"
	SortByName    SortField = "name"
	SortByStarred SortField = "starred"
)

// SortOrder 是排序方向
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SearchFilters 是纯粹的会话状态，可直接序列化
type SearchFilters struct {
	Query        string    `json:"query"`
	Tags         []string  `json:"tags"`
	Languages    []string  `json:"languages"`
	Platforms    []string  `json:"platforms"`
	IsAnalyzed   *bool     `json:"isAnalyzed,omitempty"`
	IsSubscribed *bool     `json:"isSubscribed,omitempty"`
	MinStars     *int      `json:"minStars,omitempty"`
	MaxStars     *int      `json:"maxStars,omitempty"`
	SortBy       SortField `json:"sortBy"`
	SortOrder    SortOrder `json:"sortOrder"`
}

// DefaultSearchFilters 默认按 Star 时间倒序
func DefaultSearchFilters() SearchFilters {
	return SearchFilters{
		SortBy:    SortByStarred,
		SortOrder: SortDesc,
	}
}

// SearchSource 标记搜索结果的来源
type SearchSource string

const (
	SourceAI        SearchSource = "ai"
	SourceHeuristic SearchSource = "heuristic"
	SourceRealtime  SearchSource = "realtime"
	SourceNone      SearchSource = "none"
)

// Analysis 是 AI (或启发式兜底) 对单个仓库的分析结果
type Analysis struct {
	Summary   string   `json:"summary"`
	Tags      []string `json:"tags"`
	Platforms []string `json:"platforms"`
}

// AnalysisResult 总是携带可用的分析结果；降级时 DegradedReason 说明原因
type AnalysisResult struct {
	Analysis       Analysis
	Source         SearchSource
	DegradedReason string
}

// Degraded 结果是否来自启发式兜底
func (r AnalysisResult) Degraded() bool {
	return r.Source != SourceAI
}

// QueryIntent 是对自由文本搜索意图的解读
type QueryIntent struct {
	Keywords   []string `json:"keywords"`
	Categories []string `json:"categories"`
	Synonyms   []string `json:"synonyms"`
}

// Terms 返回所有可用于匹配的词
func (q QueryIntent) Terms() []string {
	terms := make([]string, 0, len(q.Keywords)+len(q.Categories)+len(q.Synonyms))
	terms = append(terms, q.Keywords...)
	terms = append(terms, q.Categories...)
	terms = append(terms, q.Synonyms...)
	return terms
}
