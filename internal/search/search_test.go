package search

import (
	"context"
	"errors"
	"testing"

	"github-star-curator/internal/adapter/filter"
	"github-star-curator/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSemantic 模拟语义搜索
type MockSemantic struct {
	mock.Mock
}

func (m *MockSemantic) SemanticSearch(ctx context.Context, repos []domain.Repository, query string) ([]domain.Repository, error) {
	args := m.Called(ctx, repos, query)
	if v := args.Get(0); v != nil {
		return v.([]domain.Repository), args.Error(1)
	}
	return nil, args.Error(1)
}

func ids(repos []domain.Repository) []int64 {
	out := make([]int64, 0, len(repos))
	for _, r := range repos {
		out = append(out, r.ID)
	}
	return out
}

func TestRealtimeIsSubsetOfBasic(t *testing.T) {
	repos := []domain.Repository{
		{ID: 1, Name: "vscode", FullName: "microsoft/vscode", Description: "an editor"},
		{ID: 2, Name: "other", FullName: "someone/other", Description: "vs code alternative"},
	}

	realtime := RealtimeSearch(repos, "vs")
	basic := BasicSearch(repos, "vs")

	assert.Equal(t, []int64{1}, ids(realtime))
	assert.Equal(t, []int64{1, 2}, ids(basic))
	for _, r := range realtime {
		assert.Contains(t, ids(basic), r.ID)
	}
}

func TestBasicSearch(t *testing.T) {
	repos := []domain.Repository{
		{ID: 1, Name: "ml-kit", Description: "Machine toolkit for deep learning"},
		{ID: 2, Name: "learning-notes", Description: "notes"},
		{ID: 3, Name: "x", AISummary: "learning", AITags: []string{"Machine"}},
		{ID: 4, Name: "y", Topics: []string{"machine-learning"}},
		{ID: 5, Name: "z", Language: "Go", AIPlatforms: []string{"linux"}},
	}

	tests := []struct {
		name     string
		query    string
		expected []int64
	}{
		{name: "两个词都要出现", query: "machine learning", expected: []int64{1, 3, 4}},
		{name: "顺序无关", query: "LEARNING machine", expected: []int64{1, 3, 4}},
		{name: "匹配语言和平台", query: "go linux", expected: []int64{5}},
		{name: "空查询返回全部", query: "   ", expected: []int64{1, 2, 3, 4, 5}},
		{name: "无结果", query: "rust", expected: []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ids(BasicSearch(repos, tt.query)))
		})
	}
}

func TestRealtimeSearch_CaseInsensitive(t *testing.T) {
	repos := []domain.Repository{
		{ID: 1, Name: "Gin", FullName: "gin-gonic/gin"},
		{ID: 2, Name: "echo", FullName: "labstack/echo", Description: "gin alternative"},
	}
	assert.Equal(t, []int64{1}, ids(RealtimeSearch(repos, "GIN")))
	assert.Equal(t, []int64{2}, ids(RealtimeSearch(repos, "labstack")))
}

func TestEngine_AISearch(t *testing.T) {
	repos := []domain.Repository{
		{ID: 1, Name: "vim", Description: "text editor"},
		{ID: 2, Name: "emacs", Description: "editor"},
		{ID: 3, Name: "game"},
	}

	t.Run("AI 成功", func(t *testing.T) {
		semantic := new(MockSemantic)
		semantic.On("SemanticSearch", mock.Anything, repos, "编辑器").Return([]domain.Repository{repos[1], repos[0]}, nil)

		res := NewEngine(semantic, nil, nil).AISearch(context.Background(), repos, "编辑器")

		assert.Equal(t, domain.SourceAI, res.Source)
		assert.False(t, res.Degraded())
		assert.Equal(t, []int64{2, 1}, ids(res.Repositories))
	})

	t.Run("AI 失败降级为基础搜索", func(t *testing.T) {
		semantic := new(MockSemantic)
		semantic.On("SemanticSearch", mock.Anything, repos, "editor").Return(nil, errors.New("network down"))

		res := NewEngine(semantic, nil, nil).AISearch(context.Background(), repos, "editor")

		assert.Equal(t, domain.SourceHeuristic, res.Source)
		assert.Equal(t, "network down", res.DegradedReason)
		assert.Equal(t, []int64{1, 2}, ids(res.Repositories))
	})

	t.Run("未配置 AI", func(t *testing.T) {
		res := NewEngine(nil, nil, nil).AISearch(context.Background(), repos, "game")
		assert.True(t, res.Degraded())
		assert.Equal(t, []int64{3}, ids(res.Repositories))
	})
}

func TestEngine_Search(t *testing.T) {
	yes := true
	minStars := 50
	repos := []domain.Repository{
		{ID: 1, Name: "alpha-cli", StargazersCount: 10, Language: "Go"},
		{ID: 2, Name: "alpha-web", StargazersCount: 100, Language: "TypeScript"},
		{ID: 3, Name: "beta", StargazersCount: 500, Language: "Go"},
	}
	subscribed := map[int64]bool{3: true}
	engine := NewEngine(nil, filter.NewRepoFilter(func(id int64) bool { return subscribed[id] }), nil)

	tests := []struct {
		name     string
		filters  domain.SearchFilters
		mode     Mode
		expected []int64
		source   domain.SearchSource
	}{
		{
			name:     "空查询只排序",
			filters:  domain.SearchFilters{SortBy: domain.SortByStars, SortOrder: domain.SortDesc},
			mode:     ModeRealtime,
			expected: []int64{3, 2, 1},
			source:   domain.SourceNone,
		},
		{
			name:     "实时匹配后过滤",
			filters:  domain.SearchFilters{Query: "alpha", MinStars: &minStars, SortBy: domain.SortByStars, SortOrder: domain.SortDesc},
			mode:     ModeRealtime,
			expected: []int64{2},
			source:   domain.SourceRealtime,
		},
		{
			name:     "深度搜索降级并按订阅过滤",
			filters:  domain.SearchFilters{Query: "go", IsSubscribed: &yes, SortBy: domain.SortByName, SortOrder: domain.SortAsc},
			mode:     ModeDeep,
			expected: []int64{3},
			source:   domain.SourceHeuristic,
		},
		{
			name:     "Idle 模式忽略查询",
			filters:  domain.SearchFilters{Query: "beta", SortBy: domain.SortByName, SortOrder: domain.SortAsc},
			mode:     ModeIdle,
			expected: []int64{1, 2, 3},
			source:   domain.SourceNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := engine.Search(context.Background(), repos, tt.filters, tt.mode)
			require.Equal(t, tt.source, res.Source)
			assert.Equal(t, tt.expected, ids(res.Repositories))
		})
	}
}
