package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github-star-curator/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCompleter 模拟 ChatCompleter 接口
type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	args := m.Called(ctx, system, user)
	return args.String(0), args.Error(1)
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expectError bool
		expected    analysisResponse
	}{
		{
			name:     "纯 JSON",
			input:    `{"summary": "编辑器", "tags": ["editor"], "platforms": ["mac"]}`,
			expected: analysisResponse{Summary: "编辑器", Tags: []string{"editor"}, Platforms: []string{"mac"}},
		},
		{
			name:     "带 Markdown 代码块",
			input:    "```json\n{\"summary\": \"x\", \"tags\": [], \"platforms\": []}\n```",
			expected: analysisResponse{Summary: "x", Tags: []string{}, Platforms: []string{}},
		},
		{
			name:        "非法 JSON",
			input:       `{"summary": nope}`,
			expectError: true,
		},
		{
			name:        "没有 JSON",
			input:       `Just some text`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var res analysisResponse
			err := extractJSON(tt.input, &res)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, res)
		})
	}
}

func TestAnnotator_AnalyzeRepository(t *testing.T) {
	repo := &domain.Repository{FullName: "owner/tool", Name: "tool", Description: "A terminal tool", Language: "Go"}

	tests := []struct {
		name           string
		reply          string
		err            error
		expectedSource domain.SearchSource
		verify         func(*testing.T, domain.Analysis)
	}{
		{
			name:           "AI 正常返回并截断",
			reply:          `{"summary": "终端工具", "tags": ["a","b","c","d","e","f"], "platforms": ["Linux","mac","windows","ios","android","docker","web","cli","extra"]}`,
			expectedSource: domain.SourceAI,
			verify: func(t *testing.T, a domain.Analysis) {
				assert.Equal(t, "终端工具", a.Summary)
				assert.Len(t, a.Tags, 5)
				assert.Len(t, a.Platforms, 8)
				assert.Equal(t, "linux", a.Platforms[0])
			},
		},
		{
			name:           "AI 调用失败走启发式",
			err:            errors.New("connection refused"),
			expectedSource: domain.SourceHeuristic,
			verify: func(t *testing.T, a domain.Analysis) {
				assert.Equal(t, "A terminal tool", a.Summary)
				assert.Contains(t, a.Tags, "Go")
				assert.Contains(t, a.Tags, "命令行")
				assert.Contains(t, a.Platforms, "cli")
			},
		},
		{
			name:           "AI 返回无法解析走启发式",
			reply:          "抱歉，我无法回答",
			expectedSource: domain.SourceHeuristic,
			verify: func(t *testing.T, a domain.Analysis) {
				assert.NotEmpty(t, a.Summary)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completer := new(MockCompleter)
			completer.On("Complete", mock.Anything, analysisSystemPrompt, mock.Anything).Return(tt.reply, tt.err)

			result := NewAnnotator(completer, nil).AnalyzeRepository(context.Background(), repo, "# README")

			assert.Equal(t, tt.expectedSource, result.Source)
			assert.Equal(t, tt.expectedSource != domain.SourceAI, result.Degraded())
			tt.verify(t, result.Analysis)
			completer.AssertExpectations(t)
		})
	}
}

func TestAnnotator_NotConfigured(t *testing.T) {
	a := NewAnnotator(nil, nil)

	result := a.AnalyzeRepository(context.Background(), &domain.Repository{Name: "x"}, "")
	assert.True(t, result.Degraded())
	assert.NotEmpty(t, result.DegradedReason)

	_, err := a.SemanticSearch(context.Background(), nil, "editor")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestAnnotator_InterpretQuery(t *testing.T) {
	completer := new(MockCompleter)
	completer.On("Complete", mock.Anything, querySystemPrompt, "好用的编辑器").
		Return(`{"keywords": ["编辑器"], "categories": ["开发工具"], "synonyms": ["Editor", "IDE"]}`, nil)
	completer.On("Complete", mock.Anything, querySystemPrompt, "machine learning").
		Return(`not json`, nil)

	a := NewAnnotator(completer, nil)

	intent, err := a.InterpretQuery(context.Background(), "好用的编辑器")
	require.NoError(t, err)
	assert.Equal(t, []string{"editor", "ide"}, intent.Synonyms)

	intent, err = a.InterpretQuery(context.Background(), "machine learning")
	require.NoError(t, err)
	assert.Equal(t, []string{"machine", "learning"}, intent.Keywords)
}

func TestAnnotator_SemanticSearch(t *testing.T) {
	repos := []domain.Repository{
		{ID: 1, Name: "notes", Description: "markdown notes"},
		{ID: 2, Name: "editor-x", AITags: []string{"editor"}},
		{ID: 3, Name: "game"},
		{ID: 4, Name: "vim", Description: "text editor"},
	}

	completer := new(MockCompleter)
	completer.On("Complete", mock.Anything, querySystemPrompt, "编辑器").
		Return(`{"keywords": ["editor"], "categories": [], "synonyms": []}`, nil)

	result, err := NewAnnotator(completer, nil).SemanticSearch(context.Background(), repos, "编辑器")
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, int64(2), result[0].ID)
	assert.Equal(t, int64(4), result[1].ID)

	failing := new(MockCompleter)
	failing.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("timeout"))
	_, err = NewAnnotator(failing, nil).SemanticSearch(context.Background(), repos, "编辑器")
	assert.Error(t, err)
}

func TestBuildAnalysisPrompt_TruncatesByRune(t *testing.T) {
	repo := &domain.Repository{FullName: "o/readme"}
	readme := strings.Repeat("中", readmeLimit) + "尾巴"

	prompt := buildAnalysisPrompt(repo, readme)
	assert.True(t, utf8.ValidString(prompt))
	assert.Contains(t, prompt, strings.Repeat("中", readmeLimit))
	assert.NotContains(t, prompt, "尾")

	short := buildAnalysisPrompt(repo, "简短的说明")
	assert.Contains(t, short, "简短的说明")
}

func TestHeuristicAnalysis(t *testing.T) {
	a := HeuristicAnalysis(&domain.Repository{Name: "ios-app", Language: "Swift"})
	assert.Equal(t, "一个使用 Swift 编写的开源项目", a.Summary)
	assert.Equal(t, []string{"mac", "ios"}, a.Platforms)
	assert.Equal(t, []string{"Swift"}, a.Tags)

	a = HeuristicAnalysis(&domain.Repository{Name: "plain"})
	assert.Equal(t, "一个开源项目", a.Summary)
	assert.Empty(t, a.Platforms)
}

func TestNewCompleter(t *testing.T) {
	_, err := NewCompleter(context.Background(), domain.AIConfig{})
	assert.ErrorIs(t, err, ErrNotConfigured)

	c, err := NewCompleter(context.Background(), domain.AIConfig{
		Provider: domain.ProviderOpenAI, BaseURL: "http://localhost", APIKey: "k", Model: "m",
	})
	require.NoError(t, err)
	assert.IsType(t, &OpenAICompleter{}, c)
}
