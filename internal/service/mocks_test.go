package service

import (
	"context"

	"github-star-curator/internal/domain"
	"github-star-curator/internal/port"

	"github.com/stretchr/testify/mock"
)

// MockGitHub 模拟 GitHubClient 接口
type MockGitHub struct {
	mock.Mock
}

func (m *MockGitHub) GetUser(ctx context.Context) (*port.GitHubUser, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.(*port.GitHubUser), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGitHub) ListStarred(ctx context.Context) ([]domain.Repository, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]domain.Repository), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGitHub) GetReadme(ctx context.Context, fullName string) (string, error) {
	args := m.Called(ctx, fullName)
	return args.String(0), args.Error(1)
}

func (m *MockGitHub) ListReleases(ctx context.Context, fullName string, page, perPage int) ([]domain.Release, error) {
	args := m.Called(ctx, fullName, page, perPage)
	if v := args.Get(0); v != nil {
		return v.([]domain.Release), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGitHub) GetRateLimit(ctx context.Context) (*port.RateLimit, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.(*port.RateLimit), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockAnnotator 模拟 Annotator 接口
type MockAnnotator struct {
	mock.Mock
}

func (m *MockAnnotator) AnalyzeRepository(ctx context.Context, repo *domain.Repository, readme string) domain.AnalysisResult {
	args := m.Called(ctx, repo, readme)
	return args.Get(0).(domain.AnalysisResult)
}

func (m *MockAnnotator) SemanticSearch(ctx context.Context, repos []domain.Repository, query string) ([]domain.Repository, error) {
	args := m.Called(ctx, repos, query)
	if v := args.Get(0); v != nil {
		return v.([]domain.Repository), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockNotifier 模拟 Notifier 接口
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyRelease(ctx context.Context, rel *domain.Release) error {
	args := m.Called(ctx, rel)
	return args.Error(0)
}

// MockBackup 模拟 WebDAV 备份目标
type MockBackup struct {
	mock.Mock
}

func (m *MockBackup) TestConnection(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockBackup) Upload(ctx context.Context, filename string, content []byte) error {
	return m.Called(ctx, filename, content).Error(0)
}

func (m *MockBackup) Download(ctx context.Context, filename string) ([]byte, error) {
	args := m.Called(ctx, filename)
	if v := args.Get(0); v != nil {
		return v.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBackup) List(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]string), args.Error(1)
	}
	return nil, args.Error(1)
}
