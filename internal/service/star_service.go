package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github-star-curator/internal/adapter/analyzer"
	"github-star-curator/internal/common"
	"github-star-curator/internal/domain"
	"github-star-curator/internal/port"
	"github-star-curator/internal/release"
	"github-star-curator/internal/search"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Deps 是 StarService 的全部依赖；Notifier 和 Backup 可以为空
type Deps struct {
	GitHub     port.GitHubClient
	Store      port.Store
	Annotator  port.Annotator
	Aggregator *release.Aggregator
	Analyzer   *analyzer.BulkAnalyzer
	Notifier   port.Notifier
	Backup     port.BackupTarget
	// NotifyLimit 每轮同步最多推送的新 Release 数量
	NotifyLimit int
	// Settings 备份时原样写入的配置
	AIConfigs     []domain.AIConfig
	WebDAVConfigs []domain.WebDAVConfig
	Logger        *zap.Logger
}

// StarService 把各个引擎和外部协作者串起来
type StarService struct {
	github      port.GitHubClient
	store       port.Store
	annotator   port.Annotator
	aggregator  *release.Aggregator
	analyzer    *analyzer.BulkAnalyzer
	notifier    port.Notifier
	backup      port.BackupTarget
	notifyLimit int
	aiConfigs   []domain.AIConfig
	davConfigs  []domain.WebDAVConfig
	logger      *zap.Logger
	nowFunc     func() time.Time

	// 同一时间只允许一个同步或批量分析在跑
	busy *semaphore.Weighted
}

// NewStarService 创建服务
func NewStarService(d Deps) *StarService {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	aggregator := d.Aggregator
	if aggregator == nil {
		aggregator = release.NewAggregator(d.GitHub, release.DefaultOptions(), logger)
	}
	bulk := d.Analyzer
	if bulk == nil {
		bulk = analyzer.NewBulkAnalyzer(d.GitHub, d.Annotator, logger)
	}
	return &StarService{
		github:      d.GitHub,
		store:       d.Store,
		annotator:   d.Annotator,
		aggregator:  aggregator,
		analyzer:    bulk,
		notifier:    d.Notifier,
		backup:      d.Backup,
		notifyLimit: d.NotifyLimit,
		aiConfigs:   d.AIConfigs,
		davConfigs:  d.WebDAVConfigs,
		logger:      logger,
		nowFunc:     time.Now,
		busy:        semaphore.NewWeighted(1),
	}
}

// acquire 已有任务在运行时立即返回 ErrSyncInProgress
func (s *StarService) acquire() (func(), error) {
	if !s.busy.TryAcquire(1) {
		return nil, common.ErrSyncInProgress
	}
	return func() { s.busy.Release(1) }, nil
}

// handleAuth Token 失效时清空本地数据，调用方需要重新登录
func (s *StarService) handleAuth(ctx context.Context, err error) error {
	if errors.Is(err, common.ErrUnauthorized) {
		s.logger.Warn("GitHub Token 已失效，清空本地数据")
		if clearErr := s.store.Clear(ctx); clearErr != nil {
			s.logger.Error("清空本地数据失败", zap.Error(clearErr))
		}
	}
	return err
}

// CurrentUser 返回 Token 对应的账号
func (s *StarService) CurrentUser(ctx context.Context) (*port.GitHubUser, error) {
	user, err := s.github.GetUser(ctx)
	if err != nil {
		return nil, s.handleAuth(ctx, err)
	}
	return user, nil
}

// RateLimit 返回 GitHub core 配额
func (s *StarService) RateLimit(ctx context.Context) (*port.RateLimit, error) {
	rl, err := s.github.GetRateLimit(ctx)
	if err != nil {
		return nil, s.handleAuth(ctx, err)
	}
	return rl, nil
}

// Logout 清空仓库和 Release 数据
func (s *StarService) Logout(ctx context.Context) error {
	return s.store.Clear(ctx)
}

// SyncSummary 是一次 Star 同步的结果
type SyncSummary struct {
	Fetched int
	Added   int
	Updated int
}

// SyncStarred 拉取全部 Star 仓库并与本地合并：原始字段以 GitHub 为准，AI 字段和用户覆盖保留
func (s *StarService) SyncStarred(ctx context.Context) (SyncSummary, error) {
	done, err := s.acquire()
	if err != nil {
		return SyncSummary{}, err
	}
	defer done()

	fetched, err := s.github.ListStarred(ctx)
	if err != nil {
		return SyncSummary{}, s.handleAuth(ctx, err)
	}

	existing, err := s.store.ListRepositories(ctx)
	if err != nil {
		return SyncSummary{}, err
	}
	byID := make(map[int64]*domain.Repository, len(existing))
	for i := range existing {
		byID[existing[i].ID] = &existing[i]
	}

	summary := SyncSummary{Fetched: len(fetched)}
	merged := make([]domain.Repository, 0, len(fetched))
	for i := range fetched {
		if old, ok := byID[fetched[i].ID]; ok {
			merged = append(merged, *old.MergeFetched(&fetched[i]))
			summary.Updated++
		} else {
			merged = append(merged, fetched[i])
			summary.Added++
		}
	}

	if err := s.store.SaveRepositories(ctx, merged); err != nil {
		return summary, err
	}
	s.logger.Info("Star 仓库同步完成",
		zap.Int("fetched", summary.Fetched),
		zap.Int("added", summary.Added),
		zap.Int("updated", summary.Updated),
	)
	return summary, nil
}

// AnalyzeRepositories 批量 AI 分析；onlyPending 为 true 时跳过已分析的仓库
func (s *StarService) AnalyzeRepositories(ctx context.Context, onlyPending bool, ctrl *analyzer.Control, onProgress analyzer.ProgressFunc) (analyzer.Progress, error) {
	done, err := s.acquire()
	if err != nil {
		return analyzer.Progress{}, err
	}
	defer done()

	repos, err := s.store.ListRepositories(ctx)
	if err != nil {
		return analyzer.Progress{}, err
	}
	if onlyPending {
		pending := repos[:0]
		for _, r := range repos {
			if !r.IsAnalyzed() {
				pending = append(pending, r)
			}
		}
		repos = pending
	}

	progress, err := s.analyzer.Run(ctx, repos, ctrl, s.store.SaveRepository, onProgress)
	if err != nil {
		return progress, s.handleAuth(ctx, err)
	}
	return progress, nil
}

// AnalyzeRepository 分析单个仓库并保存
func (s *StarService) AnalyzeRepository(ctx context.Context, id int64) (domain.AnalysisResult, error) {
	repo, err := s.findRepository(ctx, id)
	if err != nil {
		return domain.AnalysisResult{}, err
	}

	readme, err := s.github.GetReadme(ctx, repo.FullName)
	if err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			return domain.AnalysisResult{}, s.handleAuth(ctx, err)
		}
		readme = ""
	}

	result := s.annotator.AnalyzeRepository(ctx, repo, readme)
	now := s.nowFunc()
	repo.AISummary = result.Analysis.Summary
	repo.AITags = result.Analysis.Tags
	repo.AIPlatforms = result.Analysis.Platforms
	repo.AnalyzedAt = &now
	return result, s.store.SaveRepository(ctx, repo)
}

func (s *StarService) findRepository(ctx context.Context, id int64) (*domain.Repository, error) {
	repos, err := s.store.ListRepositories(ctx)
	if err != nil {
		return nil, err
	}
	for i := range repos {
		if repos[i].ID == id {
			return &repos[i], nil
		}
	}
	return nil, common.WrapError(common.ErrCodeNotFound, "仓库不存在", nil)
}

// Search 按模式搜索，然后执行结构化过滤和排序；深度搜索会记入搜索历史
func (s *StarService) Search(ctx context.Context, filters domain.SearchFilters, mode search.Mode) (search.Result, error) {
	repos, err := s.store.ListRepositories(ctx)
	if err != nil {
		return search.Result{}, err
	}
	subscribed, err := s.subscriptionSet(ctx)
	if err != nil {
		return search.Result{}, err
	}

	var semantic search.Semantic
	if s.annotator != nil {
		semantic = s.annotator
	}
	engine := search.NewEngine(semantic, newRepoFilter(subscribed), s.logger)
	result := engine.Search(ctx, repos, filters, mode)

	if mode == search.ModeDeep {
		if err := s.RecordSearch(ctx, filters.Query); err != nil {
			s.logger.Warn("保存搜索历史失败", zap.Error(err))
		}
	}
	return result, nil
}

// RecordSearch 把查询放到搜索历史最前面
func (s *StarService) RecordSearch(ctx context.Context, query string) error {
	items, err := s.store.SearchHistory(ctx)
	if err != nil {
		return err
	}
	h := search.NewHistory(items)
	h.Add(query)
	return s.store.SaveSearchHistory(ctx, h.Items())
}

// ForgetSearch 从搜索历史中删除一条查询
func (s *StarService) ForgetSearch(ctx context.Context, query string) error {
	items, err := s.store.SearchHistory(ctx)
	if err != nil {
		return err
	}
	h := search.NewHistory(items)
	h.Remove(strings.TrimSpace(query))
	return s.store.SaveSearchHistory(ctx, h.Items())
}

// SearchHistory 最近的查询，最新的在前
func (s *StarService) SearchHistory(ctx context.Context) ([]string, error) {
	return s.store.SearchHistory(ctx)
}

// ClearSearchHistory 清空搜索历史
func (s *StarService) ClearSearchHistory(ctx context.Context) error {
	return s.store.SaveSearchHistory(ctx, nil)
}
