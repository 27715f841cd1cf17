package analyzer

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github-star-curator/internal/common"
	"github-star-curator/internal/domain"
	"github-star-curator/internal/port"

	"go.uber.org/zap"
)

// ReadmeSource 只需要读取 README 的能力
type ReadmeSource interface {
	GetReadme(ctx context.Context, fullName string) (string, error)
}

// Control 是批量分析的暂停/停止开关；循环每次都读取最新值
type Control struct {
	paused  atomic.Bool
	stopped atomic.Bool
}

func NewControl() *Control {
	return &Control{}
}

func (c *Control) Pause()        { c.paused.Store(true) }
func (c *Control) Resume()       { c.paused.Store(false) }
func (c *Control) Stop()         { c.stopped.Store(true) }
func (c *Control) Paused() bool  { return c.paused.Load() }
func (c *Control) Stopped() bool { return c.stopped.Load() }

// Progress 是批量分析的进度
type Progress struct {
	Total     int
	Completed int
	Succeeded int
	Failed    int
	// Degraded 统计走了启发式兜底的条目
	Degraded int
	Current  string
	Stopped  bool
}

// SaveFunc 持久化单个分析完成的仓库
type SaveFunc func(ctx context.Context, repo *domain.Repository) error

// ProgressFunc 每处理完一个仓库回调一次
type ProgressFunc func(Progress)

// BulkAnalyzer 顺序分析仓库，支持暂停与停止
type BulkAnalyzer struct {
	readme       ReadmeSource
	annotator    port.Annotator
	pollInterval time.Duration
	itemTimeout  time.Duration
	nowFunc      func() time.Time
	logger       *zap.Logger
}

// NewBulkAnalyzer 创建新的分析器实例
func NewBulkAnalyzer(readme ReadmeSource, annotator port.Annotator, logger *zap.Logger) *BulkAnalyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BulkAnalyzer{
		readme:       readme,
		annotator:    annotator,
		pollInterval: time.Second,
		itemTimeout:  30 * time.Second,
		nowFunc:      time.Now, // 便于测试注入当前时间
		logger:       logger,
	}
}

// SetPollInterval 设置暂停期间的轮询间隔
func (a *BulkAnalyzer) SetPollInterval(d time.Duration) {
	if d > 0 {
		a.pollInterval = d
	}
}

// Run 依次分析 repos 并原地写回 AI 字段。
// 停止时已完成的结果全部保留，不回滚；只有 ctx 取消或 Token 失效时返回 error。
func (a *BulkAnalyzer) Run(ctx context.Context, repos []domain.Repository, ctrl *Control, save SaveFunc, onProgress ProgressFunc) (Progress, error) {
	if ctrl == nil {
		ctrl = NewControl()
	}
	progress := Progress{Total: len(repos)}
	a.logger.Info("开始批量 AI 分析", zap.Int("total", len(repos)))

	for i := range repos {
		if !a.waitWhilePaused(ctx, ctrl) {
			break
		}

		repo := &repos[i]
		progress.Current = repo.FullName

		result, err := a.analyzeOne(ctx, repo)
		if err != nil {
			return progress, err
		}
		if result.Degraded() {
			progress.Degraded++
		}

		if save != nil {
			if err := save(ctx, repo); err != nil {
				a.logger.Warn("保存分析结果失败", zap.String("repo", repo.FullName), zap.Error(err))
				progress.Failed++
				progress.Completed++
				notify(onProgress, progress)
				continue
			}
		}
		progress.Succeeded++
		progress.Completed++
		notify(onProgress, progress)
	}

	progress.Stopped = ctrl.Stopped()
	if err := ctx.Err(); err != nil {
		return progress, err
	}
	a.logger.Info("批量 AI 分析结束",
		zap.Int("completed", progress.Completed),
		zap.Int("succeeded", progress.Succeeded),
		zap.Int("failed", progress.Failed),
		zap.Bool("stopped", progress.Stopped),
	)
	return progress, nil
}

func (a *BulkAnalyzer) analyzeOne(ctx context.Context, repo *domain.Repository) (domain.AnalysisResult, error) {
	// 为每个项目设置超时时间
	itemCtx, cancel := context.WithTimeout(ctx, a.itemTimeout)
	defer cancel()

	readme, err := a.readme.GetReadme(itemCtx, repo.FullName)
	if err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			return domain.AnalysisResult{}, err
		}
		a.logger.Debug("README 获取失败，仅凭仓库信息分析", zap.String("repo", repo.FullName), zap.Error(err))
		readme = ""
	}

	result := a.annotator.AnalyzeRepository(itemCtx, repo, readme)
	now := a.nowFunc()
	repo.AISummary = result.Analysis.Summary
	repo.AITags = result.Analysis.Tags
	repo.AIPlatforms = result.Analysis.Platforms
	repo.AnalyzedAt = &now
	return result, nil
}

// waitWhilePaused 返回 false 表示应当结束循环
func (a *BulkAnalyzer) waitWhilePaused(ctx context.Context, ctrl *Control) bool {
	for {
		if ctrl.Stopped() || ctx.Err() != nil {
			return false
		}
		if !ctrl.Paused() {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(a.pollInterval):
		}
	}
}

func notify(fn ProgressFunc, p Progress) {
	if fn != nil {
		fn(p)
	}
}
