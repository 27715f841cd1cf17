package release

import (
	"context"
	"errors"
	"sort"
	"time"

	"github-star-curator/internal/common"
	"github-star-curator/internal/domain"
	"github-star-curator/internal/port"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// WatermarkPolicy 决定增量同步时 "since" 时间点的计算方式
type WatermarkPolicy string

const (
	// WatermarkGlobal 整个集合的最新发布时间，每轮同步只算一次
	WatermarkGlobal WatermarkPolicy = "global"
	// WatermarkPerRepository 每个仓库使用自己已知的最新发布时间
	WatermarkPerRepository WatermarkPolicy = "per-repository"
)

const (
	DefaultPageSize = 30
	DefaultMaxPages = 5
	DefaultDelay    = 150 * time.Millisecond
)

// Options 同步参数
type Options struct {
	PageSize int
	// MaxPages 限制增量同步时单个仓库最多翻几页
	MaxPages int
	Delay    time.Duration
	Policy   WatermarkPolicy
}

// DefaultOptions 返回默认参数
func DefaultOptions() Options {
	return Options{
		PageSize: DefaultPageSize,
		MaxPages: DefaultMaxPages,
		Delay:    DefaultDelay,
		Policy:   WatermarkGlobal,
	}
}

// RepoFailure 记录单个仓库同步失败的原因
type RepoFailure struct {
	FullName string
	Err      error
}

// Summary 是一轮同步的统计
type Summary struct {
	Requested   int
	Succeeded   int
	NewReleases int
	Failures    []RepoFailure
}

// Aggregator 顺序拉取订阅仓库的 Release 并去重
type Aggregator struct {
	client  port.GitHubClient
	opts    Options
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewAggregator 创建聚合器；Delay <= 0 表示不限速
func NewAggregator(client port.GitHubClient, opts Options, logger *zap.Logger) *Aggregator {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}
	if opts.Policy == "" {
		opts.Policy = WatermarkGlobal
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	limit := rate.Inf
	if opts.Delay > 0 {
		limit = rate.Every(opts.Delay)
	}
	return &Aggregator{
		client:  client,
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// Sync 对每个订阅仓库决定全量或增量拉取，返回尚不存在于 existing 中的新 Release。
// 单个仓库失败只记录不中断；Token 失效或 ctx 取消时提前返回已拿到的结果和错误。
func (a *Aggregator) Sync(ctx context.Context, subscribed []domain.Repository, existing []domain.Release) ([]domain.Release, Summary, error) {
	summary := Summary{Requested: len(subscribed)}

	known := make(map[int64]struct{}, len(existing))
	latestByRepo := make(map[int64]time.Time)
	for _, r := range existing {
		known[r.ID] = struct{}{}
		if latest, ok := latestByRepo[r.Repository.ID]; !ok || r.PublishedAt.After(latest) {
			latestByRepo[r.Repository.ID] = r.PublishedAt
		}
	}
	globalSince := LatestPublished(existing)

	var fresh []domain.Release
	for _, repo := range subscribed {
		if err := ctx.Err(); err != nil {
			return fresh, summary, err
		}

		var (
			fetched []domain.Release
			err     error
		)
		if _, subscribedBefore := latestByRepo[repo.ID]; !subscribedBefore {
			fetched, err = a.fetchFull(ctx, repo.FullName)
		} else {
			since := globalSince
			if a.opts.Policy == WatermarkPerRepository {
				since = latestByRepo[repo.ID]
			}
			fetched, err = a.fetchSince(ctx, repo.FullName, since)
		}

		if err != nil {
			if errors.Is(err, common.ErrUnauthorized) || ctx.Err() != nil {
				return fresh, summary, err
			}
			a.logger.Warn("拉取 Release 失败，跳过", zap.String("repo", repo.FullName), zap.Error(err))
			summary.Failures = append(summary.Failures, RepoFailure{FullName: repo.FullName, Err: err})
			continue
		}
		summary.Succeeded++

		for _, rel := range fetched {
			// API 返回的仓库引用不可信，统一以订阅仓库为准
			rel.Repository = domain.ReleaseRepo{ID: repo.ID, Name: repo.Name, FullName: repo.FullName}
			if _, ok := known[rel.ID]; ok {
				continue
			}
			known[rel.ID] = struct{}{}
			fresh = append(fresh, rel)
		}
	}

	summary.NewReleases = len(fresh)
	a.logger.Info("Release 同步完成",
		zap.Int("requested", summary.Requested),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("new", summary.NewReleases),
	)
	return fresh, summary, nil
}

func (a *Aggregator) fetchFull(ctx context.Context, fullName string) ([]domain.Release, error) {
	batch, err := a.page(ctx, fullName, 1)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Release, 0, len(batch))
	for _, rel := range batch {
		if isDraft(rel) {
			continue
		}
		out = append(out, rel)
	}
	return out, nil
}

// fetchSince 接口按创建时间排序，与发布时间不一定一致，草稿还会排在最前面，
// 所以逐条比较 since 而不是遇到旧的就停。整页都没有更新的内容或者不满一页时停止翻页
func (a *Aggregator) fetchSince(ctx context.Context, fullName string, since time.Time) ([]domain.Release, error) {
	var out []domain.Release
	for page := 1; page <= a.opts.MaxPages; page++ {
		batch, err := a.page(ctx, fullName, page)
		if err != nil {
			return nil, err
		}
		newer := 0
		for _, rel := range batch {
			if isDraft(rel) || !rel.PublishedAt.After(since) {
				continue
			}
			out = append(out, rel)
			newer++
		}
		if newer == 0 || len(batch) < a.opts.PageSize {
			break
		}
	}
	return out, nil
}

// 草稿没有发布时间
func isDraft(rel domain.Release) bool {
	return rel.PublishedAt.IsZero()
}

func (a *Aggregator) page(ctx context.Context, fullName string, page int) ([]domain.Release, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return a.client.ListReleases(ctx, fullName, page, a.opts.PageSize)
}

// LatestPublished 返回集合中最晚的发布时间，空集合返回零值
func LatestPublished(releases []domain.Release) time.Time {
	var latest time.Time
	for _, r := range releases {
		if r.PublishedAt.After(latest) {
			latest = r.PublishedAt
		}
	}
	return latest
}

// Merge 追加 incoming 中 id 尚未出现过的 Release，结果按发布时间倒序
func Merge(existing, incoming []domain.Release) []domain.Release {
	seen := make(map[int64]struct{}, len(existing)+len(incoming))
	out := make([]domain.Release, 0, len(existing)+len(incoming))
	for _, list := range [][]domain.Release{existing, incoming} {
		for _, r := range list {
			if _, ok := seen[r.ID]; ok {
				continue
			}
			seen[r.ID] = struct{}{}
			out = append(out, r)
		}
	}
	SortByPublished(out)
	return out
}

// SortByPublished 按发布时间倒序原地排序
func SortByPublished(releases []domain.Release) {
	sort.SliceStable(releases, func(i, j int) bool {
		return releases[i].PublishedAt.After(releases[j].PublishedAt)
	})
}
