package service

import (
	"context"

	"github-star-curator/internal/adapter/filter"
	"github-star-curator/internal/domain"
	"github-star-curator/internal/release"

	"go.uber.org/zap"
)

func (s *StarService) subscriptionSet(ctx context.Context) (map[int64]struct{}, error) {
	ids, err := s.store.Subscriptions(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

func newRepoFilter(subscribed map[int64]struct{}) *filter.RepoFilter {
	return filter.NewRepoFilter(func(id int64) bool {
		_, ok := subscribed[id]
		return ok
	})
}

// SetSubscribed 订阅或取消订阅某个仓库的 Release
func (s *StarService) SetSubscribed(ctx context.Context, repoID int64, subscribed bool) error {
	return s.store.SetSubscribed(ctx, repoID, subscribed)
}

// SyncReleases 拉取所有订阅仓库的新 Release，保存后推送通知
func (s *StarService) SyncReleases(ctx context.Context) ([]domain.Release, release.Summary, error) {
	done, err := s.acquire()
	if err != nil {
		return nil, release.Summary{}, err
	}
	defer done()

	subscribed, err := s.subscriptionSet(ctx)
	if err != nil {
		return nil, release.Summary{}, err
	}
	repos, err := s.store.ListRepositories(ctx)
	if err != nil {
		return nil, release.Summary{}, err
	}
	targets := make([]domain.Repository, 0, len(subscribed))
	for _, r := range repos {
		if _, ok := subscribed[r.ID]; ok {
			targets = append(targets, r)
		}
	}

	existing, err := s.store.ListReleases(ctx)
	if err != nil {
		return nil, release.Summary{}, err
	}

	fresh, summary, syncErr := s.aggregator.Sync(ctx, targets, existing)
	// 中途失败时也保存已经拿到的部分
	if err := s.store.AddReleases(ctx, fresh); err != nil {
		return nil, summary, err
	}
	if syncErr != nil {
		return fresh, summary, s.handleAuth(ctx, syncErr)
	}

	s.notify(ctx, fresh)
	return fresh, summary, nil
}

func (s *StarService) notify(ctx context.Context, fresh []domain.Release) {
	if s.notifier == nil || len(fresh) == 0 {
		return
	}
	sorted := make([]domain.Release, len(fresh))
	copy(sorted, fresh)
	release.SortByPublished(sorted)

	for i := range sorted {
		if s.notifyLimit > 0 && i >= s.notifyLimit {
			s.logger.Info("新 Release 过多，剩余的不再推送", zap.Int("skipped", len(sorted)-i))
			break
		}
		if err := s.notifier.NotifyRelease(ctx, &sorted[i]); err != nil {
			s.logger.Warn("推送 Release 失败", zap.String("repo", sorted[i].Repository.FullName), zap.Error(err))
		}
	}
}

// Timeline 构建 Release 时间线；useFilters 为 true 时应用已保存的附件过滤器
func (s *StarService) Timeline(ctx context.Context, useFilters bool) (release.Timeline, error) {
	releases, err := s.store.ListReleases(ctx)
	if err != nil {
		return release.Timeline{}, err
	}
	readIDs, err := s.store.ReadReleases(ctx)
	if err != nil {
		return release.Timeline{}, err
	}

	var filters []domain.AssetFilter
	if useFilters {
		if filters, err = s.store.AssetFilters(ctx); err != nil {
			return release.Timeline{}, err
		}
	}
	return release.BuildTimeline(releases, release.NewReadSet(readIDs...), filters), nil
}

func (s *StarService) MarkRead(ctx context.Context, ids ...int64) error {
	return s.store.SetRead(ctx, true, ids...)
}

func (s *StarService) MarkUnread(ctx context.Context, ids ...int64) error {
	return s.store.SetRead(ctx, false, ids...)
}

// MarkAllRead 把当前所有 Release 标为已读
func (s *StarService) MarkAllRead(ctx context.Context) error {
	releases, err := s.store.ListReleases(ctx)
	if err != nil {
		return err
	}
	set := release.NewReadSet()
	set.MarkAllRead(releases)
	return s.store.SetRead(ctx, true, set.IDs()...)
}
