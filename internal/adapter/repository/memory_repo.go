package repository

import (
	"context"
	"sort"
	"sync"

	"github-star-curator/internal/domain"
	"github-star-curator/internal/port"
	"github-star-curator/internal/release"
)

// MemoryStore 把所有状态放在内存里，适合一次性的命令行运行和测试
type MemoryStore struct {
	mu            sync.RWMutex
	repos         map[int64]domain.Repository
	releases      []domain.Release
	subscriptions map[int64]struct{}
	read          map[int64]struct{}
	categories    []domain.Category
	assetFilters  []domain.AssetFilter
	history       []string
}

var _ port.Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		repos:         make(map[int64]domain.Repository),
		subscriptions: make(map[int64]struct{}),
		read:          make(map[int64]struct{}),
	}
}

func (s *MemoryStore) ListRepositories(ctx context.Context) ([]domain.Repository, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Repository, 0, len(s.repos))
	for _, r := range s.repos {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StarredAt.Equal(out[j].StarredAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StarredAt.After(out[j].StarredAt)
	})
	return out, nil
}

func (s *MemoryStore) SaveRepositories(ctx context.Context, repos []domain.Repository) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range repos {
		s.repos[r.ID] = r
	}
	return nil
}

func (s *MemoryStore) SaveRepository(ctx context.Context, repo *domain.Repository) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repos[repo.ID] = *repo
	return nil
}

// ListReleases 按发布时间倒序
func (s *MemoryStore) ListReleases(ctx context.Context) ([]domain.Release, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Release, len(s.releases))
	copy(out, s.releases)
	return out, nil
}

// AddReleases 已存在的 id 不覆盖
func (s *MemoryStore) AddReleases(ctx context.Context, releases []domain.Release) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releases = release.Merge(s.releases, releases)
	return nil
}

func (s *MemoryStore) Subscriptions(ctx context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedIDs(s.subscriptions), nil
}

func (s *MemoryStore) SetSubscribed(ctx context.Context, repoID int64, subscribed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if subscribed {
		s.subscriptions[repoID] = struct{}{}
	} else {
		delete(s.subscriptions, repoID)
	}
	return nil
}

func (s *MemoryStore) ReadReleases(ctx context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedIDs(s.read), nil
}

func (s *MemoryStore) SetRead(ctx context.Context, read bool, releaseIDs ...int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range releaseIDs {
		if read {
			s.read[id] = struct{}{}
		} else {
			delete(s.read, id)
		}
	}
	return nil
}

func (s *MemoryStore) CustomCategories(ctx context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Category(nil), s.categories...), nil
}

func (s *MemoryStore) SaveCustomCategories(ctx context.Context, cats []domain.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = append([]domain.Category(nil), cats...)
	return nil
}

func (s *MemoryStore) AssetFilters(ctx context.Context) ([]domain.AssetFilter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.AssetFilter(nil), s.assetFilters...), nil
}

func (s *MemoryStore) SaveAssetFilters(ctx context.Context, filters []domain.AssetFilter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assetFilters = append([]domain.AssetFilter(nil), filters...)
	return nil
}

func (s *MemoryStore) SearchHistory(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.history...), nil
}

func (s *MemoryStore) SaveSearchHistory(ctx context.Context, history []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append([]string(nil), history...)
	return nil
}

// Clear 只清空仓库和 Release 相关数据，分类与过滤器等用户设置保留
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repos = make(map[int64]domain.Repository)
	s.releases = nil
	s.subscriptions = make(map[int64]struct{})
	s.read = make(map[int64]struct{})
	return nil
}

func sortedIDs(set map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
