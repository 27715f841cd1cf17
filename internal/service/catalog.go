package service

import (
	"context"
	"strings"

	"github-star-curator/internal/adapter/filter"
	"github-star-curator/internal/classify"
	"github-star-curator/internal/common"
	"github-star-curator/internal/domain"
)

// CategoryCount 是带仓库数量的分类
type CategoryCount struct {
	domain.Category
	Count int
}

func (s *StarService) registry(ctx context.Context) (*classify.Registry, error) {
	customs, err := s.store.CustomCategories(ctx)
	if err != nil {
		return nil, err
	}
	return classify.NewRegistry(classify.DefaultCategories, customs), nil
}

// Categories 返回当前生效的分类以及每个分类下的仓库数
func (s *StarService) Categories(ctx context.Context) ([]CategoryCount, error) {
	reg, err := s.registry(ctx)
	if err != nil {
		return nil, err
	}
	repos, err := s.store.ListRepositories(ctx)
	if err != nil {
		return nil, err
	}

	cats := reg.Resolve()
	counts := classify.CountByCategory(cats, repos)
	out := make([]CategoryCount, 0, len(cats))
	for _, c := range cats {
		out = append(out, CategoryCount{Category: c, Count: counts[c.ID]})
	}
	return out, nil
}

// RepositoriesInCategory 返回属于某个分类的仓库
func (s *StarService) RepositoriesInCategory(ctx context.Context, id string) ([]domain.Repository, error) {
	reg, err := s.registry(ctx)
	if err != nil {
		return nil, err
	}
	cat, ok := reg.Find(id)
	if !ok {
		return nil, common.WrapError(common.ErrCodeNotFound, "分类不存在", nil)
	}
	repos, err := s.store.ListRepositories(ctx)
	if err != nil {
		return nil, err
	}
	return classify.FilterByCategory(repos, &cat), nil
}

func (s *StarService) AddCategory(ctx context.Context, name string, keywords []string) (domain.Category, error) {
	reg, err := s.registry(ctx)
	if err != nil {
		return domain.Category{}, err
	}
	cat, err := reg.Add(name, keywords)
	if err != nil {
		return domain.Category{}, err
	}
	return cat, s.store.SaveCustomCategories(ctx, reg.Customs())
}

// UpdateCategory 修改内置分类时会生成一个自定义副本，内置分类本身不变
func (s *StarService) UpdateCategory(ctx context.Context, id, name string, keywords []string) (domain.Category, error) {
	reg, err := s.registry(ctx)
	if err != nil {
		return domain.Category{}, err
	}
	cat, err := reg.Update(id, name, keywords)
	if err != nil {
		return domain.Category{}, err
	}
	return cat, s.store.SaveCustomCategories(ctx, reg.Customs())
}

// DeleteCategory 分类下还有仓库时拒绝删除
func (s *StarService) DeleteCategory(ctx context.Context, id string) error {
	reg, err := s.registry(ctx)
	if err != nil {
		return err
	}
	repos, err := s.store.ListRepositories(ctx)
	if err != nil {
		return err
	}
	if err := reg.Delete(id, repos); err != nil {
		return err
	}
	return s.store.SaveCustomCategories(ctx, reg.Customs())
}

// RepositoryEdit 是用户对仓库的手动覆盖，nil 字段保持不变
type RepositoryEdit struct {
	Description *string
	Tags        []string
	Category    *string
}

// EditRepository 写入用户覆盖并记录编辑时间
func (s *StarService) EditRepository(ctx context.Context, id int64, edit RepositoryEdit) (*domain.Repository, error) {
	repo, err := s.findRepository(ctx, id)
	if err != nil {
		return nil, err
	}
	if edit.Description != nil {
		repo.CustomDescription = strings.TrimSpace(*edit.Description)
	}
	if edit.Tags != nil {
		tags := make([]string, 0, len(edit.Tags))
		for _, t := range edit.Tags {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
		repo.CustomTags = tags
	}
	if edit.Category != nil {
		repo.CustomCategory = strings.TrimSpace(*edit.Category)
	}
	now := s.nowFunc()
	repo.LastEdited = &now

	if err := s.store.SaveRepository(ctx, repo); err != nil {
		return nil, err
	}
	return repo, nil
}

func (s *StarService) AssetFilters(ctx context.Context) ([]domain.AssetFilter, error) {
	return s.store.AssetFilters(ctx)
}

// AddAssetFilter 名称或关键字为空时返回字段级校验错误
func (s *StarService) AddAssetFilter(ctx context.Context, name string, keywords []string) (domain.AssetFilter, error) {
	f, err := classify.NewAssetFilter(name, keywords)
	if err != nil {
		return domain.AssetFilter{}, err
	}
	filters, err := s.store.AssetFilters(ctx)
	if err != nil {
		return domain.AssetFilter{}, err
	}
	return f, s.store.SaveAssetFilters(ctx, append(filters, f))
}

func (s *StarService) DeleteAssetFilter(ctx context.Context, id string) error {
	filters, err := s.store.AssetFilters(ctx)
	if err != nil {
		return err
	}
	out := filters[:0]
	found := false
	for _, f := range filters {
		if f.ID == id {
			found = true
			continue
		}
		out = append(out, f)
	}
	if !found {
		return common.WrapError(common.ErrCodeNotFound, "附件过滤器不存在", nil)
	}
	return s.store.SaveAssetFilters(ctx, out)
}

// InferCategories 返回每个仓库第一个命中的分类名，没有命中的仓库不出现在结果中
func (s *StarService) InferCategories(ctx context.Context, repos []domain.Repository) (map[int64]string, error) {
	reg, err := s.registry(ctx)
	if err != nil {
		return nil, err
	}
	cats := reg.Resolve()
	out := make(map[int64]string, len(repos))
	for i := range repos {
		if name := classify.Infer(&repos[i], cats); name != "" {
			out[repos[i].ID] = name
		}
	}
	return out, nil
}

// Facets 汇总本地仓库的语言、标签和平台，供筛选使用
func (s *StarService) Facets(ctx context.Context) (filter.Facets, error) {
	repos, err := s.store.ListRepositories(ctx)
	if err != nil {
		return filter.Facets{}, err
	}
	return filter.CollectFacets(repos), nil
}
