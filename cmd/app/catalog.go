package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github-star-curator/internal/common"
	"github-star-curator/internal/service"
)

// splitList 拆分逗号分隔的参数，忽略空项
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func runFacets(ctx context.Context, w io.Writer, svc *service.StarService) error {
	facets, err := svc.Facets(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "💻 语言: %s\n", strings.Join(facets.Languages, ", "))
	fmt.Fprintf(w, "🏷️ 标签: %s\n", strings.Join(facets.Tags, ", "))
	fmt.Fprintf(w, "🖥️ 平台: %s\n", strings.Join(facets.Platforms, ", "))
	return nil
}

func runCategoryEdit(ctx context.Context, w io.Writer, svc *service.StarService, opts options) error {
	var keywords []string
	if opts.set["keywords"] {
		keywords = splitList(opts.keywords)
	}

	switch opts.mode {
	case "category-add":
		cat, err := svc.AddCategory(ctx, opts.name, keywords)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "✅ 已创建分类 %s (%s)\n", cat.Name, cat.ID)
	case "category-update":
		cat, err := svc.UpdateCategory(ctx, opts.id, opts.name, keywords)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "✅ 分类已更新为 %s (%s)\n", cat.Name, cat.ID)
	case "category-delete":
		if err := svc.DeleteCategory(ctx, opts.id); err != nil {
			return err
		}
		fmt.Fprintf(w, "🗑️ 已删除分类 %s\n", opts.id)
	}
	return nil
}

func runEdit(ctx context.Context, w io.Writer, svc *service.StarService, opts options) error {
	if opts.repoID == 0 {
		return common.NewError(common.ErrCodeInvalidInput, "请通过 -repo 指定仓库 ID")
	}

	var edit service.RepositoryEdit
	if opts.set["desc"] {
		edit.Description = &opts.description
	}
	if opts.set["tags"] {
		edit.Tags = splitList(opts.tags)
		if edit.Tags == nil {
			edit.Tags = []string{}
		}
	}
	if opts.set["category"] {
		edit.Category = &opts.category
	}

	repo, err := svc.EditRepository(ctx, opts.repoID, edit)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "✏️ %s 已更新\n", repo.FullName)
	fmt.Fprintf(w, "    描述: %s\n", repo.DisplayDescription())
	fmt.Fprintf(w, "    标签: %s\n", strings.Join(repo.DisplayTags(), ", "))
	return nil
}

func runAssetFilters(ctx context.Context, w io.Writer, svc *service.StarService, opts options) error {
	switch opts.mode {
	case "filter-add":
		f, err := svc.AddAssetFilter(ctx, opts.name, splitList(opts.keywords))
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "✅ 已添加附件过滤器 %s (%s)\n", f.Name, f.ID)
		return nil
	case "filter-delete":
		if err := svc.DeleteAssetFilter(ctx, opts.id); err != nil {
			return err
		}
		fmt.Fprintf(w, "🗑️ 已删除附件过滤器 %s\n", opts.id)
		return nil
	}

	filters, err := svc.AssetFilters(ctx)
	if err != nil {
		return err
	}
	if len(filters) == 0 {
		fmt.Fprintln(w, "📭 还没有附件过滤器")
		return nil
	}
	for _, f := range filters {
		fmt.Fprintf(w, "🔎 %s  %s  [%s]\n", f.ID, f.Name, strings.Join(f.Keywords, ", "))
	}
	return nil
}

func runMarkRead(ctx context.Context, w io.Writer, svc *service.StarService, opts options) error {
	parts := splitList(opts.ids)
	if len(parts) == 0 {
		return common.NewError(common.ErrCodeInvalidInput, "请通过 -ids 指定 Release ID")
	}
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return common.WrapError(common.ErrCodeInvalidInput, "无效的 Release ID: "+p, err)
		}
		ids = append(ids, id)
	}

	if opts.unread {
		if err := svc.MarkUnread(ctx, ids...); err != nil {
			return err
		}
		fmt.Fprintf(w, "🔵 %d 个 Release 已标记为未读\n", len(ids))
		return nil
	}
	if err := svc.MarkRead(ctx, ids...); err != nil {
		return err
	}
	fmt.Fprintf(w, "✅ %d 个 Release 已标记为已读\n", len(ids))
	return nil
}

func runWhoAmI(ctx context.Context, w io.Writer, svc *service.StarService) error {
	user, err := svc.CurrentUser(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "👤 %s (%s)\n", user.Login, user.Name)
	if rl, err := svc.RateLimit(ctx); err == nil {
		fmt.Fprintf(w, "📊 API 配额: %d/%d，%s 重置\n", rl.Remaining, rl.Limit, rl.Reset.Format("15:04:05"))
	}
	return nil
}
