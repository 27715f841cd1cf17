package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github-star-curator/internal/adapter/analyzer"
	"github-star-curator/internal/common"
	"github-star-curator/internal/domain"
	"github-star-curator/internal/release"
	"github-star-curator/internal/search"
	"github-star-curator/internal/service"
)

// options 是单次执行模式下的命令行参数
type options struct {
	mode        string
	query       string
	realtime    bool
	language    string
	minStars    int
	all         bool
	useFilters  bool
	file        string
	repoID      int64
	unsubscribe bool
	id          string
	name        string
	keywords    string
	description string
	tags        string
	category    string
	ids         string
	unread      bool

	// set 记录命令行中显式给出的参数，用来区分“未提供”和“设为空”
	set map[string]bool
	in  io.Reader
}

// runOnce 执行一次指定模式，结果写到 w
func runOnce(ctx context.Context, w io.Writer, svc *service.StarService, opts options) error {
	switch opts.mode {
	case "sync":
		return runSync(ctx, w, svc)
	case "releases":
		return runReleases(ctx, w, svc)
	case "analyze":
		return runAnalyze(ctx, w, svc, !opts.all)
	case "search":
		return runSearch(ctx, w, svc, opts)
	case "shell":
		return runShell(ctx, opts.in, w, svc)
	case "categories":
		return runCategories(ctx, w, svc)
	case "facets":
		return runFacets(ctx, w, svc)
	case "category-add", "category-update", "category-delete":
		return runCategoryEdit(ctx, w, svc, opts)
	case "edit":
		return runEdit(ctx, w, svc, opts)
	case "filters", "filter-add", "filter-delete":
		return runAssetFilters(ctx, w, svc, opts)
	case "read":
		return runMarkRead(ctx, w, svc, opts)
	case "whoami":
		return runWhoAmI(ctx, w, svc)
	case "logout":
		if err := svc.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(w, "👋 本地仓库与 Release 数据已清空")
		return nil
	case "timeline":
		return runTimeline(ctx, w, svc, opts.useFilters)
	case "read-all":
		if err := svc.MarkAllRead(ctx); err != nil {
			return err
		}
		fmt.Fprintln(w, "✅ 所有 Release 已标记为已读")
		return nil
	case "subscribe":
		return runSubscribe(ctx, w, svc, opts)
	case "backup":
		name, err := svc.Backup(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "☁️ 备份已上传: %s\n", name)
		return nil
	case "list-backups":
		return runListBackups(ctx, w, svc)
	case "restore":
		return runRestore(ctx, w, svc, opts.file)
	default:
		return common.NewError(common.ErrCodeInvalidInput, fmt.Sprintf("未知模式: %s", opts.mode))
	}
}

func runSync(ctx context.Context, w io.Writer, svc *service.StarService) error {
	fmt.Fprintln(w, "📥 正在同步 Star 仓库...")
	summary, err := svc.SyncStarred(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "✅ 共 %d 个仓库，新增 %d，更新 %d\n", summary.Fetched, summary.Added, summary.Updated)
	return nil
}

func runReleases(ctx context.Context, w io.Writer, svc *service.StarService) error {
	fmt.Fprintln(w, "📦 正在检查订阅仓库的新 Release...")
	fresh, summary, err := svc.SyncReleases(ctx)
	for _, f := range summary.Failures {
		fmt.Fprintf(w, "⚠️ %s 拉取失败: %v\n", f.FullName, f.Err)
	}
	if err != nil {
		return err
	}
	release.SortByPublished(fresh)
	for _, rel := range fresh {
		fmt.Fprintf(w, "🆕 %s %s (%s)\n", rel.Repository.FullName, rel.DisplayName(), rel.PublishedAt.Format("2006-01-02"))
	}
	fmt.Fprintf(w, "✅ 检查了 %d 个仓库，发现 %d 个新 Release\n", summary.Requested, summary.NewReleases)
	return nil
}

func runAnalyze(ctx context.Context, w io.Writer, svc *service.StarService, onlyPending bool) error {
	ctrl := analyzer.NewControl()
	out := &syncWriter{w: w}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	toggle := make(chan os.Signal, 1)
	if sigs := pauseSignals(); len(sigs) > 0 {
		signal.Notify(toggle, sigs...)
		defer signal.Stop(toggle)
		fmt.Fprintf(out, "💡 kill -USR1 %d 可以暂停/继续，Ctrl+C 停止\n", os.Getpid())
	}

	done := make(chan struct{})
	defer close(done)
	go watchAnalysis(out, ctrl, interrupt, toggle, done)

	fmt.Fprintln(out, "🧠 开始批量分析...")
	progress, err := svc.AnalyzeRepositories(ctx, onlyPending, ctrl, func(p analyzer.Progress) {
		fmt.Fprintf(out, "  [%d/%d] %s\n", p.Completed, p.Total, p.Current)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "✅ 成功 %d，失败 %d，其中 %d 个使用了启发式兜底\n", progress.Succeeded, progress.Failed, progress.Degraded)
	if progress.Stopped {
		fmt.Fprintln(out, "⏹️ 分析已被手动停止")
	}
	return nil
}

// watchAnalysis 中断信号停止批量分析，已完成的结果会保留；toggle 在暂停和继续之间切换
func watchAnalysis(w io.Writer, ctrl *analyzer.Control, interrupt, toggle <-chan os.Signal, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			fmt.Fprintln(w, "\n⏹️ 正在停止，当前仓库完成后退出...")
			ctrl.Stop()
			return
		case <-toggle:
			if ctrl.Paused() {
				ctrl.Resume()
				fmt.Fprintln(w, "▶️ 继续分析")
			} else {
				ctrl.Pause()
				fmt.Fprintln(w, "⏸️ 已暂停，当前仓库完成后等待继续")
			}
		}
	}
}

func runSearch(ctx context.Context, w io.Writer, svc *service.StarService, opts options) error {
	if strings.TrimSpace(opts.query) == "" {
		fmt.Fprintln(w, "⚠️ 请输入你的需求，用大白话就行。")
		fmt.Fprintln(w, "例如: -q '我想找一个 Python 的机器学习库' 或 -q 'markdown editor'")
		return nil
	}

	filters := domain.DefaultSearchFilters()
	filters.Query = opts.query
	filters.SortBy = domain.SortByStars
	if opts.language != "" {
		filters.Languages = []string{opts.language}
	}
	if opts.minStars > 0 {
		filters.MinStars = &opts.minStars
	}

	mode := search.ModeDeep
	if opts.realtime {
		mode = search.ModeRealtime
	}

	result, err := svc.Search(ctx, filters, mode)
	if err != nil {
		return err
	}
	if result.Degraded() {
		fmt.Fprintf(w, "⚠️ AI 搜索不可用，已改用关键字匹配: %s\n", result.DegradedReason)
	}
	if len(result.Repositories) == 0 {
		fmt.Fprintln(w, "📭 没有找到匹配的仓库")
		return nil
	}

	printRepositories(ctx, w, svc, result.Repositories)
	return nil
}

func printRepositories(ctx context.Context, w io.Writer, svc *service.StarService, repos []domain.Repository) {
	// 分类只用于展示，推断失败不影响结果
	inferred, _ := svc.InferCategories(ctx, repos)

	fmt.Fprintln(w, "\n================ [ 搜索结果 ] ================")
	for i := range repos {
		repo := &repos[i]
		fmt.Fprintf(w, "⭐ %-6d %s  📁 %s\n", repo.StargazersCount, repo.FullName, repo.DisplayCategory(inferred[repo.ID]))
		fmt.Fprintf(w, "        %s\n", repo.DisplayDescription())
		if tags := repo.DisplayTags(); len(tags) > 0 {
			fmt.Fprintf(w, "        🏷️ %s\n", strings.Join(tags, ", "))
		}
	}
	fmt.Fprintln(w, "==============================================")
}

func runCategories(ctx context.Context, w io.Writer, svc *service.StarService) error {
	cats, err := svc.Categories(ctx)
	if err != nil {
		return err
	}
	for _, c := range cats {
		marker := "📁"
		if c.IsCustom {
			marker = "✏️"
		}
		fmt.Fprintf(w, "%s %-16s %d\n", marker, c.Name, c.Count)
	}
	return nil
}

func runTimeline(ctx context.Context, w io.Writer, svc *service.StarService, useFilters bool) error {
	tl, err := svc.Timeline(ctx, useFilters)
	if err != nil {
		return err
	}
	if len(tl.Entries) == 0 {
		fmt.Fprintln(w, "📭 还没有任何 Release，先订阅仓库再运行 -mode=releases")
		return nil
	}
	fmt.Fprintf(w, "📬 共 %d 个 Release，未读 %d\n", len(tl.Entries), tl.Unread)
	for _, g := range tl.Groups {
		fmt.Fprintf(w, "\n📦 %s (未读 %d)\n", g.Repository.FullName, g.Unread)
		for _, e := range g.Entries {
			dot := "  "
			if !e.Read {
				dot = "🔵"
			}
			fmt.Fprintf(w, "%s %s  %s\n", dot, e.Release.DisplayName(), e.Release.PublishedAt.Format("2006-01-02"))
			for _, l := range e.Links {
				size := ""
				if l.Size > 0 {
					size = " (" + common.FormatFileSize(l.Size) + ")"
				}
				fmt.Fprintf(w, "     ⬇️ %s%s %s\n", l.Name, size, l.URL)
			}
		}
	}
	return nil
}

func runSubscribe(ctx context.Context, w io.Writer, svc *service.StarService, opts options) error {
	if opts.repoID == 0 {
		return common.NewError(common.ErrCodeInvalidInput, "请通过 -repo 指定仓库 ID")
	}
	if err := svc.SetSubscribed(ctx, opts.repoID, !opts.unsubscribe); err != nil {
		return err
	}
	if opts.unsubscribe {
		fmt.Fprintf(w, "🔕 已取消订阅仓库 %d\n", opts.repoID)
	} else {
		fmt.Fprintf(w, "🔔 已订阅仓库 %d 的 Release\n", opts.repoID)
	}
	return nil
}

func runListBackups(ctx context.Context, w io.Writer, svc *service.StarService) error {
	files, err := svc.ListBackups(ctx)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(w, "📭 还没有任何备份")
		return nil
	}
	for _, f := range files {
		fmt.Fprintf(w, "🗂️ %s\n", f)
	}
	return nil
}

func runRestore(ctx context.Context, w io.Writer, svc *service.StarService, file string) error {
	if file == "" {
		files, err := svc.ListBackups(ctx)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return common.WrapError(common.ErrCodeNotFound, "没有可恢复的备份", nil)
		}
		file = files[0]
	}
	payload, err := svc.Restore(ctx, file)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "♻️ 已从 %s 恢复 %d 个仓库、%d 个 Release\n", file, len(payload.Repositories), len(payload.Releases))
	if len(payload.AIConfigs) > 0 || len(payload.WebDAVConfigs) > 0 {
		fmt.Fprintln(w, "ℹ️ 备份中的 AI / WebDAV 配置不会自动写入配置文件，请按需手动更新")
	}
	return nil
}
