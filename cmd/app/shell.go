package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github-star-curator/internal/domain"
	"github-star-curator/internal/search"
	"github-star-curator/internal/service"
)

// syncWriter 实时匹配的回调在另一个 goroutine 中输出
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// runShell 交互式搜索：输入关键词后停顿会显示仓库名实时匹配，空行提交深度搜索
func runShell(ctx context.Context, in io.Reader, w io.Writer, svc *service.StarService) error {
	if in == nil {
		return nil
	}
	out := &syncWriter{w: w}

	items, err := svc.SearchHistory(ctx)
	if err != nil {
		return err
	}
	session := search.NewSession(search.DefaultDebounce, search.NewHistory(items), func(q string) {
		filters := domain.DefaultSearchFilters()
		filters.Query = q
		result, err := svc.Search(ctx, filters, search.ModeRealtime)
		if err != nil {
			return
		}
		fmt.Fprintf(out, "⚡ %q 实时匹配 %d 个仓库\n", q, len(result.Repositories))
		for i := range result.Repositories {
			if i >= 5 {
				break
			}
			fmt.Fprintf(out, "   %s\n", result.Repositories[i].FullName)
		}
	})
	defer session.Clear()

	fmt.Fprintln(out, "🔎 输入关键词查看实时匹配，直接回车执行深度搜索；:history 查看历史，:forget <关键词> 删除一条历史，:clear 清空输入，:q 退出")
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == ":q":
			return nil
		case line == ":clear":
			session.Clear()
		case line == ":history":
			for i, q := range session.History().Items() {
				fmt.Fprintf(out, "%2d. %s\n", i+1, q)
			}
		case strings.HasPrefix(line, ":forget "):
			q := strings.TrimSpace(strings.TrimPrefix(line, ":forget "))
			if err := svc.ForgetSearch(ctx, q); err != nil {
				return err
			}
			session.History().Remove(q)
			fmt.Fprintf(out, "🗑️ 已从历史中删除 %q\n", q)
		case line == "":
			q, ok := session.Submit()
			if !ok {
				continue
			}
			filters := domain.DefaultSearchFilters()
			filters.Query = q
			filters.SortBy = domain.SortByStars
			result, err := svc.Search(ctx, filters, search.ModeDeep)
			if err != nil {
				return err
			}
			if result.Degraded() {
				fmt.Fprintf(out, "⚠️ AI 搜索不可用，已改用关键字匹配: %s\n", result.DegradedReason)
			}
			printRepositories(ctx, out, svc, result.Repositories)
		default:
			session.Input(line)
		}
	}
	return scanner.Err()
}
