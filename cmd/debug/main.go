package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github-star-curator/internal/adapter/github"
	"github-star-curator/internal/adapter/llm"
	"github-star-curator/internal/adapter/webdav"
	"github-star-curator/internal/config"

	"go.uber.org/zap"
)

// 调试模式：逐个检查外部依赖是否可用，并对一个仓库跑一次完整分析
func main() {
	configPath := flag.String("config", "config.yaml", "配置文件路径 (可选)")
	repoName := flag.String("repo", "", "要试分析的仓库 owner/name，为空时取第一个 Star 仓库")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ 配置加载失败: %v", err)
	}
	logger, err := config.NewLogger(config.LogConfig{Level: "debug", Development: true})
	if err != nil {
		log.Fatalf("❌ 日志初始化失败: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	fmt.Println("🔍 调试模式：检查 GitHub / AI / WebDAV")

	// 1. GitHub
	fetcher := github.NewFetcher(cfg.GitHub.Token)
	user, err := fetcher.GetUser(ctx)
	if err != nil {
		log.Printf("❌ GitHub 认证失败: %v", err)
		return
	}
	fmt.Printf("✅ GitHub 登录用户: %s\n", user.Login)

	if rl, err := fetcher.GetRateLimit(ctx); err == nil {
		fmt.Printf("✅ API 配额: %d/%d，%s 重置\n", rl.Remaining, rl.Limit, rl.Reset.Format("15:04:05"))
	} else {
		log.Printf("⚠️ 获取配额失败: %v", err)
	}

	fmt.Println("📥 正在抓取 Star 仓库...")
	starred, err := fetcher.ListStarred(ctx)
	if err != nil {
		log.Printf("❌ 获取 Star 仓库失败: %v", err)
		return
	}
	fmt.Printf("✅ 共 %d 个 Star 仓库\n", len(starred))
	if len(starred) == 0 {
		fmt.Println("❌ 没有可以试分析的仓库")
		return
	}
	fullName := *repoName
	if fullName == "" {
		fullName = starred[0].FullName
	}

	// 2. AI 分析
	completer, err := llm.NewCompleter(ctx, cfg.AI)
	if err != nil {
		log.Printf("⚠️ AI 未配置 (%v)，下面展示的是启发式结果", err)
	}
	annotator := llm.NewAnnotator(completer, logger)

	for i := range starred {
		repo := &starred[i]
		if repo.FullName != fullName {
			continue
		}
		readme, err := fetcher.GetReadme(ctx, repo.FullName)
		if err != nil {
			log.Printf("⚠️ README 获取失败: %v", err)
		}
		fmt.Printf("🧠 分析 %s (README %d 字节)\n", repo.FullName, len(readme))
		result := annotator.AnalyzeRepository(ctx, repo, readme)
		fmt.Printf("    来源: %s\n", result.Source)
		if result.Degraded() {
			fmt.Printf("    降级原因: %s\n", result.DegradedReason)
		}
		fmt.Printf("    总结: %s\n", result.Analysis.Summary)
		fmt.Printf("    标签: %v\n", result.Analysis.Tags)
		fmt.Printf("    平台: %v\n", result.Analysis.Platforms)
		break
	}

	// 3. WebDAV
	if cfg.WebDAV.URL == "" {
		fmt.Println("ℹ️ 未配置 WebDAV，跳过备份检查")
		return
	}
	client, err := webdav.NewClient(cfg.WebDAV, logger)
	if err != nil {
		log.Printf("❌ WebDAV 配置无效: %v", err)
		return
	}
	if err := client.TestConnection(ctx); err != nil {
		log.Printf("❌ WebDAV 连接失败: %v", err)
		return
	}
	files, err := client.List(ctx)
	if err != nil {
		log.Printf("⚠️ 列出备份失败: %v", err)
		return
	}
	fmt.Printf("✅ WebDAV 可用，已有 %d 个备份\n", len(files))
	logger.Debug("备份列表", zap.Strings("files", files))
}
