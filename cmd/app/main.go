package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github-star-curator/internal/adapter/analyzer"
	"github-star-curator/internal/adapter/feishu"
	"github-star-curator/internal/adapter/github"
	"github-star-curator/internal/adapter/llm"
	"github-star-curator/internal/adapter/repository"
	"github-star-curator/internal/adapter/webdav"
	"github-star-curator/internal/common"
	"github-star-curator/internal/config"
	"github-star-curator/internal/domain"
	"github-star-curator/internal/port"
	"github-star-curator/internal/release"
	"github-star-curator/internal/service"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

func main() {
	// 1. 定义命令行参数
	configPath := flag.String("config", "config.yaml", "配置文件路径 (可选)")
	opts := options{}
	flag.StringVar(&opts.mode, "mode", "sync", "运行模式: sync | releases | analyze | search | shell | categories | facets | timeline | read | read-all | subscribe | edit | category-add | category-update | category-delete | filters | filter-add | filter-delete | whoami | logout | backup | list-backups | restore")
	flag.StringVar(&opts.query, "q", "", "搜索关键词 (仅在 search 模式下有效)")
	flag.BoolVar(&opts.realtime, "realtime", false, "只按仓库名实时匹配，不调用 AI")
	flag.StringVar(&opts.language, "lang", "", "按语言过滤搜索结果")
	flag.IntVar(&opts.minStars, "min-stars", 0, "最少 Star 数")
	flag.BoolVar(&opts.all, "all", false, "analyze 模式下重新分析全部仓库")
	flag.BoolVar(&opts.useFilters, "filters", false, "timeline 模式下应用附件过滤器")
	flag.StringVar(&opts.file, "file", "", "restore 模式下要恢复的备份文件名，为空时使用最新的备份")
	flag.Int64Var(&opts.repoID, "repo", 0, "subscribe / edit 模式下的仓库 ID")
	flag.BoolVar(&opts.unsubscribe, "off", false, "subscribe 模式下取消订阅")
	flag.StringVar(&opts.id, "id", "", "分类或附件过滤器 ID")
	flag.StringVar(&opts.name, "name", "", "分类或附件过滤器名称")
	flag.StringVar(&opts.keywords, "keywords", "", "逗号分隔的关键字")
	flag.StringVar(&opts.description, "desc", "", "edit 模式下的自定义描述")
	flag.StringVar(&opts.tags, "tags", "", "edit 模式下逗号分隔的自定义标签")
	flag.StringVar(&opts.category, "category", "", "edit 模式下的自定义分类名")
	flag.StringVar(&opts.ids, "ids", "", "read 模式下逗号分隔的 Release ID")
	flag.BoolVar(&opts.unread, "unread", false, "read 模式下标记为未读")
	cronSpec := flag.String("cron", "", "定时执行的 cron 表达式，例如 \"0 */2 * * *\"，为空表示只执行一次")
	flag.Parse()
	opts.set = map[string]bool{}
	flag.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })
	opts.in = os.Stdin

	// 2. 读取配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ 配置加载失败: %v", err)
	}
	if *cronSpec != "" {
		cfg.Schedule.Cron = *cronSpec
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("❌ 日志初始化失败: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// 3. 组装依赖
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, cleanup, err := buildService(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("服务初始化失败", zap.Error(err))
	}
	defer cleanup()

	// 4. 根据模式分流
	if cfg.Schedule.Cron != "" {
		if err := runScheduled(ctx, svc, cfg.Schedule.Cron, logger); err != nil {
			logger.Fatal("定时任务启动失败", zap.Error(err))
		}
		return
	}

	if err := runOnce(ctx, os.Stdout, svc, opts); err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			fmt.Println("🔑 GitHub Token 已失效，本地数据已清空，请更新 GITHUB_TOKEN 后重新同步")
		}
		logger.Error("执行失败", zap.String("mode", opts.mode), zap.Error(err))
		os.Exit(1)
	}
}

// buildService 按配置组装 StarService；返回的 cleanup 负责关闭外部连接
func buildService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*service.StarService, func(), error) {
	store, err := newStore(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	fetcher := github.NewFetcher(cfg.GitHub.Token)
	annotator, closeAI := newAnnotator(ctx, cfg, logger)

	releaseOpts := release.Options{
		PageSize: cfg.Release.PageSize,
		MaxPages: cfg.Release.MaxPages,
		Delay:    cfg.Release.Delay,
		Policy:   release.WatermarkPolicy(cfg.Release.Watermark),
	}
	bulk := analyzer.NewBulkAnalyzer(fetcher, annotator, logger)
	if cfg.Analysis.PollInterval > 0 {
		bulk.SetPollInterval(cfg.Analysis.PollInterval)
	}

	svc := service.NewStarService(service.Deps{
		GitHub:        fetcher,
		Store:         store,
		Annotator:     annotator,
		Aggregator:    release.NewAggregator(fetcher, releaseOpts, logger),
		Analyzer:      bulk,
		Notifier:      newNotifier(cfg, logger),
		Backup:        newBackupTarget(cfg, logger),
		NotifyLimit:   cfg.Feishu.NotifyLimit,
		AIConfigs:     activeAIConfigs(cfg),
		WebDAVConfigs: activeWebDAVConfigs(cfg),
		Logger:        logger,
	})
	return svc, closeAI, nil
}

// newStore 默认使用 Postgres；没有 DSN 或显式要求时退回内存存储
func newStore(cfg *config.Config, logger *zap.Logger) (port.Store, error) {
	if cfg.Database.UseInMemory || cfg.Database.DSN == "" {
		logger.Info("使用内存存储，进程退出后数据不会保留")
		return repository.NewMemoryStore(), nil
	}
	store, err := repository.NewPostgresStore(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		return nil, err
	}
	return store, nil
}

// newAnnotator 未配置 AI 时返回只走启发式兜底的鉴定师
func newAnnotator(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*llm.Annotator, func()) {
	completer, err := llm.NewCompleter(ctx, cfg.AI)
	if err != nil {
		logger.Warn("AI 服务不可用，分析与搜索将使用启发式规则", zap.Error(err))
		return llm.NewAnnotator(nil, logger), func() {}
	}
	cleanup := func() {}
	if closer, ok := completer.(interface{ Close() error }); ok {
		cleanup = func() { _ = closer.Close() }
	}
	return llm.NewAnnotator(completer, logger), cleanup
}

func newNotifier(cfg *config.Config, logger *zap.Logger) port.Notifier {
	if cfg.Feishu.Webhook == "" {
		return nil
	}
	return feishu.NewNotifier(cfg.Feishu.Webhook, logger)
}

func newBackupTarget(cfg *config.Config, logger *zap.Logger) port.BackupTarget {
	if cfg.WebDAV.URL == "" {
		return nil
	}
	client, err := webdav.NewClient(cfg.WebDAV, logger)
	if err != nil {
		logger.Warn("WebDAV 配置无效，备份功能不可用", zap.Error(err))
		return nil
	}
	return client
}

func activeAIConfigs(cfg *config.Config) []domain.AIConfig {
	if !cfg.AI.Configured() {
		return nil
	}
	ai := cfg.AI
	ai.IsActive = true
	if ai.ID == "" {
		ai.ID = "default"
	}
	return []domain.AIConfig{ai}
}

func activeWebDAVConfigs(cfg *config.Config) []domain.WebDAVConfig {
	if cfg.WebDAV.URL == "" {
		return nil
	}
	dav := cfg.WebDAV
	dav.IsActive = true
	if dav.ID == "" {
		dav.ID = "default"
	}
	return []domain.WebDAVConfig{dav}
}

// runScheduled 按 cron 表达式周期执行同步，直到收到停止信号
func runScheduled(ctx context.Context, svc *service.StarService, spec string, logger *zap.Logger) error {
	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger))
	c := cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	if _, err := c.AddFunc(spec, func() { executeCycle(ctx, svc, logger) }); err != nil {
		return fmt.Errorf("无效的 cron 表达式 %q: %w", spec, err)
	}

	fmt.Printf("⏰ 定时执行模式已启动: %s\n", spec)
	fmt.Println("按下 Ctrl+C 可以优雅停止程序")

	// 立即执行一次
	executeCycle(ctx, svc, logger)

	c.Start()
	<-ctx.Done()
	fmt.Println("\n👋 收到停止信号，等待当前任务结束...")
	<-c.Stop().Done()
	return nil
}

// executeCycle 一轮完整的同步：Star 仓库 -> Release -> 新仓库的 AI 分析
func executeCycle(ctx context.Context, svc *service.StarService, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	defer cancel()

	if _, err := svc.SyncStarred(ctx); err != nil {
		if errors.Is(err, common.ErrSyncInProgress) {
			logger.Info("上一轮同步尚未结束，跳过本轮")
			return
		}
		logger.Error("同步 Star 仓库失败", zap.Error(err))
		return
	}
	if _, _, err := svc.SyncReleases(ctx); err != nil {
		logger.Error("同步 Release 失败", zap.Error(err))
		if errors.Is(err, common.ErrUnauthorized) {
			return
		}
	}
	if _, err := svc.AnalyzeRepositories(ctx, true, analyzer.NewControl(), nil); err != nil {
		logger.Error("批量分析失败", zap.Error(err))
	}
}
