package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github-star-curator/internal/common"
	"github-star-curator/internal/domain"

	"go.uber.org/zap"
)

// BackupVersion 是备份文件格式版本
const BackupVersion = "1.0"

var errNoBackupTarget = common.NewError(common.ErrCodeWebDAV, "未配置 WebDAV 备份目标")

// BackupFileName 按时间生成备份文件名，字典序即时间序
func BackupFileName(t time.Time) string {
	return fmt.Sprintf("github-stars-backup-%s.json", t.Format("2006-01-02T15-04-05"))
}

// BuildBackup 收集所有需要备份的数据；密钥原样保存
func (s *StarService) BuildBackup(ctx context.Context) (*domain.BackupPayload, error) {
	repos, err := s.store.ListRepositories(ctx)
	if err != nil {
		return nil, err
	}
	releases, err := s.store.ListReleases(ctx)
	if err != nil {
		return nil, err
	}
	subs, err := s.store.Subscriptions(ctx)
	if err != nil {
		return nil, err
	}
	read, err := s.store.ReadReleases(ctx)
	if err != nil {
		return nil, err
	}
	cats, err := s.store.CustomCategories(ctx)
	if err != nil {
		return nil, err
	}
	filters, err := s.store.AssetFilters(ctx)
	if err != nil {
		return nil, err
	}

	return &domain.BackupPayload{
		Version:       BackupVersion,
		Timestamp:     s.nowFunc(),
		Repositories:  repos,
		Releases:      releases,
		AIConfigs:     s.aiConfigs,
		WebDAVConfigs: s.davConfigs,
		Subscriptions: subs,
		ReadReleases:  read,
		Settings: domain.Settings{
			SearchFilters: domain.DefaultSearchFilters(),
			AssetFilters:  filters,
			Categories:    cats,
		},
	}, nil
}

// Backup 上传完整备份，返回文件名
func (s *StarService) Backup(ctx context.Context) (string, error) {
	if s.backup == nil {
		return "", errNoBackupTarget
	}
	payload, err := s.BuildBackup(ctx)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", common.WrapError(common.ErrCodeInternal, "序列化备份失败", err)
	}

	name := BackupFileName(payload.Timestamp)
	if err := s.backup.Upload(ctx, name, data); err != nil {
		return "", err
	}
	s.logger.Info("备份完成", zap.String("file", name), zap.Int("repositories", len(payload.Repositories)))
	return name, nil
}

// ListBackups 最新的在前
func (s *StarService) ListBackups(ctx context.Context) ([]string, error) {
	if s.backup == nil {
		return nil, errNoBackupTarget
	}
	return s.backup.List(ctx)
}

// Restore 下载备份并整体替换本地数据，返回备份内容供调用方恢复 AI/WebDAV 配置
func (s *StarService) Restore(ctx context.Context, filename string) (*domain.BackupPayload, error) {
	if s.backup == nil {
		return nil, errNoBackupTarget
	}
	data, err := s.backup.Download(ctx, filename)
	if err != nil {
		return nil, err
	}

	var payload domain.BackupPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, common.WrapError(common.ErrCodeInvalidInput, "备份文件格式错误", err)
	}
	if payload.Version == "" {
		return nil, common.NewError(common.ErrCodeInvalidInput, "备份文件缺少版本号")
	}

	if err := s.applyBackup(ctx, &payload); err != nil {
		return nil, err
	}
	s.logger.Info("已从备份恢复",
		zap.String("file", filename),
		zap.Int("repositories", len(payload.Repositories)),
		zap.Int("releases", len(payload.Releases)),
	)
	return &payload, nil
}

func (s *StarService) applyBackup(ctx context.Context, p *domain.BackupPayload) error {
	if err := s.store.Clear(ctx); err != nil {
		return err
	}
	if err := s.store.SaveRepositories(ctx, p.Repositories); err != nil {
		return err
	}
	if err := s.store.AddReleases(ctx, p.Releases); err != nil {
		return err
	}
	for _, id := range p.Subscriptions {
		if err := s.store.SetSubscribed(ctx, id, true); err != nil {
			return err
		}
	}
	if err := s.store.SetRead(ctx, true, p.ReadReleases...); err != nil {
		return err
	}
	if err := s.store.SaveCustomCategories(ctx, p.Settings.Categories); err != nil {
		return err
	}
	return s.store.SaveAssetFilters(ctx, p.Settings.AssetFilters)
}
