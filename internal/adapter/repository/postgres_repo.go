package repository

import (
	"context"
	"fmt"

	"github-star-curator/internal/common"
	"github-star-curator/internal/domain"
	"github-star-curator/internal/port"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const batchSize = 100

// subscription 是订阅了 Release 的仓库
type subscription struct {
	RepoID int64 `gorm:"primaryKey;autoIncrement:false"`
}

func (subscription) TableName() string { return "release_subscriptions" }

// readRelease 是已读 Release，和 releases 表分开保存
type readRelease struct {
	ReleaseID int64 `gorm:"primaryKey;autoIncrement:false"`
}

func (readRelease) TableName() string { return "read_releases" }

type searchHistoryEntry struct {
	Position int `gorm:"primaryKey;autoIncrement:false"`
	Query    string
}

func (searchHistoryEntry) TableName() string { return "search_history" }

// PostgresStore 实现了 port.Store 接口
type PostgresStore struct {
	db *gorm.DB
}

var _ port.Store = (*PostgresStore)(nil)

// NewPostgresStore 初始化数据库连接并自动迁移表结构
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, common.WrapError(common.ErrCodeDatabase, "连接数据库失败", err)
	}
	s := NewPostgresStoreWithDB(db)
	if err := s.Migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewPostgresStoreWithDB 复用已有连接，不做迁移
func NewPostgresStoreWithDB(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate 自动建表，字段变化时自动更新
func (s *PostgresStore) Migrate() error {
	err := s.db.AutoMigrate(
		&domain.Repository{},
		&domain.Release{},
		&domain.Category{},
		&domain.AssetFilter{},
		&subscription{},
		&readRelease{},
		&searchHistoryEntry{},
	)
	if err != nil {
		return common.WrapError(common.ErrCodeDatabase, "数据库迁移失败", err)
	}
	return nil
}

func dbError(action string, err error) error {
	if err == nil {
		return nil
	}
	return common.WrapError(common.ErrCodeDatabase, action, err)
}

// ListRepositories 按 Star 时间倒序
func (s *PostgresStore) ListRepositories(ctx context.Context) ([]domain.Repository, error) {
	var repos []domain.Repository
	err := s.db.WithContext(ctx).Order("starred_at DESC").Find(&repos).Error
	return repos, dbError("读取仓库失败", err)
}

// SaveRepositories 批量 upsert，整条记录覆盖
func (s *PostgresStore) SaveRepositories(ctx context.Context, repos []domain.Repository) error {
	if len(repos) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		CreateInBatches(repos, batchSize).Error
	return dbError("保存仓库失败", err)
}

// SaveRepository 保存单个仓库 (last-write-wins)
func (s *PostgresStore) SaveRepository(ctx context.Context, repo *domain.Repository) error {
	return dbError(fmt.Sprintf("保存仓库 %s 失败", repo.FullName), s.db.WithContext(ctx).Save(repo).Error)
}

func (s *PostgresStore) ListReleases(ctx context.Context) ([]domain.Release, error) {
	var releases []domain.Release
	err := s.db.WithContext(ctx).Order("published_at DESC").Find(&releases).Error
	return releases, dbError("读取 Release 失败", err)
}

// AddReleases id 已存在的 Release 直接忽略，Release 创建后不再修改
func (s *PostgresStore) AddReleases(ctx context.Context, releases []domain.Release) error {
	if len(releases) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(releases, batchSize).Error
	return dbError("保存 Release 失败", err)
}

func (s *PostgresStore) Subscriptions(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.db.WithContext(ctx).Model(&subscription{}).Order("repo_id").Pluck("repo_id", &ids).Error
	return ids, dbError("读取订阅失败", err)
}

func (s *PostgresStore) SetSubscribed(ctx context.Context, repoID int64, subscribed bool) error {
	db := s.db.WithContext(ctx)
	var err error
	if subscribed {
		err = db.Clauses(clause.OnConflict{DoNothing: true}).Create(&subscription{RepoID: repoID}).Error
	} else {
		err = db.Where("repo_id = ?", repoID).Delete(&subscription{}).Error
	}
	return dbError("更新订阅失败", err)
}

func (s *PostgresStore) ReadReleases(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.db.WithContext(ctx).Model(&readRelease{}).Order("release_id").Pluck("release_id", &ids).Error
	return ids, dbError("读取已读状态失败", err)
}

func (s *PostgresStore) SetRead(ctx context.Context, read bool, releaseIDs ...int64) error {
	if len(releaseIDs) == 0 {
		return nil
	}
	db := s.db.WithContext(ctx)
	var err error
	if read {
		rows := make([]readRelease, 0, len(releaseIDs))
		for _, id := range releaseIDs {
			rows = append(rows, readRelease{ReleaseID: id})
		}
		err = db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(rows, batchSize).Error
	} else {
		err = db.Where("release_id IN ?", releaseIDs).Delete(&readRelease{}).Error
	}
	return dbError("更新已读状态失败", err)
}

func (s *PostgresStore) CustomCategories(ctx context.Context) ([]domain.Category, error) {
	var cats []domain.Category
	err := s.db.WithContext(ctx).Order("id").Find(&cats).Error
	return cats, dbError("读取自定义分类失败", err)
}

// SaveCustomCategories 整体替换
func (s *PostgresStore) SaveCustomCategories(ctx context.Context, cats []domain.Category) error {
	return dbError("保存自定义分类失败", replaceAll(s.db.WithContext(ctx), &domain.Category{}, cats))
}

func (s *PostgresStore) AssetFilters(ctx context.Context) ([]domain.AssetFilter, error) {
	var filters []domain.AssetFilter
	err := s.db.WithContext(ctx).Order("id").Find(&filters).Error
	return filters, dbError("读取附件过滤器失败", err)
}

func (s *PostgresStore) SaveAssetFilters(ctx context.Context, filters []domain.AssetFilter) error {
	return dbError("保存附件过滤器失败", replaceAll(s.db.WithContext(ctx), &domain.AssetFilter{}, filters))
}

func (s *PostgresStore) SearchHistory(ctx context.Context) ([]string, error) {
	var history []string
	err := s.db.WithContext(ctx).Model(&searchHistoryEntry{}).Order("position").Pluck("query", &history).Error
	return history, dbError("读取搜索历史失败", err)
}

func (s *PostgresStore) SaveSearchHistory(ctx context.Context, history []string) error {
	rows := make([]searchHistoryEntry, 0, len(history))
	for i, q := range history {
		rows = append(rows, searchHistoryEntry{Position: i, Query: q})
	}
	return dbError("保存搜索历史失败", replaceAll(s.db.WithContext(ctx), &searchHistoryEntry{}, rows))
}

// Clear 退出登录时清空仓库、Release 和与之关联的状态
func (s *PostgresStore) Clear(ctx context.Context) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		for _, model := range []interface{}{&domain.Repository{}, &domain.Release{}, &subscription{}, &readRelease{}} {
			if err := all.Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return dbError("清空数据失败", err)
}

// replaceAll 在一个事务里删除整张表再写入 rows
func replaceAll[T any](db *gorm.DB, model interface{}, rows []T) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, batchSize).Error
	})
}
