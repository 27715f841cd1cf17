package service

import (
	"context"
	"testing"
	"time"

	"github-star-curator/internal/common"
	"github-star-curator/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newRelease(id int64, hoursAgo int, assets ...string) domain.Release {
	rel := domain.Release{
		ID:          id,
		TagName:     "v" + string(rune('0'+id%10)),
		PublishedAt: fixedNow.Add(-time.Duration(hoursAgo) * time.Hour),
	}
	for _, name := range assets {
		rel.Assets = append(rel.Assets, domain.ReleaseAsset{Name: name, BrowserDownloadURL: "https://dl/" + name})
	}
	return rel
}

func seedSubscribed(t *testing.T, f *fixture) {
	ctx := context.Background()
	require.NoError(t, f.store.SaveRepositories(ctx, []domain.Repository{
		{ID: 1, Name: "a", FullName: "o/a"},
		{ID: 2, Name: "b", FullName: "o/b"},
	}))
	require.NoError(t, f.svc.SetSubscribed(ctx, 1, true))
}

func TestStarService_SyncReleases(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	seedSubscribed(t, f)

	f.github.On("ListReleases", mock.Anything, "o/a", 1, 30).Return([]domain.Release{
		newRelease(11, 1), newRelease(12, 2), newRelease(13, 3),
	}, nil).Once()

	var notified []int64
	f.notifier.On("NotifyRelease", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		notified = append(notified, args.Get(1).(*domain.Release).ID)
	}).Return(nil)

	fresh, summary, err := f.svc.SyncReleases(ctx)
	require.NoError(t, err)
	assert.Len(t, fresh, 3)
	assert.Equal(t, 1, summary.Requested)
	assert.Equal(t, 3, summary.NewReleases)
	for _, rel := range fresh {
		assert.Equal(t, "o/a", rel.Repository.FullName)
	}

	// 推送数量受 NotifyLimit 限制，最新的优先
	assert.Equal(t, []int64{11, 12}, notified)
	f.github.AssertNotCalled(t, "ListReleases", mock.Anything, "o/b", mock.Anything, mock.Anything)

	stored, _ := f.store.ListReleases(ctx)
	assert.Len(t, stored, 3)
}

func TestStarService_SyncReleasesIncremental(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	seedSubscribed(t, f)
	existing := newRelease(11, 5)
	existing.Repository = domain.ReleaseRepo{ID: 1, Name: "a", FullName: "o/a"}
	require.NoError(t, f.store.AddReleases(ctx, []domain.Release{existing}))

	f.github.On("ListReleases", mock.Anything, "o/a", 1, 30).Return([]domain.Release{
		newRelease(12, 1), newRelease(11, 5), newRelease(10, 9),
	}, nil).Once()
	f.notifier.On("NotifyRelease", mock.Anything, mock.Anything).Return(common.NewError(common.ErrCodeNotification, "推送失败"))

	// 推送失败不影响同步结果
	fresh, _, err := f.svc.SyncReleases(ctx)
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, int64(12), fresh[0].ID)
	f.notifier.AssertNumberOfCalls(t, "NotifyRelease", 1)
}

func TestStarService_SyncReleasesUnauthorized(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	seedSubscribed(t, f)

	f.github.On("ListReleases", mock.Anything, "o/a", 1, 30).Return(nil, common.WrapError(common.ErrCodeUnauthorized, "401", nil))

	_, _, err := f.svc.SyncReleases(ctx)
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	repos, _ := f.store.ListRepositories(ctx)
	assert.Empty(t, repos)
	f.notifier.AssertNotCalled(t, "NotifyRelease", mock.Anything, mock.Anything)
}

func TestStarService_TimelineAndReadState(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	releases := []domain.Release{
		newRelease(1, 3, "app-windows.exe"),
		newRelease(2, 1, "app-linux.tar.gz"),
		newRelease(3, 2, "app-windows.zip", "app-darwin.dmg"),
	}
	releases[0].Repository = domain.ReleaseRepo{ID: 10, FullName: "o/x"}
	releases[1].Repository = domain.ReleaseRepo{ID: 20, FullName: "o/y"}
	releases[2].Repository = domain.ReleaseRepo{ID: 10, FullName: "o/x"}
	require.NoError(t, f.store.AddReleases(ctx, releases))

	tl, err := f.svc.Timeline(ctx, false)
	require.NoError(t, err)
	require.Len(t, tl.Entries, 3)
	assert.Equal(t, int64(2), tl.Entries[0].Release.ID)
	assert.Equal(t, 3, tl.Unread)
	require.Len(t, tl.Groups, 2)
	assert.Equal(t, int64(20), tl.Groups[0].Repository.ID)

	require.NoError(t, f.svc.MarkRead(ctx, 2, 3))
	tl, _ = f.svc.Timeline(ctx, false)
	assert.Equal(t, 1, tl.Unread)

	require.NoError(t, f.svc.MarkUnread(ctx, 3))
	tl, _ = f.svc.Timeline(ctx, false)
	assert.Equal(t, 2, tl.Unread)

	_, err = f.svc.AddAssetFilter(ctx, "Windows", []string{"windows"})
	require.NoError(t, err)
	tl, err = f.svc.Timeline(ctx, true)
	require.NoError(t, err)
	require.Len(t, tl.Entries, 2)
	assert.Equal(t, int64(3), tl.Entries[0].Release.ID)
	assert.Equal(t, int64(1), tl.Entries[1].Release.ID)

	require.NoError(t, f.svc.MarkAllRead(ctx))
	tl, _ = f.svc.Timeline(ctx, false)
	assert.Equal(t, 0, tl.Unread)
}
