package release

import (
	"github-star-curator/internal/classify"
	"github-star-curator/internal/domain"
)

// Entry 是时间线上的一条 Release
type Entry struct {
	Release domain.Release
	Read    bool
	Links   []domain.DownloadLink
}

// Group 是同一仓库下的 Release
type Group struct {
	Repository domain.ReleaseRepo
	Entries    []Entry
	Unread     int
}

// Timeline 是渲染用的 Release 视图
type Timeline struct {
	Entries []Entry
	Groups  []Group
	Unread  int
}

// BuildTimeline 按附件过滤器筛选后按发布时间倒序排列，并按仓库分组。
// 分组顺序跟随各仓库最新一条 Release 的顺序。
func BuildTimeline(releases []domain.Release, read *ReadSet, filters []domain.AssetFilter) Timeline {
	if read == nil {
		read = NewReadSet()
	}
	selected := classify.FilterReleases(releases, filters)
	sorted := make([]domain.Release, len(selected))
	copy(sorted, selected)
	SortByPublished(sorted)

	var tl Timeline
	groupIndex := make(map[int64]int)
	for _, rel := range sorted {
		entry := Entry{
			Release: rel,
			Read:    read.IsRead(rel.ID),
			Links:   ExtractDownloadLinks(&rel),
		}
		tl.Entries = append(tl.Entries, entry)

		idx, ok := groupIndex[rel.Repository.ID]
		if !ok {
			idx = len(tl.Groups)
			groupIndex[rel.Repository.ID] = idx
			tl.Groups = append(tl.Groups, Group{Repository: rel.Repository})
		}
		tl.Groups[idx].Entries = append(tl.Groups[idx].Entries, entry)
		if !entry.Read {
			tl.Groups[idx].Unread++
			tl.Unread++
		}
	}
	return tl
}
