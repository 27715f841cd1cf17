package release

import (
	"encoding/json"
	"sort"

	"github-star-curator/internal/domain"
)

// ReadSet 记录已读 Release 的 id，和 Release 本身分开保存，重新同步不会丢失
type ReadSet struct {
	ids map[int64]struct{}
}

// NewReadSet 从持久化的 id 列表恢复
func NewReadSet(ids ...int64) *ReadSet {
	s := &ReadSet{ids: make(map[int64]struct{}, len(ids))}
	s.MarkRead(ids...)
	return s
}

func (s *ReadSet) MarkRead(ids ...int64) {
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
}

func (s *ReadSet) MarkUnread(ids ...int64) {
	for _, id := range ids {
		delete(s.ids, id)
	}
}

// MarkAllRead 把给定集合全部标为已读
func (s *ReadSet) MarkAllRead(releases []domain.Release) {
	for _, r := range releases {
		s.ids[r.ID] = struct{}{}
	}
}

func (s *ReadSet) IsRead(id int64) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *ReadSet) Len() int {
	return len(s.ids)
}

// IDs 升序返回
func (s *ReadSet) IDs() []int64 {
	out := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MarshalJSON 序列化为数组
func (s *ReadSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.IDs())
}

func (s *ReadSet) UnmarshalJSON(data []byte) error {
	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	s.ids = make(map[int64]struct{}, len(ids))
	s.MarkRead(ids...)
	return nil
}
