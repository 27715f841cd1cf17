package search

import (
	"strings"
	"sync"
	"time"
)

// DefaultDebounce 输入停止后多久触发实时匹配
const DefaultDebounce = 300 * time.Millisecond

// State 是搜索框的输入状态
type State int

const (
	StateIdle State = iota
	StateRealtime
	StateComposing
	StateDeep
)

func (s State) String() string {
	switch s {
	case StateRealtime:
		return "realtime"
	case StateComposing:
		return "composing"
	case StateDeep:
		return "deep"
	default:
		return "idle"
	}
}

// Session 把按键、输入法组合事件和提交动作转换成搜索模式。
// 实时匹配经过防抖后通过 onRealtime 回调触发；深度搜索只能由 Submit 进入。
type Session struct {
	mu         sync.Mutex
	state      State
	query      string
	debounce   time.Duration
	timer      *time.Timer
	generation uint64
	onRealtime func(query string)
	history    *History
}

// NewSession onRealtime 在防抖结束后在独立的 goroutine 中调用
func NewSession(debounce time.Duration, history *History, onRealtime func(query string)) *Session {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if history == nil {
		history = NewHistory(nil)
	}
	if onRealtime == nil {
		onRealtime = func(string) {}
	}
	return &Session{debounce: debounce, history: history, onRealtime: onRealtime}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// Input 记录最新的输入内容。组合输入期间只保存文本，不触发匹配
func (s *Session) Input(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.query = query
	if s.state == StateComposing {
		return
	}
	s.scheduleLocked()
}

// CompositionStart 输入法开始组合，挂起实时匹配
func (s *Session) CompositionStart() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked()
	s.state = StateComposing
}

// CompositionEnd 组合结束，用最终文本重新进入实时匹配
func (s *Session) CompositionEnd(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.query = query
	s.state = StateIdle
	s.scheduleLocked()
}

// Submit 进入深度搜索并记录历史；查询为空时回到 Idle 并返回 false
func (s *Session) Submit() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked()
	q := strings.TrimSpace(s.query)
	if q == "" {
		s.state = StateIdle
		return "", false
	}
	s.state = StateDeep
	s.history.Add(q)
	return q, true
}

// Clear 清空查询，回到 Idle
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked()
	s.query = ""
	s.state = StateIdle
}

func (s *Session) History() *History {
	return s.history
}

func (s *Session) scheduleLocked() {
	s.cancelLocked()
	if strings.TrimSpace(s.query) == "" {
		s.state = StateIdle
		return
	}
	s.state = StateRealtime

	gen := s.generation
	query := s.query
	s.timer = time.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		stale := gen != s.generation || s.state != StateRealtime
		s.mu.Unlock()
		if !stale {
			s.onRealtime(query)
		}
	})
}

// cancelLocked 让已排队的回调失效
func (s *Session) cancelLocked() {
	s.generation++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
