package handler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/carelink-dev/shift-board/engine/internal/orchestrator"
	"github.com/carelink-dev/shift-board/engine/internal/scheduler"
	"github.com/carelink-dev/shift-board/engine/internal/store"
)

func sessionKey(sub string, facilityID int64, weekStart string) string {
	return fmt.Sprintf("%s|%d|%s", sub, facilityID, weekStart)
}

// session 是一个操作者在某机构某周的排班工作区
type session struct {
	orchestrator *orchestrator.Orchestrator
	store        *store.Store
	gate         *orchestrator.ChannelGate

	// op 保证同一时间只有一个修改请求在等待结果
	op sync.Mutex

	mu       sync.Mutex
	loaded   bool
	pending  *pendingOp
	lastUsed time.Time
}

// pendingOp 是挂起在确认上的修改，done 在操作结束时收到结果
type pendingOp struct {
	prompt *orchestrator.Prompt
	done   chan opResult
}

type opResult struct {
	message string
	data    any
	err     error
}

func (h *Handler) newSession(facilityID int64, weekStart, email string) *session {
	st := store.New(h.repository, facilityID, weekStart)
	gate := orchestrator.NewChannelGate(time.Duration(h.config.Session.ConfirmTimeout) * time.Second)

	rules := scheduler.Rules{
		DailyHoursLimit:       h.config.Rules.DailyHoursLimit,
		DefaultMaxWeeklyHours: h.config.Rules.DefaultMaxWeeklyHours,
		ApproachingRatio:      h.config.Rules.ApproachingRatio,
	}
	opts := []orchestrator.Option{
		orchestrator.WithOperatorEmail(email),
		orchestrator.WithLogger(slog.Default().With("facility", facilityID, "week", weekStart)),
	}
	if h.locker != nil {
		opts = append(opts, orchestrator.WithLocker(h.locker))
	}
	if h.notifier != nil {
		opts = append(opts, orchestrator.WithNotifier(h.notifier))
	}

	return &session{
		orchestrator: orchestrator.New(st, h.repository, scheduler.NewValidator(rules), gate, opts...),
		store:        st,
		gate:         gate,
	}
}

func (s *session) ensureLoaded(ctx context.Context) error {
	s.mu.Lock()
	loaded := s.loaded
	s.lastUsed = time.Now()
	s.mu.Unlock()
	if loaded {
		return nil
	}

	if _, err := s.store.Refresh(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.loaded = true
	s.mu.Unlock()
	return nil
}

func (s *session) setPending(p *pendingOp) {
	s.mu.Lock()
	s.pending = p
	s.mu.Unlock()
}

func (s *session) currentPending() *pendingOp {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// takePending 取出与 id 匹配的挂起操作
func (s *session) takePending(id string) *pendingOp {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil || s.pending.prompt.ID != id {
		return nil
	}
	p := s.pending
	s.pending = nil
	return p
}

func (s *session) clearPending(done chan opResult) {
	s.mu.Lock()
	if s.pending != nil && s.pending.done == done {
		s.pending = nil
	}
	s.mu.Unlock()
}

func (s *session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		return 0
	}
	return now.Sub(s.lastUsed)
}

type sessions struct {
	mu    sync.Mutex
	items map[string]*session
	idle  time.Duration
}

func newSessions(idle time.Duration) *sessions {
	return &sessions{items: make(map[string]*session), idle: idle}
}

// get 顺便清理长时间未使用的会话
func (s *sessions) get(key string, create func() *session) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if s.idle > 0 {
		for k, sess := range s.items {
			if k != key && sess.idleSince(now) > s.idle {
				delete(s.items, k)
			}
		}
	}

	sess, ok := s.items[key]
	if !ok {
		sess = create()
		sess.lastUsed = now
		s.items[key] = sess
	}
	return sess
}

func (s *sessions) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
