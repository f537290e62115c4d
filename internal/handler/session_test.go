package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/carelink-dev/shift-board/engine/internal/orchestrator"
)

func TestSessionsEvictIdle(t *testing.T) {
	ss := newSessions(time.Minute)
	create := func() *session { return &session{} }

	a := ss.get("a", create)
	assert.Same(t, a, ss.get("a", create))

	a.lastUsed = time.Now().Add(-2 * time.Minute)
	ss.get("b", create)
	assert.Equal(t, 1, ss.len())

	// 挂起确认的会话不会被清理
	b := ss.get("b", create)
	b.lastUsed = time.Now().Add(-2 * time.Minute)
	b.setPending(&pendingOp{prompt: &orchestrator.Prompt{}, done: make(chan opResult, 1)})
	ss.get("c", create)
	assert.Equal(t, 2, ss.len())
}

func TestTakePending(t *testing.T) {
	s := &session{}
	p := &pendingOp{
		prompt: &orchestrator.Prompt{Confirmation: orchestrator.Confirmation{ID: "c-1"}},
		done:   make(chan opResult, 1),
	}
	s.setPending(p)

	assert.Nil(t, s.takePending("c-2"))
	assert.Same(t, p, s.currentPending())
	assert.Same(t, p, s.takePending("c-1"))
	assert.Nil(t, s.takePending("c-1"))

	s.setPending(p)
	s.clearPending(make(chan opResult))
	assert.NotNil(t, s.currentPending())
	s.clearPending(p.done)
	assert.Nil(t, s.currentPending())
}
