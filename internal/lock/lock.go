package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrHeld 表示同一机构同一周的修改正在其他地方进行
var ErrHeld = errors.New("lock is held by another change")

// Key 按机构和周生成锁的键
func Key(facilityID int64, weekStart string) string {
	return fmt.Sprintf("shift-board:lock:%d:%s", facilityID, weekStart)
}

// Local 是进程内的锁，CLI 和测试使用
type Local struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocal() *Local {
	return &Local{held: make(map[string]struct{})}
}

func (l *Local) Acquire(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[key]; ok {
		return nil, ErrHeld
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, nil
}
