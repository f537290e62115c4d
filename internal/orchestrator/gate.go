package orchestrator

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/carelink-dev/shift-board/engine/internal/domain"
)

type Decision int

const (
	Cancel Decision = iota
	Confirm
)

// Confirmation 只有确认和取消两种结果，不支持忽略单个冲突
type Confirmation struct {
	ID        string                  `json:"id"`
	Title     string                  `json:"title"`
	Message   string                  `json:"message"` // 每行一个冲突
	Conflicts []domain.ConflictRecord `json:"conflicts"`
}

// Gate 是编排器挂起等待用户决定的地方
type Gate interface {
	Await(ctx context.Context, c Confirmation) (Decision, error)
}

type GateFunc func(ctx context.Context, c Confirmation) (Decision, error)

func (f GateFunc) Await(ctx context.Context, c Confirmation) (Decision, error) {
	return f(ctx, c)
}

// AlwaysConfirm / AlwaysCancel 用于非交互场景
var (
	AlwaysConfirm = GateFunc(func(context.Context, Confirmation) (Decision, error) { return Confirm, nil })
	AlwaysCancel  = GateFunc(func(context.Context, Confirmation) (Decision, error) { return Cancel, nil })
)

var ErrPromptResolved = errors.New("confirmation already resolved")

// Prompt 是一次挂起中的确认
type Prompt struct {
	Confirmation
	reply    chan Decision
	resolved atomic.Bool
}

// Resolve 只有第一次调用生效，之后的调用都返回 ErrPromptResolved
func (p *Prompt) Resolve(d Decision) error {
	if !p.resolved.CompareAndSwap(false, true) {
		return ErrPromptResolved
	}
	p.reply <- d
	return nil
}

// ChannelGate 通过 channel 把确认交给另一端（例如 HTTP 会话），再阻塞等待决定
// timeout 只限制等待决定的时间，不影响之后的提交
type ChannelGate struct {
	prompts chan *Prompt
	timeout time.Duration
}

// NewChannelGate timeout 为 0 时一直等到 ctx 结束
func NewChannelGate(timeout time.Duration) *ChannelGate {
	return &ChannelGate{prompts: make(chan *Prompt), timeout: timeout}
}

func (g *ChannelGate) Prompts() <-chan *Prompt {
	return g.prompts
}

// Await 上下文取消或等待超时都视为取消
func (g *ChannelGate) Await(ctx context.Context, c Confirmation) (Decision, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	p := &Prompt{Confirmation: c, reply: make(chan Decision, 1)}

	select {
	case g.prompts <- p:
	case <-ctx.Done():
		return Cancel, ctx.Err()
	}

	select {
	case d := <-p.reply:
		return d, nil
	case <-ctx.Done():
		return Cancel, ctx.Err()
	}
}
