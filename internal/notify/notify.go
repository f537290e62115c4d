package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/carelink-dev/shift-board/engine/internal/config"
	"github.com/carelink-dev/shift-board/engine/internal/domain"
)

// Channel 是发布消息所需的 amqp.Channel 子集
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher 把邮件任务投递到 RabbitMQ，由 mail worker 负责真正发送
type Publisher struct {
	ch      Channel
	queue   string
	timeout time.Duration
	logger  *slog.Logger
}

func NewPublisher(cfg *config.Config, ch Channel, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		ch:      ch,
		queue:   cfg.RabbitMQ.Queue,
		timeout: time.Duration(cfg.RabbitMQ.PublishTimeout) * time.Second,
		logger:  logger,
	}
}

func (p *Publisher) AssignmentCreated(ctx context.Context, staff domain.StaffMember, shift domain.Shift) error {
	return p.publish(ctx, domain.MailShiftAssigned, staff.Email, shiftMailData(staff, shift))
}

func (p *Publisher) AssignmentRemoved(ctx context.Context, staff domain.StaffMember, shift domain.Shift) error {
	return p.publish(ctx, domain.MailShiftUnassigned, staff.Email, shiftMailData(staff, shift))
}

func (p *Publisher) AutoFillCompleted(ctx context.Context, to string, data domain.AutoFillMailData) error {
	return p.publish(ctx, domain.MailAutoFillSummary, to, data)
}

func (p *Publisher) publish(ctx context.Context, typ, to string, data any) error {
	// 没有邮箱的员工不发送
	if to == "" {
		p.logger.Debug("收件人为空，跳过邮件", "type", typ)
		return nil
	}

	body, err := json.Marshal(domain.MailMessage{Type: typ, To: to, Data: data})
	if err != nil {
		return err
	}

	// 与请求的 context 分离，请求结束后仍允许投递完成
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	return p.ch.PublishWithContext(
		ctx,
		"",
		p.queue,
		true,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

func shiftMailData(staff domain.StaffMember, shift domain.Shift) domain.ShiftMailData {
	data := domain.ShiftMailData{
		FullName:  staff.FullName(),
		Date:      shift.Date,
		ShiftType: string(shift.ShiftType),
	}
	if shift.TimeTemplate != nil {
		data.StartTime = shift.TimeTemplate.StartTime
		data.EndTime = shift.TimeTemplate.EndTime
	}
	return data
}

// Nop 丢弃所有通知
type Nop struct{}

func (Nop) AssignmentCreated(context.Context, domain.StaffMember, domain.Shift) error { return nil }

func (Nop) AssignmentRemoved(context.Context, domain.StaffMember, domain.Shift) error { return nil }

func (Nop) AutoFillCompleted(context.Context, string, domain.AutoFillMailData) error { return nil }
