package mailer

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"

	"github.com/wneessen/go-mail"

	"github.com/carelink-dev/shift-board/engine/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

var ErrUnsupportedType = errors.New("unsupported mail type")

type envelope struct {
	Type string          `json:"type"`
	To   string          `json:"to"`
	Data json.RawMessage `json:"data"`
}

// Render 根据邮件类型生成标题和 HTML 正文
func Render(typ string, raw json.RawMessage) (string, string, error) {
	var (
		subject string
		data    any
	)
	switch typ {
	case domain.MailShiftAssigned, domain.MailShiftUnassigned:
		var d domain.ShiftMailData
		if err := json.Unmarshal(raw, &d); err != nil {
			return "", "", err
		}
		if typ == domain.MailShiftAssigned {
			subject = fmt.Sprintf("Shift Board - You are scheduled: %s %s", d.ShiftType, d.Date)
		} else {
			subject = fmt.Sprintf("Shift Board - Shift removed: %s %s", d.ShiftType, d.Date)
		}
		data = d
	case domain.MailAutoFillSummary:
		var d domain.AutoFillMailData
		if err := json.Unmarshal(raw, &d); err != nil {
			return "", "", err
		}
		subject = fmt.Sprintf("Shift Board - Auto-fill summary for week of %s", d.WeekStart)
		data = d
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedType, typ)
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, typ+".html", data); err != nil {
		return "", "", err
	}
	return subject, buf.String(), nil
}

// Build 把队列中的消息转换为待发送的邮件
func Build(from string, body []byte) (*mail.Msg, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode mail message: %w", err)
	}

	subject, html, err := Render(env.Type, env.Data)
	if err != nil {
		return nil, err
	}

	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(env.To); err != nil {
		return nil, fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, html)
	return msg, nil
}
