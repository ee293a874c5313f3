package mailer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"elevtinget/backend/config"
)

// LogoContentID HTML 模板中引用内嵌 Logo 的 cid
const LogoContentID = "logo-image"

// Attachment 邮件附件
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message 待发送邮件
type Message struct {
	To          string
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}

// Result 发送结果，Skipped 表示按配置未实际发出
type Result struct {
	Skipped bool
	Reason  string
}

// Sender 邮件发送接口
type Sender interface {
	Send(ctx context.Context, msg *Message) (Result, error)
}

// SMTPSender 基于 SMTP 的发送实现
type SMTPSender struct {
	cfg    config.MailConfig
	logo   []byte
	allow  map[string]bool
	logger *zap.Logger
}

// NewSMTPSender 创建 SMTP 发送器，Logo 文件不存在时仅记录警告
func NewSMTPSender(cfg *config.MailConfig, logger *zap.Logger) *SMTPSender {
	s := &SMTPSender{cfg: *cfg, logger: logger}

	if len(cfg.AllowRecipients) > 0 {
		s.allow = make(map[string]bool, len(cfg.AllowRecipients))
		for _, r := range cfg.AllowRecipients {
			s.allow[strings.ToLower(strings.TrimSpace(r))] = true
		}
	}

	if cfg.LogoPath != "" {
		logo, err := os.ReadFile(cfg.LogoPath)
		if err != nil {
			logger.Warn("读取邮件 Logo 失败，将不内嵌 Logo", zap.String("path", cfg.LogoPath), zap.Error(err))
		} else {
			s.logo = logo
		}
	}

	return s
}

// Send 发送邮件
func (s *SMTPSender) Send(ctx context.Context, msg *Message) (Result, error) {
	if !s.cfg.Enabled {
		return Result{Skipped: true, Reason: "mail disabled"}, nil
	}
	if s.allow != nil && !s.allow[strings.ToLower(msg.To)] {
		s.logger.Info("收件人不在白名单内，跳过发送", zap.String("to", msg.To))
		return Result{Skipped: true, Reason: "recipient not allowed"}, nil
	}

	m, err := s.buildMsg(msg)
	if err != nil {
		return Result{}, err
	}

	client, err := mail.NewClient(s.cfg.SMTPHost,
		mail.WithPort(s.cfg.SMTPPort),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.Username),
		mail.WithPassword(s.cfg.Password),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return Result{}, fmt.Errorf("创建 SMTP 客户端失败: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return Result{}, fmt.Errorf("发送邮件失败: %w", err)
	}

	s.logger.Info("邮件已发送", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return Result{}, nil
}

func (s *SMTPSender) buildMsg(msg *Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
		return nil, fmt.Errorf("发件人地址无效: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("收件人地址无效: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}

	if s.logo != nil && strings.Contains(msg.HTML, "cid:"+LogoContentID) {
		if err := m.EmbedReader("logo.png", bytes.NewReader(s.logo),
			mail.WithFileContentID(LogoContentID),
			mail.WithFileContentType(mail.ContentType("image/png")),
		); err != nil {
			return nil, fmt.Errorf("内嵌 Logo 失败: %w", err)
		}
	}

	for _, a := range msg.Attachments {
		opts := []mail.FileOption{}
		if a.ContentType != "" {
			opts = append(opts, mail.WithFileContentType(mail.ContentType(a.ContentType)))
		}
		if err := m.AttachReader(a.Filename, bytes.NewReader(a.Content), opts...); err != nil {
			return nil, fmt.Errorf("添加附件 %s 失败: %w", a.Filename, err)
		}
	}

	return m, nil
}
