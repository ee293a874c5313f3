package service

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"elevtinget/backend/config"
	"elevtinget/backend/internal/model"
	"elevtinget/backend/internal/repository"
	pkgerrors "elevtinget/backend/pkg/errors"
	"elevtinget/backend/pkg/mailer"
)

// ────────────────────── 邮件模板 ──────────────────────

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	htmlTemplates = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/*.html.tmpl"))
	textTemplates = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/*.txt.tmpl"))
)

const (
	subjectApproved = "Permisjonssøknad Godkjent"
	subjectRejected = "Permisjonssøknad Avvist"

	// 邮件中时间的展示格式（会议时区）
	mailTimeLayout = "02.01.2006, 15:04:05"

	icsFilename    = "permisjon.ics"
	icsContentType = "text/calendar; charset=utf-8; method=PUBLISH"
)

type caseMailData struct {
	Name        string
	From        string
	To          string
	HasObserver bool
	Reason      string
	LogoCID     string
}

func formatMailTime(t *time.Time, loc *time.Location) string {
	if t == nil {
		return "-"
	}
	return t.In(loc).Format(mailTimeLayout)
}

// renderCaseDecision 按审核结论生成待投递的通知；PENDING 不生成通知
func renderCaseDecision(c *model.Case, loc *time.Location, now time.Time) (*model.NotificationOutbox, error) {
	if c.FormReply == nil {
		return nil, fmt.Errorf("案件 %s 缺少申请表单", c.CaseID)
	}
	f := c.FormReply

	data := caseMailData{
		Name:        f.Name,
		From:        formatMailTime(f.From, loc),
		To:          formatMailTime(f.To, loc),
		HasObserver: f.HasObserver,
		Reason:      c.ReasonRejected,
		LogoCID:     mailer.LogoContentID,
	}

	var (
		kind    model.OutboxKind
		subject string
		name    string
	)
	switch c.ReviewStatus() {
	case model.ReviewApproved:
		kind, subject, name = model.OutboxCaseApproved, subjectApproved, "case_approved"
	case model.ReviewRejected:
		kind, subject, name = model.OutboxCaseRejected, subjectRejected, "case_rejected"
	default:
		return nil, nil
	}

	var htmlBuf, textBuf bytes.Buffer
	if err := htmlTemplates.ExecuteTemplate(&htmlBuf, name+".html.tmpl", data); err != nil {
		return nil, fmt.Errorf("渲染 HTML 邮件失败: %w", err)
	}
	if err := textTemplates.ExecuteTemplate(&textBuf, name+".txt.tmpl", data); err != nil {
		return nil, fmt.Errorf("渲染文本邮件失败: %w", err)
	}

	var attachments []model.OutboxAttachment
	if kind == model.OutboxCaseApproved && f.WindowValid() {
		attachments = append(attachments, model.OutboxAttachment{
			Filename:    icsFilename,
			ContentType: icsContentType,
			Content:     []byte(leaveCalendar(c.CaseID, *f.From, *f.To, now)),
		})
	}

	return &model.NotificationOutbox{
		CaseID:        c.CaseID,
		Kind:          kind,
		Recipient:     f.Email,
		Subject:       subject,
		TextBody:      textBuf.String(),
		HTMLBody:      htmlBuf.String(),
		Attachments:   datatypes.NewJSONType(attachments),
		Status:        model.OutboxPending,
		NextAttemptAt: now,
	}, nil
}

// leaveCalendar 生成请假时段的 iCalendar 文本
func leaveCalendar(caseID string, from, to, now time.Time) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//Elevorganisasjonen//Elevtinget Permisjon//NO")

	event := cal.AddEvent(caseID + "@permisjon.elevtinget")
	event.SetDtStampTime(now.UTC())
	event.SetStartAt(from.UTC())
	event.SetEndAt(to.UTC())
	event.SetSummary("Permisjon fra Elevtinget")
	event.SetDescription("Godkjent permisjon. Husk å melde deg i infokiosk ved retur.")

	return cal.Serialize()
}

// ────────────────────── 投递 ──────────────────────

const (
	// maxBackoff 重试间隔上限
	maxBackoff = time.Hour
	// sendLease 认领后的投递时限，进程在投递中退出时超时后可被重新认领
	sendLease = 10 * time.Minute
)

// NotificationDispatcher 投递发件箱中的通知
// 审核提交后立即尝试一次，失败的记录由定时任务按指数退避重试
type NotificationDispatcher struct {
	repo   *repository.Repository
	sender mailer.Sender
	cfg    config.OutboxConfig
	logger *zap.Logger
	now    func() time.Time
	cron   *cron.Cron
}

// NewNotificationDispatcher 创建通知投递器
func NewNotificationDispatcher(repo *repository.Repository, sender mailer.Sender, cfg *config.OutboxConfig, logger *zap.Logger) *NotificationDispatcher {
	return &NotificationDispatcher{
		repo:   repo,
		sender: sender,
		cfg:    *cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Deliver 投递指定通知；失败时记录到发件箱并返回 Dependency 错误
func (d *NotificationDispatcher) Deliver(ctx context.Context, outboxID string) error {
	entry, err := d.repo.Outbox.GetByID(ctx, outboxID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.NotFound("通知不存在: %s", outboxID)
		}
		return err
	}
	if err := d.deliver(ctx, entry); err != nil && !errors.Is(err, errNotClaimed) {
		return err
	}
	return nil
}

// errNotClaimed 通知已由其他投递方认领，本次不发送
var errNotClaimed = errors.New("outbox entry claimed elsewhere")

func (d *NotificationDispatcher) deliver(ctx context.Context, entry *model.NotificationOutbox) error {
	if entry.Status == model.OutboxSent || entry.Status == model.OutboxSkipped {
		return nil
	}
	now := d.now()

	// 先认领再发送：即时投递与定时重试（或多个副本）只有一方能发出邮件
	claimed, err := d.repo.Outbox.Claim(ctx, entry.OutboxID, now, now.Add(sendLease))
	if err != nil {
		d.logger.Error("认领通知失败", zap.String("outbox_id", entry.OutboxID), zap.Error(err))
		return pkgerrors.Dependency(err, "通知邮件发送失败，将自动重试")
	}
	if !claimed {
		d.logger.Debug("通知已被其他投递方处理", zap.String("outbox_id", entry.OutboxID))
		return errNotClaimed
	}
	entry.Status = model.OutboxSending

	// 会议配置中的总开关
	eventCfg, err := d.repo.EventConfig.Get(ctx)
	switch {
	case err == nil && !eventCfg.MailEnabled:
		entry.Status = model.OutboxSkipped
		entry.LastError = "mail disabled in event config"
		d.save(ctx, entry)
		d.logger.Info("邮件已关闭，跳过通知", zap.String("outbox_id", entry.OutboxID), zap.String("case_id", entry.CaseID))
		return nil
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return d.fail(ctx, entry, now, fmt.Errorf("读取会议配置失败: %w", err))
	}

	result, err := d.sender.Send(ctx, toMailMessage(entry))
	if err != nil {
		return d.fail(ctx, entry, now, err)
	}

	entry.Attempts++
	if result.Skipped {
		entry.Status = model.OutboxSkipped
		entry.LastError = result.Reason
		d.logger.Info("通知按配置跳过",
			zap.String("outbox_id", entry.OutboxID),
			zap.String("reason", result.Reason),
		)
	} else {
		entry.Status = model.OutboxSent
		entry.LastError = ""
		entry.SentAt = &now
		d.logger.Info("通知已发送",
			zap.String("outbox_id", entry.OutboxID),
			zap.String("case_id", entry.CaseID),
			zap.String("kind", string(entry.Kind)),
		)
	}
	d.save(ctx, entry)
	return nil
}

func (d *NotificationDispatcher) fail(ctx context.Context, entry *model.NotificationOutbox, now time.Time, cause error) error {
	entry.Attempts++
	entry.Status = model.OutboxFailed
	entry.LastError = cause.Error()
	entry.NextAttemptAt = now.Add(d.backoff(entry.Attempts))
	d.save(ctx, entry)

	d.logger.Error("通知发送失败",
		zap.String("outbox_id", entry.OutboxID),
		zap.String("case_id", entry.CaseID),
		zap.Int("attempts", entry.Attempts),
		zap.Time("next_attempt_at", entry.NextAttemptAt),
		zap.Error(cause),
	)
	return pkgerrors.Dependency(cause, "通知邮件发送失败，将自动重试")
}

func (d *NotificationDispatcher) save(ctx context.Context, entry *model.NotificationOutbox) {
	if err := d.repo.Outbox.Update(ctx, entry); err != nil {
		d.logger.Error("更新通知状态失败", zap.String("outbox_id", entry.OutboxID), zap.Error(err))
	}
}

// backoff 第 n 次失败后的等待时间：interval * 2^(n-1)，上限 1 小时
func (d *NotificationDispatcher) backoff(attempts int) time.Duration {
	wait := d.cfg.RetryInterval
	if wait <= 0 {
		wait = time.Minute
	}
	for i := 1; i < attempts && wait < maxBackoff; i++ {
		wait *= 2
	}
	if wait > maxBackoff {
		wait = maxBackoff
	}
	return wait
}

// RetryDue 重试所有到期的通知，返回成功处理的条数
func (d *NotificationDispatcher) RetryDue(ctx context.Context) (int, error) {
	entries, err := d.repo.Outbox.ListDue(ctx, d.now(), d.cfg.MaxAttempts, d.cfg.BatchSize)
	if err != nil {
		d.logger.Error("查询待重试通知失败", zap.Error(err))
		return 0, err
	}

	delivered := 0
	for i := range entries {
		if ctx.Err() != nil {
			break
		}
		if err := d.deliver(ctx, &entries[i]); err == nil {
			delivered++
		}
	}
	if len(entries) > 0 {
		d.logger.Info("通知重试完成", zap.Int("due", len(entries)), zap.Int("delivered", delivered))
	}
	return delivered, nil
}

// Start 启动定时重试任务
func (d *NotificationDispatcher) Start() error {
	interval := d.cfg.RetryInterval
	if interval <= 0 {
		interval = time.Minute
	}

	cronLog := zapCronLogger{d.logger.Sugar()}
	d.cron = cron.New(cron.WithLogger(cronLog), cron.WithChain(cron.SkipIfStillRunning(cronLog)))
	if _, err := d.cron.AddFunc("@every "+interval.String(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		defer cancel()
		_, _ = d.RetryDue(ctx)
	}); err != nil {
		return fmt.Errorf("注册通知重试任务失败: %w", err)
	}

	d.cron.Start()
	d.logger.Info("通知重试任务已启动", zap.Duration("interval", interval))
	return nil
}

// Stop 停止定时任务并等待正在执行的任务结束
func (d *NotificationDispatcher) Stop(ctx context.Context) {
	if d.cron == nil {
		return
	}
	select {
	case <-d.cron.Stop().Done():
	case <-ctx.Done():
		d.logger.Warn("等待通知重试任务结束超时")
	}
}

func toMailMessage(entry *model.NotificationOutbox) *mailer.Message {
	msg := &mailer.Message{
		To:      entry.Recipient,
		Subject: entry.Subject,
		Text:    entry.TextBody,
		HTML:    entry.HTMLBody,
	}
	for _, a := range entry.Attachments.Data() {
		msg.Attachments = append(msg.Attachments, mailer.Attachment{
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Content:     a.Content,
		})
	}
	return msg
}

// zapCronLogger 将 cron 内部日志接入 zap
type zapCronLogger struct {
	s *zap.SugaredLogger
}

func (l zapCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l zapCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
