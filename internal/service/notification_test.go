package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"elevtinget/backend/internal/model"
	"elevtinget/backend/pkg/mailer"
)

func decidedCase(status model.ReviewStatus, hasObserver bool) *model.Case {
	from := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC)
	c := &model.Case{
		CaseID:         "case-42",
		ReasonRejected: "Mangler dokumentasjon",
		FormReply: &model.FormReply{
			Name:        "Kari",
			Email:       "kari@example.no",
			Type:        model.ParticipantDelegate,
			From:        &from,
			To:          &to,
			HasObserver: hasObserver,
		},
	}
	c.SetReviewStatus(status)
	return c
}

// ── 渲染 ──

func TestRenderCaseDecision_Approved(t *testing.T) {
	now := time.Date(2025, 3, 9, 18, 0, 0, 0, time.UTC)
	entry, err := renderCaseDecision(decidedCase(model.ReviewApproved, true), time.UTC, now)
	require.NoError(t, err)
	require.NotNil(t, entry)

	assert.Equal(t, model.OutboxCaseApproved, entry.Kind)
	assert.Equal(t, "kari@example.no", entry.Recipient)
	assert.Equal(t, subjectApproved, entry.Subject)
	assert.Equal(t, model.OutboxPending, entry.Status)
	assert.True(t, entry.NextAttemptAt.Equal(now))

	assert.Contains(t, entry.TextBody, "Hei Kari")
	assert.Contains(t, entry.TextBody, "10.03.2025, 09:00:00 - 12.03.2025, 15:00:00")
	assert.Contains(t, entry.TextBody, "Husk å bytte skilt")
	assert.Contains(t, entry.TextBody, "konkom@elev.no")
	assert.Contains(t, entry.HTMLBody, `src="cid:logo-image"`)

	attachments := entry.Attachments.Data()
	require.Len(t, attachments, 1)
	assert.Equal(t, icsFilename, attachments[0].Filename)
}

func TestRenderCaseDecision_ApprovedWithoutObserver(t *testing.T) {
	entry, err := renderCaseDecision(decidedCase(model.ReviewApproved, false), time.UTC, time.Now())
	require.NoError(t, err)
	assert.NotContains(t, entry.TextBody, "Husk å bytte skilt")
}

func TestRenderCaseDecision_Rejected(t *testing.T) {
	entry, err := renderCaseDecision(decidedCase(model.ReviewRejected, false), time.UTC, time.Now())
	require.NoError(t, err)

	assert.Equal(t, model.OutboxCaseRejected, entry.Kind)
	assert.Equal(t, subjectRejected, entry.Subject)
	assert.Contains(t, entry.TextBody, "Mangler dokumentasjon")
	assert.Contains(t, entry.TextBody, "10.03.2025, 09:00:00")
	assert.Empty(t, entry.Attachments.Data())
}

func TestRenderCaseDecision_HTMLEscapesReason(t *testing.T) {
	c := decidedCase(model.ReviewRejected, false)
	c.ReasonRejected = "<script>alert(1)</script>"

	entry, err := renderCaseDecision(c, time.UTC, time.Now())
	require.NoError(t, err)
	assert.NotContains(t, entry.HTMLBody, "<script>")
	assert.Contains(t, entry.TextBody, "<script>", "纯文本正文保持原样")
}

func TestRenderCaseDecision_Pending(t *testing.T) {
	entry, err := renderCaseDecision(decidedCase(model.ReviewPending, false), time.UTC, time.Now())
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestRenderCaseDecision_ConferenceTimezone(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Oslo")
	require.NoError(t, err)

	entry, err := renderCaseDecision(decidedCase(model.ReviewApproved, false), loc, time.Now())
	require.NoError(t, err)
	assert.Contains(t, entry.TextBody, "10.03.2025, 10:00:00", "UTC 09:00 在奥斯陆为 10:00")
}

func TestLeaveCalendar_ParsesBack(t *testing.T) {
	from := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC)

	cal, err := ics.ParseCalendar(strings.NewReader(leaveCalendar("case-42", from, to, from)))
	require.NoError(t, err)

	events := cal.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "case-42@permisjon.elevtinget", events[0].Id())

	start, err := events[0].GetStartAt()
	require.NoError(t, err)
	assert.True(t, start.Equal(from))

	end, err := events[0].GetEndAt()
	require.NoError(t, err)
	assert.True(t, end.Equal(to))
}

// ── 投递与重试 ──

type dispatcherFixture struct {
	d      *NotificationDispatcher
	m      *mockRepos
	sender *mockSender
	now    time.Time
}

func setupTestDispatcher(t *testing.T) *dispatcherFixture {
	t.Helper()
	repo, m := newMockRepos()
	m.eventConfig.cfg = eventConfig(true)
	sender := &mockSender{}
	d := NewNotificationDispatcher(repo, sender, testOutboxConfig(), newTestLogger(t))
	now := time.Date(2025, 3, 11, 12, 0, 0, 0, time.UTC)
	d.now = fixedClock(now)
	return &dispatcherFixture{d: d, m: m, sender: sender, now: now}
}

func (f *dispatcherFixture) enqueue(t *testing.T) *model.NotificationOutbox {
	t.Helper()
	entry, err := renderCaseDecision(decidedCase(model.ReviewApproved, false), time.UTC, f.now)
	require.NoError(t, err)
	require.NoError(t, f.m.outbox.Create(context.Background(), entry))
	return entry
}

func TestDeliver_NotFound(t *testing.T) {
	f := setupTestDispatcher(t)
	err := f.d.Deliver(context.Background(), "missing")
	assert.Error(t, err)
}

func TestDeliver_SentIsIdempotent(t *testing.T) {
	f := setupTestDispatcher(t)
	entry := f.enqueue(t)
	f.sender.On("Send", mock.Anything, mock.Anything).Return(mailer.Result{}, nil).Once()

	require.NoError(t, f.d.Deliver(context.Background(), entry.OutboxID))
	require.NoError(t, f.d.Deliver(context.Background(), entry.OutboxID))

	f.sender.AssertNumberOfCalls(t, "Send", 1)
	stored := f.m.outbox.entries[entry.OutboxID]
	assert.Equal(t, model.OutboxSent, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
	require.NotNil(t, stored.SentAt)
}

func TestDeliver_SenderSkipped(t *testing.T) {
	f := setupTestDispatcher(t)
	entry := f.enqueue(t)
	f.sender.On("Send", mock.Anything, mock.Anything).Return(mailer.Result{Skipped: true, Reason: "recipient not in allow list"}, nil)

	require.NoError(t, f.d.Deliver(context.Background(), entry.OutboxID))
	stored := f.m.outbox.entries[entry.OutboxID]
	assert.Equal(t, model.OutboxSkipped, stored.Status)
	assert.Equal(t, "recipient not in allow list", stored.LastError)
}

func TestDeliver_ConfigErrorCountsAsFailure(t *testing.T) {
	f := setupTestDispatcher(t)
	entry := f.enqueue(t)
	f.m.eventConfig.err = errors.New("connection reset")

	err := f.d.Deliver(context.Background(), entry.OutboxID)
	assert.Error(t, err)
	f.sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	assert.Equal(t, model.OutboxFailed, f.m.outbox.entries[entry.OutboxID].Status)
}

func TestBackoff(t *testing.T) {
	f := setupTestDispatcher(t)
	tests := map[int]time.Duration{
		1:  time.Minute,
		2:  2 * time.Minute,
		3:  4 * time.Minute,
		7:  time.Hour,
		20: time.Hour,
	}
	for attempts, want := range tests {
		if got := f.d.backoff(attempts); got != want {
			t.Errorf("backoff(%d) 期望 %v，实际 %v", attempts, want, got)
		}
	}
}

func TestRetryDue(t *testing.T) {
	f := setupTestDispatcher(t)
	entry := f.enqueue(t)

	f.sender.On("Send", mock.Anything, mock.Anything).Return(mailer.Result{}, errors.New("timeout")).Once()
	require.Error(t, f.d.Deliver(context.Background(), entry.OutboxID))

	// 退避期内不重试
	n, err := f.d.RetryDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	f.d.now = fixedClock(f.now.Add(2 * time.Minute))
	f.sender.On("Send", mock.Anything, mock.Anything).Return(mailer.Result{}, nil).Once()
	n, err = f.d.RetryDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored := f.m.outbox.entries[entry.OutboxID]
	assert.Equal(t, model.OutboxSent, stored.Status)
	assert.Equal(t, 2, stored.Attempts)
	f.sender.AssertExpectations(t)
}

func TestDeliver_StaleRetrySnapshotSendsOnce(t *testing.T) {
	f := setupTestDispatcher(t)
	entry := f.enqueue(t)
	f.sender.On("Send", mock.Anything, mock.Anything).Return(mailer.Result{}, nil)

	// 定时任务与即时投递拿到同一条 pending 记录
	snapshot, err := f.m.outbox.ListDue(context.Background(), f.now, 3, 10)
	require.NoError(t, err)
	require.Len(t, snapshot, 1)

	require.NoError(t, f.d.Deliver(context.Background(), entry.OutboxID))
	err = f.d.deliver(context.Background(), &snapshot[0])
	assert.ErrorIs(t, err, errNotClaimed)

	n, err := f.d.RetryDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	f.sender.AssertNumberOfCalls(t, "Send", 1)
	assert.Equal(t, model.OutboxSent, f.m.outbox.entries[entry.OutboxID].Status)
}

func TestDeliver_ExpiredClaimIsRetried(t *testing.T) {
	f := setupTestDispatcher(t)
	entry := f.enqueue(t)
	stored := f.m.outbox.entries[entry.OutboxID]
	stored.Status = model.OutboxSending
	stored.NextAttemptAt = f.now.Add(sendLease)
	f.sender.On("Send", mock.Anything, mock.Anything).Return(mailer.Result{}, nil).Once()

	// 认领未到期时不重发
	n, err := f.d.RetryDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	f.d.now = fixedClock(f.now.Add(sendLease + time.Minute))
	n, err = f.d.RetryDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	f.sender.AssertNumberOfCalls(t, "Send", 1)
	assert.Equal(t, model.OutboxSent, f.m.outbox.entries[entry.OutboxID].Status)
}

func TestRetryDue_StopsAtMaxAttempts(t *testing.T) {
	f := setupTestDispatcher(t)
	entry := f.enqueue(t)
	stored := f.m.outbox.entries[entry.OutboxID]
	stored.Status = model.OutboxFailed
	stored.Attempts = 3

	n, err := f.d.RetryDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	f.sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestDispatcher_StartStop(t *testing.T) {
	f := setupTestDispatcher(t)
	require.NoError(t, f.d.Start())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	f.d.Stop(ctx)
}
