package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"elevtinget/backend/config"
	"elevtinget/backend/internal/model"
	"elevtinget/backend/pkg/mailer"
)

// ── 权限 ──

type fakeAuthorizer struct {
	allow map[model.Capability]bool
	calls int
}

func allowCaps(caps ...model.Capability) *fakeAuthorizer {
	a := &fakeAuthorizer{allow: make(map[model.Capability]bool)}
	for _, c := range caps {
		a.allow[c] = true
	}
	return a
}

func allowAll() *fakeAuthorizer {
	return allowCaps(allCapabilities...)
}

func (a *fakeAuthorizer) Can(_ context.Context, caller *Caller, cap model.Capability) bool {
	a.calls++
	return caller != nil && a.allow[cap]
}

// ── 邮件 ──

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, msg *mailer.Message) (mailer.Result, error) {
	args := m.Called(ctx, msg)
	return args.Get(0).(mailer.Result), args.Error(1)
}

// ── 通用夹具 ──

var testCaller = &Caller{UserID: "user-1", Email: "konkom@elev.no", Role: model.RoleKonkom}

// 2025-03-10 为周一
var conferenceStart = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func eventConfig(mailEnabled bool) *model.EventConfig {
	start := datatypes.Date(conferenceStart)
	return &model.EventConfig{Singleton: true, StartDate: &start, MailEnabled: mailEnabled}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func testOutboxConfig() *config.OutboxConfig {
	return &config.OutboxConfig{RetryInterval: time.Minute, MaxAttempts: 3, BatchSize: 10}
}

func intPtr(v int) *int { return &v }

func newTestLogger(t *testing.T) *zap.Logger {
	t.Helper()
	return zap.NewNop()
}
