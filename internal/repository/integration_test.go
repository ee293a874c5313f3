//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"elevtinget/backend/internal/model"
	"elevtinget/backend/internal/repository"
	"elevtinget/backend/pkg/database"
	pkgerrors "elevtinget/backend/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=permisjon password=permisjon_password dbname=permisjon_test sslmode=disable TimeZone=UTC"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	sqlDB, err := testDB.DB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取 sql.DB 失败: %v\n", err)
		os.Exit(1)
	}
	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "执行迁移失败: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

// createCase 创建表单与案件并返回清理函数
func createCase(t *testing.T, repo *repository.Repository, from, to time.Time, approved *bool) (*model.Case, func()) {
	t.Helper()
	ctx := context.Background()

	form := &model.FormReply{
		Name:          "Testdeltaker",
		Email:         fmt.Sprintf("test%d@example.no", time.Now().UnixNano()),
		Tel:           "12345678",
		County:        "Oslo",
		Type:          model.ParticipantDelegate,
		ParticipantID: "D-1",
		From:          &from,
		To:            &to,
		Reason:        "Test",
	}
	if err := repo.FormReply.Create(ctx, form); err != nil {
		t.Fatalf("创建表单失败: %v", err)
	}
	c := &model.Case{FormReplyID: form.FormReplyID, Status: approved}
	if err := repo.Case.Create(ctx, c); err != nil {
		t.Fatalf("创建案件失败: %v", err)
	}

	cleanup := func() {
		testDB.Where("case_id = ?", c.CaseID).Delete(&model.NotificationOutbox{})
		testDB.Where("case_id = ?", c.CaseID).Delete(&model.Case{})
		testDB.Where("form_reply_id = ?", form.FormReplyID).Delete(&model.FormReply{})
	}
	return c, cleanup
}

func boolPtr(b bool) *bool { return &b }

// ═══════════════════════════════════════════════════════════
// Test: Transaction
// ═══════════════════════════════════════════════════════════

func TestTransaction_Rollback(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	var formID string
	sentinel := errors.New("回滚")
	err := repo.Transaction(ctx, func(tx *repository.Repository) error {
		now := time.Now()
		form := &model.FormReply{
			Name: "Rollback", Email: "rollback@example.no", Tel: "1", County: "Oslo",
			Type: model.ParticipantDelegate, ParticipantID: "D-0", From: &now, To: &now, Reason: "x",
		}
		if err := tx.FormReply.Create(ctx, form); err != nil {
			return err
		}
		formID = form.FormReplyID
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("期望返回回调错误，实际: %v", err)
	}

	if _, err := repo.FormReply.GetByID(ctx, formID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("回滚后表单不应存在，实际: %v", err)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Optimistic Lock
// ═══════════════════════════════════════════════════════════

func TestCase_OptimisticLock(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	now := time.Now()
	c, cleanup := createCase(t, repo, now, now.Add(time.Hour), nil)
	defer cleanup()

	first, _ := repo.Case.GetByID(ctx, c.CaseID)
	second, _ := repo.Case.GetByID(ctx, c.CaseID)

	first.Comment = "først"
	if err := repo.Case.Update(ctx, first); err != nil {
		t.Fatalf("第一次更新应成功: %v", err)
	}
	if first.Version != 2 {
		t.Errorf("期望版本号 2，实际 %d", first.Version)
	}

	second.Comment = "sist"
	if err := repo.Case.Update(ctx, second); !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("过期版本应返回乐观锁冲突，实际: %v", err)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Filters
// ═══════════════════════════════════════════════════════════

func TestCase_ListFilters(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	active, c1 := createCase(t, repo, now.Add(-time.Hour), now.Add(time.Hour), boolPtr(true))
	defer c1()
	scheduled, c2 := createCase(t, repo, now.Add(time.Hour), now.Add(2*time.Hour), boolPtr(true))
	defer c2()
	pending, c3 := createCase(t, repo, now.Add(-time.Hour), now.Add(time.Hour), nil)
	defer c3()
	inverted, c4 := createCase(t, repo, now.Add(time.Hour), now.Add(-time.Hour), boolPtr(true))
	defer c4()

	contains := func(cases []model.Case, id string) bool {
		for _, c := range cases {
			if c.CaseID == id {
				return true
			}
		}
		return false
	}

	tests := []struct {
		filter model.CaseFilter
		want   []string
		reject []string
	}{
		{model.FilterActive, []string{active.CaseID}, []string{scheduled.CaseID, pending.CaseID, inverted.CaseID}},
		{model.FilterScheduled, []string{scheduled.CaseID}, []string{active.CaseID, inverted.CaseID}},
		{model.FilterPending, []string{pending.CaseID}, []string{active.CaseID}},
		{model.FilterApproved, []string{active.CaseID, scheduled.CaseID, inverted.CaseID}, []string{pending.CaseID}},
	}
	for _, tt := range tests {
		t.Run(string(tt.filter), func(t *testing.T) {
			cases, err := repo.Case.List(ctx, tt.filter, now)
			if err != nil {
				t.Fatalf("List 失败: %v", err)
			}
			for _, id := range tt.want {
				if !contains(cases, id) {
					t.Errorf("期望包含案件 %s", id)
				}
			}
			for _, id := range tt.reject {
				if contains(cases, id) {
					t.Errorf("不应包含案件 %s", id)
				}
			}
			// SQL 过滤结果必须与内存判定一致
			for i := range cases {
				if !tt.filter.Matches(&cases[i], now) {
					t.Errorf("案件 %s 不满足 %s 的内存判定", cases[i].CaseID, tt.filter)
				}
			}
		})
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Outbox
// ═══════════════════════════════════════════════════════════

func TestOutbox_ListDue(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	now := time.Now().UTC()
	c, cleanup := createCase(t, repo, now, now.Add(time.Hour), boolPtr(true))
	defer cleanup()

	due := &model.NotificationOutbox{
		CaseID: c.CaseID, Kind: model.OutboxCaseApproved, Recipient: "a@example.no",
		Subject: "s", Status: model.OutboxFailed, Attempts: 1, NextAttemptAt: now.Add(-time.Minute),
	}
	later := &model.NotificationOutbox{
		CaseID: c.CaseID, Kind: model.OutboxCaseApproved, Recipient: "a@example.no",
		Subject: "s", Status: model.OutboxFailed, Attempts: 1, NextAttemptAt: now.Add(time.Hour),
	}
	exhausted := &model.NotificationOutbox{
		CaseID: c.CaseID, Kind: model.OutboxCaseApproved, Recipient: "a@example.no",
		Subject: "s", Status: model.OutboxFailed, Attempts: 5, NextAttemptAt: now.Add(-time.Minute),
	}
	for _, e := range []*model.NotificationOutbox{due, later, exhausted} {
		if err := repo.Outbox.Create(ctx, e); err != nil {
			t.Fatalf("创建通知失败: %v", err)
		}
	}

	entries, err := repo.Outbox.ListDue(ctx, now, 5, 10)
	if err != nil {
		t.Fatalf("ListDue 失败: %v", err)
	}
	found := map[string]bool{}
	for _, e := range entries {
		found[e.OutboxID] = true
	}
	if !found[due.OutboxID] {
		t.Error("到期记录应被取出")
	}
	if found[later.OutboxID] || found[exhausted.OutboxID] {
		t.Error("未到期或已达上限的记录不应被取出")
	}
}
