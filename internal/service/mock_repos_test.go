package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"elevtinget/backend/internal/model"
	"elevtinget/backend/internal/repository"
	pkgerrors "elevtinget/backend/pkg/errors"
)

// ── 测试用 Repository 聚合 ──

type mockRepos struct {
	cases        *mockCaseRepo
	forms        *mockFormReplyRepo
	participants *mockParticipantRepo
	regions      *mockRegionRepo
	orgs         *mockOrganizationRepo
	hms          *mockHMSRepo
	eventConfig  *mockEventConfigRepo
	users        *mockUserRepo
	roles        *mockRoleRepo
	outbox       *mockOutboxRepo
}

func newMockRepos() (*repository.Repository, *mockRepos) {
	m := &mockRepos{
		forms:        newMockFormReplyRepo(),
		participants: newMockParticipantRepo(),
		regions:      newMockRegionRepo(),
		orgs:         newMockOrganizationRepo(),
		hms:          newMockHMSRepo(),
		eventConfig:  &mockEventConfigRepo{},
		users:        newMockUserRepo(),
		roles:        newMockRoleRepo(),
		outbox:       newMockOutboxRepo(),
	}
	m.cases = newMockCaseRepo(m.forms)

	repo := &repository.Repository{
		Case:         m.cases,
		FormReply:    m.forms,
		Participant:  m.participants,
		Region:       m.regions,
		Organization: m.orgs,
		HMS:          m.hms,
		EventConfig:  m.eventConfig,
		User:         m.users,
		Role:         m.roles,
		Outbox:       m.outbox,
	}
	return repo, m
}

// ── Mock CaseRepository ──

type mockCaseRepo struct {
	cases     map[string]*model.Case
	forms     *mockFormReplyRepo
	seq       int
	listCalls int
	createErr error
}

func newMockCaseRepo(forms *mockFormReplyRepo) *mockCaseRepo {
	return &mockCaseRepo{cases: make(map[string]*model.Case), forms: forms}
}

// hydrate 返回带表单的副本
func (m *mockCaseRepo) hydrate(c *model.Case) *model.Case {
	cp := *c
	if f, ok := m.forms.forms[c.FormReplyID]; ok {
		fc := *f
		cp.FormReply = &fc
	}
	return &cp
}

func (m *mockCaseRepo) Create(_ context.Context, c *model.Case) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.seq++
	if c.CaseID == "" {
		c.CaseID = fmt.Sprintf("case-%d", m.seq)
	}
	if c.Version == 0 {
		c.Version = 1
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Date(2025, 1, 1, 0, 0, m.seq, 0, time.UTC)
	}
	cp := *c
	cp.FormReply = nil
	m.cases[c.CaseID] = &cp
	return nil
}

func (m *mockCaseRepo) GetByID(_ context.Context, id string) (*model.Case, error) {
	if c, ok := m.cases[id]; ok {
		return m.hydrate(c), nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCaseRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Case, error) {
	return m.GetByID(ctx, id)
}

func (m *mockCaseRepo) GetByFormReplyID(_ context.Context, formReplyID string) (*model.Case, error) {
	for _, c := range m.cases {
		if c.FormReplyID == formReplyID {
			return m.hydrate(c), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCaseRepo) List(_ context.Context, filter model.CaseFilter, now time.Time) ([]model.Case, error) {
	m.listCalls++
	var result []model.Case
	for _, c := range m.cases {
		h := m.hydrate(c)
		if filter.Matches(h, now) {
			result = append(result, *h)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (m *mockCaseRepo) ListByParticipant(_ context.Context, participantObjectID string) ([]model.Case, error) {
	var result []model.Case
	for _, c := range m.cases {
		if c.ParticipantObjectID != nil && *c.ParticipantObjectID == participantObjectID {
			result = append(result, *m.hydrate(c))
		}
	}
	return result, nil
}

func (m *mockCaseRepo) Update(_ context.Context, c *model.Case) error {
	stored, ok := m.cases[c.CaseID]
	if !ok || stored.Version != c.Version {
		return pkgerrors.ErrOptimisticLock
	}
	cp := *c
	cp.FormReply = nil
	cp.Version = c.Version + 1
	m.cases[c.CaseID] = &cp
	c.Version++
	return nil
}

func (m *mockCaseRepo) Delete(_ context.Context, id string) error {
	delete(m.cases, id)
	return nil
}

func (m *mockCaseRepo) UnlinkIncident(_ context.Context, incidentID string) error {
	for _, c := range m.cases {
		if c.HMSIncidentID != nil && *c.HMSIncidentID == incidentID {
			c.HMSIncidentID = nil
		}
	}
	return nil
}

// ── Mock FormReplyRepository ──

type mockFormReplyRepo struct {
	forms map[string]*model.FormReply
	seq   int
}

func newMockFormReplyRepo() *mockFormReplyRepo {
	return &mockFormReplyRepo{forms: make(map[string]*model.FormReply)}
}

func (m *mockFormReplyRepo) Create(_ context.Context, f *model.FormReply) error {
	m.seq++
	if f.FormReplyID == "" {
		f.FormReplyID = fmt.Sprintf("form-%d", m.seq)
	}
	cp := *f
	m.forms[f.FormReplyID] = &cp
	return nil
}

func (m *mockFormReplyRepo) GetByID(_ context.Context, id string) (*model.FormReply, error) {
	if f, ok := m.forms[id]; ok {
		cp := *f
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockFormReplyRepo) Update(_ context.Context, f *model.FormReply) error {
	cp := *f
	m.forms[f.FormReplyID] = &cp
	return nil
}

func (m *mockFormReplyRepo) UpdateWindow(_ context.Context, id string, from, to time.Time) error {
	f, ok := m.forms[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	f.From = &from
	f.To = &to
	return nil
}

func (m *mockFormReplyRepo) Delete(_ context.Context, id string) error {
	delete(m.forms, id)
	return nil
}

// ── Mock ParticipantRepository ──

type mockParticipantRepo struct {
	participants map[string]*model.Participant
	seq          int
}

func newMockParticipantRepo() *mockParticipantRepo {
	return &mockParticipantRepo{participants: make(map[string]*model.Participant)}
}

func (m *mockParticipantRepo) add(p *model.Participant) *model.Participant {
	m.seq++
	if p.ParticipantObjectID == "" {
		p.ParticipantObjectID = fmt.Sprintf("p-%d", m.seq)
	}
	m.participants[p.ParticipantObjectID] = p
	return p
}

func (m *mockParticipantRepo) GetByID(_ context.Context, id string) (*model.Participant, error) {
	if p, ok := m.participants[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockParticipantRepo) GetByEmailAndBadge(_ context.Context, email, badge string) (*model.Participant, error) {
	for _, p := range m.participants {
		if strings.EqualFold(p.Email, strings.TrimSpace(email)) && p.ParticipantID == strings.TrimSpace(badge) {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockParticipantRepo) Search(_ context.Context, query string, offset, limit int) ([]model.Participant, int64, error) {
	var all []model.Participant
	q := strings.ToLower(query)
	for _, p := range m.participants {
		if q == "" || strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(p.Email, q) || p.ParticipantID == query {
			all = append(all, *p)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockParticipantRepo) Upsert(_ context.Context, p *model.Participant) error {
	for _, existing := range m.participants {
		if existing.Email == p.Email {
			p.ParticipantObjectID = existing.ParticipantObjectID
			m.participants[p.ParticipantObjectID] = p
			return nil
		}
	}
	m.add(p)
	return nil
}

// ── Mock RegionRepository / OrganizationRepository ──

type mockRegionRepo struct {
	regions map[string]*model.Region
}

func newMockRegionRepo() *mockRegionRepo {
	return &mockRegionRepo{regions: make(map[string]*model.Region)}
}

func (m *mockRegionRepo) GetOrCreate(_ context.Context, name string) (*model.Region, error) {
	if r, ok := m.regions[name]; ok {
		return r, nil
	}
	r := &model.Region{RegionID: "region-" + name, Name: name}
	m.regions[name] = r
	return r, nil
}

func (m *mockRegionRepo) List(_ context.Context) ([]model.Region, error) {
	var result []model.Region
	for _, r := range m.regions {
		result = append(result, *r)
	}
	return result, nil
}

type mockOrganizationRepo struct {
	orgs map[string]*model.Organization
}

func newMockOrganizationRepo() *mockOrganizationRepo {
	return &mockOrganizationRepo{orgs: make(map[string]*model.Organization)}
}

func (m *mockOrganizationRepo) GetOrCreate(_ context.Context, name string, regionID *string) (*model.Organization, error) {
	if o, ok := m.orgs[name]; ok {
		return o, nil
	}
	o := &model.Organization{OrganizationID: "org-" + name, Name: name, RegionID: regionID}
	m.orgs[name] = o
	return o, nil
}

// ── Mock HMSRepository ──

type mockHMSRepo struct {
	incidents map[string]*model.HMSIncident
	actions   map[string]*model.HMSAction
	seq       int
}

func newMockHMSRepo() *mockHMSRepo {
	return &mockHMSRepo{
		incidents: make(map[string]*model.HMSIncident),
		actions:   make(map[string]*model.HMSAction),
	}
}

func (m *mockHMSRepo) CreateIncident(_ context.Context, incident *model.HMSIncident) error {
	m.seq++
	if incident.HMSIncidentID == "" {
		incident.HMSIncidentID = fmt.Sprintf("incident-%d", m.seq)
	}
	cp := *incident
	m.incidents[incident.HMSIncidentID] = &cp
	return nil
}

func (m *mockHMSRepo) GetIncident(_ context.Context, id string) (*model.HMSIncident, error) {
	i, ok := m.incidents[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *i
	cp.Actions = nil
	for _, a := range m.actions {
		if a.HMSIncidentID == id {
			cp.Actions = append(cp.Actions, *a)
		}
	}
	return &cp, nil
}

func (m *mockHMSRepo) ListIncidents(_ context.Context, participantObjectID string) ([]model.HMSIncident, error) {
	var result []model.HMSIncident
	for _, i := range m.incidents {
		if participantObjectID == "" || i.ParticipantObjectID == participantObjectID {
			result = append(result, *i)
		}
	}
	return result, nil
}

func (m *mockHMSRepo) UpdateIncident(_ context.Context, incident *model.HMSIncident) error {
	cp := *incident
	m.incidents[incident.HMSIncidentID] = &cp
	return nil
}

func (m *mockHMSRepo) DeleteIncident(_ context.Context, id string) error {
	for aid, a := range m.actions {
		if a.HMSIncidentID == id {
			delete(m.actions, aid)
		}
	}
	delete(m.incidents, id)
	return nil
}

func (m *mockHMSRepo) CreateAction(_ context.Context, action *model.HMSAction) error {
	m.seq++
	if action.HMSActionID == "" {
		action.HMSActionID = fmt.Sprintf("action-%d", m.seq)
	}
	cp := *action
	m.actions[action.HMSActionID] = &cp
	return nil
}

func (m *mockHMSRepo) ListActions(_ context.Context, incidentID string) ([]model.HMSAction, error) {
	var result []model.HMSAction
	for _, a := range m.actions {
		if a.HMSIncidentID == incidentID {
			result = append(result, *a)
		}
	}
	return result, nil
}

// ── Mock EventConfigRepository ──

type mockEventConfigRepo struct {
	cfg *model.EventConfig
	err error
}

func (m *mockEventConfigRepo) Get(_ context.Context) (*model.EventConfig, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.cfg == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *m.cfg
	return &cp, nil
}

func (m *mockEventConfigRepo) Update(_ context.Context, cfg *model.EventConfig) error {
	cp := *cfg
	m.cfg = &cp
	return nil
}

// ── Mock UserRepository / RoleRepository ──

type mockUserRepo struct {
	users map[string]*model.AppUser
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.AppUser)}
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.AppUser, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.AppUser, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type mockRoleRepo struct {
	roles map[string]*model.Role
	calls int
}

func newMockRoleRepo() *mockRoleRepo {
	return &mockRoleRepo{roles: make(map[string]*model.Role)}
}

func (m *mockRoleRepo) GetByName(_ context.Context, name string) (*model.Role, error) {
	m.calls++
	if r, ok := m.roles[name]; ok {
		return r, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock OutboxRepository ──

type mockOutboxRepo struct {
	entries map[string]*model.NotificationOutbox
	seq     int
}

func newMockOutboxRepo() *mockOutboxRepo {
	return &mockOutboxRepo{entries: make(map[string]*model.NotificationOutbox)}
}

func (m *mockOutboxRepo) Create(_ context.Context, entry *model.NotificationOutbox) error {
	m.seq++
	if entry.OutboxID == "" {
		entry.OutboxID = fmt.Sprintf("outbox-%d", m.seq)
	}
	cp := *entry
	m.entries[entry.OutboxID] = &cp
	return nil
}

func (m *mockOutboxRepo) GetByID(_ context.Context, id string) (*model.NotificationOutbox, error) {
	if e, ok := m.entries[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockOutboxRepo) ListDue(_ context.Context, now time.Time, maxAttempts, limit int) ([]model.NotificationOutbox, error) {
	var result []model.NotificationOutbox
	for _, e := range m.entries {
		due := outboxClaimable(e, now) && e.Attempts < maxAttempts
		if due {
			result = append(result, *e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].NextAttemptAt.Before(result[j].NextAttemptAt) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func outboxClaimable(e *model.NotificationOutbox, now time.Time) bool {
	switch e.Status {
	case model.OutboxPending, model.OutboxFailed, model.OutboxSending:
		return !e.NextAttemptAt.After(now)
	}
	return false
}

func (m *mockOutboxRepo) Claim(_ context.Context, id string, now, leaseUntil time.Time) (bool, error) {
	e, ok := m.entries[id]
	if !ok || !outboxClaimable(e, now) {
		return false, nil
	}
	e.Status = model.OutboxSending
	e.NextAttemptAt = leaseUntil
	return true, nil
}

func (m *mockOutboxRepo) Update(_ context.Context, entry *model.NotificationOutbox) error {
	cp := *entry
	m.entries[entry.OutboxID] = &cp
	return nil
}

func (m *mockOutboxRepo) DeleteByCase(_ context.Context, caseID string) error {
	for id, e := range m.entries {
		if e.CaseID == caseID {
			delete(m.entries, id)
		}
	}
	return nil
}

func (m *mockOutboxRepo) byCase(caseID string) []*model.NotificationOutbox {
	var result []*model.NotificationOutbox
	for _, e := range m.entries {
		if e.CaseID == caseID {
			result = append(result, e)
		}
	}
	return result
}
