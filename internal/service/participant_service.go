package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"elevtinget/backend/internal/dto"
	"elevtinget/backend/internal/model"
	"elevtinget/backend/internal/repository"
)

// ParticipantService 参会者业务接口
type ParticipantService interface {
	Search(ctx context.Context, req *dto.ParticipantListRequest, caller *Caller) ([]dto.ParticipantResponse, int64, error)
	// Get 参会者详情，附带请假与 HMS 记录
	Get(ctx context.Context, id string, caller *Caller) (*dto.ParticipantDetailResponse, error)
	ParseImportFile(reader io.Reader) ([]ImportParticipantRow, error)
	Import(ctx context.Context, rows []ImportParticipantRow, caller *Caller) (*dto.ImportParticipantResponse, error)
}

type participantService struct {
	repo   *repository.Repository
	authz  Authorizer
	logger *zap.Logger
	now    func() time.Time
}

// NewParticipantService 创建 ParticipantService 实例
func NewParticipantService(repo *repository.Repository, authz Authorizer, logger *zap.Logger) ParticipantService {
	return &participantService{repo: repo, authz: authz, logger: logger, now: time.Now}
}

// ────────────────────── Search / Get ──────────────────────

func (s *participantService) Search(ctx context.Context, req *dto.ParticipantListRequest, caller *Caller) ([]dto.ParticipantResponse, int64, error) {
	if err := authorize(ctx, s.authz, caller, model.CapParticipantRead); err != nil {
		return nil, 0, err
	}
	participants, total, err := s.repo.Participant.Search(ctx, req.Query, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询参会者列表失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.ParticipantResponse, 0, len(participants))
	for i := range participants {
		result = append(result, toParticipantResponse(&participants[i]))
	}
	return result, total, nil
}

func (s *participantService) Get(ctx context.Context, id string, caller *Caller) (*dto.ParticipantDetailResponse, error) {
	if err := authorize(ctx, s.authz, caller, model.CapParticipantRead); err != nil {
		return nil, err
	}
	p, err := s.repo.Participant.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrParticipantNotFound
		}
		s.logger.Error("查询参会者失败", zap.String("participant_object_id", id), zap.Error(err))
		return nil, err
	}

	cases, err := s.repo.Case.ListByParticipant(ctx, id)
	if err != nil {
		s.logger.Error("查询参会者请假记录失败", zap.String("participant_object_id", id), zap.Error(err))
		return nil, err
	}

	resp := &dto.ParticipantDetailResponse{
		ParticipantResponse: toParticipantResponse(p),
		Gender:              p.Gender,
		Family:              p.Family,
		FamilyRelation:      p.FamilyRelation,
		FamilyTel:           p.FamilyTel,
		Notes:               p.Notes,
		Cases:               make([]dto.CaseResponse, 0, len(cases)),
		Incidents:           []dto.IncidentResponse{},
	}
	now := s.now()
	for i := range cases {
		resp.Cases = append(resp.Cases, toCaseResponse(&cases[i], now))
	}

	// HMS 记录仅对有 hse:read 权限的用户可见
	if s.authz.Can(ctx, caller, model.CapHSERead) {
		incidents, err := s.repo.HMS.ListIncidents(ctx, id)
		if err != nil {
			s.logger.Error("查询参会者 HMS 记录失败", zap.String("participant_object_id", id), zap.Error(err))
			return nil, err
		}
		for i := range incidents {
			resp.Incidents = append(resp.Incidents, toIncidentResponse(&incidents[i]))
		}
	}
	return resp, nil
}

// ────────────────────── ParseImportFile ──────────────────────

const maxImportRows = 1000

var (
	ErrImportNoData      = errors.New("Excel文件无数据行（第一行为表头）")
	ErrImportTooManyRows = fmt.Errorf("数据行数超过上限 %d 行", maxImportRows)
	ErrImportBadHeader   = errors.New("Excel表头缺少必要列（E-postadresse/Region/Organisasjon/Navn/Fødselsdato）")
)

// 导入表头（与报名系统导出的列名一致）
const (
	colEmail     = "E-postadresse"
	colRegion    = "Region"
	colOrg       = "Organisasjon"
	colName      = "Navn"
	colTel       = "Mobilnummer"
	colBadge     = "Skiltnummer"
	colGender    = "Kjønn"
	colStatus    = "Status"
	colBirthDate = "Fødselsdato"
	colFamily    = "Pårørende"
	colNotes     = "Notater"
	colCheckedIn = "Sjekket inn"
)

var requiredImportColumns = []string{colEmail, colRegion, colOrg, colName, colBirthDate}

// ImportParticipantRow 解析后的一行导入数据
type ImportParticipantRow struct {
	Row       int
	Email     string
	Region    string
	Org       string
	Name      string
	Tel       string
	Badge     string
	Gender    string
	Status    string
	BirthDate string
	Family    string
	Notes     string
	CheckedIn string
}

// ParseImportFile 解析参会者名单 Excel，返回解析后的行数据
func (s *participantService) ParseImportFile(reader io.Reader) ([]ImportParticipantRow, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("无法解析Excel文件: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	excelRows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("读取工作表失败: %w", err)
	}
	if len(excelRows) < 2 {
		return nil, ErrImportNoData
	}

	colIndex := parseHeaderIndex(excelRows[0])
	for _, col := range requiredImportColumns {
		if _, ok := colIndex[col]; !ok {
			return nil, ErrImportBadHeader
		}
	}

	get := func(row []string, col string) string {
		idx, ok := colIndex[col]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var rows []ImportParticipantRow
	for i := 1; i < len(excelRows); i++ {
		row := excelRows[i]
		item := ImportParticipantRow{
			Row:       i + 1,
			Email:     strings.ToLower(get(row, colEmail)),
			Region:    get(row, colRegion),
			Org:       get(row, colOrg),
			Name:      get(row, colName),
			Tel:       get(row, colTel),
			Badge:     get(row, colBadge),
			Gender:    get(row, colGender),
			Status:    get(row, colStatus),
			BirthDate: get(row, colBirthDate),
			Family:    get(row, colFamily),
			Notes:     get(row, colNotes),
			CheckedIn: get(row, colCheckedIn),
		}

		// 跳过全空行
		if item.Email == "" && item.Name == "" && item.Region == "" && item.Org == "" {
			continue
		}
		rows = append(rows, item)
	}

	if len(rows) == 0 {
		return nil, ErrImportNoData
	}
	if len(rows) > maxImportRows {
		return nil, ErrImportTooManyRows
	}
	return rows, nil
}

// parseHeaderIndex 解析 Excel 表头，返回列名 -> 列索引映射
func parseHeaderIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if _, dup := idx[name]; !dup && name != "" {
			idx[name] = i
		}
	}
	return idx
}

// ────────────────────── Import ──────────────────────

func (s *participantService) Import(ctx context.Context, rows []ImportParticipantRow, caller *Caller) (*dto.ImportParticipantResponse, error) {
	if err := authorize(ctx, s.authz, caller, model.CapUsersWrite); err != nil {
		return nil, err
	}
	resp := &dto.ImportParticipantResponse{Total: len(rows)}

	// 第一阶段：数据预校验（不接触数据库写操作）
	type validatedRow struct {
		row       ImportParticipantRow
		birthDate time.Time
		family    contactDetails
	}
	var validRows []validatedRow

	for _, row := range rows {
		if row.Email == "" || row.Region == "" || row.Org == "" || row.Name == "" || row.BirthDate == "" {
			resp.Failed++
			resp.Errors = append(resp.Errors, dto.ImportParticipantError{Row: row.Row, Reason: "必填字段为空"})
			continue
		}
		birth, err := time.Parse("02.01.2006", row.BirthDate)
		if err != nil {
			resp.Failed++
			resp.Errors = append(resp.Errors, dto.ImportParticipantError{
				Row: row.Row, Reason: fmt.Sprintf("出生日期格式错误（应为 dd.mm.yyyy）: %s", row.BirthDate),
			})
			continue
		}
		family, ok := parseContact(row.Family)
		if !ok {
			resp.Failed++
			resp.Errors = append(resp.Errors, dto.ImportParticipantError{Row: row.Row, Reason: "缺少紧急联系人（Pårørende）"})
			continue
		}
		validRows = append(validRows, validatedRow{row: row, birthDate: birth, family: family})
	}

	// 第二阶段：在事务中写入所有通过校验的参会者
	if len(validRows) == 0 {
		return resp, nil
	}

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		for _, vr := range validRows {
			region, err := tx.Region.GetOrCreate(ctx, vr.row.Region)
			if err != nil {
				return fmt.Errorf("第 %d 行写入地区失败: %w", vr.row.Row, err)
			}
			org, err := tx.Organization.GetOrCreate(ctx, vr.row.Org, &region.RegionID)
			if err != nil {
				return fmt.Errorf("第 %d 行写入组织失败: %w", vr.row.Row, err)
			}

			birth := vr.birthDate
			p := &model.Participant{
				ParticipantID:  vr.row.Badge,
				Name:           vr.row.Name,
				Email:          vr.row.Email,
				Tel:            vr.row.Tel,
				Type:           sanitizeParticipantType(vr.row.Status),
				Gender:         sanitizeGender(vr.row.Gender),
				BirthDate:      &birth,
				RegionID:       &region.RegionID,
				OrganizationID: &org.OrganizationID,
				Family:         vr.family.Name,
				FamilyRelation: vr.family.Relation,
				FamilyTel:      vr.family.Tel,
				Notes:          vr.row.Notes,
				CheckedIn:      sanitizeBool(vr.row.CheckedIn),
			}
			p.CreatedBy = &caller.UserID
			p.UpdatedBy = &caller.UserID

			if err := tx.Participant.Upsert(ctx, p); err != nil {
				return fmt.Errorf("第 %d 行写入数据库失败，已回滚全部导入: %w", vr.row.Row, err)
			}
			resp.Success++
		}
		return nil
	})
	if err != nil {
		s.logger.Error("导入参会者失败，事务回滚", zap.Error(err))
		return nil, err
	}

	s.logger.Info("参会者导入完成",
		zap.Int("total", resp.Total),
		zap.Int("success", resp.Success),
		zap.Int("failed", resp.Failed),
	)
	return resp, nil
}

// ── 导入字段清洗 ──

type contactDetails struct {
	Name     string
	Relation string
	Tel      string
}

var nonDigits = regexp.MustCompile(`\D`)

// parseContact 解析"姓名, 关系, 电话"格式的联系人；多个联系人以分号分隔，只取第一个
func parseContact(s string) (contactDetails, bool) {
	first := strings.TrimSpace(strings.SplitN(s, ";", 2)[0])
	if first == "" {
		return contactDetails{}, false
	}
	parts := strings.Split(first, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if parts[0] == "" {
		return contactDetails{}, false
	}

	c := contactDetails{Name: parts[0], Relation: "Pårørende", Tel: "00000000"}
	if len(parts) > 1 && parts[1] != "" {
		c.Relation = parts[1]
	}
	if len(parts) > 2 {
		tel := nonDigits.ReplaceAllString(parts[2], "")
		if len(tel) > 8 {
			tel = tel[:8]
		}
		if tel != "" {
			c.Tel = tel
		}
	}
	return c, true
}

func sanitizeParticipantType(s string) model.ParticipantType {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(s)), "delegat") {
		return model.ParticipantDelegate
	}
	return model.ParticipantObserver
}

func sanitizeGender(s string) string {
	lower := strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(lower, "mann"), strings.HasPrefix(lower, "male"):
		return "MALE"
	case strings.HasPrefix(lower, "kvinne"), strings.HasPrefix(lower, "female"):
		return "FEMALE"
	}
	return "OTHER"
}

func sanitizeBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ja", "yes", "true", "1":
		return true
	}
	return false
}

func toParticipantResponse(p *model.Participant) dto.ParticipantResponse {
	resp := dto.ParticipantResponse{
		ID:            p.ParticipantObjectID,
		ParticipantID: p.ParticipantID,
		Name:          p.Name,
		Email:         p.Email,
		Tel:           p.Tel,
		Type:          string(p.Type),
		Region:        p.RegionName(),
		CheckedIn:     p.CheckedIn,
	}
	if p.Organization != nil {
		resp.Organization = p.Organization.Name
	}
	return resp
}
