package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"elevtinget/backend/internal/model"
)

// ── 导出模块业务错误 ──

var ErrExportGenerateFail = errors.New("生成 Excel 文件失败")

const exportTimeLayout = "02.01.2006 15:04"

// exportColumns 导出表头（挪威语，与后台界面一致）
var exportColumns = []string{
	"Status", "Navn", "E-post", "Telefon", "Fylke", "Type", "Skiltnummer",
	"Fra", "Til", "Årsak", "Observatør", "Observatør skilt", "Byttet skilt",
	"HMS", "Behandlet av", "Avvisningsårsak", "Kommentar",
}

// Export 按过滤条件导出案件列表为 Excel
//
// 输出格式：
//   - 单个 Sheet "Permisjoner"，第 1 行为表头
//   - Status 列为派生状态的展示文案
//   - 时间按会议时区格式化
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error
func (s *caseService) Export(ctx context.Context, filterToken string, caller *Caller) (*bytes.Buffer, string, error) {
	if err := authorize(ctx, s.authz, caller, model.CapCaseRead); err != nil {
		return nil, "", err
	}
	filter, err := model.ParseCaseFilter(filterToken)
	if err != nil {
		return nil, "", err
	}

	now := s.now()
	cases, err := s.listCases(ctx, filter, now)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Permisjoner"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#0A466E"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	for i, title := range exportColumns {
		f.SetCellValue(sheetName, cell(colLetter(i), 1), title)
	}
	f.SetCellStyle(sheetName, "A1", cell(colLetter(len(exportColumns)-1), 1), headerStyle)
	f.SetColWidth(sheetName, "A", colLetter(len(exportColumns)-1), 18)
	f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	row := 2
	for i := range cases {
		for col, v := range s.exportRow(&cases[i], now) {
			f.SetCellValue(sheetName, cell(colLetter(col), row), v)
		}
		row++
	}
	if row > 2 {
		f.AutoFilter(sheetName, fmt.Sprintf("A1:%s", cell(colLetter(len(exportColumns)-1), row-1)), nil)
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("permisjoner_%s_%s.xlsx", filter, now.In(s.loc).Format("20060102"))
	return buf, filename, nil
}

func (s *caseService) exportRow(c *model.Case, now time.Time) []interface{} {
	status := model.DeriveStatus(c, now)
	row := make([]interface{}, len(exportColumns))
	row[0] = status.Label()
	if fr := c.FormReply; fr != nil {
		row[1] = fr.Name
		row[2] = fr.Email
		row[3] = fr.Tel
		row[4] = fr.County
		row[5] = string(fr.Type)
		row[6] = fr.ParticipantID
		row[7] = s.exportTime(fr.From)
		row[8] = s.exportTime(fr.To)
		row[9] = fr.Reason
		row[10] = fr.ObserverName
		row[11] = fr.ObserverID
	}
	row[12] = yesNo(c.IDSwapped)
	row[13] = yesNo(c.HMSFlag)
	if c.ReviewedBy != nil {
		row[14] = *c.ReviewedBy
	}
	row[15] = c.ReasonRejected
	row[16] = c.Comment
	return row
}

func (s *caseService) exportTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.In(s.loc).Format(exportTimeLayout)
}

func yesNo(b bool) string {
	if b {
		return "Ja"
	}
	return "Nei"
}

// ── 辅助函数 ──

func colLetter(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
