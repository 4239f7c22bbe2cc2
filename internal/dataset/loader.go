// Package dataset loads and caches the NPS raw sheet.
package dataset

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"nps-signal-finder/internal/types"
)

const (
	colDate   = "처리일"
	colScore  = "추천지수"
	colAgent  = "담당자"
	colAgent2 = "담당자ID"
	colDealer = "대리점명"
	colStore  = "매장명"
	colTeam   = "마케팅팀명"
	colSenior = "시니어여부"
	colExcl   = "제외"
)

// Parse reads the first sheet of an opened workbook into survey rows.
// Rows not marked 제외 == "N" are dropped at the door. A date or score that
// fails coercion keeps the row but clears the matching Has flag.
func Parse(f *excelize.File) ([]types.SurveyRow, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, fmt.Errorf("no data rows")
	}

	idx := map[string]int{}
	for i, h := range rows[0] {
		name := strings.TrimSpace(h)
		if _, seen := idx[name]; !seen {
			idx[name] = i
		}
	}
	required := []string{colDate, colScore, colAgent, colAgent2, colDealer, colStore, colTeam, colSenior, colExcl}
	for _, c := range required {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("missing column %q", c)
		}
	}

	cell := func(r []string, col string) string {
		i := idx[col]
		if i >= len(r) {
			return ""
		}
		return strings.TrimSpace(r[i])
	}

	var out []types.SurveyRow
	for _, r := range rows[1:] {
		if cell(r, colExcl) != "N" {
			continue
		}
		row := types.SurveyRow{
			Agent:   cell(r, colAgent),
			AgentID: cell(r, colAgent2),
			Dealer:  cell(r, colDealer),
			Store:   cell(r, colStore),
			Team:    cell(r, colTeam),
			Senior:  cell(r, colSenior) == "Y",
		}
		if d, ok := parseDate(cell(r, colDate)); ok {
			row.Date = d
			row.HasDate = true
		}
		if s, err := strconv.ParseFloat(cell(r, colScore), 64); err == nil {
			row.Score = s
			row.HasScore = true
		}
		out = append(out, row)
	}
	return out, nil
}

// parseDate accepts the sheet's compact form first, then the ISO form that
// shows up after manual edits.
func parseDate(s string) (time.Time, bool) {
	for _, layout := range []string{"20060102", "2006-01-02"} {
		if d, err := time.Parse(layout, s); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}
