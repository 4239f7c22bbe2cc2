package dataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sheetFrom(t *testing.T, rows [][]interface{}) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	for i, row := range rows {
		ref, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", ref, &row))
	}
	return f
}

func header() []interface{} {
	return []interface{}{"처리일", "추천지수", "담당자", "담당자ID", "대리점명", "매장명", "마케팅팀명", "시니어여부", "제외"}
}

func TestParseKeepsIncludedRowsOnly(t *testing.T) {
	f := sheetFrom(t, [][]interface{}{
		header(),
		{"20260105", "10", "김철수", "A01", "D1", "강남점", "인천마케팅팀", "N", "N"},
		{"20260106", "3", "이영희", "A02", "D1", "강남점", "인천마케팅팀", "Y", "N"},
		{"20260107", "10", "제외자", "A99", "D1", "강남점", "인천마케팅팀", "N", "Y"},
	})
	defer f.Close()

	rows, err := Parse(f)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	r := rows[0]
	assert.Equal(t, "김철수", r.Agent)
	assert.Equal(t, "A01", r.AgentID)
	assert.True(t, r.HasDate)
	assert.Equal(t, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), r.Date)
	assert.True(t, r.HasScore)
	assert.Equal(t, 10.0, r.Score)
	assert.False(t, r.Senior)

	assert.True(t, rows[1].Senior)
}

func TestParseCoercionFailuresKeepRow(t *testing.T) {
	f := sheetFrom(t, [][]interface{}{
		header(),
		{"not-a-date", "abc", "김철수", "A01", "D1", "강남점", "인천마케팅팀", "N", "N"},
		{"2026-01-05", "9", "이영희", "A02", "D1", "강남점", "인천마케팅팀", "N", "N"},
	})
	defer f.Close()

	rows, err := Parse(f)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.False(t, rows[0].HasDate)
	assert.False(t, rows[0].HasScore)

	// ISO dates are accepted as a fallback layout
	assert.True(t, rows[1].HasDate)
	assert.Equal(t, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), rows[1].Date)
}

func TestParseMissingColumn(t *testing.T) {
	f := sheetFrom(t, [][]interface{}{
		{"처리일", "추천지수", "담당자"},
		{"20260105", "10", "김철수"},
	})
	defer f.Close()

	_, err := Parse(f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "담당자ID")
}

func TestParseNoDataRows(t *testing.T) {
	f := sheetFrom(t, [][]interface{}{header()})
	defer f.Close()

	_, err := Parse(f)
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	f := sheetFrom(t, [][]interface{}{
		header(),
		{"20251210", "10", "김철수", "A01", "D1", "강남점", "인천마케팅팀", "N", "N"},
		{"20260105", "9", "이영희", "A02", "D1", "서초점", "남부마케팅팀", "N", "N"},
		{"20260110", "3", "이영희", "A02", "D1", "서초점", "남부마케팅팀", "N", "N"},
	})
	defer f.Close()

	rows, err := Parse(f)
	require.NoError(t, err)

	items := Summarize(rows)
	got := map[string]string{}
	for _, it := range items {
		got[it.Label] = it.Value
	}
	assert.Equal(t, "3", got["총 데이터 수"])
	assert.Equal(t, "2025-12-10 ~ 2026-01-10", got["데이터 기간"])
	assert.Equal(t, "2", got["팀 수"])
	assert.Equal(t, "2", got["매장 수"])
	assert.Equal(t, "2", got["T크루 수"])
	assert.Equal(t, "66.67%", got["평균 NPS"])
}
