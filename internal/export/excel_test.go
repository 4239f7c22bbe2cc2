package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"nps-signal-finder/internal/types"
)

func TestWriteRoundTrip(t *testing.T) {
	table := types.Table{
		Columns: []string{"담당자", "NPS(%)", "응답수"},
		Rows: [][]string{
			{"김철수", "40.0%", "5"},
			{"이영희", "100.0%", "5"},
		},
	}

	data, err := Write(table)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"분석결과"}, f.GetSheetList())

	rows, err := f.GetRows("분석결과")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, table.Columns, rows[0])
	assert.Equal(t, table.Rows[0], rows[1])
	assert.Equal(t, table.Rows[1], rows[2])
}

func TestWriteEmptyTable(t *testing.T) {
	data, err := Write(types.Table{Columns: []string{"담당자"}})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("분석결과")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"담당자"}, rows[0])
}
