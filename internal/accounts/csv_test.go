package accounts

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekmungai/eloquent-ifrs-sub000/internal/model"
)

func TestChartRoundTrip(t *testing.T) {
	rows := []ChartRow{
		{Code: 3001, Name: "Business Checking", Type: model.Bank, Currency: "USD", Description: "Primary bank account"},
		{Name: "Property, Plant & Equipment", Type: model.NonCurrentAsset, Category: "Fixed Assets"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteChart(&buf, rows))

	got, err := ReadChart(&buf)
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestMarshalRow_EmptyCode(t *testing.T) {
	rec := MarshalRow(ChartRow{Name: "Sales", Type: model.OperatingRevenue})
	assert.Equal(t, []string{"", "Sales", "OPERATING_REVENUE", "", "", ""}, rec)
}

func TestUnmarshalRow_Errors(t *testing.T) {
	tests := []struct {
		name string
		rec  []string
	}{
		{"short", []string{"1", "Sales"}},
		{"bad code", []string{"x", "Sales", "OPERATING_REVENUE", "", "", ""}},
		{"bad type", []string{"1", "Sales", "REVENUE", "", "", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalRow(tt.rec)
			assert.Error(t, err)
		})
	}
}

func TestReadChart_Empty(t *testing.T) {
	rows, err := ReadChart(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReadChart_ReportsRow(t *testing.T) {
	in := "code,name,account_type,category,currency,description\n" +
		"1,Sales,OPERATING_REVENUE,,,\n" +
		"2,Other,NOPE,,,\n"
	_, err := ReadChart(strings.NewReader(in))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 3")
}

func TestReadTestdata(t *testing.T) {
	f, err := os.Open("../../testdata/chart-of-accounts.csv")
	require.NoError(t, err)
	defer f.Close()

	rows, err := ReadChart(f)
	require.NoError(t, err)
	require.Len(t, rows, 10)
	assert.Equal(t, "Property, Plant & Equipment", rows[0].Name)
	assert.Equal(t, "EUR", rows[2].Currency)
	for _, row := range rows {
		assert.NotEmpty(t, row.Name)
		assert.True(t, row.Type.Valid(), row.Type)
	}
}

func TestDefaultChart(t *testing.T) {
	chart := DefaultChart()
	require.Len(t, chart, len(model.AccountTypes))

	seen := make(map[model.AccountType]bool)
	for _, row := range chart {
		assert.NotEmpty(t, row.Name)
		assert.Zero(t, row.Code)
		seen[row.Type] = true
	}
	for _, at := range model.AccountTypes {
		assert.True(t, seen[at], "default chart has a %s account", at)
	}

	var buf bytes.Buffer
	require.NoError(t, WriteChart(&buf, chart))
	got, err := ReadChart(&buf)
	require.NoError(t, err)
	assert.Equal(t, chart, got)
}
