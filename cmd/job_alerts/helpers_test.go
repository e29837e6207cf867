package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-alerts/internal/types"
)

func TestParseGroups(t *testing.T) {
	tests := []struct {
		in   string
		want [][]string
	}{
		{"ros2,robotique;opencv", [][]string{{"ros2", "robotique"}, {"opencv"}}},
		{" ros2 ; ; vision industrielle ,", [][]string{{"ros2"}, {"vision industrielle"}}},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseGroups(tt.in))
		})
	}
}

func TestQueryFilters(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.Local)

	t.Run("defaults", func(t *testing.T) {
		resetFlags(queryCmd)
		f, err := queryFilters(queryCmd, now)
		require.NoError(t, err)
		assert.True(t, f.InsertedFrom.IsZero())
		assert.Nil(t, f.MinScore)
		assert.Nil(t, f.IDs)
		assert.Zero(t, f.Limit)
	})

	t.Run("window status score and top", func(t *testing.T) {
		resetFlags(queryCmd)
		require.NoError(t, queryCmd.Flags().Set("days", "7"))
		require.NoError(t, queryCmd.Flags().Set("status", "applied"))
		require.NoError(t, queryCmd.Flags().Set("min-score", "0"))
		require.NoError(t, queryCmd.Flags().Set("top", "5"))

		f, err := queryFilters(queryCmd, now)
		require.NoError(t, err)
		assert.Equal(t, now.AddDate(0, 0, -7), f.InsertedFrom)
		assert.Equal(t, types.StatusApplied, f.Status)
		require.NotNil(t, f.MinScore, "an explicit zero still filters")
		assert.Equal(t, 0.0, *f.MinScore)
		assert.Equal(t, 5, f.Limit)
	})

	t.Run("from and inclusive to", func(t *testing.T) {
		resetFlags(queryCmd)
		require.NoError(t, queryCmd.Flags().Set("from", "2025-03-01"))
		require.NoError(t, queryCmd.Flags().Set("to", "2025-03-02"))

		f, err := queryFilters(queryCmd, now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.Local), f.InsertedFrom)
		assert.True(t, f.InsertedTo.After(time.Date(2025, 3, 2, 23, 59, 59, 0, time.Local)))
		assert.True(t, f.InsertedTo.Before(time.Date(2025, 3, 3, 0, 0, 0, 0, time.Local)))
	})

	t.Run("empty ids match nothing", func(t *testing.T) {
		resetFlags(queryCmd)
		require.NoError(t, queryCmd.Flags().Set("ids", " , "))

		f, err := queryFilters(queryCmd, now)
		require.NoError(t, err)
		assert.NotNil(t, f.IDs)
		assert.Empty(t, f.IDs)
	})

	t.Run("salary filter disables the store limit", func(t *testing.T) {
		resetFlags(queryCmd)
		require.NoError(t, queryCmd.Flags().Set("top", "5"))
		require.NoError(t, queryCmd.Flags().Set("min-salary", "2500"))

		f, err := queryFilters(queryCmd, now)
		require.NoError(t, err)
		assert.Zero(t, f.Limit)
	})
	resetFlags(queryCmd)
}

func TestFilterMinSalary(t *testing.T) {
	postings := []types.Posting{
		{ExternalID: "A", Salary: "Annuel de 38000,00 Euros"},
		{ExternalID: "B", Salary: "Mensuel de 2200,00 Euros"},
		{ExternalID: "C"},
		{ExternalID: "D", Salary: "45k€"},
	}

	got := filterMinSalary(postings, 3000)
	assert.Equal(t, []string{"A", "D"}, ids(got))
	assert.Empty(t, filterMinSalary(postings, 10000))
}

// ============================================================================
// Export writers
// ============================================================================

func samplePostings() []types.Posting {
	published := time.Date(2025, 3, 1, 8, 30, 0, 0, time.UTC)
	return []types.Posting{
		{
			ExternalID:  "188XKRT",
			Title:       `Ingénieur "ROS 2" <junior>`,
			Company:     "ALSACE ROBOTICS",
			Location:    "68 - MULHOUSE",
			PublishedAt: published,
			Salary:      "Annuel de 38000,00 Euros à 42000,00 Euros sur 12 mois",
			Score:       9.5,
			Tags:        []string{"CORE_ROBOTICS", "ROS_STACK"},
			Status:      types.StatusNew,
			ApplyURL:    "https://example.com/apply?a=1&b=2",
		},
		{ExternalID: "188XPQR", Title: "Comptable, H/F", Score: 0, Status: types.StatusRejected},
	}
}

func TestWriteJSONL(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSONL(&buf, samplePostings()))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `<junior>`, "HTML is not escaped")
	assert.Contains(t, lines[0], `a=1&b=2`)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "188XKRT", first["external_id"])
	assert.Equal(t, 9.5, first["score"])
	assert.Equal(t, []any{"CORE_ROBOTICS", "ROS_STACK"}, first["tags"])

	buf.Reset()
	require.NoError(t, writeJSONL(&buf, nil))
	assert.Empty(t, buf.String())
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeCSV(&buf, samplePostings()))

	rows := readCSV(t, buf.String())
	require.Len(t, rows, 3)
	assert.Equal(t, csvHeader, rows[0])

	row := make(map[string]string, len(csvHeader))
	for i, col := range csvHeader {
		row[col] = rows[1][i]
	}
	assert.Equal(t, `Ingénieur "ROS 2" <junior>`, row["title"])
	assert.Equal(t, "2025-03-01T08:30:00Z", row["published_at"])
	assert.Equal(t, "3166.67", row["min_monthly_salary"])
	assert.Equal(t, "9.5", row["score"])
	assert.Equal(t, "CORE_ROBOTICS|ROS_STACK", row["tags"])

	assert.Equal(t, "Comptable, H/F", rows[2][1])
	assert.Equal(t, "", rows[2][8], "no salary, no minimum")
	assert.Equal(t, "rejected", rows[2][11])
}
