package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/job-alerts/internal/salary"
	"github.com/jonathan/job-alerts/internal/types"
)

var csvHeader = []string{
	"external_id", "title", "company", "location", "location_code", "contract_type",
	"published_at", "salary", "min_monthly_salary", "score", "tags", "status",
	"inserted_at", "status_changed_at", "apply_url", "url",
}

// writeJSONL writes one JSON object per posting.
func writeJSONL(w io.Writer, postings []types.Posting) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i := range postings {
		if err := enc.Encode(&postings[i]); err != nil {
			return fmt.Errorf("failed to encode posting %s: %w", postings[i].ExternalID, err)
		}
	}
	return nil
}

// writeCSV writes a header row and one row per posting. Tags are joined with "|".
func writeCSV(w io.Writer, postings []types.Posting) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, p := range postings {
		minSalary := ""
		if v, ok := salary.ParseMinMonthly(p.Salary); ok {
			minSalary = strconv.FormatFloat(v, 'f', 2, 64)
		}
		row := []string{
			p.ExternalID, p.Title, p.Company, p.Location, p.LocationCode, p.ContractType,
			formatTime(p.PublishedAt), p.Salary, minSalary, strconv.FormatFloat(p.Score, 'f', -1, 64),
			strings.Join(p.Tags, "|"), string(p.Status),
			formatTime(p.InsertedAt), formatTime(p.StatusChangedAt), p.ApplyURL, p.URL,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row %s: %w", p.ExternalID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
