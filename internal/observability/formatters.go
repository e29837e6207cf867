// Package observability provides formatted terminal output for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jonathan/job-alerts/internal/followup"
	"github.com/jonathan/job-alerts/internal/ingestion"
	"github.com/jonathan/job-alerts/internal/scoring"
	"github.com/jonathan/job-alerts/internal/terms"
	"github.com/jonathan/job-alerts/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 72
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 10
)

// Printer handles formatted output for the CLI
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}

// pad right-pads s with spaces to n runes.
func pad(s string, n int) string {
	if c := utf8.RuneCountInString(s); c < n {
		return s + strings.Repeat(" ", n-c)
	}
	return s
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	inner := boxWidth - 4
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(truncate(title, inner), inner))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", pad(truncate(line, inner), inner))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintSummary outputs the counts of a fetch, sweep or enrichment run.
func (p *Printer) PrintSummary(s *ingestion.Summary) {
	if s == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Query:      %s\n", s.Query))
	sb.WriteString(fmt.Sprintf("Run:        %s\n", s.RunID))
	sb.WriteString(fmt.Sprintf("Duration:   %s\n", s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond)))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("New:        %d\n", s.New))
	sb.WriteString(fmt.Sprintf("Updated:    %d\n", s.Updated))
	sb.WriteString(fmt.Sprintf("Skipped:    %d\n", s.Skipped))
	sb.WriteString(fmt.Sprintf("Duplicates: %d\n", s.Duplicates))
	sb.WriteString(fmt.Sprintf("Filtered:   %d\n", s.Filtered))
	sb.WriteString(fmt.Sprintf("Errors:     %d\n", s.Errors))
	sb.WriteString(fmt.Sprintf("Pages:      %d", s.Pages))
	if s.Err != nil {
		sb.WriteString(fmt.Sprintf("\n\n⚠ stopped early: %s", s.Err))
	}

	p.printBox(strings.ToUpper(s.Kind)+" SUMMARY", sb.String())
}

// PrintPostings outputs the top postings with score, tags and location.
func (p *Printer) PrintPostings(title string, postings []types.Posting) {
	if len(postings) == 0 {
		p.printBox(title, "No postings.")
		return
	}

	var sb strings.Builder
	count := min(len(postings), maxItemsToShow)
	for i := 0; i < count; i++ {
		post := postings[i]
		sb.WriteString(fmt.Sprintf("#%d  %s  [%.2f]\n", i+1, post.Title, post.Score))
		sb.WriteString(fmt.Sprintf("    %s · %s · %s\n", post.ExternalID, orDash(post.Company), orDash(post.Location)))
		if len(post.Tags) > 0 {
			sb.WriteString(fmt.Sprintf("    %s\n", strings.Join(post.Tags, ", ")))
		}
		if link := firstNonEmpty(post.ApplyURL, post.URL); link != "" {
			sb.WriteString(fmt.Sprintf("    %s\n", link))
		}
		if i < count-1 {
			sb.WriteString("\n")
		}
	}

	if len(postings) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more postings", len(postings)-maxItemsToShow))
	}

	p.printBox(title, strings.TrimSuffix(sb.String(), "\n"))
}

// PrintFollowUps outputs due reminders with how late each one is.
func (p *Printer) PrintFollowUps(items []followup.Item, now time.Time) {
	if len(items) == 0 {
		p.printBox("DUE FOLLOW-UPS", "✅ Nothing due.")
		return
	}

	var sb strings.Builder
	for i, it := range items {
		late := now.Sub(it.Reminder.DueAt).Truncate(time.Hour)
		sb.WriteString(fmt.Sprintf("%s  level %d  due %s", it.Posting.ExternalID, it.Reminder.Level, it.Reminder.DueAt.Format("2006-01-02")))
		if late >= 24*time.Hour {
			sb.WriteString(fmt.Sprintf(" (%dd late)", int(late.Hours()/24)))
		}
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("  %s · %s\n", it.Posting.Title, orDash(it.Posting.Company)))
		if i < len(items)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("DUE FOLLOW-UPS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintTerms outputs the ranked tokens and bigrams.
func (p *Printer) PrintTerms(res terms.Result, targetTag string) {
	header := fmt.Sprintf("Target %s: %d postings · background: %d postings", targetTag, res.TargetDocs, res.BackgroundDocs)
	p.printBox("DISTINCTIVE TOKENS", header+"\n\n"+termLines(res.Tokens))
	p.printBox("DISTINCTIVE BIGRAMS", header+"\n\n"+termLines(res.Bigrams))
}

func termLines(ts []terms.Term) string {
	if len(ts) == 0 {
		return "No terms survived pruning."
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-28s %8s %7s %6s %6s\n", "term", "log-odds", "z", "tgt", "bg"))
	for _, t := range ts {
		sb.WriteString(fmt.Sprintf("%s %8.3f %7.2f %6d %6d\n", pad(truncate(t.Term, 28), 28), t.Score, t.Z, t.TargetCount, t.BackgroundCount))
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// PrintExplain outputs the per-category breakdown of a posting's score.
func (p *Printer) PrintExplain(post types.Posting, matches []scoring.Match) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s  %s\n", post.ExternalID, post.Title))
	sb.WriteString(fmt.Sprintf("Score: %.3f\n", post.Score))
	if len(matches) == 0 {
		sb.WriteString("\nNo category matched.")
	}
	for _, m := range matches {
		sb.WriteString(fmt.Sprintf("\n%-18s %+5.2f × %d  %s", m.Tag, m.Weight, len(m.Terms), strings.Join(m.Terms, ", ")))
	}

	p.printBox("SCORE BREAKDOWN", sb.String())
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
