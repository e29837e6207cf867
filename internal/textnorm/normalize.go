// Package textnorm folds posting text into the canonical form used by scoring and
// term mining: lower-case, accent-free, HTML-free, with a few domain spellings merged.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ligatures NFD does not decompose.
var ligatures = strings.NewReplacer("œ", "oe", "Œ", "oe", "æ", "ae", "Æ", "ae", "ß", "ss")

// merges rewrites variant spellings so they tokenize and match as one term.
var merges = []struct {
	pattern *regexp.Regexp
	repl    string
}{
	{regexp.MustCompile(`\bros\s*2\b`), "ros2"},
	{regexp.MustCompile(`\bmove\s*it(?:\s*2)?\b`), "moveit"},
	{regexp.MustCompile(`\btia\s*portal\b`), "tia portal"},
	{regexp.MustCompile(`\btwin\s*cat\b`), "twincat"},
	{regexp.MustCompile(`\bnavigation\s*2\b`), "nav2"},
}

var spaceRun = regexp.MustCompile(`[ \t\r\f\v]+`)

// Fold lower-cases text, removes diacritics and applies the domain merges.
// Fold is idempotent.
func Fold(text string) string {
	if text == "" {
		return ""
	}
	t := RemoveAccents(ligatures.Replace(text))
	t = strings.ToLower(t)
	for _, m := range merges {
		t = m.pattern.ReplaceAllString(t, m.repl)
	}
	return t
}

// RemoveAccents strips combining marks after canonical decomposition ("é" -> "e").
func RemoveAccents(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return out
}

// StripHTML returns the visible text of an HTML fragment. Plain text is returned
// with whitespace cleaned.
func StripHTML(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return CleanWhitespace(fragment)
	}

	// Keep line structure: block boundaries become newlines before text extraction.
	html := blockBreaks.Replace(fragment)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return CleanWhitespace(fragment)
	}
	doc.Find("script, style, noscript").Remove()
	return CleanWhitespace(doc.Text())
}

var blockBreaks = strings.NewReplacer(
	"<br>", "\n<br>", "<br/>", "\n<br/>", "<br />", "\n<br />",
	"</p>", "</p>\n", "</li>", "</li>\n", "</div>", "</div>\n",
)

// CleanWhitespace collapses runs of blanks and drops empty lines.
func CleanWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(spaceRun.ReplaceAllString(line, " "))
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
