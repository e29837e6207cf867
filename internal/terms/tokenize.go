package terms

import (
	"regexp"
	"strings"

	"github.com/jonathan/job-alerts/internal/textnorm"
)

var tokenPattern = regexp.MustCompile(`[a-z][a-z0-9+_\-/]+`)

// Stopwords in folded form: French and English function words plus job-ad boilerplate.
var defaultStopwords = []string{
	// French
	"le", "la", "les", "un", "une", "des", "du", "de", "au", "aux", "et", "en", "dans", "sur",
	"avec", "pour", "par", "ou", "que", "qui", "quoi", "dont", "cela", "cette", "cet", "ce",
	"ces", "son", "sa", "ses", "leur", "leurs", "nos", "notre", "vos", "votre", "plus", "moins",
	"tres", "bien", "est", "sont", "etre", "etes", "ete", "fait", "faire", "afin", "ainsi",
	"entre", "chez", "vers", "sans", "sous", "fois", "ans", "jours", "il", "elle", "ils", "nous",
	"vous", "se", "ne", "pas", "tout", "tous", "toute", "toutes",
	// English
	"the", "an", "and", "or", "of", "to", "in", "on", "for", "from", "by", "as", "is", "are",
	"be", "been", "this", "that", "these", "those", "it", "its", "at", "we", "you", "they",
	"our", "your", "their", "will", "can", "may", "more", "most", "less", "very", "good",
	"strong", "ability", "skills", "experience", "experiences", "with",
	// job boilerplate, French
	"poste", "profil", "mission", "missions", "client", "clients", "candidat", "candidature",
	"recherche", "recherchons", "souhaitez", "justifiez", "intervenez", "assurer", "assurez",
	"realiser", "realisez", "participer", "participerez", "selon", "niveau", "horaire",
	"horaires", "cdi", "cdd", "interim", "h/f", "hf", "mois", "semaine", "jour", "souhait",
	"souhaite", "souhaitee", "souhaitees",
	// job boilerplate, English
	"position", "role", "responsibilities", "responsibility", "requirements", "apply",
	"applicant", "candidate", "team", "work", "working", "ensure", "ensuring", "perform",
	"performing", "according", "based", "within", "environment",
}

// Tokenizer splits posting text into folded tokens, dropping stopwords.
type Tokenizer struct {
	stop map[string]bool
}

// NewTokenizer returns a tokenizer using the built-in stopwords plus extra.
func NewTokenizer(extra []string) *Tokenizer {
	stop := make(map[string]bool, len(defaultStopwords)+len(extra))
	for _, w := range defaultStopwords {
		stop[w] = true
	}
	for _, w := range extra {
		if w = strings.TrimSpace(textnorm.Fold(w)); w != "" {
			stop[w] = true
		}
	}
	return &Tokenizer{stop: stop}
}

// Tokens returns the kept tokens of text in order.
func (t *Tokenizer) Tokens(text string) []string {
	raw := tokenPattern.FindAllString(textnorm.Fold(text), -1)
	out := make([]string, 0, len(raw))
	for _, tok := range raw {
		if len(tok) <= 1 || t.stop[tok] || isDigits(tok) {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// Bigrams joins adjacent tokens with a space.
func Bigrams(tokens []string) []string {
	if len(tokens) < 2 {
		return nil
	}
	out := make([]string, 0, len(tokens)-1)
	for i := 0; i+1 < len(tokens); i++ {
		out = append(out, tokens[i]+" "+tokens[i+1])
	}
	return out
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
