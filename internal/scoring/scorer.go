// Package scoring maps a posting's folded text and contract type to a relevance
// score and a tag set using an injected keyword dictionary.
package scoring

import (
	"cmp"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"

	"github.com/jonathan/job-alerts/internal/textnorm"
	"github.com/jonathan/job-alerts/internal/types"
)

// TagCoreRobotics is the tag that defines the term-mining target subset by default.
const TagCoreRobotics = "CORE_ROBOTICS"

type compiledTerm struct {
	name string
	tag  string
	re   *regexp.Regexp
}

type compiledCategory struct {
	Category
	terms []compiledTerm
}

// Scorer is safe for concurrent use; it holds only compiled patterns.
type Scorer struct {
	version   string
	targetTag string
	cats      []compiledCategory
	contracts []Contract
	bands     []DistanceBand
	base      *point
	mustAny   []*regexp.Regexp
	exclude   []*regexp.Regexp
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithBase enables the distance bonus around a home location.
func WithBase(lat, lon float64) Option {
	return func(s *Scorer) {
		s.base = &point{lat: lat, lon: lon}
	}
}

// Match lists the terms of one category found in a posting.
type Match struct {
	Category string   `json:"category"`
	Tag      string   `json:"tag"`
	Weight   float64  `json:"weight"`
	Terms    []string `json:"terms"`
}

// New compiles a dictionary. Patterns are matched against folded text and must be
// bounded by non-alphanumeric characters or the ends of the text.
func New(d Dictionary, opts ...Option) (*Scorer, error) {
	if len(d.Categories) == 0 {
		return nil, &DictionaryError{Message: "no categories"}
	}

	s := &Scorer{
		version:   d.Version,
		targetTag: d.TargetTag,
		cats:      make([]compiledCategory, 0, len(d.Categories)),
	}
	if s.targetTag == "" {
		s.targetTag = TagCoreRobotics
	}

	for _, c := range d.Categories {
		cc := compiledCategory{Category: c, terms: make([]compiledTerm, 0, len(c.Terms))}
		for _, t := range c.Terms {
			pattern := t.Pattern
			if pattern == "" {
				pattern = regexp.QuoteMeta(textnorm.Fold(t.Name))
			}
			re, err := compileBounded(pattern)
			if err != nil {
				return nil, &DictionaryError{
					Message: fmt.Sprintf("category %q term %q has an invalid pattern", c.Name, t.Name),
					Cause:   err,
				}
			}
			tag := ""
			if c.TagTerms {
				tag = t.Tag
				if tag == "" {
					tag = t.Name
				}
			}
			cc.terms = append(cc.terms, compiledTerm{name: t.Name, tag: tag, re: re})
		}
		s.cats = append(s.cats, cc)
	}

	for _, c := range d.Contracts {
		s.contracts = append(s.contracts, Contract{Match: textnorm.Fold(c.Match), Weight: c.Weight})
	}

	for _, b := range d.Distance {
		if b.WithinKm <= 0 {
			return nil, &DictionaryError{Message: fmt.Sprintf("distance band %v km must be positive", b.WithinKm)}
		}
		s.bands = append(s.bands, b)
	}
	slices.SortFunc(s.bands, func(a, b DistanceBand) int { return cmp.Compare(a.WithinKm, b.WithinKm) })

	if r := d.Relevance; r != nil {
		var err error
		if s.mustAny, err = compileAll("must_any", r.MustAny); err != nil {
			return nil, err
		}
		if s.exclude, err = compileAll("exclude", r.Exclude); err != nil {
			return nil, err
		}
	}

	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func compileBounded(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile(`(?:^|[^a-z0-9])(?:` + pattern + `)(?:[^a-z0-9]|$)`)
}

func compileAll(section string, patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := compileBounded(p)
		if err != nil {
			return nil, &DictionaryError{
				Message: fmt.Sprintf("relevance %s pattern %q is invalid", section, p),
				Cause:   err,
			}
		}
		out = append(out, re)
	}
	return out, nil
}

// MustDefault returns a Scorer over DefaultDictionary.
func MustDefault() *Scorer {
	s, err := New(DefaultDictionary())
	if err != nil {
		panic(err)
	}
	return s
}

// Version returns the dictionary version the scorer was built from.
func (s *Scorer) Version() string { return s.version }

// TargetTag returns the tag that marks the term-mining target subset.
func (s *Scorer) TargetTag() string { return s.targetTag }

// Score returns the relevance score and sorted tag set for p. Each category adds
// its weight once per distinct matched term, so repeating a keyword has no effect.
func (s *Scorer) Score(p types.Posting) (float64, []string) {
	score, tags, _ := s.evaluate(p)
	return score, tags
}

// Explain returns the per-category matches behind Score.
func (s *Scorer) Explain(p types.Posting) []Match {
	_, _, matches := s.evaluate(p)
	return matches
}

// Relevant reports whether p passes the dictionary's relevance gate. A
// dictionary without a relevance section lets everything through.
func (s *Scorer) Relevant(p types.Posting) bool {
	if len(s.mustAny) == 0 && len(s.exclude) == 0 {
		return true
	}
	text := textnorm.Fold(p.Text())
	if len(s.mustAny) > 0 && !matchesAny(s.mustAny, text) {
		return false
	}
	return !matchesAny(s.exclude, text)
}

func matchesAny(res []*regexp.Regexp, text string) bool {
	for _, re := range res {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// Apply sets Score and Tags on p. It has the signature the store expects for re-scoring.
func (s *Scorer) Apply(p *types.Posting) {
	p.Score, p.Tags = s.Score(*p)
}

func (s *Scorer) evaluate(p types.Posting) (float64, []string, []Match) {
	text := textnorm.Fold(p.Text())

	var (
		score   float64
		tags    []string
		matches []Match
	)
	for _, c := range s.cats {
		var found []string
		for _, t := range c.terms {
			if !t.re.MatchString(text) {
				continue
			}
			found = append(found, t.name)
			if t.tag != "" {
				tags = append(tags, t.tag)
			}
		}
		if len(found) == 0 {
			continue
		}
		score += c.Weight * float64(len(found))
		tags = append(tags, c.Tag)
		matches = append(matches, Match{Category: c.Name, Tag: c.Tag, Weight: c.Weight, Terms: found})
	}

	score += s.contractWeight(p.ContractType)

	// Distance matches carry no posting tag.
	if km, ok := s.distanceKm(p); ok {
		if w := s.distanceWeight(km); w != 0 {
			score += w
			matches = append(matches, Match{
				Category: "distance",
				Tag:      "DISTANCE",
				Weight:   w,
				Terms:    []string{fmt.Sprintf("%.0f km", km)},
			})
		}
	}

	slices.Sort(tags)
	tags = slices.Compact(tags)
	return round3(score), tags, matches
}

func (s *Scorer) contractWeight(contract string) float64 {
	folded := textnorm.Fold(contract)
	if folded == "" {
		return 0
	}
	for _, c := range s.contracts {
		if strings.Contains(folded, c.Match) {
			return c.Weight
		}
	}
	return 0
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
