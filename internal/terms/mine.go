// Package terms ranks the vocabulary that distinguishes target postings from the
// rest of the corpus, using smoothed log-odds ratios over tokens and bigrams.
package terms

import (
	"fmt"
	"math"
	"sort"

	"github.com/jonathan/job-alerts/internal/config"
	"github.com/jonathan/job-alerts/internal/types"
)

// Options controls pruning, smoothing and output size.
type Options struct {
	// MinDF and MaxDF bound the fraction of corpus documents containing a term.
	MinDF float64
	MaxDF float64
	Alpha float64
	// TopN truncates each ranked list; zero keeps everything.
	TopN           int
	ExtraStopwords []string
}

// DefaultOptions returns the defaults used by the terms command.
func DefaultOptions() Options {
	return Options{MinDF: 0.005, MaxDF: 0.4, Alpha: 0.01, TopN: 30}
}

func (o Options) validate() error {
	if o.MinDF < 0 || o.MaxDF > 1 || o.MinDF > o.MaxDF {
		return &config.ConfigurationError{Field: "terms", Message: "document frequencies must satisfy 0 <= min_df <= max_df <= 1"}
	}
	if o.Alpha <= 0 {
		return &config.ConfigurationError{Field: "terms.alpha", Message: "must be positive"}
	}
	if o.TopN < 0 {
		return &config.ConfigurationError{Field: "terms.top_n", Message: "must be non-negative"}
	}
	return nil
}

// Term is one ranked token or bigram.
type Term struct {
	Term            string  `json:"term"`
	Score           float64 `json:"score"`
	Z               float64 `json:"z"`
	TargetCount     int     `json:"target_count"`
	BackgroundCount int     `json:"background_count"`
	DocFreq         int     `json:"doc_freq"`
}

// Result holds both ranked lists, most target-distinctive first.
type Result struct {
	TargetDocs     int    `json:"target_docs"`
	BackgroundDocs int    `json:"background_docs"`
	Tokens         []Term `json:"tokens"`
	Bigrams        []Term `json:"bigrams"`
}

// Partition splits postings by membership of tag.
func Partition(postings []types.Posting, tag string) (target, background []types.Posting) {
	for _, p := range postings {
		if p.HasTag(tag) {
			target = append(target, p)
		} else {
			background = append(background, p)
		}
	}
	return target, background
}

// MinePostings partitions postings by tag and mines their title and description.
func MinePostings(postings []types.Posting, tag string, opts Options) (Result, error) {
	target, background := Partition(postings, tag)
	return Mine(texts(target), texts(background), opts)
}

func texts(postings []types.Posting) []string {
	out := make([]string, len(postings))
	for i := range postings {
		out[i] = postings[i].Text()
	}
	return out
}

// Mine ranks the tokens and bigrams of two document sets. Document-frequency
// pruning runs over both sets together, so a term survives or not regardless of
// which side it is scored for. Swapping target and background negates every score.
func Mine(target, background []string, opts Options) (Result, error) {
	if err := opts.validate(); err != nil {
		return Result{}, err
	}

	tok := NewTokenizer(opts.ExtraStopwords)
	targetDocs := make([][]string, len(target))
	for i, text := range target {
		targetDocs[i] = tok.Tokens(text)
	}
	backgroundDocs := make([][]string, len(background))
	for i, text := range background {
		backgroundDocs[i] = tok.Tokens(text)
	}

	res := Result{TargetDocs: len(target), BackgroundDocs: len(background)}
	res.Tokens = rank(targetDocs, backgroundDocs, opts)
	res.Bigrams = rank(bigramDocs(targetDocs), bigramDocs(backgroundDocs), opts)
	return res, nil
}

func bigramDocs(docs [][]string) [][]string {
	out := make([][]string, len(docs))
	for i, d := range docs {
		out[i] = Bigrams(d)
	}
	return out
}

type counts struct {
	target, background, df int
}

func rank(targetDocs, backgroundDocs [][]string, opts Options) []Term {
	stats := make(map[string]*counts)
	add := func(docs [][]string, inTarget bool) {
		for _, doc := range docs {
			seen := make(map[string]bool, len(doc))
			for _, term := range doc {
				c := stats[term]
				if c == nil {
					c = &counts{}
					stats[term] = c
				}
				if inTarget {
					c.target++
				} else {
					c.background++
				}
				if !seen[term] {
					seen[term] = true
					c.df++
				}
			}
		}
	}
	add(targetDocs, true)
	add(backgroundDocs, false)

	nDocs := len(targetDocs) + len(backgroundDocs)
	if nDocs == 0 {
		return nil
	}

	// Corpus-wide pruning, then totals over the surviving vocabulary only.
	var (
		vocab        []string
		nT, nB       float64
		minDF, maxDF = opts.MinDF, opts.MaxDF
	)
	for term, c := range stats {
		frac := float64(c.df) / float64(nDocs)
		if frac < minDF || frac > maxDF {
			continue
		}
		vocab = append(vocab, term)
		nT += float64(c.target)
		nB += float64(c.background)
	}
	if len(vocab) == 0 {
		return nil
	}

	alpha := opts.Alpha
	v := float64(len(vocab))
	alpha0 := alpha * v

	out := make([]Term, 0, len(vocab))
	for _, term := range vocab {
		c := stats[term]
		cT, cB := float64(c.target), float64(c.background)

		score := math.Log((cT+alpha)/(nT+alpha0)) - math.Log((cB+alpha)/(nB+alpha0))

		// Monroe et al. log-odds with a uniform Dirichlet prior.
		var z float64
		if restT, restB := nT-cT+alpha0-alpha, nB-cB+alpha0-alpha; restT > 0 && restB > 0 {
			delta := math.Log((cT+alpha)/restT) - math.Log((cB+alpha)/restB)
			z = delta / math.Sqrt(1/(cT+alpha)+1/(cB+alpha))
		}

		out = append(out, Term{
			Term:            term,
			Score:           score,
			Z:               z,
			TargetCount:     c.target,
			BackgroundCount: c.background,
			DocFreq:         c.df,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Term < out[j].Term
	})

	if opts.TopN > 0 && len(out) > opts.TopN {
		out = out[:opts.TopN]
	}
	return out
}

// String renders a term for logs.
func (t Term) String() string {
	return fmt.Sprintf("%s (%.3f, z=%.2f, %d/%d)", t.Term, t.Score, t.Z, t.TargetCount, t.BackgroundCount)
}
